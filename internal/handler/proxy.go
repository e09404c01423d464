// Package handler exposes the HTTP handlers of the equipment calendar: the
// passthrough proxies to the Communico API, the calendar views built from
// aggregated availability, and the booking session endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/communico"
)

// Upstream is the raw side of the Communico client used by the proxies.
type Upstream interface {
	GroupAvailability(ctx context.Context, groupID, date string) (*communico.Response, error)
	SubmitBooking(ctx context.Context, body any) (*communico.Response, error)
	PatronSignIn(ctx context.Context, barcode, pin string) (*communico.Response, error)
}

// ProxyHandler forwards browser calls to the upstream API, which cannot be
// called from the browser directly.
type ProxyHandler struct {
	Upstream Upstream
	Logger   *zap.Logger
}

var errInternal = echo.Map{"error": "Internal Server Error"}

// Availability handles GET /api/availability?printerId=&date=.  Non-2xx
// upstream answers are replaced by {"error":"API responded with N"} with
// the same status.
func (h *ProxyHandler) Availability(c echo.Context) error {
	date := c.QueryParam("date")
	groupID := c.QueryParam("printerId")
	if date == "" || groupID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing date or printerId"})
	}

	resp, err := h.Upstream.GroupAvailability(c.Request().Context(), groupID, date)
	if err != nil {
		h.Logger.Error("availability proxy failed", zap.String("group_id", groupID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}
	if !resp.OK() {
		return c.JSON(resp.StatusCode, echo.Map{"error": fmt.Sprintf("API responded with %d", resp.StatusCode)})
	}
	if !json.Valid(resp.Body) {
		h.Logger.Error("availability proxy got non-JSON body", zap.String("group_id", groupID))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}
	return c.JSONBlob(http.StatusOK, resp.Body)
}

// Book handles POST /api/book.  The request body is forwarded untouched and
// the upstream body is mirrored with its status.
func (h *ProxyHandler) Book(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil || !json.Valid(body) {
		h.Logger.Warn("book proxy received invalid JSON", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}

	resp, err := h.Upstream.SubmitBooking(c.Request().Context(), body)
	if err != nil {
		h.Logger.Error("book proxy failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}
	return h.mirror(c, resp, "book")
}

// Patron handles GET /api/patron?u=&p=.
func (h *ProxyHandler) Patron(c echo.Context) error {
	barcode := c.QueryParam("u")
	pin := c.QueryParam("p")
	if barcode == "" || pin == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing barcode or pin"})
	}

	resp, err := h.Upstream.PatronSignIn(c.Request().Context(), barcode, pin)
	if err != nil {
		h.Logger.Error("patron proxy failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}
	return h.mirror(c, resp, "patron")
}

// mirror writes the upstream JSON body back, keeping error statuses and
// normalizing success to 200.
func (h *ProxyHandler) mirror(c echo.Context, resp *communico.Response, name string) error {
	if !json.Valid(resp.Body) {
		h.Logger.Error(name+" proxy got non-JSON body", zap.Int("status", resp.StatusCode))
		return c.JSON(http.StatusInternalServerError, errInternal)
	}
	status := http.StatusOK
	if !resp.OK() {
		status = resp.StatusCode
	}
	return c.JSONBlob(status, resp.Body)
}
