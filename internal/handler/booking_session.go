package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/availability"
	"github.com/faylib/equipment-calendar/internal/booking"
	"github.com/faylib/equipment-calendar/internal/catalog"
	"github.com/faylib/equipment-calendar/internal/middleware"
	"github.com/faylib/equipment-calendar/internal/model"
	"github.com/faylib/equipment-calendar/internal/service"
	"github.com/faylib/equipment-calendar/internal/utils"
)

// BookingHandler drives booking flows over HTTP.  The flow itself lives in
// Store between calls; the session token is the only credential a client
// holds.
type BookingHandler struct {
	Machine  *booking.Machine
	Store    booking.Store
	Calendar *CalendarHandler // resolves assetIds into booking groups
	Secret   string
	TTL      time.Duration
	Logger   *zap.Logger
}

type createSessionRequest struct {
	Date     string               `json:"date"`
	Hour     *int                 `json:"hour"`
	Groups   []model.BookingGroup `json:"groups"`
	AssetIDs []string             `json:"assetIds"`
}

type loginRequest struct {
	Barcode string `json:"barcode"`
	PIN     string `json:"pin"`
}

type confirmRequest struct {
	AgreedCost     bool `json:"agreedCost"`
	AgreedTraining bool `json:"agreedTraining"`
}

// sessionPatron is the part of the patron record shown back to the client.
// The barcode stays server-side.
type sessionPatron struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type sessionView struct {
	ID        string                `json:"id"`
	Step      booking.Step          `json:"step"`
	Date      string                `json:"date"`
	Hour      int                   `json:"hour"`
	StartTime string                `json:"startTime"`
	Groups    []model.BookingGroup  `json:"groups"`
	Patron    *sessionPatron        `json:"patron,omitempty"`
	Error     string                `json:"error,omitempty"`
	Results   []model.BookingResult `json:"results,omitempty"`
}

func viewOf(id string, f booking.Flow) sessionView {
	v := sessionView{
		ID:        id,
		Step:      f.Step,
		Date:      f.Date,
		Hour:      f.Hour,
		StartTime: booking.StartTime(f.Date, f.Hour),
		Groups:    f.Groups,
		Error:     f.ErrorMsg,
		Results:   f.Results,
	}
	if f.Patron != nil {
		v.Patron = &sessionPatron{FirstName: f.Patron.FirstName, LastName: f.Patron.LastName}
	}
	return v
}

// Create handles POST /api/booking-sessions.  Either groups or assetIds
// must be given; assetIds are resolved against live availability for the
// requested slot.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	day, err := availability.ParseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	if req.Hour == nil || *req.Hour < 0 || *req.Hour >= availability.HoursPerDay {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hour must be between 0 and 23"})
	}

	groups := req.Groups
	if len(groups) == 0 {
		ids := catalog.Known(req.AssetIDs)
		if len(ids) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "groups or assetIds required"})
		}
		groups = h.Calendar.slotGroups(c.Request().Context(), ids, day, *req.Hour)
		if len(groups) == 0 {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no selected equipment is available at this time"})
		}
	}
	for i := range groups {
		if strings.TrimSpace(groups[i].GroupName) == "" {
			groups[i].GroupName = catalog.Name(groups[i].GroupID)
		}
	}

	id := booking.NewSessionID()
	flow := booking.NewFlow(availability.FormatDate(day), *req.Hour, groups)
	if err := h.Store.Save(c.Request().Context(), id, flow); err != nil {
		h.Logger.Error("save booking session failed", zap.String("session_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
	}
	tok, err := utils.NewSessionToken(h.Secret, id, h.TTL)
	if err != nil {
		h.Logger.Error("issue session token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	h.Logger.Info("booking session opened",
		zap.String("session_id", id),
		zap.String("date", flow.Date),
		zap.Int("hour", flow.Hour),
		zap.Int("groups", len(groups)),
	)
	return c.JSON(http.StatusCreated, echo.Map{
		"token":     tok.Token,
		"expiresAt": tok.Exp,
		"session":   viewOf(id, flow),
	})
}

// Get handles GET /api/booking-sessions/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id := c.Get(middleware.SessionIDKey).(string)
	flow, err := h.Store.Load(c.Request().Context(), id)
	if err != nil {
		return h.storeError(c, id, err)
	}
	return c.JSON(http.StatusOK, viewOf(id, flow))
}

// Login handles POST /api/booking-sessions/:id/login.
func (h *BookingHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	if req.Barcode == "" || req.PIN == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing barcode or pin"})
	}
	return h.apply(c, booking.LoginSubmitted{Barcode: req.Barcode, PIN: req.PIN})
}

// Confirm handles POST /api/booking-sessions/:id/confirm.  It answers once
// every booking has settled.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid JSON body"})
	}
	return h.apply(c, booking.ConfirmSubmitted{AgreedCost: req.AgreedCost, AgreedTraining: req.AgreedTraining})
}

// apply runs one event under the session lock, so a flow never has two
// updates (and never two booking rounds) in flight.
func (h *BookingHandler) apply(c echo.Context, ev booking.Event) error {
	id := c.Get(middleware.SessionIDKey).(string)
	ctx := service.WithSessionID(c.Request().Context(), id)

	release, err := h.Store.Lock(ctx, id)
	if err != nil {
		return h.storeError(c, id, err)
	}
	defer release()

	flow, err := h.Store.Load(ctx, id)
	if err != nil {
		return h.storeError(c, id, err)
	}
	next, err := h.Machine.Update(ctx, flow, ev)
	if errors.Is(err, booking.ErrInvalidTransition) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "action not allowed in step " + string(flow.Step)})
	}
	if err != nil {
		h.Logger.Error("booking flow update failed", zap.String("session_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Store.Save(ctx, id, next); err != nil {
		h.Logger.Error("save booking session failed", zap.String("session_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
	}
	return c.JSON(http.StatusOK, viewOf(id, next))
}

// Close handles DELETE /api/booking-sessions/:id, called when the patron
// dismisses the dialog.  A session with a request in flight is not closed.
func (h *BookingHandler) Close(c echo.Context) error {
	id := c.Get(middleware.SessionIDKey).(string)
	ctx := c.Request().Context()

	release, err := h.Store.Lock(ctx, id)
	if err != nil {
		return h.storeError(c, id, err)
	}
	defer release()

	if _, err := h.Store.Load(ctx, id); err != nil {
		return h.storeError(c, id, err)
	}
	if err := h.Store.Delete(ctx, id); err != nil {
		h.Logger.Error("delete booking session failed", zap.String("session_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
	}
	h.Logger.Info("booking session closed", zap.String("session_id", id))
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) storeError(c echo.Context, id string, err error) error {
	if errors.Is(err, booking.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking session not found"})
	}
	if errors.Is(err, booking.ErrSessionBusy) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking session is busy"})
	}
	h.Logger.Error("load booking session failed", zap.String("session_id", id), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session store error"})
}
