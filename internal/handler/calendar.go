package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/availability"
	"github.com/faylib/equipment-calendar/internal/calendar"
	"github.com/faylib/equipment-calendar/internal/catalog"
	"github.com/faylib/equipment-calendar/internal/model"
)

// AvailabilitySource returns the aggregated availability of several asset
// groups starting at start.  Implemented by availability.Fetcher.
type AvailabilitySource interface {
	FetchAll(ctx context.Context, assetIDs []string, start time.Time) []model.AssetAvailability
}

// CalendarHandler serves the month grid, the day details and the booking
// groups of one slot.  Every call fetches fresh availability upstream.
type CalendarHandler struct {
	Source AvailabilitySource
	Logger *zap.Logger
	Now    func() time.Time
}

func (h *CalendarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Assets handles GET /api/assets: the catalog flat and grouped by
// category, plus the current selection.  The selection starts from
// ?selected=a,b (default selection when absent) and applies at most one
// ?toggle=<id> or ?toggleCategory=<name>, so the asset filter can be driven
// without client-side catalog logic.
func (h *CalendarHandler) Assets(c echo.Context) error {
	selection := catalog.DefaultSelection()
	if raw, ok := c.QueryParams()["selected"]; ok {
		selection = catalog.Known(splitIDs(strings.Join(raw, ",")))
	}
	if id := c.QueryParam("toggle"); id != "" {
		if _, ok := catalog.ByID(id); !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown asset " + id})
		}
		selection = catalog.Toggle(selection, id)
	} else if cat := c.QueryParam("toggleCategory"); cat != "" {
		if len(catalog.InCategory(cat)) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category " + cat})
		}
		selection = catalog.ToggleCategory(selection, cat)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"assets":           catalog.All(),
		"categories":       catalog.Categories(),
		"defaultCategory":  catalog.DefaultCategory,
		"defaultSelection": catalog.DefaultSelection(),
		"selection":        selection,
	})
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// selectedAssets reads ?assets=a,b.  Unknown ids are dropped; an absent
// parameter means the default selection.
func selectedAssets(c echo.Context) []string {
	raw := strings.TrimSpace(c.QueryParam("assets"))
	if raw == "" {
		return catalog.DefaultSelection()
	}
	return catalog.Known(splitIDs(raw))
}

// Month handles GET /api/calendar?month=YYYY-MM&assets=&requireAll=.
// month defaults to the current month.
func (h *CalendarHandler) Month(c echo.Context) error {
	first := availability.MonthStart(h.now().UTC())
	if m := c.QueryParam("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
		}
		first = t
	}
	requireAll := false
	if v := c.QueryParam("requireAll"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "requireAll must be a boolean"})
		}
		requireAll = b
	}
	ids := selectedAssets(c)

	avail := h.Source.FetchAll(c.Request().Context(), ids, first)
	view := calendar.SummarizeMonth(avail, first.Year(), first.Month(), requireAll)
	return c.JSON(http.StatusOK, echo.Map{"assets": ids, "calendar": view})
}

// parseDate reads ?date=YYYY-MM-DD.
func parseDate(c echo.Context) (time.Time, bool) {
	t, err := availability.ParseDate(c.QueryParam("date"))
	return t, err == nil
}

// Day handles GET /api/calendar/day?date=&assets=.
func (h *CalendarHandler) Day(c echo.Context) error {
	day, ok := parseDate(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ids := selectedAssets(c)
	avail := h.Source.FetchAll(c.Request().Context(), ids, availability.MonthStart(day))
	date := availability.FormatDate(day)
	return c.JSON(http.StatusOK, echo.Map{
		"date":   date,
		"assets": calendar.DayDetail(avail, catalog.Name, date),
	})
}

// parseHour reads ?hour=0..23.
func parseHour(s string) (int, bool) {
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h >= availability.HoursPerDay {
		return 0, false
	}
	return h, true
}

// Slot handles GET /api/calendar/slot?date=&hour=&assets=: the groups that
// can be booked at that hour.
func (h *CalendarHandler) Slot(c echo.Context) error {
	day, ok := parseDate(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	hour, ok := parseHour(c.QueryParam("hour"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hour must be between 0 and 23"})
	}
	groups := h.slotGroups(c.Request().Context(), selectedAssets(c), day, hour)
	return c.JSON(http.StatusOK, echo.Map{
		"date":   availability.FormatDate(day),
		"hour":   hour,
		"groups": groups,
	})
}

func (h *CalendarHandler) slotGroups(ctx context.Context, ids []string, day time.Time, hour int) []model.BookingGroup {
	avail := h.Source.FetchAll(ctx, ids, availability.MonthStart(day))
	return calendar.BookingGroups(avail, catalog.Name, availability.FormatDate(day), hour)
}
