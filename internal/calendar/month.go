// Package calendar reduces aggregated availability into the month grid,
// the per-day detail panel and the groups offered for booking at one hour.
package calendar

import (
	"time"

	"github.com/faylib/equipment-calendar/internal/availability"
	"github.com/faylib/equipment-calendar/internal/model"
)

// Status classifies a calendar day for colouring.
type Status string

const (
	StatusNone Status = "none" // no slot records at all
	StatusFull Status = "full" // records exist, none available
	StatusLow  Status = "low"  // fewer than 10% of slots available
	StatusGood Status = "good"
)

// lowThreshold is the share of available slots under which a day is "low".
const lowThreshold = 0.1

// DaySummary is the content of one calendar cell.
type DaySummary struct {
	Date                   string `json:"date"`
	Day                    int    `json:"day"`
	TotalSlots             int    `json:"totalSlots"`
	AvailableSlots         int    `json:"availableSlots"`
	AssetsWithAvailability int    `json:"assetsWithAvailability"`
	TotalAssets            int    `json:"totalAssets"`
	Status                 Status `json:"status"`
}

// MonthView is the calendar grid for one month.
type MonthView struct {
	Year                int          `json:"year"`
	Month               int          `json:"month"`
	Title               string       `json:"title"`
	LeadingBlankDays    int          `json:"leadingBlankDays"`
	RequireAllAvailable bool         `json:"requireAllAvailable"`
	Days                []DaySummary `json:"days"`
}

// Classify maps slot counts to a status.  The low boundary is strict:
// available < total*0.1.
func Classify(totalSlots, availableSlots int) Status {
	switch {
	case totalSlots == 0:
		return StatusNone
	case availableSlots == 0:
		return StatusFull
	case float64(availableSlots) < float64(totalSlots)*lowThreshold:
		return StatusLow
	default:
		return StatusGood
	}
}

// SummarizeDay computes the cell statistics of one date.
//
// With requireAll unset every slot record counts on its own.  With it set
// (and at least one asset selected) an hour counts only when every asset has
// an open record for it; a missing record is not availability.  In that
// mode TotalSlots is always 24 and AssetsWithAvailability is either 0 or
// TotalAssets.
func SummarizeDay(avail []model.AssetAvailability, date string, requireAll bool) DaySummary {
	if requireAll && len(avail) > 0 {
		indexes := make([]availability.SlotIndex, len(avail))
		for i, a := range avail {
			indexes[i] = availability.NewSlotIndex(a)
		}
		return summarizeSameTime(indexes, date)
	}
	return summarizeIndependent(avail, date)
}

func summarizeIndependent(avail []model.AssetAvailability, date string) DaySummary {
	s := DaySummary{Date: date, TotalAssets: len(avail)}
	for _, a := range avail {
		open := false
		for _, slot := range a.Slots {
			if slot.Date != date {
				continue
			}
			s.TotalSlots++
			if slot.Available {
				s.AvailableSlots++
				open = true
			}
		}
		if open {
			s.AssetsWithAvailability++
		}
	}
	s.Status = Classify(s.TotalSlots, s.AvailableSlots)
	return s
}

func summarizeSameTime(indexes []availability.SlotIndex, date string) DaySummary {
	s := DaySummary{Date: date, TotalAssets: len(indexes), TotalSlots: availability.HoursPerDay}
	for hour := 0; hour < availability.HoursPerDay; hour++ {
		all := true
		for _, ix := range indexes {
			slot, ok := ix.Lookup(date, hour)
			if !ok || !slot.Available {
				all = false
				break
			}
		}
		if all {
			s.AvailableSlots++
		}
	}
	if s.AvailableSlots > 0 {
		s.AssetsWithAvailability = s.TotalAssets
	}
	s.Status = Classify(s.TotalSlots, s.AvailableSlots)
	return s
}

// MonthDays lists every date of a month.
func MonthDays(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for d := first; d.Month() == month; d = availability.AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// SummarizeMonth builds the full month grid.  LeadingBlankDays is the
// weekday of the first of the month with Sunday as 0.
func SummarizeMonth(avail []model.AssetAvailability, year int, month time.Month, requireAll bool) MonthView {
	days := MonthDays(year, month)
	v := MonthView{
		Year:                year,
		Month:               int(month),
		Title:               days[0].Format("January 2006"),
		LeadingBlankDays:    int(days[0].Weekday()),
		RequireAllAvailable: requireAll,
		Days:                make([]DaySummary, 0, len(days)),
	}

	var indexes []availability.SlotIndex
	sameTime := requireAll && len(avail) > 0
	if sameTime {
		indexes = make([]availability.SlotIndex, len(avail))
		for i, a := range avail {
			indexes[i] = availability.NewSlotIndex(a)
		}
	}
	for _, d := range days {
		date := availability.FormatDate(d)
		var s DaySummary
		if sameTime {
			s = summarizeSameTime(indexes, date)
		} else {
			s = summarizeIndependent(avail, date)
		}
		s.Day = d.Day()
		v.Days = append(v.Days, s)
	}
	return v
}
