package availability

import (
	"time"

	"github.com/faylib/equipment-calendar/internal/model"
)

const (
	// WeeksPerFetch covers a full month view from its first day.
	WeeksPerFetch = 5
	DaysPerWeek   = 7
	HoursPerDay   = 24
)

// WeekSlots walks the 7 x 24 grid of the first unit in a weekly response
// and emits one slot per cell.  Rows beyond seven days or columns beyond 24
// hours are ignored so that windows stay disjoint.  A response missing
// data, assets or the first asset yields no slots.
//
// AvailableAssetIDs lists, in response order, every unit whose own grid is
// open for the cell.  Units without an id stand in for the group itself.
func WeekSlots(groupID string, weekStart time.Time, week *model.WeekResponse) []model.AvailabilitySlot {
	if week == nil || week.Data == nil || len(week.Data.Assets) == 0 {
		return nil
	}
	units := week.Data.Assets
	grid := units[0].Availability

	var slots []model.AvailabilitySlot
	for day, hours := range grid {
		if day >= DaysPerWeek {
			break
		}
		date := FormatDate(AddDays(weekStart, day))
		for hour, open := range hours {
			if hour >= HoursPerDay {
				break
			}
			slots = append(slots, model.AvailabilitySlot{
				Date:              date,
				Hour:              hour,
				Available:         open,
				AvailableAssetIDs: openUnits(groupID, units, day, hour),
			})
		}
	}
	return slots
}

func openUnits(groupID string, units []model.WeekAsset, day, hour int) []string {
	ids := []string{}
	for _, u := range units {
		if day >= len(u.Availability) || hour >= len(u.Availability[day]) {
			continue
		}
		if !u.Availability[day][hour] {
			continue
		}
		id := string(u.ID)
		if id == "" {
			id = groupID
		}
		ids = append(ids, id)
	}
	return ids
}

// Aggregate folds the weekly responses of one group into its availability.
// weeks[i] belongs to the window starting start+7i days; nil entries are
// failed weeks and contribute nothing.
func Aggregate(groupID string, start time.Time, weeks []*model.WeekResponse) model.AssetAvailability {
	out := model.AssetAvailability{AssetID: groupID, Slots: []model.AvailabilitySlot{}}
	for i, week := range weeks {
		if week == nil {
			continue
		}
		out.Slots = append(out.Slots, WeekSlots(groupID, AddDays(start, i*DaysPerWeek), week)...)
	}
	return out
}

type slotKey struct {
	date string
	hour int
}

// Merge removes duplicate (date, hour) records.  The last record for a key
// wins and takes the position of the first one.
func Merge(slots []model.AvailabilitySlot) []model.AvailabilitySlot {
	pos := make(map[slotKey]int, len(slots))
	out := make([]model.AvailabilitySlot, 0, len(slots))
	for _, s := range slots {
		k := slotKey{s.Date, s.Hour}
		if i, ok := pos[k]; ok {
			out[i] = s
			continue
		}
		pos[k] = len(out)
		out = append(out, s)
	}
	return out
}

// SlotIndex answers (date, hour) lookups for one asset.
type SlotIndex map[slotKey]model.AvailabilitySlot

// NewSlotIndex indexes the slots of one asset, last write wins.
func NewSlotIndex(a model.AssetAvailability) SlotIndex {
	ix := make(SlotIndex, len(a.Slots))
	for _, s := range a.Slots {
		ix[slotKey{s.Date, s.Hour}] = s
	}
	return ix
}

// Lookup returns the slot recorded for (date, hour), if any.
func (ix SlotIndex) Lookup(date string, hour int) (model.AvailabilitySlot, bool) {
	s, ok := ix[slotKey{date, hour}]
	return s, ok
}
