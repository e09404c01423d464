package calendar

import (
	"github.com/faylib/equipment-calendar/internal/availability"
	"github.com/faylib/equipment-calendar/internal/model"
)

// NameFunc resolves an asset id to its display name.
type NameFunc func(id string) string

// AssetDay is one column of the day detail panel.
type AssetDay struct {
	AssetID   string                   `json:"assetId"`
	Name      string                   `json:"name"`
	Available bool                     `json:"available"`
	Slots     []model.AvailabilitySlot `json:"slots"`
}

// DayDetail lists, per asset, the slots of one date.  Assets without any
// record that day are left out.
func DayDetail(avail []model.AssetAvailability, name NameFunc, date string) []AssetDay {
	out := []AssetDay{}
	for _, a := range avail {
		var slots []model.AvailabilitySlot
		open := false
		for _, s := range a.Slots {
			if s.Date != date {
				continue
			}
			slots = append(slots, s)
			open = open || s.Available
		}
		if len(slots) == 0 {
			continue
		}
		out = append(out, AssetDay{
			AssetID:   a.AssetID,
			Name:      name(a.AssetID),
			Available: open,
			Slots:     slots,
		})
	}
	return out
}

// BookingGroups returns the groups that can be booked at (date, hour): one
// per asset whose slot is open and names at least one concrete unit.
func BookingGroups(avail []model.AssetAvailability, name NameFunc, date string, hour int) []model.BookingGroup {
	out := []model.BookingGroup{}
	for _, a := range avail {
		slot, ok := availability.NewSlotIndex(a).Lookup(date, hour)
		if !ok || !slot.Available || len(slot.AvailableAssetIDs) == 0 {
			continue
		}
		ids := make([]string, len(slot.AvailableAssetIDs))
		copy(ids, slot.AvailableAssetIDs)
		out = append(out, model.BookingGroup{
			GroupID:   a.AssetID,
			GroupName: name(a.AssetID),
			AssetIDs:  ids,
		})
	}
	return out
}
