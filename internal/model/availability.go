package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DateLayout is the calendar date format used for slots and week starts.
const DateLayout = "2006-01-02"

// AvailabilitySlot is one bookable hour for one asset group on one day.
//
// Fields:
//
//	Date             : calendar date, YYYY-MM-DD, venue local.
//	Hour             : hour of day, 0..23.
//	Available        : whether the group can be booked at this hour.
//	AvailableAssetIDs: physical unit ids that could fulfil the booking.
type AvailabilitySlot struct {
	Date              string   `json:"date"`
	Hour              int      `json:"hour"`
	Available         bool     `json:"available"`
	AvailableAssetIDs []string `json:"availableAssetIds"`
}

// AssetAvailability accumulates the slots of one queried asset group across
// all fetched weeks, in week then day then hour order.
type AssetAvailability struct {
	AssetID string             `json:"assetId"`
	Slots   []AvailabilitySlot `json:"slots"`
}

// WeekResponse is the upstream payload for one group and one 7-day window.
// Every level is optional; a missing level means "no data for the week".
type WeekResponse struct {
	Data *WeekData `json:"data"`
}

// WeekData wraps the units of an asset group.
type WeekData struct {
	Assets []WeekAsset `json:"assets"`
}

// WeekAsset is one physical unit of a group with its 7 x 24 grid.  Rows are
// days starting at the requested week start, columns are hours.
type WeekAsset struct {
	ID           FlexibleID `json:"id"`
	Name         string     `json:"name,omitempty"`
	Availability [][]bool   `json:"availability"`
}

// FlexibleID accepts ids encoded either as JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexibleID(n.String())
	return nil
}
