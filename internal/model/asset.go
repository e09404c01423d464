package model

// Asset is one bookable equipment group as the upstream API knows it.  The
// ID is the Communico asset group id; a group may contain several physical
// units, each with its own id.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// AssetCategory groups catalog assets for the equipment filter.
type AssetCategory struct {
	Name   string  `json:"name"`
	Assets []Asset `json:"assets"`
}
