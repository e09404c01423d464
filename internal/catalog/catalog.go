// Package catalog holds the static table of bookable FabLab equipment.  The
// table is process-wide, read-only and built once at package init.
package catalog

import "github.com/faylib/equipment-calendar/internal/model"

// DefaultCategory is the category preselected when a visitor opens the
// calendar.
const DefaultCategory = "3D Printers"

var assets = []model.Asset{
	// 3D Printers
	{ID: "3581", Name: "3D Printer: Bambu Lab X1-C", Category: "3D Printers"},
	{ID: "3764", Name: "3D Printer: Bambu Lab A1 mini", Category: "3D Printers"},
	{ID: "3994", Name: "3D Printer: Bambu Lab H2D", Category: "3D Printers"},

	// 3D Scanners
	{ID: "3765", Name: "3D Scanner: Revopoint POP", Category: "3D Scanners"},
	{ID: "3931", Name: "3D Scanner: iPad Pro w/ LiDAR", Category: "3D Scanners"},

	// Laser & CNC
	{ID: "2797", Name: "Laser: Epilog Zing 24", Category: "Laser & CNC"},
	{ID: "2798", Name: "Laser: Glowforge Pro", Category: "Laser & CNC"},
	{ID: "3552", Name: "CNC: Nomad 3", Category: "Laser & CNC"},

	// Vinyl & Printing
	{ID: "2542", Name: "Cricut Vinyl Cutter", Category: "Vinyl & Printing"},
	{ID: "2803", Name: "Roland Vinyl Printer/Cutter", Category: "Vinyl & Printing"},
	{ID: "2540", Name: "Large Format Printer: Epson T5170", Category: "Vinyl & Printing"},
	{ID: "3574", Name: "Sublimation Printer: Epson F170", Category: "Vinyl & Printing"},

	// Textiles
	{ID: "3421", Name: "Embroidery Machine: Brother PE545", Category: "Textiles"},
	{ID: "3422", Name: "Sewing Machine: Singer Heavy Duty 6800C", Category: "Textiles"},
	{ID: "2871", Name: "Heat Press: A2Z Swing Away", Category: "Textiles"},

	// Other
	{ID: "2888", Name: "Vacuum Former: Mayku FormBox", Category: "Other"},
	{ID: "3578", Name: "Button Maker: 1.25", Category: "Other"},
}

var byID = func() map[string]model.Asset {
	m := make(map[string]model.Asset, len(assets))
	for _, a := range assets {
		m[a.ID] = a
	}
	return m
}()

// All returns a copy of the catalog in display order.
func All() []model.Asset {
	out := make([]model.Asset, len(assets))
	copy(out, assets)
	return out
}

// ByID looks up an asset group by its upstream id.
func ByID(id string) (model.Asset, bool) {
	a, ok := byID[id]
	return a, ok
}

// Name returns the display name of an asset, or the id itself when the
// asset is not in the catalog.
func Name(id string) string {
	if a, ok := byID[id]; ok {
		return a.Name
	}
	return id
}

// Categories groups the catalog by category in first-appearance order.
func Categories() []model.AssetCategory {
	var out []model.AssetCategory
	index := map[string]int{}
	for _, a := range assets {
		i, ok := index[a.Category]
		if !ok {
			i = len(out)
			index[a.Category] = i
			out = append(out, model.AssetCategory{Name: a.Category})
		}
		out[i].Assets = append(out[i].Assets, a)
	}
	return out
}

// InCategory returns the ids of every asset in a category.
func InCategory(category string) []string {
	var ids []string
	for _, a := range assets {
		if a.Category == category {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// DefaultSelection is the initial asset selection of the calendar.
func DefaultSelection() []string {
	return InCategory(DefaultCategory)
}

// Toggle adds id to the selection, or removes it when already selected.
// The input slice is not modified.
func Toggle(selected []string, id string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// ToggleCategory deselects every asset of the category when all of them are
// selected, and otherwise appends the ones that are missing.
func ToggleCategory(selected []string, category string) []string {
	members := InCategory(category)
	set := make(map[string]bool, len(selected))
	for _, s := range selected {
		set[s] = true
	}
	all := len(members) > 0
	for _, id := range members {
		if !set[id] {
			all = false
			break
		}
	}

	out := make([]string, 0, len(selected)+len(members))
	if all {
		drop := make(map[string]bool, len(members))
		for _, id := range members {
			drop[id] = true
		}
		for _, s := range selected {
			if !drop[s] {
				out = append(out, s)
			}
		}
		return out
	}
	out = append(out, selected...)
	for _, id := range members {
		if !set[id] {
			out = append(out, id)
		}
	}
	return out
}

// Known filters ids down to those present in the catalog, keeping order and
// dropping duplicates.
func Known(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
