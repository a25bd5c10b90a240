package model

import (
	"slices"
	"strings"
)

// Criteria is the cumulative filter state of a conversation.
// Every field is independently nullable; null means no constraint expressed yet.
type Criteria struct {
	Location     Field[string]   `json:"location,omitzero"`
	Amenities    Field[[]string] `json:"amenities,omitzero"`
	MinBedrooms  Field[int]      `json:"min_bedrooms,omitzero"`
	MaxBedrooms  Field[int]      `json:"max_bedrooms,omitzero"`
	MinBathrooms Field[int]      `json:"min_bathrooms,omitzero"`
	MaxBathrooms Field[int]      `json:"max_bathrooms,omitzero"`
	MinPrice     Field[float64]  `json:"min_price,omitzero"`
	MaxPrice     Field[float64]  `json:"max_price,omitzero"`
	MinSize      Field[float64]  `json:"min_size,omitzero"`
	MaxSize      Field[float64]  `json:"max_size,omitzero"`
}

// DefaultCriteria is the state of a fresh session: everything null and an
// empty amenity list.
func DefaultCriteria() Criteria {
	return Criteria{
		Location:     Null[string](),
		Amenities:    Set([]string{}),
		MinBedrooms:  Null[int](),
		MaxBedrooms:  Null[int](),
		MinBathrooms: Null[int](),
		MaxBathrooms: Null[int](),
		MinPrice:     Null[float64](),
		MaxPrice:     Null[float64](),
		MinSize:      Null[float64](),
		MaxSize:      Null[float64](),
	}
}

// Clone returns a copy that shares no slice storage with c
func (c Criteria) Clone() Criteria {
	out := c
	if amenities, ok := c.Amenities.Get(); ok {
		out.Amenities = Set(slices.Clone(amenities))
	}
	return out
}

// Normalize trims the location and turns amenities into an ordered set:
// blanks are dropped and duplicates (case-insensitive) keep their first spelling.
// A location that trims to nothing becomes null.
func (c *Criteria) Normalize() {
	if loc, ok := c.Location.Get(); ok {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			c.Location = Null[string]()
		} else {
			c.Location = Set(loc)
		}
	}

	if amenities, ok := c.Amenities.Get(); ok {
		seen := make(map[string]struct{}, len(amenities))
		set := make([]string, 0, len(amenities))
		for _, a := range amenities {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			key := strings.ToLower(a)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			set = append(set, a)
		}
		c.Amenities = Set(set)
	}
}

// IsEmpty reports whether no constraint is expressed. An empty amenity list
// is not a constraint.
func (c Criteria) IsEmpty() bool {
	if amenities, ok := c.Amenities.Get(); ok && len(amenities) > 0 {
		return false
	}
	return !c.Location.IsSet() &&
		!c.MinBedrooms.IsSet() && !c.MaxBedrooms.IsSet() &&
		!c.MinBathrooms.IsSet() && !c.MaxBathrooms.IsSet() &&
		!c.MinPrice.IsSet() && !c.MaxPrice.IsSet() &&
		!c.MinSize.IsSet() && !c.MaxSize.IsSet()
}
