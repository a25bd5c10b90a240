package utils

import (
	"strings"
)

// amenityAliases maps a search keyword to the spellings listings use for it.
// Checked in order; the first keyword contained in a term wins.
var amenityAliases = []struct {
	keyword   string
	spellings []string
}{
	{"pool", []string{"swimming pool", "pool"}},
	{"gym", []string{"gym", "gymnasium", "fitness"}},
	{"aircon", []string{"air conditioner", "air conditioning", "aircon", "a/c"}},
	{"air con", []string{"air conditioner", "air conditioning", "aircon", "a/c"}},
	{"washer", []string{"washer", "washing machine", "washer/dryer", "laundry"}},
	{"laundry", []string{"washer", "washing machine", "washer/dryer", "laundry"}},
	{"dryer", []string{"dryer", "washer/dryer"}},
	{"wardrobe", []string{"wardrobe", "built-in wardrobe", "closet"}},
	{"tennis", []string{"tennis", "tennis court"}},
	{"bbq", []string{"bbq", "barbecue", "bbq pit"}},
	{"parking", []string{"parking", "car park", "garage"}},
	{"garage", []string{"garage", "parking"}},
	{"security", []string{"security", "24-hour security", "concierge"}},
	{"playground", []string{"playground"}},
	{"balcony", []string{"balcony", "terrace"}},
	{"garden", []string{"garden", "yard", "backyard"}},
	{"fridge", []string{"fridge", "refrigerator"}},
	{"fireplace", []string{"fireplace"}},
}

// AmenityPatterns returns the lower-case substrings any of which satisfies
// the requested amenity. Unknown terms match themselves.
func AmenityPatterns(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	for _, alias := range amenityAliases {
		if strings.Contains(term, alias.keyword) {
			return alias.spellings
		}
	}
	return []string{term}
}

// MatchesAmenity reports whether a listed amenity satisfies a requested one
func MatchesAmenity(requested, listed string) bool {
	listed = strings.ToLower(strings.TrimSpace(listed))
	if listed == "" {
		return false
	}
	for _, pattern := range AmenityPatterns(requested) {
		if strings.Contains(listed, pattern) {
			return true
		}
	}
	return false
}

// MatchesAllAmenities reports whether every requested amenity is satisfied
// by at least one listed amenity
func MatchesAllAmenities(requested, listed []string) bool {
	for _, want := range requested {
		if strings.TrimSpace(want) == "" {
			continue
		}
		found := false
		for _, have := range listed {
			if MatchesAmenity(want, have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
