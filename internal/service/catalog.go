package service

import (
	"cmp"
	"slices"

	"propertychat/internal/model"
)

// Present returns a sorted copy of catalog. Ties keep their input order and
// SortNone (or an unknown directive) keeps the catalog order as received.
func Present(catalog []model.Property, sort model.SortDirective) []model.Property {
	out := slices.Clone(catalog)
	if out == nil {
		out = []model.Property{}
	}

	var compare func(a, b model.Property) int
	switch sort {
	case model.SortPriceAsc:
		compare = func(a, b model.Property) int { return cmp.Compare(a.Price, b.Price) }
	case model.SortPriceDesc:
		compare = func(a, b model.Property) int { return cmp.Compare(b.Price, a.Price) }
	case model.SortSizeAsc:
		compare = func(a, b model.Property) int { return cmp.Compare(a.SizeSqft, b.SizeSqft) }
	case model.SortSizeDesc:
		compare = func(a, b model.Property) int { return cmp.Compare(b.SizeSqft, a.SizeSqft) }
	default:
		return out
	}

	slices.SortStableFunc(out, compare)
	return out
}
