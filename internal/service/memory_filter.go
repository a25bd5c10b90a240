package service

import (
	"context"
	"slices"
	"strings"

	"propertychat/internal/model"
	"propertychat/internal/utils"
)

// MemoryFilter filters a fixed catalog in process. It serves as both
// Filterer and CatalogSource when no filtering backend is configured.
type MemoryFilter struct {
	catalog []model.Property
}

// NewMemoryFilter wraps catalog; the slice is copied
func NewMemoryFilter(catalog []model.Property) *MemoryFilter {
	return &MemoryFilter{catalog: slices.Clone(catalog)}
}

// Catalog implements CatalogSource
func (f *MemoryFilter) Catalog(ctx context.Context) ([]model.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(f.catalog), nil
}

// Filter implements Filterer. Ranges are inclusive, location is a
// case-insensitive substring match and every requested amenity must match
// one the listing has.
func (f *MemoryFilter) Filter(ctx context.Context, c model.Criteria) ([]model.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Property, 0, len(f.catalog))
	for _, p := range f.catalog {
		if Matches(p, c) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Matches reports whether p satisfies every set field of c
func Matches(p model.Property, c model.Criteria) bool {
	if loc, ok := c.Location.Get(); ok && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(loc)) {
		return false
	}
	if !inRange(p.Bedrooms, c.MinBedrooms, c.MaxBedrooms) ||
		!inRange(p.Bathrooms, c.MinBathrooms, c.MaxBathrooms) ||
		!inRange(p.Price, c.MinPrice, c.MaxPrice) ||
		!inRange(p.SizeSqft, c.MinSize, c.MaxSize) {
		return false
	}
	if amenities, ok := c.Amenities.Get(); ok && !utils.MatchesAllAmenities(amenities, p.Amenities) {
		return false
	}
	return true
}

func inRange[T int | float64](v T, lo, hi model.Field[T]) bool {
	if bound, ok := lo.Get(); ok && v < bound {
		return false
	}
	if bound, ok := hi.Get(); ok && v > bound {
		return false
	}
	return true
}
