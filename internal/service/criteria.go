package service

import (
	"slices"

	"propertychat/internal/model"
)

// MergeCriteria overlays partial onto current field by field. A field that is
// present in partial (null or value) replaces the current one outright; absent
// fields leave current untouched. No range validation happens here.
func MergeCriteria(current, partial model.Criteria) model.Criteria {
	merged := current.Clone()

	overlay(&merged.Location, partial.Location)
	overlay(&merged.MinBedrooms, partial.MinBedrooms)
	overlay(&merged.MaxBedrooms, partial.MaxBedrooms)
	overlay(&merged.MinBathrooms, partial.MinBathrooms)
	overlay(&merged.MaxBathrooms, partial.MaxBathrooms)
	overlay(&merged.MinPrice, partial.MinPrice)
	overlay(&merged.MaxPrice, partial.MaxPrice)
	overlay(&merged.MinSize, partial.MinSize)
	overlay(&merged.MaxSize, partial.MaxSize)

	if !partial.Amenities.IsAbsent() {
		merged.Amenities = partial.Amenities
		if amenities, ok := partial.Amenities.Get(); ok {
			merged.Amenities = model.Set(slices.Clone(amenities))
		}
	}

	return merged
}

func overlay[T any](dst *model.Field[T], src model.Field[T]) {
	if !src.IsAbsent() {
		*dst = src
	}
}
