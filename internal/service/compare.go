package service

import (
	"fmt"
	"slices"

	"propertychat/internal/model"
)

// CompareSet is the user-curated selection shown side by side. Membership is
// keyed by property id. It is not safe for concurrent use; Session guards it.
type CompareSet struct {
	items []model.Property
	limit int
}

// NewCompareSet creates an empty set; limit <= 0 means unbounded
func NewCompareSet(limit int) *CompareSet {
	return &CompareSet{limit: limit}
}

// Limit returns the configured bound (0 when unbounded)
func (c *CompareSet) Limit() int {
	if c.limit < 0 {
		return 0
	}
	return c.limit
}

// Add appends p unless its id is already present
func (c *CompareSet) Add(p model.Property) error {
	if c.Contains(p.ID) {
		return nil
	}
	if c.limit > 0 && len(c.items) >= c.limit {
		return fmt.Errorf("%w: at most %d properties", ErrCompareFull, c.limit)
	}
	c.items = append(c.items, p)
	return nil
}

// Remove drops the property with id; absent ids are a no-op
func (c *CompareSet) Remove(id int64) {
	c.items = slices.DeleteFunc(c.items, func(p model.Property) bool { return p.ID == id })
}

// Contains reports membership
func (c *CompareSet) Contains(id int64) bool {
	return slices.ContainsFunc(c.items, func(p model.Property) bool { return p.ID == id })
}

// Len returns the number of selected properties
func (c *CompareSet) Len() int {
	return len(c.items)
}

// Items returns the selection in insertion order
func (c *CompareSet) Items() []model.Property {
	return slices.Clone(c.items)
}

// Aggregates returns the best value per column: lowest price, most bedrooms,
// most bathrooms, largest size. Everything is 0 for an empty set.
func (c *CompareSet) Aggregates() model.CompareAggregates {
	var agg model.CompareAggregates
	for i, p := range c.items {
		if i == 0 || p.Price < agg.BestPrice {
			agg.BestPrice = p.Price
		}
		agg.BestBedrooms = max(agg.BestBedrooms, p.Bedrooms)
		agg.BestBathrooms = max(agg.BestBathrooms, p.Bathrooms)
		agg.BestSize = max(agg.BestSize, p.SizeSqft)
	}
	return agg
}

// Rows flags, per property, the cells equal to their column's best value.
// Ties are all flagged; an empty set has no rows.
func (c *CompareSet) Rows() []model.CompareRow {
	agg := c.Aggregates()
	rows := make([]model.CompareRow, 0, len(c.items))
	for _, p := range c.items {
		rows = append(rows, model.CompareRow{
			Property:      p,
			BestPrice:     p.Price == agg.BestPrice,
			BestBedrooms:  p.Bedrooms == agg.BestBedrooms,
			BestBathrooms: p.Bathrooms == agg.BestBathrooms,
			BestSize:      p.SizeSqft == agg.BestSize,
		})
	}
	return rows
}

// Table bundles rows, aggregates and limit for presentation
func (c *CompareSet) Table() model.CompareResponse {
	return model.CompareResponse{
		Rows:       c.Rows(),
		Aggregates: c.Aggregates(),
		Limit:      c.Limit(),
	}
}
