package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Property is a catalog entry. Immutable as received; identity is ID.
type Property struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Price     float64   `json:"price" db:"price"`
	Location  string    `json:"location" db:"location"`
	Bedrooms  int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms int       `json:"bathrooms" db:"bathrooms"`
	SizeSqft  float64   `json:"size_sqft" db:"size_sqft"`
	Amenities JSONArray `json:"amenities" db:"amenities"`
	ImageURL  string    `json:"image_url" db:"image_url"`
}

// JSONArray is a string list stored as a JSONB array
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = JSONArray{}
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported amenities column type %T", value)
	}
}
