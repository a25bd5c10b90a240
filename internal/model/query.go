package model

import "fmt"

// SortDirective selects how the presented catalog is ordered
type SortDirective string

const (
	SortNone      SortDirective = ""
	SortPriceAsc  SortDirective = "price-asc"
	SortPriceDesc SortDirective = "price-desc"
	SortSizeAsc   SortDirective = "size-asc"
	SortSizeDesc  SortDirective = "size-desc"
)

// ParseSortDirective accepts the empty string, "none" or one of the known directives
func ParseSortDirective(s string) (SortDirective, error) {
	switch d := SortDirective(s); d {
	case SortNone, SortPriceAsc, SortPriceDesc, SortSizeAsc, SortSizeDesc:
		return d, nil
	case "none":
		return SortNone, nil
	default:
		return SortNone, fmt.Errorf("unknown sort directive %q", s)
	}
}

// TurnState is the position of a session in its turn state machine
type TurnState string

const (
	TurnIdle                   TurnState = "idle"
	TurnAwaitingInterpretation TurnState = "awaiting_interpretation"
	TurnAwaitingFilter         TurnState = "awaiting_filter"
)

// Interpretation is the interpreter's answer to one utterance: a display
// message plus a criteria partial.
type Interpretation struct {
	Message string `json:"message"`
	Criteria
}

// CreateSessionRequest starts a session; UserID is empty for anonymous use
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

// SessionResponse describes a session's current state
type SessionResponse struct {
	SessionID  string        `json:"session_id"`
	UserID     string        `json:"user_id,omitempty"`
	State      TurnState     `json:"state"`
	Typing     bool          `json:"typing"`
	Criteria   Criteria      `json:"criteria"`
	Transcript Transcript    `json:"transcript"`
	Properties []Property    `json:"properties"`
	Sort       SortDirective `json:"sort"`
	Warning    string        `json:"warning,omitempty"`
}

// SortRequest changes a session's presentation order. An empty sort
// restores the filter order.
type SortRequest struct {
	Sort string `json:"sort"`
}

// TurnRequest carries one user utterance
type TurnRequest struct {
	Utterance string `json:"utterance"`
}

// TurnResponse is the outcome of a successful turn
type TurnResponse struct {
	Message    string     `json:"message"`
	Criteria   Criteria   `json:"criteria"`
	Properties []Property `json:"properties"`
	Took       int64      `json:"took_ms"` // Response time in milliseconds
}

// PropertiesResponse is the presented (sorted) catalog
type PropertiesResponse struct {
	Properties []Property    `json:"properties"`
	Sort       SortDirective `json:"sort"`
	Total      int           `json:"total"`
}

// CompareRequest adds a property to the comparison set
type CompareRequest struct {
	PropertyID int64 `json:"property_id" binding:"required"`
}

// CompareAggregates are the per-column best values of a comparison set
type CompareAggregates struct {
	BestPrice     float64 `json:"best_price"`
	BestBedrooms  int     `json:"best_bedrooms"`
	BestBathrooms int     `json:"best_bathrooms"`
	BestSize      float64 `json:"best_size"`
}

// CompareRow is one property with its best-value flags
type CompareRow struct {
	Property      Property `json:"property"`
	BestPrice     bool     `json:"best_price"`
	BestBedrooms  bool     `json:"best_bedrooms"`
	BestBathrooms bool     `json:"best_bathrooms"`
	BestSize      bool     `json:"best_size"`
}

// CompareResponse is the comparison table
type CompareResponse struct {
	Rows       []CompareRow      `json:"rows"`
	Aggregates CompareAggregates `json:"aggregates"`
	Limit      int               `json:"limit"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
