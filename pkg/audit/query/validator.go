package query

import (
	"fmt"

	"mercator-hq/custodian/pkg/audit"
)

const (
	// DefaultLimit is the default number of events to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of events that can be returned in a single query.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"created_at":     true,
	"retention_date": true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate validates a query and returns an error if any parameters are invalid.
func Validate(q *audit.EventQuery) error {
	// Validate limit
	if q.Limit < 0 {
		return audit.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return audit.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	// Validate offset
	if q.Offset < 0 {
		return audit.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	// Validate sort field
	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}

	// Validate sort order
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	// Validate time range
	if q.CreatedFrom != nil && q.CreatedTo != nil {
		if q.CreatedFrom.After(*q.CreatedTo) {
			return audit.NewQueryError(q, fmt.Errorf("created_from must be before created_to"))
		}
	}

	// Validate statuses
	for _, s := range q.Statuses {
		if !s.Valid() {
			return audit.NewQueryError(q, fmt.Errorf("invalid status: %s", s))
		}
	}

	return nil
}

// ApplyDefaults applies default values to a query.
func ApplyDefaults(q *audit.EventQuery) {
	// Apply default limit
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	// Apply default sort field
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}

	// Apply default sort order
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
