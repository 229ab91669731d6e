// Package query validates audit event queries before they reach a store.
//
// # Query Validation
//
// The validator ensures query parameters are valid before execution:
//
//   - Limit >= 0 and <= MaxLimit
//   - Offset >= 0
//   - Sort field is created_at or retention_date
//   - Sort order is asc or desc
//   - Creation range is ordered (from <= to)
//   - Every lifecycle status filter is known
//
// # Basic Usage
//
//	q := &audit.EventQuery{Module: "billing", Limit: 50}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q)
//	events, err := store.QueryEvents(ctx, q)
//
// Internal callers such as the retention evaluator build unbounded queries
// (Limit 0) directly and skip ApplyDefaults.
package query
