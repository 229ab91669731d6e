// Package diff computes field-level differences between the before and
// after snapshots of an audit event for human review.
//
// The comparison is shallow: it walks the union of top-level field names
// (old snapshot order first, then fields only present in the new snapshot)
// and compares each pair by canonical serialization. Nested values are
// opaque. Only changed fields appear in the result.
//
//	res := diff.ComputeRaw(event.Before, event.After)
//	for _, c := range res.Changes() {
//	    fmt.Printf("%s %s: %s -> %s\n", c.Kind, c.Field,
//	        diff.FormatValue(c.OldValue), diff.FormatValue(c.NewValue))
//	}
//
// Snapshots that are not objects (scalars, arrays, or unparsable text) are
// compared whole under the field "$".
package diff
