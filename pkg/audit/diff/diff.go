package diff

import (
	"encoding/json"

	"mercator-hq/custodian/pkg/audit/snapshot"
)

// RootField is the field path used when a snapshot is not an object and is
// compared as a whole.
const RootField = "$"

// ChangeKind classifies a field-level difference.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// Change is a single field difference. Old is nil for Added, New is nil for
// Removed.
type Change struct {
	Field    string          `json:"field"`
	Kind     ChangeKind      `json:"kind"`
	OldValue *snapshot.Value `json:"old_value,omitempty"`
	NewValue *snapshot.Value `json:"new_value,omitempty"`
}

// Result holds the changed fields of a comparison in field-union order:
// the old snapshot's keys first, then keys only present in the new one.
type Result struct {
	changes []Change
	index   map[string]int
}

// Changes returns the changes in order.
func (r *Result) Changes() []Change { return r.changes }

// Len returns the number of changed fields.
func (r *Result) Len() int { return len(r.changes) }

// IsEmpty reports whether the snapshots were equal.
func (r *Result) IsEmpty() bool { return len(r.changes) == 0 }

// Get returns the change recorded for field.
func (r *Result) Get(field string) (Change, bool) {
	i, ok := r.index[field]
	if !ok {
		return Change{}, false
	}
	return r.changes[i], true
}

// Fields returns the changed field names in order.
func (r *Result) Fields() []string {
	fields := make([]string, len(r.changes))
	for i, c := range r.changes {
		fields[i] = c.Field
	}
	return fields
}

// MarshalJSON encodes the result as an ordered array of changes.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.changes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.changes)
}

func (r *Result) add(c Change) {
	r.index[c.Field] = len(r.changes)
	r.changes = append(r.changes, c)
}

// Compute compares two snapshots one level deep. Nested objects and arrays
// are compared as opaque values through their canonical serialization.
// Either side may be nil (absent). Compute never fails.
func Compute(oldSnap, newSnap *snapshot.Value) *Result {
	r := &Result{index: make(map[string]int)}

	if oldSnap == nil && newSnap == nil {
		return r
	}

	// Absent counts as an empty object so that a created or removed entity
	// lists every field.
	if isObjectOrAbsent(oldSnap) && isObjectOrAbsent(newSnap) {
		for _, field := range unionKeys(oldSnap, newSnap) {
			oldVal, inOld := oldSnap.Field(field)
			newVal, inNew := newSnap.Field(field)
			switch {
			case inOld && !inNew:
				r.add(Change{Field: field, Kind: Removed, OldValue: oldVal})
			case !inOld && inNew:
				r.add(Change{Field: field, Kind: Added, NewValue: newVal})
			case !snapshot.Equal(oldVal, newVal):
				r.add(Change{Field: field, Kind: Modified, OldValue: oldVal, NewValue: newVal})
			}
		}
		return r
	}

	switch {
	case oldSnap == nil:
		r.add(Change{Field: RootField, Kind: Added, NewValue: newSnap})
	case newSnap == nil:
		r.add(Change{Field: RootField, Kind: Removed, OldValue: oldSnap})
	case !snapshot.Equal(oldSnap, newSnap):
		r.add(Change{Field: RootField, Kind: Modified, OldValue: oldSnap, NewValue: newSnap})
	}
	return r
}

// ComputeRaw parses both serialized snapshots and compares them.
func ComputeRaw(oldRaw, newRaw []byte) *Result {
	return Compute(snapshot.Parse(oldRaw), snapshot.Parse(newRaw))
}

func isObjectOrAbsent(v *snapshot.Value) bool {
	return v == nil || v.IsObject()
}

func unionKeys(a, b *snapshot.Value) []string {
	keys := a.Keys()
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range b.Keys() {
		if !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	return keys
}
