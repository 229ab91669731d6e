package recorder

import (
	"encoding/json"
	"strings"

	"mercator-hq/custodian/pkg/audit/snapshot"
)

// RedactedValue replaces the value of a redacted snapshot field.
const RedactedValue = "[REDACTED]"

// Redactor masks sensitive top-level fields of object snapshots.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor creates a Redactor for the given field names. Matching is
// case-insensitive and exact.
func NewRedactor(keys []string) *Redactor {
	r := &Redactor{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.keys[k] = struct{}{}
		}
	}
	return r
}

// Redact returns raw with every configured field replaced by RedactedValue.
// Non-object snapshots and snapshots without sensitive fields are returned
// unchanged, byte for byte, so key order and number text survive.
func (r *Redactor) Redact(raw json.RawMessage) json.RawMessage {
	if len(r.keys) == 0 {
		return raw
	}

	v := snapshot.Parse(raw)
	if !v.IsObject() {
		return raw
	}

	changed := false
	members := make([]snapshot.Member, 0, v.Len())
	for _, key := range v.Keys() {
		val, _ := v.Field(key)
		if _, ok := r.keys[strings.ToLower(key)]; ok {
			val = snapshot.String(RedactedValue)
			changed = true
		}
		members = append(members, snapshot.Member{Key: key, Value: val})
	}

	if !changed {
		return raw
	}
	return json.RawMessage(snapshot.Object(members...).Canonical())
}

// TruncateString truncates a string to the specified maximum length.
// If the string is longer than maxLen, it is truncated and "..." is appended.
// Truncation never splits a multi-byte character.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return cutRunes(s, maxLen)
	}

	return cutRunes(s, maxLen-3) + "..."
}

// cutRunes returns the longest prefix of s that is at most n bytes and
// ends on a character boundary.
func cutRunes(s string, n int) string {
	end := 0
	for i := range s {
		if i > n {
			break
		}
		end = i
	}
	if len(s) <= n {
		return s
	}
	return s[:end]
}
