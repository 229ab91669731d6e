package diff

import (
	"mercator-hq/custodian/pkg/audit/snapshot"
)

const (
	// EmptyMarker is displayed for an absent value.
	EmptyMarker = "(empty)"
	// NullMarker is displayed for an explicit null.
	NullMarker = "null"
)

// FormatValue renders a value for display. Objects and arrays are
// pretty-printed, scalars use their plain string form.
func FormatValue(v *snapshot.Value) string {
	if v == nil {
		return EmptyMarker
	}
	switch v.Kind() {
	case snapshot.KindNull:
		return NullMarker
	case snapshot.KindObject, snapshot.KindArray:
		return v.Pretty()
	}
	return v.Text()
}

// IsEmptyData reports whether a serialized snapshot carries no data: it is
// absent, or it parses to an object with no fields.
func IsEmptyData(raw []byte) bool {
	v := snapshot.Parse(raw)
	return v == nil || (v.IsObject() && v.Len() == 0)
}
