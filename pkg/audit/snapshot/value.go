package snapshot

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Member is one key/value pair of an object Value.
type Member struct {
	Key   string
	Value *Value
}

// Value is a dynamically shaped snapshot value. Objects keep the order in
// which their keys were first seen. A nil *Value means "absent", which is
// distinct from an explicit JSON null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // number literal or string contents
	items   []*Value
	members []Member
}

// Null returns an explicit null value.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) *Value { return &Value{kind: KindBool, boolean: b} }

// Number returns a number value from its literal text.
func Number(literal string) *Value { return &Value{kind: KindNumber, text: literal} }

// Float returns a number value.
func Float(f float64) *Value { return &Value{kind: KindNumber, text: formatFloat(f)} }

// String returns a string value.
func String(s string) *Value { return &Value{kind: KindString, text: s} }

// Array returns an array value.
func Array(items ...*Value) *Value { return &Value{kind: KindArray, items: items} }

// Object returns an object value. A repeated key replaces the earlier value
// but keeps its original position.
func Object(members ...Member) *Value {
	v := &Value{kind: KindObject}
	for _, m := range members {
		v.set(m.Key, m.Value)
	}
	return v
}

func (v *Value) set(key string, val *Value) {
	for i := range v.members {
		if v.members[i].Key == key {
			v.members[i].Value = val
			return
		}
	}
	v.members = append(v.members, Member{Key: key, Value: val})
}

// Kind returns the variant of v.
func (v *Value) Kind() Kind { return v.kind }

// IsObject reports whether v is a non-nil object.
func (v *Value) IsObject() bool { return v != nil && v.kind == KindObject }

// Keys returns object keys in insertion order. Nil for non-objects.
func (v *Value) Keys() []string {
	if !v.IsObject() {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Field looks up an object member.
func (v *Value) Field(key string) (*Value, bool) {
	if !v.IsObject() {
		return nil, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of members or items; 0 for scalars.
func (v *Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	}
	return 0
}

// Items returns the items of an array value.
func (v *Value) Items() []*Value {
	if v.kind != KindArray {
		return nil
	}
	return v.items
}

// Text returns the scalar string form: the contents of a string, the
// canonical literal of a number, "true"/"false" or "null". Structured values
// return their canonical serialization.
func (v *Value) Text() string {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		return canonicalNumber(v.text)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindNull:
		return "null"
	}
	return v.Canonical()
}

// Equal reports whether the canonical serializations of a and b are
// identical. Two absent values are equal; absent never equals present.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Canonical() == b.Canonical()
}

// Canonical returns the compact JSON serialization of v. Object keys keep
// insertion order and numbers are normalized.
func (v *Value) Canonical() string {
	var buf bytes.Buffer
	v.write(&buf, "", 0)
	return buf.String()
}

// Pretty returns the JSON serialization of v indented with two spaces.
func (v *Value) Pretty() string {
	var buf bytes.Buffer
	v.write(&buf, "  ", 0)
	return buf.String()
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (v *Value) MarshalJSON() ([]byte, error) {
	return []byte(v.Canonical()), nil
}

func (v *Value) write(buf *bytes.Buffer, indent string, depth int) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		buf.WriteString(canonicalNumber(v.text))
	case KindString:
		writeString(buf, v.text)
	case KindArray:
		if len(v.items) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			item.write(buf, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte(']')
	case KindObject:
		if len(v.members) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(buf, indent, depth+1)
			writeString(buf, m.Key)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			m.Value.write(buf, indent, depth+1)
		}
		newline(buf, indent, depth)
		buf.WriteByte('}')
	}
}

func newline(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}

// canonicalNumber normalizes a JSON number literal so that 1.0, 1 and 1e0
// serialize identically.
func canonicalNumber(literal string) string {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return literal
	}
	return formatFloat(f)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
