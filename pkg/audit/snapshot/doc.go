// Package snapshot models the before/after data recorded with an audit
// event as a closed tagged union: null, bool, number, string, array and an
// ordered object.
//
// Objects keep the key order of the serialized input, so the canonical
// serialization of a snapshot is stable for a single writer. Two values are
// equal when their canonical serializations are byte-identical; objects with
// the same members in a different order are therefore not equal.
//
//	v := snapshot.ParseString(`{"name":"Widget","qty":3}`)
//	v.Keys()      // ["name", "qty"]
//	v.Canonical() // {"name":"Widget","qty":3}
//
// Parse never fails: malformed input becomes a string value holding the raw
// text, and blank input is absent (nil).
package snapshot
