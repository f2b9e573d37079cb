// Package equality decides equality of schema-typed values and rows.
//
// DeepEquals is the field-level algorithm. It dispatches on the declared
// schema.FieldType, never on the runtime value, and recurses into arrays and
// maps with their element and value types. Byte payloads compare by content.
//
// Row-level comparison is exposed through the RecordEquality interface with
// three independent strategies:
//
//	Deep       type-directed, content-aware, correct for raw []byte fields
//	Storage    each value's own equality; raw []byte compares by identity
//	Aggregate  the value slice as one aggregate; only top-level []byte by content
//
// Storage and Aggregate are cheaper shortcuts that are only correct when every
// value already has value semantics (for example byte fields stored as
// *row.ByteArray). They are kept as separate strategies rather than folded
// into Deep.
//
// Every function here is pure and safe for concurrent use.
package equality
