// Package schema provides the field type descriptors and schemas that drive
// row comparison and encoding.
//
// # Field Types
//
// A FieldType is a closed tagged union over four variants:
//
//	BYTES                 raw byte payload, compared by content
//	ARRAY<elem>           ordered list, compared pairwise with elem
//	MAP<key,value>        key/value mapping, compared per key with value
//	SCALAR                BOOLEAN, INT32, INT64, DOUBLE or STRING
//
// The tag is the single source of truth for dispatch: consumers switch on
// FieldType.Name and never infer a strategy from a runtime value.
//
// Field types can be written as strings and parsed with ParseFieldType:
//
//	int32
//	bytes
//	array<bytes>
//	map<string,array<int64>>
//
// # Schemas
//
// A Schema is an ordered list of named fields. Two schemas are equal when
// their field names and types match position by position; pointer identity is
// not required. Schemas are immutable and safe to share between goroutines.
package schema
