package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
	"github.com/ssargent/rowcodec/pkg/varint"
)

const (
	opRowEncode = "row.encode"
	opRowDecode = "row.decode"
)

// Presence markers for array elements and map values.
const (
	absent  byte = 0
	present byte = 1
)

// RowCoder encodes rows of a single schema.
//
// Format:
//
//	varint(fieldCount)
//	varint(len(bitmap)) bitmap       bit i set when field i is null, trailing zero bytes trimmed
//	value...                         one per non-null field, in schema order
//
// Values:
//
//	BOOLEAN  1 byte, 0 or 1
//	INT32    varint of the uint32 bit pattern
//	INT64    8 bytes big-endian
//	DOUBLE   8 bytes big-endian IEEE-754 bits
//	STRING   varint(len) UTF-8
//	BYTES    varint(len) bytes
//	ARRAY    int32 big-endian count, then (presence byte, value) per element
//	MAP      int32 big-endian count, then (key, presence byte, value) per entry,
//	         sorted by the encoded key bytes
//
// The encoding is deterministic: equal rows under equality.Deep produce
// identical bytes. BYTES fields decode as *row.ByteArray.
type RowCoder struct {
	schema *schema.Schema
}

var _ Coder[*row.Row] = (*RowCoder)(nil)

// NewRowCoder returns a coder for rows of s.
func NewRowCoder(s *schema.Schema) *RowCoder {
	return &RowCoder{schema: s}
}

// Schema returns the schema rows must conform to.
func (c *RowCoder) Schema() *schema.Schema {
	return c.schema
}

// Encode writes r to w in a single Write call.
func (c *RowCoder) Encode(r *row.Row, w io.Writer) error {
	buf, err := c.Append(nil, r)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return errs.Wrap(errs.KindEncoding, opRowEncode, "write failed", err)
	}
	return nil
}

// Append appends the encoding of r to buf.
func (c *RowCoder) Append(buf []byte, r *row.Row) ([]byte, error) {
	if r == nil {
		return nil, errs.Encoding(opRowEncode, "cannot encode a null row")
	}
	if !c.schema.Equal(r.Schema()) {
		return nil, errs.Encoding(opRowEncode, "row schema %s does not match coder schema %s", r.Schema(), c.schema)
	}

	n := c.schema.FieldCount()
	bitmap := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if isNull(r.Value(i)) {
			bitmap[i/8] |= 1 << (i % 8)
		}
	}
	bitmap = trimBitmap(bitmap)

	buf = varint.Append(buf, uint64(n))
	buf = appendBytes(buf, bitmap)

	var err error
	for i := 0; i < n; i++ {
		v := r.Value(i)
		if isNull(v) {
			continue
		}
		f := c.schema.Field(i)
		if buf, err = appendValue(buf, v, f.Type); err != nil {
			return nil, fieldError(err, f.Name)
		}
	}
	return buf, nil
}

// Decode reads one row from r.
func (c *RowCoder) Decode(r io.Reader) (*row.Row, error) {
	s := asStream(r)

	count, err := varint.ReadUint32(s)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecoding, opRowDecode, "invalid field count", err)
	}
	n := c.schema.FieldCount()
	if int64(count) != int64(n) {
		return nil, errs.Decoding(opRowDecode, "field count %d does not match schema field count %d", count, n)
	}

	bitmap, err := readBytes(s, opRowDecode)
	if err != nil {
		return nil, err
	}
	if len(bitmap) > (n+7)/8 {
		return nil, errs.Decoding(opRowDecode, "null bitmap of %d bytes is too wide for %d fields", len(bitmap), n)
	}
	if len(bitmap) > 0 && bitmap[len(bitmap)-1] == 0 {
		return nil, errs.Decoding(opRowDecode, "null bitmap has trailing zero bytes")
	}
	for i := n; i < len(bitmap)*8; i++ {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			return nil, errs.Decoding(opRowDecode, "null bit %d set beyond field count %d", i, n)
		}
	}

	values := make([]any, n)
	for i := 0; i < n; i++ {
		if i/8 < len(bitmap) && bitmap[i/8]&(1<<(i%8)) != 0 {
			continue
		}
		f := c.schema.Field(i)
		if values[i], err = readValue(s, f.Type); err != nil {
			return nil, fieldError(err, f.Name)
		}
	}
	return row.New(c.schema, values...)
}

// EncodedSize returns the number of bytes Encode writes for r, without
// encoding it.
func (c *RowCoder) EncodedSize(r *row.Row) (int64, error) {
	if r == nil {
		return 0, errs.Encoding(opRowEncode, "cannot size a null row")
	}
	if !c.schema.Equal(r.Schema()) {
		return 0, errs.Encoding(opRowEncode, "row schema %s does not match coder schema %s", r.Schema(), c.schema)
	}

	n := c.schema.FieldCount()
	lastNull := -1
	var size int64
	for i := 0; i < n; i++ {
		v := r.Value(i)
		if isNull(v) {
			lastNull = i
			continue
		}
		f := c.schema.Field(i)
		fs, err := valueSize(v, f.Type)
		if err != nil {
			return 0, fieldError(err, f.Name)
		}
		size += fs
	}
	bitmapLen := 0
	if lastNull >= 0 {
		bitmapLen = lastNull/8 + 1
	}
	return int64(varint.Len(uint64(n))) + bytesSize(bitmapLen) + size, nil
}

// IsSizeEstimationCheap reports whether EncodedSize avoids walking nested
// values, which is the case only for schemas without arrays or maps.
func (c *RowCoder) IsSizeEstimationCheap(*row.Row) bool {
	for _, f := range c.schema.Fields() {
		switch f.Type.Name() {
		case schema.TypeArray, schema.TypeMap:
			return false
		}
	}
	return true
}

// VerifyDeterministic never fails: map entries are written in encoded key
// order and floating point values by their bit pattern.
func (c *RowCoder) VerifyDeterministic() error {
	return nil
}

func (c *RowCoder) String() string {
	return fmt.Sprintf("RowCoder(%s)", c.schema)
}

func appendValue(buf []byte, v any, ft schema.FieldType) ([]byte, error) {
	switch ft.Name() {
	case schema.TypeBytes:
		b, err := bytesOf(v)
		if err != nil {
			return nil, err
		}
		if int64(len(b)) > math.MaxInt32 {
			return nil, errs.Encoding(opRowEncode, "payload of %d bytes exceeds the maximum length", len(b))
		}
		return appendBytes(buf, b), nil
	case schema.TypeArray:
		list, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, ft)
		}
		elem := ft.ElementType()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(list)))
		var err error
		for i, e := range list {
			if buf, err = appendPresent(buf, e, elem); err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return buf, nil
	case schema.TypeMap:
		m, ok := v.(map[any]any)
		if !ok {
			return nil, mismatch(v, ft)
		}
		return appendMap(buf, m, ft)
	case schema.TypeScalar:
		return appendScalar(buf, v, ft)
	default:
		return nil, errs.Invariant(opRowEncode, "unknown field type %s", ft)
	}
}

func appendPresent(buf []byte, v any, ft schema.FieldType) ([]byte, error) {
	if isNull(v) {
		return append(buf, absent), nil
	}
	return appendValue(append(buf, present), v, ft)
}

type mapEntry struct {
	key   []byte
	value any
}

func appendMap(buf []byte, m map[any]any, ft schema.FieldType) ([]byte, error) {
	keyType, valueType := ft.MapKeyType(), ft.MapValueType()
	entries := make([]mapEntry, 0, len(m))
	for k, v := range m {
		if k == nil {
			return nil, errs.Encoding(opRowEncode, "map keys must not be null")
		}
		if isNaN(k) {
			return nil, errs.Encoding(opRowEncode, "NaN map keys are not supported")
		}
		kb, err := appendScalar(nil, k, keyType)
		if err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		entries = append(entries, mapEntry{key: kb, value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))
	var err error
	for _, e := range entries {
		buf = append(buf, e.key...)
		if buf, err = appendPresent(buf, e.value, valueType); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendScalar(buf []byte, v any, ft schema.FieldType) ([]byte, error) {
	switch ft.ScalarKind() {
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(v, ft)
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case schema.Int32:
		i, ok := v.(int32)
		if !ok {
			return nil, mismatch(v, ft)
		}
		return varint.Append(buf, uint64(uint32(i))), nil
	case schema.Int64:
		i, ok := v.(int64)
		if !ok {
			return nil, mismatch(v, ft)
		}
		return binary.BigEndian.AppendUint64(buf, uint64(i)), nil
	case schema.Double:
		f, ok := v.(float64)
		if !ok {
			return nil, mismatch(v, ft)
		}
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(f)), nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(v, ft)
		}
		return appendBytes(buf, []byte(s)), nil
	default:
		return nil, errs.Invariant(opRowEncode, "unknown scalar kind %s", ft.ScalarKind())
	}
}

func valueSize(v any, ft schema.FieldType) (int64, error) {
	switch ft.Name() {
	case schema.TypeBytes:
		b, err := bytesOf(v)
		if err != nil {
			return 0, err
		}
		return bytesSize(len(b)), nil
	case schema.TypeArray:
		list, ok := v.([]any)
		if !ok {
			return 0, mismatch(v, ft)
		}
		size := int64(4 + len(list))
		for _, e := range list {
			if isNull(e) {
				continue
			}
			es, err := valueSize(e, ft.ElementType())
			if err != nil {
				return 0, err
			}
			size += es
		}
		return size, nil
	case schema.TypeMap:
		m, ok := v.(map[any]any)
		if !ok {
			return 0, mismatch(v, ft)
		}
		size := int64(4 + len(m))
		for k, e := range m {
			if k == nil {
				return 0, errs.Encoding(opRowEncode, "map keys must not be null")
			}
			if isNaN(k) {
				return 0, errs.Encoding(opRowEncode, "NaN map keys are not supported")
			}
			ks, err := valueSize(k, ft.MapKeyType())
			if err != nil {
				return 0, err
			}
			size += ks
			if isNull(e) {
				continue
			}
			es, err := valueSize(e, ft.MapValueType())
			if err != nil {
				return 0, err
			}
			size += es
		}
		return size, nil
	case schema.TypeScalar:
		switch ft.ScalarKind() {
		case schema.Boolean:
			if _, ok := v.(bool); !ok {
				return 0, mismatch(v, ft)
			}
			return 1, nil
		case schema.Int32:
			i, ok := v.(int32)
			if !ok {
				return 0, mismatch(v, ft)
			}
			return int64(varint.Len(uint64(uint32(i)))), nil
		case schema.Int64, schema.Double:
			b, err := appendScalar(nil, v, ft)
			return int64(len(b)), err
		case schema.String:
			s, ok := v.(string)
			if !ok {
				return 0, mismatch(v, ft)
			}
			return bytesSize(len(s)), nil
		}
	}
	return 0, errs.Invariant(opRowEncode, "unknown field type %s", ft)
}

func readValue(s stream, ft schema.FieldType) (any, error) {
	switch ft.Name() {
	case schema.TypeBytes:
		b, err := readBytes(s, opRowDecode)
		if err != nil {
			return nil, err
		}
		return row.WrapByteArray(b), nil
	case schema.TypeArray:
		n, err := readCount(s)
		if err != nil {
			return nil, err
		}
		list := make([]any, 0, min(n, readChunk))
		for i := 0; i < n; i++ {
			e, err := readPresent(s, ft.ElementType())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list = append(list, e)
		}
		return list, nil
	case schema.TypeMap:
		n, err := readCount(s)
		if err != nil {
			return nil, err
		}
		m := make(map[any]any, min(n, readChunk))
		for i := 0; i < n; i++ {
			k, err := readScalar(s, ft.MapKeyType())
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			if isNaN(k) {
				return nil, errs.Decoding(opRowDecode, "NaN map key")
			}
			if _, dup := m[k]; dup {
				return nil, errs.Decoding(opRowDecode, "duplicate map key %v", k)
			}
			if m[k], err = readPresent(s, ft.MapValueType()); err != nil {
				return nil, fmt.Errorf("[%v]: %w", k, err)
			}
		}
		return m, nil
	case schema.TypeScalar:
		return readScalar(s, ft)
	default:
		return nil, errs.Invariant(opRowDecode, "unknown field type %s", ft)
	}
}

func readPresent(s stream, ft schema.FieldType) (any, error) {
	b, err := s.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	switch b {
	case absent:
		return nil, nil
	case present:
		return readValue(s, ft)
	default:
		return nil, errs.Decoding(opRowDecode, "invalid presence byte %#x", b)
	}
}

func readCount(s stream) (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, truncated(err)
	}
	n := int32(binary.BigEndian.Uint32(b[:]))
	if n < 0 {
		return 0, errs.Decoding(opRowDecode, "negative element count %d", n)
	}
	return int(n), nil
}

func readScalar(s stream, ft schema.FieldType) (any, error) {
	switch ft.ScalarKind() {
	case schema.Boolean:
		b, err := s.ReadByte()
		if err != nil {
			return nil, truncated(err)
		}
		if b > 1 {
			return nil, errs.Decoding(opRowDecode, "invalid boolean byte %#x", b)
		}
		return b == 1, nil
	case schema.Int32:
		i, err := varint.ReadInt32(s)
		if err != nil {
			return nil, errs.Wrap(errs.KindDecoding, opRowDecode, "invalid int32", unexpected(err))
		}
		return i, nil
	case schema.Int64, schema.Double:
		var b [8]byte
		if _, err := io.ReadFull(s, b[:]); err != nil {
			return nil, truncated(err)
		}
		u := binary.BigEndian.Uint64(b[:])
		if ft.ScalarKind() == schema.Double {
			return math.Float64frombits(u), nil
		}
		return int64(u), nil
	case schema.String:
		b, err := readBytes(s, opRowDecode)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, errs.Decoding(opRowDecode, "string is not valid UTF-8")
		}
		return string(b), nil
	default:
		return nil, errs.Invariant(opRowDecode, "unknown scalar kind %s", ft.ScalarKind())
	}
}

// isNaN reports whether v is a NaN double. NaN never matches itself as a Go
// map key, so maps holding one cannot be looked up or compared.
func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// isNull reports whether v is null, including typed nils of the runtime
// representations.
func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []byte:
		return x == nil
	case *row.ByteArray:
		return x == nil
	case []any:
		return x == nil
	case map[any]any:
		return x == nil
	default:
		return false
	}
}

func bytesOf(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case *row.ByteArray:
		return x.View(), nil
	default:
		return nil, errs.Encoding(opRowEncode, "value declared BYTES holds %T", v)
	}
}

func trimBitmap(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

func mismatch(v any, ft schema.FieldType) error {
	return errs.Encoding(opRowEncode, "value declared %s holds %T", ft, v)
}

func truncated(err error) error {
	return errs.Wrap(errs.KindDecoding, opRowDecode, "truncated value", unexpected(err))
}

// fieldError prefixes err with the field name while keeping it matchable with
// errors.Is.
func fieldError(err error, name string) error {
	return fmt.Errorf("field %q: %w", name, err)
}
