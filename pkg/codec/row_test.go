package codec

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ssargent/rowcodec/pkg/equality"
	"github.com/ssargent/rowcodec/pkg/errs"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func benchSchema() *schema.Schema {
	return schema.NewBuilder().
		AddInt32Field("f0").
		AddDoubleField("f1").
		AddByteArrayField("f2").
		Build()
}

func wideSchema() *schema.Schema {
	return schema.NewBuilder().
		AddBooleanField("flag").
		AddInt32Field("i32").
		AddInt64Field("i64").
		AddDoubleField("dbl").
		AddStringField("str").
		AddByteArrayField("raw").
		AddArrayField("list", schema.Bytes()).
		AddMapField("attrs", schema.StringType(), schema.Array(schema.Int64Type())).
		Build()
}

func TestRowCoder_RoundTrip(t *testing.T) {
	s := wideSchema()
	c := NewRowCoder(s)

	testCases := []struct {
		name   string
		values []any
	}{
		{
			name: "all present",
			values: []any{
				true, int32(-7), int64(math.MinInt64), 3.25, "héllo", []byte{1, 2, 3},
				[]any{[]byte{4}, nil, row.NewByteArray([]byte{5, 6})},
				map[any]any{"a": []any{int64(1), int64(2)}, "b": nil, "": []any{}},
			},
		},
		{
			name:   "all null",
			values: []any{nil, nil, nil, nil, nil, nil, nil, nil},
		},
		{
			name:   "empty collections",
			values: []any{false, int32(0), int64(0), 0.0, "", []byte{}, []any{}, map[any]any{}},
		},
		{
			name:   "NaN and typed nils",
			values: []any{nil, int32(math.MaxInt32), nil, math.NaN(), nil, []byte(nil), []any(nil), map[any]any(nil)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := row.MustNew(s, tc.values...)

			encoded, err := Marshal[*row.Row](c, in)
			require.NoError(t, err)

			size, err := c.EncodedSize(in)
			require.NoError(t, err)
			assert.Equal(t, int64(len(encoded)), size)

			out, err := Unmarshal[*row.Row](c, encoded)
			require.NoError(t, err)
			assert.True(t, equality.Deep.Equal(in, out), "want %s, got %s", in, out)
		})
	}
}

func TestRowCoder_BytesDecodeAsByteArray(t *testing.T) {
	s := benchSchema()
	c := NewRowCoder(s)
	in := row.MustNew(s, int32(1), 2.0, []byte{0xab})

	encoded, err := Marshal[*row.Row](c, in)
	require.NoError(t, err)
	out, err := Unmarshal[*row.Row](c, encoded)
	require.NoError(t, err)

	ba, ok := out.Value(2).(*row.ByteArray)
	require.True(t, ok, "got %T", out.Value(2))
	assert.Equal(t, []byte{0xab}, ba.Bytes())

	again, err := Unmarshal[*row.Row](c, encoded)
	require.NoError(t, err)
	assert.True(t, equality.Storage.Equal(out, again), "decoded rows have value semantics")
}

func TestRowCoder_Layout(t *testing.T) {
	s := benchSchema()
	c := NewRowCoder(s)

	encoded, err := Marshal[*row.Row](c, row.MustNew(s, int32(300), nil, []byte{0xab}))
	require.NoError(t, err)

	want := []byte{
		0x03,       // field count
		0x01, 0x02, // bitmap: f1 null
		0xac, 0x02, // f0 = 300
		0x01, 0xab, // f2
	}
	if diff := cmp.Diff(want, encoded); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestRowCoder_MapOrderIsDeterministic(t *testing.T) {
	s := schema.NewBuilder().AddMapField("m", schema.Int32Type(), schema.StringType()).Build()
	c := NewRowCoder(s)

	m := map[any]any{}
	for i := int32(0); i < 64; i++ {
		m[i] = string(rune('a' + i%26))
	}
	first, err := Marshal[*row.Row](c, row.MustNew(s, m))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		copied := make(map[any]any, len(m))
		for k, v := range m {
			copied[k] = v
		}
		again, err := Marshal[*row.Row](c, row.MustNew(s, copied))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.NoError(t, c.VerifyDeterministic())
}

func TestRowCoder_EncodeErrors(t *testing.T) {
	s := benchSchema()
	c := NewRowCoder(s)

	testCases := []struct {
		name string
		row  *row.Row
	}{
		{"null row", nil},
		{"wrong scalar type", row.MustNew(s, int64(1), 2.0, []byte{})},
		{"bytes field holding string", row.MustNew(s, int32(1), 2.0, "x")},
		{"other schema", row.MustNew(wideSchema(), nil, nil, nil, nil, nil, nil, nil, nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := c.Encode(tc.row, &buf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrEncoding), "got %v", err)
			assert.Zero(t, buf.Len())

			_, err = c.EncodedSize(tc.row)
			assert.Error(t, err)
		})
	}
}

func TestRowCoder_NullMapKey(t *testing.T) {
	s := schema.NewBuilder().AddMapField("m", schema.StringType(), schema.Bytes()).Build()
	_, err := Marshal[*row.Row](NewRowCoder(s), row.MustNew(s, map[any]any{nil: []byte{1}}))
	assert.True(t, errors.Is(err, errs.ErrEncoding))
}

func TestRowCoder_NaNMapKey(t *testing.T) {
	s := schema.NewBuilder().AddMapField("m", schema.DoubleType(), schema.StringType()).Build()
	c := NewRowCoder(s)

	nanRow := row.MustNew(s, map[any]any{math.NaN(): "x"})
	_, err := Marshal[*row.Row](c, nanRow)
	assert.True(t, errors.Is(err, errs.ErrEncoding))
	_, err = c.EncodedSize(nanRow)
	assert.True(t, errors.Is(err, errs.ErrEncoding))

	data, err := Marshal[*row.Row](c, row.MustNew(s, map[any]any{1.0: "x"}))
	require.NoError(t, err)
	one := []byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}
	nan := []byte{0x7f, 0xf8, 0, 0, 0, 0, 0, 0}
	require.Equal(t, 1, bytes.Count(data, one))

	_, err = Unmarshal[*row.Row](c, bytes.Replace(data, one, nan, 1))
	assert.True(t, errors.Is(err, errs.ErrDecoding))
}

func TestRowCoder_DecodeErrors(t *testing.T) {
	c := NewRowCoder(benchSchema())

	testCases := []struct {
		name  string
		input []byte
	}{
		{"empty", []byte{}},
		{"wrong field count", []byte{0x02, 0x00}},
		{"bitmap too wide", []byte{0x03, 0x02, 0x01, 0x01}},
		{"bitmap trailing zero", []byte{0x03, 0x01, 0x00}},
		{"null bit beyond fields", []byte{0x03, 0x01, 0x08}},
		{"truncated int32", []byte{0x03, 0x00, 0x80}},
		{"truncated double", []byte{0x03, 0x00, 0x01, 0x40, 0x00}},
		{"negative bytes length", []byte{0x03, 0x01, 0x03, 0xff, 0xff, 0xff, 0xff, 0x0f}},
		{"truncated bytes", []byte{0x03, 0x01, 0x03, 0x04, 0xab}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(bytes.NewReader(tc.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrDecoding), "got %v", err)
		})
	}
}

func TestRowCoder_DecodeInvalidValues(t *testing.T) {
	s := schema.NewBuilder().
		AddBooleanField("b").
		AddArrayField("l", schema.StringType()).
		Build()
	c := NewRowCoder(s)

	testCases := []struct {
		name  string
		input []byte
	}{
		{"boolean out of range", []byte{0x02, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00}},
		{"negative count", []byte{0x02, 0x00, 0x01, 0xff, 0xff, 0xff, 0xff}},
		{"bad presence byte", []byte{0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x07}},
		{"invalid utf-8", []byte{0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0xff}},
		{"missing elements", []byte{0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(bytes.NewReader(tc.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrDecoding), "got %v", err)
		})
	}
}

func TestRowCoder_StreamOfRows(t *testing.T) {
	s := benchSchema()
	c := NewRowCoder(s)

	var buf bytes.Buffer
	var rows []*row.Row
	for i := 0; i < 50; i++ {
		r := row.MustNew(s, int32(i), float64(i)/2, bytes.Repeat([]byte{byte(i)}, i))
		rows = append(rows, r)
		require.NoError(t, c.Encode(r, &buf))
	}

	src := plainReader{r: &buf}
	for _, want := range rows {
		got, err := c.Decode(src)
		require.NoError(t, err)
		assert.True(t, equality.RowsEqual(want, got))
	}
	_, err := c.Decode(src)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRowCoder_SizeEstimation(t *testing.T) {
	assert.True(t, NewRowCoder(benchSchema()).IsSizeEstimationCheap(nil))
	assert.False(t, NewRowCoder(wideSchema()).IsSizeEstimationCheap(nil))
	assert.Contains(t, NewRowCoder(benchSchema()).String(), "f2:BYTES")
}
