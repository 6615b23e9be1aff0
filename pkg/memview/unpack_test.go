package memview

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func littleEndianHost() bool {
	return binary.NativeEndian.Uint16([]byte{1, 0}) == 1
}

func TestAs_Int32(t *testing.T) {
	t.Parallel()

	if !littleEndianHost() {
		t.Skip("expected value assumes a little-endian host")
	}

	v, _ := newTestView(t, 1, 2, 3, 4)

	n, err := As[int32](v)
	require.NoError(t, err)
	assert.Equal(t, int32(67305985), n)

	u, err := As[uint8](v)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u)
}

func TestAs_TooShort(t *testing.T) {
	t.Parallel()

	v, src := newTestView(t, 1, 2, 3, 4)

	_, err := As[int64](v)
	require.ErrorIs(t, err, ErrOutOfRange)

	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, int64(8), rangeErr.End)
	assert.Equal(t, int64(4), rangeErr.Size)

	assert.Equal(t, 0, src.resolves)
}

func TestAs_Unsupported(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4, 5, 6, 7, 8)

	_, err := As[int](v)

	var typeErr *UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)

	_, err = As[string](v)
	require.ErrorAs(t, err, &typeErr)
}

func TestAs_Struct(t *testing.T) {
	t.Parallel()

	if !littleEndianHost() {
		t.Skip("expected value assumes a little-endian host")
	}

	type record struct {
		Kind  uint8
		Flags uint8
		Len   uint16
	}

	v, _ := newTestView(t, 7, 1, 0x10, 0x00, 0xff)

	r, err := As[record](v)
	require.NoError(t, err)
	assert.Equal(t, record{Kind: 7, Flags: 1, Len: 16}, r)
}

func TestAsSlice_Int8(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4)

	seq, err := AsSlice[int8](v)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, 2, 3, 4}, seq)
}

func TestAsSlice_Int32(t *testing.T) {
	t.Parallel()

	values := []int32{0, 1, 2, 3}
	data, err := binary.Append(nil, binary.NativeEndian, values)
	require.NoError(t, err)

	v, _ := newTestView(t, data...)

	seq, err := AsSlice[int32](v)
	require.NoError(t, err)
	assert.Equal(t, values, seq)
}

func TestAsSlice_SizeMismatch(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4, 5, 6)

	_, err := AsSlice[int32](v)
	require.ErrorIs(t, err, ErrSizeMismatch)
	assert.NotErrorIs(t, err, ErrOutOfRange)

	var mismatch *SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(6), mismatch.Size)
	assert.Equal(t, int64(4), mismatch.ElemSize)
}

func TestAsSlice_Empty(t *testing.T) {
	t.Parallel()

	v, src := newTestView(t)

	seq, err := AsSlice[uint64](v)
	require.NoError(t, err)
	assert.Empty(t, seq)
	assert.Equal(t, 0, src.resolves)
}

func TestUnpack_FieldOrder(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4)

	a, b, c, d, err := Unpack4[int8, int8, int8, int8](v)
	require.NoError(t, err)
	assert.Equal(t, []int8{1, 2, 3, 4}, []int8{a, b, c, d})
}

func TestUnpack_Mixed(t *testing.T) {
	t.Parallel()

	if !littleEndianHost() {
		t.Skip("expected value assumes a little-endian host")
	}

	v, _ := newTestView(t, 1, 2, 3, 4)

	a, b, c, err := Unpack3[int8, byte, int16](v)
	require.NoError(t, err)
	assert.Equal(t, int8(1), a)
	assert.Equal(t, byte(2), b)
	assert.Equal(t, int16(1027), c)
}

func TestUnpack_Array(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4)

	n, arr, err := Unpack2[int8, [3]byte](v)
	require.NoError(t, err)
	assert.Equal(t, int8(1), n)
	assert.Equal(t, [3]byte{2, 3, 4}, arr)
}

func TestUnpack_PointersAndSlices(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 9, 8, 7, 6, 5)

	var head uint8
	body := make([]byte, 3)

	err := Unpack(v, &head, body)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), head)
	assert.Equal(t, []byte{8, 7, 6}, body)
}

func TestUnpack_TooShort(t *testing.T) {
	t.Parallel()

	v, src := newTestView(t, 1, 2, 3)

	_, _, err := Unpack2[uint16, uint16](v)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, src.resolves)
}

func TestUnpack_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4)

	var typeErr *UnsupportedTypeError
	require.ErrorAs(t, Unpack(v, uint16(0)), &typeErr)

	var n int
	require.ErrorAs(t, Unpack(v, &n), &typeErr)
}

func TestUnpackHead(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2, 3, 4)

	n, tail, err := UnpackHead1[int8](v)
	require.NoError(t, err)
	defer tail.Close()

	assert.Equal(t, int8(1), n)
	assert.False(t, tail.Resolved())

	data, err := tail.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, data)
}

func TestUnpackHead_RoundTrip(t *testing.T) {
	t.Parallel()

	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d}

	tests := []struct {
		name  string
		dst   func() []any
		total int
	}{
		{name: "none", dst: func() []any { return nil }, total: 0},
		{name: "u8", dst: func() []any { return []any{new(uint8)} }, total: 1},
		{name: "u16 i32", dst: func() []any { return []any{new(uint16), new(int32)} }, total: 6},
		{name: "f64 bool", dst: func() []any { return []any{new(float64), new(bool)} }, total: 9},
		{name: "u64 u64", dst: func() []any { return []any{new(uint64), new(uint64)} }, total: 16},
		{name: "f32 i8 [2]u16", dst: func() []any { return []any{new(float32), new(int8), new([2]uint16)} }, total: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, _ := newTestView(t, data...)

			tail, err := UnpackHead(v, tt.dst()...)
			require.NoError(t, err)
			defer tail.Close()

			rest, err := tail.Bytes()
			require.NoError(t, err)
			assert.Equal(t, data[tt.total:], rest)
			assert.Equal(t, int64(len(data)-tt.total), tail.Size())
		})
	}
}

func TestUnpackHead_Sequential(t *testing.T) {
	t.Parallel()

	// Two length-prefixed records.
	v, _ := newTestView(t, 2, 'h', 'i', 3, 'f', 'o', 'o')

	var got []string

	rest := v
	for !rest.IsEmpty() {
		n, tail, err := UnpackHead1[uint8](rest)
		require.NoError(t, err)

		body, err := tail.SliceTo(int64(n))
		require.NoError(t, err)

		text, err := body.Bytes()
		require.NoError(t, err)
		got = append(got, string(text))

		next, err := tail.SliceFrom(int64(n))
		require.NoError(t, err)

		require.NoError(t, body.Close())
		require.NoError(t, tail.Close())

		if rest != v {
			require.NoError(t, rest.Close())
		}

		rest = next
	}

	require.NoError(t, rest.Close())
	assert.Equal(t, []string{"hi", "foo"}, got)
}

func TestUnpackHead_TooShort(t *testing.T) {
	t.Parallel()

	v, _ := newTestView(t, 1, 2)

	_, _, _, err := UnpackHead2[uint16, uint8](v)
	require.ErrorIs(t, err, ErrOutOfRange)
}
