package memview

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Values are decoded in the host byte order and packed without padding,
// following the encoding/binary rules for fixed-size data.
var nativeOrder binary.ByteOrder = binary.NativeEndian

func fixedSize(v any) (int64, error) {
	n := binary.Size(v)
	if n < 0 {
		return 0, &UnsupportedTypeError{Type: fmt.Sprintf("%T", v)}
	}

	return int64(n), nil
}

// As interprets the first bytes of the view as a T.
func As[T any](v *View) (T, error) {
	var out T

	size, err := fixedSize(&out)
	if err != nil {
		return out, err
	}

	if size > v.Size() {
		return out, &RangeError{Op: "as", Begin: 0, End: size, Size: v.Size()}
	}

	data, err := v.Bytes()
	if err != nil {
		return out, fmt.Errorf("failed to resolve view: %w", err)
	}

	_, err = binary.Decode(data[:size], nativeOrder, &out)
	if err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", out, err)
	}

	return out, nil
}

// AsSlice interprets the whole view as a sequence of T.
func AsSlice[T any](v *View) ([]T, error) {
	var zero T

	elemSize, err := fixedSize(&zero)
	if err != nil {
		return nil, err
	}

	if elemSize == 0 {
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T (zero size)", zero)}
	}

	if v.Size()%elemSize != 0 {
		return nil, &SizeMismatchError{Size: v.Size(), ElemSize: elemSize}
	}

	out := make([]T, v.Size()/elemSize)
	if len(out) == 0 {
		return out, nil
	}

	data, err := v.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve view: %w", err)
	}

	_, err = binary.Decode(data, nativeOrder, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode []%T: %w", zero, err)
	}

	return out, nil
}

// Unpack decodes consecutive fields from the start of the view into dst.
// Each destination is a pointer to a fixed-size value or a pre-sized slice of them;
// field i starts where field i-1 ends, the first one at offset 0.
//
//	var (
//		magic   uint32
//		version uint16
//		name    [8]byte
//	)
//	err := memview.Unpack(v, &magic, &version, &name)
func Unpack(v *View, dst ...any) error {
	_, err := unpack(v, "unpack", dst)

	return err
}

// UnpackHead works like Unpack and also returns a view over the bytes that follow the unpacked fields.
func UnpackHead(v *View, dst ...any) (*View, error) {
	total, err := unpack(v, "unpack head", dst)
	if err != nil {
		return nil, err
	}

	return v.SliceFrom(total)
}

func unpack(v *View, op string, dst []any) (int64, error) {
	sizes := make([]int64, len(dst))

	var total int64

	for i, d := range dst {
		kind := reflect.ValueOf(d).Kind()
		if kind != reflect.Pointer && kind != reflect.Slice {
			return 0, &UnsupportedTypeError{Type: fmt.Sprintf("%T (field %d is not a pointer or slice)", d, i)}
		}

		size, err := fixedSize(d)
		if err != nil {
			return 0, fmt.Errorf("field %d: %w", i, err)
		}

		sizes[i] = size
		total += size
	}

	if total > v.Size() {
		return 0, &RangeError{Op: op, Begin: 0, End: total, Size: v.Size()}
	}

	if total == 0 {
		return 0, nil
	}

	data, err := v.Bytes()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve view: %w", err)
	}

	var off int64

	for i, d := range dst {
		_, err := binary.Decode(data[off:off+sizes[i]], nativeOrder, d)
		if err != nil {
			return 0, fmt.Errorf("failed to decode field %d at offset %d: %w", i, off, err)
		}

		off += sizes[i]
	}

	return total, nil
}

func Unpack2[A, B any](v *View) (A, B, error) {
	var (
		a A
		b B
	)

	err := Unpack(v, &a, &b)

	return a, b, err
}

func Unpack3[A, B, C any](v *View) (A, B, C, error) {
	var (
		a A
		b B
		c C
	)

	err := Unpack(v, &a, &b, &c)

	return a, b, c, err
}

func Unpack4[A, B, C, D any](v *View) (A, B, C, D, error) {
	var (
		a A
		b B
		c C
		d D
	)

	err := Unpack(v, &a, &b, &c, &d)

	return a, b, c, d, err
}

func UnpackHead1[A any](v *View) (A, *View, error) {
	var a A

	tail, err := UnpackHead(v, &a)

	return a, tail, err
}

func UnpackHead2[A, B any](v *View) (A, B, *View, error) {
	var (
		a A
		b B
	)

	tail, err := UnpackHead(v, &a, &b)

	return a, b, tail, err
}

func UnpackHead3[A, B, C any](v *View) (A, B, C, *View, error) {
	var (
		a A
		b B
		c C
	)

	tail, err := UnpackHead(v, &a, &b, &c)

	return a, b, c, tail, err
}
