// Package layout parses compact field layouts such as "u32,i16,[4]u8,f64"
// and decodes them from the front of a view.
package layout

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/e2b-dev/memview/pkg/memview"
)

var ErrInvalidLayout = errors.New("invalid layout")

type kind struct {
	name     string
	size     int64
	newValue func() any
	newArray func(n int) any
}

func newKind[T any](name string, size int64) kind {
	return kind{
		name:     name,
		size:     size,
		newValue: func() any { return new(T) },
		newArray: func(n int) any { return make([]T, n) },
	}
}

var kinds = map[string]kind{
	"i8":   newKind[int8]("i8", 1),
	"i16":  newKind[int16]("i16", 2),
	"i32":  newKind[int32]("i32", 4),
	"i64":  newKind[int64]("i64", 8),
	"u8":   newKind[uint8]("u8", 1),
	"u16":  newKind[uint16]("u16", 2),
	"u32":  newKind[uint32]("u32", 4),
	"u64":  newKind[uint64]("u64", 8),
	"f32":  newKind[float32]("f32", 4),
	"f64":  newKind[float64]("f64", 8),
	"bool": newKind[bool]("bool", 1),
}

// Field is one entry of a layout. Count is zero for scalars.
type Field struct {
	kind  kind
	Count int
}

func (f Field) String() string {
	if f.Count == 0 {
		return f.kind.name
	}

	return fmt.Sprintf("[%d]%s", f.Count, f.kind.name)
}

func (f Field) Size() int64 {
	if f.Count == 0 {
		return f.kind.size
	}

	return f.kind.size * int64(f.Count)
}

// New allocates a destination suitable for memview.Unpack.
func (f Field) New() any {
	if f.Count == 0 {
		return f.kind.newValue()
	}

	return f.kind.newArray(f.Count)
}

// Format renders a destination returned by New.
func (f Field) Format(dst any) string {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	return fmt.Sprint(v.Interface())
}

func Parse(s string) ([]Field, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	fields := make([]Field, 0, len(parts))

	for i, part := range parts {
		field, err := parseField(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}

		fields = append(fields, field)
	}

	return fields, nil
}

func parseField(s string) (Field, error) {
	count := 0

	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return Field{}, fmt.Errorf("%w: unterminated array length in %q", ErrInvalidLayout, s)
		}

		n, err := strconv.Atoi(s[1:end])
		if err != nil || n <= 0 {
			return Field{}, fmt.Errorf("%w: bad array length in %q", ErrInvalidLayout, s)
		}

		count = n
		s = s[end+1:]
	}

	k, ok := kinds[s]
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown type %q", ErrInvalidLayout, s)
	}

	if int64(count) > math.MaxInt64/k.size {
		return Field{}, fmt.Errorf("%w: array of %d %s is too large", ErrInvalidLayout, count, k.name)
	}

	return Field{kind: k, Count: count}, nil
}

// Size is the number of bytes the fields occupy, packed.
// It saturates at math.MaxInt64.
func Size(fields []Field) int64 {
	var total int64
	for _, f := range fields {
		if f.Size() > math.MaxInt64-total {
			return math.MaxInt64
		}

		total += f.Size()
	}

	return total
}

// Decode unpacks fields from the front of v and returns the decoded destinations
// together with a view over the remaining bytes.
// Nothing is allocated unless the view is large enough to hold every field.
func Decode(v *memview.View, fields []Field) ([]any, *memview.View, error) {
	if total := Size(fields); total > v.Size() {
		return nil, nil, &memview.RangeError{Op: "decode layout", Begin: 0, End: total, Size: v.Size()}
	}

	dst := make([]any, len(fields))
	for i, f := range fields {
		dst[i] = f.New()
	}

	tail, err := memview.UnpackHead(v, dst...)
	if err != nil {
		return nil, nil, err
	}

	return dst, tail, nil
}
