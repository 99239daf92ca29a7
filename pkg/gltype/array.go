package gltype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// ErrNoType is returned when an array conversion is requested for NoType.
var ErrNoType = errors.New("gltype: no element type")

// Element is the set of Go types that have a matching Type.
type Element interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | float32
}

// Array is a typed, tightly packed element array ready for upload.
// Data is in native byte order.
type Array struct {
	Type Type
	Data []byte
}

// NewArray packs values into an Array of the matching Type.
func NewArray[T Element](values []T) Array {
	var zero T
	return Array{Type: typeOf(zero), Data: bytesOf(values)}
}

// FromValues converts untyped values to an Array of type t. Integer types
// truncate toward zero and wrap modulo 2^n, so -1 stored as UNSIGNED_BYTE
// is 255. NaN and infinities store 0.
func FromValues(t Type, values []float64) (Array, error) {
	var data []byte
	switch t {
	case Int8:
		data = bytesOf(convert[int8](values))
	case Uint8:
		data = bytesOf(convert[uint8](values))
	case Int16:
		data = bytesOf(convert[int16](values))
	case Uint16:
		data = bytesOf(convert[uint16](values))
	case Int32:
		data = bytesOf(convert[int32](values))
	case Uint32:
		data = bytesOf(convert[uint32](values))
	case Float32:
		data = bytesOf(convert[float32](values))
	default:
		return Array{}, fmt.Errorf("converting %d values: %w", len(values), ErrNoType)
	}
	return Array{Type: t, Data: data}, nil
}

// Len returns the number of elements.
func (a Array) Len() int {
	size := a.Type.Size()
	if size == 0 {
		return 0
	}
	return len(a.Data) / size
}

// ByteLength returns the size of the array in bytes.
func (a Array) ByteLength() int {
	return len(a.Data)
}

// Values decodes the array back into float64 values.
func (a Array) Values() []float64 {
	n := a.Len()
	out := make([]float64, n)
	ne := binary.NativeEndian
	for i := 0; i < n; i++ {
		switch a.Type {
		case Int8:
			out[i] = float64(int8(a.Data[i]))
		case Uint8:
			out[i] = float64(a.Data[i])
		case Int16:
			out[i] = float64(int16(ne.Uint16(a.Data[i*2:])))
		case Uint16:
			out[i] = float64(ne.Uint16(a.Data[i*2:]))
		case Int32:
			out[i] = float64(int32(ne.Uint32(a.Data[i*4:])))
		case Uint32:
			out[i] = float64(ne.Uint32(a.Data[i*4:]))
		case Float32:
			out[i] = float64(math.Float32frombits(ne.Uint32(a.Data[i*4:])))
		}
	}
	return out
}

func convert[T constraints.Integer | constraints.Float](values []float64) []T {
	out := make([]T, len(values))
	var zero T
	if _, ok := any(zero).(float32); ok {
		for i, v := range values {
			out[i] = T(v)
		}
		return out
	}
	for i, v := range values {
		out[i] = T(wrap(v))
	}
	return out
}

// wrap reduces v to an integer in (-2^32, 2^32). Narrowing the result keeps
// the low bits, which is the modulo 2^n store.
func wrap(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Mod(math.Trunc(v), 1<<32))
}

func bytesOf[T Element](values []T) []byte {
	if len(values) == 0 {
		return []byte{}
	}
	size := int(unsafe.Sizeof(values[0]))
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*size)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

func typeOf[T Element](v T) Type {
	switch any(v).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case float32:
		return Float32
	}
	return NoType
}
