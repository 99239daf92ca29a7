// Package gltype describes the scalar element types and primitive modes used by
// model descriptors, and their mapping onto OpenGL enumerations.
package gltype

import (
	"fmt"
	"strings"
)

// Type is the element type of a buffer or stream.
type Type int

// Element types.
const (
	NoType Type = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
)

// OpenGL data type enumerations.
const (
	glByte          uint32 = 0x1400
	glUnsignedByte  uint32 = 0x1401
	glShort         uint32 = 0x1402
	glUnsignedShort uint32 = 0x1403
	glInt           uint32 = 0x1404
	glUnsignedInt   uint32 = 0x1405
	glFloat         uint32 = 0x1406
)

var typeNames = [...]string{
	NoType:  "NO_TYPE",
	Int8:    "INT8",
	Uint8:   "UINT8",
	Int16:   "INT16",
	Uint16:  "UINT16",
	Int32:   "INT32",
	Uint32:  "UINT32",
	Float32: "FLOAT32",
}

// Size returns the size in bytes of one element, or 0 for NoType.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 0
	}
}

// GL returns the OpenGL enumeration for t (GL_NONE for NoType).
func (t Type) GL() uint32 {
	switch t {
	case Int8:
		return glByte
	case Uint8:
		return glUnsignedByte
	case Int16:
		return glShort
	case Uint16:
		return glUnsignedShort
	case Int32:
		return glInt
	case Uint32:
		return glUnsignedInt
	case Float32:
		return glFloat
	default:
		return 0
	}
}

// TypeFromGL maps an OpenGL data type back to a Type.
func TypeFromGL(e uint32) Type {
	switch e {
	case glByte:
		return Int8
	case glUnsignedByte:
		return Uint8
	case glShort:
		return Int16
	case glUnsignedShort:
		return Uint16
	case glInt:
		return Int32
	case glUnsignedInt:
		return Uint32
	case glFloat:
		return Float32
	default:
		return NoType
	}
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Both descriptor names ("FLOAT32") and GL names ("FLOAT", "UNSIGNED_SHORT") are accepted.
func (t *Type) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for i, name := range typeNames {
		if s == name {
			*t = Type(i)
			return nil
		}
	}
	switch s {
	case "", "NONE":
		*t = NoType
	case "BYTE":
		*t = Int8
	case "UNSIGNED_BYTE":
		*t = Uint8
	case "SHORT":
		*t = Int16
	case "UNSIGNED_SHORT":
		*t = Uint16
	case "INT":
		*t = Int32
	case "UNSIGNED_INT":
		*t = Uint32
	case "FLOAT":
		*t = Float32
	default:
		return fmt.Errorf("unknown element type %q", string(text))
	}
	return nil
}

// PrimitiveMode is the topology used to assemble primitives.
// The zero value is "unset" and is replaced by Triangles during normalization.
type PrimitiveMode int

// Primitive modes.
const (
	ModeUnset PrimitiveMode = iota
	Points
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleFan
	TriangleStrip
)

var modeNames = [...]string{
	ModeUnset:     "UNSET",
	Points:        "POINTS",
	Lines:         "LINES",
	LineLoop:      "LINE_LOOP",
	LineStrip:     "LINE_STRIP",
	Triangles:     "TRIANGLES",
	TriangleFan:   "TRIANGLE_FAN",
	TriangleStrip: "TRIANGLE_STRIP",
}

// GL returns the OpenGL primitive enumeration for m.
func (m PrimitiveMode) GL() uint32 {
	switch m {
	case Points:
		return 0x0000
	case Lines:
		return 0x0001
	case LineLoop:
		return 0x0002
	case LineStrip:
		return 0x0003
	case TriangleStrip:
		return 0x0005
	case TriangleFan:
		return 0x0006
	default:
		return 0x0004
	}
}

// String implements fmt.Stringer.
func (m PrimitiveMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("PrimitiveMode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m PrimitiveMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PrimitiveMode) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	if s == "" {
		*m = ModeUnset
		return nil
	}
	for i, name := range modeNames {
		if s == name {
			*m = PrimitiveMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown primitive mode %q", string(text))
}
