// Package model holds the declarative model descriptor, its normalization and
// shorthand expansion, and the compiler that turns a descriptor into render data
// grouped by buffer for the model renderer.
package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/modelgl/internal/engine/buffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// DefaultVersion is the descriptor version written by Normalize.
const DefaultVersion = "0.0.0.1 EXP"

// Descriptor is the declarative description of a model.
type Descriptor struct {
	Version  string   `yaml:"version,omitempty" json:"version,omitempty" toml:"version,omitempty"`
	Meta     Meta     `yaml:"meta" json:"meta" toml:"meta"`
	Data     Data     `yaml:"data" json:"data" toml:"data"`
	Access   Access   `yaml:"access" json:"access" toml:"access"`
	Semantic Semantic `yaml:"semantic" json:"semantic" toml:"semantic"`
	Logic    Logic    `yaml:"logic" json:"logic" toml:"logic"`
}

// Meta is free-form descriptive information.
type Meta struct {
	Author      string `yaml:"author,omitempty" json:"author,omitempty" toml:"author,omitempty"`
	Date        string `yaml:"date,omitempty" json:"date,omitempty" toml:"date,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
}

// Data holds the buffer records.
type Data struct {
	VertexBuffers map[string]*Buffer `yaml:"vertexBuffers" json:"vertexBuffers" toml:"vertexBuffers"`
	IndexBuffers  map[string]*Buffer `yaml:"indexBuffers" json:"indexBuffers" toml:"indexBuffers"`
}

// Access holds the stream accessors.
type Access struct {
	VertexStreams    map[string]*VertexStream    `yaml:"vertexStreams" json:"vertexStreams" toml:"vertexStreams"`
	PrimitiveStreams map[string]*PrimitiveStream `yaml:"primitiveStreams" json:"primitiveStreams" toml:"primitiveStreams"`
}

// Semantic holds bindings and chunks.
type Semantic struct {
	Bindings map[string]*Binding `yaml:"bindings" json:"bindings" toml:"bindings"`
	Chunks   map[string]*Chunk   `yaml:"chunks" json:"chunks" toml:"chunks"`
}

// Logic holds the parts.
type Logic struct {
	Parts map[string]*Part `yaml:"parts" json:"parts" toml:"parts"`
}

// Buffer is a vertex or index buffer record.
//
// Before upload the payload is either UntypedArray or TypedArray (TypedArray wins).
// Source names an external binary file that LoadFile resolves into TypedArray.
type Buffer struct {
	Type         gltype.Type   `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	UntypedArray []float64     `yaml:"untypedArray,omitempty" json:"untypedArray,omitempty" toml:"untypedArray,omitempty"`
	Source       string        `yaml:"source,omitempty" json:"source,omitempty" toml:"source,omitempty"`
	TypedArray   *gltype.Array `yaml:"-" json:"-" toml:"-"`

	vertex *buffer.VertexBuffer
	index  *buffer.IndexBuffer
}

// GLBuffer returns the native buffer created by Model.UpdateGL, or nil.
func (b *Buffer) GLBuffer() *buffer.Buffer {
	switch {
	case b.vertex != nil:
		return b.vertex.Buffer
	case b.index != nil:
		return b.index.Buffer
	}
	return nil
}

// VertexBuffer returns the native vertex buffer, or nil.
func (b *Buffer) VertexBuffer() *buffer.VertexBuffer { return b.vertex }

// IndexBuffer returns the native index buffer, or nil.
func (b *Buffer) IndexBuffer() *buffer.IndexBuffer { return b.index }

// Len returns the number of elements in the payload.
func (b *Buffer) Len() int {
	if b.TypedArray != nil {
		return b.TypedArray.Len()
	}
	return len(b.UntypedArray)
}

// ByteLength returns the payload size in bytes once converted to Type.
func (b *Buffer) ByteLength() int {
	if b.TypedArray != nil {
		return b.TypedArray.ByteLength()
	}
	return len(b.UntypedArray) * b.Type.Size()
}

// VertexStream describes how one vertex attribute is read.
// An empty Buffer makes the stream constant: Value is used for every vertex.
type VertexStream struct {
	Buffer     string      `yaml:"buffer,omitempty" json:"buffer,omitempty" toml:"buffer,omitempty"`
	Size       int         `yaml:"size,omitempty" json:"size,omitempty" toml:"size,omitempty"`
	Type       gltype.Type `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Normalized bool        `yaml:"normalized,omitempty" json:"normalized,omitempty" toml:"normalized,omitempty"`
	Stride     int         `yaml:"stride,omitempty" json:"stride,omitempty" toml:"stride,omitempty"`
	Offset     int         `yaml:"offset,omitempty" json:"offset,omitempty" toml:"offset,omitempty"`
	Value      []float32   `yaml:"value,omitempty" json:"value,omitempty" toml:"value,omitempty"`

	glType glctx.Enum
}

// IsConstant reports whether the stream has no backing buffer.
func (s *VertexStream) IsConstant() bool { return s.Buffer == "" }

// Value4 returns Value padded with the tail of (0, 0, 0, 1).
func (s *VertexStream) Value4() [4]float32 {
	v := [4]float32{0, 0, 0, 1}
	copy(v[:], s.Value)
	return v
}

// GLType returns the native element type of the stream.
func (s *VertexStream) GLType() glctx.Enum {
	if s.glType != 0 {
		return s.glType
	}
	return glctx.Enum(s.Type.GL())
}

// PrimitiveStream describes one draw call. An empty Buffer makes it a
// non-indexed draw of Count vertices starting at First.
type PrimitiveStream struct {
	Buffer string               `yaml:"buffer,omitempty" json:"buffer,omitempty" toml:"buffer,omitempty"`
	Mode   gltype.PrimitiveMode `yaml:"mode,omitempty" json:"mode,omitempty" toml:"mode,omitempty"`
	First  int                  `yaml:"first,omitempty" json:"first,omitempty" toml:"first,omitempty"`
	Count  int                  `yaml:"count,omitempty" json:"count,omitempty" toml:"count,omitempty"`
	Type   gltype.Type          `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Offset int                  `yaml:"offset,omitempty" json:"offset,omitempty" toml:"offset,omitempty"`

	glType    glctx.Enum
	glMode    glctx.Enum
	annotated bool
}

// IsIndexed reports whether the stream draws through an index buffer.
func (s *PrimitiveStream) IsIndexed() bool { return s.Buffer != "" }

// GLType returns the native index type.
func (s *PrimitiveStream) GLType() glctx.Enum {
	if s.annotated {
		return s.glType
	}
	return glctx.Enum(s.Type.GL())
}

// GLMode returns the native primitive mode.
func (s *PrimitiveStream) GLMode() glctx.Enum {
	if s.annotated {
		return s.glMode
	}
	return glctx.Enum(s.Mode.GL())
}

// Binding maps semantics to stream names. The position of a name in its list
// is the attribute index; empty names are holes.
type Binding struct {
	VertexStreams    map[string]Names `yaml:"vertexStreams" json:"vertexStreams" toml:"vertexStreams"`
	PrimitiveStreams map[string]Names `yaml:"primitiveStreams" json:"primitiveStreams" toml:"primitiveStreams"`
}

// Chunk lists the bindings used by each technique.
type Chunk struct {
	Techniques map[string]*ChunkTechnique `yaml:"techniques" json:"techniques" toml:"techniques"`
}

// ChunkTechnique names the binding a technique draws a chunk with.
type ChunkTechnique struct {
	Binding string `yaml:"binding" json:"binding" toml:"binding"`
}

// Part is a named, ordered group of chunks.
type Part struct {
	Chunks Names `yaml:"chunks" json:"chunks" toml:"chunks"`
}

// Names is a list of names that also decodes from a single YAML or JSON string.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*n = Names{s}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("name list: %w", err)
	}
	*n = list
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Names) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Names{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("name list: %w", err)
	}
	*n = list
	return nil
}

func (n Names) clone() Names {
	if n == nil {
		return nil
	}
	out := make(Names, len(n))
	copy(out, n)
	return out
}
