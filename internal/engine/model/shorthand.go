package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/modelgl/internal/logger"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// Names synthesized by ExpandShorthand.
const (
	MainBinding        = "mainBinding"
	MainChunk          = "mainChunk"
	MainPart           = "mainPart"
	CommonTechnique    = "common"
	vertexBufferSuffix = "VertexBuffer"
	indexBufferSuffix  = "IndexBuffer"
)

// ErrNilShorthand is returned by ExpandShorthand for a nil shorthand.
var ErrNilShorthand = errors.New("model: nil shorthand")

// Shorthand is the compact form of a single-part model: named vertex
// attributes and named primitive lists.
type Shorthand struct {
	Vertices   map[string]ShorthandVertex `yaml:"vertices" json:"vertices" toml:"vertices"`
	Primitives ShorthandPrimitives        `yaml:"primitives" json:"primitives" toml:"primitives"`
}

// ShorthandVertex describes one vertex attribute. Zero fields take the
// defaults of the attribute key. A vertex with Data or TypedData is buffered,
// otherwise it is a constant attribute with Value.
type ShorthandVertex struct {
	Size       int           `yaml:"size,omitempty" json:"size,omitempty" toml:"size,omitempty"`
	Type       gltype.Type   `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Normalized *bool         `yaml:"normalized,omitempty" json:"normalized,omitempty" toml:"normalized,omitempty"`
	Semantic   string        `yaml:"semantic,omitempty" json:"semantic,omitempty" toml:"semantic,omitempty"`
	Index      int           `yaml:"index,omitempty" json:"index,omitempty" toml:"index,omitempty"`
	Data       []float64     `yaml:"data,omitempty" json:"data,omitempty" toml:"data,omitempty"`
	TypedData  *gltype.Array `yaml:"-" json:"-" toml:"-"`
	Value      []float32     `yaml:"value,omitempty" json:"value,omitempty" toml:"value,omitempty"`
}

// ShorthandPrimitive describes one primitive list. Index data makes it
// indexed and fixes Count to the number of indices.
type ShorthandPrimitive struct {
	Mode      gltype.PrimitiveMode `yaml:"mode,omitempty" json:"mode,omitempty" toml:"mode,omitempty"`
	Type      gltype.Type          `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Count     int                  `yaml:"count,omitempty" json:"count,omitempty" toml:"count,omitempty"`
	Semantic  string               `yaml:"semantic,omitempty" json:"semantic,omitempty" toml:"semantic,omitempty"`
	Data      []float64            `yaml:"data,omitempty" json:"data,omitempty" toml:"data,omitempty"`
	TypedData *gltype.Array        `yaml:"-" json:"-" toml:"-"`
}

// ShorthandPrimitives maps primitive names to their description. In YAML and
// JSON it also decodes from a single name or a list of names.
type ShorthandPrimitives map[string]ShorthandPrimitive

type vertexDefaults struct {
	size       int
	typ        gltype.Type
	normalized bool
	semantic   string
	value      [4]float32
}

var vertexMap = map[string]vertexDefaults{
	"position": {3, gltype.Float32, false, "POSITION", [4]float32{0, 0, 0, 1}},
	"normal":   {3, gltype.Float32, false, "NORMAL", [4]float32{0, 0, 1, 0}},
	"color":    {4, gltype.Uint8, true, "COLOR", [4]float32{0, 0, 0, 255}},
	"texcoord": {2, gltype.Float32, false, "TEXCOORD", [4]float32{0, 0, 0, 1}},
	"user":     {3, gltype.Float32, false, "USER", [4]float32{0, 0, 0, 1}},
}

type primitiveDefaults struct {
	mode     gltype.PrimitiveMode
	semantic string
}

var primitiveMap = map[string]primitiveDefaults{
	"triangles":     {gltype.Triangles, "FILL"},
	"triangleStrip": {gltype.TriangleStrip, "FILL"},
	"triangleFan":   {gltype.TriangleFan, "FILL"},
	"lines":         {gltype.Lines, "LINE"},
	"lineStrip":     {gltype.LineStrip, "LINE"},
	"lineLoop":      {gltype.LineLoop, "LINE"},
	"points":        {gltype.Points, "POINT"},
	"user":          {gltype.Triangles, "FILL"},
}

// Primitives returns a primitive set with a default entry for each known
// name. Unknown names are dropped.
func Primitives(names ...string) ShorthandPrimitives {
	out := make(ShorthandPrimitives, len(names))
	for _, name := range names {
		if _, ok := primitiveMap[name]; !ok {
			logger.Debug("shorthand: unknown primitive name dropped", zap.String("name", name))
			continue
		}
		out[name] = ShorthandPrimitive{}
	}
	return out
}

// ExpandShorthand builds the full descriptor of a shorthand model: one buffer
// per buffered attribute and per indexed primitive list, one stream per
// entry, and a single mainBinding / mainChunk / mainPart drawn with the
// "common" technique. The result is normalized.
func ExpandShorthand(s *Shorthand) (*Descriptor, error) {
	if s == nil {
		return nil, ErrNilShorthand
	}

	d := &Descriptor{}
	d.Data.VertexBuffers = make(map[string]*Buffer)
	d.Data.IndexBuffers = make(map[string]*Buffer)
	d.Access.VertexStreams = make(map[string]*VertexStream)
	d.Access.PrimitiveStreams = make(map[string]*PrimitiveStream)

	binding := &Binding{
		VertexStreams:    make(map[string]Names),
		PrimitiveStreams: make(map[string]Names),
	}
	d.Semantic.Bindings = map[string]*Binding{MainBinding: binding}
	d.Semantic.Chunks = map[string]*Chunk{
		MainChunk: {Techniques: map[string]*ChunkTechnique{CommonTechnique: {Binding: MainBinding}}},
	}
	d.Logic.Parts = map[string]*Part{MainPart: {Chunks: Names{MainChunk}}}

	minBufferedCount := -1
	hasConstant := false

	for _, key := range sortedKeys(s.Vertices) {
		src := s.Vertices[key]
		defaults, known := vertexMap[key]
		if !known {
			defaults = vertexMap["user"]
			defaults.semantic = strings.ToUpper(key)
		}

		info := src
		if info.Size <= 0 {
			info.Size = defaults.size
		}
		if info.Type == gltype.NoType {
			if info.TypedData != nil && info.TypedData.Type != gltype.NoType {
				info.Type = info.TypedData.Type
			} else {
				info.Type = defaults.typ
			}
		}
		normalized := defaults.normalized
		if info.Normalized != nil {
			normalized = *info.Normalized
		}
		if info.Semantic == "" {
			info.Semantic = defaults.semantic
		}
		if info.Index < 0 {
			logger.Debug("shorthand: negative attribute index reset", zap.String("vertex", key), zap.Int("index", info.Index))
			info.Index = 0
		}
		value := defaults.value
		if info.Value != nil {
			value = defaultStreamValue
			copy(value[:], info.Value)
		}

		stream := &VertexStream{
			Size:       info.Size,
			Type:       info.Type,
			Normalized: normalized,
			Value:      append([]float32(nil), value[:]...),
		}

		var count int
		buffered := true
		switch {
		case info.TypedData != nil:
			count = floorCount(info.TypedData.ByteLength(), info.Size*info.Type.Size())
			d.Data.VertexBuffers[key+vertexBufferSuffix] = &Buffer{Type: info.Type, TypedArray: info.TypedData}
		case info.Data != nil:
			count = floorCount(len(info.Data), info.Size)
			d.Data.VertexBuffers[key+vertexBufferSuffix] = &Buffer{Type: info.Type, UntypedArray: info.Data}
		default:
			buffered = false
		}

		if buffered {
			stream.Buffer = key + vertexBufferSuffix
			if minBufferedCount < 0 || count < minBufferedCount {
				minBufferedCount = count
			}
		} else {
			hasConstant = true
		}
		d.Access.VertexStreams[key] = stream

		names := make(Names, info.Index+1)
		names[info.Index] = key
		binding.VertexStreams[info.Semantic] = names
	}

	minCount := 0
	switch {
	case minBufferedCount >= 0:
		minCount = minBufferedCount
	case hasConstant:
		minCount = 1
	}

	for _, key := range sortedKeys(s.Primitives) {
		src := s.Primitives[key]
		defaults, ok := primitiveMap[key]
		if !ok {
			defaults = primitiveMap["user"]
		}

		info := src
		if info.Mode == gltype.ModeUnset {
			info.Mode = defaults.mode
		}
		if info.Type == gltype.NoType {
			if info.TypedData != nil && info.TypedData.Type != gltype.NoType {
				info.Type = info.TypedData.Type
			} else {
				info.Type = gltype.Uint16
			}
		}
		if info.Semantic == "" {
			info.Semantic = defaults.semantic
		}
		if info.Count <= 0 {
			info.Count = minCount
		}

		stream := &PrimitiveStream{Mode: info.Mode, Type: info.Type}

		indexed := true
		var indexCount int
		switch {
		case info.TypedData != nil:
			indexCount = floorCount(info.TypedData.ByteLength(), info.Type.Size())
			d.Data.IndexBuffers[key+indexBufferSuffix] = &Buffer{Type: info.Type, TypedArray: info.TypedData}
		case info.Data != nil:
			indexCount = len(info.Data)
			d.Data.IndexBuffers[key+indexBufferSuffix] = &Buffer{Type: info.Type, UntypedArray: info.Data}
		default:
			indexed = false
		}

		if indexed {
			if src.Count > 0 && src.Count != indexCount {
				logger.Warn("shorthand: index data overrides primitive count",
					zap.String("primitive", key),
					zap.Int("count", src.Count),
					zap.Int("indices", indexCount))
			}
			info.Count = indexCount
			stream.Buffer = key + indexBufferSuffix
		}
		stream.Count = info.Count
		d.Access.PrimitiveStreams[key] = stream

		binding.PrimitiveStreams[info.Semantic] = Names{key}
	}

	return Normalize(d), nil
}

// UnmarshalYAML accepts a bare sequence as vertex data.
func (v *ShorthandVertex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&v.Data)
	}
	type plain ShorthandVertex
	return node.Decode((*plain)(v))
}

// UnmarshalJSON accepts a bare array as vertex data.
func (v *ShorthandVertex) UnmarshalJSON(data []byte) error {
	if isJSONArray(data) {
		return json.Unmarshal(data, &v.Data)
	}
	type plain ShorthandVertex
	return json.Unmarshal(data, (*plain)(v))
}

// UnmarshalYAML accepts a bare sequence as index data.
func (p *ShorthandPrimitive) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&p.Data)
	}
	type plain ShorthandPrimitive
	return node.Decode((*plain)(p))
}

// UnmarshalJSON accepts a bare array as index data.
func (p *ShorthandPrimitive) UnmarshalJSON(data []byte) error {
	if isJSONArray(data) {
		return json.Unmarshal(data, &p.Data)
	}
	type plain ShorthandPrimitive
	return json.Unmarshal(data, (*plain)(p))
}

// UnmarshalYAML accepts a name, a list of names or a map.
func (ps *ShorthandPrimitives) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		var names Names
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("primitives: %w", err)
		}
		*ps = Primitives(names...)
		return nil
	}
	m := make(map[string]ShorthandPrimitive)
	if err := node.Decode(&m); err != nil {
		return fmt.Errorf("primitives: %w", err)
	}
	*ps = m
	return nil
}

// UnmarshalJSON accepts a name, a list of names or an object.
func (ps *ShorthandPrimitives) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var m map[string]ShorthandPrimitive
	if err := json.Unmarshal(data, &m); err == nil {
		*ps = m
		return nil
	}
	var names Names
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("primitives: %w", err)
	}
	*ps = Primitives(names...)
	return nil
}

func isJSONArray(data []byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		}
		return false
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// floorCount returns n / d for non-negative n, and 0 for d <= 0.
func floorCount(n, d int) int {
	if d <= 0 {
		return 0
	}
	return n / d
}
