package model

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/modelgl/pkg/formats"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// ErrEmptyMesh is returned when a mesh has no triangles.
var ErrEmptyMesh = errors.New("model: empty mesh")

// Vertex is an interleaved mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// vertexStride is the byte size of an interleaved Vertex.
const vertexStride = 8 * 4

// TextureGroup is a range of triangles drawn with one texture.
type TextureGroup struct {
	TextureIdx int
	StartIndex int32
	IndexCount int32
	// Part groups texture groups into descriptor parts; empty means "main".
	Part string
	// Material is informational and ends up in the chunk name when set.
	Material string
}

// Mesh is indexed triangle geometry with texture groups.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Groups   []TextureGroup
	Bounds   Bounds
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBounds returns an inverted box that any point extends.
func EmptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// IsEmpty reports whether the box contains no point.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0]
}

// Center returns the box center.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// ComputeBounds recomputes m.Bounds from the vertices.
func (m *Mesh) ComputeBounds() {
	m.Bounds = EmptyBounds()
	for _, v := range m.Vertices {
		m.Bounds.Extend(v.Position)
	}
}

// FromMesh builds a descriptor drawing m: one interleaved vertex buffer
// shared by the POSITION, NORMAL and TEXCOORD streams, one index buffer, and
// one chunk per texture group. A mesh without groups gets a single chunk.
func FromMesh(m *Mesh) (*Descriptor, error) {
	if m == nil || len(m.Indices) < 3 || len(m.Vertices) == 0 {
		return nil, ErrEmptyMesh
	}

	groups := m.Groups
	if len(groups) == 0 {
		groups = []TextureGroup{{IndexCount: int32(len(m.Indices))}}
	}

	values := make([]float32, 0, len(m.Vertices)*8)
	for _, v := range m.Vertices {
		values = append(values, v.Position[:]...)
		values = append(values, v.Normal[:]...)
		values = append(values, v.TexCoord[:]...)
	}
	vertexData := gltype.NewArray(values)
	indexData := gltype.NewArray(m.Indices)

	d := &Descriptor{
		Meta: Meta{Description: fmt.Sprintf("%d vertices, %d triangles", len(m.Vertices), len(m.Indices)/3)},
		Data: Data{
			VertexBuffers: map[string]*Buffer{"vertices": {Type: gltype.Float32, TypedArray: &vertexData}},
			IndexBuffers:  map[string]*Buffer{"indices": {Type: gltype.Uint32, TypedArray: &indexData}},
		},
		Access: Access{
			VertexStreams: map[string]*VertexStream{
				"position": {Buffer: "vertices", Size: 3, Type: gltype.Float32, Stride: vertexStride, Offset: 0},
				"normal":   {Buffer: "vertices", Size: 3, Type: gltype.Float32, Stride: vertexStride, Offset: 12, Value: []float32{0, 0, 1, 0}},
				"texcoord": {Buffer: "vertices", Size: 2, Type: gltype.Float32, Stride: vertexStride, Offset: 24},
			},
			PrimitiveStreams: make(map[string]*PrimitiveStream),
		},
		Semantic: Semantic{
			Bindings: make(map[string]*Binding),
			Chunks:   make(map[string]*Chunk),
		},
		Logic: Logic{Parts: make(map[string]*Part)},
	}

	for i, g := range groups {
		if g.IndexCount <= 0 {
			continue
		}
		name := fmt.Sprintf("group%d", i)
		if g.Material != "" {
			name = fmt.Sprintf("group%d_%s", i, g.Material)
		}
		d.Access.PrimitiveStreams[name] = &PrimitiveStream{
			Buffer: "indices",
			Mode:   gltype.Triangles,
			Count:  int(g.IndexCount),
			Type:   gltype.Uint32,
			Offset: int(g.StartIndex) * 4,
		}
		d.Semantic.Bindings[name] = &Binding{
			VertexStreams: map[string]Names{
				"POSITION": {"position"},
				"NORMAL":   {"normal"},
				"TEXCOORD": {"texcoord"},
			},
			PrimitiveStreams: map[string]Names{"FILL": {name}},
		}
		d.Semantic.Chunks[name] = &Chunk{Techniques: map[string]*ChunkTechnique{CommonTechnique: {Binding: name}}}

		part := g.Part
		if part == "" {
			part = "main"
		}
		p := d.Logic.Parts[part]
		if p == nil {
			p = &Part{}
			d.Logic.Parts[part] = p
		}
		p.Chunks = append(p.Chunks, name)
	}
	return Normalize(d), nil
}

// MeshFromOBJ triangulates obj into a mesh with one texture group per run of
// faces sharing a material, grouped into parts by OBJ group. Faces without
// normals get flat face normals.
func MeshFromOBJ(obj *formats.OBJ) (*Mesh, error) {
	if obj == nil || obj.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}
	m := &Mesh{}
	materials := make(map[string]int)

	type key struct {
		idx    formats.OBJIndex
		normal [3]float32
	}
	seen := make(map[key]uint32)

	for _, g := range obj.Groups {
		var cur *TextureGroup
		for _, f := range g.Faces {
			if cur == nil || cur.Material != f.Material {
				tex, ok := materials[f.Material]
				if !ok {
					tex = len(materials)
					materials[f.Material] = tex
				}
				m.Groups = append(m.Groups, TextureGroup{
					TextureIdx: tex,
					StartIndex: int32(len(m.Indices)),
					Part:       g.Name,
					Material:   f.Material,
				})
				cur = &m.Groups[len(m.Groups)-1]
			}

			faceNormal := objFaceNormal(obj, f)
			corner := func(c formats.OBJIndex) uint32 {
				k := key{idx: c}
				if c.Normal < 0 {
					k.normal = faceNormal
				}
				if i, ok := seen[k]; ok {
					return i
				}
				v := Vertex{Position: obj.Positions[c.Position], Normal: faceNormal}
				if c.Normal >= 0 {
					v.Normal = obj.Normals[c.Normal]
				}
				if c.TexCoord >= 0 {
					v.TexCoord = obj.TexCoords[c.TexCoord]
				}
				i := uint32(len(m.Vertices))
				m.Vertices = append(m.Vertices, v)
				seen[k] = i
				return i
			}

			// Fan triangulation around the first corner.
			first := corner(f.Corners[0])
			for i := 2; i < len(f.Corners); i++ {
				m.Indices = append(m.Indices, first, corner(f.Corners[i-1]), corner(f.Corners[i]))
				cur.IndexCount += 3
			}
		}
	}
	m.ComputeBounds()
	return m, nil
}

// FromOBJ builds a descriptor with one part per OBJ group and one chunk per
// material run.
func FromOBJ(obj *formats.OBJ) (*Descriptor, error) {
	m, err := MeshFromOBJ(obj)
	if err != nil {
		return nil, err
	}
	return FromMesh(m)
}

func objFaceNormal(obj *formats.OBJ, f formats.OBJFace) [3]float32 {
	v0 := obj.Positions[f.Corners[0].Position]
	v1 := obj.Positions[f.Corners[1].Position]
	v2 := obj.Positions[f.Corners[2].Position]
	e1 := [3]float32{v1[0] - v0[0], v1[1] - v0[1], v1[2] - v0[2]}
	e2 := [3]float32{v2[0] - v0[0], v2[1] - v0[1], v2[2] - v0[2]}
	return normalize(cross(e1, e2))
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float32) [3]float32 {
	length := float32(gomath.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if length < 0.0001 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{v[0] / length, v[1] / length, v[2] / length}
}

// ComputeBounds returns the box of every buffered stream bound to the
// POSITION semantic in d. The result is false when no position can be read.
func ComputeBounds(d *Descriptor) (Bounds, bool) {
	b := EmptyBounds()
	if d == nil {
		return b, false
	}
	done := make(map[string]bool)
	for _, binding := range d.Semantic.Bindings {
		if binding == nil {
			continue
		}
		for _, name := range binding.VertexStreams["POSITION"] {
			if name == "" || done[name] {
				continue
			}
			done[name] = true
			s := d.Access.VertexStreams[name]
			if s == nil || s.Buffer == "" {
				continue
			}
			buf := d.Data.VertexBuffers[s.Buffer]
			if buf == nil {
				continue
			}
			extendFromBuffer(&b, s, buf)
		}
	}
	return b, !b.IsEmpty()
}

func extendFromBuffer(b *Bounds, s *VertexStream, buf *Buffer) {
	values := buf.UntypedArray
	if buf.TypedArray != nil {
		values = buf.TypedArray.Values()
	}
	elem := s.Type.Size()
	if elem == 0 || buf.Type.Size() == 0 {
		return
	}
	// Stride and offset are in bytes; buffers hold elements of the stream type.
	stride := s.Size
	if s.Stride > 0 {
		stride = s.Stride / elem
	}
	start := s.Offset / elem
	n := min(s.Size, 3)
	for i := start; i+n <= len(values) && stride > 0; i += stride {
		var p [3]float32
		for c := 0; c < n; c++ {
			p[c] = float32(values[i+c])
		}
		b.Extend(p)
	}
}
