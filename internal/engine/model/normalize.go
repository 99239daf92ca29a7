package model

import "github.com/Faultbox/modelgl/pkg/gltype"

var defaultStreamValue = [4]float32{0, 0, 0, 1}

// Normalize returns a canonical copy of d with every default filled in.
//
// The input is never mutated. Buffer payloads and native buffers are shared
// with the input. No cross reference is checked here; see Validate.
// Normalize(Normalize(d)) is equal to Normalize(d).
func Normalize(d *Descriptor) *Descriptor {
	if d == nil {
		d = &Descriptor{}
	}
	out := &Descriptor{
		Version: d.Version,
		Meta:    d.Meta,
	}
	if out.Version == "" {
		out.Version = DefaultVersion
	}

	out.Data.VertexBuffers = normalizeBuffers(d.Data.VertexBuffers, gltype.Float32)
	out.Data.IndexBuffers = normalizeBuffers(d.Data.IndexBuffers, gltype.Uint16)

	out.Access.VertexStreams = make(map[string]*VertexStream, len(d.Access.VertexStreams))
	for name, s := range d.Access.VertexStreams {
		out.Access.VertexStreams[name] = normalizeVertexStream(s)
	}
	out.Access.PrimitiveStreams = make(map[string]*PrimitiveStream, len(d.Access.PrimitiveStreams))
	for name, s := range d.Access.PrimitiveStreams {
		out.Access.PrimitiveStreams[name] = normalizePrimitiveStream(s)
	}

	out.Semantic.Bindings = make(map[string]*Binding, len(d.Semantic.Bindings))
	for name, b := range d.Semantic.Bindings {
		nb := &Binding{
			VertexStreams:    make(map[string]Names),
			PrimitiveStreams: make(map[string]Names),
		}
		if b != nil {
			for sem, names := range b.VertexStreams {
				nb.VertexStreams[sem] = names.clone()
			}
			for sem, names := range b.PrimitiveStreams {
				nb.PrimitiveStreams[sem] = names.clone()
			}
		}
		out.Semantic.Bindings[name] = nb
	}

	out.Semantic.Chunks = make(map[string]*Chunk, len(d.Semantic.Chunks))
	for name, c := range d.Semantic.Chunks {
		nc := &Chunk{Techniques: make(map[string]*ChunkTechnique)}
		if c != nil {
			for tech, ct := range c.Techniques {
				nct := &ChunkTechnique{}
				if ct != nil {
					nct.Binding = ct.Binding
				}
				nc.Techniques[tech] = nct
			}
		}
		out.Semantic.Chunks[name] = nc
	}

	out.Logic.Parts = make(map[string]*Part, len(d.Logic.Parts))
	for name, p := range d.Logic.Parts {
		np := &Part{}
		if p != nil {
			np.Chunks = p.Chunks.clone()
		}
		out.Logic.Parts[name] = np
	}

	return out
}

func normalizeBuffers(in map[string]*Buffer, defaultType gltype.Type) map[string]*Buffer {
	out := make(map[string]*Buffer, len(in))
	for name, b := range in {
		nb := &Buffer{}
		if b != nil {
			*nb = *b
			// Payloads are shared, native buffers belong to the source model.
			nb.vertex, nb.index = nil, nil
		}
		if nb.Type == gltype.NoType {
			if nb.TypedArray != nil && nb.TypedArray.Type != gltype.NoType {
				nb.Type = nb.TypedArray.Type
			} else {
				nb.Type = defaultType
			}
		}
		out[name] = nb
	}
	return out
}

func normalizeVertexStream(s *VertexStream) *VertexStream {
	ns := &VertexStream{}
	if s != nil {
		*ns = *s
	}
	if ns.Size <= 0 {
		ns.Size = 3
	}
	if ns.Type == gltype.NoType {
		ns.Type = gltype.Float32
	}
	if ns.Stride < 0 {
		ns.Stride = 0
	}
	if ns.Offset < 0 {
		ns.Offset = 0
	}
	v := defaultStreamValue
	copy(v[:], ns.Value)
	ns.Value = v[:]
	return ns
}

func normalizePrimitiveStream(s *PrimitiveStream) *PrimitiveStream {
	ns := &PrimitiveStream{}
	if s != nil {
		*ns = *s
	}
	if ns.Mode == gltype.ModeUnset {
		ns.Mode = gltype.Triangles
	}
	if ns.First < 0 {
		ns.First = 0
	}
	if ns.Type == gltype.NoType {
		ns.Type = gltype.Uint16
	}
	if ns.Offset < 0 {
		ns.Offset = 0
	}
	return ns
}
