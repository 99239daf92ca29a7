package model

import (
	"fmt"

	"go.uber.org/multierr"
)

// RenderData is the compiled, draw-ready form of a descriptor:
// PartMap[part][chunk][technique].
type RenderData struct {
	PartMap map[string]map[string]map[string]*TechniqueInfo
}

// TechniqueInfo is everything needed to draw one chunk with one technique.
type TechniqueInfo struct {
	VertexStreams    VertexStreams
	PrimitiveStreams map[string]*PrimitiveStreamsInfo
}

// VertexStreams splits attribute streams into per-buffer groups and constants.
type VertexStreams struct {
	Buffered []BufferedVertexStreams
	Constant []VertexStreamInfo
}

// BufferedVertexStreams are the streams read from one vertex buffer.
type BufferedVertexStreams struct {
	BufferName string
	Buffer     *Buffer
	Streams    []VertexStreamInfo
}

// VertexStreamInfo places a stream at a semantic and attribute index.
type VertexStreamInfo struct {
	Semantic string
	Index    int
	Stream   *VertexStream
}

// PrimitiveStreamsInfo holds the draws of one primitive semantic.
type PrimitiveStreamsInfo struct {
	Buffered []BufferedPrimitiveStreams
	Array    []*PrimitiveStream
}

// BufferedPrimitiveStreams are the indexed draws sharing one index buffer.
type BufferedPrimitiveStreams struct {
	BufferName string
	Buffer     *Buffer
	Streams    []*PrimitiveStream
}

// Technique returns the info for part/chunk/technique.
func (rd *RenderData) Technique(part, chunk, technique string) (*TechniqueInfo, bool) {
	if rd == nil {
		return nil, false
	}
	info, ok := rd.PartMap[part][chunk][technique]
	return info, ok
}

// DanglingReference is a name that points at nothing.
type DanglingReference struct {
	// Kind of the missing target: "chunk", "binding", "vertex stream",
	// "primitive stream", "vertex buffer" or "index buffer".
	Kind string
	Name string
	// From locates the reference, e.g. "part body/chunk skin/technique common".
	From string
}

func (r DanglingReference) Error() string {
	return fmt.Sprintf("%s: missing %s %q", r.From, r.Kind, r.Name)
}

// ValidationError reports every dangling reference found in a descriptor.
type ValidationError struct {
	References []DanglingReference
	err        error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: %d dangling references: %v", len(e.References), e.err)
}

// Unwrap returns the individual references as errors.
func (e *ValidationError) Unwrap() []error {
	return multierr.Errors(e.err)
}

type collector struct {
	refs []DanglingReference
	err  error
}

func (c *collector) add(kind, name, from string) {
	ref := DanglingReference{Kind: kind, Name: name, From: from}
	c.refs = append(c.refs, ref)
	c.err = multierr.Append(c.err, ref)
}

func (c *collector) result() error {
	if len(c.refs) == 0 {
		return nil
	}
	return &ValidationError{References: c.refs, err: c.err}
}

// Compile builds the render data of a normalized descriptor.
//
// Parts and techniques are visited in name order, chunks in the order a part
// lists them, semantics in name order. Vertex buffer groups keep the order in
// which their buffer first appears. References to missing records are skipped
// and reported together as a *ValidationError next to the render data.
func Compile(d *Descriptor) (*RenderData, error) {
	rd := &RenderData{PartMap: make(map[string]map[string]map[string]*TechniqueInfo)}
	if d == nil {
		return rd, ErrNoDescriptor
	}

	var c collector
	for _, partName := range sortedKeys(d.Logic.Parts) {
		part := d.Logic.Parts[partName]
		partInfo := make(map[string]map[string]*TechniqueInfo)
		rd.PartMap[partName] = partInfo
		if part == nil {
			continue
		}

		for _, chunkName := range part.Chunks {
			chunk := d.Semantic.Chunks[chunkName]
			if chunk == nil {
				c.add("chunk", chunkName, "part "+partName)
				continue
			}
			chunkInfo := make(map[string]*TechniqueInfo)
			partInfo[chunkName] = chunkInfo

			for _, techName := range sortedKeys(chunk.Techniques) {
				from := fmt.Sprintf("part %s/chunk %s/technique %s", partName, chunkName, techName)
				ct := chunk.Techniques[techName]
				if ct == nil {
					continue
				}
				binding := d.Semantic.Bindings[ct.Binding]
				if binding == nil {
					c.add("binding", ct.Binding, from)
					continue
				}
				chunkInfo[techName] = &TechniqueInfo{
					VertexStreams:    compileVertexStreams(d, binding, from, &c),
					PrimitiveStreams: compilePrimitiveStreams(d, binding, from, &c),
				}
			}
		}
	}
	return rd, c.result()
}

func compileVertexStreams(d *Descriptor, binding *Binding, from string, c *collector) VertexStreams {
	var vs VertexStreams
	var order []string
	buckets := make(map[string][]VertexStreamInfo)

	for _, semantic := range sortedKeys(binding.VertexStreams) {
		for index, streamName := range binding.VertexStreams[semantic] {
			if streamName == "" {
				continue
			}
			stream := d.Access.VertexStreams[streamName]
			if stream == nil {
				c.add("vertex stream", streamName, from+"/semantic "+semantic)
				continue
			}
			info := VertexStreamInfo{Semantic: semantic, Index: index, Stream: stream}
			if stream.Buffer == "" {
				vs.Constant = append(vs.Constant, info)
				continue
			}
			if _, seen := buckets[stream.Buffer]; !seen {
				order = append(order, stream.Buffer)
			}
			buckets[stream.Buffer] = append(buckets[stream.Buffer], info)
		}
	}

	for _, bufferName := range order {
		buf := d.Data.VertexBuffers[bufferName]
		if buf == nil {
			c.add("vertex buffer", bufferName, from)
			continue
		}
		vs.Buffered = append(vs.Buffered, BufferedVertexStreams{
			BufferName: bufferName,
			Buffer:     buf,
			Streams:    buckets[bufferName],
		})
	}
	return vs
}

func compilePrimitiveStreams(d *Descriptor, binding *Binding, from string, c *collector) map[string]*PrimitiveStreamsInfo {
	out := make(map[string]*PrimitiveStreamsInfo, len(binding.PrimitiveStreams))

	for _, semantic := range sortedKeys(binding.PrimitiveStreams) {
		info := &PrimitiveStreamsInfo{}
		out[semantic] = info

		var order []string
		buckets := make(map[string][]*PrimitiveStream)
		for _, streamName := range binding.PrimitiveStreams[semantic] {
			if streamName == "" {
				continue
			}
			stream := d.Access.PrimitiveStreams[streamName]
			if stream == nil {
				c.add("primitive stream", streamName, from+"/semantic "+semantic)
				continue
			}
			if stream.Buffer == "" {
				info.Array = append(info.Array, stream)
				continue
			}
			if _, seen := buckets[stream.Buffer]; !seen {
				order = append(order, stream.Buffer)
			}
			buckets[stream.Buffer] = append(buckets[stream.Buffer], stream)
		}

		for _, bufferName := range order {
			buf := d.Data.IndexBuffers[bufferName]
			if buf == nil {
				c.add("index buffer", bufferName, from+"/semantic "+semantic)
				continue
			}
			info.Buffered = append(info.Buffered, BufferedPrimitiveStreams{
				BufferName: bufferName,
				Buffer:     buf,
				Streams:    buckets[bufferName],
			})
		}
	}
	return out
}

// Validate reports every dangling reference in d, whether or not it is
// reachable from a part.
func Validate(d *Descriptor) error {
	if d == nil {
		return ErrNoDescriptor
	}
	var c collector

	for _, name := range sortedKeys(d.Access.VertexStreams) {
		s := d.Access.VertexStreams[name]
		if s != nil && s.Buffer != "" && d.Data.VertexBuffers[s.Buffer] == nil {
			c.add("vertex buffer", s.Buffer, "vertex stream "+name)
		}
	}
	for _, name := range sortedKeys(d.Access.PrimitiveStreams) {
		s := d.Access.PrimitiveStreams[name]
		if s != nil && s.Buffer != "" && d.Data.IndexBuffers[s.Buffer] == nil {
			c.add("index buffer", s.Buffer, "primitive stream "+name)
		}
	}
	for _, name := range sortedKeys(d.Semantic.Bindings) {
		b := d.Semantic.Bindings[name]
		if b == nil {
			continue
		}
		for _, semantic := range sortedKeys(b.VertexStreams) {
			for _, stream := range b.VertexStreams[semantic] {
				if stream != "" && d.Access.VertexStreams[stream] == nil {
					c.add("vertex stream", stream, "binding "+name+"/semantic "+semantic)
				}
			}
		}
		for _, semantic := range sortedKeys(b.PrimitiveStreams) {
			for _, stream := range b.PrimitiveStreams[semantic] {
				if stream != "" && d.Access.PrimitiveStreams[stream] == nil {
					c.add("primitive stream", stream, "binding "+name+"/semantic "+semantic)
				}
			}
		}
	}
	for _, name := range sortedKeys(d.Semantic.Chunks) {
		ch := d.Semantic.Chunks[name]
		if ch == nil {
			continue
		}
		for _, tech := range sortedKeys(ch.Techniques) {
			ct := ch.Techniques[tech]
			if ct != nil && d.Semantic.Bindings[ct.Binding] == nil {
				c.add("binding", ct.Binding, "chunk "+name+"/technique "+tech)
			}
		}
	}
	for _, name := range sortedKeys(d.Logic.Parts) {
		p := d.Logic.Parts[name]
		if p == nil {
			continue
		}
		for _, chunk := range p.Chunks {
			if d.Semantic.Chunks[chunk] == nil {
				c.add("chunk", chunk, "part "+name)
			}
		}
	}
	return c.result()
}
