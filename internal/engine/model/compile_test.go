package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/modelgl/pkg/gltype"
)

// interleavedDescriptor has two streams in one buffer, a second buffer, a
// constant stream and both indexed and non-indexed draws.
func interleavedDescriptor() *Descriptor {
	return Normalize(&Descriptor{
		Data: Data{
			VertexBuffers: map[string]*Buffer{
				"interleaved": {UntypedArray: make([]float64, 6*4)},
				"colors":      {Type: gltype.Uint8, UntypedArray: make([]float64, 4*4)},
			},
			IndexBuffers: map[string]*Buffer{"ib": {UntypedArray: []float64{0, 1, 2, 2, 3, 0}}},
		},
		Access: Access{
			VertexStreams: map[string]*VertexStream{
				"pos":    {Buffer: "interleaved", Stride: 24},
				"normal": {Buffer: "interleaved", Stride: 24, Offset: 12},
				"color":  {Buffer: "colors", Size: 4, Type: gltype.Uint8, Normalized: true},
				"user":   {Value: []float32{1, 2, 3, 4}},
			},
			PrimitiveStreams: map[string]*PrimitiveStream{
				"front": {Buffer: "ib", Count: 3},
				"back":  {Buffer: "ib", Count: 3, Offset: 6},
				"edges": {Mode: gltype.Lines, Count: 4},
			},
		},
		Semantic: Semantic{
			Bindings: map[string]*Binding{
				"b": {
					VertexStreams: map[string]Names{
						"POSITION": {"pos"},
						"NORMAL":   {"normal"},
						"COLOR":    {"color"},
						"USER":     {"", "user"},
					},
					PrimitiveStreams: map[string]Names{
						"FILL": {"front", "back"},
						"LINE": {"edges"},
					},
				},
			},
			Chunks: map[string]*Chunk{
				"c1": {Techniques: map[string]*ChunkTechnique{"common": {Binding: "b"}, "shaded": {Binding: "b"}}},
				"c2": {Techniques: map[string]*ChunkTechnique{"common": {Binding: "b"}}},
			},
		},
		Logic: Logic{Parts: map[string]*Part{"p": {Chunks: Names{"c2", "c1"}}}},
	})
}

func TestCompile_BufferGrouping(t *testing.T) {
	rd, err := Compile(interleavedDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, chunk := range []string{"c1", "c2"} {
		info, ok := rd.Technique("p", chunk, "common")
		if !ok {
			t.Fatalf("expected technique info for %s", chunk)
		}

		seen := make(map[string]int)
		for _, group := range info.VertexStreams.Buffered {
			seen[group.BufferName]++
			for _, s := range group.Streams {
				if s.Stream.Buffer != group.BufferName {
					t.Errorf("stream %s in bucket %s", s.Stream.Buffer, group.BufferName)
				}
			}
		}
		for name, n := range seen {
			if n != 1 {
				t.Errorf("buffer %s appears in %d buckets", name, n)
			}
		}
		if len(info.VertexStreams.Buffered) != 2 {
			t.Fatalf("expected 2 buffered groups, got %d", len(info.VertexStreams.Buffered))
		}

		// Semantics are visited in name order: COLOR, NORMAL, POSITION, USER.
		first := info.VertexStreams.Buffered[0]
		if first.BufferName != "colors" {
			t.Errorf("expected first bucket 'colors', got %q", first.BufferName)
		}
		second := info.VertexStreams.Buffered[1]
		if len(second.Streams) != 2 || second.Streams[0].Semantic != "NORMAL" || second.Streams[1].Semantic != "POSITION" {
			t.Errorf("unexpected interleaved bucket: %+v", second.Streams)
		}

		if len(info.VertexStreams.Constant) != 1 {
			t.Fatalf("expected 1 constant stream, got %d", len(info.VertexStreams.Constant))
		}
		if c := info.VertexStreams.Constant[0]; c.Semantic != "USER" || c.Index != 1 {
			t.Errorf("expected USER constant at index 1, got %s/%d", c.Semantic, c.Index)
		}

		fill := info.PrimitiveStreams["FILL"]
		if len(fill.Buffered) != 1 || len(fill.Buffered[0].Streams) != 2 || len(fill.Array) != 0 {
			t.Errorf("expected both FILL draws in one index bucket, got %+v", fill)
		}
		line := info.PrimitiveStreams["LINE"]
		if len(line.Array) != 1 || len(line.Buffered) != 0 {
			t.Errorf("expected one array LINE draw, got %+v", line)
		}
	}

	if _, ok := rd.Technique("p", "c1", "shaded"); !ok {
		t.Error("expected the second technique of c1")
	}
	if _, ok := rd.Technique("p", "c2", "shaded"); ok {
		t.Error("expected no shaded technique on c2")
	}
}

func TestCompile_DanglingReferences(t *testing.T) {
	d := interleavedDescriptor()
	d.Logic.Parts["p"].Chunks = append(d.Logic.Parts["p"].Chunks, "missingChunk")
	d.Semantic.Chunks["c2"].Techniques["broken"] = &ChunkTechnique{Binding: "missingBinding"}
	d.Semantic.Bindings["b"].VertexStreams["TANGENT"] = Names{"missingStream"}
	d.Access.VertexStreams["normal"].Buffer = "missingBuffer"

	rd, err := Compile(d)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	kinds := make(map[string]bool)
	for _, ref := range verr.References {
		kinds[ref.Kind+":"+ref.Name] = true
	}
	for _, want := range []string{"chunk:missingChunk", "binding:missingBinding", "vertex stream:missingStream", "vertex buffer:missingBuffer"} {
		if !kinds[want] {
			t.Errorf("expected dangling reference %s, got %v", want, verr.References)
		}
	}
	if len(verr.Unwrap()) != len(verr.References) {
		t.Errorf("expected %d wrapped errors, got %d", len(verr.References), len(verr.Unwrap()))
	}

	info, ok := rd.Technique("p", "c1", "common")
	if !ok {
		t.Fatal("expected render data despite dangling references")
	}
	if len(info.VertexStreams.Buffered) != 2 {
		t.Errorf("expected 2 buffered groups, got %d", len(info.VertexStreams.Buffered))
	}
	if _, ok := rd.Technique("p", "c2", "broken"); ok {
		t.Error("expected technique with missing binding to be skipped")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(interleavedDescriptor()); err != nil {
		t.Errorf("expected valid descriptor, got %v", err)
	}

	d := interleavedDescriptor()
	d.Access.PrimitiveStreams["front"].Buffer = "nope"
	d.Semantic.Bindings["unused"] = &Binding{PrimitiveStreams: map[string]Names{"FILL": {"ghost"}}}

	err := Validate(d)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.References) != 2 {
		t.Errorf("expected 2 references, got %v", verr.References)
	}

	if err := Validate(nil); !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("expected ErrNoDescriptor, got %v", err)
	}
}
