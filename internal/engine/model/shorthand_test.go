package model

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/modelgl/pkg/gltype"
)

func triangleShorthand() *Shorthand {
	return &Shorthand{
		Vertices: map[string]ShorthandVertex{
			"position": {Data: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}},
		},
		Primitives: Primitives("triangles"),
	}
}

func TestExpandShorthand_Triangle(t *testing.T) {
	d, err := ExpandShorthand(triangleShorthand())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.Data.VertexBuffers) != 1 {
		t.Fatalf("expected 1 vertex buffer, got %d", len(d.Data.VertexBuffers))
	}
	vb := d.Data.VertexBuffers["positionVertexBuffer"]
	if vb == nil || len(vb.UntypedArray) != 9 || vb.Type != gltype.Float32 {
		t.Fatalf("unexpected vertex buffer: %+v", vb)
	}
	if len(d.Data.IndexBuffers) != 0 {
		t.Errorf("expected no index buffer, got %d", len(d.Data.IndexBuffers))
	}

	pos := d.Access.VertexStreams["position"]
	if pos == nil || pos.Size != 3 || pos.Buffer != "positionVertexBuffer" {
		t.Fatalf("unexpected position stream: %+v", pos)
	}
	b := d.Semantic.Bindings[MainBinding]
	if b == nil {
		t.Fatal("expected mainBinding")
	}
	if !reflect.DeepEqual(b.VertexStreams["POSITION"], Names{"position"}) {
		t.Errorf("expected POSITION bound to position, got %v", b.VertexStreams["POSITION"])
	}
	if !reflect.DeepEqual(b.PrimitiveStreams["FILL"], Names{"triangles"}) {
		t.Errorf("expected FILL bound to triangles, got %v", b.PrimitiveStreams["FILL"])
	}

	tris := d.Access.PrimitiveStreams["triangles"]
	if tris == nil || tris.Mode != gltype.Triangles || tris.Count != 3 || tris.IsIndexed() {
		t.Fatalf("unexpected triangles stream: %+v", tris)
	}

	if ct := d.Semantic.Chunks[MainChunk].Techniques[CommonTechnique]; ct == nil || ct.Binding != MainBinding {
		t.Errorf("expected mainChunk common technique on mainBinding, got %+v", ct)
	}
	if !reflect.DeepEqual(d.Logic.Parts[MainPart].Chunks, Names{MainChunk}) {
		t.Errorf("expected mainPart with mainChunk, got %v", d.Logic.Parts[MainPart].Chunks)
	}

	rd, err := Compile(d)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	info, ok := rd.Technique(MainPart, MainChunk, CommonTechnique)
	if !ok {
		t.Fatal("expected render data for mainPart/mainChunk/common")
	}
	if len(info.VertexStreams.Buffered) != 1 {
		t.Errorf("expected 1 buffered vertex group, got %d", len(info.VertexStreams.Buffered))
	}
	fill := info.PrimitiveStreams["FILL"]
	if fill == nil || len(fill.Array) != 1 || len(fill.Buffered) != 0 {
		t.Errorf("expected 1 array primitive stream, got %+v", fill)
	}
}

func TestExpandShorthand_CountConsistency(t *testing.T) {
	s := &Shorthand{
		Vertices: map[string]ShorthandVertex{
			"position": {Data: make([]float64, 3*5)},
			"normal":   {Data: make([]float64, 3*5)},
			"texcoord": {Data: make([]float64, 2*5)},
		},
		Primitives: Primitives("points"),
	}
	d, err := ExpandShorthand(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Access.PrimitiveStreams["points"].Count; got != 5 {
		t.Errorf("expected count 5, got %d", got)
	}
}

func TestExpandShorthand_CountTruncation(t *testing.T) {
	tests := []struct {
		name string
		v    ShorthandVertex
		want int
	}{
		{"untyped", ShorthandVertex{Data: make([]float64, 10)}, 3},
		{"typed", ShorthandVertex{TypedData: ptr(gltype.NewArray(make([]float32, 10)))}, 3},
		{"typed bytes", ShorthandVertex{TypedData: ptr(gltype.NewArray(make([]uint8, 7))), Size: 2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ExpandShorthand(&Shorthand{
				Vertices:   map[string]ShorthandVertex{"position": tt.v},
				Primitives: Primitives("triangles"),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := d.Access.PrimitiveStreams["triangles"].Count; got != tt.want {
				t.Errorf("expected count %d, got %d", tt.want, got)
			}
		})
	}
}

func TestExpandShorthand_MinimumBufferedCount(t *testing.T) {
	d, err := ExpandShorthand(&Shorthand{
		Vertices: map[string]ShorthandVertex{
			"position": {Data: make([]float64, 3*6)},
			"normal":   {Data: make([]float64, 3*4)},
			"color":    {Value: []float32{255, 0, 0, 255}},
		},
		Primitives: Primitives("lines"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Access.PrimitiveStreams["lines"].Count; got != 4 {
		t.Errorf("expected count 4, got %d", got)
	}
	color := d.Access.VertexStreams["color"]
	if !color.IsConstant() || color.Size != 4 || color.Type != gltype.Uint8 || !color.Normalized {
		t.Errorf("unexpected color stream: %+v", color)
	}
	if got := color.Value4(); got != [4]float32{255, 0, 0, 255} {
		t.Errorf("expected color value [255 0 0 255], got %v", got)
	}
	if !reflect.DeepEqual(d.Semantic.Bindings[MainBinding].PrimitiveStreams["LINE"], Names{"lines"}) {
		t.Errorf("expected LINE semantic for lines")
	}
}

func TestExpandShorthand_ConstantOnly(t *testing.T) {
	d, err := ExpandShorthand(&Shorthand{
		Vertices:   map[string]ShorthandVertex{"position": {}},
		Primitives: Primitives("points"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Access.PrimitiveStreams["points"].Count; got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
	if len(d.Data.VertexBuffers) != 0 {
		t.Errorf("expected no vertex buffers, got %d", len(d.Data.VertexBuffers))
	}
}

func checkEmptyBuffered(t *testing.T, d *Descriptor) {
	t.Helper()
	vb, ok := d.Data.VertexBuffers["positionVertexBuffer"]
	if !ok {
		t.Fatal("expected positionVertexBuffer for an empty array")
	}
	if vb.Len() != 0 {
		t.Errorf("expected empty buffer, got %d elements", vb.Len())
	}
	if s := d.Access.VertexStreams["position"]; s.IsConstant() || s.Buffer != "positionVertexBuffer" {
		t.Errorf("expected buffered position stream, got %+v", s)
	}
	if s := d.Access.VertexStreams["color"]; !s.IsConstant() {
		t.Errorf("expected constant color stream, got %+v", s)
	}
	if got := d.Access.PrimitiveStreams["triangles"].Count; got != 0 {
		t.Errorf("expected count 0, got %d", got)
	}
}

func TestExpandShorthand_EmptyArrayIsBuffered(t *testing.T) {
	d, err := ExpandShorthand(&Shorthand{
		Vertices: map[string]ShorthandVertex{
			"position": {Data: []float64{}},
			"color":    {Value: []float32{1, 0, 0, 1}},
		},
		Primitives: Primitives("triangles"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkEmptyBuffered(t, d)
}

func TestExpandShorthand_IndexedCountOverride(t *testing.T) {
	tests := []struct {
		name  string
		prim  ShorthandPrimitive
		count int
		typ   gltype.Type
	}{
		{"no caller count", ShorthandPrimitive{Data: []float64{0, 1, 2, 2, 1, 0}}, 6, gltype.Uint16},
		{"caller count ignored", ShorthandPrimitive{Data: []float64{0, 1, 2}, Count: 42}, 3, gltype.Uint16},
		{"typed", ShorthandPrimitive{TypedData: ptr(gltype.NewArray([]uint32{0, 1, 2, 0}))}, 4, gltype.Uint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ExpandShorthand(&Shorthand{
				Vertices:   map[string]ShorthandVertex{"position": {Data: make([]float64, 9)}},
				Primitives: ShorthandPrimitives{"triangles": tt.prim},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s := d.Access.PrimitiveStreams["triangles"]
			if s.Count != tt.count {
				t.Errorf("expected count %d, got %d", tt.count, s.Count)
			}
			if s.Buffer != "trianglesIndexBuffer" || s.Type != tt.typ {
				t.Errorf("unexpected indexed stream: %+v", s)
			}
			if d.Data.IndexBuffers["trianglesIndexBuffer"] == nil {
				t.Error("expected index buffer")
			}
		})
	}
}

func TestExpandShorthand_UserKeysAndIndex(t *testing.T) {
	d, err := ExpandShorthand(&Shorthand{
		Vertices: map[string]ShorthandVertex{
			"tangent": {Data: make([]float64, 9)},
			"uv1":     {Data: make([]float64, 6), Size: 2, Semantic: "TEXCOORD", Index: 2},
		},
		Primitives: ShorthandPrimitives{"custom": {}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := d.Semantic.Bindings[MainBinding]
	if !reflect.DeepEqual(b.VertexStreams["TANGENT"], Names{"tangent"}) {
		t.Errorf("expected TANGENT semantic, got %v", b.VertexStreams)
	}
	if !reflect.DeepEqual(b.VertexStreams["TEXCOORD"], Names{"", "", "uv1"}) {
		t.Errorf("expected uv1 at index 2 with holes, got %v", b.VertexStreams["TEXCOORD"])
	}
	custom := d.Access.PrimitiveStreams["custom"]
	if custom.Mode != gltype.Triangles || custom.Count != 3 {
		t.Errorf("unexpected user primitive: %+v", custom)
	}
	if !reflect.DeepEqual(b.PrimitiveStreams["FILL"], Names{"custom"}) {
		t.Errorf("expected FILL semantic for user primitive, got %v", b.PrimitiveStreams)
	}
}

func TestPrimitives_DropsUnknownNames(t *testing.T) {
	p := Primitives("triangles", "quads", "lineLoop")
	if len(p) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(p))
	}
	if _, ok := p["quads"]; ok {
		t.Error("expected unknown name to be dropped")
	}
}

func TestExpandShorthand_Nil(t *testing.T) {
	if _, err := ExpandShorthand(nil); !errors.Is(err, ErrNilShorthand) {
		t.Errorf("expected ErrNilShorthand, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
