package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Faultbox/modelgl/internal/engine/buffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/glctx/glctxtest"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

func TestNew_UploadsBuffers(t *testing.T) {
	rec := glctxtest.New()
	m, err := NewFromShorthand(rec, &Shorthand{
		Vertices:   map[string]ShorthandVertex{"position": {Data: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0}}},
		Primitives: ShorthandPrimitives{"triangles": {Data: []float64{0, 1, 2}}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vb := m.Descriptor().Data.VertexBuffers["positionVertexBuffer"]
	if !vb.GLBuffer().IsValid() || vb.VertexBuffer() == nil {
		t.Fatal("expected a native vertex buffer")
	}
	if got := len(rec.BufferContents(vb.GLBuffer().Handle())); got != 9*4 {
		t.Errorf("expected 36 uploaded bytes, got %d", got)
	}
	if vb.TypedArray == nil || vb.TypedArray.Type != gltype.Float32 {
		t.Errorf("expected typed array materialized, got %+v", vb.TypedArray)
	}

	ib := m.Descriptor().Data.IndexBuffers["trianglesIndexBuffer"]
	if ib.IndexBuffer() == nil || ib.IndexBuffer().Target() != glctx.ElementArrayBuffer {
		t.Fatal("expected a native index buffer")
	}
	if got := len(rec.BufferContents(ib.GLBuffer().Handle())); got != 3*2 {
		t.Errorf("expected 6 uploaded bytes, got %d", got)
	}

	tris := m.Descriptor().Access.PrimitiveStreams["triangles"]
	if tris.GLType() != glctx.UnsignedShort || tris.GLMode() != glctx.Triangles {
		t.Errorf("unexpected stream annotation: %#x %#x", uint32(tris.GLType()), uint32(tris.GLMode()))
	}
	if m.RenderData() == nil {
		t.Fatal("expected render data")
	}
	if m.Context() != rec {
		t.Error("expected model to remember its context")
	}
}

func TestNew_WithoutContextStillCompiles(t *testing.T) {
	m, err := New(nil, &Descriptor{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.RenderData() == nil || m.Version() == 0 {
		t.Error("expected compiled render data and a version")
	}
}

func TestUpdateGL_ReplacesBuffers(t *testing.T) {
	rec := glctxtest.New()
	m, err := NewFromShorthand(rec, triangleShorthand(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vb := m.Descriptor().Data.VertexBuffers["positionVertexBuffer"]
	old := vb.GLBuffer().Handle()
	before := m.Version()

	if err := m.UpdateGL(rec, BufferOptions{Usage: glctx.DynamicDraw}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Has(fmt.Sprintf("DeleteBuffer(%d)", old)) {
		t.Errorf("expected old buffer %d deleted, calls: %v", old, rec.Calls)
	}
	if vb.GLBuffer().Handle() == old {
		t.Error("expected a new native buffer")
	}
	if vb.GLBuffer().Usage() != glctx.DynamicDraw {
		t.Errorf("expected dynamic usage, got %#x", uint32(vb.GLBuffer().Usage()))
	}
	if m.Version() <= before {
		t.Errorf("expected version to increase from %d, got %d", before, m.Version())
	}
}

func TestUpdateGL_Preconditions(t *testing.T) {
	m, _ := New(nil, &Descriptor{}, Options{})
	if err := m.UpdateGL(nil, BufferOptions{}); !errors.Is(err, ErrNoContext) {
		t.Errorf("expected ErrNoContext, got %v", err)
	}

	var empty Model
	if err := empty.UpdateGL(glctxtest.New(), BufferOptions{}); !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("expected ErrNoDescriptor, got %v", err)
	}
	if err := empty.UpdateRenderData(); !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("expected ErrNoDescriptor, got %v", err)
	}
	if err := empty.UpdateTypedArrays(); !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("expected ErrNoDescriptor, got %v", err)
	}
}

func TestUpdateGL_CreateFailure(t *testing.T) {
	rec := glctxtest.New()
	rec.FailCreateBuffer = true

	_, err := NewFromShorthand(rec, triangleShorthand(), Options{})
	if !errors.Is(err, buffer.ErrCreateFailed) {
		t.Errorf("expected buffer.ErrCreateFailed, got %v", err)
	}
}

func TestUpdateRenderData_BumpsVersion(t *testing.T) {
	m, _ := NewFromShorthand(nil, triangleShorthand(), Options{})
	v := m.Version()
	old := m.RenderData()

	if err := m.UpdateRenderData(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Version() != v+1 {
		t.Errorf("expected version %d, got %d", v+1, m.Version())
	}
	if m.RenderData() == old {
		t.Error("expected render data to be replaced")
	}
}

func TestUpdateRenderData_ReportsDangling(t *testing.T) {
	d := interleavedDescriptor()
	d.Logic.Parts["p"].Chunks = Names{"ghost"}

	m, err := New(nil, d, Options{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if m == nil || m.RenderData() == nil {
		t.Error("expected model and render data despite dangling references")
	}
}

func TestDestroy(t *testing.T) {
	rec := glctxtest.New()
	m, err := NewFromShorthand(rec, &Shorthand{
		Vertices:   map[string]ShorthandVertex{"position": {Data: make([]float64, 9)}},
		Primitives: ShorthandPrimitives{"triangles": {Data: []float64{0, 1, 2}}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Destroy()
	if n := rec.Count("DeleteBuffer"); n != 2 {
		t.Errorf("expected 2 deleted buffers, got %d", n)
	}
	if m.Descriptor().Data.VertexBuffers["positionVertexBuffer"].GLBuffer() != nil {
		t.Error("expected native buffer to be released")
	}
	if rec.Registry().Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", rec.Registry().Len())
	}
}

func TestUpdateTypedArrays(t *testing.T) {
	m, _ := New(nil, &Descriptor{Data: Data{
		VertexBuffers: map[string]*Buffer{"vb": {Type: gltype.Int16, UntypedArray: []float64{-1, 2, 3}}},
	}}, Options{})

	if err := m.UpdateTypedArrays(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr := m.Descriptor().Data.VertexBuffers["vb"].TypedArray
	if arr == nil || arr.Type != gltype.Int16 || arr.Len() != 3 {
		t.Fatalf("unexpected typed array: %+v", arr)
	}
	if got := arr.Values(); got[0] != -1 || got[2] != 3 {
		t.Errorf("unexpected values %v", got)
	}
}
