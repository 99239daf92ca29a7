package framebuffer

import (
	"errors"
	"testing"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/glctx/glctxtest"
	"github.com/Faultbox/modelgl/internal/engine/texture"
)

func TestNewOffscreen(t *testing.T) {
	rec := glctxtest.New()
	fb, err := NewOffscreen(rec, 320, 240)
	if err != nil {
		t.Fatalf("NewOffscreen failed: %v", err)
	}
	if !fb.IsComplete() {
		t.Error("expected complete framebuffer")
	}
	if got := fb.Viewport(); got != [4]int32{0, 0, 320, 240} {
		t.Errorf("expected viewport [0 0 320 240], got %v", got)
	}
	if fb.Target(Color) == nil || fb.Target(Depth) == nil {
		t.Errorf("expected color and depth targets, got %v", fb.Targets())
	}
	if rec.BoundFramebuffer != 0 {
		t.Errorf("expected default framebuffer bound after creation, got %d", rec.BoundFramebuffer)
	}

	fb.Destroy()
	if rec.Count("DeleteFramebuffer") != 1 || rec.Count("DeleteTexture") != 1 || rec.Count("DeleteRenderbuffer") != 1 {
		t.Errorf("expected framebuffer and owned targets deleted, got %v", rec.Calls)
	}
	if rec.Registry().Len() != 0 {
		t.Errorf("expected empty registry, got %d", rec.Registry().Len())
	}
}

func TestExclusiveDepthStencil(t *testing.T) {
	rec := glctxtest.New()
	fb, err := New(rec, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	depth, _ := NewRenderbuffer(rec, glctx.DepthComponent16, 64, 64)
	ds, _ := NewRenderbuffer(rec, glctx.Depth24Stencil8, 64, 64)

	if err := fb.SetDepthTarget(depth); err != nil {
		t.Fatalf("SetDepthTarget failed: %v", err)
	}
	if err := fb.SetDepthStencilTarget(ds); err != nil {
		t.Fatalf("SetDepthStencilTarget failed: %v", err)
	}
	if fb.Target(Depth) != nil {
		t.Error("expected depth detached by depth-stencil")
	}
	if fb.Target(DepthStencil) != ds {
		t.Error("expected depth-stencil attached")
	}
}

func TestViewportFollowsTarget(t *testing.T) {
	rec := glctxtest.New()
	fb, _ := New(rec, nil)
	tex, err := texture.New2D(rec, 128, 64, texture.Options{})
	if err != nil {
		t.Fatalf("New2D failed: %v", err)
	}
	if err := fb.SetColorTarget(tex); err != nil {
		t.Fatalf("SetColorTarget failed: %v", err)
	}

	rec.Reset()
	fb.Bind()
	if !rec.Has("Viewport(0, 0, 128, 64)") {
		t.Errorf("expected auto viewport on Bind, got %v", rec.Calls)
	}

	fb.SetAutoViewport(false)
	rec.Reset()
	fb.Bind()
	if rec.Count("Viewport") != 0 {
		t.Errorf("expected no viewport with auto viewport off, got %v", rec.Calls)
	}
}

func TestIncomplete(t *testing.T) {
	rec := glctxtest.New()
	rec.FramebufferStatus = 0x8CD6
	rb, _ := NewRenderbuffer(rec, glctx.RGBA8, 4, 4)

	_, err := New(rec, Attachments{Color: rb})
	if !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}
}

func TestDetachAll(t *testing.T) {
	rec := glctxtest.New()
	fb, err := NewOffscreen(rec, 8, 8)
	if err != nil {
		t.Fatalf("NewOffscreen failed: %v", err)
	}
	fb.DetachAll()
	if !fb.IsEmpty() {
		t.Errorf("expected no attachments, got %v", fb.Targets())
	}
	if !rec.Has("FramebufferTexture2D(0x8ce0, 0xde1, 0)") {
		t.Errorf("expected color detach, got %v", rec.Calls)
	}
	if !rec.Has("FramebufferRenderbuffer(0x8d00, 0)") {
		t.Errorf("expected depth detach, got %v", rec.Calls)
	}
}

func TestReadPixelsDefaultsToViewport(t *testing.T) {
	rec := glctxtest.New()
	fb, _ := NewOffscreen(rec, 4, 2)
	pixels := fb.ReadPixels(0, 0, -1, -1)
	if len(pixels) != 4*2*4 {
		t.Errorf("expected %d bytes, got %d", 4*2*4, len(pixels))
	}
	if !rec.Has("ReadPixels(0, 0, 4, 2)") {
		t.Errorf("expected viewport-sized read, got %v", rec.Calls)
	}
}

func TestResizeOwnedTargets(t *testing.T) {
	rec := glctxtest.New()
	fb, _ := NewOffscreen(rec, 4, 4)
	rec.Reset()

	fb.Resize(16, 8)
	if fb.Viewport() != [4]int32{0, 0, 16, 8} {
		t.Errorf("expected viewport [0 0 16 8], got %v", fb.Viewport())
	}
	if !rec.Has("TexImage2D(0xde1, 16, 8)") {
		t.Errorf("expected color texture realloc, got %v", rec.Calls)
	}
	if !rec.Has("RenderbufferStorage(0x81a6, 16, 8)") {
		t.Errorf("expected depth realloc, got %v", rec.Calls)
	}
}
