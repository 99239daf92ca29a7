// Package framebuffer provides framebuffer and renderbuffer wrappers for
// offscreen rendering.
package framebuffer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/texture"
)

// ErrIncomplete is returned when the attachments do not form a complete framebuffer.
var ErrIncomplete = errors.New("framebuffer incomplete")

// DefaultClearMask clears color, depth and stencil.
const DefaultClearMask = glctx.ColorBufferBit | glctx.DepthBufferBit | glctx.StencilBufferBit

// RenderTarget is a texture or renderbuffer that can back an attachment.
type RenderTarget interface {
	Handle() uint32
	Size() (width, height int32)
}

// Attachment names an attachment point.
type Attachment int

// Attachment points.
const (
	Color Attachment = iota
	Depth
	Stencil
	DepthStencil
)

func (a Attachment) String() string {
	switch a {
	case Color:
		return "color"
	case Depth:
		return "depth"
	case Stencil:
		return "stencil"
	case DepthStencil:
		return "depthStencil"
	default:
		return fmt.Sprintf("Attachment(%d)", int(a))
	}
}

func (a Attachment) gl() glctx.Enum {
	switch a {
	case Depth:
		return glctx.DepthAttachment
	case Stencil:
		return glctx.StencilAttachment
	case DepthStencil:
		return glctx.DepthStencilAttachment
	default:
		return glctx.ColorAttachment0
	}
}

// Attachments describes attachment changes. A present key with a nil target
// detaches that point; absent keys are left alone. Depth, Stencil and
// DepthStencil are exclusive: setting one detaches the other two, with
// DepthStencil taking precedence over Depth, and Depth over Stencil.
type Attachments map[Attachment]RenderTarget

type resource interface {
	Destroy()
	Resize(width, height int32)
}

// Framebuffer manages a framebuffer object and its attachments.
type Framebuffer struct {
	ctx          glctx.Context
	handle       uint32
	attachments  map[Attachment]RenderTarget
	status       glctx.Enum
	autoViewport bool
	viewport     [4]int32
	owned        []resource
}

// New creates a framebuffer with the given initial attachments.
// Auto viewport is enabled. On ErrIncomplete the framebuffer is still returned.
func New(ctx glctx.Context, attachments Attachments) (*Framebuffer, error) {
	h := ctx.CreateFramebuffer()
	if h == 0 {
		return nil, fmt.Errorf("creating framebuffer: native creation failed")
	}
	fb := &Framebuffer{
		ctx:          ctx,
		handle:       h,
		attachments:  make(map[Attachment]RenderTarget),
		autoViewport: true,
		viewport:     [4]int32{0, 0, 1, 1},
	}
	ctx.Registry().Register(glctx.Object{Kind: glctx.KindFramebuffer, Handle: h}, fb)

	if len(attachments) > 0 {
		return fb, fb.SetAttachments(attachments)
	}

	ctx.BindFramebuffer(h)
	fb.status = ctx.CheckFramebufferStatus()
	ctx.BindFramebuffer(0)
	return fb, nil
}

// NewOffscreen creates a framebuffer with an RGBA8 color texture and a
// 24-bit depth renderbuffer, both owned and destroyed with the framebuffer.
func NewOffscreen(ctx glctx.Context, width, height int32) (*Framebuffer, error) {
	width, height = max(width, 1), max(height, 1)

	color, err := texture.New2D(ctx, width, height, texture.Options{})
	if err != nil {
		return nil, fmt.Errorf("creating framebuffer color target: %w", err)
	}
	depth, err := NewRenderbuffer(ctx, glctx.DepthComponent24, width, height)
	if err != nil {
		color.Destroy()
		return nil, fmt.Errorf("creating framebuffer depth target: %w", err)
	}

	fb, err := New(ctx, Attachments{Color: color, Depth: depth})
	if fb != nil {
		fb.owned = append(fb.owned, color, depth)
	}
	if err != nil {
		if fb != nil {
			fb.Destroy()
		}
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}
	return fb, nil
}

// Handle returns the native handle, 0 after Destroy.
func (fb *Framebuffer) Handle() uint32 { return fb.handle }

// Status returns the completeness status observed after the last change.
func (fb *Framebuffer) Status() glctx.Enum { return fb.status }

// IsComplete reports whether the framebuffer can be rendered to.
func (fb *Framebuffer) IsComplete() bool { return fb.status == glctx.FramebufferComplete }

// IsEmpty reports whether nothing is attached.
func (fb *Framebuffer) IsEmpty() bool { return len(fb.attachments) == 0 }

// Viewport returns the viewport derived from the last attached target.
func (fb *Framebuffer) Viewport() [4]int32 { return fb.viewport }

// Size returns the viewport dimensions.
func (fb *Framebuffer) Size() (width, height int32) { return fb.viewport[2], fb.viewport[3] }

// AutoViewport reports whether Bind also applies the viewport.
func (fb *Framebuffer) AutoViewport() bool { return fb.autoViewport }

// SetAutoViewport toggles applying the viewport on Bind.
func (fb *Framebuffer) SetAutoViewport(on bool) { fb.autoViewport = on }

// Target returns the render target attached at a, or nil.
func (fb *Framebuffer) Target(a Attachment) RenderTarget { return fb.attachments[a] }

// Targets returns the attached points in order.
func (fb *Framebuffer) Targets() []Attachment {
	out := make([]Attachment, 0, len(fb.attachments))
	for a := range fb.attachments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetAttachments applies attachment changes and re-checks completeness.
// The default framebuffer is bound afterwards.
func (fb *Framebuffer) SetAttachments(atts Attachments) error {
	fb.ctx.BindFramebuffer(fb.handle)

	if rt, ok := atts[Color]; ok {
		fb.set(Color, rt)
	}
	if rt, ok := atts[DepthStencil]; ok {
		fb.set(Depth, nil)
		fb.set(Stencil, nil)
		fb.set(DepthStencil, rt)
	} else if rt, ok := atts[Depth]; ok {
		fb.set(DepthStencil, nil)
		fb.set(Stencil, nil)
		fb.set(Depth, rt)
	} else if rt, ok := atts[Stencil]; ok {
		fb.set(DepthStencil, nil)
		fb.set(Depth, nil)
		fb.set(Stencil, rt)
	}

	fb.status = fb.ctx.CheckFramebufferStatus()
	fb.ctx.BindFramebuffer(0)

	if fb.IsEmpty() || fb.IsComplete() {
		return nil
	}
	return fmt.Errorf("%w: 0x%x", ErrIncomplete, uint32(fb.status))
}

func (fb *Framebuffer) set(a Attachment, rt RenderTarget) {
	if rt == nil {
		old, ok := fb.attachments[a]
		if !ok {
			return
		}
		if _, isRB := old.(*Renderbuffer); isRB {
			fb.ctx.FramebufferRenderbuffer(a.gl(), 0)
		} else {
			fb.ctx.FramebufferTexture2D(a.gl(), glctx.Texture2D, 0)
		}
		delete(fb.attachments, a)
		return
	}

	if _, isRB := rt.(*Renderbuffer); isRB {
		fb.ctx.FramebufferRenderbuffer(a.gl(), rt.Handle())
	} else {
		fb.ctx.FramebufferTexture2D(a.gl(), glctx.Texture2D, rt.Handle())
	}
	fb.attachments[a] = rt
	w, h := rt.Size()
	fb.viewport = [4]int32{0, 0, max(w, 1), max(h, 1)}
}

// SetColorTarget attaches rt as the color target.
func (fb *Framebuffer) SetColorTarget(rt RenderTarget) error {
	return fb.SetAttachments(Attachments{Color: rt})
}

// SetDepthTarget attaches rt as the depth target.
func (fb *Framebuffer) SetDepthTarget(rt RenderTarget) error {
	return fb.SetAttachments(Attachments{Depth: rt})
}

// SetStencilTarget attaches rt as the stencil target.
func (fb *Framebuffer) SetStencilTarget(rt RenderTarget) error {
	return fb.SetAttachments(Attachments{Stencil: rt})
}

// SetDepthStencilTarget attaches rt as the combined depth-stencil target.
func (fb *Framebuffer) SetDepthStencilTarget(rt RenderTarget) error {
	return fb.SetAttachments(Attachments{DepthStencil: rt})
}

// DetachAll removes every attachment.
func (fb *Framebuffer) DetachAll() {
	if fb.IsEmpty() {
		return
	}
	_ = fb.SetAttachments(Attachments{Color: nil, DepthStencil: nil})
}

// Bind makes this framebuffer the current render target, applying the
// viewport when auto viewport is on.
func (fb *Framebuffer) Bind() {
	fb.BindViewport(fb.autoViewport)
}

// BindViewport binds the framebuffer and optionally applies its viewport.
func (fb *Framebuffer) BindViewport(setViewport bool) {
	fb.ctx.BindFramebuffer(fb.handle)
	if setViewport {
		fb.ApplyViewport()
	}
}

// Unbind restores the default framebuffer.
func (fb *Framebuffer) Unbind() {
	fb.ctx.BindFramebuffer(0)
}

// ApplyViewport sets the native viewport to the framebuffer's.
func (fb *Framebuffer) ApplyViewport() {
	vp := fb.viewport
	fb.ctx.Viewport(vp[0], vp[1], vp[2], vp[3])
}

// Clear binds the framebuffer and clears the buffers selected by mask.
func (fb *Framebuffer) Clear(mask glctx.Enum) {
	if mask == 0 {
		mask = DefaultClearMask
	}
	fb.ctx.BindFramebuffer(fb.handle)
	fb.ctx.Clear(mask)
}

// ReadPixels reads RGBA bytes from the framebuffer. Negative dimensions
// select the viewport size. The default framebuffer is bound afterwards.
func (fb *Framebuffer) ReadPixels(x, y, width, height int32) []byte {
	if width < 0 {
		width = fb.viewport[2]
	}
	if height < 0 {
		height = fb.viewport[3]
	}
	fb.ctx.BindFramebuffer(fb.handle)
	pixels := fb.ctx.ReadPixels(x, y, width, height)
	fb.ctx.BindFramebuffer(0)
	return pixels
}

// Resize reallocates owned targets. Targets attached by the caller are the
// caller's to resize.
func (fb *Framebuffer) Resize(width, height int32) {
	width, height = max(width, 1), max(height, 1)
	if width == fb.viewport[2] && height == fb.viewport[3] {
		return
	}
	for _, o := range fb.owned {
		o.Resize(width, height)
	}
	fb.viewport = [4]int32{0, 0, width, height}
}

// Destroy releases the framebuffer and every owned target.
func (fb *Framebuffer) Destroy() {
	if fb.handle != 0 {
		fb.ctx.Registry().Forget(glctx.Object{Kind: glctx.KindFramebuffer, Handle: fb.handle})
		fb.ctx.DeleteFramebuffer(fb.handle)
		fb.handle = 0
	}
	for _, o := range fb.owned {
		o.Destroy()
	}
	fb.owned = nil
	fb.attachments = make(map[Attachment]RenderTarget)
}
