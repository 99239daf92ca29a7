package renderer

import (
	"fmt"

	"github.com/Faultbox/modelgl/internal/engine/framebuffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// SetFramebuffer selects the render target, nil for the default framebuffer.
// The internal offscreen framebuffer is detached on every call.
func (r *ModelRenderer) SetFramebuffer(fb *framebuffer.Framebuffer) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	r.offscr.DetachAll()
	if r.framebuffer == fb {
		return nil
	}
	r.framebuffer = fb
	r.mark(DirtyFramebuffer | DirtyViewport)
	if fb == nil {
		r.ctx.BindFramebuffer(0)
	}
	return nil
}

// ActivateOffscreenFramebuffer selects the internal framebuffer. Attach
// targets to it with the Set*RenderTarget methods.
func (r *ModelRenderer) ActivateOffscreenFramebuffer() error {
	return r.SetFramebuffer(r.offscr)
}

// ActivateMainFramebuffer selects the default framebuffer.
func (r *ModelRenderer) ActivateMainFramebuffer() error {
	return r.SetFramebuffer(nil)
}

func (r *ModelRenderer) selectedFramebuffer() (*framebuffer.Framebuffer, error) {
	if !r.inBegin {
		return nil, ErrNotInBegin
	}
	if r.framebuffer == nil {
		return nil, ErrNoFramebuffer
	}
	return r.framebuffer, nil
}

func (r *ModelRenderer) attach(atts framebuffer.Attachments) error {
	fb, err := r.selectedFramebuffer()
	if err != nil {
		return err
	}
	r.mark(DirtyFramebuffer | DirtyViewport)
	if err := fb.SetAttachments(atts); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	return nil
}

// SetFramebufferAttachments changes the attachments of the selected framebuffer.
func (r *ModelRenderer) SetFramebufferAttachments(atts framebuffer.Attachments) error {
	return r.attach(atts)
}

// SetColorRenderTarget attaches rt as the color target of the selected framebuffer.
func (r *ModelRenderer) SetColorRenderTarget(rt framebuffer.RenderTarget) error {
	return r.attach(framebuffer.Attachments{framebuffer.Color: rt})
}

// SetDepthRenderTarget attaches rt as the depth target of the selected framebuffer.
func (r *ModelRenderer) SetDepthRenderTarget(rt framebuffer.RenderTarget) error {
	return r.attach(framebuffer.Attachments{framebuffer.Depth: rt})
}

// SetStencilRenderTarget attaches rt as the stencil target of the selected framebuffer.
func (r *ModelRenderer) SetStencilRenderTarget(rt framebuffer.RenderTarget) error {
	return r.attach(framebuffer.Attachments{framebuffer.Stencil: rt})
}

// SetDepthStencilRenderTarget attaches rt as the depth-stencil target of the selected framebuffer.
func (r *ModelRenderer) SetDepthStencilRenderTarget(rt framebuffer.RenderTarget) error {
	return r.attach(framebuffer.Attachments{framebuffer.DepthStencil: rt})
}

// ClearFramebuffer clears the buffers in mask on the selected framebuffer.
// A zero mask does nothing.
func (r *ModelRenderer) ClearFramebuffer(mask glctx.Enum) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if mask == 0 {
		return nil
	}
	if r.framebuffer != nil {
		r.framebuffer.Clear(mask)
		return nil
	}
	r.ctx.Clear(mask)
	return nil
}

// ClearFramebufferValues sets the clear registers of the non-nil fields and
// clears the matching buffers in one call.
func (r *ModelRenderer) ClearFramebufferValues(v ClearValues) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	var mask glctx.Enum
	if c := v.Color; c != nil {
		r.ctx.ClearColor(c[0], c[1], c[2], c[3])
		mask |= glctx.ColorBufferBit
	}
	if v.Depth != nil {
		r.ctx.ClearDepth(*v.Depth)
		mask |= glctx.DepthBufferBit
	}
	if v.Stencil != nil {
		r.ctx.ClearStencil(*v.Stencil)
		mask |= glctx.StencilBufferBit
	}
	return r.ClearFramebuffer(mask)
}
