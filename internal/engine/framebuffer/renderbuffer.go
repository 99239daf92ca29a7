package framebuffer

import (
	"fmt"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// Renderbuffer is a native renderbuffer object.
type Renderbuffer struct {
	ctx    glctx.Context
	handle uint32
	format glctx.Enum
	width  int32
	height int32
}

// NewRenderbuffer allocates a renderbuffer with the given internal format.
func NewRenderbuffer(ctx glctx.Context, format glctx.Enum, width, height int32) (*Renderbuffer, error) {
	h := ctx.CreateRenderbuffer()
	if h == 0 {
		return nil, fmt.Errorf("renderbuffer: native creation failed")
	}
	rb := &Renderbuffer{ctx: ctx, handle: h, format: format}
	rb.storage(max(width, 1), max(height, 1))
	ctx.Registry().Register(glctx.Object{Kind: glctx.KindRenderbuffer, Handle: h}, rb)
	return rb, nil
}

func (rb *Renderbuffer) storage(width, height int32) {
	rb.width, rb.height = width, height
	rb.ctx.BindRenderbuffer(rb.handle)
	rb.ctx.RenderbufferStorage(rb.format, width, height)
	rb.ctx.BindRenderbuffer(0)
}

func (rb *Renderbuffer) Handle() uint32              { return rb.handle }
func (rb *Renderbuffer) Format() glctx.Enum          { return rb.format }
func (rb *Renderbuffer) Size() (width, height int32) { return rb.width, rb.height }

// Resize reallocates the storage.
func (rb *Renderbuffer) Resize(width, height int32) {
	if width == rb.width && height == rb.height {
		return
	}
	rb.storage(max(width, 1), max(height, 1))
}

// Destroy deletes the native object.
func (rb *Renderbuffer) Destroy() {
	if rb.handle == 0 {
		return
	}
	rb.ctx.Registry().Forget(glctx.Object{Kind: glctx.KindRenderbuffer, Handle: rb.handle})
	rb.ctx.DeleteRenderbuffer(rb.handle)
	rb.handle = 0
}
