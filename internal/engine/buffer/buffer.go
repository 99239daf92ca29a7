// Package buffer wraps native vertex and index buffer objects.
package buffer

import (
	"errors"
	"fmt"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// ErrCreateFailed is returned when the native API refuses to create a buffer.
var ErrCreateFailed = errors.New("buffer: native buffer creation failed")

// Options configures a new buffer. Data takes precedence over Size.
type Options struct {
	Data  []byte
	Size  int
	Usage glctx.Enum // StaticDraw when zero
}

// Buffer is a native buffer object bound to a fixed target.
type Buffer struct {
	ctx    glctx.Context
	target glctx.Enum
	handle uint32
	size   int
	usage  glctx.Enum
}

func newBuffer(ctx glctx.Context, target glctx.Enum, opts Options) (*Buffer, error) {
	h := ctx.CreateBuffer()
	if h == 0 {
		return nil, ErrCreateFailed
	}
	b := &Buffer{ctx: ctx, target: target, handle: h}
	b.usage = opts.Usage
	if b.usage == 0 {
		b.usage = glctx.StaticDraw
	}

	size := opts.Size
	if opts.Data != nil {
		size = len(opts.Data)
	}
	if size > 0 {
		b.SetData(opts.Data, size)
	}
	return b, nil
}

// Handle returns the native handle, 0 after Destroy.
func (b *Buffer) Handle() uint32 { return b.handle }

// Target returns the binding target.
func (b *Buffer) Target() glctx.Enum { return b.target }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// Usage returns the usage hint the storage was allocated with.
func (b *Buffer) Usage() glctx.Enum { return b.usage }

// IsValid reports whether the native object is still alive.
func (b *Buffer) IsValid() bool { return b != nil && b.handle != 0 }

// SetData reallocates the storage with size bytes, filled from data if non-nil.
func (b *Buffer) SetData(data []byte, size int) {
	if size < len(data) {
		size = len(data)
	}
	b.Bind()
	b.ctx.BufferData(b.target, size, data, b.usage)
	b.size = size
}

// SetSubData replaces part of the storage starting at offset.
func (b *Buffer) SetSubData(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("buffer: sub data [%d, %d) out of range %d", offset, offset+len(data), b.size)
	}
	b.Bind()
	b.ctx.BufferSubData(b.target, offset, data)
	return nil
}

// Bind binds the buffer to its target.
func (b *Buffer) Bind() {
	b.ctx.BindBuffer(b.target, b.handle)
}

// Unbind binds 0 to the buffer's target.
func (b *Buffer) Unbind() {
	b.ctx.BindBuffer(b.target, 0)
}

// Destroy deletes the native object and forgets the wrapper.
func (b *Buffer) Destroy() {
	if b.handle == 0 {
		return
	}
	b.ctx.Registry().Forget(glctx.Object{Kind: glctx.KindBuffer, Handle: b.handle})
	b.ctx.DeleteBuffer(b.handle)
	b.handle = 0
	b.size = 0
}

// VertexBuffer is a buffer bound to ArrayBuffer.
type VertexBuffer struct {
	*Buffer
}

// NewVertex creates a vertex buffer.
func NewVertex(ctx glctx.Context, opts Options) (*VertexBuffer, error) {
	b, err := newBuffer(ctx, glctx.ArrayBuffer, opts)
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	vb := &VertexBuffer{Buffer: b}
	ctx.Registry().Register(glctx.Object{Kind: glctx.KindBuffer, Handle: b.handle}, vb)
	return vb, nil
}

// WrapVertex returns the vertex buffer wrapping handle, creating a wrapper
// of unknown size if the handle was created outside this package.
func WrapVertex(ctx glctx.Context, handle uint32) *VertexBuffer {
	return glctx.Wrap(ctx.Registry(), glctx.Object{Kind: glctx.KindBuffer, Handle: handle}, func() *VertexBuffer {
		return &VertexBuffer{Buffer: &Buffer{ctx: ctx, target: glctx.ArrayBuffer, handle: handle, usage: glctx.StaticDraw}}
	})
}

// VertexAttribPointer binds the buffer and points attribute index at it.
func (vb *VertexBuffer) VertexAttribPointer(index uint32, size int32, xtype glctx.Enum, normalized bool, stride int32, offset int) {
	vb.Bind()
	vb.ctx.VertexAttribPointer(index, size, xtype, normalized, stride, offset)
}

// IndexBuffer is a buffer bound to ElementArrayBuffer.
type IndexBuffer struct {
	*Buffer
}

// NewIndex creates an index buffer.
func NewIndex(ctx glctx.Context, opts Options) (*IndexBuffer, error) {
	b, err := newBuffer(ctx, glctx.ElementArrayBuffer, opts)
	if err != nil {
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	ib := &IndexBuffer{Buffer: b}
	ctx.Registry().Register(glctx.Object{Kind: glctx.KindBuffer, Handle: b.handle}, ib)
	return ib, nil
}

// WrapIndex returns the index buffer wrapping handle.
func WrapIndex(ctx glctx.Context, handle uint32) *IndexBuffer {
	return glctx.Wrap(ctx.Registry(), glctx.Object{Kind: glctx.KindBuffer, Handle: handle}, func() *IndexBuffer {
		return &IndexBuffer{Buffer: &Buffer{ctx: ctx, target: glctx.ElementArrayBuffer, handle: handle, usage: glctx.StaticDraw}}
	})
}

// DrawElements binds the buffer and issues an indexed draw. A count <= 0 draws
// every index stored after offset.
func (ib *IndexBuffer) DrawElements(mode glctx.Enum, count int32, xtype glctx.Enum, offset int) {
	if count <= 0 {
		count = ib.IndexCount(xtype, offset)
	}
	if count <= 0 {
		return
	}
	ib.Bind()
	ib.ctx.DrawElements(mode, count, xtype, offset)
}

// IndexCount returns how many indices of type xtype fit after offset.
func (ib *IndexBuffer) IndexCount(xtype glctx.Enum, offset int) int32 {
	size := indexSize(xtype)
	if size == 0 || offset >= ib.size {
		return 0
	}
	return int32((ib.size - offset) / size)
}

func indexSize(xtype glctx.Enum) int {
	switch xtype {
	case glctx.UnsignedByte:
		return 1
	case glctx.UnsignedShort:
		return 2
	case glctx.UnsignedInt:
		return 4
	default:
		return 0
	}
}
