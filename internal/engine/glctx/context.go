// Package glctx defines the native rendering API consumed by the engine and a
// go-gl backed implementation of it.
//
// Everything above this package (buffers, programs, textures, framebuffers,
// the model renderer) talks to a Context, never to the gl package directly.
package glctx

// ActiveInfo describes an active attribute or uniform of a linked program.
type ActiveInfo struct {
	Name     string
	Size     int32
	Type     Enum
	Location int32
}

// Context is the set of native calls the engine issues.
// All calls are synchronous and must be made from the thread owning the context.
type Context interface {
	// Registry returns the handle registry owning the wrappers created on this context.
	Registry() *Registry

	MaxVertexAttribs() int
	MaxTextureUnits() int

	CreateBuffer() uint32
	DeleteBuffer(h uint32)
	BindBuffer(target Enum, h uint32)
	BufferData(target Enum, size int, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)

	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int)
	VertexAttrib4fv(index uint32, v [4]float32)

	DrawArrays(mode Enum, first, count int32)
	DrawElements(mode Enum, count int32, xtype Enum, offset int)

	// CreateProgram compiles and links a program, binding the given attribute
	// locations before linking. The info log is returned alongside the handle.
	CreateProgram(vertexSrc, fragmentSrc string, attribs map[string]uint32) (uint32, string, error)
	DeleteProgram(h uint32)
	UseProgram(h uint32)
	ActiveAttributes(h uint32) []ActiveInfo
	ActiveUniforms(h uint32) []ActiveInfo
	GetUniformfv(h uint32, location int32, n int) []float32
	GetUniformiv(h uint32, location int32, n int) []int32
	Uniformfv(location int32, components int, v []float32)
	Uniformiv(location int32, components int, v []int32)
	UniformMatrixfv(location int32, dim int, v []float32)

	CreateTexture() uint32
	DeleteTexture(h uint32)
	ActiveTexture(unit int)
	BindTexture(target Enum, h uint32)
	TexImage2D(target Enum, width, height int32, pixels []byte)
	TexParameteri(target, pname Enum, param int32)
	GenerateMipmap(target Enum)

	CreateFramebuffer() uint32
	DeleteFramebuffer(h uint32)
	BindFramebuffer(h uint32)
	FramebufferTexture2D(attachment, texTarget Enum, tex uint32)
	FramebufferRenderbuffer(attachment Enum, rb uint32)
	CheckFramebufferStatus() Enum
	CreateRenderbuffer() uint32
	DeleteRenderbuffer(h uint32)
	BindRenderbuffer(h uint32)
	RenderbufferStorage(format Enum, width, height int32)

	Enable(capability Enum)
	Disable(capability Enum)
	Clear(mask Enum)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	ClearStencil(s int32)
	Viewport(x, y, width, height int32)
	ReadPixels(x, y, width, height int32) []byte
}
