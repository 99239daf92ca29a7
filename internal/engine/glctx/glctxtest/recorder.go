// Package glctxtest provides a recording glctx.Context for tests.
package glctxtest

import (
	"fmt"
	"strings"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// ProgramInputs configures the active inputs reported for programs created
// after it is set. Locations of zero-valued entries are assigned in order.
type ProgramInputs struct {
	Attributes []glctx.ActiveInfo
	Uniforms   []glctx.ActiveInfo
}

type program struct {
	attributes []glctx.ActiveInfo
	uniforms   []glctx.ActiveInfo
	values     map[int32][]float32
}

// Recorder implements glctx.Context by recording every call as a string such
// as "UseProgram(3)" and tracking the binding state a test may want to inspect.
type Recorder struct {
	Calls []string

	// Inputs applied to the next created programs.
	Inputs ProgramInputs

	// Failure injection. When FailCreateBufferAfter is positive that many
	// more buffers are created before FailCreateBuffer turns on.
	FailCreateBuffer      bool
	FailCreateBufferAfter int
	FailCompile           string
	FramebufferStatus     glctx.Enum

	MaxAttribs int
	MaxUnits   int

	BoundProgram     uint32
	BoundFramebuffer uint32
	BoundBuffers     map[glctx.Enum]uint32
	EnabledArrays    map[uint32]bool
	BoundTextures    map[int]uint32
	Attribs          map[uint32][4]float32
	ViewportRect     [4]int32

	registry   *glctx.Registry
	next       uint32
	activeUnit int
	programs   map[uint32]*program
	buffers    map[uint32][]byte
}

// New creates a recorder with 16 attribute slots and 16 texture units.
func New() *Recorder {
	return &Recorder{
		FramebufferStatus: glctx.FramebufferComplete,
		MaxAttribs:        16,
		MaxUnits:          16,
		BoundBuffers:      make(map[glctx.Enum]uint32),
		EnabledArrays:     make(map[uint32]bool),
		BoundTextures:     make(map[int]uint32),
		Attribs:           make(map[uint32][4]float32),
		registry:          glctx.NewRegistry(),
		programs:          make(map[uint32]*program),
		buffers:           make(map[uint32][]byte),
	}
}

func (r *Recorder) record(format string, args ...any) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) handle() uint32 {
	r.next++
	return r.next
}

// Reset forgets the recorded calls, keeping all state.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// Count returns how many recorded calls start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Index returns the position of the first call starting with prefix, or -1.
func (r *Recorder) Index(prefix string) int {
	for i, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

// Has reports whether the exact call was recorded.
func (r *Recorder) Has(call string) bool {
	for _, c := range r.Calls {
		if c == call {
			return true
		}
	}
	return false
}

// BufferContents returns the last data uploaded to buffer h.
func (r *Recorder) BufferContents(h uint32) []byte {
	return r.buffers[h]
}

// UniformValue returns the value last stored at location of program h.
func (r *Recorder) UniformValue(h uint32, location int32) []float32 {
	if p, ok := r.programs[h]; ok {
		return p.values[location]
	}
	return nil
}

func (r *Recorder) Registry() *glctx.Registry { return r.registry }
func (r *Recorder) MaxVertexAttribs() int     { return r.MaxAttribs }
func (r *Recorder) MaxTextureUnits() int      { return r.MaxUnits }

func (r *Recorder) CreateBuffer() uint32 {
	if r.FailCreateBuffer {
		r.record("CreateBuffer() = 0")
		return 0
	}
	h := r.handle()
	r.record("CreateBuffer() = %d", h)
	if r.FailCreateBufferAfter > 0 {
		r.FailCreateBufferAfter--
		r.FailCreateBuffer = r.FailCreateBufferAfter == 0
	}
	return h
}

func (r *Recorder) DeleteBuffer(h uint32) {
	delete(r.buffers, h)
	r.record("DeleteBuffer(%d)", h)
}

func (r *Recorder) BindBuffer(target glctx.Enum, h uint32) {
	r.BoundBuffers[target] = h
	r.record("BindBuffer(%#x, %d)", uint32(target), h)
}

func (r *Recorder) BufferData(target glctx.Enum, size int, data []byte, usage glctx.Enum) {
	buf := make([]byte, size)
	copy(buf, data)
	r.buffers[r.BoundBuffers[target]] = buf
	r.record("BufferData(%#x, %d, %#x)", uint32(target), size, uint32(usage))
}

func (r *Recorder) BufferSubData(target glctx.Enum, offset int, data []byte) {
	buf := r.buffers[r.BoundBuffers[target]]
	if offset+len(data) <= len(buf) {
		copy(buf[offset:], data)
	}
	r.record("BufferSubData(%#x, %d, %d)", uint32(target), offset, len(data))
}

func (r *Recorder) EnableVertexAttribArray(index uint32) {
	r.EnabledArrays[index] = true
	r.record("EnableVertexAttribArray(%d)", index)
}

func (r *Recorder) DisableVertexAttribArray(index uint32) {
	delete(r.EnabledArrays, index)
	r.record("DisableVertexAttribArray(%d)", index)
}

func (r *Recorder) VertexAttribPointer(index uint32, size int32, xtype glctx.Enum, normalized bool, stride int32, offset int) {
	r.record("VertexAttribPointer(%d, %d, %#x, %t, %d, %d)", index, size, uint32(xtype), normalized, stride, offset)
}

func (r *Recorder) VertexAttrib4fv(index uint32, v [4]float32) {
	r.Attribs[index] = v
	r.record("VertexAttrib4fv(%d, %v)", index, v)
}

func (r *Recorder) DrawArrays(mode glctx.Enum, first, count int32) {
	r.record("DrawArrays(%d, %d, %d)", uint32(mode), first, count)
}

func (r *Recorder) DrawElements(mode glctx.Enum, count int32, xtype glctx.Enum, offset int) {
	r.record("DrawElements(%d, %d, %#x, %d)", uint32(mode), count, uint32(xtype), offset)
}

func (r *Recorder) CreateProgram(vertexSrc, fragmentSrc string, attribs map[string]uint32) (uint32, string, error) {
	if r.FailCompile != "" {
		r.record("CreateProgram() failed")
		return 0, r.FailCompile, fmt.Errorf("link: %s", r.FailCompile)
	}
	h := r.handle()
	p := &program{values: make(map[int32][]float32)}
	for i, a := range r.Inputs.Attributes {
		if loc, ok := attribs[a.Name]; ok {
			a.Location = int32(loc)
		} else if a.Location == 0 {
			a.Location = int32(i)
		}
		if a.Size == 0 {
			a.Size = 1
		}
		p.attributes = append(p.attributes, a)
	}
	for i, u := range r.Inputs.Uniforms {
		if u.Location == 0 {
			u.Location = int32(i)
		}
		if u.Size == 0 {
			u.Size = 1
		}
		p.uniforms = append(p.uniforms, u)
	}
	r.programs[h] = p
	r.record("CreateProgram() = %d", h)
	return h, "", nil
}

func (r *Recorder) DeleteProgram(h uint32) {
	delete(r.programs, h)
	r.record("DeleteProgram(%d)", h)
}

func (r *Recorder) UseProgram(h uint32) {
	r.BoundProgram = h
	r.record("UseProgram(%d)", h)
}

func (r *Recorder) ActiveAttributes(h uint32) []glctx.ActiveInfo {
	if p, ok := r.programs[h]; ok {
		return append([]glctx.ActiveInfo(nil), p.attributes...)
	}
	return nil
}

func (r *Recorder) ActiveUniforms(h uint32) []glctx.ActiveInfo {
	if p, ok := r.programs[h]; ok {
		return append([]glctx.ActiveInfo(nil), p.uniforms...)
	}
	return nil
}

func (r *Recorder) GetUniformfv(h uint32, location int32, n int) []float32 {
	out := make([]float32, n)
	if p, ok := r.programs[h]; ok {
		copy(out, p.values[location])
	}
	return out
}

func (r *Recorder) GetUniformiv(h uint32, location int32, n int) []int32 {
	out := make([]int32, n)
	if p, ok := r.programs[h]; ok {
		for i, v := range p.values[location] {
			if i < n {
				out[i] = int32(v)
			}
		}
	}
	return out
}

func (r *Recorder) store(location int32, v []float32) {
	if p, ok := r.programs[r.BoundProgram]; ok {
		p.values[location] = v
	}
}

func (r *Recorder) Uniformfv(location int32, components int, v []float32) {
	r.store(location, append([]float32(nil), v...))
	r.record("Uniformfv(%d, %d, %v)", location, components, v)
}

func (r *Recorder) Uniformiv(location int32, components int, v []int32) {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	r.store(location, f)
	r.record("Uniformiv(%d, %d, %v)", location, components, v)
}

func (r *Recorder) UniformMatrixfv(location int32, dim int, v []float32) {
	r.store(location, append([]float32(nil), v...))
	r.record("UniformMatrixfv(%d, %d)", location, dim)
}

func (r *Recorder) CreateTexture() uint32 {
	h := r.handle()
	r.record("CreateTexture() = %d", h)
	return h
}

func (r *Recorder) DeleteTexture(h uint32) { r.record("DeleteTexture(%d)", h) }

func (r *Recorder) ActiveTexture(unit int) {
	r.activeUnit = unit
	r.record("ActiveTexture(%d)", unit)
}

func (r *Recorder) BindTexture(target glctx.Enum, h uint32) {
	if h == 0 {
		delete(r.BoundTextures, r.activeUnit)
	} else {
		r.BoundTextures[r.activeUnit] = h
	}
	r.record("BindTexture(%#x, %d)", uint32(target), h)
}

func (r *Recorder) TexImage2D(target glctx.Enum, width, height int32, pixels []byte) {
	r.record("TexImage2D(%#x, %d, %d)", uint32(target), width, height)
}

func (r *Recorder) TexParameteri(target, pname glctx.Enum, param int32) {
	r.record("TexParameteri(%#x, %#x, %d)", uint32(target), uint32(pname), param)
}

func (r *Recorder) GenerateMipmap(target glctx.Enum) {
	r.record("GenerateMipmap(%#x)", uint32(target))
}

func (r *Recorder) CreateFramebuffer() uint32 {
	h := r.handle()
	r.record("CreateFramebuffer() = %d", h)
	return h
}

func (r *Recorder) DeleteFramebuffer(h uint32) { r.record("DeleteFramebuffer(%d)", h) }

func (r *Recorder) BindFramebuffer(h uint32) {
	r.BoundFramebuffer = h
	r.record("BindFramebuffer(%d)", h)
}

func (r *Recorder) FramebufferTexture2D(attachment, texTarget glctx.Enum, tex uint32) {
	r.record("FramebufferTexture2D(%#x, %#x, %d)", uint32(attachment), uint32(texTarget), tex)
}

func (r *Recorder) FramebufferRenderbuffer(attachment glctx.Enum, rb uint32) {
	r.record("FramebufferRenderbuffer(%#x, %d)", uint32(attachment), rb)
}

func (r *Recorder) CheckFramebufferStatus() glctx.Enum {
	r.record("CheckFramebufferStatus()")
	return r.FramebufferStatus
}

func (r *Recorder) CreateRenderbuffer() uint32 {
	h := r.handle()
	r.record("CreateRenderbuffer() = %d", h)
	return h
}

func (r *Recorder) DeleteRenderbuffer(h uint32) { r.record("DeleteRenderbuffer(%d)", h) }
func (r *Recorder) BindRenderbuffer(h uint32)   { r.record("BindRenderbuffer(%d)", h) }

func (r *Recorder) RenderbufferStorage(format glctx.Enum, width, height int32) {
	r.record("RenderbufferStorage(%#x, %d, %d)", uint32(format), width, height)
}

func (r *Recorder) Enable(capability glctx.Enum)  { r.record("Enable(%#x)", uint32(capability)) }
func (r *Recorder) Disable(capability glctx.Enum) { r.record("Disable(%#x)", uint32(capability)) }
func (r *Recorder) Clear(mask glctx.Enum)         { r.record("Clear(%#x)", uint32(mask)) }

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.record("ClearColor(%g, %g, %g, %g)", red, green, blue, alpha)
}

func (r *Recorder) ClearDepth(d float32) { r.record("ClearDepth(%g)", d) }
func (r *Recorder) ClearStencil(s int32) { r.record("ClearStencil(%d)", s) }

func (r *Recorder) Viewport(x, y, width, height int32) {
	r.ViewportRect = [4]int32{x, y, width, height}
	r.record("Viewport(%d, %d, %d, %d)", x, y, width, height)
}

func (r *Recorder) ReadPixels(x, y, width, height int32) []byte {
	r.record("ReadPixels(%d, %d, %d, %d)", x, y, width, height)
	return make([]byte, int(width)*int(height)*4)
}

var _ glctx.Context = (*Recorder)(nil)
