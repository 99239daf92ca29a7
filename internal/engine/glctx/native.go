package glctx

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/logger"
)

// Native is the go-gl (OpenGL 4.1 core) implementation of Context.
type Native struct {
	registry         *Registry
	vao              uint32
	maxVertexAttribs int
	maxTextureUnits  int
}

// NewNative initializes OpenGL function pointers for the current context.
// IMPORTANT: Must be called AFTER the OpenGL context is created and made current.
func NewNative() (*Native, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	n := &Native{registry: NewRegistry()}

	var v int32
	gl.GetIntegerv(gl.MAX_VERTEX_ATTRIBS, &v)
	n.maxVertexAttribs = int(v)
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &v)
	n.maxTextureUnits = int(v)

	// Core profiles reject attribute pointers without a bound vertex array.
	gl.GenVertexArrays(1, &n.vao)
	gl.BindVertexArray(n.vao)

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("maxVertexAttribs", n.maxVertexAttribs),
		zap.Int("maxTextureUnits", n.maxTextureUnits),
	)

	return n, nil
}

// Close releases the context-level vertex array.
func (n *Native) Close() {
	if n.vao != 0 {
		gl.DeleteVertexArrays(1, &n.vao)
		n.vao = 0
	}
}

func (n *Native) Registry() *Registry   { return n.registry }
func (n *Native) MaxVertexAttribs() int { return n.maxVertexAttribs }
func (n *Native) MaxTextureUnits() int  { return n.maxTextureUnits }

func (n *Native) CreateBuffer() uint32 {
	var h uint32
	gl.GenBuffers(1, &h)
	return h
}

func (n *Native) DeleteBuffer(h uint32)            { gl.DeleteBuffers(1, &h) }
func (n *Native) BindBuffer(target Enum, h uint32) { gl.BindBuffer(uint32(target), h) }

func (n *Native) BufferData(target Enum, size int, data []byte, usage Enum) {
	if len(data) == 0 {
		gl.BufferData(uint32(target), size, nil, uint32(usage))
		return
	}
	gl.BufferData(uint32(target), size, gl.Ptr(data), uint32(usage))
}

func (n *Native) BufferSubData(target Enum, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(uint32(target), offset, len(data), gl.Ptr(data))
}

func (n *Native) EnableVertexAttribArray(index uint32)  { gl.EnableVertexAttribArray(index) }
func (n *Native) DisableVertexAttribArray(index uint32) { gl.DisableVertexAttribArray(index) }

func (n *Native) VertexAttribPointer(index uint32, size int32, xtype Enum, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, uint32(xtype), normalized, stride, uintptr(offset))
}

func (n *Native) VertexAttrib4fv(index uint32, v [4]float32) { gl.VertexAttrib4fv(index, &v[0]) }

func (n *Native) DrawArrays(mode Enum, first, count int32) {
	gl.DrawArrays(uint32(mode), first, count)
}

func (n *Native) DrawElements(mode Enum, count int32, xtype Enum, offset int) {
	gl.DrawElements(uint32(mode), count, uint32(xtype), gl.PtrOffset(offset))
}

// CreateProgram compiles vertex and fragment shaders and links them into a program.
func (n *Native) CreateProgram(vertexSrc, fragmentSrc string, attribs map[string]uint32) (uint32, string, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err.Error(), err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err.Error(), err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	if program == 0 {
		return 0, "", fmt.Errorf("glCreateProgram returned 0")
	}
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	for name, loc := range attribs {
		gl.BindAttribLocation(program, loc, gl.Str(name+"\x00"))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	infoLog := programLog(program)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, infoLog, fmt.Errorf("link: %s", infoLog)
	}
	return program, infoLog, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, strings.TrimRight(string(log), "\x00"))
	}

	return shader, nil
}

func programLog(program uint32) string {
	var logLen int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	if logLen <= 1 {
		return ""
	}
	log := make([]byte, logLen)
	gl.GetProgramInfoLog(program, logLen, nil, &log[0])
	return strings.TrimRight(string(log), "\x00")
}

func (n *Native) DeleteProgram(h uint32) { gl.DeleteProgram(h) }
func (n *Native) UseProgram(h uint32)    { gl.UseProgram(h) }

func (n *Native) ActiveAttributes(h uint32) []ActiveInfo {
	var count, maxLen int32
	gl.GetProgramiv(h, gl.ACTIVE_ATTRIBUTES, &count)
	gl.GetProgramiv(h, gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLen)
	infos := make([]ActiveInfo, 0, count)
	buf := make([]byte, maxLen+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveAttrib(h, uint32(i), int32(len(buf)), &length, &size, &xtype, &buf[0])
		name := string(buf[:length])
		if strings.HasPrefix(name, "gl_") {
			continue
		}
		infos = append(infos, ActiveInfo{
			Name:     name,
			Size:     size,
			Type:     Enum(xtype),
			Location: gl.GetAttribLocation(h, gl.Str(name+"\x00")),
		})
	}
	return infos
}

func (n *Native) ActiveUniforms(h uint32) []ActiveInfo {
	var count, maxLen int32
	gl.GetProgramiv(h, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(h, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)
	infos := make([]ActiveInfo, 0, count)
	buf := make([]byte, maxLen+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(h, uint32(i), int32(len(buf)), &length, &size, &xtype, &buf[0])
		name := strings.TrimSuffix(string(buf[:length]), "[0]")
		infos = append(infos, ActiveInfo{
			Name:     name,
			Size:     size,
			Type:     Enum(xtype),
			Location: gl.GetUniformLocation(h, gl.Str(name+"\x00")),
		})
	}
	return infos
}

func (n *Native) GetUniformfv(h uint32, location int32, count int) []float32 {
	// glGetUniform writes the whole value, so the buffer is sized for a mat4.
	buf := make([]float32, max(count, 16))
	gl.GetUniformfv(h, location, &buf[0])
	return buf[:count]
}

func (n *Native) GetUniformiv(h uint32, location int32, count int) []int32 {
	buf := make([]int32, max(count, 4))
	gl.GetUniformiv(h, location, &buf[0])
	return buf[:count]
}

func (n *Native) Uniformfv(location int32, components int, v []float32) {
	if len(v) < components {
		return
	}
	count := int32(len(v) / components)
	switch components {
	case 1:
		gl.Uniform1fv(location, count, &v[0])
	case 2:
		gl.Uniform2fv(location, count, &v[0])
	case 3:
		gl.Uniform3fv(location, count, &v[0])
	case 4:
		gl.Uniform4fv(location, count, &v[0])
	}
}

func (n *Native) Uniformiv(location int32, components int, v []int32) {
	if len(v) < components {
		return
	}
	count := int32(len(v) / components)
	switch components {
	case 1:
		gl.Uniform1iv(location, count, &v[0])
	case 2:
		gl.Uniform2iv(location, count, &v[0])
	case 3:
		gl.Uniform3iv(location, count, &v[0])
	case 4:
		gl.Uniform4iv(location, count, &v[0])
	}
}

func (n *Native) UniformMatrixfv(location int32, dim int, v []float32) {
	if len(v) < dim*dim {
		return
	}
	count := int32(len(v) / (dim * dim))
	switch dim {
	case 2:
		gl.UniformMatrix2fv(location, count, false, &v[0])
	case 3:
		gl.UniformMatrix3fv(location, count, false, &v[0])
	case 4:
		gl.UniformMatrix4fv(location, count, false, &v[0])
	}
}

func (n *Native) CreateTexture() uint32 {
	var h uint32
	gl.GenTextures(1, &h)
	return h
}

func (n *Native) DeleteTexture(h uint32)            { gl.DeleteTextures(1, &h) }
func (n *Native) ActiveTexture(unit int)            { gl.ActiveTexture(gl.TEXTURE0 + uint32(unit)) }
func (n *Native) BindTexture(target Enum, h uint32) { gl.BindTexture(uint32(target), h) }

func (n *Native) TexImage2D(target Enum, width, height int32, pixels []byte) {
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(uint32(target), 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
}

func (n *Native) TexParameteri(target, pname Enum, param int32) {
	gl.TexParameteri(uint32(target), uint32(pname), param)
}

func (n *Native) GenerateMipmap(target Enum) { gl.GenerateMipmap(uint32(target)) }

func (n *Native) CreateFramebuffer() uint32 {
	var h uint32
	gl.GenFramebuffers(1, &h)
	return h
}

func (n *Native) DeleteFramebuffer(h uint32) { gl.DeleteFramebuffers(1, &h) }
func (n *Native) BindFramebuffer(h uint32)   { gl.BindFramebuffer(gl.FRAMEBUFFER, h) }

func (n *Native) FramebufferTexture2D(attachment, texTarget Enum, tex uint32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, uint32(attachment), uint32(texTarget), tex, 0)
}

func (n *Native) FramebufferRenderbuffer(attachment Enum, rb uint32) {
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, uint32(attachment), gl.RENDERBUFFER, rb)
}

func (n *Native) CheckFramebufferStatus() Enum {
	return Enum(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (n *Native) CreateRenderbuffer() uint32 {
	var h uint32
	gl.GenRenderbuffers(1, &h)
	return h
}

func (n *Native) DeleteRenderbuffer(h uint32) { gl.DeleteRenderbuffers(1, &h) }
func (n *Native) BindRenderbuffer(h uint32)   { gl.BindRenderbuffer(gl.RENDERBUFFER, h) }

func (n *Native) RenderbufferStorage(format Enum, width, height int32) {
	gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(format), width, height)
}

func (n *Native) Enable(capability Enum)        { gl.Enable(uint32(capability)) }
func (n *Native) Disable(capability Enum)       { gl.Disable(uint32(capability)) }
func (n *Native) Clear(mask Enum)               { gl.Clear(uint32(mask)) }
func (n *Native) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (n *Native) ClearDepth(d float32)          { gl.ClearDepth(float64(d)) }
func (n *Native) ClearStencil(s int32)          { gl.ClearStencil(s) }
func (n *Native) Viewport(x, y, w, h int32)     { gl.Viewport(x, y, w, h) }

func (n *Native) ReadPixels(x, y, width, height int32) []byte {
	pixels := make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels
	}
	gl.ReadPixels(x, y, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

var _ Context = (*Native)(nil)
