// Package shader wraps linked OpenGL programs: compilation, active input
// discovery and typed uniform updates.
package shader

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// Source holds the stages of a program and optional attribute locations to
// bind before linking.
type Source struct {
	Vertex     string
	Fragment   string
	Attributes map[string]uint32
}

// Input is an active attribute or uniform of a program.
type Input struct {
	Name     string
	Size     int32
	Type     glctx.Enum
	Location int32
}

// Program is a linked program object.
type Program struct {
	ctx        glctx.Context
	handle     uint32
	log        string
	attributes map[string]Input
	uniforms   map[string]Input
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns an error carrying the info log if compilation/linking fails.
func CompileProgram(ctx glctx.Context, src Source) (*Program, error) {
	h, log, err := ctx.CreateProgram(src.Vertex, src.Fragment, src.Attributes)
	if err != nil {
		return nil, fmt.Errorf("compile program: %w", err)
	}
	p := newProgram(ctx, h)
	p.log = log
	ctx.Registry().Register(glctx.Object{Kind: glctx.KindProgram, Handle: h}, p)
	return p, nil
}

// Wrap returns the program wrapping an existing linked handle.
func Wrap(ctx glctx.Context, handle uint32) *Program {
	return glctx.Wrap(ctx.Registry(), glctx.Object{Kind: glctx.KindProgram, Handle: handle}, func() *Program {
		return newProgram(ctx, handle)
	})
}

func newProgram(ctx glctx.Context, h uint32) *Program {
	p := &Program{
		ctx:        ctx,
		handle:     h,
		attributes: make(map[string]Input),
		uniforms:   make(map[string]Input),
	}
	for _, a := range ctx.ActiveAttributes(h) {
		p.attributes[a.Name] = Input(a)
	}
	for _, u := range ctx.ActiveUniforms(h) {
		p.uniforms[u.Name] = Input(u)
	}
	return p
}

// Handle returns the native handle, 0 after Destroy.
func (p *Program) Handle() uint32 { return p.handle }

// Log returns the link info log.
func (p *Program) Log() string { return p.log }

// IsValid reports whether the native object is still alive.
func (p *Program) IsValid() bool { return p != nil && p.handle != 0 }

// Bind makes the program current.
func (p *Program) Bind() { p.ctx.UseProgram(p.handle) }

// Unbind clears the current program.
func (p *Program) Unbind() { p.ctx.UseProgram(0) }

// Destroy deletes the native object.
func (p *Program) Destroy() {
	if p.handle == 0 {
		return
	}
	p.ctx.Registry().Forget(glctx.Object{Kind: glctx.KindProgram, Handle: p.handle})
	p.ctx.DeleteProgram(p.handle)
	p.handle = 0
}

// AttributeNames returns the active attribute names in sorted order.
func (p *Program) AttributeNames() []string {
	return sortedKeys(p.attributes)
}

// UniformNames returns the active uniform names in sorted order.
func (p *Program) UniformNames() []string {
	return sortedKeys(p.uniforms)
}

// Attribute returns an active attribute by name.
func (p *Program) Attribute(name string) (Input, bool) {
	a, ok := p.attributes[name]
	return a, ok
}

// Uniform returns an active uniform by name.
func (p *Program) Uniform(name string) (Input, bool) {
	u, ok := p.uniforms[name]
	return u, ok
}

// AttributeIndices maps active attribute names to their locations.
func (p *Program) AttributeIndices() map[string]uint32 {
	out := make(map[string]uint32, len(p.attributes))
	for name, a := range p.attributes {
		if a.Location >= 0 {
			out[name] = uint32(a.Location)
		}
	}
	return out
}

// Location returns the uniform location for the given name.
// Returns -1 if the uniform is not found or inactive.
func (p *Program) Location(name string) int32 {
	if u, ok := p.uniforms[name]; ok {
		return u.Location
	}
	return -1
}

// MustLocation returns the uniform location for the given name.
// Panics if the uniform is not found (useful for required uniforms).
func (p *Program) MustLocation(name string) int32 {
	loc := p.Location(name)
	if loc < 0 {
		panic(fmt.Sprintf("uniform %q not found in program %d", name, p.handle))
	}
	return loc
}

// UniformValue reads the current value of an active uniform. Scalars come back
// as float32 or int32, everything else as []float32 or []int32.
func (p *Program) UniformValue(name string) (any, bool) {
	u, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	shape := shapeOf(u.Type)
	n := shape.components * int(max(u.Size, 1))
	if shape.integer {
		v := p.ctx.GetUniformiv(p.handle, u.Location, n)
		if n == 1 {
			return v[0], true
		}
		return v, true
	}
	v := p.ctx.GetUniformfv(p.handle, u.Location, n)
	if n == 1 {
		return v[0], true
	}
	return v, true
}

// UniformValues reads the current value of every active uniform.
func (p *Program) UniformValues() map[string]any {
	out := make(map[string]any, len(p.uniforms))
	for name := range p.uniforms {
		if v, ok := p.UniformValue(name); ok {
			out[name] = v
		}
	}
	return out
}

// SetUniform sets one uniform. The program must be current.
// Unknown names are ignored.
func (p *Program) SetUniform(name string, value any) error {
	u, ok := p.uniforms[name]
	if !ok {
		return nil
	}
	shape := shapeOf(u.Type)
	if shape.integer {
		v, err := toInts(value)
		if err != nil {
			return fmt.Errorf("uniform %q: %w", name, err)
		}
		if len(v) < shape.components {
			return fmt.Errorf("uniform %q: expected %d components, got %d", name, shape.components, len(v))
		}
		p.ctx.Uniformiv(u.Location, shape.components, v)
		return nil
	}

	v, err := toFloats(value)
	if err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	if len(v) < shape.components {
		return fmt.Errorf("uniform %q: expected %d components, got %d", name, shape.components, len(v))
	}
	if shape.matrix > 0 {
		p.ctx.UniformMatrixfv(u.Location, shape.matrix, v)
		return nil
	}
	p.ctx.Uniformfv(u.Location, shape.components, v)
	return nil
}

// SetUniforms sets every named uniform the program declares, in name order.
// The program must be current. Conversion errors are collected and returned together.
func (p *Program) SetUniforms(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, p.SetUniform(name, values[name]))
	}
	return errs
}

type shape struct {
	components int
	matrix     int
	integer    bool
}

func shapeOf(t glctx.Enum) shape {
	switch t {
	case glctx.FloatVec2:
		return shape{components: 2}
	case glctx.FloatVec3:
		return shape{components: 3}
	case glctx.FloatVec4:
		return shape{components: 4}
	case glctx.FloatMat2:
		return shape{components: 4, matrix: 2}
	case glctx.FloatMat3:
		return shape{components: 9, matrix: 3}
	case glctx.FloatMat4:
		return shape{components: 16, matrix: 4}
	case glctx.Int, glctx.Bool, glctx.Sampler2D, glctx.SamplerCube:
		return shape{components: 1, integer: true}
	case glctx.IntVec2, glctx.BoolVec2:
		return shape{components: 2, integer: true}
	case glctx.IntVec3, glctx.BoolVec3:
		return shape{components: 3, integer: true}
	case glctx.IntVec4, glctx.BoolVec4:
		return shape{components: 4, integer: true}
	default:
		return shape{components: 1}
	}
}

func toFloats(value any) ([]float32, error) {
	switch v := value.(type) {
	case float32:
		return []float32{v}, nil
	case float64:
		return []float32{float32(v)}, nil
	case int:
		return []float32{float32(v)}, nil
	case int32:
		return []float32{float32(v)}, nil
	case bool:
		if v {
			return []float32{1}, nil
		}
		return []float32{0}, nil
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case [4]float32:
		return v[:], nil
	case mgl32.Vec2:
		return v[:], nil
	case mgl32.Vec3:
		return v[:], nil
	case mgl32.Vec4:
		return v[:], nil
	case mgl32.Mat2:
		return v[:], nil
	case mgl32.Mat3:
		return v[:], nil
	case mgl32.Mat4:
		return v[:], nil
	case []mgl32.Mat4:
		out := make([]float32, 0, 16*len(v))
		for _, m := range v {
			out = append(out, m[:]...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

func toInts(value any) ([]int32, error) {
	switch v := value.(type) {
	case int:
		return []int32{int32(v)}, nil
	case int32:
		return []int32{v}, nil
	case uint32:
		return []int32{int32(v)}, nil
	case bool:
		if v {
			return []int32{1}, nil
		}
		return []int32{0}, nil
	case []int32:
		return v, nil
	case []int:
		out := make([]int32, len(v))
		for i, x := range v {
			out[i] = int32(x)
		}
		return out, nil
	case []bool:
		out := make([]int32, len(v))
		for i, x := range v {
			if x {
				out[i] = 1
			}
		}
		return out, nil
	default:
		f, err := toFloats(value)
		if err != nil {
			return nil, err
		}
		out := make([]int32, len(f))
		for i, x := range f {
			out[i] = int32(x)
		}
		return out, nil
	}
}

func sortedKeys(m map[string]Input) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
