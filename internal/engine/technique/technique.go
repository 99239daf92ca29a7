// Package technique binds the vertex and global semantics used by model
// descriptors to the active inputs of a linked program.
package technique

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/shader"
	"github.com/Faultbox/modelgl/internal/logger"
)

// DefaultName is the technique name used when none is given.
const DefaultName = "common"

// ErrNoProgram is returned when a technique has no program.
var ErrNoProgram = errors.New("technique: no program")

// VertexStreamDecl overrides the inferred binding of a vertex input.
// An empty Semantic, a negative Index or a nil Value keep the inferred one.
type VertexStreamDecl struct {
	Semantic string
	Index    int
	Value    []float32
}

// DeclareSemantic overrides only the semantic of an input.
func DeclareSemantic(semantic string) VertexStreamDecl {
	return VertexStreamDecl{Semantic: semantic, Index: -1}
}

// DeclareValue overrides only the constant value of an input.
func DeclareValue(v ...float32) VertexStreamDecl {
	return VertexStreamDecl{Index: -1, Value: v}
}

// DeclareScalar sets the constant value of an input to (s, s, s, s).
func DeclareScalar(s float32) VertexStreamDecl {
	return DeclareValue(s, s, s, s)
}

// GlobalDecl overrides the inferred binding of a uniform. An empty Semantic
// or a nil Value keep the inferred one.
type GlobalDecl struct {
	Semantic string
	Value    any
}

// Descriptor describes a technique. Declarations are keyed by program input
// name; declarations for inputs the program does not have are dropped.
type Descriptor struct {
	Name          string
	Program       *shader.Program
	VertexStreams map[string]VertexStreamDecl
	Globals       map[string]GlobalDecl
}

// Options configures a technique.
type Options struct {
	// Resolver infers semantics from input names. DefaultNaming when nil.
	Resolver SemanticResolver
}

// VertexStream is the resolved binding of one vertex input.
type VertexStream struct {
	Semantic string
	Index    int
	Value    [4]float32
}

// Global is the resolved binding of one uniform.
type Global struct {
	Semantic string
	Value    any
}

// AttributeInfo is the program location and default value bound at a
// semantic index.
type AttributeInfo struct {
	Index uint32
	Value [4]float32
}

// GlobalInfo names the uniform bound to a semantic.
type GlobalInfo struct {
	Name  string
	Value any
}

// RenderData is the semantic lookup used by the model renderer.
type RenderData struct {
	// AttributesMap[semantic][index]; nil entries are holes.
	AttributesMap map[string][]*AttributeInfo
	GlobalsMap    map[string]GlobalInfo
}

// Attribute returns the attribute bound at semantic and index.
func (rd *RenderData) Attribute(semantic string, index int) (*AttributeInfo, bool) {
	if rd == nil {
		return nil, false
	}
	attrs := rd.AttributesMap[semantic]
	if index < 0 || index >= len(attrs) || attrs[index] == nil {
		return nil, false
	}
	return attrs[index], true
}

// Technique is a program plus the semantics of its inputs.
type Technique struct {
	id            uuid.UUID
	name          string
	program       *shader.Program
	ownsProgram   bool
	resolver      SemanticResolver
	vertexStreams map[string]VertexStream
	globals       map[string]Global
	renderData    *RenderData
	version       uint64
}

// New resolves the semantics of d.Program and builds the render data.
func New(d Descriptor, opts Options) (*Technique, error) {
	if d.Program == nil || !d.Program.IsValid() {
		return nil, ErrNoProgram
	}
	t := &Technique{
		id:       uuid.New(),
		name:     d.Name,
		program:  d.Program,
		resolver: opts.Resolver,
	}
	if t.name == "" {
		t.name = DefaultName
	}
	if t.resolver == nil {
		t.resolver = DefaultNaming
	}

	t.vertexStreams = fixVertexStreams(d.Program, t.resolver, d.VertexStreams)
	t.globals = fixGlobals(d.Program, t.resolver, d.Globals)
	t.UpdateRenderData()

	logger.Named("technique").Debug("technique created",
		zap.String("id", t.id.String()),
		zap.String("name", t.name),
		zap.Int("attributes", len(t.vertexStreams)),
		zap.Int("globals", len(t.globals)))
	return t, nil
}

// SourceDescriptor describes a technique built from shader sources.
type SourceDescriptor struct {
	Name     string
	Vertex   string
	Fragment string
	// Attributes are bound to fixed locations before linking.
	Attributes map[string]uint32
	// Uniforms are set once after linking.
	Uniforms      map[string]any
	VertexStreams map[string]VertexStreamDecl
	Globals       map[string]GlobalDecl
}

// NewFromSource compiles a program and builds a technique owning it.
func NewFromSource(ctx glctx.Context, d SourceDescriptor, opts Options) (*Technique, error) {
	p, err := shader.CompileProgram(ctx, shader.Source{
		Vertex:     d.Vertex,
		Fragment:   d.Fragment,
		Attributes: d.Attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("technique %q: %w", d.Name, err)
	}
	if len(d.Uniforms) > 0 {
		p.Bind()
		err = p.SetUniforms(d.Uniforms)
		p.Unbind()
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("technique %q: %w", d.Name, err)
		}
	}

	t, err := New(Descriptor{
		Name:          d.Name,
		Program:       p,
		VertexStreams: d.VertexStreams,
		Globals:       d.Globals,
	}, opts)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	t.ownsProgram = true
	return t, nil
}

func fixVertexStreams(p *shader.Program, r SemanticResolver, declared map[string]VertexStreamDecl) map[string]VertexStream {
	out := make(map[string]VertexStream)
	for _, name := range p.AttributeNames() {
		semantic, index := r.Attribute(name)
		out[name] = VertexStream{Semantic: semantic, Index: index, Value: [4]float32{0, 0, 0, 1}}
	}

	for name, decl := range declared {
		s, ok := out[name]
		if !ok {
			logger.Named("technique").Debug("declared vertex input not active", zap.String("input", name))
			continue
		}
		if decl.Semantic != "" {
			s.Semantic = decl.Semantic
		}
		if decl.Index >= 0 {
			s.Index = decl.Index
		}
		if decl.Value != nil {
			s.Value = [4]float32{0, 0, 0, 1}
			copy(s.Value[:], decl.Value)
		}
		out[name] = s
	}
	return out
}

func fixGlobals(p *shader.Program, r SemanticResolver, declared map[string]GlobalDecl) map[string]Global {
	out := make(map[string]Global)
	for _, name := range p.UniformNames() {
		value, _ := p.UniformValue(name)
		out[name] = Global{Semantic: r.Global(name), Value: value}
	}

	for name, decl := range declared {
		g, ok := out[name]
		if !ok {
			logger.Named("technique").Debug("declared global not active", zap.String("uniform", name))
			continue
		}
		if decl.Semantic != "" {
			g.Semantic = decl.Semantic
		}
		if decl.Value != nil {
			g.Value = decl.Value
		}
		out[name] = g
	}
	return out
}

// UpdateRenderData rebuilds the semantic lookup from the resolved inputs.
func (t *Technique) UpdateRenderData() {
	indices := t.program.AttributeIndices()

	rd := &RenderData{
		AttributesMap: make(map[string][]*AttributeInfo),
		GlobalsMap:    make(map[string]GlobalInfo),
	}
	for _, name := range sortedKeys(t.vertexStreams) {
		s := t.vertexStreams[name]
		loc, ok := indices[name]
		if !ok {
			continue
		}
		attrs := rd.AttributesMap[s.Semantic]
		for len(attrs) <= s.Index {
			attrs = append(attrs, nil)
		}
		attrs[s.Index] = &AttributeInfo{Index: loc, Value: s.Value}
		rd.AttributesMap[s.Semantic] = attrs
	}
	for _, name := range sortedKeys(t.globals) {
		g := t.globals[name]
		if prev, dup := rd.GlobalsMap[g.Semantic]; dup {
			logger.Named("technique").Debug("global semantic bound twice",
				zap.String("semantic", g.Semantic),
				zap.String("kept", name),
				zap.String("dropped", prev.Name))
		}
		rd.GlobalsMap[g.Semantic] = GlobalInfo{Name: name, Value: g.Value}
	}

	t.renderData = rd
	t.version++
}

// ID returns the instance id used in logs.
func (t *Technique) ID() uuid.UUID { return t.id }

// Name returns the technique name chunks refer to.
func (t *Technique) Name() string { return t.name }

// Program returns the program.
func (t *Technique) Program() *shader.Program { return t.program }

// RenderData returns the semantic lookup.
func (t *Technique) RenderData() *RenderData { return t.renderData }

// Version increases every time the render data is rebuilt.
func (t *Technique) Version() uint64 { return t.version }

// VertexStreams returns the resolved vertex inputs keyed by input name.
func (t *Technique) VertexStreams() map[string]VertexStream { return t.vertexStreams }

// Globals returns the resolved uniforms keyed by uniform name.
func (t *Technique) Globals() map[string]Global { return t.globals }

// SetUniforms sets uniforms by name. The program must be current.
func (t *Technique) SetUniforms(values map[string]any) error {
	return t.program.SetUniforms(values)
}

// Destroy deletes the program if the technique compiled it.
func (t *Technique) Destroy() {
	if t.ownsProgram {
		t.program.Destroy()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
