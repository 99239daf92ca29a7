// Package renderer draws compiled models with techniques, issuing only the
// native calls invalidated since the previous draw.
package renderer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/engine/framebuffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/model"
	"github.com/Faultbox/modelgl/internal/engine/technique"
	"github.com/Faultbox/modelgl/internal/logger"
)

// Errors returned by the renderer.
var (
	ErrNoContext            = errors.New("renderer: no context")
	ErrNotInBegin           = errors.New("renderer: not between Begin and End")
	ErrCannotRender         = errors.New("renderer: selection incomplete")
	ErrNoTechnique          = errors.New("renderer: no technique selected")
	ErrNoFramebuffer        = errors.New("renderer: no framebuffer selected")
	ErrMissingPart          = errors.New("renderer: part not found")
	ErrMissingChunk         = errors.New("renderer: chunk not found")
	ErrMissingTechnique     = errors.New("renderer: chunk has no entry for technique")
	ErrMissingPrimitiveMode = errors.New("renderer: chunk has no primitive streams for mode")
	ErrNoBuffer             = errors.New("renderer: buffer has no native resource")
	ErrTextureUnit          = errors.New("renderer: texture unit out of range")
)

// SemanticRef names a model stream slot.
type SemanticRef struct {
	Part     string
	Chunk    string
	Semantic string
	Index    int
}

func (r SemanticRef) String() string {
	return fmt.Sprintf("%s/%s:%s[%d]", r.Part, r.Chunk, r.Semantic, r.Index)
}

// UnmatchedSemanticsError lists model streams no technique input consumes.
type UnmatchedSemanticsError struct {
	Technique string
	Semantics []SemanticRef
}

func (e *UnmatchedSemanticsError) Error() string {
	refs := make([]string, len(e.Semantics))
	for i, s := range e.Semantics {
		refs[i] = s.String()
	}
	return fmt.Sprintf("renderer: technique %q has no input for %s", e.Technique, strings.Join(refs, ", "))
}

// Options configures a renderer.
type Options struct {
	// Strict makes Render report model streams the technique ignores.
	Strict bool
}

// ClearValues selects the buffers to clear. A nil field leaves that buffer
// and its clear register alone.
type ClearValues struct {
	Color   *[4]float32
	Depth   *float32
	Stencil *int32
}

// Texture is a texture object that can be bound to a unit.
type Texture interface {
	Bind(unit int)
	Target() glctx.Enum
}

type boundTexture struct {
	unit   int
	target glctx.Enum
}

// ModelRenderer resolves technique, model, part, chunk and primitive mode
// selections into native calls. It is not safe for concurrent use and
// assumes it owns the native binding state between Begin and End.
type ModelRenderer struct {
	ctx    glctx.Context
	opts   Options
	log    *zap.Logger
	offscr *framebuffer.Framebuffer

	technique   *technique.Technique
	model       *model.Model
	part        string
	chunk       string
	primMode    string
	framebuffer *framebuffer.Framebuffer

	inBegin bool
	dirty   DirtyMask

	techniqueVersion uint64
	modelVersion     uint64
	boundProgram     uint32

	enabledArrays    []uint32
	boundTextures    []boundTexture
	attribValues     []technique.AttributeInfo
	primitiveStreams *model.PrimitiveStreamsInfo
	unmatched        []SemanticRef
}

// New creates a renderer drawing through ctx.
func New(ctx glctx.Context, opts Options) (*ModelRenderer, error) {
	if ctx == nil {
		return nil, ErrNoContext
	}
	offscr, err := framebuffer.New(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r := &ModelRenderer{
		ctx:    ctx,
		opts:   opts,
		log:    logger.Named("renderer"),
		offscr: offscr,
	}
	r.reset()
	r.log.Debug("renderer created",
		zap.Int("vertexAttribs", ctx.MaxVertexAttribs()),
		zap.Int("textureUnits", ctx.MaxTextureUnits()),
		zap.Bool("strict", opts.Strict))
	return r, nil
}

func (r *ModelRenderer) reset() {
	r.technique = nil
	r.model = nil
	r.part = ""
	r.chunk = ""
	r.primMode = ""
	r.framebuffer = nil
	r.inBegin = false
	r.dirty = DirtyAll
	r.techniqueVersion = 0
	r.modelVersion = 0
	r.enabledArrays = nil
	r.boundTextures = nil
	r.attribValues = nil
	r.primitiveStreams = nil
	r.unmatched = nil
}

func (r *ModelRenderer) resetContext() {
	for i := range r.ctx.MaxVertexAttribs() {
		r.ctx.DisableVertexAttribArray(uint32(i))
	}
	for unit := r.ctx.MaxTextureUnits() - 1; unit >= 0; unit-- {
		r.ctx.ActiveTexture(unit)
		r.ctx.BindTexture(glctx.Texture2D, 0)
		r.ctx.BindTexture(glctx.TextureCubeMap, 0)
	}
	r.ctx.BindBuffer(glctx.ArrayBuffer, 0)
	r.ctx.BindBuffer(glctx.ElementArrayBuffer, 0)
	r.ctx.UseProgram(0)
	r.ctx.BindFramebuffer(0)
	r.boundProgram = 0
}

func (r *ModelRenderer) mark(bits DirtyMask) {
	r.dirty |= bits.Closure()
}

// Context returns the native context, nil after Destroy.
func (r *ModelRenderer) Context() glctx.Context { return r.ctx }

// InBegin reports whether the renderer is between Begin and End.
func (r *ModelRenderer) InBegin() bool { return r.inBegin }

// Dirty returns the bits to resolve before the next draw.
func (r *ModelRenderer) Dirty() DirtyMask { return r.dirty }

// Technique returns the selected technique.
func (r *ModelRenderer) Technique() *technique.Technique { return r.technique }

// Model returns the selected model.
func (r *ModelRenderer) Model() *model.Model { return r.model }

// Part returns the selected part name.
func (r *ModelRenderer) Part() string { return r.part }

// Chunk returns the selected chunk name.
func (r *ModelRenderer) Chunk() string { return r.chunk }

// PrimitiveMode returns the selected primitive semantic.
func (r *ModelRenderer) PrimitiveMode() string { return r.primMode }

// Framebuffer returns the selected framebuffer, nil for the default one.
func (r *ModelRenderer) Framebuffer() *framebuffer.Framebuffer { return r.framebuffer }

// OffscreenFramebuffer returns the renderer's internal framebuffer.
func (r *ModelRenderer) OffscreenFramebuffer() *framebuffer.Framebuffer { return r.offscr }

// Begin resets the native binding state and starts accepting selections.
func (r *ModelRenderer) Begin() {
	if r.inBegin || r.ctx == nil {
		return
	}
	r.resetContext()
	r.inBegin = true
}

// End disables the arrays and textures the renderer enabled, detaches the
// internal framebuffer and resets both the selection and the native state.
func (r *ModelRenderer) End() {
	if !r.inBegin {
		return
	}
	for _, idx := range r.enabledArrays {
		r.ctx.DisableVertexAttribArray(idx)
	}
	for _, t := range r.boundTextures {
		r.ctx.ActiveTexture(t.unit)
		r.ctx.BindTexture(t.target, 0)
	}
	r.offscr.DetachAll()

	r.reset()
	r.resetContext()
}

// Destroy ends any pending bracket and releases the internal framebuffer.
func (r *ModelRenderer) Destroy() {
	if r.ctx == nil {
		return
	}
	r.End()
	r.offscr.Destroy()
	r.ctx = nil
}

// SetTechnique selects the technique. A nil technique unbinds the program.
func (r *ModelRenderer) SetTechnique(t *technique.Technique) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.technique == t {
		return nil
	}
	r.technique = t
	r.mark(DirtyTechnique)
	if t == nil {
		r.ctx.UseProgram(0)
		r.boundProgram = 0
	}
	return nil
}

// SetModel selects the model.
func (r *ModelRenderer) SetModel(m *model.Model) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.model == m {
		return nil
	}
	r.model = m
	r.mark(DirtyModel)
	return nil
}

// SetPart selects the logical part of the model.
func (r *ModelRenderer) SetPart(name string) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.part == name {
		return nil
	}
	r.part = name
	r.mark(DirtyPart)
	return nil
}

// SetChunk selects the chunk of the part.
func (r *ModelRenderer) SetChunk(name string) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.chunk == name {
		return nil
	}
	r.chunk = name
	r.mark(DirtyChunk)
	return nil
}

// SetPrimitiveMode selects the primitive semantic to draw, such as "FILL".
func (r *ModelRenderer) SetPrimitiveMode(mode string) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.primMode == mode {
		return nil
	}
	r.primMode = mode
	r.mark(DirtyPrimitiveMode)
	return nil
}

func (r *ModelRenderer) useTechniqueProgram() error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if r.technique == nil {
		return ErrNoTechnique
	}
	p := r.technique.Program()
	if r.boundProgram != p.Handle() {
		p.Bind()
		r.boundProgram = p.Handle()
	}
	return nil
}

// SetUniforms sets program uniforms by name on the selected technique.
func (r *ModelRenderer) SetUniforms(values map[string]any) error {
	if err := r.useTechniqueProgram(); err != nil {
		return err
	}
	return r.technique.SetUniforms(values)
}

// SetDefaultGlobals sets every global of the selected technique to its
// default value.
func (r *ModelRenderer) SetDefaultGlobals() error {
	if err := r.useTechniqueProgram(); err != nil {
		return err
	}
	uniforms := make(map[string]any)
	for _, g := range r.technique.RenderData().GlobalsMap {
		if g.Value != nil {
			uniforms[g.Name] = g.Value
		}
	}
	return r.technique.SetUniforms(uniforms)
}

// SetGlobals sets uniforms by semantic. Semantics the technique does not
// declare are skipped.
func (r *ModelRenderer) SetGlobals(values map[string]any) error {
	if err := r.useTechniqueProgram(); err != nil {
		return err
	}
	globals := r.technique.RenderData().GlobalsMap
	uniforms := make(map[string]any, len(values))
	for semantic, v := range values {
		g, ok := globals[semantic]
		if !ok {
			r.log.Debug("global semantic not in technique",
				zap.String("technique", r.technique.Name()),
				zap.String("semantic", semantic))
			continue
		}
		uniforms[g.Name] = v
	}
	return r.technique.SetUniforms(uniforms)
}

// SetViewport sets the native viewport.
func (r *ModelRenderer) SetViewport(x, y, width, height int32) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	r.ctx.Viewport(x, y, width, height)
	return nil
}

// SetTexture binds tex to unit. A nil texture clears the unit.
func (r *ModelRenderer) SetTexture(unit int, tex Texture) error {
	if !r.inBegin {
		return ErrNotInBegin
	}
	if unit < 0 || unit >= r.ctx.MaxTextureUnits() {
		return fmt.Errorf("%w: %d", ErrTextureUnit, unit)
	}
	if tex == nil {
		r.ctx.ActiveTexture(unit)
		r.ctx.BindTexture(glctx.Texture2D, 0)
		r.ctx.BindTexture(glctx.TextureCubeMap, 0)
		r.boundTextures = removeUnit(r.boundTextures, unit)
		return nil
	}
	tex.Bind(unit)
	r.boundTextures = append(removeUnit(r.boundTextures, unit), boundTexture{unit: unit, target: tex.Target()})
	return nil
}

func removeUnit(bound []boundTexture, unit int) []boundTexture {
	out := bound[:0]
	for _, t := range bound {
		if t.unit != unit {
			out = append(out, t)
		}
	}
	return out
}

// CanRender reports whether a technique, model, part, chunk and primitive
// mode are selected inside a Begin/End bracket.
func (r *ModelRenderer) CanRender() bool {
	return r.inBegin && r.technique != nil && r.model != nil &&
		r.part != "" && r.chunk != "" && r.primMode != ""
}

// Render draws the selected chunk. With strict mode on, an
// *UnmatchedSemanticsError is returned after drawing when the technique
// ignores some of the chunk's streams.
func (r *ModelRenderer) Render() error {
	if !r.CanRender() {
		return ErrCannotRender
	}
	if err := r.update(); err != nil {
		return err
	}

	for _, group := range r.primitiveStreams.Buffered {
		ib := group.Buffer.IndexBuffer()
		if ib == nil {
			return fmt.Errorf("%w: index buffer %q", ErrNoBuffer, group.BufferName)
		}
		ib.Bind()
		for _, s := range group.Streams {
			count := int32(s.Count)
			if count <= 0 {
				count = ib.IndexCount(s.GLType(), s.Offset)
			}
			if count > 0 {
				r.ctx.DrawElements(s.GLMode(), count, s.GLType(), s.Offset)
			}
		}
	}
	for _, s := range r.primitiveStreams.Array {
		if s.Count > 0 {
			r.ctx.DrawArrays(s.GLMode(), int32(s.First), int32(s.Count))
		}
	}

	if r.opts.Strict && len(r.unmatched) > 0 {
		return &UnmatchedSemanticsError{Technique: r.technique.Name(), Semantics: r.unmatched}
	}
	return nil
}

// RenderModel renders every chunk of every part of the selected model,
// parts in name order and chunks in declaration order. Errors are collected
// and drawing continues.
func (r *ModelRenderer) RenderModel() error {
	if !r.inBegin || r.model == nil || r.model.Descriptor() == nil {
		return ErrCannotRender
	}
	parts := r.model.Descriptor().Logic.Parts
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		if err := r.SetPart(name); err != nil {
			return err
		}
		for _, chunk := range parts[name].Chunks {
			if err := r.SetChunk(chunk); err != nil {
				return err
			}
			if err := r.Render(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("part %q chunk %q: %w", name, chunk, err))
			}
		}
	}
	return errs
}

func (r *ModelRenderer) checkVersions() {
	if v := r.technique.Version(); v != r.techniqueVersion {
		r.techniqueVersion = v
		r.mark(DirtyTechnique)
	}
	if v := r.model.Version(); v != r.modelVersion {
		r.modelVersion = v
		r.mark(DirtyModel)
	}
}

// update resolves the dirty selection into native calls. Bits stay set when
// a step fails so the next draw retries it.
func (r *ModelRenderer) update() error {
	r.checkVersions()
	if r.dirty == 0 {
		return nil
	}
	trd := r.technique.RenderData()

	if r.dirty.Has(DirtyTechnique) {
		r.attribValues = flattenAttributes(trd)
		p := r.technique.Program()
		if r.boundProgram != p.Handle() {
			p.Bind()
			r.boundProgram = p.Handle()
		}
		r.dirty &^= DirtyTechnique
	}

	if r.dirty&(DirtyModel|DirtyPart|DirtyChunk|DirtyPrimitiveMode) != 0 {
		for _, a := range r.attribValues {
			r.ctx.VertexAttrib4fv(a.Index, a.Value)
		}

		info, err := r.lookupTechniqueInfo()
		if err != nil {
			return err
		}
		r.dirty &^= DirtyPart

		if r.dirty.Has(DirtyChunk) {
			if err := r.bindVertexStreams(info, trd); err != nil {
				return err
			}
			r.dirty &^= DirtyChunk
		}

		for _, c := range info.VertexStreams.Constant {
			if a, ok := trd.Attribute(c.Semantic, c.Index); ok {
				r.ctx.VertexAttrib4fv(a.Index, c.Stream.Value4())
			}
		}

		if r.dirty.Has(DirtyPrimitiveMode) {
			ps, ok := info.PrimitiveStreams[r.primMode]
			if !ok {
				return fmt.Errorf("%w: %q in %s/%s", ErrMissingPrimitiveMode, r.primMode, r.part, r.chunk)
			}
			r.primitiveStreams = ps
			r.dirty &^= DirtyPrimitiveMode
		}
		r.dirty &^= DirtyModel
	}

	if r.dirty.Has(DirtyFramebuffer) {
		if r.framebuffer != nil {
			r.framebuffer.BindViewport(false)
		} else {
			r.ctx.BindFramebuffer(0)
		}
		r.dirty &^= DirtyFramebuffer
	}

	if r.dirty.Has(DirtyViewport) {
		if r.framebuffer != nil && r.framebuffer.AutoViewport() {
			r.framebuffer.ApplyViewport()
		}
		r.dirty &^= DirtyViewport
	}
	return nil
}

func (r *ModelRenderer) lookupTechniqueInfo() (*model.TechniqueInfo, error) {
	rd := r.model.RenderData()
	if rd == nil {
		return nil, fmt.Errorf("%w: model has no render data", ErrMissingPart)
	}
	part, ok := rd.PartMap[r.part]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingPart, r.part)
	}
	chunk, ok := part[r.chunk]
	if !ok {
		return nil, fmt.Errorf("%w: %q in part %q", ErrMissingChunk, r.chunk, r.part)
	}
	return techniqueEntry(chunk, r.technique.Name(), r.part, r.chunk)
}

func techniqueEntry(chunk map[string]*model.TechniqueInfo, name, part, chunkName string) (*model.TechniqueInfo, error) {
	if info, ok := chunk[name]; ok {
		return info, nil
	}
	if info, ok := chunk[model.CommonTechnique]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("%w: %q in %s/%s", ErrMissingTechnique, name, part, chunkName)
}

func (r *ModelRenderer) bindVertexStreams(info *model.TechniqueInfo, trd *technique.RenderData) error {
	for _, idx := range r.enabledArrays {
		r.ctx.DisableVertexAttribArray(idx)
	}
	r.enabledArrays = r.enabledArrays[:0]
	r.unmatched = nil

	for _, group := range info.VertexStreams.Buffered {
		vb := group.Buffer.VertexBuffer()
		if vb == nil {
			return fmt.Errorf("%w: vertex buffer %q", ErrNoBuffer, group.BufferName)
		}
		vb.Bind()
		for _, s := range group.Streams {
			a, ok := trd.Attribute(s.Semantic, s.Index)
			if !ok {
				r.unmatched = append(r.unmatched, SemanticRef{Part: r.part, Chunk: r.chunk, Semantic: s.Semantic, Index: s.Index})
				continue
			}
			st := s.Stream
			r.ctx.EnableVertexAttribArray(a.Index)
			r.ctx.VertexAttribPointer(a.Index, int32(st.Size), st.GLType(), st.Normalized, int32(st.Stride), st.Offset)
			r.enabledArrays = append(r.enabledArrays, a.Index)
		}
	}
	for _, c := range info.VertexStreams.Constant {
		if _, ok := trd.Attribute(c.Semantic, c.Index); !ok {
			r.unmatched = append(r.unmatched, SemanticRef{Part: r.part, Chunk: r.chunk, Semantic: c.Semantic, Index: c.Index})
		}
	}
	return nil
}

func flattenAttributes(trd *technique.RenderData) []technique.AttributeInfo {
	semantics := make([]string, 0, len(trd.AttributesMap))
	for s := range trd.AttributesMap {
		semantics = append(semantics, s)
	}
	sort.Strings(semantics)

	var out []technique.AttributeInfo
	for _, s := range semantics {
		for _, a := range trd.AttributesMap[s] {
			if a != nil {
				out = append(out, *a)
			}
		}
	}
	return out
}

// UnmatchedStreams lists the vertex streams of m that no input of t
// consumes, over every part and chunk.
func UnmatchedStreams(t *technique.Technique, m *model.Model) []SemanticRef {
	rd := m.RenderData()
	if rd == nil {
		return nil
	}
	trd := t.RenderData()

	var out []SemanticRef
	for _, part := range sortedKeys(rd.PartMap) {
		for _, chunk := range sortedKeys(rd.PartMap[part]) {
			info, err := techniqueEntry(rd.PartMap[part][chunk], t.Name(), part, chunk)
			if err != nil {
				continue
			}
			check := func(s model.VertexStreamInfo) {
				if _, ok := trd.Attribute(s.Semantic, s.Index); !ok {
					out = append(out, SemanticRef{Part: part, Chunk: chunk, Semantic: s.Semantic, Index: s.Index})
				}
			}
			for _, g := range info.VertexStreams.Buffered {
				for _, s := range g.Streams {
					check(s)
				}
			}
			for _, s := range info.VertexStreams.Constant {
				check(s)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
