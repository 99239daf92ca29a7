package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/engine/buffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/logger"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// Precondition errors.
var (
	ErrNoDescriptor = errors.New("model: no descriptor")
	ErrNoContext    = errors.New("model: no rendering context")
)

// BufferOptions configures native buffer creation.
type BufferOptions struct {
	Usage glctx.Enum // StaticDraw when zero
}

// Options configures a new Model.
type Options struct {
	Buffers BufferOptions
}

// Model owns a normalized descriptor, its native buffers and its compiled
// render data.
type Model struct {
	id         uuid.UUID
	ctx        glctx.Context
	descriptor *Descriptor
	renderData *RenderData
	version    uint64
}

// New normalizes d and compiles it. With a non-nil ctx the native buffers are
// created first. A *ValidationError is returned together with the model when
// the descriptor has dangling references.
func New(ctx glctx.Context, d *Descriptor, opts Options) (*Model, error) {
	m := &Model{
		id:         uuid.New(),
		descriptor: Normalize(d),
	}
	if ctx != nil {
		if err := m.UpdateGL(ctx, opts.Buffers); err != nil {
			return nil, err
		}
	}
	err := m.UpdateRenderData()

	logger.Named("model").Debug("model created",
		zap.String("id", m.id.String()),
		zap.Int("parts", len(m.descriptor.Logic.Parts)),
		zap.Int("vertexBuffers", len(m.descriptor.Data.VertexBuffers)),
		zap.Int("indexBuffers", len(m.descriptor.Data.IndexBuffers)))
	return m, err
}

// NewFromShorthand expands s and builds a model from it.
func NewFromShorthand(ctx glctx.Context, s *Shorthand, opts Options) (*Model, error) {
	d, err := ExpandShorthand(s)
	if err != nil {
		return nil, err
	}
	return New(ctx, d, opts)
}

// ID returns the instance id used in logs.
func (m *Model) ID() uuid.UUID { return m.id }

// Descriptor returns the normalized descriptor.
func (m *Model) Descriptor() *Descriptor { return m.descriptor }

// RenderData returns the compiled render data.
func (m *Model) RenderData() *RenderData { return m.renderData }

// Version increases every time the render data or the native buffers change.
func (m *Model) Version() uint64 { return m.version }

// Context returns the context the native buffers were created on.
func (m *Model) Context() glctx.Context { return m.ctx }

// UpdateTypedArrays converts every untyped buffer payload to its typed form.
func (m *Model) UpdateTypedArrays() error {
	if m.descriptor == nil {
		return ErrNoDescriptor
	}
	var err error
	for _, name := range sortedKeys(m.descriptor.Data.VertexBuffers) {
		err = multierr.Append(err, typedArray(name, m.descriptor.Data.VertexBuffers[name]))
	}
	for _, name := range sortedKeys(m.descriptor.Data.IndexBuffers) {
		err = multierr.Append(err, typedArray(name, m.descriptor.Data.IndexBuffers[name]))
	}
	return err
}

func typedArray(name string, b *Buffer) error {
	if b == nil || b.TypedArray != nil || b.UntypedArray == nil {
		return nil
	}
	a, err := gltype.FromValues(b.Type, b.UntypedArray)
	if err != nil {
		return fmt.Errorf("buffer %q: %w", name, err)
	}
	b.TypedArray = &a
	return nil
}

// UpdateGL (re)creates the native buffer of every buffer record on ctx and
// annotates the streams with their native enumerations. The previous buffers
// are destroyed only after every new one was created, so a failure leaves the
// model as it was.
func (m *Model) UpdateGL(ctx glctx.Context, opts BufferOptions) error {
	if ctx == nil {
		return ErrNoContext
	}
	if m.descriptor == nil {
		return ErrNoDescriptor
	}
	if err := m.UpdateTypedArrays(); err != nil {
		return err
	}
	d := m.descriptor
	log := logger.Named("model")

	vbs := make(map[string]*buffer.VertexBuffer, len(d.Data.VertexBuffers))
	ibs := make(map[string]*buffer.IndexBuffer, len(d.Data.IndexBuffers))
	discard := func() {
		for _, vb := range vbs {
			vb.Destroy()
		}
		for _, ib := range ibs {
			ib.Destroy()
		}
	}

	for _, name := range sortedKeys(d.Data.VertexBuffers) {
		vb, err := buffer.NewVertex(ctx, buffer.Options{Data: payload(d.Data.VertexBuffers[name]), Usage: opts.Usage})
		if err != nil {
			discard()
			return fmt.Errorf("vertex buffer %q: %w", name, err)
		}
		vbs[name] = vb
	}
	for _, name := range sortedKeys(d.Data.IndexBuffers) {
		ib, err := buffer.NewIndex(ctx, buffer.Options{Data: payload(d.Data.IndexBuffers[name]), Usage: opts.Usage})
		if err != nil {
			discard()
			return fmt.Errorf("index buffer %q: %w", name, err)
		}
		ibs[name] = ib
	}

	m.ctx = ctx
	for name, vb := range vbs {
		b := d.Data.VertexBuffers[name]
		releaseBuffer(b)
		b.vertex = vb
		log.Debug("vertex buffer uploaded", zap.String("buffer", name), zap.Int("bytes", vb.Size()))
	}
	for name, ib := range ibs {
		b := d.Data.IndexBuffers[name]
		releaseBuffer(b)
		b.index = ib
		log.Debug("index buffer uploaded", zap.String("buffer", name), zap.Int("bytes", ib.Size()))
	}

	for _, s := range d.Access.VertexStreams {
		s.glType = glctx.Enum(s.Type.GL())
	}
	for _, s := range d.Access.PrimitiveStreams {
		s.glType = glctx.Enum(s.Type.GL())
		s.glMode = glctx.Enum(s.Mode.GL())
		s.annotated = true
	}

	m.version++
	return nil
}

func payload(b *Buffer) []byte {
	if b.TypedArray == nil {
		return nil
	}
	return b.TypedArray.Data
}

func releaseBuffer(b *Buffer) {
	if b.vertex != nil {
		b.vertex.Destroy()
		b.vertex = nil
	}
	if b.index != nil {
		b.index.Destroy()
		b.index = nil
	}
}

// UpdateRenderData recompiles the descriptor, replacing the render data.
func (m *Model) UpdateRenderData() error {
	if m.descriptor == nil {
		return ErrNoDescriptor
	}
	rd, err := Compile(m.descriptor)
	m.renderData = rd
	m.version++
	if err != nil {
		logger.Named("model").Warn("render data has dangling references",
			zap.String("id", m.id.String()), zap.Error(err))
	}
	return err
}

// Destroy releases every native buffer.
func (m *Model) Destroy() {
	if m.descriptor == nil {
		return
	}
	for _, b := range m.descriptor.Data.VertexBuffers {
		releaseBuffer(b)
	}
	for _, b := range m.descriptor.Data.IndexBuffers {
		releaseBuffer(b)
	}
	m.ctx = nil
	m.version++
}
