package viewer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/engine/debug"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/model"
	"github.com/Faultbox/modelgl/internal/engine/renderer"
	"github.com/Faultbox/modelgl/internal/engine/technique"
	"github.com/Faultbox/modelgl/internal/logger"
)

// Primitive semantics drawn by the viewer.
const (
	fillMode = "FILL"
	lineMode = "LINE"
)

var boundsColor = [4]float32{1, 0.8, 0.1, 1}

// Scene is the model on display plus its bounding box overlay.
type Scene struct {
	ctx      glctx.Context
	provider model.Provider
	path     string
	opts     model.Options
	log      *zap.Logger

	model  *model.Model
	bbox   *model.Model
	bounds model.Bounds

	// Part limits drawing to one part; empty draws every part.
	Part       string
	ShowBounds bool
}

// NewScene loads the model at path.
func NewScene(ctx glctx.Context, provider model.Provider, path string, opts model.Options) (*Scene, error) {
	s := &Scene{
		ctx:      ctx,
		provider: provider,
		path:     path,
		opts:     opts,
		log:      logger.Named("viewer"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the asset path of the model.
func (s *Scene) Path() string { return s.path }

// Model returns the displayed model.
func (s *Scene) Model() *model.Model { return s.model }

// Bounds returns the model's bounding box.
func (s *Scene) Bounds() model.Bounds { return s.bounds }

// Reload loads the model again. On failure the current model stays.
func (s *Scene) Reload() error {
	m, err := LoadModel(s.ctx, s.provider, s.path, s.opts)
	if err != nil {
		return err
	}

	bounds, ok := model.ComputeBounds(m.Descriptor())
	if !ok {
		bounds = model.Bounds{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}
	}
	bbox, err := model.NewFromShorthand(s.ctx, debug.BBoxShorthand(bounds, debug.DefaultBBoxPadding, boundsColor), s.opts)
	if err != nil {
		m.Destroy()
		return fmt.Errorf("bounds overlay: %w", err)
	}

	s.release()
	s.model, s.bbox, s.bounds = m, bbox, bounds

	s.log.Info("model loaded",
		zap.String("path", s.path),
		zap.String("id", m.ID().String()),
		zap.Int("parts", len(m.Descriptor().Logic.Parts)))
	return nil
}

// Extent returns the corners of the bounds.
func (s *Scene) Extent() (lo, hi mgl32.Vec3) {
	return mgl32.Vec3(s.bounds.Min), mgl32.Vec3(s.bounds.Max)
}

// Render draws the scene with t. globals holds the per-frame semantic values
// such as the transformation matrices.
func (s *Scene) Render(r *renderer.ModelRenderer, t *technique.Technique, globals map[string]any) error {
	if err := r.SetTechnique(t); err != nil {
		return err
	}
	if err := r.SetDefaultGlobals(); err != nil {
		return err
	}
	if err := r.SetGlobals(globals); err != nil {
		return err
	}

	var errs error
	errs = multierr.Append(errs, s.draw(r, s.model, fillMode, s.Part))
	if s.ShowBounds && s.bbox != nil {
		errs = multierr.Append(errs, s.draw(r, s.bbox, lineMode, ""))
	}
	return errs
}

func (s *Scene) draw(r *renderer.ModelRenderer, m *model.Model, mode, part string) error {
	if err := r.SetModel(m); err != nil {
		return err
	}
	if err := r.SetPrimitiveMode(mode); err != nil {
		return err
	}
	if part == "" {
		return r.RenderModel()
	}

	p := m.Descriptor().Logic.Parts[part]
	if p == nil {
		return fmt.Errorf("%w: %q", renderer.ErrMissingPart, part)
	}
	if err := r.SetPart(part); err != nil {
		return err
	}
	var errs error
	for _, chunk := range p.Chunks {
		if err := r.SetChunk(chunk); err != nil {
			return err
		}
		errs = multierr.Append(errs, r.Render())
	}
	return errs
}

func (s *Scene) release() {
	if s.model != nil {
		s.model.Destroy()
	}
	if s.bbox != nil {
		s.bbox.Destroy()
	}
	s.model, s.bbox = nil, nil
}

// Destroy releases the native buffers of the scene.
func (s *Scene) Destroy() {
	s.release()
}
