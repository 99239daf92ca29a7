// Package viewer implements the model viewer main loop.
package viewer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chewxy/math32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/modelgl/internal/assets"
	"github.com/Faultbox/modelgl/internal/config"
	"github.com/Faultbox/modelgl/internal/engine/debug"
	"github.com/Faultbox/modelgl/internal/engine/framebuffer"
	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/input"
	"github.com/Faultbox/modelgl/internal/engine/model"
	"github.com/Faultbox/modelgl/internal/engine/renderer"
	"github.com/Faultbox/modelgl/internal/engine/space"
	"github.com/Faultbox/modelgl/internal/engine/technique"
	"github.com/Faultbox/modelgl/internal/engine/texture"
	"github.com/Faultbox/modelgl/internal/engine/window"
	"github.com/Faultbox/modelgl/internal/logger"
)

// ErrNoModel is returned when no model is configured.
var ErrNoModel = errors.New("no model to view")

// Vertical field of view of the viewer camera.
const fovY = math32.Pi / 4

// Viewer is the main viewer instance.
type Viewer struct {
	cfg     *config.Config
	log     *zap.Logger
	running bool

	window *window.Window
	input  *input.Input

	ctx       glctx.Context
	renderer  *renderer.ModelRenderer
	technique *technique.Technique

	assets  *assets.Manager
	watcher *assets.Watcher
	reload  *reloadTracker

	scene      *Scene
	texture    *texture.Texture2D
	textureKey string

	camera     *space.OrbitCamera
	transforms *space.TransformStack
	viewports  *space.ViewportStack
	width      int
	height     int

	screenshots  *debug.ScreenshotCapture
	captureColor *texture.Texture2D
	captureDepth *framebuffer.Renderbuffer

	warnedUnmatched bool
}

// New creates the window, the rendering context and loads the configured model.
func New(cfg *config.Config) (*Viewer, error) {
	if cfg.Viewer.Model == "" {
		return nil, ErrNoModel
	}

	log := logger.Named("viewer")
	log.Info("initializing viewer",
		zap.String("model", cfg.Viewer.Model),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height))

	mgr := assets.NewManager()
	for _, root := range cfg.Assets.Roots {
		if err := mgr.AddDir(root); err != nil {
			return nil, err
		}
	}

	// Create window (this also creates OpenGL context)
	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Samples:    cfg.Window.Samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create the native context (AFTER window, since OpenGL context must exist)
	ctx, err := glctx.NewNative()
	if err != nil {
		win.Close()
		return nil, err
	}

	v, err := newViewer(ctx, cfg, mgr)
	if err != nil {
		win.Close()
		return nil, err
	}
	v.window = win
	v.input = input.New()
	v.width, v.height = win.DrawableSize()

	if cfg.Assets.Watch {
		v.watcher, err = assets.NewWatcher(mgr)
		if err != nil {
			v.Close()
			return nil, err
		}
	}

	log.Info("viewer initialized successfully")
	return v, nil
}

// newViewer sets up everything that only needs a rendering context.
func newViewer(ctx glctx.Context, cfg *config.Config, mgr *assets.Manager) (*Viewer, error) {
	v := &Viewer{
		cfg:         cfg,
		log:         logger.Named("viewer"),
		ctx:         ctx,
		assets:      mgr,
		camera:      space.NewOrbitCamera(),
		transforms:  space.NewTransformStack(),
		viewports:   space.NewViewportStack(),
		width:       cfg.Window.Width,
		height:      cfg.Window.Height,
		screenshots: debug.NewScreenshotCapture(cfg.Viewer.ScreenshotDir, "model"),
	}

	if cfg.Renderer.DepthTest {
		ctx.Enable(glctx.DepthTest)
	}

	var err error
	v.renderer, err = renderer.New(ctx, renderer.Options{Strict: cfg.Renderer.Strict})
	if err != nil {
		return nil, err
	}
	v.technique, err = NewTechnique(ctx, cfg.Viewer.Technique)
	if err != nil {
		v.Close()
		return nil, err
	}

	if err := v.open(cfg.Viewer.Model); err != nil {
		v.Close()
		return nil, err
	}
	if cfg.Viewer.Texture != "" {
		v.textureKey = assets.Clean(cfg.Viewer.Texture)
		if err := v.loadTexture(); err != nil {
			v.Close()
			return nil, err
		}
	}
	return v, nil
}

// resolve maps a model argument to an asset key. Files on disk outside every
// root get their directory added as a root.
func (v *Viewer) resolve(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return assets.Clean(p), nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	if key, ok := v.assets.Resolve(abs); ok {
		return key, nil
	}
	dir := filepath.Dir(abs)
	if err := v.assets.AddDir(dir); err != nil {
		return "", err
	}
	if v.watcher != nil {
		if err := v.watcher.AddDir(dir); err != nil {
			v.log.Warn("watching model dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	return filepath.Base(abs), nil
}

// open replaces the scene with the model at p.
func (v *Viewer) open(p string) error {
	key, err := v.resolve(p)
	if err != nil {
		return err
	}
	scene, err := NewScene(v.ctx, v.assets, key, model.Options{
		Buffers: model.BufferOptions{Usage: BufferUsage(v.cfg.Renderer.BufferUsage)},
	})
	if err != nil {
		return err
	}
	scene.Part = v.cfg.Viewer.Part
	scene.ShowBounds = v.cfg.Viewer.ShowBounds

	if v.scene != nil {
		v.scene.Destroy()
	}
	v.scene = scene
	v.reload = newReloadTracker(key, v.cfg.Assets.WatchDebounce)
	v.warnedUnmatched = false
	v.fitCamera()
	return nil
}

func (v *Viewer) loadTexture() error {
	data, err := v.assets.Load(v.textureKey)
	if err != nil {
		return err
	}
	tex, err := texture.Load(v.ctx, data, v.textureKey, texture.Options{Mipmaps: true})
	if err != nil {
		return fmt.Errorf("texture %s: %w", v.textureKey, err)
	}
	if v.texture != nil {
		v.texture.Destroy()
	}
	v.texture = tex
	return nil
}

func (v *Viewer) fitCamera() {
	lo, hi := v.scene.Extent()
	v.camera.FitToBounds(lo, hi, fovY)
}

// Run starts the main viewer loop.
func (v *Viewer) Run() error {
	v.running = true

	// Timing
	frameCount := 0
	fpsTimer := time.Now()
	var frameBudget time.Duration
	if v.cfg.Window.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(v.cfg.Window.FPSLimit)
	}

	v.log.Info("starting viewer loop")

	for v.running {
		frameStart := time.Now()

		// 1. Process input
		if v.input.Update() {
			// Quit event received
			v.running = false
			break
		}
		capture := v.handleEvents()

		// 2. Pick up changed assets
		v.pollChanges(frameStart)

		// 3. Render
		if err := v.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		if capture {
			if _, err := v.Screenshot(); err != nil {
				v.log.Error("screenshot failed", zap.Error(err))
			}
		}

		// 4. Present (swap buffers)
		v.window.SwapBuffers()

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.window.SetTitle(fmt.Sprintf("%s - %s (%d fps)", v.cfg.Window.Title, v.scene.Path(), frameCount))
			v.log.Debug("fps", zap.Int("count", frameCount))
			frameCount = 0
			fpsTimer = time.Now()
		}

		if elapsed := time.Since(frameStart); elapsed < frameBudget {
			time.Sleep(frameBudget - elapsed)
		}
	}

	return nil
}

// handleEvents applies this frame's input and reports whether a screenshot
// was requested.
func (v *Viewer) handleEvents() (capture bool) {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.width, v.height = v.window.DrawableSize()
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_F12:
				capture = true
			case sdl.SCANCODE_B:
				v.scene.ShowBounds = !v.scene.ShowBounds
			case sdl.SCANCODE_F:
				v.fitCamera()
			case sdl.SCANCODE_R:
				v.reloadScene()
			case sdl.SCANCODE_L:
				v.toggleDebugLog()
			case sdl.SCANCODE_F11:
				if err := v.window.ToggleFullscreen(); err != nil {
					v.log.Warn("toggling fullscreen", zap.Error(err))
				}
				v.width, v.height = v.window.DrawableSize()
			}
		case input.EventFileDrop:
			if err := v.open(event.File); err != nil {
				v.log.Error("opening dropped file", zap.String("file", event.File), zap.Error(err))
			}
		}
	}

	if dx, dy := v.input.Drag(sdl.BUTTON_LEFT); dx != 0 || dy != 0 {
		v.camera.HandleDrag(float32(dx), float32(dy))
	}
	if w := v.input.Wheel(); w != 0 {
		v.camera.HandleZoom(w)
	}
	return capture
}

// pollChanges drains the watcher without blocking and reloads the model
// once a burst of relevant changes has settled.
func (v *Viewer) pollChanges(now time.Time) {
	if v.watcher == nil {
		return
	}
drain:
	for {
		select {
		case c, ok := <-v.watcher.Changes():
			if !ok {
				v.watcher = nil
				return
			}
			if v.textureKey != "" && c.Path == v.textureKey && !c.Removed {
				if err := v.loadTexture(); err != nil {
					v.log.Error("texture reload failed", zap.Error(err))
				}
				continue
			}
			v.reload.Notify(c, now)
		case err, ok := <-v.watcher.Errors():
			if !ok {
				v.watcher = nil
				return
			}
			v.log.Warn("asset watch error", zap.Error(err))
		default:
			break drain
		}
	}
	if v.reload.Due(now) {
		v.reloadScene()
	}
}

// toggleDebugLog switches between debug and the configured log level.
func (v *Viewer) toggleDebugLog() {
	next := "debug"
	if logger.Level() == zapcore.DebugLevel {
		next = v.cfg.Logging.Level
	}
	if err := logger.SetLevel(next); err != nil {
		v.log.Warn("log level", zap.Error(err))
		return
	}
	v.log.Info("log level changed", zap.Stringer("level", logger.Level()))
}

func (v *Viewer) reloadScene() {
	if err := v.scene.Reload(); err != nil {
		v.log.Error("model reload failed, keeping previous model", zap.Error(err))
		return
	}
	v.warnedUnmatched = false
}

// render draws the current frame to the window.
func (v *Viewer) render() error {
	r := v.renderer
	r.Begin()
	defer r.End()

	if err := r.ActivateMainFramebuffer(); err != nil {
		return err
	}
	return v.drawScene(v.width, v.height)
}

// drawScene clears the selected framebuffer and draws the scene into a
// width x height viewport. Per-chunk errors are logged, not returned.
func (v *Viewer) drawScene(width, height int) error {
	r := v.renderer

	v.viewports.Load(0, 0, int32(width), int32(height))
	vp := v.viewports.Top()
	if err := r.SetViewport(vp[0], vp[1], vp[2], vp[3]); err != nil {
		return err
	}

	clearColor := v.cfg.Viewer.ClearColor
	clearDepth := float32(1)
	if err := r.ClearFramebufferValues(renderer.ClearValues{Color: &clearColor, Depth: &clearDepth}); err != nil {
		return err
	}

	near := math32.Max(v.camera.Distance/1000, 0.001)
	v.transforms.Projection.Perspective(fovY, v.viewports.Aspect(), near, v.camera.Distance*100)
	v.transforms.View.Load(v.camera.ViewMatrix())
	v.transforms.Model.LoadIdentity()

	globals := v.transforms.Globals()
	if v.texture != nil {
		if err := r.SetTexture(0, v.texture); err != nil {
			return err
		}
		globals["TEXTUREMIX"] = float32(1)
	}

	err := v.scene.Render(r, v.technique, globals)
	var unmatched *renderer.UnmatchedSemanticsError
	if errors.As(err, &unmatched) {
		if !v.warnedUnmatched {
			v.log.Warn("technique ignores model streams", zap.Error(unmatched))
			v.warnedUnmatched = true
		}
		return nil
	}
	if err != nil {
		v.log.Debug("draw errors", zap.Error(err))
	}
	return nil
}

// Screenshot saves the current view as a PNG. With offscreen rendering
// enabled the scene is drawn again into the renderer's internal framebuffer;
// otherwise the back buffer is read.
func (v *Viewer) Screenshot() (string, error) {
	if !v.cfg.Viewer.Offscreen {
		return v.screenshots.Capture(v.ctx, v.width, v.height)
	}
	pixels, err := v.renderOffscreen(v.width, v.height)
	if err != nil {
		return "", err
	}
	return v.screenshots.CaptureFromPixels(pixels, v.width, v.height)
}

func (v *Viewer) renderOffscreen(width, height int) ([]byte, error) {
	if err := v.ensureCaptureTargets(int32(width), int32(height)); err != nil {
		return nil, err
	}

	r := v.renderer
	r.Begin()
	defer r.End()

	if err := r.ActivateOffscreenFramebuffer(); err != nil {
		return nil, err
	}
	if err := r.SetColorRenderTarget(v.captureColor); err != nil {
		return nil, err
	}
	if err := r.SetDepthRenderTarget(v.captureDepth); err != nil {
		return nil, err
	}
	if err := v.drawScene(width, height); err != nil {
		return nil, err
	}
	return r.OffscreenFramebuffer().ReadPixels(0, 0, int32(width), int32(height)), nil
}

func (v *Viewer) ensureCaptureTargets(width, height int32) error {
	if v.captureColor == nil {
		color, err := texture.New2D(v.ctx, width, height, texture.Options{})
		if err != nil {
			return err
		}
		depth, err := framebuffer.NewRenderbuffer(v.ctx, glctx.DepthComponent24, width, height)
		if err != nil {
			color.Destroy()
			return err
		}
		v.captureColor, v.captureDepth = color, depth
		return nil
	}
	if w, h := v.captureColor.Size(); w != width || h != height {
		v.captureColor.Resize(width, height)
		v.captureDepth.Resize(width, height)
	}
	return nil
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.watcher != nil {
		v.watcher.Close()
		v.watcher = nil
	}
	if v.scene != nil {
		v.scene.Destroy()
		v.scene = nil
	}
	if v.texture != nil {
		v.texture.Destroy()
		v.texture = nil
	}
	if v.captureColor != nil {
		v.captureColor.Destroy()
		v.captureDepth.Destroy()
		v.captureColor, v.captureDepth = nil, nil
	}
	if v.technique != nil {
		v.technique.Destroy()
		v.technique = nil
	}
	if v.renderer != nil {
		v.renderer.Destroy()
		v.renderer = nil
	}
	if v.assets != nil {
		v.assets.Close()
	}
	if v.window != nil {
		v.window.Close()
		v.window = nil
	}
}
