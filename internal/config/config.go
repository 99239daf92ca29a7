// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Renderer RendererConfig `yaml:"renderer"`
	Assets   AssetsConfig   `yaml:"assets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
	Samples    int    `yaml:"samples"` // MSAA samples, 0 disables multisampling
}

// ViewerConfig holds what the viewer shows and how.
type ViewerConfig struct {
	Model         string     `yaml:"model"`          // Descriptor (.yaml/.json/.toml) or .obj file
	Part          string     `yaml:"part"`           // Empty renders every part
	Technique     string     `yaml:"technique"`      // Technique name looked up in chunks
	Texture       string     `yaml:"texture"`        // Image bound to unit 0, empty for vertex colors only
	ShowBounds    bool       `yaml:"show_bounds"`    // Draw the model's bounding box
	ClearColor    [4]float32 `yaml:"clear_color"`    // RGBA
	ScreenshotDir string     `yaml:"screenshot_dir"` // Where F12 captures go
	Offscreen     bool       `yaml:"offscreen"`      // Render into an FBO and blit through ReadPixels
}

// RendererConfig holds model renderer settings.
type RendererConfig struct {
	Strict      bool   `yaml:"strict"`       // Report model semantics no technique input consumes
	BufferUsage string `yaml:"buffer_usage"` // static, dynamic or stream
	DepthTest   bool   `yaml:"depth_test"`
}

// AssetsConfig holds resource provider settings.
type AssetsConfig struct {
	Roots         []string      `yaml:"roots"` // Directories searched in order
	Watch         bool          `yaml:"watch"` // Reload the model when its files change
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`    // debug, info, warn or error
	LogFile string `yaml:"log_file"` // Rotated file, empty for console only
	Format  string `yaml:"format"`   // console or json, for the file
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "modelgl viewer",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Viewer: ViewerConfig{
			Technique:     "common",
			ClearColor:    [4]float32{0.1, 0.1, 0.15, 1.0},
			ScreenshotDir: "screenshots",
		},
		Renderer: RendererConfig{
			Strict:      false,
			BufferUsage: "static",
			DepthTest:   true,
		},
		Assets: AssetsConfig{
			Roots:         []string{"."},
			Watch:         false,
			WatchDebounce: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}
