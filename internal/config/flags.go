package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagModel      = flag.String("model", "", "Model descriptor or OBJ file to view")
	flagPart       = flag.String("part", "", "Draw only this part")
	flagTexture    = flag.String("texture", "", "Image bound to texture unit 0")
	flagBounds     = flag.Bool("bounds", false, "Show the bounding box")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagStrict     = flag.Bool("strict", false, "Report model semantics no technique input consumes")
	flagWatch      = flag.Bool("watch", false, "Reload the model when its files change")
	flagOffscreen  = flag.Bool("offscreen", false, "Render screenshots through an offscreen framebuffer")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags overrides cfg with every flag given on the command line. Zero
// values mean "not given".
func applyFlags(cfg *Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, v bool) {
		if v {
			*dst = true
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}

	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	setString(&cfg.Viewer.Model, *flagModel)
	setString(&cfg.Viewer.Part, *flagPart)
	setString(&cfg.Viewer.Texture, *flagTexture)
	setBool(&cfg.Viewer.ShowBounds, *flagBounds)
	setBool(&cfg.Viewer.Offscreen, *flagOffscreen)
	setBool(&cfg.Window.Fullscreen, *flagFullscreen)
	setInt(&cfg.Window.Width, *flagWidth)
	setInt(&cfg.Window.Height, *flagHeight)
	setBool(&cfg.Renderer.Strict, *flagStrict)
	setBool(&cfg.Assets.Watch, *flagWatch)
}
