package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/modelgl/internal/logger"
)

// ErrInvalid is wrapped by every error Validate reports.
var ErrInvalid = errors.New("invalid config")

// Validate reports every setting the viewer cannot start with.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Window.FPSLimit >= 0, "fps_limit %d", c.Window.FPSLimit)
	check(c.Window.Samples >= 0 && c.Window.Samples <= 16, "samples %d", c.Window.Samples)

	switch c.Renderer.BufferUsage {
	case "", "static", "dynamic", "stream":
	default:
		check(false, "buffer_usage %q (want static, dynamic or stream)", c.Renderer.BufferUsage)
	}

	check(c.Assets.WatchDebounce >= 0, "watch_debounce %v", c.Assets.WatchDebounce)
	for i, root := range c.Assets.Roots {
		check(root != "", "assets root %d is empty", i)
	}

	_, err := logger.ParseLevel(c.Logging.Level)
	check(err == nil, "logging level %q", c.Logging.Level)
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		check(false, "logging format %q (want console or json)", c.Logging.Format)
	}

	return errs
}
