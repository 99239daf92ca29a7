package debug

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/logger"
)

// PixelReader reads RGBA bytes from a render target. Both glctx.Context and
// *framebuffer.Framebuffer satisfy it.
type PixelReader interface {
	ReadPixels(x, y, width, height int32) []byte
}

// ScreenshotCapture writes timestamped PNG files into a directory.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	now       func() time.Time

	// Opaque forces alpha to 255, since the read-back alpha of a blended
	// frame rarely means transparency.
	Opaque bool
}

// NewScreenshotCapture creates a capture writing prefix_<timestamp>.png files.
func NewScreenshotCapture(outputDir, prefix string) *ScreenshotCapture {
	return &ScreenshotCapture{outputDir: outputDir, prefix: prefix, now: time.Now, Opaque: true}
}

// SetOutputDir sets the output directory for screenshots.
func (sc *ScreenshotCapture) SetOutputDir(dir string) { sc.outputDir = dir }

// Capture reads a width x height region from src and saves it.
func (sc *ScreenshotCapture) Capture(src PixelReader, width, height int) (string, error) {
	return sc.CaptureFromPixels(src.ReadPixels(0, 0, int32(width), int32(height)), width, height)
}

// CaptureFromPixels saves width*height bottom-up RGBA pixels as read back
// from a framebuffer.
func (sc *ScreenshotCapture) CaptureFromPixels(pixels []byte, width, height int) (string, error) {
	img, err := FlipPixels(pixels, width, height)
	if err != nil {
		return "", err
	}
	if sc.Opaque {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
	}
	return sc.CaptureFromImage(img)
}

// FlipPixels copies bottom-up RGBA rows into a top-down image.
func FlipPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if want := width * height * 4; len(pixels) != want {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", want, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return img, nil
}

// CaptureFromImage saves img as a PNG and returns the file name. An existing
// file is never overwritten; a counter is appended instead.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	base := sc.GenerateFilename()
	filename := base
	var file *os.File
	for n := 1; ; n++ {
		var err error
		file, err = os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) || n > 99 {
			return "", fmt.Errorf("creating file: %w", err)
		}
		filename = fmt.Sprintf("%s_%d.png", strings.TrimSuffix(base, ".png"), n)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}

	b := img.Bounds()
	logger.Named("debug").Info("screenshot saved",
		zap.String("file", filename),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))
	return filename, nil
}

// GenerateFilename returns the name the next capture would use.
func (sc *ScreenshotCapture) GenerateFilename() string {
	name := fmt.Sprintf("%s_%s.png", sc.prefix, sc.now().Format("2006-01-02_15-04-05.000"))
	return filepath.Join(sc.outputDir, name)
}
