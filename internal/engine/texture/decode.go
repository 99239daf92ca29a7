package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
)

// Decode decodes image data of any supported format. The container is sniffed
// from the content; name is only consulted for TGA, which carries no magic number.
func Decode(data []byte, name string) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("sniffing %s: %w", name, err)
	}

	switch kind.Extension {
	case "png", "jpg", "gif":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding %s as %s: %w", name, kind.Extension, err)
		}
		return img, nil
	case "bmp":
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding %s as bmp: %w", name, err)
		}
		return img, nil
	}

	if strings.EqualFold(filepath.Ext(name), ".tga") {
		return DecodeTGA(data)
	}
	return nil, fmt.Errorf("unsupported image format for %s", name)
}

// ImageToRGBA converts any image.Image to *image.RGBA anchored at the origin.
func ImageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
