package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

var errTGATruncated = errors.New("TGA data truncated")

// tgaReader walks TGA pixel data in file order and stores pixels into an
// RGBA image, honoring the origin bit of the descriptor.
type tgaReader struct {
	img         *image.RGBA
	data        []byte
	pos         int
	bpp         int
	width       int
	height      int
	topToBottom bool
	written     int
}

func (r *tgaReader) pixel() (color.RGBA, bool) {
	if r.pos+r.bpp > len(r.data) {
		return color.RGBA{}, false
	}
	p := r.data[r.pos : r.pos+r.bpp]
	r.pos += r.bpp
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if r.bpp == 4 {
		c.A = p[3]
	}
	return c, true
}

func (r *tgaReader) put(c color.RGBA) {
	x, y := r.written%r.width, r.written/r.width
	if !r.topToBottom {
		y = r.height - 1 - y
	}
	r.img.SetRGBA(x, y, c)
	r.written++
}

func (r *tgaReader) done() bool {
	return r.written >= r.width*r.height
}

// DecodeTGA decodes a TGA image file.
// Supports uncompressed (type 2) and RLE compressed (type 10) 24/32-bit true-color files.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := int(data[2])
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}
	if 18+idLength > len(data) {
		return nil, errTGATruncated
	}

	r := &tgaReader{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		data:        data[18+idLength:],
		bpp:         bpp / 8,
		width:       width,
		height:      height,
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed {
		if len(r.data) < width*height*r.bpp {
			return nil, errTGATruncated
		}
		for !r.done() {
			c, _ := r.pixel()
			r.put(c)
		}
		return r.img, nil
	}

	// RLE: a header byte per packet, high bit set for a repeated pixel.
	for !r.done() && r.pos < len(r.data) {
		packet := r.data[r.pos]
		r.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := r.pixel()
			if !ok {
				break
			}
			for i := 0; i < count && !r.done(); i++ {
				r.put(c)
			}
			continue
		}
		for i := 0; i < count && !r.done(); i++ {
			c, ok := r.pixel()
			if !ok {
				break
			}
			r.put(c)
		}
	}
	return r.img, nil
}
