// Package texture wraps native 2D textures and decodes the image formats
// models reference (PNG, JPEG, GIF, BMP and TGA).
package texture

import (
	"fmt"
	"image"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
)

// Options configures sampling of a new texture.
type Options struct {
	MinFilter glctx.Enum // Linear when zero
	MagFilter glctx.Enum // Linear when zero
	WrapS     glctx.Enum // Repeat when zero
	WrapT     glctx.Enum // Repeat when zero
	Mipmaps   bool
}

// Texture2D is a native RGBA8 2D texture.
type Texture2D struct {
	ctx    glctx.Context
	handle uint32
	width  int32
	height int32
}

// New2D allocates an empty texture, typically used as a render target.
func New2D(ctx glctx.Context, width, height int32, opts Options) (*Texture2D, error) {
	return create(ctx, width, height, nil, opts)
}

// FromImage uploads img into a new texture.
func FromImage(ctx glctx.Context, img image.Image, opts Options) (*Texture2D, error) {
	rgba := ImageToRGBA(img)
	return create(ctx, int32(rgba.Rect.Dx()), int32(rgba.Rect.Dy()), rgba.Pix, opts)
}

// Load decodes data and uploads it into a new texture.
func Load(ctx glctx.Context, data []byte, name string, opts Options) (*Texture2D, error) {
	img, err := Decode(data, name)
	if err != nil {
		return nil, err
	}
	return FromImage(ctx, img, opts)
}

func create(ctx glctx.Context, width, height int32, pixels []byte, opts Options) (*Texture2D, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("texture: invalid size %dx%d", width, height)
	}
	h := ctx.CreateTexture()
	if h == 0 {
		return nil, fmt.Errorf("texture: native texture creation failed")
	}
	t := &Texture2D{ctx: ctx, handle: h, width: width, height: height}

	ctx.BindTexture(glctx.Texture2D, h)
	ctx.TexImage2D(glctx.Texture2D, width, height, pixels)
	ctx.TexParameteri(glctx.Texture2D, glctx.TextureMinFilter, int32(orDefault(opts.MinFilter, glctx.Linear)))
	ctx.TexParameteri(glctx.Texture2D, glctx.TextureMagFilter, int32(orDefault(opts.MagFilter, glctx.Linear)))
	ctx.TexParameteri(glctx.Texture2D, glctx.TextureWrapS, int32(orDefault(opts.WrapS, glctx.Repeat)))
	ctx.TexParameteri(glctx.Texture2D, glctx.TextureWrapT, int32(orDefault(opts.WrapT, glctx.Repeat)))
	if opts.Mipmaps && pixels != nil {
		ctx.GenerateMipmap(glctx.Texture2D)
	}
	ctx.BindTexture(glctx.Texture2D, 0)

	ctx.Registry().Register(glctx.Object{Kind: glctx.KindTexture, Handle: h}, t)
	return t, nil
}

func orDefault(v, def glctx.Enum) glctx.Enum {
	if v == 0 {
		return def
	}
	return v
}

// Handle returns the native handle, 0 after Destroy.
func (t *Texture2D) Handle() uint32 { return t.handle }

// Target returns Texture2D.
func (t *Texture2D) Target() glctx.Enum { return glctx.Texture2D }

// Size returns the texture dimensions.
func (t *Texture2D) Size() (width, height int32) { return t.width, t.height }

// Bind binds the texture to the given unit.
func (t *Texture2D) Bind(unit int) {
	t.ctx.ActiveTexture(unit)
	t.ctx.BindTexture(glctx.Texture2D, t.handle)
}

// Unbind clears the texture binding of the given unit.
func (t *Texture2D) Unbind(unit int) {
	t.ctx.ActiveTexture(unit)
	t.ctx.BindTexture(glctx.Texture2D, 0)
}

// Resize reallocates the storage, discarding the contents.
func (t *Texture2D) Resize(width, height int32) {
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = max(width, 1), max(height, 1)
	t.ctx.BindTexture(glctx.Texture2D, t.handle)
	t.ctx.TexImage2D(glctx.Texture2D, t.width, t.height, nil)
	t.ctx.BindTexture(glctx.Texture2D, 0)
}

// Destroy deletes the native object.
func (t *Texture2D) Destroy() {
	if t.handle == 0 {
		return
	}
	t.ctx.Registry().Forget(glctx.Object{Kind: glctx.KindTexture, Handle: t.handle})
	t.ctx.DeleteTexture(t.handle)
	t.handle = 0
}
