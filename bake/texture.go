package bake

import (
	"image"
	"image/png"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
)

// Texture3D is a dense RGBA float texel volume, x-major within a row,
// rows within a slice, slices along z. It maps one-to-one onto an
// RGBA32Float GPU texture.
type Texture3D struct {
	Width  int
	Height int
	Depth  int
	Pix    []float32
}

func NewTexture3D(w, h, d int) *Texture3D {
	return &Texture3D{
		Width:  w,
		Height: h,
		Depth:  d,
		Pix:    make([]float32, 4*w*h*d),
	}
}

func (t *Texture3D) texelOffset(x, y, z int) int {
	return 4 * ((z*t.Height+y)*t.Width + x)
}

func (t *Texture3D) At(x, y, z int) [4]float32 {
	o := t.texelOffset(x, y, z)
	return [4]float32{t.Pix[o], t.Pix[o+1], t.Pix[o+2], t.Pix[o+3]}
}

func (t *Texture3D) Set(x, y, z int, texel [4]float32) {
	o := t.texelOffset(x, y, z)
	t.Pix[o] = texel[0]
	t.Pix[o+1] = texel[1]
	t.Pix[o+2] = texel[2]
	t.Pix[o+3] = texel[3]
}

// Fill writes the same texel everywhere.
func (t *Texture3D) Fill(texel [4]float32) {
	for i := 0; i < len(t.Pix); i += 4 {
		t.Pix[i] = texel[0]
		t.Pix[i+1] = texel[1]
		t.Pix[i+2] = texel[2]
		t.Pix[i+3] = texel[3]
	}
}

// encodeSignedUnit maps [-1,1] to [0,1] for storage.
func encodeSignedUnit(f float32) float32 {
	return mgl32.Clamp(f, -1, 1)*0.5 + 0.5
}

// encodeDirection maps a unit (or zero) vector into [0,1]³ texel
// channels. The zero vector encodes to mid-gray, which decodes back to
// "no dominant direction".
func encodeDirection(d mgl32.Vec3) [3]float32 {
	return [3]float32{
		encodeSignedUnit(d.X()),
		encodeSignedUnit(d.Y()),
		encodeSignedUnit(d.Z()),
	}
}

// SliceAtlas flattens the volume into a 2D grid of z-slices for bake
// inspection, scaled up by scale. HDR texels are clamped to [0,1].
func (t *Texture3D) SliceAtlas(scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	cols := int(math.Ceil(math.Sqrt(float64(t.Depth))))
	rows := (t.Depth + cols - 1) / cols

	atlas := image.NewRGBA(image.Rect(0, 0, cols*t.Width*scale, rows*t.Height*scale))
	slice := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))

	for z := 0; z < t.Depth; z++ {
		for y := 0; y < t.Height; y++ {
			for x := 0; x < t.Width; x++ {
				texel := t.At(x, y, z)
				o := slice.PixOffset(x, y)
				slice.Pix[o] = toByte(texel[0])
				slice.Pix[o+1] = toByte(texel[1])
				slice.Pix[o+2] = toByte(texel[2])
				slice.Pix[o+3] = 255
			}
		}
		cx := (z % cols) * t.Width * scale
		cy := (z / cols) * t.Height * scale
		dst := image.Rect(cx, cy, cx+t.Width*scale, cy+t.Height*scale)
		xdraw.NearestNeighbor.Scale(atlas, dst, slice, slice.Bounds(), xdraw.Src, nil)
	}
	return atlas
}

// WritePreviewPNG encodes the slice atlas as PNG.
func (t *Texture3D) WritePreviewPNG(w io.Writer, scale int) error {
	return png.Encode(w, t.SliceAtlas(scale))
}

func toByte(f float32) uint8 {
	return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
}
