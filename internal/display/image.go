package display

import (
	"image"
	"image/color"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

// Default colours used by the renderers.
var (
	On  = color.RGBA{0xE0, 0xF8, 0xD0, 0xFF}
	Off = color.RGBA{0x08, 0x18, 0x20, 0xFF}
)

// RGBA converts the frame to Width*Height*4 bytes of RGBA, as accepted by
// ebiten.Image.WritePixels.
func (f *Frame) RGBA(on, off color.RGBA) []byte {
	pix := make([]byte, Width*Height*4)
	i := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := off
			if f[y][x] != 0 {
				c = on
			}
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
			i += 4
		}
	}
	return pix
}

// Image returns the frame scaled by an integer factor, each pixel becoming
// a scale*scale block.
func (f *Frame) Image(scale int, on, off color.RGBA) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	src := &image.RGBA{
		Pix:    f.RGBA(on, off),
		Stride: 4 * Width,
		Rect:   image.Rect(0, 0, Width, Height),
	}
	if scale == 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// WritePNG encodes the scaled frame as PNG.
func (f *Frame) WritePNG(w io.Writer, scale int) error {
	return png.Encode(w, f.Image(scale, On, Off))
}
