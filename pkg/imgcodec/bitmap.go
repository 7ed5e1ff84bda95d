package imgcodec

import (
	"fmt"
	"image"
	"image/color"
)

// Channels is the channel count of every Bitmap produced by this package.
const Channels = 3

// Bitmap is the canonical decoded image handed to the detector. Pixels are
// packed row-major in B, G, R order, the native order of the model tooling
// and of the annotation renderer. Use ToImage before handing pixels to
// anything that expects RGB.
type Bitmap struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		Width:    width,
		Height:   height,
		Channels: Channels,
		Pix:      make([]byte, width*height*Channels),
	}
}

// Validate reports whether the bitmap is well formed.
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("bitmap is nil")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("bitmap has zero size %dx%d", b.Width, b.Height)
	}
	if b.Channels != Channels {
		return fmt.Errorf("bitmap has %d channels, want %d", b.Channels, Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("bitmap buffer has %d bytes, want %d", len(b.Pix), b.Width*b.Height*b.Channels)
	}
	return nil
}

func (b *Bitmap) Clone() *Bitmap {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &Bitmap{Width: b.Width, Height: b.Height, Channels: b.Channels, Pix: pix}
}

func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// BGR returns the raw pixel at (x, y).
func (b *Bitmap) BGR(x, y int) (blue, green, red uint8) {
	i := (y*b.Width + x) * b.Channels
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// SetRGB stores an RGB color at (x, y), swapping it into BGR order.
func (b *Bitmap) SetRGB(x, y int, c color.RGBA) {
	i := (y*b.Width + x) * b.Channels
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = c.B, c.G, c.R
}

// FromImage converts any decoded image into a BGR bitmap. Alpha is dropped.
func FromImage(img image.Image) *Bitmap {
	r := img.Bounds()
	out := NewBitmap(r.Dx(), r.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				s := row[x*4:]
				d := (y*out.Width + x) * Channels
				out.Pix[d], out.Pix[d+1], out.Pix[d+2] = s[2], s[1], s[0]
			}
		}
	case *image.RGBA:
		for y := 0; y < out.Height; y++ {
			row := src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):]
			for x := 0; x < out.Width; x++ {
				s := row[x*4:]
				d := (y*out.Width + x) * Channels
				out.Pix[d], out.Pix[d+1], out.Pix[d+2] = s[2], s[1], s[0]
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA)
				d := (y*out.Width + x) * Channels
				out.Pix[d], out.Pix[d+1], out.Pix[d+2] = c.B, c.G, c.R
			}
		}
	}

	return out
}

// ToImage reorders the BGR pixels into an opaque RGBA image.
func (b *Bitmap) ToImage() *image.RGBA {
	img := image.NewRGBA(b.Bounds())
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			s := (y*b.Width + x) * b.Channels
			d := y*img.Stride + x*4
			img.Pix[d] = b.Pix[s+2]
			img.Pix[d+1] = b.Pix[s+1]
			img.Pix[d+2] = b.Pix[s]
			img.Pix[d+3] = 0xff
		}
	}
	return img
}
