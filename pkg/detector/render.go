package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"BoxDetector/pkg/imgcodec"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// palette is declared in RGB. The canvas is drawn in the bitmap's native
// BGR order, so every color goes through bgr() before it is used.
var palette = []color.RGBA{
	{0xFF, 0x38, 0x38, 0xFF},
	{0x1A, 0x93, 0x34, 0xFF},
	{0xFF, 0x9D, 0x97, 0xFF},
	{0xFF, 0x70, 0x1F, 0xFF},
	{0xFF, 0xB2, 0x1D, 0xFF},
	{0xCF, 0xD2, 0x31, 0xFF},
	{0x48, 0xF9, 0x0A, 0xFF},
	{0x92, 0xCC, 0x17, 0xFF},
	{0x3D, 0xDB, 0x86, 0xFF},
	{0x00, 0xD4, 0xBB, 0xFF},
}

var (
	fontOnce sync.Once
	fontData *truetype.Font
	fontErr  error
)

func labelFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

// ColorFor returns the RGB box color used for a class.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

func bgr(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: c.A}
}

// Renderer draws detection overlays.
type Renderer struct {
	labels bool
}

func NewRenderer(labels bool) *Renderer {
	return &Renderer{labels: labels}
}

// LineWidth scales the stroke with the image size, never thinner than 2px.
func LineWidth(width, height int) float64 {
	return math.Max(math.Round(float64(width+height)/2*0.003), 2)
}

// Render returns an annotated copy of img.
func (r *Renderer) Render(img *imgcodec.Bitmap, detections []Detection) *imgcodec.Bitmap {
	canvas := image.NewRGBA(img.Bounds())
	for i, n := 0, img.Width*img.Height; i < n; i++ {
		s, d := i*img.Channels, i*4
		canvas.Pix[d] = img.Pix[s]
		canvas.Pix[d+1] = img.Pix[s+1]
		canvas.Pix[d+2] = img.Pix[s+2]
		canvas.Pix[d+3] = 0xff
	}

	dc := gg.NewContextForRGBA(canvas)
	lw := LineWidth(img.Width, img.Height)

	for _, det := range detections {
		c := bgr(ColorFor(det.ClassID))
		box := det.Box.Intersect(img.Bounds())
		if box.Empty() {
			continue
		}

		dc.SetColor(c)
		dc.SetLineWidth(lw)
		dc.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
		dc.Stroke()

		if r.labels {
			r.drawLabel(dc, box, det, c, lw)
		}
	}

	out := imgcodec.NewBitmap(img.Width, img.Height)
	for i, n := 0, img.Width*img.Height; i < n; i++ {
		s, d := i*4, i*imgcodec.Channels
		out.Pix[d] = canvas.Pix[s]
		out.Pix[d+1] = canvas.Pix[s+1]
		out.Pix[d+2] = canvas.Pix[s+2]
	}
	return out
}

func (r *Renderer) drawLabel(dc *gg.Context, box image.Rectangle, det Detection, bg color.RGBA, lw float64) {
	f, err := labelFont()
	if err != nil {
		return
	}

	size := math.Max(lw*6, 10)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: size}))

	text := fmt.Sprintf("%s %.2f", det.Label, det.Score)
	tw, th := dc.MeasureString(text)
	pad := lw

	x := float64(box.Min.X)
	y := float64(box.Min.Y) - th - 2*pad
	if y < 0 {
		y = float64(box.Min.Y)
	}

	dc.SetColor(bg)
	dc.DrawRectangle(x, y, tw+2*pad, th+2*pad)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, x+pad, y+pad, 0, 1)
}
