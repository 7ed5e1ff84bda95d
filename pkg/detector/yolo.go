package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"BoxDetector/pkg/imgcodec"

	"github.com/disintegration/imaging"
)

// letterbox records how a source image was fitted into the square model input.
type letterbox struct {
	scale      float64
	padX, padY float64
	srcW, srcH int
}

var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// preprocess converts a BGR bitmap into a planar RGB float tensor in [0,1],
// letterboxed into a size x size square.
func preprocess(img *imgcodec.Bitmap, size int) ([]float32, letterbox) {
	scale := math.Min(float64(size)/float64(img.Width), float64(size)/float64(img.Height))
	nw := int(math.Round(float64(img.Width) * scale))
	nh := int(math.Round(float64(img.Height) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	padX := (size - nw) / 2
	padY := (size - nh) / 2

	// the model was trained on RGB input
	rgb := img.ToImage()
	resized := imaging.Resize(rgb, nw, nh, imaging.Linear)
	canvas := imaging.New(size, size, padColor)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < size; x++ {
			p := row[x*4:]
			i := y*size + x
			data[i] = float32(p[0]) / 255
			data[plane+i] = float32(p[1]) / 255
			data[2*plane+i] = float32(p[2]) / 255
		}
	}

	return data, letterbox{
		scale: scale,
		padX:  float64(padX),
		padY:  float64(padY),
		srcW:  img.Width,
		srcH:  img.Height,
	}
}

// decodeOutput parses a YOLOv8/v11 detection head. The tensor is either
// [1, 4+nc, anchors] (the default export) or [1, anchors, 4+nc].
func decodeOutput(out []float32, dims []int64, numClasses int, lb letterbox, conf, iou float64) ([]Detection, error) {
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}

	attrs := int64(4 + numClasses)
	var anchors int64
	var at func(anchor, attr int) float32

	switch {
	case dims[1] == attrs:
		anchors = dims[2]
		at = func(anchor, attr int) float32 { return out[int64(attr)*anchors+int64(anchor)] }
	case dims[2] == attrs:
		anchors = dims[1]
		at = func(anchor, attr int) float32 { return out[int64(anchor)*attrs+int64(attr)] }
	default:
		return nil, fmt.Errorf("output shape %v does not match %d classes", dims, numClasses)
	}
	if int64(len(out)) < anchors*attrs {
		return nil, fmt.Errorf("output has %d values, want %d", len(out), anchors*attrs)
	}

	candidates := make([]Detection, 0, 32)
	for a := 0; a < int(anchors); a++ {
		classID, best := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := at(a, 4+c); s > best {
				classID, best = c, s
			}
		}
		if classID < 0 || float64(best) < conf {
			continue
		}

		cx, cy := float64(at(a, 0)), float64(at(a, 1))
		w, h := float64(at(a, 2)), float64(at(a, 3))

		box := image.Rect(
			clamp(int(math.Round((cx-w/2-lb.padX)/lb.scale)), 0, lb.srcW),
			clamp(int(math.Round((cy-h/2-lb.padY)/lb.scale)), 0, lb.srcH),
			clamp(int(math.Round((cx+w/2-lb.padX)/lb.scale)), 0, lb.srcW),
			clamp(int(math.Round((cy+h/2-lb.padY)/lb.scale)), 0, lb.srcH),
		)
		if box.Empty() {
			continue
		}

		candidates = append(candidates, Detection{
			Box:     box,
			ClassID: classID,
			Score:   float64(best),
		})
	}

	return nonMaxSuppression(candidates, iou), nil
}

// nonMaxSuppression keeps the highest scoring box of every overlapping
// cluster within the same class.
func nonMaxSuppression(dets []Detection, threshold float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Score > dets[j].Score
	})

	kept := make([]Detection, 0, len(dets))
	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if !suppressed[j] && dets[j].ClassID == dets[i].ClassID && IoU(dets[i].Box, dets[j].Box) > threshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU is the intersection over union of two boxes.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
