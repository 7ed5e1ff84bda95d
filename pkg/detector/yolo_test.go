package detector

import (
	"image"
	"testing"

	"BoxDetector/pkg/imgcodec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessLetterboxesAndSwapsChannels(t *testing.T) {
	img := imgcodec.NewBitmap(8, 4)
	for i := 0; i < 8*4; i++ {
		// pure red, stored as B, G, R
		img.Pix[i*3+2] = 255
	}

	data, lb := preprocess(img, 8)
	require.Len(t, data, 3*8*8)

	assert.Equal(t, 1.0, lb.scale)
	assert.Equal(t, 0.0, lb.padX)
	assert.Equal(t, 2.0, lb.padY)

	plane := 64
	center := 4*8 + 4
	assert.InDelta(t, 1.0, data[center], 1e-6, "red plane")
	assert.InDelta(t, 0.0, data[plane+center], 1e-6, "green plane")
	assert.InDelta(t, 0.0, data[2*plane+center], 1e-6, "blue plane")

	// padding rows are gray 114
	assert.InDelta(t, 114.0/255, data[0], 1e-6)
	assert.InDelta(t, 114.0/255, data[2*plane], 1e-6)
}

// channel-major tensor [1, 4+nc, anchors]
func tensor(anchors [][]float32) ([]float32, []int64) {
	attrs := len(anchors[0])
	out := make([]float32, attrs*len(anchors))
	for a, vals := range anchors {
		for k, v := range vals {
			out[k*len(anchors)+a] = v
		}
	}
	return out, []int64{1, int64(attrs), int64(len(anchors))}
}

func TestDecodeOutput(t *testing.T) {
	lb := letterbox{scale: 0.5, padX: 0, padY: 10, srcW: 200, srcH: 160}
	out, dims := tensor([][]float32{
		// cx, cy, w, h, empty, full
		{50, 50, 20, 20, 0.1, 0.9},
		{52, 50, 20, 20, 0.2, 0.8}, // overlaps the first, same class
		{50, 50, 20, 20, 0.7, 0.1}, // same place, other class
		{80, 80, 10, 10, 0.1, 0.2}, // below threshold
	})

	dets, err := decodeOutput(out, dims, 2, lb, 0.25, 0.45)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, 1, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Score, 1e-6)
	assert.Equal(t, image.Rect(80, 60, 120, 100), dets[0].Box)

	assert.Equal(t, 0, dets[1].ClassID)
}

func TestDecodeOutputAnchorMajor(t *testing.T) {
	lb := letterbox{scale: 1, srcW: 100, srcH: 100}
	out := []float32{
		10, 10, 4, 4, 0.9, 0.0,
		90, 90, 40, 40, 0.0, 0.6,
	}

	dets, err := decodeOutput(out, []int64{1, 2, 6}, 2, lb, 0.25, 0.45)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, image.Rect(8, 8, 12, 12), dets[0].Box)
	// clamped to the source image
	assert.Equal(t, image.Rect(70, 70, 100, 100), dets[1].Box)
}

func TestDecodeOutputShapeMismatch(t *testing.T) {
	_, err := decodeOutput(make([]float32, 10), []int64{1, 5, 2}, 2, letterbox{scale: 1}, 0.25, 0.45)
	assert.Error(t, err)

	_, err = decodeOutput(make([]float32, 10), []int64{6, 2}, 2, letterbox{scale: 1}, 0.25, 0.45)
	assert.Error(t, err)

	_, err = decodeOutput(make([]float32, 3), []int64{1, 6, 2}, 2, letterbox{scale: 1}, 0.25, 0.45)
	assert.Error(t, err)
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	assert.Equal(t, 1.0, IoU(a, a))
	assert.Equal(t, 0.0, IoU(a, image.Rect(20, 20, 30, 30)))
	assert.InDelta(t, 25.0/175.0, IoU(a, image.Rect(5, 5, 15, 15)), 1e-9)
}

func TestNonMaxSuppressionKeepsOtherClasses(t *testing.T) {
	box := image.Rect(0, 0, 10, 10)
	kept := nonMaxSuppression([]Detection{
		{Box: box, ClassID: 0, Score: 0.5},
		{Box: box, ClassID: 1, Score: 0.6},
		{Box: box, ClassID: 1, Score: 0.9},
	}, 0.5)

	require.Len(t, kept, 2)
	assert.Equal(t, 0.9, kept[0].Score)
	assert.Equal(t, 0, kept[1].ClassID)
}
