// Package detectortest provides engines with scripted output for tests.
package detectortest

import (
	"context"
	"image"
	"sync/atomic"

	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/imgcodec"
)

// DefaultLabels matches the class order of the production box model.
var DefaultLabels = []string{"empty", "full"}

// Engine is a detector.Engine whose output is computed by ForwardFunc.
type Engine struct {
	ForwardFunc func(ctx context.Context, img *imgcodec.Bitmap) ([]detector.Detection, error)
	LabelList   []string

	calls  atomic.Int64
	closed atomic.Bool
}

func (e *Engine) Forward(ctx context.Context, img *imgcodec.Bitmap) ([]detector.Detection, error) {
	e.calls.Add(1)
	if e.ForwardFunc == nil {
		return nil, nil
	}
	return e.ForwardFunc(ctx, img)
}

func (e *Engine) Labels() []string {
	if e.LabelList == nil {
		return DefaultLabels
	}
	return e.LabelList
}

func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

func (e *Engine) Calls() int64 {
	return e.calls.Load()
}

func (e *Engine) Closed() bool {
	return e.closed.Load()
}

// Static returns an engine that always reports dets.
func Static(dets ...detector.Detection) *Engine {
	return &Engine{
		ForwardFunc: func(context.Context, *imgcodec.Bitmap) ([]detector.Detection, error) {
			out := make([]detector.Detection, len(dets))
			copy(out, dets)
			return out, nil
		},
	}
}

// Box builds a detection for class id classID of DefaultLabels.
func Box(classID int, x0, y0, x1, y1 int) detector.Detection {
	return detector.Detection{
		Box:     image.Rect(x0, y0, x1, y1),
		ClassID: classID,
		Label:   DefaultLabels[classID],
		Score:   0.9,
	}
}

// TwoFullOneEmpty mimics the shelf fixture: two full boxes and one empty box.
func TwoFullOneEmpty() *Engine {
	return Static(
		Box(1, 2, 2, 12, 12),
		Box(1, 20, 2, 30, 12),
		Box(0, 2, 20, 12, 30),
	)
}
