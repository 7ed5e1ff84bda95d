package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"BoxDetector/pkg/imgcodec"

	"github.com/sirupsen/logrus"
)

var (
	ErrInference        = errors.New("inference failed")
	ErrModelUnavailable = fmt.Errorf("%w: model unavailable", ErrInference)
)

// Detection is a single box reported by an engine.
type Detection struct {
	Box     image.Rectangle `json:"box"`
	ClassID int             `json:"class_id"`
	Label   string          `json:"label"`
	Score   float64         `json:"score"`
}

// Result is created fresh for every Infer call and owned by its caller.
// Count always equals the sum of PerClassCounts.
type Result struct {
	Count          int
	PerClassCounts map[string]int
	Detections     []Detection
	Annotated      *imgcodec.Bitmap
}

// Engine runs the forward pass of a loaded model. Implementations must be
// safe for concurrent use.
type Engine interface {
	Forward(ctx context.Context, img *imgcodec.Bitmap) ([]Detection, error)
	Labels() []string
	Close() error
}

type Option func(*Detector)

func WithLogger(logger *logrus.Logger) Option {
	return func(d *Detector) {
		d.log = logger
	}
}

func WithLabels(enabled bool) Option {
	return func(d *Detector) {
		d.renderer.labels = enabled
	}
}

// Detector wraps an Engine with annotation and counting. It holds no
// per-call state, so one instance serves every request.
type Detector struct {
	engine   Engine
	renderer *Renderer
	log      *logrus.Logger
}

func New(engine Engine, opts ...Option) (*Detector, error) {
	if engine == nil {
		return nil, ErrModelUnavailable
	}

	d := &Detector{
		engine:   engine,
		renderer: NewRenderer(false),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

func (d *Detector) Labels() []string {
	if d == nil || d.engine == nil {
		return nil
	}
	return d.engine.Labels()
}

// Infer runs the model over img and renders the detections on a copy of it.
// img is never modified. With no detections the annotated bitmap is a
// pixel-identical copy of the input.
func (d *Detector) Infer(ctx context.Context, img *imgcodec.Bitmap) (*Result, error) {
	if d == nil || d.engine == nil {
		return nil, ErrModelUnavailable
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed bitmap: %v", ErrInference, err)
	}

	start := time.Now()
	detections, err := d.engine.Forward(ctx, img)
	if err != nil {
		if errors.Is(err, ErrInference) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	labels := d.engine.Labels()
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	for i := range detections {
		if detections[i].Label == "" {
			detections[i].Label = labelFor(labels, detections[i].ClassID)
		}
		counts[detections[i].Label]++
	}

	var annotated *imgcodec.Bitmap
	if len(detections) == 0 {
		annotated = img.Clone()
	} else {
		annotated = d.renderer.Render(img, detections)
	}

	d.log.WithFields(logrus.Fields{
		"objects":    len(detections),
		"per_class":  counts,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Inference completed")

	return &Result{
		Count:          len(detections),
		PerClassCounts: counts,
		Detections:     detections,
		Annotated:      annotated,
	}, nil
}

func (d *Detector) Close() error {
	if d == nil || d.engine == nil {
		return nil
	}
	return d.engine.Close()
}

func labelFor(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) {
		return labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}
