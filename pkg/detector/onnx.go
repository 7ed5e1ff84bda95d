package detector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"BoxDetector/pkg/imgcodec"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

type OnnxConfig struct {
	ModelPath   string
	LibraryPath string
	InputSize   int
	Labels      []string
	Confidence  float64
	IoU         float64
	Sessions    int
}

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = defaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libraryPath)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "./third_party/onnxruntime.dylib"
	case "windows":
		return "./third_party/onnxruntime.dll"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

type onnxSession struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *onnxSession) destroy() {
	if s.session != nil {
		_ = s.session.Destroy()
	}
	if s.input != nil {
		_ = s.input.Destroy()
	}
	if s.output != nil {
		_ = s.output.Destroy()
	}
}

// onnxEngine owns a fixed set of sessions. A session binds its input and
// output tensors, so it is checked out by exactly one Forward call at a time.
type onnxEngine struct {
	cfg       OnnxConfig
	outDims   ort.Shape
	sessions  chan *onnxSession
	closeOnce sync.Once
	log       *logrus.Logger
}

func NewOnnxEngine(cfg OnnxConfig, log *logrus.Logger) (Engine, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("model labels are required")
	}
	if cfg.Sessions < 1 {
		cfg.Sessions = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("%w: onnxruntime init: %v", ErrModelUnavailable, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read model info: %v", ErrModelUnavailable, err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("%w: expected 1 input and at least 1 output, got %d and %d", ErrModelUnavailable, len(inputs), len(outputs))
	}

	inDims := inputs[0].Dimensions
	if len(inDims) == 4 && inDims[2] > 0 && inDims[2] == inDims[3] {
		cfg.InputSize = int(inDims[2])
	}
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("%w: model input size unknown", ErrModelUnavailable)
	}

	outDims := outputs[0].Dimensions
	for _, d := range outDims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dynamic output shape %v is not supported", ErrModelUnavailable, outDims)
		}
	}
	attrs := int64(4 + len(cfg.Labels))
	if len(outDims) != 3 || (outDims[1] != attrs && outDims[2] != attrs) {
		return nil, fmt.Errorf("%w: output shape %v does not match %d labels", ErrModelUnavailable, outDims, len(cfg.Labels))
	}

	e := &onnxEngine{
		cfg:      cfg,
		outDims:  outDims,
		sessions: make(chan *onnxSession, cfg.Sessions),
		log:      log,
	}

	for i := 0; i < cfg.Sessions; i++ {
		s, err := e.newSession(inputs[0].Name, outputs[0].Name)
		if err != nil {
			for len(e.sessions) > 0 {
				(<-e.sessions).destroy()
			}
			return nil, fmt.Errorf("%w: create session %d: %v", ErrModelUnavailable, i, err)
		}
		e.sessions <- s
	}

	e.warmUp()

	log.WithFields(logrus.Fields{
		"model":      cfg.ModelPath,
		"sessions":   cfg.Sessions,
		"input_size": cfg.InputSize,
		"output":     outDims,
		"labels":     cfg.Labels,
	}).Info("ONNX model loaded")

	return e, nil
}

func (e *onnxEngine) newSession(inputName, outputName string) (*onnxSession, error) {
	size := int64(e.cfg.InputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return nil, err
	}

	output, err := ort.NewEmptyTensor[float32](e.outDims)
	if err != nil {
		_ = input.Destroy()
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(1); err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		e.cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, err
	}

	return &onnxSession{session: session, input: input, output: output}, nil
}

func (e *onnxEngine) warmUp() {
	start := time.Now()
	n := len(e.sessions)
	for i := 0; i < n; i++ {
		s := <-e.sessions
		if err := s.session.Run(); err != nil {
			e.log.Warnf("Warmup run failed: %v", err)
		}
		e.sessions <- s
	}
	e.log.WithField("latency_ms", time.Since(start).Milliseconds()).Debug("ONNX sessions warmed up")
}

func (e *onnxEngine) Labels() []string {
	return e.cfg.Labels
}

func (e *onnxEngine) Forward(ctx context.Context, img *imgcodec.Bitmap) ([]Detection, error) {
	var s *onnxSession
	select {
	case s = <-e.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { e.sessions <- s }()

	data, lb := preprocess(img, e.cfg.InputSize)
	copy(s.input.GetData(), data)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return decodeOutput(s.output.GetData(), e.outDims, len(e.cfg.Labels), lb, e.cfg.Confidence, e.cfg.IoU)
}

// Close destroys every session. It waits for in-flight Forward calls to
// return their sessions.
func (e *onnxEngine) Close() error {
	e.closeOnce.Do(func() {
		for i := 0; i < cap(e.sessions); i++ {
			select {
			case s := <-e.sessions:
				s.destroy()
			case <-time.After(10 * time.Second):
				e.log.Warn("Timed out waiting for ONNX session to be released")
				return
			}
		}
	})
	return nil
}
