package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"BoxDetector/pkg/imgcodec"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type remoteBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type remoteResponse struct {
	Detections []remoteBox `json:"detections"`
}

// remoteEngine forwards frames to an inference sidecar that owns the weights.
type remoteEngine struct {
	url    string
	labels []string
	index  map[string]int
	client *http.Client
}

func NewRemoteEngine(url string, labels []string, timeout time.Duration) (Engine, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: inference url is empty", ErrModelUnavailable)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("model labels are required")
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	return &remoteEngine{
		url:    url,
		labels: labels,
		index:  index,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (e *remoteEngine) Labels() []string {
	return e.labels
}

func (e *remoteEngine) Forward(ctx context.Context, img *imgcodec.Bitmap) ([]Detection, error) {
	frame, err := imgcodec.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: sidecar returned %d: %s", ErrInference, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode sidecar response: %v", ErrInference, err)
	}

	bounds := img.Bounds()
	detections := make([]Detection, 0, len(result.Detections))
	for _, b := range result.Detections {
		box := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Intersect(bounds)
		if box.Empty() {
			continue
		}

		classID, ok := e.index[b.Class]
		if !ok {
			classID = -1
		}

		detections = append(detections, Detection{
			Box:     box,
			ClassID: classID,
			Label:   b.Class,
			Score:   b.Confidence,
		})
	}

	return detections, nil
}

func (e *remoteEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
