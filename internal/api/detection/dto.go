package detection

import "time"

// PredictResponse is returned by both prediction paths. StoredFileName is
// empty for frames, which are never persisted.
type PredictResponse struct {
	Success              bool           `json:"success"`
	ObjectCount          int            `json:"objectCount"`
	PerClassCount        map[string]int `json:"perClassCount"`
	AnnotatedImageBase64 string         `json:"annotatedImageBase64"`
	StoredFileName       string         `json:"storedFileName"`
}

type StreamRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required"`
}

type UploadResponse struct {
	FileName      string         `json:"fileName"`
	ContentHash   string         `json:"contentHash"`
	Extension     string         `json:"extension"`
	Size          int64          `json:"size"`
	UploadedAt    time.Time      `json:"uploadedAt"`
	DownloadURL   string         `json:"downloadUrl,omitempty"`
	ObjectCount   *int           `json:"objectCount,omitempty"`
	PerClassCount map[string]int `json:"perClassCount,omitempty"`
	PredictedAt   *time.Time     `json:"predictedAt,omitempty"`
}

type PoolStats struct {
	Workers  int   `json:"workers"`
	Queue    int   `json:"queue"`
	Queued   int   `json:"queued"`
	InFlight int64 `json:"inFlight"`
	Shed     int64 `json:"shed"`
}

type HealthResponse struct {
	Status  string    `json:"status"`
	Backend string    `json:"backend"`
	Labels  []string  `json:"labels"`
	Pool    PoolStats `json:"pool"`
}
