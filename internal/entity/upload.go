package entity

import "time"

type StoredUpload struct {
	FileName    string    `json:"file_name"`
	ContentHash string    `json:"content_hash"`
	Extension   string    `json:"extension"`
	Size        int64     `json:"size"`
	Path        string    `json:"path"`
	MirrorURL   string    `json:"mirror_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type PredictionRecord struct {
	FileName      string         `json:"file_name"`
	ObjectCount   int            `json:"object_count"`
	PerClassCount map[string]int `json:"per_class_count"`
	PredictedAt   time.Time      `json:"predicted_at"`
}
