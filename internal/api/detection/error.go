package detection

import (
	"BoxDetector/pkg/response"
	"net/http"
)

var (
	ErrNoFile              = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrUnsupportedFileType = response.NewError(http.StatusBadRequest, "unsupported file type, allowed: png, jpg, jpeg")
	ErrFileTooLarge        = response.NewError(http.StatusRequestEntityTooLarge, "file too large")
	ErrInvalidBase64       = response.NewError(http.StatusBadRequest, "invalid base64 image")
	ErrDecodeImage         = response.NewError(http.StatusBadRequest, "could not decode image")
	ErrPersistence         = response.NewError(http.StatusInternalServerError, "failed to store upload")
	ErrInference           = response.NewError(http.StatusInternalServerError, "inference failed")
	ErrOverloaded          = response.NewError(http.StatusServiceUnavailable, "inference capacity exhausted, retry later")
	ErrUploadNotFound      = response.NewError(http.StatusNotFound, "upload not found")
)
