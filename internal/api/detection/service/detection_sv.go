package detectionService

import (
	"BoxDetector/internal/api/detection"
	"BoxDetector/internal/entity"
	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/imgcodec"
	"BoxDetector/pkg/log"
	"BoxDetector/pkg/response"
	"BoxDetector/pkg/utils"
	"BoxDetector/pkg/workerpool"
	"context"
	"errors"
	"time"
)

func (s *detectionService) PredictUpload(ctx context.Context, ext string, data []byte) (*detection.PredictResponse, error) {
	fileName := utils.ContentAddress(data, ext)

	upload, err := s.repo.SaveUpload(ctx, fileName, ext, data)
	if err != nil {
		return nil, response.Wrap(detection.ErrPersistence, err)
	}

	resp, err := s.predict(ctx, func() (*imgcodec.Bitmap, error) {
		return imgcodec.DecodeFile(upload.Path)
	})
	if err != nil {
		return nil, err
	}
	resp.StoredFileName = fileName

	s.repo.SavePrediction(ctx, entity.PredictionRecord{
		FileName:      fileName,
		ObjectCount:   resp.ObjectCount,
		PerClassCount: resp.PerClassCount,
		PredictedAt:   time.Now().UTC(),
	})

	return resp, nil
}

func (s *detectionService) PredictFrame(ctx context.Context, imageBase64 string) (*detection.PredictResponse, error) {
	return s.predict(ctx, func() (*imgcodec.Bitmap, error) {
		return imgcodec.DecodeBase64(imageBase64)
	})
}

func (s *detectionService) PredictFrameBytes(ctx context.Context, data []byte) (*detection.PredictResponse, error) {
	return s.predict(ctx, func() (*imgcodec.Bitmap, error) {
		return imgcodec.Decode(data)
	})
}

// predict runs decode, inference and encode as one job on the pool, so no
// CPU bound step happens on the request goroutine.
func (s *detectionService) predict(ctx context.Context, decode func() (*imgcodec.Bitmap, error)) (*detection.PredictResponse, error) {
	start := time.Now()

	resp, err := workerpool.Do(ctx, s.pool, func(ctx context.Context) (*detection.PredictResponse, error) {
		img, err := decode()
		if err != nil {
			return nil, decodeError(err)
		}

		result, err := s.detector.Infer(ctx, img)
		if err != nil {
			return nil, response.Wrap(detection.ErrInference, err)
		}

		annotated, err := imgcodec.Encode(result.Annotated)
		if err != nil {
			return nil, response.Wrap(detection.ErrInference, err)
		}

		return &detection.PredictResponse{
			Success:              true,
			ObjectCount:          result.Count,
			PerClassCount:        result.PerClassCounts,
			AnnotatedImageBase64: annotated,
		}, nil
	})
	if err != nil {
		if errors.Is(err, workerpool.ErrOverloaded) || errors.Is(err, workerpool.ErrClosed) {
			log.WithRequestID(ctx, s.log).WithField("pool", s.pool.Stats()).Warn("Shedding inference request")
			return nil, response.Wrap(detection.ErrOverloaded, err)
		}
		return nil, err
	}

	log.WithRequestID(ctx, s.log).WithFields(log.Fields{
		"object_count": resp.ObjectCount,
		"per_class":    resp.PerClassCount,
		"latency_ms":   time.Since(start).Milliseconds(),
	}).Info("Prediction completed")

	return resp, nil
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, imgcodec.ErrBase64):
		return response.Wrap(detection.ErrInvalidBase64, err)
	case errors.Is(err, imgcodec.ErrDecode):
		return response.Wrap(detection.ErrDecodeImage, err)
	default:
		// the stored upload could not be read back
		return response.Wrap(detection.ErrPersistence, err)
	}
}

func (s *detectionService) GetUpload(ctx context.Context, fileName string) (*detection.UploadResponse, error) {
	upload, err := s.repo.GetUpload(ctx, fileName)
	if err != nil {
		if errors.Is(err, detection.ErrUploadNotFound) {
			return nil, err
		}
		return nil, response.Wrap(detection.ErrPersistence, err)
	}

	resp := &detection.UploadResponse{
		FileName:    upload.FileName,
		ContentHash: upload.ContentHash,
		Extension:   upload.Extension,
		Size:        upload.Size,
		UploadedAt:  upload.UploadedAt,
		DownloadURL: s.repo.DownloadURL(upload.FileName),
	}

	if record, ok := s.repo.GetPrediction(ctx, upload.FileName); ok {
		resp.ObjectCount = &record.ObjectCount
		resp.PerClassCount = record.PerClassCount
		resp.PredictedAt = &record.PredictedAt
	}

	return resp, nil
}

func (s *detectionService) Health() detection.HealthResponse {
	stats := s.pool.Stats()

	return detection.HealthResponse{
		Status:  "ok",
		Backend: s.backend,
		Labels:  s.detector.Labels(),
		Pool: detection.PoolStats{
			Workers:  stats.Workers,
			Queue:    stats.Queue,
			Queued:   stats.Queued,
			InFlight: stats.InFlight,
			Shed:     stats.Shed,
		},
	}
}

var _ Detector = (*detector.Detector)(nil)
