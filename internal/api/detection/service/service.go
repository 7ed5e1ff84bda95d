package detectionService

import (
	"BoxDetector/internal/api/detection"
	detectionRepository "BoxDetector/internal/api/detection/repository"
	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/imgcodec"
	"BoxDetector/pkg/workerpool"
	"context"

	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	// PredictUpload persists data under its content address, then runs
	// inference on the stored file.
	PredictUpload(ctx context.Context, ext string, data []byte) (*detection.PredictResponse, error)
	PredictFrame(ctx context.Context, imageBase64 string) (*detection.PredictResponse, error)
	PredictFrameBytes(ctx context.Context, data []byte) (*detection.PredictResponse, error)
	GetUpload(ctx context.Context, fileName string) (*detection.UploadResponse, error)
	Health() detection.HealthResponse
}

// Detector is the part of *detector.Detector the service depends on.
type Detector interface {
	Infer(ctx context.Context, img *imgcodec.Bitmap) (*detector.Result, error)
	Labels() []string
}

type detectionService struct {
	log      *logrus.Logger
	repo     detectionRepository.Repository
	detector Detector
	pool     *workerpool.Pool
	backend  string
}

func New(
	log *logrus.Logger,
	repo detectionRepository.Repository,
	det Detector,
	pool *workerpool.Pool,
	backend string,
) IDetectionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &detectionService{
		log:      log,
		repo:     repo,
		detector: det,
		pool:     pool,
		backend:  backend,
	}
}
