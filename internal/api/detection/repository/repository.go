package detectionRepository

import (
	"BoxDetector/internal/entity"
	"BoxDetector/pkg/redis"
	"BoxDetector/pkg/s3"
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	uploadKeyPrefix     = "upload:"
	predictionKeyPrefix = "prediction:"
)

type Repository interface {
	// SaveUpload writes data under dir/fileName before returning. The ledger
	// and mirror are best effort.
	SaveUpload(ctx context.Context, fileName string, ext string, data []byte) (entity.StoredUpload, error)
	GetUpload(ctx context.Context, fileName string) (entity.StoredUpload, error)
	SavePrediction(ctx context.Context, record entity.PredictionRecord)
	GetPrediction(ctx context.Context, fileName string) (entity.PredictionRecord, bool)
	DownloadURL(fileName string) string
}

type repository struct {
	dir    string
	ledger redis.IRedis
	mirror s3.ItfS3
	log    *logrus.Logger
}

// New creates the upload directory if needed. ledger and mirror may be nil.
func New(dir string, ledger redis.IRedis, mirror s3.ItfS3, log *logrus.Logger) (Repository, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder %s: %w", dir, err)
	}

	return &repository{
		dir:    dir,
		ledger: ledger,
		mirror: mirror,
		log:    log,
	}, nil
}
