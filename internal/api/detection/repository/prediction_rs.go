package detectionRepository

import (
	"BoxDetector/internal/entity"
	"context"

	"github.com/sirupsen/logrus"
)

func (r *repository) SavePrediction(ctx context.Context, record entity.PredictionRecord) {
	if r.ledger == nil {
		return
	}

	if err := r.ledger.SetJSON(ctx, predictionKeyPrefix+record.FileName, record, 0); err != nil {
		r.log.WithFields(logrus.Fields{
			"file_name": record.FileName,
			"error":     err.Error(),
		}).Warn("Failed to record prediction")
	}
}

func (r *repository) GetPrediction(ctx context.Context, fileName string) (entity.PredictionRecord, bool) {
	if r.ledger == nil {
		return entity.PredictionRecord{}, false
	}

	var record entity.PredictionRecord
	if err := r.ledger.GetJSON(ctx, predictionKeyPrefix+fileName, &record); err != nil {
		return entity.PredictionRecord{}, false
	}
	return record, true
}
