package detectionRepository

import (
	"BoxDetector/internal/api/detection"
	"BoxDetector/internal/entity"
	"BoxDetector/pkg/s3"
	"BoxDetector/pkg/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

func (r *repository) SaveUpload(ctx context.Context, fileName string, ext string, data []byte) (entity.StoredUpload, error) {
	digest, _, ok := utils.ParseContentAddress(fileName)
	if !ok {
		return entity.StoredUpload{}, fmt.Errorf("invalid upload name %q", fileName)
	}

	path := filepath.Join(r.dir, fileName)
	if err := writeFile(path, data); err != nil {
		return entity.StoredUpload{}, err
	}

	upload := entity.StoredUpload{
		FileName:    fileName,
		ContentHash: digest,
		Extension:   ext,
		Size:        int64(len(data)),
		Path:        path,
		UploadedAt:  time.Now().UTC(),
	}

	if r.mirror != nil {
		location, err := r.mirror.UploadBytes(ctx, fileName, s3.ContentType(ext), data)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"file_name": fileName,
				"error":     err.Error(),
			}).Warn("Failed to mirror upload")
		} else {
			upload.MirrorURL = location
		}
	}

	if r.ledger != nil {
		if err := r.ledger.SetJSON(ctx, uploadKeyPrefix+fileName, upload, 0); err != nil {
			r.log.WithFields(logrus.Fields{
				"file_name": fileName,
				"error":     err.Error(),
			}).Warn("Failed to record upload")
		}
	}

	return upload, nil
}

// writeFile replaces path atomically so a reader never sees a partial upload.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (r *repository) GetUpload(ctx context.Context, fileName string) (entity.StoredUpload, error) {
	digest, ext, ok := utils.ParseContentAddress(fileName)
	if !ok {
		return entity.StoredUpload{}, detection.ErrUploadNotFound
	}

	if r.ledger != nil {
		var upload entity.StoredUpload
		err := r.ledger.GetJSON(ctx, uploadKeyPrefix+fileName, &upload)
		if err == nil {
			return upload, nil
		}
		r.log.WithFields(logrus.Fields{
			"file_name": fileName,
			"error":     err.Error(),
		}).Debug("Upload not in ledger, falling back to disk")
	}

	path := filepath.Join(r.dir, fileName)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return entity.StoredUpload{}, detection.ErrUploadNotFound
	} else if err != nil {
		return entity.StoredUpload{}, err
	}

	return entity.StoredUpload{
		FileName:    fileName,
		ContentHash: digest,
		Extension:   ext,
		Size:        info.Size(),
		Path:        path,
		UploadedAt:  info.ModTime().UTC(),
	}, nil
}

func (r *repository) DownloadURL(fileName string) string {
	if r.mirror == nil {
		return ""
	}

	url, err := r.mirror.PresignUrl(fileName)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"file_name": fileName,
			"error":     err.Error(),
		}).Debug("No mirrored copy to presign")
		return ""
	}
	return url
}
