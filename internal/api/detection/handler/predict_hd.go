package detectionHandler

import (
	"BoxDetector/internal/api/detection"
	contextPkg "BoxDetector/pkg/context"
	"BoxDetector/pkg/handlerUtil"
	"BoxDetector/pkg/log"
	"BoxDetector/pkg/response"
	"BoxDetector/pkg/utils"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
)

func (h *DetectionHandler) Predict(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrNoFile, ctx.Path(), "form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing upload prediction request")

	ext, err := h.utils.ValidateImageFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, uploadError(err), ctx.Path(), "validate_image_file")
	}

	data, err := h.utils.ReadFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, response.Wrap(detection.ErrPersistence, err), ctx.Path(), "read_file")
	}

	result, err := h.detectionService.PredictUpload(c, ext, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errHandler.HandleInferenceTimeout(ctx, requestID, ctx.Path())
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "predict_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleInferenceTimeout(ctx, requestID, ctx.Path())
	default:
		h.log.WithFields(log.Fields{
			"request_id":   requestID,
			"path":         ctx.Path(),
			"stored_file":  result.StoredFileName,
			"object_count": result.ObjectCount,
		}).Info("Upload prediction successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *DetectionHandler) PredictStream(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req detection.StreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.detectionService.PredictFrame(c, req.ImageBase64)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errHandler.HandleInferenceTimeout(ctx, requestID, ctx.Path())
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "predict_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleInferenceTimeout(ctx, requestID, ctx.Path())
	default:
		h.log.WithFields(log.Fields{
			"request_id":   requestID,
			"object_count": result.ObjectCount,
		}).Debug("Frame prediction successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return detection.ErrNoFile
	case errors.Is(err, utils.ErrUnsupportedFileType):
		return detection.ErrUnsupportedFileType
	case errors.Is(err, utils.ErrFileTooLarge):
		return detection.ErrFileTooLarge
	default:
		return err
	}
}
