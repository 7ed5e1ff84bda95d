package handlerUtil

import (
	"BoxDetector/internal/api/detection"
	"BoxDetector/pkg/log"
	"BoxDetector/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		logger: logger,
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{detection.ErrNoFile, "NO_FILE"},
	{detection.ErrUnsupportedFileType, "UNSUPPORTED_FILE_TYPE"},
	{detection.ErrFileTooLarge, "FILE_TOO_LARGE"},
	{detection.ErrInvalidBase64, "INVALID_BASE64"},
	{detection.ErrDecodeImage, "DECODE_ERROR"},
	{detection.ErrPersistence, "PERSISTENCE_ERROR"},
	{detection.ErrInference, "INFERENCE_ERROR"},
	{detection.ErrOverloaded, "INFERENCE_OVERLOADED"},
	{detection.ErrUploadNotFound, "UPLOAD_NOT_FOUND"},
}

// Code returns the machine readable code for a domain error, or "" if err is
// not one of them.
func Code(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// Body renders err the way Handle does, for transports without a fiber.Ctx.
func Body(err error) (int, ErrorResponse) {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		return respErr.Code, ErrorResponse{Error: err.Error(), Code: Code(err)}
	}
	return fiber.StatusInternalServerError, ErrorResponse{
		Error: "An unexpected error occurred",
		Code:  "INTERNAL_ERROR",
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	status, body := Body(err)

	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"code":       status,
		"path":       path,
		"operation":  operation,
	}

	switch {
	case status >= fiber.StatusInternalServerError && body.Code == "INTERNAL_ERROR":
		body.TraceID = log.ErrorWithTraceID(fields, "Unexpected error")
	case status >= fiber.StatusInternalServerError:
		h.logger.WithFields(fields).Error("Operation failed with error response")
	default:
		h.logger.WithFields(fields).Warn("Operation failed with error response")
	}

	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

// TimeoutBody is the reply for inference that did not finish within the
// request deadline.
func TimeoutBody() (int, ErrorResponse) {
	return fiber.StatusGatewayTimeout, ErrorResponse{
		Error: "inference timed out",
		Code:  "INFERENCE_TIMEOUT",
	}
}

func (h *ErrorHandler) HandleInferenceTimeout(c *fiber.Ctx, requestID string, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       path,
	}).Warn("Inference timed out")

	status, body := TimeoutBody()
	return c.Status(status).JSON(body)
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
