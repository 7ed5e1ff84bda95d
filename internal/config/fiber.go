package config

import (
	"BoxDetector/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// NewFiber sizes the body limit from the upload limit.
func NewFiber(logger *logrus.Logger, maxUploadSize int64) *fiber.App {
	bodyLimit := utils.BodyLimit(maxUploadSize)

	app := fiber.New(
		fiber.Config{
			AppName:               "Box Detector",
			BodyLimit:             bodyLimit,
			DisableKeepalive:      false,
			StrictRouting:         true,
			CaseSensitive:         true,
			DisableStartupMessage: true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
		})

	logger.WithField("body_limit", bodyLimit).Debug("Fiber app created")

	return app
}

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
