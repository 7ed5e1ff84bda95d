package detectionHandler

import (
	detectionService "BoxDetector/internal/api/detection/service"
	"BoxDetector/internal/middleware"
	"BoxDetector/pkg/utils"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	timeout          time.Duration
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	timeout time.Duration,
) *DetectionHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		timeout:          timeout,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	model := srv.Group("/model")

	model.Post("/predict", h.middleware.NewTokenMiddleware, h.Predict)
	model.Post("/predict_stream", h.middleware.NewRateLimiter, h.PredictStream)

	model.Use("/predict_stream/ws", wsMiddleware)
	model.Get("/predict_stream/ws", h.middleware.NewRateLimiter, websocket.New(h.handleStreamWebSocket))

	model.Get("/uploads/:name", h.middleware.NewTokenMiddleware, h.GetUpload)
	model.Get("/health", h.Health)
}
