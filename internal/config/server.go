package config

import (
	detectionHandler "BoxDetector/internal/api/detection/handler"
	detectionRepository "BoxDetector/internal/api/detection/repository"
	detectionService "BoxDetector/internal/api/detection/service"
	"BoxDetector/internal/middleware"
	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/imgcodec"
	"BoxDetector/pkg/redis"
	"BoxDetector/pkg/s3"
	"BoxDetector/pkg/utils"
	"BoxDetector/pkg/workerpool"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	env         Env
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	detector    *detector.Detector
	pool        *workerpool.Pool
	redisServer redis.IRedis
	s3Client    s3.ItfS3
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if server.pool == nil {
		return nil, fmt.Errorf("worker pool is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New(server.env.MaxUploadSize)
	}

	imgcodec.SetMaxPixels(server.env.MaxImagePixels)

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithEnv(env Env) ServerOption {
	return func(s *Server) error {
		s.env = env
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDetector(det *detector.Detector) ServerOption {
	return func(s *Server) error {
		if det == nil {
			return detector.ErrModelUnavailable
		}
		s.detector = det
		return nil
	}
}

// WithWorkerPool sizes the inference pool from the env, so it must come
// after WithEnv.
func WithWorkerPool() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before worker pool")
		}
		s.pool = workerpool.New(s.env.InferenceWorkers, s.env.InferenceQueue, s.log)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.Config{
			JWTSecret:   s.env.JWTSecret,
			AuthEnabled: s.env.AuthEnabled,
			RateLimit:   s.env.StreamRateLimit,
			RateBurst:   s.env.StreamRateBurst,
		})
		if s.env.AuthEnabled && s.env.JWTSecret == "" {
			s.log.Warn("AUTH_ENABLED is set without JWT_ACCESS_TOKEN_SECRET, uploads will be rejected")
		}
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithS3Client enables the upload mirror when a bucket is configured.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if s.env.AWSBucketName == "" {
			return nil
		}

		client, err := s3.New(s3.Config{
			Bucket:          s.env.AWSBucketName,
			Region:          s.env.AWSRegion,
			AccessKeyID:     s.env.AWSAccessKeyID,
			SecretAccessKey: s.env.AWSSecretAccessKey,
			Endpoint:        s.env.AWSEndpoint,
		})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New(s.env.MaxUploadSize)
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	detectionRepo, err := detectionRepository.New(s.env.UploadFolder, s.redisServer, s.s3Client, s.log)
	if err != nil {
		return err
	}
	detectionServices := detectionService.New(s.log, detectionRepo, s.detector, s.pool, s.env.ModelBackend)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils, s.env.InferenceTimeout)

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, detectionHandlers)

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}

	return nil
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run() error {
	port := s.env.AppPort
	if port == "" {
		port = "3000"
	}

	s.log.Infof("Listening on :%s", port)
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, drains in-flight inference and releases
// the model.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}

	s.pool.Close()

	if err := s.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}

	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
