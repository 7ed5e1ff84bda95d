package main

import (
	"BoxDetector/internal/config"
	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/log"
	"BoxDetector/pkg/redis"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "Error loading .env file")
	}

	logger := log.NewLogger()
	env := config.LoadEnv()

	engine, err := config.NewEngine(env, logger)
	if err != nil {
		logger.Fatalf("Error loading model: %v", err)
	}

	boxDetector, err := detector.New(engine,
		detector.WithLogger(logger),
		detector.WithLabels(env.AnnotateLabels),
	)
	if err != nil {
		logger.Fatalf("Error creating detector: %v", err)
	}

	options := []config.ServerOption{
		config.WithFiber(config.NewFiber(logger, env.MaxUploadSize)),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(config.NewValidator()),
		config.WithDetector(boxDetector),
		config.WithWorkerPool(),
		config.WithMiddleware(),
		config.WithS3Client(),
		config.WithUtils(),
	}
	if env.RedisAddress != "" {
		options = append(options, config.WithRedisServer(redis.New(redis.Config{
			Address:  env.RedisAddress,
			Password: env.RedisPassword,
			DB:       env.RedisDB,
		}, logger)))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatalf("Error registering handlers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run()
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	logger.WithFields(log.Fields{
		"backend": env.ModelBackend,
		"labels":  boxDetector.Labels(),
		"workers": env.InferenceWorkers,
		"queue":   env.InferenceQueue,
	}).Info("Server started successfully")

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
}
