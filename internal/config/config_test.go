package config

import (
	"BoxDetector/pkg/detector"
	"BoxDetector/pkg/detector/detectortest"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "UPLOAD_FOLDER", "MAX_UPLOAD_SIZE_MB", "MAX_IMAGE_PIXELS", "MODEL_BACKEND", "MODEL_CLASSES",
		"MODEL_SESSIONS", "INFERENCE_WORKERS", "INFERENCE_QUEUE", "INFERENCE_TIMEOUT", "AUTH_ENABLED",
	} {
		t.Setenv(key, "")
	}

	env := LoadEnv()
	assert.Equal(t, "3000", env.AppPort)
	assert.Equal(t, "./storage/uploads", env.UploadFolder)
	assert.Equal(t, int64(10*1024*1024), env.MaxUploadSize)
	assert.Equal(t, int64(25_000_000), env.MaxImagePixels)
	assert.Equal(t, BackendOnnx, env.ModelBackend)
	assert.Equal(t, []string{"empty", "full"}, env.ModelClasses)
	assert.Equal(t, env.ModelSessions, env.InferenceWorkers)
	assert.Equal(t, 2*env.InferenceWorkers, env.InferenceQueue)
	assert.Equal(t, 30*time.Second, env.InferenceTimeout)
	assert.True(t, env.AuthEnabled)
	assert.GreaterOrEqual(t, env.ModelSessions, 1)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MODEL_BACKEND", "REMOTE")
	t.Setenv("MODEL_CLASSES", " empty , full ,, damaged ")
	t.Setenv("MODEL_SESSIONS", "3")
	t.Setenv("INFERENCE_QUEUE", "")
	t.Setenv("INFERENCE_WORKERS", "")
	t.Setenv("INFERENCE_TIMEOUT", "5")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "2")
	t.Setenv("MAX_IMAGE_PIXELS", "1000000")
	t.Setenv("MODEL_CONFIDENCE", "0.5")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("STREAM_RATE_LIMIT", "not-a-number")

	env := LoadEnv()
	assert.Equal(t, BackendRemote, env.ModelBackend)
	assert.Equal(t, []string{"empty", "full", "damaged"}, env.ModelClasses)
	assert.Equal(t, 3, env.InferenceWorkers)
	assert.Equal(t, 6, env.InferenceQueue)
	assert.Equal(t, 5*time.Second, env.InferenceTimeout)
	assert.Equal(t, int64(2*1024*1024), env.MaxUploadSize)
	assert.Equal(t, int64(1000000), env.MaxImagePixels)
	assert.Equal(t, 0.5, env.ModelConfidence)
	assert.False(t, env.AuthEnabled)
	assert.Equal(t, float64(30), env.StreamRateLimit)
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BOX_DETECTOR_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BOX_DETECTOR_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("BOX_DETECTOR_DOTENV_PROBE"))
}

func TestNewEngine(t *testing.T) {
	_, err := NewEngine(Env{ModelBackend: "tflite"}, quietLogger())
	assert.Error(t, err)

	_, err = NewEngine(Env{ModelBackend: BackendRemote, ModelClasses: []string{"empty", "full"}}, quietLogger())
	assert.ErrorIs(t, err, detector.ErrModelUnavailable)

	engine, err := NewEngine(Env{
		ModelBackend:     BackendRemote,
		InferenceURL:     "http://127.0.0.1:9/predict",
		ModelClasses:     []string{"empty", "full"},
		InferenceTimeout: time.Second,
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "full"}, engine.Labels())
	assert.NoError(t, engine.Close())

	_, err = NewEngine(Env{
		ModelBackend: BackendOnnx,
		ModelPath:    filepath.Join(t.TempDir(), "missing.onnx"),
		ModelClasses: []string{"empty", "full"},
	}, quietLogger())
	assert.Error(t, err)
}

func testEnv(t *testing.T) Env {
	return Env{
		AppPort:          "0",
		UploadFolder:     filepath.Join(t.TempDir(), "uploads"),
		MaxUploadSize:    1024 * 1024,
		ModelBackend:     "test",
		InferenceWorkers: 2,
		InferenceQueue:   4,
		InferenceTimeout: time.Second,
		JWTSecret:        "secret",
		AuthEnabled:      true,
	}
}

func TestNewServerValidatesOptions(t *testing.T) {
	logger := quietLogger()

	_, err := NewServer(WithLogger(logger))
	assert.Error(t, err)

	_, err = NewServer(WithFiber(fiber.New()), WithLogger(logger), WithEnv(testEnv(t)), WithWorkerPool(), WithMiddleware())
	assert.Error(t, err)

	_, err = NewServer(WithDetector(nil))
	assert.ErrorIs(t, err, detector.ErrModelUnavailable)

	_, err = NewServer(WithMiddleware())
	assert.Error(t, err)
}

func TestServerRoutesAndShutdown(t *testing.T) {
	logger := quietLogger()
	env := testEnv(t)
	engine := detectortest.TwoFullOneEmpty()

	det, err := detector.New(engine, detector.WithLogger(logger))
	require.NoError(t, err)

	server, err := NewServer(
		WithFiber(NewFiber(logger, env.MaxUploadSize)),
		WithLogger(logger),
		WithEnv(env),
		WithValidator(NewValidator()),
		WithDetector(det),
		WithWorkerPool(),
		WithMiddleware(),
		WithS3Client(),
		WithUtils(),
	)
	require.NoError(t, err)
	require.NoError(t, server.RegisterHandler())

	resp, err := server.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = server.App().Test(httptest.NewRequest("GET", "/api/v1/model/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "test", health["backend"])

	resp, err = server.App().Test(httptest.NewRequest("POST", "/api/v1/model/predict", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	_, err = os.Stat(env.UploadFolder)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
	assert.True(t, engine.Closed())
	assert.Equal(t, 0, server.pool.Stats().Queued)
}
