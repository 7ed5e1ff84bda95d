package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendOnnx   = "onnx"
	BackendRemote = "remote"
)

type Env struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	UploadFolder   string
	MaxUploadSize  int64
	MaxImagePixels int64

	ModelBackend    string
	ModelPath       string
	OnnxRuntimeLib  string
	ModelInputSize  int
	ModelClasses    []string
	ModelConfidence float64
	ModelIoU        float64
	ModelSessions   int
	InferenceURL    string
	AnnotateLabels  bool

	InferenceWorkers int
	InferenceQueue   int
	InferenceTimeout time.Duration

	JWTSecret   string
	AuthEnabled bool

	StreamRateLimit float64
	StreamRateBurst int

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	AWSBucketName      string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
}

// LoadDotEnv loads .env into the process environment. A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	return godotenv.Load(present...)
}

func LoadEnv() Env {
	sessions := getInt("MODEL_SESSIONS", min(runtime.NumCPU(), 4))
	workers := getInt("INFERENCE_WORKERS", sessions)

	return Env{
		AppPort:  getString("APP_PORT", "3000"),
		AppEnv:   getString("APP_ENV", "development"),
		LogLevel: getString("LOG_LEVEL", "debug"),

		UploadFolder:   getString("UPLOAD_FOLDER", "./storage/uploads"),
		MaxUploadSize:  int64(getInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,
		MaxImagePixels: int64(getInt("MAX_IMAGE_PIXELS", 25_000_000)),

		ModelBackend:    strings.ToLower(getString("MODEL_BACKEND", BackendOnnx)),
		ModelPath:       getString("MODEL_PATH", "./models/best.onnx"),
		OnnxRuntimeLib:  getString("ONNXRUNTIME_LIB", ""),
		ModelInputSize:  getInt("MODEL_INPUT_SIZE", 640),
		ModelClasses:    getList("MODEL_CLASSES", []string{"empty", "full"}),
		ModelConfidence: getFloat("MODEL_CONFIDENCE", 0.25),
		ModelIoU:        getFloat("MODEL_IOU", 0.45),
		ModelSessions:   sessions,
		InferenceURL:    getString("INFERENCE_URL", ""),
		AnnotateLabels:  getBool("ANNOTATE_LABELS", false),

		InferenceWorkers: workers,
		InferenceQueue:   getInt("INFERENCE_QUEUE", 2*workers),
		InferenceTimeout: getDuration("INFERENCE_TIMEOUT", 30*time.Second),

		JWTSecret:   getString("JWT_ACCESS_TOKEN_SECRET", ""),
		AuthEnabled: getBool("AUTH_ENABLED", true),

		StreamRateLimit: getFloat("STREAM_RATE_LIMIT", 30),
		StreamRateBurst: getInt("STREAM_RATE_BURST", 60),

		RedisAddress:  getString("REDIS_ADDRESS", ""),
		RedisPassword: getString("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		AWSBucketName:      getString("AWS_BUCKET_NAME", ""),
		AWSRegion:          getString("AWS_REGION", ""),
		AWSAccessKeyID:     getString("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getString("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        getString("AWS_ENDPOINT", ""),
	}
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getString(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getString(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getString(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("30s") or plain seconds ("30").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	raw := getString(key, "")
	if raw == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
