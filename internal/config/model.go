package config

import (
	"BoxDetector/pkg/detector"
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewEngine loads the model once for the process lifetime.
func NewEngine(env Env, log *logrus.Logger) (detector.Engine, error) {
	switch env.ModelBackend {
	case BackendOnnx:
		return detector.NewOnnxEngine(detector.OnnxConfig{
			ModelPath:   env.ModelPath,
			LibraryPath: env.OnnxRuntimeLib,
			InputSize:   env.ModelInputSize,
			Labels:      env.ModelClasses,
			Confidence:  env.ModelConfidence,
			IoU:         env.ModelIoU,
			Sessions:    env.ModelSessions,
		}, log)
	case BackendRemote:
		return detector.NewRemoteEngine(env.InferenceURL, env.ModelClasses, env.InferenceTimeout)
	default:
		return nil, fmt.Errorf("unknown model backend %q", env.ModelBackend)
	}
}
