package middleware

import (
	"BoxDetector/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// NewLoggingMiddleware writes one access log line per request. Bodies are
// never logged, they carry images.
func (m *middleware) NewLoggingMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}

	logFields := log.Fields{
		"request_id":    m.GetRequestID(c),
		"method":        c.Method(),
		"path":          c.Path(),
		"status":        status,
		"latency_ms":    time.Since(start).Milliseconds(),
		"ip":            c.IP(),
		"user_agent":    c.Get(fiber.HeaderUserAgent),
		"response_size": len(c.Response().Body()),
	}

	if status >= 500 {
		m.log.WithFields(logFields).Error("Server error")
	} else if status >= 400 {
		m.log.WithFields(logFields).Warn("Client error")
	} else {
		m.log.WithFields(logFields).Info("Success")
	}

	return err
}
