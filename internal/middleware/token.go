package middleware

import (
	"BoxDetector/pkg/handlerUtil"
	jwtPkg "BoxDetector/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const unauthorizedMessage = "Unauthorized, access token invalid or expired"

type tokenMiddleware struct {
	secret  string
	enabled bool
}

func newTokenMiddleware(secret string, enabled bool) *tokenMiddleware {
	return &tokenMiddleware{
		secret:  secret,
		enabled: enabled,
	}
}

// NewTokenMiddleware only checks that the bearer token is valid and signed
// with the configured secret. Its claims are exposed to handlers as-is.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	if !m.token.enabled {
		return ctx.Next()
	}

	errHandler := handlerUtil.New(m.log)
	requestID := m.GetRequestID(ctx)

	userToken, err := jwtPkg.VerifyTokenHeader(ctx, m.token.secret)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"client_ip":  ctx.IP(),
			"error":      err.Error(),
		}).Warn("Token verification failed")
		return errHandler.HandleUnauthorized(ctx, requestID, unauthorizedMessage)
	}

	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return errHandler.HandleUnauthorized(ctx, requestID, unauthorizedMessage)
	}

	ctx.Locals(jwtPkg.ClaimsKey, claims)

	m.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"subject":    claims["sub"],
	}).Debug("Authentication successful")
	return ctx.Next()
}
