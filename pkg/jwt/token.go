package jwtPkg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const ClaimsKey = "claims"

var (
	ErrEmptyHeader   = errors.New("empty Authorization header")
	ErrInvalidFormat = errors.New("invalid Authorization format")
	ErrNoSecret      = errors.New("JWT secret not configured")
)

func Sign(data map[string]interface{}, expiredIn time.Duration, secret string) (string, int64, error) {
	if secret == "" {
		return "", 0, ErrNoSecret
	}

	expiredAt := time.Now().Add(expiredIn).Unix()

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt
	claims["authorization"] = true

	for k, v := range data {
		claims[k] = v
	}

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := to.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

func VerifyToken(accessToken, secret string) (*jwt.Token, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	return jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
}

func VerifyTokenHeader(c *fiber.Ctx, secret string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, ErrEmptyHeader
	}

	accessToken, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrInvalidFormat
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrInvalidFormat
	}

	token, err := VerifyToken(accessToken, secret)
	if err != nil {
		log.WithError(err).Debug("Failed to parse JWT token")
		return nil, err
	}

	return token, nil
}

func GetClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	claims, ok := c.Locals(ClaimsKey).(jwt.MapClaims)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
