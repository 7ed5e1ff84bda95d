package jwtPkg

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func verifyApp() *fiber.App {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		token, err := VerifyTokenHeader(c, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		c.Locals(ClaimsKey, token.Claims)
		claims, err := GetClaims(c)
		if err != nil {
			return err
		}
		return c.SendString(claims["sub"].(string))
	})
	return app
}

func call(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestVerifyTokenHeader(t *testing.T) {
	app := verifyApp()

	valid, exp, err := Sign(map[string]interface{}{"sub": "camera-1"}, time.Hour, secret)
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())
	assert.Equal(t, fiber.StatusOK, call(t, app, "Bearer "+valid))

	expired, _, err := Sign(map[string]interface{}{"sub": "camera-1"}, -time.Minute, secret)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Bearer "+expired))

	foreign, _, err := Sign(map[string]interface{}{"sub": "camera-1"}, time.Hour, "other")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Bearer "+foreign))

	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, ""))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, valid))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "Bearer "))
}

func TestVerifyTokenRejectsOtherAlgorithms(t *testing.T) {
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = VerifyToken(none, secret)
	assert.Error(t, err)

	_, err = VerifyToken("whatever", "")
	assert.ErrorIs(t, err, ErrNoSecret)

	_, _, err = Sign(nil, time.Hour, "")
	assert.ErrorIs(t, err, ErrNoSecret)
}
