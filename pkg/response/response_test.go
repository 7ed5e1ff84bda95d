package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errBroken = NewError(http.StatusInternalServerError, "broken")

func TestWrapKeepsSentinelAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(errBroken, cause)

	assert.ErrorIs(t, err, errBroken)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "broken: disk full")

	var respErr *Error
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &respErr))
	assert.Equal(t, http.StatusInternalServerError, respErr.Code)
}

func TestIsComparesCodeAndMessage(t *testing.T) {
	assert.ErrorIs(t, NewError(400, "bad"), NewError(400, "bad"))
	assert.NotErrorIs(t, NewError(400, "bad"), NewError(500, "bad"))
	assert.NotErrorIs(t, NewError(400, "bad"), NewError(400, "worse"))
	assert.NotErrorIs(t, NewError(400, "bad"), errors.New("bad"))
}

func TestWrapPlainSentinel(t *testing.T) {
	plain := errors.New("plain")
	cause := errors.New("cause")
	err := Wrap(plain, cause)
	assert.ErrorIs(t, err, plain)
	assert.ErrorIs(t, err, cause)
}
