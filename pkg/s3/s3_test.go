package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("png"))
	assert.Equal(t, "image/jpeg", ContentType("jpg"))
	assert.Equal(t, "image/jpeg", ContentType("jpeg"))
	assert.Equal(t, "application/octet-stream", ContentType("gif"))
}

func TestUploadBytesAgainstCompatibleEndpoint(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotBody string
		gotType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotBody, gotType = r.URL.Path, string(body), r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := New(Config{
		Bucket:          "uploads",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)

	location, err := client.UploadBytes(context.Background(), "abc.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(location, "/uploads/abc.png"), location)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/uploads/abc.png", gotPath)
	assert.Equal(t, "png-bytes", gotBody)
	assert.Equal(t, "image/png", gotType)
}
