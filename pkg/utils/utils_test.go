package utils

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["file"][0]
}

func TestContentAddress(t *testing.T) {
	data := []byte("shelf photo")

	a := ContentAddress(data, "png")
	b := ContentAddress(append([]byte(nil), data...), "png")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.Len(t, a, 64+len(".png"))

	assert.NotEqual(t, a, ContentAddress([]byte("shelf photO"), "png"))
	assert.NotEqual(t, a, ContentAddress(data, "jpg"))
	assert.Equal(t, a, ContentAddress(data, ".png"))

	// sha256("") is well known
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentAddress(nil, ""))
}

func TestParseContentAddress(t *testing.T) {
	name := ContentAddress([]byte("shelf photo"), "jpg")
	digest, ext, ok := ParseContentAddress(name)
	require.True(t, ok)
	assert.Equal(t, "jpg", ext)
	assert.Equal(t, name, digest+".jpg")

	for _, bad := range []string{
		"",
		"../etc/passwd",
		"abc.png",
		strings.Repeat("z", 64) + ".png",
		strings.Repeat("A", 64) + ".png",
		strings.Repeat("a", 64) + ".png/../x",
		strings.Repeat("a", 64) + ".tar.gz",
	} {
		_, _, ok := ParseContentAddress(bad)
		assert.False(t, ok, bad)
	}
}

func TestFileExtension(t *testing.T) {
	cases := map[string]struct {
		ext string
		ok  bool
	}{
		"photo.PNG":        {"png", true},
		"archive.tar.jpeg": {"jpeg", true},
		"noext":            {"", false},
		"trailing.":        {"", false},
	}
	for name, want := range cases {
		ext, ok := FileExtension(name)
		assert.Equal(t, want.ext, ext, name)
		assert.Equal(t, want.ok, ok, name)
	}
}

func TestValidateImageFile(t *testing.T) {
	u := New(16)

	_, err := u.ValidateImageFile(nil)
	assert.ErrorIs(t, err, ErrNoFile)

	for _, name := range []string{"a.gif", "a", "a.png.exe"} {
		_, err := u.ValidateImageFile(fileHeader(t, name, []byte("x")))
		assert.ErrorIs(t, err, ErrUnsupportedFileType, name)
	}

	_, err = u.ValidateImageFile(fileHeader(t, "big.png", bytes.Repeat([]byte("x"), 17)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	for _, name := range []string{"a.png", "b.JPG", "c.jpeg"} {
		ext, err := u.ValidateImageFile(fileHeader(t, name, []byte("x")))
		require.NoError(t, err, name)
		assert.Equal(t, strings.ToLower(strings.TrimPrefix(name[1:], ".")), ext)
	}
}

func TestReadFile(t *testing.T) {
	u := New(0)
	data, err := u.ReadFile(fileHeader(t, "a.png", []byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New(0)
	a, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	assert.Len(t, a, 26)
}

func TestBodyLimit(t *testing.T) {
	assert.Equal(t, 2*1024+1024*1024, New(1024).BodyLimit())
	assert.Equal(t, BodyLimit(10*1024*1024), New(0).BodyLimit())
}
