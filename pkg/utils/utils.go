package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile              = errors.New("no file uploaded")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file size exceeds limit")
)

// AllowedExtensions is the upload allow-list, lower case without the dot.
var AllowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) (string, error)
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	ContentAddress(data []byte, ext string) string
	BodyLimit() int
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

// BodyLimit is the largest request body or websocket frame accepted for an
// upload limit of maxFileSize. It leaves room for multipart framing and the
// base64 expansion of stream frames.
func BodyLimit(maxFileSize int64) int {
	return int(maxFileSize)*2 + 1024*1024
}

func (u *utils) BodyLimit() int {
	return BodyLimit(u.maxFileSize)
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// ValidateImageFile checks presence, size and the extension allow-list and
// returns the normalized extension.
func (u *utils) ValidateImageFile(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}

	ext, ok := FileExtension(file.Filename)
	if !ok {
		return "", ErrUnsupportedFileType
	}
	if _, allowed := AllowedExtensions[ext]; !allowed {
		return "", ErrUnsupportedFileType
	}

	if file.Size > u.maxFileSize {
		return "", ErrFileTooLarge
	}

	return ext, nil
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
}

func (u *utils) ContentAddress(data []byte, ext string) string {
	return ContentAddress(data, ext)
}

// FileExtension returns the lower-cased extension of name without the dot.
func FileExtension(name string) (string, bool) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", false
	}
	return strings.ToLower(ext), true
}

// ContentAddress names stored bytes by their SHA-256 digest plus extension.
// Identical bytes and extension always yield the identical name.
func ContentAddress(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:])
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return name
}

// ParseContentAddress splits a name produced by ContentAddress into its
// digest and extension. It rejects anything else, including path elements.
func ParseContentAddress(name string) (string, string, bool) {
	digest, ext, _ := strings.Cut(name, ".")
	if len(digest) != sha256.Size*2 || strings.ContainsAny(ext, `./\`) {
		return "", "", false
	}
	if _, err := hex.DecodeString(digest); err != nil || strings.ToLower(digest) != digest {
		return "", "", false
	}
	return digest, ext, true
}
