package imgcodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"
	"sync/atomic"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode = errors.New("image decode failed")
	ErrBase64 = errors.New("invalid base64 payload")
	ErrEncode = errors.New("image encode failed")
)

// DefaultMaxPixels bounds width*height of a decoded image.
const DefaultMaxPixels int64 = 25_000_000

var maxPixels atomic.Int64

func init() {
	maxPixels.Store(DefaultMaxPixels)
}

// SetMaxPixels changes the limit used by Decode. Values <= 0 restore
// DefaultMaxPixels.
func SetMaxPixels(n int64) {
	if n <= 0 {
		n = DefaultMaxPixels
	}
	maxPixels.Store(n)
}

func MaxPixels() int64 {
	return maxPixels.Load()
}

// Decode turns raw uploaded bytes into a Bitmap. EXIF orientation is applied
// so phone uploads are not fed to the model sideways.
func Decode(data []byte) (*Bitmap, error) {
	return DecodeLimit(data, MaxPixels())
}

// DecodeLimit is Decode with an explicit pixel limit. The header is checked
// before any pixel buffer is allocated.
func DecodeLimit(data []byte, limit int64) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	if limit > 0 && int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, fmt.Errorf("%w: image is %dx%d, limit is %d pixels", ErrDecode, cfg.Width, cfg.Height, limit)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := FromImage(img)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}

// DecodeFile reads a persisted upload and decodes it.
func DecodeFile(path string) (*Bitmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

// DecodeBase64 accepts a base64 frame, optionally wrapped in a data URL
// ("data:image/jpeg;base64,..."), in padded or unpadded standard encoding.
func DecodeBase64(text string) (*Bitmap, error) {
	data, err := DecodeBase64Bytes(text)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func DecodeBase64Bytes(text string) ([]byte, error) {
	payload := strings.TrimSpace(text)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("%w: malformed data url", ErrBase64)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrBase64)
	}

	enc := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBase64, err)
	}
	return data, nil
}

// EncodePNG writes the bitmap as PNG after reordering BGR into RGB.
func EncodePNG(b *Bitmap) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, b.ToImage()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Encode returns the bitmap as base64 PNG text.
func Encode(b *Bitmap) (string, error) {
	data, err := EncodePNG(b)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
