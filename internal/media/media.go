package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrTooLarge        = errors.New("upload too large")
	ErrInvalidImage    = errors.New("invalid image data")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrInvalidBase64   = errors.New("invalid base64 image data")
)

var allowedExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// Validator checks uploaded payloads before they are persisted.
type Validator struct {
	maxBytes  int64
	maxPixels int
}

func NewValidator(maxBytes int64, maxPixels int) *Validator {
	return &Validator{maxBytes: maxBytes, maxPixels: maxPixels}
}

type Info struct {
	Format string
	Mime   string
	Width  int
	Height int
	Bytes  int64
}

// ReadFile reads a multipart upload named filename and validates it.
func (v *Validator) ReadFile(r io.Reader, filename string) ([]byte, *Info, error) {
	if !AllowedFile(filename) {
		return nil, nil, ErrUnsupportedType
	}
	lim := &io.LimitedReader{R: r, N: v.maxBytes + 1}
	data, err := io.ReadAll(lim)
	if err != nil {
		return nil, nil, err
	}
	if int64(len(data)) > v.maxBytes {
		return nil, nil, ErrTooLarge
	}
	info, err := v.Check(data)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

// ReadBase64 decodes an image_data form value, with or without a data URL
// prefix, and validates it.
func (v *Validator) ReadBase64(value string) ([]byte, *Info, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "data:image") {
		_, rest, ok := strings.Cut(value, ",")
		if !ok {
			return nil, nil, ErrInvalidBase64
		}
		value = rest
	}
	if int64(base64.StdEncoding.DecodedLen(len(value))) > v.maxBytes+3 {
		return nil, nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, nil, ErrInvalidBase64
	}
	if int64(len(data)) > v.maxBytes {
		return nil, nil, ErrTooLarge
	}
	info, err := v.Check(data)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

// Check verifies that data is a decodable image within the pixel budget.
func (v *Validator) Check(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if int64(len(data)) > v.maxBytes {
		return nil, ErrTooLarge
	}
	peek := data
	if len(peek) > 512 {
		peek = peek[:512]
	}
	mimeType := http.DetectContentType(peek)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > v.maxPixels {
		return nil, ErrInvalidImage
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/" + format
	}
	return &Info{
		Format: format,
		Mime:   mimeType,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  int64(len(data)),
	}, nil
}

func AllowedFile(filename string) bool {
	_, ok := allowedExts[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DetectMime sniffs the content type of a stored payload.
func DetectMime(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
