// Package imaging contains pure functions over raw image bytes: structural
// validation, re-encoding for upload, and thumbnail generation. No I/O.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is wrapped by all validation failures.
var ErrInvalidImage = errors.New("invalid image")

const (
	// DefaultMaxBytes is the maximum accepted upload size.
	DefaultMaxBytes = 10 * 1024 * 1024 // 10 MB

	// DefaultMaxDimension is the maximum accepted width or height in pixels.
	DefaultMaxDimension = 4000
)

var allowedFormats = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Validator checks raw uploads against configured size and dimension limits.
type Validator struct {
	MaxBytes     int64
	MaxDimension int
}

// NewValidator returns a validator with the default limits.
func NewValidator() *Validator {
	return &Validator{
		MaxBytes:     DefaultMaxBytes,
		MaxDimension: DefaultMaxDimension,
	}
}

// Validate checks that data is a decodable JPEG, PNG or WEBP within the
// configured byte size and pixel dimension limits.
func (v *Validator) Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if int64(len(data)) > v.MaxBytes {
		return fmt.Errorf("%w: file is %d bytes, max %d", ErrInvalidImage, len(data), v.MaxBytes)
	}

	// Sniff magic bytes before handing data to a decoder
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return fmt.Errorf("%w: unrecognized file type", ErrInvalidImage)
	}
	if !allowedFormats[kind.MIME.Value] {
		return fmt.Errorf("%w: unsupported format %s", ErrInvalidImage, kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width > v.MaxDimension || cfg.Height > v.MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds max dimension %d", ErrInvalidImage, cfg.Width, cfg.Height, v.MaxDimension)
	}
	return nil
}

// DetectMIME returns the sniffed MIME type of the image data, or an empty
// string if the type is unrecognized.
func DetectMIME(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
