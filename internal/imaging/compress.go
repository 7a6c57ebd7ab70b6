package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxUploadBytes caps accepted payment proof uploads at 2 MiB.
	MaxUploadBytes = 2 * 1024 * 1024

	// maxDimension bounds the longer side of the compressed image.
	maxDimension = 1080

	jpegQuality = 70
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

var (
	ErrUnsupportedType = errors.New("please upload a valid image file (PNG, JPG, or JPEG)")
	ErrTooLarge        = errors.New("file size must be less than 2MB")
)

// ValidateUpload checks the declared content type and size of a payment
// proof before it is accepted for compression.
func ValidateUpload(contentType string, size int) error {
	if !allowedTypes[contentType] {
		return ErrUnsupportedType
	}
	if size > MaxUploadBytes {
		return ErrTooLarge
	}
	return nil
}

// Compress decodes an accepted image, bounds its longer dimension to
// 1080px, and re-encodes it as JPEG at reduced quality. The result is a
// base64 data URI ready to carry in the order payload.
func Compress(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if longer := max(width, height); longer > maxDimension {
		scale := float64(maxDimension) / float64(longer)
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
