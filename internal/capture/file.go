package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// BytesSource decodes an uploaded image held in memory
type BytesSource struct {
	data []byte
	name string
	mode models.CaptureMode
}

// NewBytesSource wraps uploaded bytes; name is used only for logging
func NewBytesSource(data []byte, name string) *BytesSource {
	return &BytesSource{data: data, name: name, mode: models.CaptureFile}
}

// Capture decodes the whole image before returning it
func (s *BytesSource) Capture(ctx context.Context) (*models.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := Decode(bytes.NewReader(s.data))
	if err != nil {
		logger.WithComponent("capture").WithError(err).WithFields(logrus.Fields{
			"name":  s.name,
			"bytes": len(s.data),
		}).Warn("Uploaded image could not be decoded")
		return nil, err
	}
	return models.NewRawFrame(img, s.mode), nil
}

func (s *BytesSource) Close() error { return nil }

// FileSource decodes an image file from disk
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Capture(ctx context.Context) (*models.RawFrame, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInvalidImageError(fmt.Sprintf("cannot read %s", s.path), err)
	}
	return NewBytesSource(data, s.path).Capture(ctx)
}

func (s *FileSource) Close() error { return nil }

// MaxPixels bounds the decoded frame; larger headers are rejected before
// any pixel buffer is allocated.
const MaxPixels = 50_000_000

// Decode reads a JPEG, PNG, GIF, WebP or BMP image. Any failure is an
// InvalidImageError for this attempt only.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInvalidImageError("the selected file could not be read", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInvalidImageError("the selected file is not a supported image", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, apperrors.NewInvalidImageError(
			fmt.Sprintf("the %s image is %dx%d, above the %d pixel limit", format, cfg.Width, cfg.Height, MaxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInvalidImageError("the selected file is not a supported image", err)
	}
	if img.Bounds().Empty() {
		return nil, apperrors.NewInvalidImageError(fmt.Sprintf("the %s image is empty", format), nil)
	}
	return img, nil
}
