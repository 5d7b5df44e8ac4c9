package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// Processor turns a raw frame into the canonical ProcessedImage
type Processor interface {
	Process(ctx context.Context, frame *models.RawFrame) (*models.ProcessedImage, error)
}

type processor struct {
	opts Options
}

// NewProcessor creates an adaptive image processor
func NewProcessor(opts Options) Processor {
	return &processor{opts: opts.normalized()}
}

// Process downscales, measures brightness, enhances low-light frames and
// encodes the final buffer once as JPEG.
func (p *processor) Process(ctx context.Context, frame *models.RawFrame) (*models.ProcessedImage, error) {
	if frame == nil || frame.Image == nil {
		return nil, apperrors.NewImageProcessingError("no image to process", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := frame.Image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.NewImageProcessingError("image has zero dimensions", nil)
	}

	w, h := TargetSize(b.Dx(), b.Dy(), p.opts.MaxDimension)
	canvas := Render(frame.Image, w, h)

	avg := AverageBrightness(canvas, p.opts.SampleStride)
	enhanced := avg < p.opts.BrightnessThreshold
	if enhanced {
		ApplyFilters(canvas, p.opts.Contrast, p.opts.Brightness, p.opts.Saturation)
		Sharpen(canvas, p.opts.MaxWorkers)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: p.opts.JPEGQuality}); err != nil {
		return nil, apperrors.NewImageProcessingError("failed to encode image", err)
	}
	encoded := buf.Bytes()

	logger.WithFields(logrus.Fields{
		"source_width":   b.Dx(),
		"source_height":  b.Dy(),
		"width":          w,
		"height":         h,
		"avg_brightness": avg,
		"enhanced":       enhanced,
		"bytes":          len(encoded),
		"mode":           frame.Mode,
	}).Debug("Image processed")

	return &models.ProcessedImage{
		Width:         w,
		Height:        h,
		Encoded:       encoded,
		DataURI:       dataURIPrefix + base64.StdEncoding.EncodeToString(encoded),
		Enhanced:      enhanced,
		AvgBrightness: avg,
	}, nil
}

// TargetSize scales the longer edge down to maxDim, flooring both edges
// and preserving aspect ratio. Images within the limit keep their size.
func TargetSize(width, height, maxDim int) (int, int) {
	longest := max(width, height)
	if longest <= maxDim {
		return width, height
	}
	w := max(width*maxDim/longest, 1)
	h := max(height*maxDim/longest, 1)
	return w, h
}

// Render draws src onto a fresh RGBA canvas of the given size. Same-size
// draws are exact copies; downscales use bilinear sampling.
func Render(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// AverageBrightness samples every stride-th byte of the RGBA buffer and
// averages R, G and B of each sampled pixel.
func AverageBrightness(img *image.RGBA, stride int) float64 {
	if stride <= 0 {
		stride = 4
	}
	var sum float64
	var n int
	for i := 0; i+2 < len(img.Pix); i += stride {
		sum += (float64(img.Pix[i]) + float64(img.Pix[i+1]) + float64(img.Pix[i+2])) / 3
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
