package imaging

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"math/rand"
	"strings"
	"testing"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func noise(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = uint8(r.Intn(256))
	}
	return img
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 2160, 1440, 1080, 720},
		{"portrait", 1440, 2160, 720, 1080},
		{"4:3 camera", 4000, 3000, 1080, 810},
		{"floors the short edge", 1500, 1001, 1080, 720},
		{"exact limit", 1080, 1080, 1080, 1080},
		{"small", 640, 480, 640, 480},
		{"extreme aspect keeps one pixel", 5000, 1, 1080, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, 1080)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestProcessDownscalesToLimit(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	src := solid(2160, 1440, 200)

	out, err := p.Process(context.Background(), models.NewRawFrame(src, models.CaptureFile))
	require.NoError(t, err)

	assert.Equal(t, 1080, max(out.Width, out.Height))
	assert.InDelta(t, 2160.0/1440.0, float64(out.Width)/float64(out.Height), 1.0/720)

	decoded, err := out.Decode()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1080, 720), decoded.Bounds())
}

func TestProcessNeverUpscales(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	for _, size := range [][2]int{{1, 1}, {300, 200}, {1080, 500}, {777, 1080}} {
		out, err := p.Process(context.Background(), models.NewRawFrame(solid(size[0], size[1], 128), models.CaptureFile))
		require.NoError(t, err)
		assert.Equal(t, size[0], out.Width)
		assert.Equal(t, size[1], out.Height)
	}
}

func TestProcessEnhancementThreshold(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	dark, err := p.Process(context.Background(), models.NewRawFrame(solid(64, 48, 69), models.CaptureCamera))
	require.NoError(t, err)
	assert.Equal(t, 69.0, dark.AvgBrightness)
	assert.True(t, dark.Enhanced)

	lit, err := p.Process(context.Background(), models.NewRawFrame(solid(64, 48, 70), models.CaptureCamera))
	require.NoError(t, err)
	assert.Equal(t, 70.0, lit.AvgBrightness)
	assert.False(t, lit.Enhanced)
}

func TestProcessDataURIMatchesEncodedBytes(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	out, err := p.Process(context.Background(), models.NewRawFrame(noise(120, 80, 7), models.CaptureFile))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out.DataURI, "data:image/jpeg;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out.DataURI, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, out.Encoded, raw)
}

func TestProcessRejectsEmptyInput(t *testing.T) {
	p := NewProcessor(DefaultOptions())

	_, err := p.Process(context.Background(), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeImageProcessing))

	_, err = p.Process(context.Background(), &models.RawFrame{Image: image.NewRGBA(image.Rect(0, 0, 0, 10))})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeImageProcessing))
}

func TestAverageBrightnessSamplesEveryFortiethByte(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
		if i%40 == 0 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 90, 120, 150
		}
	}
	assert.Equal(t, 120.0, AverageBrightness(img, 40))
}

func TestSharpenLeavesBorderBitIdentical(t *testing.T) {
	sizes := [][2]int{{3, 3}, {17, 9}, {64, 64}, {5, 200}}
	for i, size := range sizes {
		img := noise(size[0], size[1], int64(i))
		before := make([]uint8, len(img.Pix))
		copy(before, img.Pix)

		Sharpen(img, 4)

		w, h := size[0], size[1]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				off := img.PixOffset(x, y)
				if x == 0 || y == 0 || x == w-1 || y == h-1 {
					assert.Equal(t, before[off:off+4], img.Pix[off:off+4], "border pixel (%d,%d) of %dx%d", x, y, w, h)
				}
				assert.Equal(t, before[off+3], img.Pix[off+3], "alpha at (%d,%d)", x, y)
			}
		}
	}
}

func TestSharpenKernel(t *testing.T) {
	img := solid(3, 3, 50)
	img.SetRGBA(1, 1, color.RGBA{R: 100, G: 60, B: 50, A: 255})

	Sharpen(img, 1)

	// 5*100 - 4*50 clamps high, 5*60 - 4*50 = 100, 5*50 - 4*50 = 50
	assert.Equal(t, color.RGBA{R: 255, G: 100, B: 50, A: 255}, img.RGBAAt(1, 1))

	dark := solid(3, 3, 100)
	dark.SetRGBA(1, 1, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	Sharpen(dark, 0)
	assert.Equal(t, color.RGBA{A: 255}, dark.RGBAAt(1, 1))
}

func TestSharpenIgnoresTinyImages(t *testing.T) {
	img := noise(2, 5, 1)
	before := append([]uint8(nil), img.Pix...)
	Sharpen(img, 0)
	assert.Equal(t, before, img.Pix)
}

func TestApplyFilters(t *testing.T) {
	img := solid(4, 4, 50)
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 128})

	ApplyFilters(img, 1.4, 1.3, 1.1)

	// grey stays grey under saturate; contrast then brightness darkens 50 to 25
	assert.Equal(t, color.RGBA{R: 25, G: 25, B: 25, A: 255}, img.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 128}, img.RGBAAt(0, 0))
}
