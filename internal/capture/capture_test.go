package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	frames  []image.Image
	readErr error
	closed  int
}

func (d *fakeDevice) Read() (image.Image, error) {
	if d.readErr != nil {
		return nil, d.readErr
	}
	if len(d.frames) == 0 {
		return nil, ErrNoFrame
	}
	img := d.frames[0]
	d.frames = d.frames[1:]
	return img, nil
}

func (d *fakeDevice) Close() error {
	d.closed++
	return nil
}

func openerFor(dev *fakeDevice, err error) DeviceOpener {
	return func(int) (Device, error) {
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 90, B: 60, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(w, h)))
	return buf.Bytes()
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"os permission", fmt.Errorf("open /dev/video0: %w", os.ErrPermission), apperrors.ErrorTypePermissionDenied},
		{"browser style denial", errors.New("NotAllowedError: Permission dismissed"), apperrors.ErrorTypePermissionDenied},
		{"operation not permitted", errors.New("ioctl: operation not permitted"), apperrors.ErrorTypePermissionDenied},
		{"no device", errors.New("no such device"), apperrors.ErrorTypeCameraUnavailable},
		{"already classified", apperrors.NewCameraNotReadyError("wait", nil), apperrors.ErrorTypeCameraNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOpenError(tt.err)
			assert.Equal(t, tt.want, got.Type)
		})
	}

	assert.False(t, ClassifyOpenError(os.ErrPermission).Retryable)
	assert.True(t, ClassifyOpenError(errors.New("busy")).Retryable)
}

func TestCameraCapture(t *testing.T) {
	t.Run("not ready before first frame", func(t *testing.T) {
		cam, err := OpenCameraWith(openerFor(&fakeDevice{}, nil), 0)
		require.NoError(t, err)

		_, err = cam.Capture(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCameraNotReady))
	})

	t.Run("empty frame is not ready", func(t *testing.T) {
		dev := &fakeDevice{frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 0, 0))}}
		cam, err := OpenCameraWith(openerFor(dev, nil), 0)
		require.NoError(t, err)

		_, err = cam.Capture(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCameraNotReady))
	})

	t.Run("ready frame", func(t *testing.T) {
		dev := &fakeDevice{frames: []image.Image{solidImage(64, 48)}}
		cam, err := OpenCameraWith(openerFor(dev, nil), 0)
		require.NoError(t, err)

		frame, err := cam.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 64, frame.Width)
		assert.Equal(t, 48, frame.Height)
		assert.Equal(t, models.CaptureCamera, frame.Mode)
	})

	t.Run("read failure", func(t *testing.T) {
		cam, err := OpenCameraWith(openerFor(&fakeDevice{readErr: errors.New("unplugged")}, nil), 0)
		require.NoError(t, err)

		_, err = cam.Capture(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCameraUnavailable))
	})

	t.Run("closed stream", func(t *testing.T) {
		dev := &fakeDevice{frames: []image.Image{solidImage(8, 8)}}
		cam, err := OpenCameraWith(openerFor(dev, nil), 0)
		require.NoError(t, err)
		require.NoError(t, cam.Close())
		require.NoError(t, cam.Close())

		_, err = cam.Capture(context.Background())
		assert.ErrorIs(t, err, ErrCameraClosed)
		assert.Equal(t, 1, dev.closed)
	})
}

func TestOpenCameraWithPermissionDenied(t *testing.T) {
	_, err := OpenCameraWith(openerFor(nil, os.ErrPermission), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePermissionDenied))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestWithCameraAlwaysCloses(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		dev := &fakeDevice{frames: []image.Image{solidImage(4, 4)}}
		err := WithCamera(context.Background(), openerFor(dev, nil), 0, func(ctx context.Context, cam *CameraSource) error {
			_, err := cam.Capture(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, dev.closed)
	})

	t.Run("on error", func(t *testing.T) {
		dev := &fakeDevice{}
		boom := errors.New("boom")
		err := WithCamera(context.Background(), openerFor(dev, nil), 0, func(context.Context, *CameraSource) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, dev.closed)
	})

	t.Run("on panic", func(t *testing.T) {
		dev := &fakeDevice{}
		assert.Panics(t, func() {
			_ = WithCamera(context.Background(), openerFor(dev, nil), 0, func(context.Context, *CameraSource) error {
				panic("unexpected")
			})
		})
		assert.Equal(t, 1, dev.closed)
	})

	t.Run("on cancelled context", func(t *testing.T) {
		dev := &fakeDevice{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		err := WithCamera(ctx, openerFor(dev, nil), 0, func(context.Context, *CameraSource) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
		assert.Equal(t, 1, dev.closed)
	})
}

func TestBytesSource(t *testing.T) {
	frame, err := NewBytesSource(pngBytes(t, 30, 20), "shirt.png").Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, frame.Width)
	assert.Equal(t, 20, frame.Height)
	assert.Equal(t, models.CaptureFile, frame.Mode)

	_, err = NewBytesSource([]byte("definitely not an image"), "notes.txt").Capture(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))
	assert.True(t, apperrors.IsRetryable(err))
}

// oversizedPNG rewrites the IHDR of a tiny PNG to claim w x h pixels
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 2, 2)
	require.Equal(t, "IHDR", string(data[12:16]))
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	data := oversizedPNG(t, 60000, 60000)
	assert.Less(t, len(data), 1024)

	_, err := NewBytesSource(data, "huge.png").Capture(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))
	assert.Contains(t, err.Error(), "60000x60000")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 10, 12), 0o600))

	frame, err := NewFileSource(path).Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, frame.Height)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.png")).Capture(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))
}

func TestURLSource(t *testing.T) {
	payload := pngBytes(t, 16, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shirt.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(payload)
		case "/text":
			w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := storage.NewHTTPImageFetcher(storage.DefaultFetcherOptions())

	frame, err := NewURLSource(server.URL+"/shirt.png", fetcher, nil).Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CaptureURL, frame.Mode)
	assert.Equal(t, 16, frame.Width)

	_, err = NewURLSource(server.URL+"/text", fetcher, nil).Capture(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidImage))

	_, err = NewURLSource("ftp://example.com/shirt.png", fetcher, nil).Capture(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
