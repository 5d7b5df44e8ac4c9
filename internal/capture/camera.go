package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrNoFrame is returned by a Device that has not decoded a frame yet
var ErrNoFrame = errors.New("no frame decoded yet")

// ErrCameraClosed is returned when capturing from a released stream
var ErrCameraClosed = errors.New("camera stream is closed")

// Device is a live video stream
type Device interface {
	Read() (image.Image, error)
	Close() error
}

// DeviceOpener opens the camera identified by deviceID
type DeviceOpener func(deviceID int) (Device, error)

// CameraSource captures still frames from a live stream
type CameraSource struct {
	mu     sync.Mutex
	dev    Device
	closed bool
}

// OpenCamera opens the platform camera and classifies open failures
func OpenCamera(deviceID int) (*CameraSource, error) {
	return OpenCameraWith(openDevice, deviceID)
}

// OpenCameraWith opens a camera through the given opener
func OpenCameraWith(open DeviceOpener, deviceID int) (*CameraSource, error) {
	dev, err := open(deviceID)
	if err != nil {
		classified := ClassifyOpenError(err)
		logger.WithComponent("capture").WithError(err).WithFields(logrus.Fields{
			"device_id":  deviceID,
			"error_type": classified.Type,
		}).Warn("Failed to open camera")
		return nil, classified
	}
	return &CameraSource{dev: dev}, nil
}

// Capture grabs the current frame. A stream that has not produced a frame
// yet is not ready and the caller should ask the user to wait.
func (c *CameraSource) Capture(ctx context.Context) (*models.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, apperrors.NewCameraUnavailableError("camera stream is closed", ErrCameraClosed)
	}

	img, err := c.dev.Read()
	if errors.Is(err, ErrNoFrame) || (err == nil && (img == nil || img.Bounds().Empty())) {
		return nil, apperrors.NewCameraNotReadyError("camera is still starting, please wait", err)
	}
	if err != nil {
		return nil, apperrors.NewCameraUnavailableError("failed to read camera frame", err)
	}
	return models.NewRawFrame(img, models.CaptureCamera), nil
}

// Close stops the stream. It is safe to call more than once.
func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.dev.Close(); err != nil {
		return fmt.Errorf("failed to release camera: %w", err)
	}
	logger.WithComponent("capture").Debug("Camera stream released")
	return nil
}

// WithCamera opens a camera for the duration of fn and always releases it,
// whether fn returns, fails or panics.
func WithCamera(ctx context.Context, open DeviceOpener, deviceID int, fn func(ctx context.Context, cam *CameraSource) error) (err error) {
	if open == nil {
		open = openDevice
	}
	cam, err := OpenCameraWith(open, deviceID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cam.Close(); cerr != nil {
			logger.WithComponent("capture").WithError(cerr).Warn("Camera close failed")
			if err == nil {
				err = cerr
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, cam)
}

var permissionMarkers = []string{
	"permission denied",
	"not allowed",
	"notallowederror",
	"access denied",
	"operation not permitted",
}

// ClassifyOpenError maps a camera open failure to the user-facing taxonomy:
// explicit denial is final; anything else can be retried by uploading.
func ClassifyOpenError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, os.ErrPermission) {
		return apperrors.NewPermissionDeniedError("camera access was denied; upload a photo instead", err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return apperrors.NewPermissionDeniedError("camera access was denied; upload a photo instead", err)
		}
	}
	return apperrors.NewCameraUnavailableError("camera is unavailable; try uploading a photo", err)
}
