//go:build gocv

package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type videoDevice struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func openDevice(deviceID int) (Device, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture %d: %w", deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %d is not opened", deviceID)
	}
	return &videoDevice{vc: vc, mat: gocv.NewMat()}, nil
}

func (d *videoDevice) Read() (image.Image, error) {
	if !d.vc.Read(&d.mat) || d.mat.Empty() {
		return nil, ErrNoFrame
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (d *videoDevice) Close() error {
	d.mat.Close()
	return d.vc.Close()
}
