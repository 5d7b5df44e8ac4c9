//go:build !gocv

package capture

import "errors"

func openDevice(deviceID int) (Device, error) {
	_ = deviceID
	return nil, errors.New("camera support requires the gocv build tag")
}
