package models

import (
	"bytes"
	"image"
	"image/jpeg"
)

// CaptureMode records how a frame was obtained
type CaptureMode string

const (
	CaptureCamera CaptureMode = "camera"
	CaptureFile   CaptureMode = "file"
	CaptureURL    CaptureMode = "url"
)

// RawFrame is a captured image source with its dimensions at capture time.
// It only lives for the duration of processing.
type RawFrame struct {
	Image  image.Image
	Width  int
	Height int
	Mode   CaptureMode
}

// NewRawFrame wraps a decoded image
func NewRawFrame(img image.Image, mode CaptureMode) *RawFrame {
	b := img.Bounds()
	return &RawFrame{Image: img, Width: b.Dx(), Height: b.Dy(), Mode: mode}
}

// ProcessedImage is the canonical unit handed to local inference and the thumbnail display.
// Encoded and DataURI are produced from the same final pixel buffer.
type ProcessedImage struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Encoded       []byte  `json:"-"`
	DataURI       string  `json:"dataUri"`
	Enhanced      bool    `json:"enhanced"`
	AvgBrightness float64 `json:"avgBrightness"`
}

// Decode returns the pixels of the encoded JPEG
func (p *ProcessedImage) Decode() (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(p.Encoded))
}

// LocalSignal is the combined on-device inference output
type LocalSignal struct {
	Classification []string `json:"classification"`
	OCRText        string   `json:"ocrText"`
}
