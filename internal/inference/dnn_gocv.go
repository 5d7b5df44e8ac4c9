//go:build gocv

package inference

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	dnnInputSize = 224
	dnnTopK      = 5
)

type dnnClassifier struct {
	mu     sync.Mutex
	net    gocv.Net
	labels []string
}

// NewDNNLoader returns a loader for an ONNX image classifier (MobileNet style,
// 224x224 RGB input) and its labels file.
func NewDNNLoader(modelPath, labelsPath string) ModelLoader {
	return func(ctx context.Context) (Classifier, error) {
		if modelPath == "" || labelsPath == "" {
			return nil, fmt.Errorf("%w: model and labels paths are required", ErrClassifierUnavailable)
		}
		labels, err := LoadLabels(labelsPath)
		if err != nil {
			return nil, err
		}
		net := gocv.ReadNet(modelPath, "")
		if net.Empty() {
			return nil, fmt.Errorf("failed to read model %s", modelPath)
		}
		return &dnnClassifier{net: net, labels: labels}, nil
	}
}

func (c *dnnClassifier) Classify(ctx context.Context, img image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(dnnInputSize, dnnInputSize),
		gocv.NewScalar(0, 0, 0, 0), false, true)
	defer blob.Close()

	c.mu.Lock()
	c.net.SetInput(blob, "")
	prob := c.net.Forward("")
	c.mu.Unlock()
	defer prob.Close()

	flat := prob.Reshape(1, 1)
	defer flat.Close()

	scores := make([]float32, flat.Cols())
	for i := range scores {
		scores[i] = flat.GetFloatAt(0, i)
	}
	return topLabels(c.labels, scores, dnnTopK), nil
}

func (c *dnnClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}
