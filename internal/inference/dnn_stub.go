//go:build !gocv

package inference

import (
	"context"
	"fmt"
)

// NewDNNLoader returns a loader that always fails; the DNN classifier needs
// the gocv build tag.
func NewDNNLoader(modelPath, labelsPath string) ModelLoader {
	return func(context.Context) (Classifier, error) {
		return nil, fmt.Errorf("%w: build with -tags gocv", ErrClassifierUnavailable)
	}
}
