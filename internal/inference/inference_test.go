package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	labels   []string
	err      error
	panicMsg string
	closed   atomic.Bool
}

func (s *stubClassifier) Classify(ctx context.Context, img image.Image) ([]string, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.labels, s.err
}

func (s *stubClassifier) Close() error {
	s.closed.Store(true)
	return nil
}

func processedImage(t *testing.T) *models.ProcessedImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return &models.ProcessedImage{Width: 8, Height: 8, Encoded: buf.Bytes()}
}

func TestModelCacheSharesInFlightLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	model := &stubClassifier{labels: []string{"jersey"}}

	cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
		loads.Add(1)
		<-release
		return model, nil
	})

	var wg sync.WaitGroup
	results := make([]Classifier, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := cache.Classifier(context.Background())
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, c := range results {
		assert.Same(t, model, c)
	}

	_, err := cache.Classifier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, cache.Loaded())
}

func TestModelCacheRetriesFailedLoad(t *testing.T) {
	var loads atomic.Int32
	cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("model file truncated")
		}
		return &stubClassifier{}, nil
	})

	_, err := cache.Classifier(context.Background())
	require.Error(t, err)
	assert.False(t, cache.Loaded())

	_, err = cache.Classifier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestModelCacheCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
		<-release
		return &stubClassifier{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := cache.Classifier(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestModelCacheClose(t *testing.T) {
	model := &stubClassifier{}
	cache := NewModelCache(func(ctx context.Context) (Classifier, error) { return model, nil })
	_, err := cache.Classifier(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.Close())
	assert.True(t, model.closed.Load())
	assert.False(t, cache.Loaded())
}

func TestDNNLoaderWithoutModelIsUnavailable(t *testing.T) {
	_, err := NewModelCache(NewDNNLoader("", "")).Classifier(context.Background())
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("jersey\n\n  cardigan \nsweatshirt\n"), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"jersey", "cardigan", "sweatshirt"}, labels)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = LoadLabels(empty)
	assert.Error(t, err)
}

func TestTopLabels(t *testing.T) {
	labels := []string{"a", "b", "c", "d"}
	scores := []float32{0.1, 0.6, 0.1, 0.2}

	assert.Equal(t, []string{"b", "d", "a"}, topLabels(labels, scores, 3))
	assert.Equal(t, []string{"b", "d", "a", "c"}, topLabels(labels, scores, 10))
}

func TestStageRun(t *testing.T) {
	img := processedImage(t)

	t.Run("combines both signals", func(t *testing.T) {
		cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
			return &stubClassifier{labels: []string{"jersey", "sweatshirt"}}, nil
		})
		ocr := TextExtractorFunc(func(ctx context.Context, encoded []byte) (string, error) {
			assert.Equal(t, img.Encoded, encoded)
			return "100%   POLYESTFR\n Made in Vietnam", nil
		})

		signal := NewStage(cache, ocr).Run(context.Background(), img)
		assert.Equal(t, []string{"jersey", "sweatshirt"}, signal.Classification)
		assert.Equal(t, "100% polyester Made in Vietnam", signal.OCRText)
	})

	t.Run("failures yield empty values", func(t *testing.T) {
		cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
			return &stubClassifier{err: errors.New("tensor shape mismatch")}, nil
		})
		ocr := TextExtractorFunc(func(ctx context.Context, encoded []byte) (string, error) {
			return "", errors.New("tesseract crashed")
		})

		signal := NewStage(cache, ocr).Run(context.Background(), img)
		assert.NotNil(t, signal.Classification)
		assert.Empty(t, signal.Classification)
		assert.Empty(t, signal.OCRText)
	})

	t.Run("panics yield empty values", func(t *testing.T) {
		cache := NewModelCache(func(ctx context.Context) (Classifier, error) {
			return &stubClassifier{panicMsg: "cv::dnn assertion failed"}, nil
		})
		ocr := TextExtractorFunc(func(ctx context.Context, encoded []byte) (string, error) {
			panic("tesseract segfault")
		})

		var signal models.LocalSignal
		require.NotPanics(t, func() {
			signal = NewStage(cache, ocr).Run(context.Background(), img)
		})
		assert.NotNil(t, signal.Classification)
		assert.Empty(t, signal.Classification)
		assert.Empty(t, signal.OCRText)
	})

	t.Run("missing capabilities", func(t *testing.T) {
		signal := NewStage(nil, nil).Run(context.Background(), img)
		assert.Empty(t, signal.Classification)
		assert.Empty(t, signal.OCRText)
	})
}
