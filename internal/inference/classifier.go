package inference

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrClassifierUnavailable is returned by loaders that cannot run on this build
var ErrClassifierUnavailable = errors.New("on-device classifier is unavailable")

// Classifier labels a garment photo. Labels are ordered by confidence.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) ([]string, error)
}

// ModelLoader builds a ready-to-use classifier. It may be slow.
type ModelLoader func(ctx context.Context) (Classifier, error)

// ModelCache loads the classifier on first use and keeps it for the process
// lifetime. Concurrent callers share one in-flight load; failed loads are
// not cached so the next call tries again.
type ModelCache struct {
	loader ModelLoader
	group  singleflight.Group

	mu    sync.RWMutex
	model Classifier
}

func NewModelCache(loader ModelLoader) *ModelCache {
	return &ModelCache{loader: loader}
}

// Classifier returns the cached model, loading it if needed
func (c *ModelCache) Classifier(ctx context.Context) (Classifier, error) {
	if m := c.cached(); m != nil {
		return m, nil
	}
	if c.loader == nil {
		return nil, ErrClassifierUnavailable
	}

	ch := c.group.DoChan("model", func() (interface{}, error) {
		if m := c.cached(); m != nil {
			return m, nil
		}
		start := time.Now()
		// The load outlives any single caller.
		m, err := c.loader(context.WithoutCancel(ctx))
		if err != nil {
			logger.WithError(err).Warn("Classifier load failed")
			return nil, err
		}
		c.mu.Lock()
		c.model = m
		c.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Classifier loaded")
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Classifier), nil
	}
}

// Loaded reports whether a model is cached
func (c *ModelCache) Loaded() bool {
	return c.cached() != nil
}

func (c *ModelCache) cached() Classifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Close releases the cached model if it holds native resources
func (c *ModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if closer, ok := c.model.(io.Closer); ok {
		c.model = nil
		return closer.Close()
	}
	c.model = nil
	return nil
}

// LoadLabels reads one class label per line, skipping blank lines
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

type scoredLabel struct {
	label string
	score float32
}

// topLabels returns up to k labels ordered by descending score
func topLabels(labels []string, scores []float32, k int) []string {
	ranked := make([]scoredLabel, 0, len(scores))
	for i, s := range scores {
		if i >= len(labels) {
			break
		}
		ranked = append(ranked, scoredLabel{label: labels[i], score: s})
	}
	// stable so equal scores keep label order
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.label)
	}
	return out
}
