package inference

import (
	"context"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Stage runs the on-device classifier and text extraction over a processed image
type Stage struct {
	models *ModelCache
	text   TextExtractor
}

// NewStage accepts nil for either capability; a missing one yields an empty value
func NewStage(cache *ModelCache, text TextExtractor) *Stage {
	return &Stage{models: cache, text: text}
}

// Run never fails. Classifier or OCR failures are logged and produce empty values.
func (s *Stage) Run(ctx context.Context, img *models.ProcessedImage) models.LocalSignal {
	start := time.Now()
	var (
		labels []string
		text   string
	)

	var g errgroup.Group
	g.Go(func() error {
		labels = s.classify(ctx, img)
		return nil
	})
	g.Go(func() error {
		text = s.extract(ctx, img)
		return nil
	})
	_ = g.Wait()

	if labels == nil {
		labels = []string{}
	}

	logger.WithFields(logrus.Fields{
		"labels":      len(labels),
		"ocr_chars":   len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Local inference finished")

	return models.LocalSignal{Classification: labels, OCRText: text}
}

func (s *Stage) classify(ctx context.Context, img *models.ProcessedImage) (labels []string) {
	if s.models == nil || img == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("inference").WithField("panic", r).Error("Classifier panicked, continuing without labels")
			labels = nil
		}
	}()
	classifier, err := s.models.Classifier(ctx)
	if err != nil {
		logger.WithError(err).Warn("Classifier unavailable, continuing without labels")
		return nil
	}
	pixels, err := img.Decode()
	if err != nil {
		logger.WithError(err).Warn("Failed to decode processed image for classification")
		return nil
	}
	labels, err = classifier.Classify(ctx, pixels)
	if err != nil {
		logger.WithError(err).Warn("Classification failed")
		return nil
	}
	return labels
}

func (s *Stage) extract(ctx context.Context, img *models.ProcessedImage) (text string) {
	if s.text == nil || img == nil || len(img.Encoded) == 0 {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("inference").WithField("panic", r).Error("Text extraction panicked, continuing without label text")
			text = ""
		}
	}()
	raw, err := s.text.ExtractText(ctx, img.Encoded)
	if err != nil {
		logger.WithError(err).Warn("Text extraction failed")
		return ""
	}
	return knowledge.NormalizeOCR(raw)
}
