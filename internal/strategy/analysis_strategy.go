package strategy

import (
	"context"

	"github.com/anime-shed/ecoscan-go/internal/cloud"
	"github.com/anime-shed/ecoscan-go/pkg/models"
)

// Input is everything a strategy may use to build a report
type Input struct {
	Image  *models.ProcessedImage
	Signal models.LocalSignal
}

// AnalysisStrategy produces an AnalysisResult from a processed capture
type AnalysisStrategy interface {
	Analyze(ctx context.Context, in Input) (*models.AnalysisResult, error)
	GetStrategyName() string
}

// CloudStrategy delegates to the cloud reasoning service
type CloudStrategy struct {
	service cloud.Service
}

func NewCloudStrategy(service cloud.Service) AnalysisStrategy {
	return &CloudStrategy{service: service}
}

func (s *CloudStrategy) Analyze(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	var jpeg []byte
	if in.Image != nil {
		jpeg = in.Image.Encoded
	}
	return s.service.AnalyzeGarment(ctx, cloud.AnalysisRequest{JPEG: jpeg, Signal: in.Signal})
}

func (s *CloudStrategy) GetStrategyName() string {
	return "cloud_analysis"
}

// AnalysisContext manages the analysis strategy
type AnalysisContext struct {
	strategy AnalysisStrategy
}

func NewAnalysisContext(strategy AnalysisStrategy) *AnalysisContext {
	return &AnalysisContext{strategy: strategy}
}

// SetStrategy changes the analysis strategy
func (c *AnalysisContext) SetStrategy(strategy AnalysisStrategy) {
	c.strategy = strategy
}

// ExecuteAnalysis performs analysis using the current strategy
func (c *AnalysisContext) ExecuteAnalysis(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	return c.strategy.Analyze(ctx, in)
}

// GetCurrentStrategy returns the current strategy name
func (c *AnalysisContext) GetCurrentStrategy() string {
	return c.strategy.GetStrategyName()
}
