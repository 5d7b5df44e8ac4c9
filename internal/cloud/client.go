package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/retry"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Service is the cloud reasoning capability used by the fusion engine and the
// recycling lookup
type Service interface {
	AnalyzeGarment(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error)
	FindRecyclingCenters(ctx context.Context, lat, lng float64) ([]models.RecyclingCenter, []models.GroundingLink, error)
}

// AnalysisRequest is the image plus the on-device signal sent for reasoning
type AnalysisRequest struct {
	JPEG   []byte
	Signal models.LocalSignal
}

// Generator is the subset of the genai models API the client needs
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ErrEmptyResponse is returned when the service answers without any candidate text
var ErrEmptyResponse = errors.New("empty response from cloud service")

// ErrMalformedResponse marks a response that did not match the requested shape
var ErrMalformedResponse = errors.New("malformed response from cloud service")

// Client implements Service on top of Gemini
type Client struct {
	gen    Generator
	model  string
	policy retry.Policy
}

// NewGeminiClient creates a client for the Gemini developer API
func NewGeminiClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, apperrors.NewValidationError("GEMINI_API_KEY is not set", nil)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewClient(gc.Models, model, retry.CloudPolicy()), nil
}

// NewClient builds a client around any Generator. The policy governs every call.
func NewClient(gen Generator, model string, policy retry.Policy) *Client {
	if policy.Name == "" {
		policy = retry.CloudPolicy()
	}
	return &Client{gen: gen, model: model, policy: policy}
}

// AnalyzeGarment asks for a schema-constrained sustainability report. 5xx and
// transport failures are retried; anything else fails at once. The returned
// error is always a CloudServiceError.
func (c *Client) AnalyzeGarment(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
	if len(req.JPEG) == 0 {
		return nil, apperrors.NewCloudServiceError("no image to analyze", nil)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analysisPrompt(req.Signal)),
			{InlineData: &genai.Blob{Data: req.JPEG, MIMEType: "image/jpeg"}},
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: AnalysisSchema(),
		Temperature:        genai.Ptr[float32](0.2),
	}

	start := time.Now()
	attempts := 0
	result, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (*models.AnalysisResult, error) {
		attempts++
		resp, err := c.generate(ctx, contents, config)
		if err != nil {
			return nil, err
		}
		return decodeAnalysis(resp.Text())
	})

	fields := logrus.Fields{
		"model":       c.model,
		"attempts":    attempts,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.WithError(err).WithFields(fields).Warn("Cloud analysis failed")
		return nil, apperrors.NewCloudServiceError("cloud analysis failed", err)
	}

	logger.WithFields(fields).Info("Cloud analysis completed")
	return result, nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := c.gen.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, classifyError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		// overloaded or blocked; retried like a 503
		return nil, retry.NewStatusError(503, ErrEmptyResponse)
	}
	if resp.UsageMetadata != nil {
		logger.WithFields(logrus.Fields{
			"model":         c.model,
			"input_tokens":  resp.UsageMetadata.PromptTokenCount,
			"output_tokens": resp.UsageMetadata.CandidatesTokenCount,
		}).Debug("Cloud usage")
	}
	return resp, nil
}

// classifyError maps a genai API error onto a StatusError so the shared
// retry predicate can tell 4xx from 5xx. Transport errors pass through.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.NewStatusError(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retry.NewStatusError(apiErrPtr.Code, err)
	}
	return err
}

func decodeAnalysis(text string) (*models.AnalysisResult, error) {
	raw, err := extractJSON(text, '{', '}')
	if err != nil {
		return nil, err
	}
	// extra keys are ignored; missing sections are filled by ApplyDefaults
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.MainMaterial == "" {
		return nil, fmt.Errorf("%w: mainMaterial is missing", ErrMalformedResponse)
	}
	models.ApplyDefaults(&result)
	result.Source = models.SourceCloud
	result.Confidence = models.ConfidenceStandard
	result.Degraded = false
	return &result, nil
}

// extractJSON returns the outermost open...close span of text, tolerating
// markdown fences around it
func extractJSON(text string, open, close byte) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON found in %q", ErrMalformedResponse, truncate(text, 120))
	}
	return text[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
