package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/retry"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type reply struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeGenerator struct {
	replies []reply
	calls   int
	configs []*genai.GenerateContentConfig
	prompts []string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.configs = append(f.configs, config)
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	r := f.replies[len(f.replies)-1]
	if f.calls <= len(f.replies) {
		r = f.replies[f.calls-1]
	}
	return r.resp, r.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}, Role: genai.RoleModel},
		}},
	}
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func testPolicy(rec *recordedSleeps) retry.Policy {
	p := retry.CloudPolicy()
	p.Sleep = rec.sleep
	return p
}

const validAnalysis = `{
	"overallScore": 72,
	"mainMaterial": "Organic Cotton",
	"breakdown": {"material": 80, "ethics": 70, "production": 65, "longevity": 70, "transparency": 60},
	"carbonFootprint": {"value": "4.2 kg CO2e", "comparison": "like driving 17 km"},
	"waterUsage": {"litersSaved": 1500, "comparison": "two weeks of drinking water"},
	"certifications": ["GOTS"],
	"alternatives": [{"name": "Linen tee", "description": "Low water fibre", "category": "tops"}],
	"summary": "A Patagonia organic cotton tee with good traceability.",
	"estimatedLifespan": 0,
	"careGuide": {"wash": "cold", "dry": "line", "repair": "darn", "note": "n/a"},
	"supplyChain": {"steps": [{"stage": "Cut & sew", "location": "Sri Lanka"}], "totalMiles": 9000},
	"activism": null,
	"endOfLife": null,
	"repairInfo": null
}`

func TestAnalyzeGarmentSuccess(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{resp: textResponse("```json\n" + validAnalysis + "\n```")}}}
	client := NewClient(gen, "test-model", testPolicy(&recordedSleeps{}))

	result, err := client.AnalyzeGarment(context.Background(), AnalysisRequest{
		JPEG:   []byte{0xff, 0xd8},
		Signal: models.LocalSignal{Classification: []string{"jersey"}, OCRText: "100% organic cotton"},
	})
	require.NoError(t, err)

	assert.Equal(t, 72, result.OverallScore)
	assert.Equal(t, models.SourceCloud, result.Source)
	assert.Equal(t, models.DefaultLifespan, result.EstimatedLifespan)
	assert.NotNil(t, result.Activism)
	assert.NotNil(t, result.EndOfLife)
	assert.NotNil(t, result.RepairInfo)
	assert.Equal(t, 9000, result.SupplyChain.TotalMiles)

	require.Len(t, gen.configs, 1)
	assert.Equal(t, "application/json", gen.configs[0].ResponseMIMEType)
	assert.NotNil(t, gen.configs[0].ResponseJsonSchema)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "jersey")
	assert.Contains(t, prompt, "100% organic cotton")
	assert.Contains(t, prompt, "Polyester (Virgin)")
	assert.Contains(t, prompt, "Patagonia")
}

func TestAnalyzeGarmentRetryBound(t *testing.T) {
	rec := &recordedSleeps{}
	gen := &fakeGenerator{replies: []reply{{err: genai.APIError{Code: 503, Status: "UNAVAILABLE"}}}}
	client := NewClient(gen, "test-model", testPolicy(rec))

	_, err := client.AnalyzeGarment(context.Background(), AnalysisRequest{JPEG: []byte{1}})
	require.Error(t, err)

	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCloudService))
}

func TestAnalyzeGarmentFailureClassification(t *testing.T) {
	tests := []struct {
		name      string
		replies   []reply
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "client error is not retried",
			replies:   []reply{{err: genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "malformed body is not retried",
			replies:   []reply{{resp: textResponse("I cannot help with that")}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "extra keys are ignored and gaps defaulted",
			replies:   []reply{{resp: textResponse(`{"mainMaterial":"Organic Cotton","brand":"Patagonia","price":12}`)}},
			wantCalls: 1,
		},
		{
			name:      "network errors are retried",
			replies:   []reply{{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}},
			wantCalls: 4,
			wantErr:   true,
		},
		{
			name: "recovers after a server error",
			replies: []reply{
				{err: genai.APIError{Code: 500}},
				{resp: &genai.GenerateContentResponse{}},
				{resp: textResponse(validAnalysis)},
			},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{replies: tt.replies}
			client := NewClient(gen, "test-model", testPolicy(&recordedSleeps{}))

			result, err := client.AnalyzeGarment(context.Background(), AnalysisRequest{JPEG: []byte{1}})
			assert.Equal(t, tt.wantCalls, gen.calls)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Organic Cotton", result.MainMaterial)
		})
	}
}

func TestAnalyzeGarmentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{replies: []reply{{err: genai.APIError{Code: 503}}}}
	policy := retry.CloudPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := NewClient(gen, "m", policy).AnalyzeGarment(ctx, AnalysisRequest{JPEG: []byte{1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

func TestAnalysisSchema(t *testing.T) {
	s := AnalysisSchema()
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.NotContains(t, s, "$schema")

	props, ok := s["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, field := range []string{"overallScore", "mainMaterial", "supplyChain", "activism", "endOfLife", "repairInfo", "careGuide"} {
		assert.Contains(t, props, field)
	}
	for _, local := range []string{"microplasticImpact", "source", "confidence", "degraded"} {
		assert.NotContains(t, props, local)
	}

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$ref")
}

func TestFindRecyclingCenters(t *testing.T) {
	resp := textResponse(`Here you go:
[{"name":"TexCycle Depot","address":"1 Main St","info":"Mon-Fri"},{"name":"","address":"skip me","info":""}]`)
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{URI: "https://example.org/a", Title: "Depot listing"}},
			{Web: &genai.GroundingChunkWeb{URI: "https://example.org/a", Title: "duplicate"}},
			{Web: &genai.GroundingChunkWeb{URI: "https://example.org/b"}},
			{},
		},
	}
	gen := &fakeGenerator{replies: []reply{{resp: resp}}}
	client := NewClient(gen, "m", testPolicy(&recordedSleeps{}))

	centers, links, err := client.FindRecyclingCenters(context.Background(), 51.5, -0.12)
	require.NoError(t, err)
	require.Len(t, centers, 1)
	assert.Equal(t, "TexCycle Depot", centers[0].Name)
	assert.Equal(t, []models.GroundingLink{
		{Title: "Depot listing", URI: "https://example.org/a"},
		{Title: "https://example.org/b", URI: "https://example.org/b"},
	}, links)

	require.Len(t, gen.configs, 1)
	require.Len(t, gen.configs[0].Tools, 1)
	assert.NotNil(t, gen.configs[0].Tools[0].GoogleSearch)
	assert.True(t, strings.Contains(gen.prompts[0], "51.50000"))
}

func TestFindRecyclingCentersRejectsBadCoordinates(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{resp: textResponse("[]")}}}
	_, _, err := NewClient(gen, "m", testPolicy(&recordedSleeps{})).FindRecyclingCenters(context.Background(), 91, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, 0, gen.calls)
}
