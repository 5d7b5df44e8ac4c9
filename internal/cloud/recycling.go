package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/anime-shed/ecoscan-go/internal/errors"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/retry"
	"github.com/anime-shed/ecoscan-go/pkg/models"
	"github.com/anime-shed/ecoscan-go/pkg/validation"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

type recyclingAnswer struct {
	centers []models.RecyclingCenter
	links   []models.GroundingLink
}

// FindRecyclingCenters runs a search-grounded text request for drop-off points
// near the given coordinates. Grounding sources are returned as links.
func (c *Client) FindRecyclingCenters(ctx context.Context, lat, lng float64) ([]models.RecyclingCenter, []models.GroundingLink, error) {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(recyclingPrompt(lat, lng), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	answer, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (recyclingAnswer, error) {
		resp, err := c.generate(ctx, contents, config)
		if err != nil {
			return recyclingAnswer{}, err
		}
		centers, err := decodeCenters(resp.Text())
		if err != nil {
			return recyclingAnswer{}, err
		}
		return recyclingAnswer{centers: centers, links: groundingLinks(resp)}, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		logger.WithError(err).Warn("Recycling center lookup failed")
		return nil, nil, apperrors.NewCloudServiceError("recycling center lookup failed", err)
	}

	logger.WithFields(logrus.Fields{
		"centers": len(answer.centers),
		"links":   len(answer.links),
	}).Info("Recycling centers found")
	return answer.centers, answer.links, nil
}

func decodeCenters(text string) ([]models.RecyclingCenter, error) {
	raw, err := extractJSON(text, '[', ']')
	if err != nil {
		return nil, err
	}
	var centers []models.RecyclingCenter
	if err := json.Unmarshal([]byte(raw), &centers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]models.RecyclingCenter, 0, len(centers))
	for _, center := range centers {
		if strings.TrimSpace(center.Name) == "" {
			continue
		}
		out = append(out, center)
	}
	return out, nil
}

// groundingLinks collects unique web sources from the first candidate
func groundingLinks(resp *genai.GenerateContentResponse) []models.GroundingLink {
	links := []models.GroundingLink{}
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return links
	}
	seen := make(map[string]bool)
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		links = append(links, models.GroundingLink{Title: title, URI: chunk.Web.URI})
	}
	return links
}
