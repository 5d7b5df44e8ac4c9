package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/pkg/models"
)

// conventional cotton is the water baseline for "litres saved"
const baselineWaterLiters = 2700

// LocalHeuristicStrategy scores a garment from the on-device signal alone.
// It never fails.
type LocalHeuristicStrategy struct{}

func NewLocalHeuristicStrategy() AnalysisStrategy {
	return &LocalHeuristicStrategy{}
}

func (s *LocalHeuristicStrategy) GetStrategyName() string {
	return "local_heuristic"
}

func (s *LocalHeuristicStrategy) Analyze(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	return Heuristic(in.Signal), nil
}

// Corpus is the lowercase text the heuristic matches against
func Corpus(signal models.LocalSignal) string {
	return strings.ToLower(strings.Join(signal.Classification, " ") + " " + signal.OCRText)
}

// Score weights material 50%, brand ethics 30%, brand transparency 20%
func Score(material knowledge.Material, brand knowledge.Brand) int {
	return int(math.Round(float64(material.Score)*10*0.5 + float64(brand.Ethics)*0.3 + float64(brand.Transparency)*0.2))
}

// Heuristic builds a complete reduced-confidence report
func Heuristic(signal models.LocalSignal) *models.AnalysisResult {
	corpus := Corpus(signal)
	material, _ := knowledge.ResolveMaterial(corpus)
	brand, brandKnown := knowledge.ResolveBrand(corpus)

	score := Score(material, brand)

	summary := fmt.Sprintf("%s: this looks like %s.", models.PlaceholderPrefix, strings.ToLower(material.Name))
	if brandKnown {
		summary = fmt.Sprintf("%s: this looks like a %s garment made of %s.", models.PlaceholderPrefix, brand.Key, strings.ToLower(material.Name))
	}

	saved := baselineWaterLiters - material.WaterLiters
	if saved < 0 {
		saved = 0
	}

	result := &models.AnalysisResult{
		OverallScore: score,
		MainMaterial: material.Name,
		Breakdown: models.ScoreBreakdown{
			Material:     material.Score * 10,
			Ethics:       brand.Ethics,
			Production:   material.Production,
			Longevity:    material.Longevity,
			Transparency: brand.Transparency,
		},
		CarbonFootprint: models.CarbonFootprint{
			Value:      fmt.Sprintf("%.1f kg CO2e", material.CarbonKg),
			Comparison: fmt.Sprintf("%s from typical %s garments", models.PlaceholderPrefix, strings.ToLower(material.Name)),
		},
		WaterUsage: models.WaterUsage{
			LitersSaved: saved,
			Comparison:  fmt.Sprintf("%s against a conventional cotton equivalent (%d L)", models.PlaceholderPrefix, baselineWaterLiters),
		},
		Certifications:    []string{},
		Alternatives:      alternativesFor(material),
		Summary:           summary,
		EstimatedLifespan: models.DefaultLifespan,
		CareGuide:         models.PlaceholderCareGuide(),
		SupplyChain:       models.PlaceholderSupplyChain(),
		Activism:          models.PlaceholderActivism(),
		EndOfLife:         endOfLifeFor(material),
		RepairInfo:        models.PlaceholderRepairInfo(),
		Source:            models.SourceLocal,
		Confidence:        models.ConfidenceReduced,
	}
	return result
}

func endOfLifeFor(m knowledge.Material) *models.EndOfLife {
	eol := models.PlaceholderEndOfLife()
	eol.Recyclable = m.Recyclable
	eol.Biodegradable = m.Biodegradable
	eol.DecompositionYears = m.DecompositionYears
	switch {
	case m.Recyclable:
		eol.BestOption = "Resell or donate if wearable; otherwise a textile recycling bank can process this fibre."
	case m.Biodegradable:
		eol.BestOption = "Resell or donate if wearable; natural fibres can be composted once cut free of trims."
	}
	return eol
}

func alternativesFor(m knowledge.Material) []models.Alternative {
	alts := []models.Alternative{
		{Name: "Second-hand equivalent", Description: "The lowest-impact garment is one that already exists.", Category: "secondhand"},
	}
	if m.Synthetic() {
		alts = append(alts, models.Alternative{
			Name:        "Tencel or organic cotton version",
			Description: "Plant-based fibres do not shed plastic microfibres.",
			Category:    "natural-fibre",
		})
	} else if m.Score < 7 {
		alts = append(alts, models.Alternative{
			Name:        "Hemp or linen version",
			Description: "Rain-fed fibres with far lower water and pesticide use.",
			Category:    "natural-fibre",
		})
	}
	alts = append(alts, models.Alternative{
		Name:        "Rental or swap",
		Description: "Borrow occasion wear instead of buying it.",
		Category:    "rental",
	})
	return alts
}
