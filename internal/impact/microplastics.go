package impact

import (
	"fmt"
	"math"

	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/pkg/models"
)

const (
	severeThreshold = 40_000_000
	highThreshold   = 20_000_000
	mediumThreshold = 5_000_000

	// fibres in one 500 ml plastic bottle's worth of microplastic
	fibersPerBottle    = 700_000
	narrativeThreshold = 1_000_000

	MitigationLink = "https://www.guppyfriend.com"

	zeroShedMitigation = "This material does not shed plastic microfibres. Washing on cold and full loads still saves energy and water."
	filterMitigation   = "Wash inside a microfibre filter bag, which can capture up to 86% of shed fibres. Wash cold, use full loads, and skip the tumble dryer."
)

// Calculate derives the microplastic section for a material name. It is a
// pure function of the materials table and never fails: unknown names
// resolve to the first table row.
func Calculate(materialName string) *models.MicroplasticImpact {
	m, _ := knowledge.ResolveMaterial(materialName)
	risk := RiskLevel(m.AnnualFibers)

	out := &models.MicroplasticImpact{
		FibersPerWash:   m.FibersPerWash,
		AnnualFibers:    m.AnnualFibers,
		RiskLevel:       risk,
		OceanEquivalent: OceanEquivalent(m.AnnualFibers),
	}
	if risk == models.RiskNone {
		out.Mitigation = zeroShedMitigation
	} else {
		out.Mitigation = filterMitigation
		out.MitigationLink = MitigationLink
	}
	return out
}

// RiskLevel classifies an annual fibre count
func RiskLevel(annualFibers int) string {
	switch {
	case annualFibers > severeThreshold:
		return models.RiskSevere
	case annualFibers > highThreshold:
		return models.RiskHigh
	case annualFibers > mediumThreshold:
		return models.RiskMedium
	case annualFibers > 0:
		return models.RiskLow
	default:
		return models.RiskNone
	}
}

// OceanEquivalent phrases the annual count as plastic bottles
func OceanEquivalent(annualFibers int) string {
	if annualFibers <= narrativeThreshold {
		return "Minimal microplastic release into waterways."
	}
	bottles := int(math.Round(float64(annualFibers) / fibersPerBottle))
	return fmt.Sprintf("Equivalent to about %d plastic bottles' worth of microfibres entering the ocean each year.", bottles)
}
