package impact

import (
	"testing"

	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		annual int
		want   string
	}{
		{0, models.RiskNone},
		{1, models.RiskLow},
		{4_999_999, models.RiskLow},
		{5_000_000, models.RiskLow},
		{5_000_001, models.RiskMedium},
		{19_999_999, models.RiskMedium},
		{20_000_000, models.RiskMedium},
		{20_000_001, models.RiskHigh},
		{39_999_999, models.RiskHigh},
		{40_000_000, models.RiskHigh},
		{40_000_001, models.RiskSevere},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.annual), "annual=%d", tt.annual)
	}
}

func TestCalculateVirginPolyester(t *testing.T) {
	for i := 0; i < 3; i++ {
		got := Calculate("Polyester (Virgin)")

		assert.Equal(t, 700_000, got.FibersPerWash)
		assert.Equal(t, 36_400_000, got.AnnualFibers)
		assert.Equal(t, models.RiskHigh, got.RiskLevel)
		assert.Contains(t, got.OceanEquivalent, "52 plastic bottles")
		assert.Contains(t, got.Mitigation, "up to 86%")
		assert.Equal(t, MitigationLink, got.MitigationLink)
	}
}

func TestCalculateNaturalFibre(t *testing.T) {
	got := Calculate("Linen")

	assert.Equal(t, 0, got.AnnualFibers)
	assert.Equal(t, models.RiskNone, got.RiskLevel)
	assert.Equal(t, zeroShedMitigation, got.Mitigation)
	assert.Empty(t, got.MitigationLink)
	assert.Contains(t, got.OceanEquivalent, "Minimal")
}

func TestCalculateUnknownUsesFirstRow(t *testing.T) {
	got := Calculate("mystery fabric")
	assert.Equal(t, knowledge.Materials[0].AnnualFibers, got.AnnualFibers)
}

func TestOceanEquivalentThreshold(t *testing.T) {
	assert.Contains(t, OceanEquivalent(1_000_000), "Minimal")
	assert.Contains(t, OceanEquivalent(1_050_000), "about 2 plastic")
}
