package models

// Placeholder text used whenever a section cannot be produced by the cloud service.
// The UI keys reduced-confidence badges off the "Estimated" prefix.
const (
	PlaceholderPrefix   = "Estimated"
	DegradedNotice      = " (Offline estimate: cloud analysis was unavailable, so this report was generated on-device with reduced confidence.)"
	placeholderCareNote = "Estimated guidance based on the detected material. Always check the garment's care label."
)

// PlaceholderCareGuide returns generic care guidance
func PlaceholderCareGuide() CareGuide {
	return CareGuide{
		Wash:   "Wash cold (30°C or below) on a gentle cycle, inside out.",
		Dry:    "Line dry in the shade; avoid tumble drying.",
		Repair: "Mend small holes and loose seams early with a needle and matching thread.",
		Note:   placeholderCareNote,
	}
}

// PlaceholderSupplyChain returns a generic, clearly estimated supply chain
func PlaceholderSupplyChain() *SupplyChain {
	return &SupplyChain{
		Steps: []SupplyChainStep{
			{Stage: "Raw material", Location: PlaceholderPrefix + ": fibre-producing region"},
			{Stage: "Spinning & weaving", Location: PlaceholderPrefix + ": textile mill"},
			{Stage: "Cut & sew", Location: PlaceholderPrefix + ": garment factory"},
			{Stage: "Distribution", Location: PlaceholderPrefix + ": regional warehouse"},
		},
		TotalMiles: 12000,
		Provenance: ProvenanceEstimated,
	}
}

// PlaceholderActivism returns generic activism messaging
func PlaceholderActivism() *Activism {
	return &Activism{
		Headline: PlaceholderPrefix + ": every garment has a story",
		Message:  "Ask brands who made your clothes and under what conditions.",
		ActionItems: []string{
			"Wear what you own for longer",
			"Buy second-hand before buying new",
			"Ask the brand for its supplier list",
		},
	}
}

// PlaceholderEndOfLife returns a generic end-of-life prediction
func PlaceholderEndOfLife() *EndOfLife {
	return &EndOfLife{
		BestOption: "Donate or resell if wearable; otherwise use a textile recycling bank.",
		Notes:      PlaceholderPrefix + " from the detected material.",
	}
}

// PlaceholderRepairInfo returns generic repair guidance
func PlaceholderRepairInfo() *RepairInfo {
	return &RepairInfo{
		Difficulty:   "moderate",
		CommonIssues: []string{"Loose seams", "Small holes", "Missing buttons"},
		Tips: []string{
			"Keep a basic sewing kit at home",
			"Use iron-on patches for quick fixes",
			"Ask a local tailor for structural repairs",
		},
	}
}

// ApplyDefaults fills every field absent from a cloud response with its
// documented default so downstream rendering always sees total objects.
func ApplyDefaults(r *AnalysisResult) {
	if r.EstimatedLifespan <= 0 {
		r.EstimatedLifespan = DefaultLifespan
	}
	if r.Certifications == nil {
		r.Certifications = []string{}
	}
	if r.Alternatives == nil {
		r.Alternatives = []Alternative{}
	}
	if r.CareGuide == (CareGuide{}) {
		r.CareGuide = PlaceholderCareGuide()
	}
	if r.SupplyChain == nil {
		r.SupplyChain = PlaceholderSupplyChain()
	}
	if r.SupplyChain.Steps == nil {
		r.SupplyChain.Steps = []SupplyChainStep{}
	}
	if r.Activism == nil {
		r.Activism = PlaceholderActivism()
	}
	if r.Activism.ActionItems == nil {
		r.Activism.ActionItems = []string{}
	}
	if r.EndOfLife == nil {
		r.EndOfLife = PlaceholderEndOfLife()
	}
	if r.RepairInfo == nil {
		r.RepairInfo = PlaceholderRepairInfo()
	}
	if r.RepairInfo.CommonIssues == nil {
		r.RepairInfo.CommonIssues = []string{}
	}
	if r.RepairInfo.Tips == nil {
		r.RepairInfo.Tips = []string{}
	}
	if r.Summary == "" {
		r.Summary = PlaceholderPrefix + " sustainability report."
	}
	if r.OverallScore < 0 {
		r.OverallScore = 0
	}
	if r.OverallScore > 100 {
		r.OverallScore = 100
	}
}
