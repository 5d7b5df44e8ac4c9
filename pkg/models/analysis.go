package models

import "fmt"

// AnalysisSource identifies which branch of the fusion engine produced a result
type AnalysisSource string

const (
	SourceCloud AnalysisSource = "cloud"
	SourceLocal AnalysisSource = "local"
)

// Confidence tells the consumer how much to trust the report
type Confidence string

const (
	ConfidenceStandard Confidence = "standard"
	ConfidenceReduced  Confidence = "reduced"
)

// DefaultLifespan is the estimated number of wears used when nothing better is known
const DefaultLifespan = 30

// AnalysisResult is the canonical sustainability report handed to the Result Consumer.
// Fields without omitempty are required in the cloud response schema.
type AnalysisResult struct {
	OverallScore      int             `json:"overallScore" jsonschema:"minimum=0,maximum=100,description=Overall sustainability score"`
	MainMaterial      string          `json:"mainMaterial" jsonschema:"description=Dominant fabric using a name from the materials table when possible"`
	Breakdown         ScoreBreakdown  `json:"breakdown"`
	CarbonFootprint   CarbonFootprint `json:"carbonFootprint"`
	WaterUsage        WaterUsage      `json:"waterUsage"`
	Certifications    []string        `json:"certifications"`
	Alternatives      []Alternative   `json:"alternatives"`
	Summary           string          `json:"summary" jsonschema:"description=One or two sentences; mention the brand by name when it is known"`
	EstimatedLifespan int             `json:"estimatedLifespan" jsonschema:"minimum=0,description=Expected number of wears"`
	CareGuide         CareGuide       `json:"careGuide"`

	SupplyChain *SupplyChain `json:"supplyChain"`
	Activism    *Activism    `json:"activism"`
	EndOfLife   *EndOfLife   `json:"endOfLife"`
	RepairInfo  *RepairInfo  `json:"repairInfo"`

	// Computed locally after fusion, never requested from the cloud service.
	MicroplasticImpact *MicroplasticImpact `json:"microplasticImpact,omitempty" jsonschema:"-"`

	Source     AnalysisSource `json:"source,omitempty" jsonschema:"-"`
	Confidence Confidence     `json:"confidence,omitempty" jsonschema:"-"`
	Degraded   bool           `json:"degraded,omitempty" jsonschema:"-"`
}

// ScoreBreakdown holds the five named sub-scores, each 0-100
type ScoreBreakdown struct {
	Material     int `json:"material" jsonschema:"minimum=0,maximum=100"`
	Ethics       int `json:"ethics" jsonschema:"minimum=0,maximum=100"`
	Production   int `json:"production" jsonschema:"minimum=0,maximum=100"`
	Longevity    int `json:"longevity" jsonschema:"minimum=0,maximum=100"`
	Transparency int `json:"transparency" jsonschema:"minimum=0,maximum=100"`
}

// CarbonFootprint is a display value with an optional percentage split
type CarbonFootprint struct {
	Value      string           `json:"value" jsonschema:"description=Display value such as 8.5 kg CO2e"`
	Comparison string           `json:"comparison"`
	Breakdown  *CarbonBreakdown `json:"breakdown,omitempty"`
}

// CarbonBreakdown splits the footprint into lifecycle percentages
type CarbonBreakdown struct {
	Materials     int `json:"materials"`
	Manufacturing int `json:"manufacturing"`
	Transport     int `json:"transport"`
	Use           int `json:"use"`
	EndOfLife     int `json:"endOfLife"`
}

// WaterUsage describes water saved compared with a conventional equivalent
type WaterUsage struct {
	LitersSaved int    `json:"litersSaved"`
	Comparison  string `json:"comparison"`
}

// Alternative is a suggested product; Category is used for matching in the UI
type Alternative struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Link        string `json:"link,omitempty"`
}

// CareGuide has four fixed fields
type CareGuide struct {
	Wash   string `json:"wash"`
	Dry    string `json:"dry"`
	Repair string `json:"repair"`
	Note   string `json:"note"`
}

// Supply chain provenance values
const (
	ProvenanceEstimated = "estimated"
	ProvenanceVerified  = "verified"
)

// SupplyChain describes where and how the garment was likely produced
type SupplyChain struct {
	Steps      []SupplyChainStep `json:"steps"`
	TotalMiles int               `json:"totalMiles" jsonschema:"description=Estimated total transport distance in miles"`
	Provenance string            `json:"provenance,omitempty" jsonschema:"-"`
	Brand      string            `json:"brand,omitempty" jsonschema:"-"`
}

// SupplyChainStep is a single stage of production
type SupplyChainStep struct {
	Stage    string `json:"stage"`
	Location string `json:"location"`
	Country  string `json:"country,omitempty"`
	Verified bool   `json:"verified,omitempty" jsonschema:"-"`
}

// Activism is the call-to-action messaging attached to a report
type Activism struct {
	Headline    string   `json:"headline"`
	Message     string   `json:"message"`
	ActionItems []string `json:"actionItems"`
}

// EndOfLife is the predicted disposal outcome
type EndOfLife struct {
	Recyclable         bool   `json:"recyclable"`
	Biodegradable      bool   `json:"biodegradable"`
	DecompositionYears int    `json:"decompositionYears"`
	BestOption         string `json:"bestOption"`
	Notes              string `json:"notes"`
}

// RepairInfo is the repair guidance section
type RepairInfo struct {
	Difficulty   string   `json:"difficulty" jsonschema:"enum=easy,enum=moderate,enum=hard"`
	CommonIssues []string `json:"commonIssues"`
	Tips         []string `json:"tips"`
}

// Microplastic risk levels
const (
	RiskNone   = "none"
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
	RiskSevere = "severe"
)

// MicroplasticImpact is derived deterministically from the main material
type MicroplasticImpact struct {
	FibersPerWash   int    `json:"fibersPerWash"`
	AnnualFibers    int    `json:"annualFibers"`
	RiskLevel       string `json:"riskLevel"`
	OceanEquivalent string `json:"oceanEquivalent"`
	Mitigation      string `json:"mitigation"`
	MitigationLink  string `json:"mitigationLink,omitempty"`
}

// Complete reports the first section the Result Consumer would find missing
func (r *AnalysisResult) Complete() error {
	switch {
	case r.MainMaterial == "":
		return fmt.Errorf("mainMaterial is empty")
	case r.Summary == "":
		return fmt.Errorf("summary is empty")
	case r.Certifications == nil:
		return fmt.Errorf("certifications is nil")
	case r.Alternatives == nil:
		return fmt.Errorf("alternatives is nil")
	case r.EstimatedLifespan <= 0:
		return fmt.Errorf("estimatedLifespan is not set")
	case r.SupplyChain == nil:
		return fmt.Errorf("supplyChain is nil")
	case r.SupplyChain.Provenance == "":
		return fmt.Errorf("supplyChain provenance is not set")
	case r.Activism == nil:
		return fmt.Errorf("activism is nil")
	case r.EndOfLife == nil:
		return fmt.Errorf("endOfLife is nil")
	case r.RepairInfo == nil:
		return fmt.Errorf("repairInfo is nil")
	case r.MicroplasticImpact == nil:
		return fmt.Errorf("microplasticImpact is nil")
	case r.OverallScore < 0 || r.OverallScore > 100:
		return fmt.Errorf("overallScore %d out of range", r.OverallScore)
	}
	return nil
}
