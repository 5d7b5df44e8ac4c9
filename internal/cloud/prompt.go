package cloud

import (
	"fmt"
	"strings"

	"github.com/anime-shed/ecoscan-go/internal/knowledge"
	"github.com/anime-shed/ecoscan-go/pkg/models"

	"github.com/lithammer/dedent"
)

const analysisTemplate = `
	You are a textile sustainability analyst. Assess the garment in the attached photo.

	Reference data (use these names and numbers whenever the garment matches a row):
	%s

	On-device classifier labels, most confident first: %s
	Text read from the garment's labels: %s

	Return one JSON object that follows the response schema exactly:
	- overallScore and every breakdown value are integers from 0 to 100.
	- mainMaterial uses a material name from the reference data when possible.
	- summary is one or two sentences and names the brand if you can identify it.
	- supplyChain lists the likely production stages with locations; totalMiles is an estimate.
	- activism, endOfLife and repairInfo are always present.
	- estimatedLifespan is the expected number of wears.
	Do not wrap the JSON in markdown.
`

const recyclingTemplate = `
	Find up to five textile or clothing recycling drop-off points near latitude %.5f, longitude %.5f.
	Prefer places that accept worn-out garments, not only wearable donations.

	Answer with only a JSON array. Each element has exactly these string fields:
	"name", "address", "info" (opening hours or what they accept).
	Return [] if nothing suitable is nearby.
`

func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func analysisPrompt(signal models.LocalSignal) string {
	labels := "none"
	if len(signal.Classification) > 0 {
		labels = strings.Join(signal.Classification, ", ")
	}
	ocr := "none"
	if strings.TrimSpace(signal.OCRText) != "" {
		ocr = fmt.Sprintf("%q", signal.OCRText)
	}
	return formatPrompt(analysisTemplate, knowledge.Serialize(), labels, ocr)
}

func recyclingPrompt(lat, lng float64) string {
	return formatPrompt(recyclingTemplate, lat, lng)
}
