package knowledge

import (
	"fmt"
	"strings"
)

// Serialize renders both tables as a plain-text context block for prompts
func Serialize() string {
	var sb strings.Builder

	sb.WriteString("MATERIALS (name | score/10 | kg CO2e per garment | litres water | microfibres per wash):\n")
	for _, m := range Materials {
		fmt.Fprintf(&sb, "- %s | %d | %.1f | %d | %d\n", m.Name, m.Score, m.CarbonKg, m.WaterLiters, m.FibersPerWash)
	}

	sb.WriteString("\nBRANDS (name | ethics/100 | transparency/100):\n")
	for _, b := range Brands {
		fmt.Fprintf(&sb, "- %s | %d | %d\n", b.Key, b.Ethics, b.Transparency)
	}
	return sb.String()
}
