package knowledge

import "strings"

// Material is one row of the fabric reference table
type Material struct {
	Name               string
	Score              int // 0-10 sustainability rating
	FibersPerWash      int
	AnnualFibers       int // FibersPerWash x 52 weekly washes
	CarbonKg           float64
	WaterLiters        int
	Production         int // 0-100
	Longevity          int // 0-100
	Biodegradable      bool
	Recyclable         bool
	DecompositionYears int
}

// Materials is ordered: lookups take the first row whose name's first word
// appears in the text, and row 0 is the fallback. Variants that share a word
// with a later row ("Recycled Polyester" / "Polyester") must come first.
var Materials = []Material{
	{Name: "Organic Cotton", Score: 8, CarbonKg: 3.8, WaterLiters: 243, Production: 75, Longevity: 65, Biodegradable: true, Recyclable: true, DecompositionYears: 1},
	{Name: "Cotton (Conventional)", Score: 4, CarbonKg: 5.9, WaterLiters: 2700, Production: 40, Longevity: 60, Biodegradable: true, Recyclable: true, DecompositionYears: 1},
	{Name: "Recycled Polyester", Score: 6, FibersPerWash: 640000, AnnualFibers: 33280000, CarbonKg: 3.1, WaterLiters: 60, Production: 65, Longevity: 75, Recyclable: true, DecompositionYears: 200},
	{Name: "Polyester (Virgin)", Score: 2, FibersPerWash: 700000, AnnualFibers: 36400000, CarbonKg: 9.5, WaterLiters: 70, Production: 30, Longevity: 70, DecompositionYears: 200},
	{Name: "Econyl Regenerated Nylon", Score: 7, FibersPerWash: 450000, AnnualFibers: 23400000, CarbonKg: 4.2, WaterLiters: 90, Production: 70, Longevity: 80, Recyclable: true, DecompositionYears: 40},
	{Name: "Nylon", Score: 3, FibersPerWash: 500000, AnnualFibers: 26000000, CarbonKg: 7.3, WaterLiters: 100, Production: 35, Longevity: 75, DecompositionYears: 40},
	{Name: "Acrylic", Score: 1, FibersPerWash: 900000, AnnualFibers: 46800000, CarbonKg: 11.5, WaterLiters: 80, Production: 20, Longevity: 45, DecompositionYears: 200},
	{Name: "Elastane (Spandex)", Score: 2, FibersPerWash: 150000, AnnualFibers: 7800000, CarbonKg: 8.1, WaterLiters: 60, Production: 30, Longevity: 40, DecompositionYears: 200},
	{Name: "Tencel Lyocell", Score: 9, CarbonKg: 2.1, WaterLiters: 150, Production: 85, Longevity: 70, Biodegradable: true, Recyclable: true, DecompositionYears: 1},
	{Name: "Bamboo Viscose", Score: 5, CarbonKg: 4.0, WaterLiters: 600, Production: 45, Longevity: 55, Biodegradable: true, DecompositionYears: 1},
	{Name: "Viscose (Rayon)", Score: 4, CarbonKg: 4.5, WaterLiters: 650, Production: 40, Longevity: 50, Biodegradable: true, DecompositionYears: 1},
	{Name: "Hemp", Score: 9, CarbonKg: 1.9, WaterLiters: 300, Production: 85, Longevity: 90, Biodegradable: true, Recyclable: true, DecompositionYears: 1},
	{Name: "Linen", Score: 8, CarbonKg: 2.0, WaterLiters: 400, Production: 80, Longevity: 85, Biodegradable: true, Recyclable: true, DecompositionYears: 1},
	{Name: "Wool", Score: 6, CarbonKg: 13.9, WaterLiters: 170, Production: 55, Longevity: 90, Biodegradable: true, Recyclable: true, DecompositionYears: 3},
	{Name: "Silk", Score: 5, CarbonKg: 8.0, WaterLiters: 1000, Production: 50, Longevity: 70, Biodegradable: true, DecompositionYears: 4},
	{Name: "Leather", Score: 3, CarbonKg: 17.0, WaterLiters: 17000, Production: 25, Longevity: 95, Biodegradable: true, DecompositionYears: 50},
}

// Keyword is the lowercase first word of the material name used for matching
func (m Material) Keyword() string {
	fields := strings.Fields(m.Name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Synthetic reports whether the material sheds plastic microfibres
func (m Material) Synthetic() bool {
	return m.FibersPerWash > 0
}

// ResolveMaterial returns the first table row whose keyword appears in text
// (case-insensitive). When nothing matches it returns Materials[0] and false.
func ResolveMaterial(text string) (Material, bool) {
	corpus := strings.ToLower(text)
	for _, m := range Materials {
		if kw := m.Keyword(); kw != "" && strings.Contains(corpus, kw) {
			return m, true
		}
	}
	return Materials[0], false
}
