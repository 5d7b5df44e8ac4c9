package knowledge

import "strings"

// Brand reputation scores, 0-100
type Brand struct {
	Key          string
	Ethics       int
	Transparency int
}

// DefaultBrand is used when no known brand is mentioned
var DefaultBrand = Brand{Ethics: 50, Transparency: 50}

// Brands is ordered; the first key found in the text wins.
var Brands = []Brand{
	{Key: "Patagonia", Ethics: 90, Transparency: 85},
	{Key: "Eileen Fisher", Ethics: 85, Transparency: 80},
	{Key: "Everlane", Ethics: 75, Transparency: 80},
	{Key: "Reformation", Ethics: 75, Transparency: 75},
	{Key: "Levi's", Ethics: 65, Transparency: 70},
	{Key: "Adidas", Ethics: 60, Transparency: 70},
	{Key: "Nike", Ethics: 55, Transparency: 65},
	{Key: "H&M", Ethics: 45, Transparency: 60},
	{Key: "Uniqlo", Ethics: 40, Transparency: 45},
	{Key: "Zara", Ethics: 35, Transparency: 40},
	{Key: "Primark", Ethics: 30, Transparency: 35},
	{Key: "Shein", Ethics: 10, Transparency: 5},
}

// ResolveBrand performs a case-insensitive substring match of every brand key
// against text. No match is a normal outcome and returns DefaultBrand, false.
func ResolveBrand(text string) (Brand, bool) {
	corpus := strings.ToLower(text)
	for _, b := range Brands {
		if strings.Contains(corpus, strings.ToLower(b.Key)) {
			return b, true
		}
	}
	return DefaultBrand, false
}
