package knowledge

import (
	"sort"
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
)

const minCorrectableLength = 5

// care-label words that OCR commonly garbles
var labelWords = []string{
	"organic", "cotton", "recycled", "polyester", "nylon", "acrylic", "elastane",
	"spandex", "viscose", "rayon", "lyocell", "tencel", "bamboo", "linen",
	"wool", "silk", "leather", "hemp", "econyl", "regenerated", "certified",
	"made", "machine", "wash", "tumble", "bleach",
}

var known, vocabulary = buildVocabulary()

// buildVocabulary returns the word set and its sorted form; corrections
// walk the sorted form so ties resolve the same way on every run.
func buildVocabulary() (map[string]struct{}, []string) {
	set := make(map[string]struct{}, len(labelWords)+len(Brands))
	for _, w := range labelWords {
		set[w] = struct{}{}
	}
	for _, m := range Materials {
		set[m.Keyword()] = struct{}{}
	}
	for _, b := range Brands {
		for _, w := range strings.Fields(strings.ToLower(b.Key)) {
			set[w] = struct{}{}
		}
	}
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return set, words
}

// NormalizeOCR collapses whitespace and corrects single-edit OCR mistakes
// in alphabetic tokens of five or more letters against the label vocabulary,
// so that "POLYESTFR" still matches the polyester row.
func NormalizeOCR(text string) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		tokens[i] = correctToken(tok)
	}
	return strings.Join(tokens, " ")
}

func correctToken(tok string) string {
	word := strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(word) < minCorrectableLength {
		return tok
	}
	lower := strings.ToLower(word)
	if _, ok := known[lower]; ok {
		return tok
	}
	for _, candidate := range vocabulary {
		if len(candidate) < minCorrectableLength {
			continue
		}
		if levenshtein.Distance(lower, candidate) == 1 {
			return strings.Replace(tok, word, candidate, 1)
		}
	}
	return tok
}
