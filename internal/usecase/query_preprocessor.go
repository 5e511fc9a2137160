package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for name preprocessing
var (
	// Matches volume patterns like "75cl", "70 cl", "1,5 l", "33 cl", "50ml", "1.5L"
	volumePattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*(?:cl|ml|l|litres?|liters?|oz)\b`)

	// Matches pack patterns like "x6", "6x", "pack de 12", "carton de 6", "lot de 24"
	packPattern = regexp.MustCompile(`\b(?:x\s*\d+|\d+\s*x|(?:pack|carton|lot|caisse)\s+(?:de\s+)?\d+)\b`)

	// Non letters/digits become separators
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// nameNoiseWords are packaging and container words that say nothing about the product
var nameNoiseWords = map[string]bool{
	"bouteille": true, "bouteilles": true, "btl": true, "bt": true, "bte": true,
	"canette": true, "canettes": true, "can": true, "fut": true, "futs": true,
	"bottle": true, "bottles": true,
	"verre": true, "pichet": true, "carafe": true, "unite": true, "unites": true,
	"pack": true, "carton": true, "caisse": true, "lot": true,
}

// foldAccents lower-cases s and removes diacritics so "Château" and "chateau"
// compare equal. Transformer chains are stateful, hence one per call.
func foldAccents(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// QueryPreprocessor cleans product names before fuzzy scoring
type QueryPreprocessor struct{}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor() *QueryPreprocessor {
	return &QueryPreprocessor{}
}

// Preprocess folds case and accents, drops volume/pack noise and container
// words, and normalizes whitespace. Vintages and numbers that are part of the
// name are kept.
func (p *QueryPreprocessor) Preprocess(name string) string {
	if name == "" {
		return ""
	}

	cleaned := foldAccents(name)

	// Step 1: Remove volume patterns (e.g., "75cl", "1,5 l")
	cleaned = volumePattern.ReplaceAllString(cleaned, " ")

	// Step 2: Remove pack patterns (e.g., "x6", "carton de 12")
	cleaned = packPattern.ReplaceAllString(cleaned, " ")

	// Step 3: Punctuation to spaces
	cleaned = punctuationPattern.ReplaceAllString(cleaned, " ")

	// Step 4: Remove container words
	cleaned = removeNoiseWords(cleaned)

	// Step 5: Normalize whitespace
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// A name made only of noise is still better than nothing
	if cleaned == "" {
		return strings.TrimSpace(foldAccents(name))
	}
	return cleaned
}

// removeNoiseWords removes container and packaging terms
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !nameNoiseWords[word] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}
