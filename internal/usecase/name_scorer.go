package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FuzzyScorer scores how well query matches target.
//
// Scores live on (-inf, 0]: 0 is a perfect match and -1000 means nothing in
// common. The matcher normalizes them with max(0, (raw+1000)/1000), so a
// replacement scorer must be calibrated to the same scale or the confidence
// threshold has to be re-derived.
type FuzzyScorer interface {
	Score(query, target string) float64
}

// Scoring constants
const (
	worstRawScore          = -1000.0
	productCoverageShare   = 0.60 // query tokens found in the target
	targetCoverageShare    = 0.20 // target tokens found in the query
	jaccardShare           = 0.20
	substringMatchBonus    = 0.10
	minCharacterSimilarity = 0.60 // below this, whole-name edit distance is noise
	fuzzyTokenDistance     = 1
	maxImperfectScore      = 0.999
)

// nameStopWords are articles and connectors that carry no identity
var nameStopWords = map[string]bool{
	"de": true, "du": true, "des": true, "la": true, "le": true, "les": true,
	"d": true, "l": true, "et": true, "en": true, "a": true, "au": true,
	"the": true, "of": true, "and": true,
}

// NameScorer scores product names by combining character edit distance with
// token coverage, after both names are cleaned by a QueryPreprocessor.
type NameScorer struct {
	preprocessor *QueryPreprocessor
}

// NewNameScorer creates the default fuzzy scorer
func NewNameScorer() *NameScorer {
	return &NameScorer{preprocessor: NewQueryPreprocessor()}
}

// Score implements FuzzyScorer
func (s *NameScorer) Score(query, target string) float64 {
	q := s.preprocessor.Preprocess(query)
	t := s.preprocessor.Preprocess(target)
	if q == "" || t == "" {
		return worstRawScore
	}
	if q == t {
		return 0
	}

	// Whole-name edit distance only counts at typo level; names sharing
	// neither a token nor a spelling score worst
	similarity := tokenSimilarity(tokenize(q), tokenize(t))
	if charSim := characterSimilarity(q, t); charSim >= minCharacterSimilarity && charSim > similarity {
		similarity = charSim
	}
	if similarity == 0 {
		return worstRawScore
	}

	// Substring bonus: "margaux" inside "chateau margaux"
	if utf8.RuneCountInString(q) > 3 && utf8.RuneCountInString(t) > 3 &&
		(strings.Contains(t, q) || strings.Contains(q, t)) {
		similarity += substringMatchBonus
	}

	// Only identical names may reach a perfect score
	if similarity > maxImperfectScore {
		similarity = maxImperfectScore
	}
	if similarity < 0 {
		similarity = 0
	}

	return (similarity - 1) * 1000
}

// characterSimilarity is 1 - levenshtein/maxLen, in [0, 1]
func characterSimilarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// tokenSimilarity computes a weighted combination of:
//   - query token coverage: what % of the query tokens appear in the target (most important)
//   - target token coverage: what % of the target tokens appear in the query
//   - Jaccard index of both token sets
func tokenSimilarity(queryTokens, targetTokens []string) float64 {
	if len(queryTokens) == 0 || len(targetTokens) == 0 {
		return 0
	}

	queryMatched := countMatched(queryTokens, targetTokens)
	targetMatched := countMatched(targetTokens, queryTokens)

	queryCoverage := float64(queryMatched) / float64(len(queryTokens))
	targetCoverage := float64(targetMatched) / float64(len(targetTokens))

	union := findUnion(queryTokens, targetTokens)
	jaccard := float64(queryMatched) / float64(union)
	if jaccard > 1 {
		jaccard = 1
	}

	return queryCoverage*productCoverageShare + targetCoverage*targetCoverageShare + jaccard*jaccardShare
}

// tokenize splits an already preprocessed name into tokens, dropping stop words.
// Numeric tokens are kept since vintages distinguish products.
func tokenize(s string) []string {
	words := strings.Fields(s)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if nameStopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// countMatched returns how many distinct tokens of from have an exact or fuzzy
// counterpart in to
func countMatched(from, to []string) int {
	seen := make(map[string]bool)
	matched := 0
	for _, f := range from {
		if seen[f] {
			continue
		}
		seen[f] = true
		for _, t := range to {
			if fuzzyTokenMatch(f, t, fuzzyTokenDistance) {
				matched++
				break
			}
		}
	}
	return matched
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens > 4 chars to avoid false positives
	// (and never to numbers: 2018 is not 2019)
	if utf8.RuneCountInString(token1) < 5 || utf8.RuneCountInString(token2) < 5 {
		return false
	}
	if isNumeric(token1) || isNumeric(token2) {
		return false
	}

	lenDiff := utf8.RuneCountInString(token1) - utf8.RuneCountInString(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return fuzzy.LevenshteinDistance(token1, token2) <= threshold
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
