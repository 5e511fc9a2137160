package domain

// MatchType tags how a candidate was paired with a catalog product
type MatchType string

const (
	MatchTypeExactOfficial MatchType = "exact-official"
	MatchTypeExactOrigin   MatchType = "exact-origin"
	MatchTypeFuzzy         MatchType = "fuzzy"
)

// MatchResult represents the result of matching a candidate against the catalog
type MatchResult struct {
	Product   CatalogProduct `json:"product"`
	Score     float64        `json:"score"`    // Normalized confidence 0-1, exact matches are 1.0
	RawScore  float64        `json:"rawScore"` // Scorer output before normalization
	MatchType MatchType      `json:"matchType"`
	MatchedOn string         `json:"matchedOn"` // The candidate name that produced the match
}
