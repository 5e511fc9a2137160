package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/barstock/backend/internal/domain"
	"go.uber.org/zap"
)

// DefaultMinConfidence is the normalized fuzzy score a match must reach
const DefaultMinConfidence = 0.3

// rawScoreOffset turns raw scores into the 0-1 confidence scale
const rawScoreOffset = 1000.0

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidence float64
	// DisableFuzzyMatching restricts matching to exact name equality
	DisableFuzzyMatching bool
	EnableDebugLogging   bool
	Scorer               FuzzyScorer
	Logger               *zap.Logger
}

// MatchingService pairs import candidates with catalog products
type MatchingService struct {
	minConfidence       float64
	enableFuzzyMatching bool
	enableDebugLogging  bool
	scorer              FuzzyScorer
	logger              *zap.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinConfidence
	if threshold <= 0 {
		threshold = DefaultMinConfidence
	}

	scorer := config.Scorer
	if scorer == nil {
		scorer = NewNameScorer()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchingService{
		minConfidence:       threshold,
		enableFuzzyMatching: !config.DisableFuzzyMatching,
		enableDebugLogging:  config.EnableDebugLogging,
		scorer:              scorer,
		logger:              logger,
	}
}

// NormalizeScore maps a raw fuzzy score onto [0, 1]
func NormalizeScore(raw float64) float64 {
	normalized := (raw + rawScoreOffset) / rawScoreOffset
	if normalized < 0 {
		return 0
	}
	return normalized
}

// scoredProduct is one entry of the pooled fuzzy results
type scoredProduct struct {
	product   *domain.CatalogProduct
	raw       float64
	matchedOn string
}

// FindBestMatch finds the catalog product a candidate refers to.
// Exact official-name equality wins, then exact origin-name equality, then the
// best fuzzy score. The catalog slice is only read.
// Returns ErrNoMatch or ErrLowConfidence when the candidate is unmatched.
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	candidate *domain.ImportCandidate,
	catalog []domain.CatalogProduct,
) (*domain.MatchResult, error) {
	if candidate == nil || strings.TrimSpace(candidate.OfficialName) == "" {
		return nil, domain.ErrInvalidRequest
	}

	if len(catalog) == 0 {
		return nil, domain.ErrNoMatch
	}

	if s.enableDebugLogging {
		s.logger.Debug("matching candidate",
			zap.String("official_name", candidate.OfficialName),
			zap.String("origin_name", candidate.OriginName),
			zap.String("category", string(candidate.Category)))
	}

	// 1. Exact match on the official name
	if product := findExact(catalog, candidate.OfficialName); product != nil {
		return &domain.MatchResult{
			Product:   *product,
			Score:     1.0,
			MatchType: domain.MatchTypeExactOfficial,
			MatchedOn: candidate.OfficialName,
		}, nil
	}

	// 2. Exact match on the origin name
	if product := findExact(catalog, candidate.OriginName); product != nil {
		return &domain.MatchResult{
			Product:   *product,
			Score:     1.0,
			MatchType: domain.MatchTypeExactOrigin,
			MatchedOn: candidate.OriginName,
		}, nil
	}

	if !s.enableFuzzyMatching {
		return nil, domain.ErrNoMatch
	}

	// 3. Fuzzy match: official pass then origin pass, pooled in that order
	pool := make([]scoredProduct, 0, 2*len(catalog))
	for _, name := range []string{candidate.OfficialName, candidate.OriginName} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		for i := range catalog {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			pool = append(pool, scoredProduct{
				product:   &catalog[i],
				raw:       s.scorer.Score(name, catalog[i].Name),
				matchedOn: name,
			})
		}
	}

	if len(pool) == 0 {
		return nil, domain.ErrNoMatch
	}

	// Stable sort keeps catalog order, then official before origin, among ties
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].raw > pool[j].raw
	})

	ranked := pool
	if candidate.Category != "" && candidate.Category != domain.CategoryOther {
		sameCategory := make([]scoredProduct, 0, len(pool))
		for _, entry := range pool {
			if entry.product.Category == candidate.Category {
				sameCategory = append(sameCategory, entry)
			}
		}
		if len(sameCategory) > 0 {
			ranked = sameCategory
		}
	}

	best := ranked[0]
	score := NormalizeScore(best.raw)

	if s.enableDebugLogging {
		s.logger.Debug("best fuzzy candidate",
			zap.String("product", best.product.Name),
			zap.String("matched_on", best.matchedOn),
			zap.Float64("raw_score", best.raw),
			zap.Float64("score", score))
	}

	if score < s.minConfidence {
		return nil, domain.ErrLowConfidence
	}

	return &domain.MatchResult{
		Product:   *best.product,
		Score:     score,
		RawScore:  best.raw,
		MatchType: domain.MatchTypeFuzzy,
		MatchedOn: best.matchedOn,
	}, nil
}

// findExact returns the first product whose name equals name, ignoring case
// and surrounding whitespace
func findExact(catalog []domain.CatalogProduct, name string) *domain.CatalogProduct {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	for i := range catalog {
		if strings.ToLower(strings.TrimSpace(catalog[i].Name)) == key {
			return &catalog[i]
		}
	}
	return nil
}
