package usecase

import (
	"strings"

	"github.com/barstock/backend/internal/domain"
)

// candidateField identifies the ImportCandidate field a source column feeds
type candidateField int

const (
	fieldOfficialName candidateField = iota
	fieldOriginName
	fieldCategory
	fieldQuantity
	fieldPurchasePrice
	fieldSalePrice
)

// fieldKeywords is one entry of the column detection table
type fieldKeywords struct {
	field    candidateField
	keywords []string
}

// columnKeywordTable is evaluated top to bottom: a header is assigned to the
// first field whose keywords it contains. Official name comes before origin
// name so that "Nom officiel" is not swallowed by the generic "nom".
// Headers are lower-cased and accent-folded before the test.
var columnKeywordTable = []fieldKeywords{
	{fieldOfficialName, []string{"officiel", "official", "canonique", "canonical", "corrige", "corrected"}},
	{fieldOriginName, []string{"origine", "origin", "nom", "name", "produit", "product", "article", "libelle", "designation"}},
	{fieldCategory, []string{"categorie", "category", "famille", "type", "rayon"}},
	{fieldQuantity, []string{"quantite", "quantity", "qte", "qty", "stock", "inventaire"}},
	{fieldPurchasePrice, []string{"prix d'achat", "prix achat", "achat", "purchase", "cout", "cost"}},
	{fieldSalePrice, []string{"prix de vente", "prix vente", "vente", "sale", "prix", "price", "tarif"}},
}

// RowExtractor locates candidate fields in rows with arbitrary headers
type RowExtractor struct {
	table []fieldKeywords
}

// NewRowExtractor creates an extractor using the built-in keyword table
func NewRowExtractor() *RowExtractor {
	return &RowExtractor{table: columnKeywordTable}
}

// MapColumns returns, for each detected field, the index of the column feeding it.
// The first matching column wins per field; a column already claimed by a
// field earlier in the table is never reassigned.
//
// When no header names a product at all, the first column no keyword claimed
// becomes the origin name and the next one the official name.
func (e *RowExtractor) MapColumns(columns []string) map[candidateField]int {
	mapping := make(map[candidateField]int)
	matched := make([]bool, len(columns))
	for idx, column := range columns {
		header := foldAccents(strings.TrimSpace(column))
		if header == "" {
			continue
		}

		field, ok := e.matchField(header)
		if !ok {
			continue
		}
		matched[idx] = true
		if _, taken := mapping[field]; taken {
			continue
		}
		mapping[field] = idx
	}

	_, hasOrigin := mapping[fieldOriginName]
	_, hasOfficial := mapping[fieldOfficialName]
	if !hasOrigin && !hasOfficial {
		assignPositional(mapping, matched)
	}
	return mapping
}

// assignPositional fills the name fields from unmatched columns in order
func assignPositional(mapping map[candidateField]int, matched []bool) {
	for idx, isMatched := range matched {
		if isMatched {
			continue
		}
		if _, ok := mapping[fieldOriginName]; !ok {
			mapping[fieldOriginName] = idx
			continue
		}
		mapping[fieldOfficialName] = idx
		return
	}
}

// matchField returns the first field in table order whose keywords appear in header
func (e *RowExtractor) matchField(header string) (candidateField, bool) {
	for _, entry := range e.table {
		for _, keyword := range entry.keywords {
			if strings.Contains(header, keyword) {
				return entry.field, true
			}
		}
	}
	return 0, false
}

// ExtractRow builds an ImportCandidate from a raw row. It returns false when
// the row has no usable name or a negative quantity.
func (e *RowExtractor) ExtractRow(row domain.Row) (*domain.ImportCandidate, bool) {
	columns := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		columns[i] = cell.Column
	}
	mapping := e.MapColumns(columns)

	value := func(field candidateField) interface{} {
		idx, ok := mapping[field]
		if !ok {
			return nil
		}
		return row.Cells[idx].Value
	}

	candidate := &domain.ImportCandidate{
		RowNumber:     row.Number,
		OriginName:    CleanString(value(fieldOriginName)),
		OfficialName:  CleanString(value(fieldOfficialName)),
		Category:      NormalizeCategory(CleanString(value(fieldCategory))),
		Quantity:      ToNumber(value(fieldQuantity)),
		PurchasePrice: ToNumber(value(fieldPurchasePrice)),
		SalePrice:     ToNumber(value(fieldSalePrice)),
	}

	if candidate.OfficialName == "" {
		candidate.OfficialName = candidate.OriginName
	}

	if candidate.OfficialName == "" || candidate.Quantity < 0 {
		return nil, false
	}

	// Prices are optional; a negative price is a typo, not a reason to drop the row
	if candidate.PurchasePrice < 0 {
		candidate.PurchasePrice = 0
	}
	if candidate.SalePrice < 0 {
		candidate.SalePrice = 0
	}

	return candidate, true
}

// RejectionReason explains why ExtractRow refused a row, for the import log
func (e *RowExtractor) RejectionReason(row domain.Row) string {
	columns := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		columns[i] = cell.Column
	}
	mapping := e.MapColumns(columns)

	_, hasOrigin := mapping[fieldOriginName]
	_, hasOfficial := mapping[fieldOfficialName]
	if !hasOrigin && !hasOfficial {
		return "no name column found"
	}
	if idx, ok := mapping[fieldQuantity]; ok && ToNumber(row.Cells[idx].Value) < 0 {
		return "negative quantity"
	}
	return "missing product name"
}
