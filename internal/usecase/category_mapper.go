package usecase

import (
	"strings"

	"github.com/barstock/backend/internal/domain"
)

// categorySynonyms maps lower-cased labels found in exports to the category enum
var categorySynonyms = map[string]domain.Category{
	// Red wine
	"vin rouge": domain.CategoryWineRed, "rouge": domain.CategoryWineRed,
	"red": domain.CategoryWineRed, "red wine": domain.CategoryWineRed,
	"vins rouges": domain.CategoryWineRed, "wine-red": domain.CategoryWineRed,
	// White wine
	"vin blanc": domain.CategoryWineWhite, "blanc": domain.CategoryWineWhite,
	"white": domain.CategoryWineWhite, "white wine": domain.CategoryWineWhite,
	"vins blancs": domain.CategoryWineWhite, "wine-white": domain.CategoryWineWhite,
	// Rosé
	"vin rosé": domain.CategoryWineRose, "rosé": domain.CategoryWineRose,
	"vin rose": domain.CategoryWineRose, "rose": domain.CategoryWineRose,
	"rosé wine": domain.CategoryWineRose, "vins rosés": domain.CategoryWineRose,
	"wine-rose": domain.CategoryWineRose,
	// Other wines
	"vin": domain.CategoryWineGeneric, "vins": domain.CategoryWineGeneric,
	"wine": domain.CategoryWineGeneric, "champagne": domain.CategoryWineGeneric,
	"crémant": domain.CategoryWineGeneric, "mousseux": domain.CategoryWineGeneric,
	"pétillant": domain.CategoryWineGeneric, "wine-generic": domain.CategoryWineGeneric,
	// Spirits
	"spiritueux": domain.CategorySpirits, "spirits": domain.CategorySpirits,
	"alcool": domain.CategorySpirits, "alcool fort": domain.CategorySpirits,
	"whisky": domain.CategorySpirits, "whiskey": domain.CategorySpirits,
	"rhum": domain.CategorySpirits, "rum": domain.CategorySpirits,
	"vodka": domain.CategorySpirits, "gin": domain.CategorySpirits,
	"cognac": domain.CategorySpirits, "armagnac": domain.CategorySpirits,
	"liqueur": domain.CategorySpirits, "digestif": domain.CategorySpirits,
	"apéritif": domain.CategorySpirits, "tequila": domain.CategorySpirits,
	// Beer
	"bière": domain.CategoryBeer, "bières": domain.CategoryBeer,
	"biere": domain.CategoryBeer, "beer": domain.CategoryBeer,
	"pression": domain.CategoryBeer, "fût": domain.CategoryBeer,
	"cidre": domain.CategoryBeer,
	// Soft drinks
	"soft": domain.CategorySoft, "softs": domain.CategorySoft,
	"soda": domain.CategorySoft, "sodas": domain.CategorySoft,
	"boisson": domain.CategorySoft, "boissons": domain.CategorySoft,
	"boisson gazeuse": domain.CategorySoft, "sans alcool": domain.CategorySoft,
	// Juice
	"jus": domain.CategoryJuice, "jus de fruit": domain.CategoryJuice,
	"jus de fruits": domain.CategoryJuice, "juice": domain.CategoryJuice,
	"nectar": domain.CategoryJuice,
	// Water
	"eau": domain.CategoryWater, "eaux": domain.CategoryWater,
	"water": domain.CategoryWater, "eau minérale": domain.CategoryWater,
	"eau gazeuse": domain.CategoryWater, "eau plate": domain.CategoryWater,
	// Cocktails
	"cocktail": domain.CategoryCocktail, "cocktails": domain.CategoryCocktail,
	"mocktail": domain.CategoryCocktail,
	// Explicit other
	"autre": domain.CategoryOther, "autres": domain.CategoryOther,
	"other": domain.CategoryOther, "divers": domain.CategoryOther,
}

// foldedCategorySynonyms is categorySynonyms keyed by accent-folded labels
var foldedCategorySynonyms = buildFoldedSynonyms()

func buildFoldedSynonyms() map[string]domain.Category {
	folded := make(map[string]domain.Category, len(categorySynonyms))
	for label, category := range categorySynonyms {
		key := foldAccents(label)
		if _, exists := folded[key]; !exists {
			folded[key] = category
		}
	}
	return folded
}

// NormalizeCategory maps a free-text category label to the category enum.
// Unknown labels map to domain.CategoryOther.
func NormalizeCategory(rawLabel string) domain.Category {
	label := strings.ToLower(strings.TrimSpace(rawLabel))
	if label == "" {
		return domain.CategoryOther
	}
	if category, ok := categorySynonyms[label]; ok {
		return category
	}
	if category, ok := foldedCategorySynonyms[foldAccents(label)]; ok {
		return category
	}
	return domain.CategoryOther
}
