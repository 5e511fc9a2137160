package domain

// Category is the fixed set of product families tracked by the inventory
type Category string

const (
	CategoryWineRed     Category = "wine-red"
	CategoryWineWhite   Category = "wine-white"
	CategoryWineRose    Category = "wine-rose"
	CategoryWineGeneric Category = "wine-generic"
	CategorySpirits     Category = "spirits"
	CategoryBeer        Category = "beer"
	CategorySoft        Category = "soft"
	CategoryJuice       Category = "juice"
	CategoryWater       Category = "water"
	CategoryCocktail    Category = "cocktail"
	CategoryOther       Category = "other"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryWineRed,
	CategoryWineWhite,
	CategoryWineRose,
	CategoryWineGeneric,
	CategorySpirits,
	CategoryBeer,
	CategorySoft,
	CategoryJuice,
	CategoryWater,
	CategoryCocktail,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}
