package enums

import "fmt"

// ProductCategory classifies the studio's offerings. Each category maps to a
// fixed points-per-unit value in the loyalty rules.
type ProductCategory string

const (
	ProductCategoryPrints    ProductCategory = "prints"
	ProductCategorySessions  ProductCategory = "sessions"
	ProductCategoryContracts ProductCategory = "contracts"
)

var validProductCategories = []ProductCategory{
	ProductCategoryPrints,
	ProductCategorySessions,
	ProductCategoryContracts,
}

// IsValid reports whether the value matches the canonical product category enum.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts the raw string to ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
