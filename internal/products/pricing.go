package product

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// SelectEffectiveDiscount picks the discount that applies right now: the
// window must contain the instant and still have purchaser slots left. When
// windows overlap, the highest percentage wins.
func SelectEffectiveDiscount(product *models.Product, now time.Time) *models.ProductDiscount {
	var best *models.ProductDiscount
	for i := range product.Discounts {
		d := &product.Discounts[i]
		if !d.ActiveAt(now) {
			continue
		}
		if d.PurchasedCount >= d.MaxPurchasers {
			continue
		}
		if best == nil || d.Percent.GreaterThan(best.Percent) {
			best = d
		}
	}
	return best
}

// EffectiveQuota returns the purchaser cap in force: the active discount's
// tighter cap when one applies, the product's base cap otherwise.
func EffectiveQuota(product *models.Product, now time.Time) int {
	if d := SelectEffectiveDiscount(product, now); d != nil && d.MaxPurchasers < product.MaxPurchasers {
		return d.MaxPurchasers
	}
	return product.MaxPurchasers
}

// EffectiveUnitPrice returns the price after the currently applicable
// discount, rounded to cents.
func EffectiveUnitPrice(product *models.Product, now time.Time) decimal.Decimal {
	d := SelectEffectiveDiscount(product, now)
	if d == nil {
		return product.Price
	}
	factor := hundred.Sub(d.Percent).Div(hundred)
	return product.Price.Mul(factor).Round(2)
}
