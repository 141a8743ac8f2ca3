package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"
)

// ProductDiscount is a time-boxed percentage discount with its own, tighter
// purchaser quota. When windows overlap, the highest percentage wins.
type ProductDiscount struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Percent        decimal.Decimal `gorm:"column:percent;type:numeric(5,2);not null"`
	MaxPurchasers  int             `gorm:"column:max_purchasers;not null"`
	PurchasedCount int             `gorm:"column:purchased_count;not null;default:0"`
	StartsAt       time.Time       `gorm:"column:starts_at;not null"`
	EndsAt         time.Time       `gorm:"column:ends_at;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the discount window contains the given instant.
func (d ProductDiscount) ActiveAt(now time.Time) bool {
	return !d.StartsAt.After(now) && !d.EndsAt.Before(now)
}

func (d *ProductDiscount) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
