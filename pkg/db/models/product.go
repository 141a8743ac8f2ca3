package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"

	"github.com/calderonstudio/ranking-backend/pkg/enums"
)

// Product is a limited-quantity offering. PurchasedCount never exceeds the
// effective quota (base MaxPurchasers, or the active discount's quota).
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Description    string                `gorm:"column:description;not null"`
	Price          decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Category       enums.ProductCategory `gorm:"column:category;not null"`
	MaxPurchasers  int                   `gorm:"column:max_purchasers;not null"`
	PurchasedCount int                   `gorm:"column:purchased_count;not null;default:0"`
	Available      bool                  `gorm:"column:is_available;not null;default:true"`
	Discounts      []ProductDiscount     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
