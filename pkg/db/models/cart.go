package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/shopspring/decimal"

	"github.com/calderonstudio/ranking-backend/pkg/enums"
)

// Cart is the root aggregate for its line items. A customer has at most one
// active cart; Total always equals the sum of line subtotals.
type Cart struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID        `gorm:"column:customer_id;type:uuid;not null"`
	Status     enums.CartStatus `gorm:"column:status;not null;default:active"`
	Total      decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
