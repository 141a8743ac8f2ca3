package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerBadge records a badge held by a customer. The (customer, badge)
// pair is unique; rows are never updated or deleted by the core.
type CustomerBadge struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_customer_badges_pair"`
	BadgeID    uuid.UUID `gorm:"column:badge_id;type:uuid;not null;uniqueIndex:ux_customer_badges_pair"`
	AwardedAt  time.Time `gorm:"column:awarded_at;not null"`

	Badge *Badge `gorm:"foreignKey:BadgeID"`
}

func (cb *CustomerBadge) BeforeCreate(*gorm.DB) error {
	if cb.ID == uuid.Nil {
		cb.ID = uuid.New()
	}
	return nil
}
