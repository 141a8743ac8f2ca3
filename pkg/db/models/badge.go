package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Badge is static reference data. The name doubles as the rule key used by
// the award services ("Temporada Top 1", "Cliente Oro", ...).
type Badge struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null;uniqueIndex:ux_badges_name"`
	Requirements string     `gorm:"column:requirements;not null"`
	ValidFrom    *time.Time `gorm:"column:valid_from"`
	ValidUntil   *time.Time `gorm:"column:valid_until"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (b *Badge) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
