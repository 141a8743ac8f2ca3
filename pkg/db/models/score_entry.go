package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreEntry is the per-customer, per-season point ledger. Repeated awards
// accumulate into the same row.
type ScoreEntry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_score_entries_customer_season"`
	SeasonID   uuid.UUID `gorm:"column:season_id;type:uuid;not null;uniqueIndex:ux_score_entries_customer_season"`
	Points     int       `gorm:"column:points;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *ScoreEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
