package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/enums"
)

// Season is a time-boxed competition period. At most one season is active at
// any time; finalized is terminal.
type Season struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string             `gorm:"column:name;not null"`
	StartsOn  time.Time          `gorm:"column:starts_on;not null"`
	EndsOn    time.Time          `gorm:"column:ends_on;not null"`
	Status    enums.SeasonStatus `gorm:"column:status;not null;default:pending"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the season currently carries the availability flag.
func (s Season) Active() bool {
	return s.Status == enums.SeasonStatusActive
}

func (s *Season) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
