package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the root aggregate for points and badges.
type Customer struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	Email         string    `gorm:"column:email;not null;uniqueIndex:ux_customers_email"`
	GeneralPoints int       `gorm:"column:general_points;not null;default:0"`
	RegisteredAt  time.Time `gorm:"column:registered_at;not null"`
	Elevated      bool      `gorm:"column:is_elevated;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id client-side so the sqlite driver, which has
// no uuid default, behaves like Postgres.
func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
