package season

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
)

// Repository provides season persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new season row.
func (r *Repository) Create(ctx context.Context, season *models.Season) (*models.Season, error) {
	if err := r.db.WithContext(ctx).Create(season).Error; err != nil {
		return nil, err
	}
	return season, nil
}

// Delete removes a season row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Season{}, "id = ?", id).Error
}

// FindByID loads a season by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	var season models.Season
	if err := r.db.WithContext(ctx).First(&season, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &season, nil
}

// List returns all seasons, newest window first.
func (r *Repository) List(ctx context.Context) ([]models.Season, error) {
	var seasons []models.Season
	err := r.db.WithContext(ctx).Order("starts_on DESC").Find(&seasons).Error
	return seasons, err
}

// ActiveSeason returns the currently active season.
func (r *Repository) ActiveSeason(ctx context.Context) (*models.Season, error) {
	var season models.Season
	err := r.db.WithContext(ctx).
		First(&season, "status = ?", enums.SeasonStatusActive).Error
	if err != nil {
		return nil, err
	}
	return &season, nil
}

// PendingWithinWindow returns pending seasons whose window contains the given
// instant, earliest start first.
func (r *Repository) PendingWithinWindow(ctx context.Context, now time.Time) ([]models.Season, error) {
	var seasons []models.Season
	err := r.db.WithContext(ctx).
		Where("status = ? AND starts_on <= ? AND ends_on >= ?", enums.SeasonStatusPending, now, now).
		Order("starts_on ASC").
		Find(&seasons).Error
	return seasons, err
}

// ActiveEndedBefore returns active seasons whose window closed before the
// given instant.
func (r *Repository) ActiveEndedBefore(ctx context.Context, now time.Time) ([]models.Season, error) {
	var seasons []models.Season
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_on < ?", enums.SeasonStatusActive, now).
		Order("ends_on ASC").
		Find(&seasons).Error
	return seasons, err
}

// CountOverlapping counts non-finalized seasons whose window intersects the
// given range.
func (r *Repository) CountOverlapping(ctx context.Context, startsOn, endsOn time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Season{}).
		Where("status <> ?", enums.SeasonStatusFinalized).
		Where("starts_on <= ? AND ends_on >= ?", endsOn, startsOn).
		Count(&count).Error
	return count, err
}

// UpdateStatus transitions a season only from the expected status, so
// concurrent workers cannot double-apply a transition.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.SeasonStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Season{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
