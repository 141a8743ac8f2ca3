package badge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
)

// Repository wires together badge catalog and badge grant persistence.
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

// FindByID loads a badge from the catalog.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// FindByName loads a badge by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// EnsureByName returns the badge with the given name, creating it when the
// catalog does not have it yet.
func (r *Repository) EnsureByName(ctx context.Context, name, requirements string) (*models.Badge, error) {
	badge := models.Badge{Name: name, Requirements: requirements}
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		FirstOrCreate(&badge).Error
	if err != nil {
		if db.IsUniqueViolation(err, "ux_badges_name") {
			return r.FindByName(ctx, name)
		}
		return nil, err
	}
	return &badge, nil
}

// List returns the full badge catalog ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).Order("name ASC").Find(&badges).Error
	return badges, err
}

// Create inserts a new catalog badge.
func (r *Repository) Create(ctx context.Context, badge *models.Badge) (*models.Badge, error) {
	if err := r.db.WithContext(ctx).Create(badge).Error; err != nil {
		return nil, err
	}
	return badge, nil
}

// Update saves an existing catalog badge.
func (r *Repository) Update(ctx context.Context, badge *models.Badge) (*models.Badge, error) {
	if err := r.db.WithContext(ctx).Save(badge).Error; err != nil {
		return nil, err
	}
	return badge, nil
}

// Delete removes a catalog badge and its grants.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&models.CustomerBadge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Badge{}, "id = ?", id).Error
	})
}

// HasPair reports whether the customer already holds the badge.
func (r *Repository) HasPair(ctx context.Context, customerID, badgeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerBadge{}).
		Where("customer_id = ? AND badge_id = ?", customerID, badgeID).
		Count(&count).Error
	return count > 0, err
}

// Award grants the badge to the customer. It returns false without error when
// the customer already holds the badge.
func (r *Repository) Award(ctx context.Context, customerID, badgeID uuid.UUID, awardedAt time.Time) (bool, error) {
	held, err := r.HasPair(ctx, customerID, badgeID)
	if err != nil {
		return false, err
	}
	if held {
		return false, nil
	}
	grant := models.CustomerBadge{
		CustomerID: customerID,
		BadgeID:    badgeID,
		AwardedAt:  awardedAt,
	}
	if err := r.db.WithContext(ctx).Create(&grant).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_customer_badges_pair") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByCustomer returns every grant the customer holds, newest first, with
// the catalog badge preloaded.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBadge, error) {
	var grants []models.CustomerBadge
	err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("customer_id = ?", customerID).
		Order("awarded_at DESC").
		Find(&grants).Error
	return grants, err
}
