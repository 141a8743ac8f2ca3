package customer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
)

// Repository provides customer persistence.
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

// Create inserts a new customer row.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// FindByID loads a customer by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByEmail loads a customer by email, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		First(&customer, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// List returns customers ordered by lifetime points, best first. Ties break
// on id so pagination stays stable.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Customer, error) {
	var customers []models.Customer
	query := r.db.WithContext(ctx).
		Order("general_points DESC").
		Order("id ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&customers).Error
	return customers, err
}

// ListAll returns every customer, oldest registration first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.WithContext(ctx).Order("registered_at ASC").Find(&customers).Error
	return customers, err
}

// AddPoints atomically increments a customer's lifetime point total.
func (r *Repository) AddPoints(ctx context.Context, id uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Update("general_points", gorm.Expr("general_points + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetElevated flips the elevated tier flag.
func (r *Repository) SetElevated(ctx context.Context, id uuid.UUID, elevated bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Update("is_elevated", elevated)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
