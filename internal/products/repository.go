package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
)

// Repository provides product and discount persistence.
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

// FindByID loads a product with its discounts.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Discounts").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product with its discounts, locking the product
// row for the duration of the transaction. sqlite locks the whole database on
// write, so the row lock is Postgres-only.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	lock := func(q *gorm.DB) *gorm.DB {
		if r.db.Dialector.Name() == "postgres" {
			return q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return q
	}
	var product models.Product
	if err := lock(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var discounts []models.ProductDiscount
	if err := lock(r.db.WithContext(ctx)).Where("product_id = ?", id).Find(&discounts).Error; err != nil {
		return nil, err
	}
	product.Discounts = discounts
	return &product, nil
}

// List returns products, optionally only the ones still open for purchase.
func (r *Repository) List(ctx context.Context, onlyAvailable bool) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx).
		Preload("Discounts").
		Order("name ASC")
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}
	err := query.Find(&products).Error
	return products, err
}

// Create inserts a new product row together with its discounts.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update saves an existing product row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Discounts").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product and its discounts.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductDiscount{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
}

// ReplaceDiscounts replaces all discount windows for the product.
func (r *Repository) ReplaceDiscounts(ctx context.Context, productID uuid.UUID, discounts []models.ProductDiscount) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductDiscount{}).Error; err != nil {
		return err
	}
	if len(discounts) == 0 {
		return nil
	}
	return tx.Create(&discounts).Error
}

// IncrementPurchased bumps the product's purchaser counter and flips the
// availability flag once the quota is reached.
func (r *Repository) IncrementPurchased(ctx context.Context, productID uuid.UUID, by, quota int) error {
	conn := r.db.WithContext(ctx)
	err := conn.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("purchased_count", gorm.Expr("purchased_count + ?", by)).Error
	if err != nil {
		return err
	}
	return conn.Model(&models.Product{}).
		Where("id = ? AND purchased_count >= ?", productID, quota).
		Update("is_available", false).Error
}

// IncrementDiscountPurchased bumps a discount window's purchaser counter.
func (r *Repository) IncrementDiscountPurchased(ctx context.Context, discountID uuid.UUID, by int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductDiscount{}).
		Where("id = ?", discountID).
		Update("purchased_count", gorm.Expr("purchased_count + ?", by)).Error
}
