package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductView, error)
	ListProducts(ctx context.Context, onlyAvailable bool) ([]ProductView, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      enums.ProductCategory
	MaxPurchasers int
	Discounts     []DiscountInput
}

// DiscountInput defines one time-boxed discount window.
type DiscountInput struct {
	Percent       decimal.Decimal
	MaxPurchasers int
	StartsAt      time.Time
	EndsAt        time.Time
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Category      *enums.ProductCategory
	MaxPurchasers *int
	Discounts     *[]DiscountInput
}

// ProductView is a product read model with the effective price resolved.
type ProductView struct {
	Product        models.Product  `json:"product"`
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	EffectiveQuota int             `json:"effectiveQuota"`
	SlotsLeft      int             `json:"slotsLeft"`
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if err := validateProductInput(input.Name, input.Price, input.Category, input.MaxPurchasers); err != nil {
		return nil, err
	}
	discounts, err := buildDiscounts(input.Discounts)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price,
		Category:      input.Category,
		MaxPurchasers: input.MaxPurchasers,
		Available:     true,
		Discounts:     discounts,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.MaxPurchasers != nil {
		product.MaxPurchasers = *input.MaxPurchasers
		// Raising the cap reopens a sold-out product.
		product.Available = product.PurchasedCount < product.MaxPurchasers
	}
	if err := validateProductInput(product.Name, product.Price, product.Category, product.MaxPurchasers); err != nil {
		return nil, err
	}

	if input.Discounts != nil {
		discounts, err := buildDiscounts(*input.Discounts)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceDiscounts(ctx, productID, discounts); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing discounts")
		}
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductView, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	view := s.buildView(*product)
	return &view, nil
}

func (s *service) ListProducts(ctx context.Context, onlyAvailable bool) ([]ProductView, error) {
	products, err := s.repo.List(ctx, onlyAvailable)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.buildView(p))
	}
	return views, nil
}

func (s *service) buildView(product models.Product) ProductView {
	now := s.now()
	quota := EffectiveQuota(&product, now)
	slots := quota - product.PurchasedCount
	if slots < 0 {
		slots = 0
	}
	return ProductView{
		Product:        product,
		EffectivePrice: EffectiveUnitPrice(&product, now),
		EffectiveQuota: quota,
		SlotsLeft:      slots,
	}
}

func validateProductInput(name string, price decimal.Decimal, category enums.ProductCategory, maxPurchasers int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	if !category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
	}
	if maxPurchasers <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max purchasers must be positive")
	}
	return nil
}

func buildDiscounts(inputs []DiscountInput) ([]models.ProductDiscount, error) {
	discounts := make([]models.ProductDiscount, 0, len(inputs))
	for _, in := range inputs {
		if in.Percent.LessThanOrEqual(decimal.Zero) || in.Percent.GreaterThanOrEqual(hundred) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
		}
		if in.MaxPurchasers <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount max purchasers must be positive")
		}
		if !in.EndsAt.After(in.StartsAt) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount window is inverted")
		}
		discounts = append(discounts, models.ProductDiscount{
			Percent:       in.Percent,
			MaxPurchasers: in.MaxPurchasers,
			StartsAt:      in.StartsAt,
			EndsAt:        in.EndsAt,
		})
	}
	return discounts, nil
}
