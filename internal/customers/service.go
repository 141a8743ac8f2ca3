package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

// Service exposes customer account operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, limit, offset int) ([]models.Customer, error)
	CreditPoints(ctx context.Context, customerID uuid.UUID, points int) (*CreditResult, error)
}

// RegisterInput holds the validated payload to register a customer.
type RegisterInput struct {
	Name  string
	Email string
}

// CreditResult reports the outcome of a direct point credit.
type CreditResult struct {
	CustomerID    uuid.UUID
	PointsApplied int
	BonusApplied  bool
	GeneralPoints int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	dbClient txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs a customer service instance.
func NewService(repo *Repository, dbClient txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking email")
	}

	customer := &models.Customer{
		Name:         name,
		Email:        email,
		RegisteredAt: s.now(),
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_customers_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating customer")
	}

	cctx := s.logg.WithCustomerID(ctx, created.ID.String())
	s.logg.Info(cctx, "customer registered")
	return created, nil
}

func (s *service) GetCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	return customer, nil
}

func (s *service) ListCustomers(ctx context.Context, limit, offset int) ([]models.Customer, error) {
	customers, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customers")
	}
	return customers, nil
}

// CreditPoints adds points to a customer's lifetime total. Elevated customers
// receive the tier multiplier on the credited amount.
func (s *service) CreditPoints(ctx context.Context, customerID uuid.UUID, points int) (*CreditResult, error) {
	if points <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}

	applied := badge.PointsWithBonus(points, customer.Elevated)
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).AddPoints(ctx, customerID, applied)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting points")
	}

	cctx := s.logg.WithCustomerID(ctx, customerID.String())
	cctx = s.logg.WithField(cctx, "points_applied", applied)
	s.logg.Info(cctx, "points credited")

	return &CreditResult{
		CustomerID:    customerID,
		PointsApplied: applied,
		BonusApplied:  customer.Elevated,
		GeneralPoints: customer.GeneralPoints + applied,
	}, nil
}
