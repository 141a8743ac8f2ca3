package badge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
)

// Service exposes badge catalog management and badge awarding.
type Service interface {
	CreateBadge(ctx context.Context, input CreateBadgeInput) (*models.Badge, error)
	UpdateBadge(ctx context.Context, badgeID uuid.UUID, input UpdateBadgeInput) (*models.Badge, error)
	DeleteBadge(ctx context.Context, badgeID uuid.UUID) error
	GetBadge(ctx context.Context, badgeID uuid.UUID) (*models.Badge, error)
	ListBadges(ctx context.Context) ([]models.Badge, error)
	ListCustomerBadges(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBadge, error)
	AwardEligible(ctx context.Context, customerID uuid.UUID) ([]string, error)
	SweepLadder(ctx context.Context) (SweepResult, error)
}

// CreateBadgeInput holds the validated payload to create a catalog badge.
type CreateBadgeInput struct {
	Name         string
	Requirements string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
}

// UpdateBadgeInput holds optional mutation values for a catalog badge.
type UpdateBadgeInput struct {
	Name         *string
	Requirements *string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
}

// SweepResult summarizes one ladder sweep pass.
type SweepResult struct {
	CustomersSeen  int
	BadgesAwarded  int
	TierPromotions int
}

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListAll(ctx context.Context) ([]models.Customer, error)
	SetElevated(ctx context.Context, id uuid.UUID, elevated bool) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      *Repository
	customers customerReader
	dbClient  txRunner
	events    eventEmitter
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs a badge service instance.
func NewService(repo *Repository, customers customerReader, dbClient txRunner, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("badge repository required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		customers: customers,
		dbClient:  dbClient,
		events:    events,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) CreateBadge(ctx context.Context, input CreateBadgeInput) (*models.Badge, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge name is required")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge validity window is inverted")
	}
	badge := &models.Badge{
		Name:         name,
		Requirements: strings.TrimSpace(input.Requirements),
		ValidFrom:    input.ValidFrom,
		ValidUntil:   input.ValidUntil,
	}
	created, err := s.repo.Create(ctx, badge)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_badges_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "badge name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating badge")
	}
	return created, nil
}

func (s *service) UpdateBadge(ctx context.Context, badgeID uuid.UUID, input UpdateBadgeInput) (*models.Badge, error) {
	badge, err := s.repo.FindByID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading badge")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge name is required")
		}
		badge.Name = name
	}
	if input.Requirements != nil {
		badge.Requirements = strings.TrimSpace(*input.Requirements)
	}
	if input.ValidFrom != nil {
		badge.ValidFrom = input.ValidFrom
	}
	if input.ValidUntil != nil {
		badge.ValidUntil = input.ValidUntil
	}
	if badge.ValidFrom != nil && badge.ValidUntil != nil && badge.ValidUntil.Before(*badge.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "badge validity window is inverted")
	}
	updated, err := s.repo.Update(ctx, badge)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_badges_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "badge name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating badge")
	}
	return updated, nil
}

func (s *service) DeleteBadge(ctx context.Context, badgeID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, badgeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading badge")
	}
	if err := s.repo.Delete(ctx, badgeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting badge")
	}
	return nil
}

func (s *service) GetBadge(ctx context.Context, badgeID uuid.UUID) (*models.Badge, error) {
	badge, err := s.repo.FindByID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "badge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading badge")
	}
	return badge, nil
}

func (s *service) ListBadges(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing badges")
	}
	return badges, nil
}

func (s *service) ListCustomerBadges(ctx context.Context, customerID uuid.UUID) ([]models.CustomerBadge, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	grants, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customer badges")
	}
	return grants, nil
}

// AwardEligible grants every ladder badge the customer's lifetime points now
// qualify for. When nothing new is granted the whole transaction is discarded
// and a state conflict is returned.
func (s *service) AwardEligible(ctx context.Context, customerID uuid.UUID) ([]string, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}

	var granted []string
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		names, txErr := s.awardLadderTx(ctx, tx, customer)
		if txErr != nil {
			return txErr
		}
		if len(names) == 0 {
			return errNoNewGrants
		}
		granted = names
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoNewGrants) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no new badges granted")
		}
		var coded *pkgerrors.Error
		if errors.As(err, &coded) {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "awarding badges")
	}
	return granted, nil
}

// SweepLadder walks every customer, grants pending ladder badges and promotes
// accounts that now meet the elevated tier conditions. Intended for the cron
// worker; individual customers that fail do not abort the sweep.
func (s *service) SweepLadder(ctx context.Context) (SweepResult, error) {
	customers, err := s.customers.ListAll(ctx)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing customers")
	}

	result := SweepResult{CustomersSeen: len(customers)}
	var sweepErrs error
	for i := range customers {
		customer := customers[i]
		err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			names, txErr := s.awardLadderTx(ctx, tx, &customer)
			if txErr != nil {
				return txErr
			}
			result.BadgesAwarded += len(names)
			return nil
		})
		if err != nil {
			cctx := s.logg.WithCustomerID(ctx, customer.ID.String())
			s.logg.Error(cctx, "ladder sweep failed for customer", err)
			sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("customer %s: %w", customer.ID, err))
			continue
		}

		if !customer.Elevated && QualifiesForElevatedTier(customer.GeneralPoints, customer.RegisteredAt, s.now()) {
			if err := s.customers.SetElevated(ctx, customer.ID, true); err != nil {
				cctx := s.logg.WithCustomerID(ctx, customer.ID.String())
				s.logg.Error(cctx, "elevated tier promotion failed", err)
				sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("promote %s: %w", customer.ID, err))
				continue
			}
			result.TierPromotions++
		}
	}
	return result, sweepErrs
}

var errNoNewGrants = errors.New("no new badge grants")

// awardLadderTx grants the missing ladder badges for the customer inside the
// supplied transaction and returns the names actually granted.
func (s *service) awardLadderTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) ([]string, error) {
	now := s.now()
	repo := s.repo.WithTx(tx)

	var granted []string
	for _, name := range EligibleLadderBadges(customer.GeneralPoints) {
		badge, err := repo.EnsureByName(ctx, name, ladderRequirements(name))
		if err != nil {
			return nil, err
		}
		if !badgeValidAt(badge, now) {
			continue
		}
		created, err := repo.Award(ctx, customer.ID, badge.ID, now)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}
		granted = append(granted, badge.Name)
		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventBadgeAwarded,
				AggregateType: enums.AggregateCustomer,
				AggregateID:   customer.ID,
				Data: map[string]any{
					"customerId": customer.ID.String(),
					"badge":      badge.Name,
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return nil, err
			}
		}
	}
	return granted, nil
}

func badgeValidAt(badge *models.Badge, now time.Time) bool {
	if badge.ValidFrom != nil && now.Before(*badge.ValidFrom) {
		return false
	}
	if badge.ValidUntil != nil && now.After(*badge.ValidUntil) {
		return false
	}
	return true
}

func ladderRequirements(name string) string {
	for _, tier := range LadderThresholds {
		if tier.BadgeName == name {
			return fmt.Sprintf("Reach %d general points", tier.MinPoints)
		}
	}
	return ""
}
