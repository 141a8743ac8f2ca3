package season

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	score "github.com/calderonstudio/ranking-backend/internal/scores"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
)

// Service exposes season management and lifecycle operations.
type Service interface {
	CreateSeason(ctx context.Context, input CreateSeasonInput) (*models.Season, error)
	DeleteSeason(ctx context.Context, seasonID uuid.UUID) error
	GetSeason(ctx context.Context, seasonID uuid.UUID) (*models.Season, error)
	ListSeasons(ctx context.Context) ([]models.Season, error)
	ActiveSeason(ctx context.Context) (*models.Season, error)
	AwardTerminalBadges(ctx context.Context, seasonID uuid.UUID) ([]TerminalAward, error)
	RunLifecycle(ctx context.Context) (LifecycleResult, error)
}

// CreateSeasonInput holds the validated payload to create a season.
type CreateSeasonInput struct {
	Name     string
	StartsOn time.Time
	EndsOn   time.Time
}

// TerminalAward reports one podium badge grant.
type TerminalAward struct {
	Rank       int       `json:"rank"`
	CustomerID uuid.UUID `json:"customerId"`
	Badge      string    `json:"badge"`
}

// LifecycleResult summarizes one lifecycle pass.
type LifecycleResult struct {
	Activated     []uuid.UUID
	Finalized     []uuid.UUID
	BadgesAwarded int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      *Repository
	scoreRepo *score.Repository
	badgeRepo *badge.Repository
	dbClient  txRunner
	events    eventEmitter
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs a season service instance.
func NewService(repo *Repository, scoreRepo *score.Repository, badgeRepo *badge.Repository, dbClient txRunner, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("season repository required")
	}
	if scoreRepo == nil {
		return nil, fmt.Errorf("score repository required")
	}
	if badgeRepo == nil {
		return nil, fmt.Errorf("badge repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		scoreRepo: scoreRepo,
		badgeRepo: badgeRepo,
		dbClient:  dbClient,
		events:    events,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) CreateSeason(ctx context.Context, input CreateSeasonInput) (*models.Season, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season name is required")
	}
	if !input.EndsOn.After(input.StartsOn) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season must end after it starts")
	}

	overlapping, err := s.repo.CountOverlapping(ctx, input.StartsOn, input.EndsOn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking season overlap")
	}
	if overlapping > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "season window overlaps an existing season")
	}

	season := &models.Season{
		Name:     name,
		StartsOn: input.StartsOn,
		EndsOn:   input.EndsOn,
		Status:   enums.SeasonStatusPending,
	}
	created, err := s.repo.Create(ctx, season)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating season")
	}

	// A season whose window already contains today goes live right away when
	// no other season holds the active slot.
	now := s.now()
	if !created.StartsOn.After(now) && !created.EndsOn.Before(now) {
		if _, err := s.repo.ActiveSeason(ctx); errors.Is(err, gorm.ErrRecordNotFound) {
			activated, aerr := s.repo.UpdateStatus(ctx, created.ID, enums.SeasonStatusPending, enums.SeasonStatusActive)
			if aerr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, aerr, "activating season")
			}
			if activated {
				created.Status = enums.SeasonStatusActive
				sctx := s.logg.WithSeasonID(ctx, created.ID.String())
				s.logg.Info(sctx, "season activated")
			}
		}
	}
	return created, nil
}

// DeleteSeason removes a season that never ran. Active and finalized seasons
// carry scoring history and stay.
func (s *service) DeleteSeason(ctx context.Context, seasonID uuid.UUID) error {
	season, err := s.repo.FindByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading season")
	}
	if season.Status != enums.SeasonStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending seasons can be deleted")
	}
	if err := s.repo.Delete(ctx, seasonID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting season")
	}
	return nil
}

func (s *service) GetSeason(ctx context.Context, seasonID uuid.UUID) (*models.Season, error) {
	season, err := s.repo.FindByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading season")
	}
	return season, nil
}

func (s *service) ListSeasons(ctx context.Context) ([]models.Season, error) {
	seasons, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing seasons")
	}
	return seasons, nil
}

func (s *service) ActiveSeason(ctx context.Context) (*models.Season, error) {
	season, err := s.repo.ActiveSeason(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active season")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading active season")
	}
	return season, nil
}

// errNoNewAwards discards the award transaction when every podium customer
// already holds their badge. That outcome is normal, not a failure.
var errNoNewAwards = errors.New("no new terminal awards")

// AwardTerminalBadges grants the podium badges for the season's final
// standings. Re-running it never duplicates a grant.
func (s *service) AwardTerminalBadges(ctx context.Context, seasonID uuid.UUID) ([]TerminalAward, error) {
	if _, err := s.repo.FindByID(ctx, seasonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading season")
	}

	var awards []TerminalAward
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		granted, txErr := s.awardTerminalTx(ctx, tx, seasonID)
		if txErr != nil {
			return txErr
		}
		if len(granted) == 0 {
			return errNoNewAwards
		}
		awards = granted
		return nil
	})
	if err != nil && !errors.Is(err, errNoNewAwards) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "awarding terminal badges")
	}
	return awards, nil
}

// RunLifecycle finalizes seasons whose window has closed and activates the
// pending season whose window has opened. It is safe to run repeatedly.
func (s *service) RunLifecycle(ctx context.Context) (LifecycleResult, error) {
	now := s.now()
	result := LifecycleResult{}

	ended, err := s.repo.ActiveEndedBefore(ctx, now)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing ended seasons")
	}
	for _, season := range ended {
		awarded, err := s.finalizeSeason(ctx, season)
		if err != nil {
			sctx := s.logg.WithSeasonID(ctx, season.ID.String())
			s.logg.Error(sctx, "season finalize failed", err)
			continue
		}
		result.Finalized = append(result.Finalized, season.ID)
		result.BadgesAwarded += awarded
	}

	// Only one season may be active; skip activation while one remains.
	if _, err := s.repo.ActiveSeason(ctx); err == nil {
		return result, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading active season")
	}

	pending, err := s.repo.PendingWithinWindow(ctx, now)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing pending seasons")
	}
	if len(pending) == 0 {
		return result, nil
	}
	next := pending[0]
	activated, err := s.repo.UpdateStatus(ctx, next.ID, enums.SeasonStatusPending, enums.SeasonStatusActive)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activating season")
	}
	if activated {
		result.Activated = append(result.Activated, next.ID)
		sctx := s.logg.WithSeasonID(ctx, next.ID.String())
		s.logg.Info(sctx, "season activated")
	}
	return result, nil
}

// finalizeSeason awards the podium badges and marks the season finalized.
// Awards and the status flip run in separate transactions so an empty podium
// can discard its transaction without blocking finalization.
func (s *service) finalizeSeason(ctx context.Context, season models.Season) (int, error) {
	awarded := 0
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		granted, txErr := s.awardTerminalTx(ctx, tx, season.ID)
		if txErr != nil {
			return txErr
		}
		if len(granted) == 0 {
			return errNoNewAwards
		}
		awarded = len(granted)
		return nil
	})
	if err != nil && !errors.Is(err, errNoNewAwards) {
		return 0, err
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		flipped, txErr := s.repo.WithTx(tx).UpdateStatus(ctx, season.ID, enums.SeasonStatusActive, enums.SeasonStatusFinalized)
		if txErr != nil {
			return txErr
		}
		if !flipped {
			return nil
		}
		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventSeasonFinalized,
				AggregateType: enums.AggregateSeason,
				AggregateID:   season.ID,
				Data: map[string]any{
					"seasonId": season.ID.String(),
					"name":     season.Name,
				},
				Version: 1,
			}
			return s.events.EmitIfNotExists(ctx, tx, event)
		}
		return nil
	})
	if err != nil {
		return awarded, err
	}

	sctx := s.logg.WithSeasonID(ctx, season.ID.String())
	sctx = s.logg.WithField(sctx, "badges_awarded", awarded)
	s.logg.Info(sctx, "season finalized")
	return awarded, nil
}

// awardTerminalTx grants the missing podium badges inside the transaction.
func (s *service) awardTerminalTx(ctx context.Context, tx *gorm.DB, seasonID uuid.UUID) ([]TerminalAward, error) {
	now := s.now()
	scores := s.scoreRepo.WithTx(tx)
	badges := s.badgeRepo.WithTx(tx)

	podium, err := scores.TopN(ctx, seasonID, badge.TerminalPodiumSize)
	if err != nil {
		return nil, err
	}

	var awards []TerminalAward
	for _, entry := range podium {
		name := badge.TerminalBadgeName(entry.Rank)
		row, err := badges.EnsureByName(ctx, name, fmt.Sprintf("Finish the season ranked #%d", entry.Rank))
		if err != nil {
			return nil, err
		}
		created, err := badges.Award(ctx, entry.CustomerID, row.ID, now)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}
		awards = append(awards, TerminalAward{
			Rank:       entry.Rank,
			CustomerID: entry.CustomerID,
			Badge:      name,
		})
		if s.events != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventBadgeAwarded,
				AggregateType: enums.AggregateCustomer,
				AggregateID:   entry.CustomerID,
				Data: map[string]any{
					"customerId": entry.CustomerID.String(),
					"seasonId":   seasonID.String(),
					"badge":      name,
					"rank":       entry.Rank,
				},
				Version: 1,
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return nil, err
			}
		}
	}
	return awards, nil
}
