package score

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	pkgerrors "github.com/calderonstudio/ranking-backend/pkg/errors"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

// PurchaseLine is one purchased position as seen by the point rules.
type PurchaseLine struct {
	Category enums.ProductCategory
	Qty      int
}

// Service exposes season scoring operations.
type Service interface {
	AwardForPurchase(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, lines []PurchaseLine) (int, error)
	Ranking(ctx context.Context, seasonID *uuid.UUID, limit int) (*RankingResult, error)
}

// RankingResult is a leaderboard together with the season it belongs to.
type RankingResult struct {
	Season  *models.Season   `json:"season"`
	Entries []RankedCustomer `json:"entries"`
}

type seasonFinder interface {
	ActiveSeason(ctx context.Context) (*models.Season, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error)
}

type service struct {
	repo    *Repository
	seasons seasonFinder
	logg    *logger.Logger
}

// NewService constructs a score service instance.
func NewService(repo *Repository, seasons seasonFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("score repository required")
	}
	if seasons == nil {
		return nil, fmt.Errorf("season finder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, seasons: seasons, logg: logg}, nil
}

// AwardForPurchase credits the point value of the purchased lines inside the
// caller's transaction. Without an active season the purchase still succeeds
// and simply earns nothing; the skip is logged.
func (s *service) AwardForPurchase(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, lines []PurchaseLine) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}

	total := 0
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		total += badge.PointsForCategory(line.Category) * line.Qty
	}
	if total == 0 {
		return 0, nil
	}

	// The season lookup rides the caller's transaction, same as the writes.
	var season models.Season
	if err := tx.WithContext(ctx).First(&season, "status = ?", enums.SeasonStatusActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cctx := s.logg.WithCustomerID(ctx, customerID.String())
			s.logg.Warn(cctx, "no active season; purchase earns no points")
			return 0, nil
		}
		return 0, err
	}

	repo := s.repo.WithTx(tx)
	if err := repo.AddPoints(ctx, customerID, season.ID, total); err != nil {
		return 0, err
	}

	// Lifetime points move in lockstep with the season ledger.
	result := tx.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("general_points", gorm.Expr("general_points + ?", total))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	cctx := s.logg.WithCustomerID(ctx, customerID.String())
	cctx = s.logg.WithSeasonID(cctx, season.ID.String())
	cctx = s.logg.WithField(cctx, "points", total)
	s.logg.Info(cctx, "purchase points awarded")
	return total, nil
}

// Ranking returns the leaderboard for the given season, or for the active
// season when no id is supplied.
func (s *service) Ranking(ctx context.Context, seasonID *uuid.UUID, limit int) (*RankingResult, error) {
	var (
		season *models.Season
		err    error
	)
	if seasonID != nil {
		season, err = s.seasons.FindByID(ctx, *seasonID)
	} else {
		season, err = s.seasons.ActiveSeason(ctx)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading season")
	}

	entries, err := s.repo.TopN(ctx, season.ID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading leaderboard")
	}
	return &RankingResult{Season: season, Entries: entries}, nil
}
