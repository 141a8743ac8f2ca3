package cron

import (
	"context"
	"fmt"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type ladderSweeper interface {
	SweepLadder(ctx context.Context) (badge.SweepResult, error)
}

// LadderSweepJobParams configure the loyalty ladder sweep job.
type LadderSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper ladderSweeper
}

// NewLadderSweepJob builds the job that grants pending ladder badges and
// elevated tier promotions across all customers.
func NewLadderSweepJob(params LadderSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("ladder sweeper required")
	}
	return &ladderSweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type ladderSweepJob struct {
	logg    *logger.Logger
	sweeper ladderSweeper
}

func (j *ladderSweepJob) Name() string { return "ladder-sweep" }

func (j *ladderSweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.SweepLadder(ctx)
	if err != nil {
		return fmt.Errorf("ladder sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"customers_seen":  result.CustomersSeen,
		"badges_awarded":  result.BadgesAwarded,
		"tier_promotions": result.TierPromotions,
	})
	j.logg.Info(logCtx, "ladder sweep complete")
	return nil
}
