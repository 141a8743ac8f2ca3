package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	season "github.com/calderonstudio/ranking-backend/internal/seasons"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type seasonLifecycle interface {
	RunLifecycle(ctx context.Context) (season.LifecycleResult, error)
}

// SeasonLifecycleJobParams configure the season lifecycle job.
type SeasonLifecycleJobParams struct {
	Logger    *logger.Logger
	Lifecycle seasonLifecycle
}

// NewSeasonLifecycleJob builds the job that finalizes ended seasons and
// activates the next pending one.
func NewSeasonLifecycleJob(params SeasonLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("season lifecycle required")
	}
	return &seasonLifecycleJob{
		logg:      params.Logger,
		lifecycle: params.Lifecycle,
	}, nil
}

type seasonLifecycleJob struct {
	logg      *logger.Logger
	lifecycle seasonLifecycle
}

func (j *seasonLifecycleJob) Name() string { return "season-lifecycle" }

func (j *seasonLifecycleJob) Run(ctx context.Context) error {
	result, err := j.lifecycle.RunLifecycle(ctx)
	if err != nil {
		return fmt.Errorf("season lifecycle: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"activated":      len(result.Activated),
		"finalized":      len(result.Finalized),
		"badges_awarded": result.BadgesAwarded,
	})
	j.logg.Info(logCtx, "season lifecycle pass complete")
	return nil
}
