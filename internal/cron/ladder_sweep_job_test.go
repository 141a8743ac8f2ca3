package cron

import (
	"context"
	"errors"
	"testing"

	badge "github.com/calderonstudio/ranking-backend/internal/badges"
	"github.com/calderonstudio/ranking-backend/pkg/logger"
)

type fakeSweeper struct {
	result badge.SweepResult
	err    error
	calls  int
}

func (f *fakeSweeper) SweepLadder(context.Context) (badge.SweepResult, error) {
	f.calls++
	return f.result, f.err
}

func TestLadderSweepJobRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{
		result: badge.SweepResult{CustomersSeen: 10, BadgesAwarded: 2, TierPromotions: 1},
	}
	job, err := NewLadderSweepJob(LadderSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewLadderSweepJob: %v", err)
	}
	if job.Name() != "ladder-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
}

func TestLadderSweepJobPropagatesError(t *testing.T) {
	job, err := NewLadderSweepJob(LadderSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: &fakeSweeper{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewLadderSweepJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
