package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type StatsService interface {
	RecordMatch(ctx context.Context, match *entity.MatchRecord) error
	GetStats(ctx context.Context, identity string) (*entity.Stats, error)
	History(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error)
	ResetStats(ctx context.Context, identity string) error
}

type matchRepo interface {
	Add(ctx context.Context, match *entity.MatchRecord) error
	ListByIdentity(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error)
	DeleteByIdentity(ctx context.Context, identity string) error
}

type statsRepo interface {
	Increment(ctx context.Context, identity string, result entity.MatchResult) error
	GetByIdentity(ctx context.Context, identity string) (*entity.Stats, error)
	DeleteByIdentity(ctx context.Context, identity string) error
}

type statsService struct {
	matchRepo matchRepo
	statsRepo statsRepo
}

// NewStatsService works over either the shared redis store or the local SQLite history.
func NewStatsService(matchRepo matchRepo, statsRepo statsRepo) StatsService {
	return &statsService{
		matchRepo: matchRepo,
		statsRepo: statsRepo,
	}
}

func (that *statsService) RecordMatch(ctx context.Context, match *entity.MatchRecord) error {
	if !match.Outcome.IsTerminal() {
		return fmt.Errorf("match %s is not finished", match.ID)
	}

	if match.Result == "" {
		match.Result = entity.ResultFor(match.Outcome, match.Mark)
	}

	if err := that.matchRepo.Add(ctx, match); err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	if err := that.statsRepo.Increment(ctx, match.Identity, match.Result); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return nil
}

func (that *statsService) GetStats(ctx context.Context, identity string) (*entity.Stats, error) {
	stats, err := that.statsRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

func (that *statsService) History(ctx context.Context, identity string, limit int) ([]*entity.MatchRecord, error) {
	matches, err := that.matchRepo.ListByIdentity(ctx, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return matches, nil
}

func (that *statsService) ResetStats(ctx context.Context, identity string) error {
	if err := that.statsRepo.DeleteByIdentity(ctx, identity); err != nil {
		return fmt.Errorf("failed to reset stats: %w", err)
	}

	if err := that.matchRepo.DeleteByIdentity(ctx, identity); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}

	return nil
}
