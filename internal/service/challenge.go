package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type ChallengeService interface {
	CreateChallenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error)
	GetChallenge(ctx context.Context, id string) (*entity.Challenge, error)
	ListPending(ctx context.Context, identity string) ([]*entity.Challenge, error)
	UpdateChallenge(ctx context.Context, challenge *entity.Challenge) error
	DeleteChallenge(ctx context.Context, id string) error
}

type challengeRepo interface {
	CreateOrUpdate(ctx context.Context, challenge *entity.Challenge) error
	GetByID(ctx context.Context, id string) (*entity.Challenge, error)
	ListByIdentity(ctx context.Context, identity string) ([]*entity.Challenge, error)
	DeleteByID(ctx context.Context, id string) error
}

type challengeService struct {
	challengeRepo challengeRepo
}

func NewChallengeService(challengeRepo challengeRepo) ChallengeService {
	return &challengeService{
		challengeRepo: challengeRepo,
	}
}

// CreateChallenge stores a pending challenge. Only one pending challenge may exist per pair,
// whichever side sent it.
func (that *challengeService) CreateChallenge(ctx context.Context, challengerID, challengedID string, size int) (*entity.Challenge, error) {
	if challengerID == challengedID {
		return nil, apperror.ErrSelfChallenge
	}

	if size == 0 {
		size = entity.DefaultGridSize
	}

	if err := entity.ValidateGridSize(size); err != nil {
		return nil, err
	}

	pending, err := that.ListPending(ctx, challengerID)
	if err != nil {
		return nil, err
	}

	for _, challenge := range pending {
		if challenge.Involves(challengerID, challengedID) {
			return nil, apperror.ErrChallengeExists
		}
	}

	challenge := &entity.Challenge{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Status:       entity.ChallengePending,
		GridSize:     size,
		CreatedAt:    time.Now().UTC(),
	}

	if err = that.challengeRepo.CreateOrUpdate(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	return challenge, nil
}

func (that *challengeService) GetChallenge(ctx context.Context, id string) (*entity.Challenge, error) {
	challenge, err := that.challengeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return challenge, nil
}

func (that *challengeService) ListPending(ctx context.Context, identity string) ([]*entity.Challenge, error) {
	challenges, err := that.challengeRepo.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	pending := make([]*entity.Challenge, 0, len(challenges))
	for _, challenge := range challenges {
		if challenge.IsPending() {
			pending = append(pending, challenge)
		}
	}

	return pending, nil
}

func (that *challengeService) UpdateChallenge(ctx context.Context, challenge *entity.Challenge) error {
	if err := that.challengeRepo.CreateOrUpdate(ctx, challenge); err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}

	return nil
}

func (that *challengeService) DeleteChallenge(ctx context.Context, id string) error {
	if err := that.challengeRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}

	return nil
}
