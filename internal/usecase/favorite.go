package usecase

import (
	"context"

	"github.com/beanvault/beanvault/internal/domain"
)

// FavoriteRepository defines persistence for per-user coffee favorites.
type FavoriteRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Favorite, error)
	Exists(ctx context.Context, userID, coffeeID string) (bool, error)
	Add(ctx context.Context, userID, coffeeID string) error
	Remove(ctx context.Context, userID, coffeeID string) error
}

type FavoriteUsecase struct {
	repo FavoriteRepository
	gate AuthGate
}

func NewFavoriteUsecase(repo FavoriteRepository, gate AuthGate) *FavoriteUsecase {
	return &FavoriteUsecase{repo: repo, gate: gate}
}

func (uc *FavoriteUsecase) List(ctx context.Context) ([]domain.Favorite, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return nil, domain.ErrUnauthorized
	}
	return uc.repo.ListByUser(ctx, uc.gate.ActorID(ctx))
}

// Toggle flips the favorite mark for the requester and reports the new state.
func (uc *FavoriteUsecase) Toggle(ctx context.Context, coffeeID string) (bool, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return false, domain.ErrUnauthorized
	}

	userID := uc.gate.ActorID(ctx)
	exists, err := uc.repo.Exists(ctx, userID, coffeeID)
	if err != nil {
		return false, err
	}

	if exists {
		if err := uc.repo.Remove(ctx, userID, coffeeID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := uc.repo.Add(ctx, userID, coffeeID); err != nil {
		return false, err
	}
	return true, nil
}
