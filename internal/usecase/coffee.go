package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/beanvault/beanvault/internal/domain"
)

// CoffeeRepository defines persistence for coffee entries.
type CoffeeRepository interface {
	List(ctx context.Context) ([]domain.Coffee, error)
	Get(ctx context.Context, id string) (domain.Coffee, error)
	Create(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error)
	Update(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error)
	Delete(ctx context.Context, id string) error
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type CoffeeUsecase struct {
	repo CoffeeRepository
	gate AuthGate
}

func NewCoffeeUsecase(repo CoffeeRepository, gate AuthGate) *CoffeeUsecase {
	return &CoffeeUsecase{repo: repo, gate: gate}
}

func (uc *CoffeeUsecase) List(ctx context.Context) ([]domain.Coffee, error) {
	return uc.repo.List(ctx)
}

func (uc *CoffeeUsecase) Get(ctx context.Context, id string) (domain.Coffee, error) {
	return uc.repo.Get(ctx, id)
}

// Create registers a new coffee entry. Names are unique case-insensitively.
func (uc *CoffeeUsecase) Create(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Coffee{}, domain.ErrUnauthorized
	}

	coffee.Name = strings.TrimSpace(coffee.Name)
	if coffee.Name == "" {
		return domain.Coffee{}, fmt.Errorf("coffee name is required")
	}

	exists, err := uc.repo.ExistsByName(ctx, coffee.Name)
	if err != nil {
		return domain.Coffee{}, err
	}
	if exists {
		return domain.Coffee{}, domain.DuplicateError{Resource: "coffee"}
	}

	return uc.repo.Create(ctx, coffee)
}

func (uc *CoffeeUsecase) Update(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Coffee{}, domain.ErrUnauthorized
	}

	coffee.Name = strings.TrimSpace(coffee.Name)
	if coffee.Name == "" {
		return domain.Coffee{}, fmt.Errorf("coffee name is required")
	}

	return uc.repo.Update(ctx, coffee)
}

func (uc *CoffeeUsecase) Delete(ctx context.Context, id string) error {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.ErrUnauthorized
	}
	return uc.repo.Delete(ctx, id)
}
