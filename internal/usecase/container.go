package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/beanvault/beanvault"
	"github.com/beanvault/beanvault/internal/domain"
)

// ContainerRepository defines persistence for containers.
type ContainerRepository interface {
	List(ctx context.Context) ([]domain.Container, error)
	Get(ctx context.Context, id string) (domain.Container, error)
	Create(ctx context.Context, container domain.Container) (domain.Container, error)
	Update(ctx context.Context, container domain.Container) (domain.Container, error)
	Delete(ctx context.Context, id string) error
}

type ContainerUsecase struct {
	repo ContainerRepository
	gate AuthGate
}

func NewContainerUsecase(repo ContainerRepository, gate AuthGate) *ContainerUsecase {
	return &ContainerUsecase{repo: repo, gate: gate}
}

// List returns containers in display order. An empty store falls back to the
// two fixed legacy slots so flag-era data stays addressable.
func (uc *ContainerUsecase) List(ctx context.Context) ([]domain.Container, error) {
	containers, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return domain.LegacyContainers, nil
	}
	return containers, nil
}

func (uc *ContainerUsecase) Create(ctx context.Context, container domain.Container) (domain.Container, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Container{}, domain.ErrUnauthorized
	}

	container.Name = strings.TrimSpace(container.Name)
	if container.Name == "" {
		return domain.Container{}, fmt.Errorf("container name is required")
	}
	if container.Color != "" && !beanvault.IsValidHexColor(container.Color) {
		return domain.Container{}, fmt.Errorf("invalid container color %q", container.Color)
	}

	container.ID = uuid.New().String()
	container.OwnerID = uc.gate.ActorID(ctx)

	return uc.repo.Create(ctx, container)
}

func (uc *ContainerUsecase) Update(ctx context.Context, container domain.Container) (domain.Container, error) {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.Container{}, domain.ErrUnauthorized
	}

	existing, err := uc.repo.Get(ctx, container.ID)
	if err != nil {
		return domain.Container{}, err
	}
	if existing.OwnerID != "" && existing.OwnerID != uc.gate.ActorID(ctx) {
		return domain.Container{}, domain.ErrUnauthorized
	}

	if container.Color != "" && !beanvault.IsValidHexColor(container.Color) {
		return domain.Container{}, fmt.Errorf("invalid container color %q", container.Color)
	}
	container.OwnerID = existing.OwnerID

	return uc.repo.Update(ctx, container)
}

// Delete removes a container. Assignments referencing it are cascaded away by
// the store.
func (uc *ContainerUsecase) Delete(ctx context.Context, id string) error {
	if !uc.gate.IsAuthorized(ctx) {
		return domain.ErrUnauthorized
	}

	existing, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != "" && existing.OwnerID != uc.gate.ActorID(ctx) {
		return domain.ErrUnauthorized
	}

	return uc.repo.Delete(ctx, id)
}
