package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/infra/database/models"
)

type ContainerRepository struct {
	db *gorm.DB
}

func NewContainerRepository(db *gorm.DB) *ContainerRepository {
	return &ContainerRepository{db: db}
}

func (r *ContainerRepository) List(ctx context.Context) ([]domain.Container, error) {
	var rows []models.Container
	err := r.db.WithContext(ctx).
		Order("display_order ASC, c_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	containers := make([]domain.Container, 0, len(rows))
	for _, row := range rows {
		containers = append(containers, containerToDomain(row))
	}
	return containers, nil
}

func (r *ContainerRepository) Get(ctx context.Context, id string) (domain.Container, error) {
	var row models.Container
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Container{}, domain.NotFoundError{Resource: "container"}
		}
		return domain.Container{}, err
	}
	return containerToDomain(row), nil
}

func (r *ContainerRepository) Create(ctx context.Context, container domain.Container) (domain.Container, error) {
	row := models.Container{
		ID:           container.ID,
		OwnerID:      container.OwnerID,
		Name:         container.Name,
		Color:        container.Color,
		DisplayOrder: container.DisplayOrder,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Container{}, domain.DuplicateError{Resource: "container"}
		}
		return domain.Container{}, err
	}
	return containerToDomain(row), nil
}

func (r *ContainerRepository) Update(ctx context.Context, container domain.Container) (domain.Container, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Container{}).
		Where("id = ?", container.ID).
		Updates(map[string]any{
			"name":          container.Name,
			"color":         container.Color,
			"display_order": container.DisplayOrder,
		})
	if result.Error != nil {
		return domain.Container{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Container{}, domain.NotFoundError{Resource: "container"}
	}

	return r.Get(ctx, container.ID)
}

// Delete removes the container; assignment rows cascade away with it.
func (r *ContainerRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Container{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "container"}
	}
	return nil
}

func containerToDomain(row models.Container) domain.Container {
	return domain.Container{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		Name:         row.Name,
		Color:        row.Color,
		DisplayOrder: row.DisplayOrder,
	}
}
