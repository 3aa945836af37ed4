package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/infra/database/models"
)

type ShopRepository struct {
	db *gorm.DB
}

func NewShopRepository(db *gorm.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

func (r *ShopRepository) List(ctx context.Context) ([]domain.Shop, error) {
	var rows []models.Shop
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	shops := make([]domain.Shop, 0, len(rows))
	for _, row := range rows {
		shops = append(shops, shopToDomain(row))
	}
	return shops, nil
}

func (r *ShopRepository) Get(ctx context.Context, id string) (domain.Shop, error) {
	var row models.Shop
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Shop{}, domain.NotFoundError{Resource: "shop"}
		}
		return domain.Shop{}, err
	}
	return shopToDomain(row), nil
}

func (r *ShopRepository) Create(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	row := models.Shop{
		ID:      shop.ID,
		Name:    shop.Name,
		URL:     shop.URL,
		LogoURL: shop.LogoURL,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		return domain.Shop{}, err
	}
	return shopToDomain(row), nil
}

func (r *ShopRepository) Update(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shop.ID).
		Updates(map[string]any{
			"name":     shop.Name,
			"url":      shop.URL,
			"logo_url": shop.LogoURL,
		})
	if result.Error != nil {
		return domain.Shop{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Shop{}, domain.NotFoundError{Resource: "shop"}
	}

	return r.Get(ctx, shop.ID)
}

func (r *ShopRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Shop{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "shop"}
	}
	return nil
}

func shopToDomain(row models.Shop) domain.Shop {
	return domain.Shop{
		ID:      row.ID,
		Name:    row.Name,
		URL:     row.URL,
		LogoURL: row.LogoURL,
	}
}
