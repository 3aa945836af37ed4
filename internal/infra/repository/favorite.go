package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/infra/database/models"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var rows []models.UserFavorite
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("c_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	favorites := make([]domain.Favorite, 0, len(rows))
	for _, row := range rows {
		favorites = append(favorites, domain.Favorite{
			UserID:   row.UserID,
			CoffeeID: row.CoffeeID,
			CDate:    row.CDate,
		})
	}
	return favorites, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, coffeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserFavorite{}).
		Where("user_id = ? AND coffee_id = ?", userID, coffeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, coffeeID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.UserFavorite{
		UserID:   userID,
		CoffeeID: coffeeID,
	}).Error
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, coffeeID string) error {
	return r.db.WithContext(ctx).Delete(&models.UserFavorite{},
		"user_id = ? AND coffee_id = ?", userID, coffeeID).Error
}
