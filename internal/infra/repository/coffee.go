package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/infra/database/models"
)

type CoffeeRepository struct {
	db *gorm.DB
}

func NewCoffeeRepository(db *gorm.DB) *CoffeeRepository {
	return &CoffeeRepository{db: db}
}

func (r *CoffeeRepository) List(ctx context.Context) ([]domain.Coffee, error) {
	var beans []models.CoffeeBean
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Order("c_date DESC").
		Find(&beans).Error
	if err != nil {
		return nil, err
	}

	coffees := make([]domain.Coffee, 0, len(beans))
	for _, bean := range beans {
		coffees = append(coffees, beanToDomain(bean))
	}
	return coffees, nil
}

func (r *CoffeeRepository) Get(ctx context.Context, id string) (domain.Coffee, error) {
	var bean models.CoffeeBean
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Where("id = ?", id).
		Take(&bean).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Coffee{}, domain.NotFoundError{Resource: "coffee"}
		}
		return domain.Coffee{}, err
	}
	return beanToDomain(bean), nil
}

func (r *CoffeeRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CoffeeBean{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error
	return count > 0, err
}

func (r *CoffeeRepository) Create(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	bean := beanFromDomain(coffee)

	err := r.db.WithContext(ctx).Create(&bean).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Coffee{}, domain.DuplicateError{Resource: "coffee"}
		}
		return domain.Coffee{}, err
	}
	return beanToDomain(bean), nil
}

func (r *CoffeeRepository) Update(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	updates := map[string]any{
		"name":                 coffee.Name,
		"shop_id":              coffee.ShopID,
		"origin":               coffee.Origin,
		"processing_method":    coffee.ProcessingMethod,
		"flavor":               coffee.Flavor,
		"notes":                coffee.Notes,
		"recipe_in_grams":      coffee.Recipe.InGrams,
		"recipe_out_grams":     coffee.Recipe.OutGrams,
		"recipe_time_seconds":  coffee.Recipe.TimeSeconds,
		"recipe_temperature_c": coffee.Recipe.TemperatureC,
		"m_date":               gorm.Expr("clock_timestamp()"),
	}

	result := r.db.WithContext(ctx).
		Model(&models.CoffeeBean{}).
		Where("id = ?", coffee.ID).
		Updates(updates)
	if result.Error != nil {
		return domain.Coffee{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Coffee{}, domain.NotFoundError{Resource: "coffee"}
	}

	return r.Get(ctx, coffee.ID)
}

func (r *CoffeeRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.CoffeeBean{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "coffee"}
	}
	return nil
}

func beanFromDomain(coffee domain.Coffee) models.CoffeeBean {
	return models.CoffeeBean{
		ID:                 coffee.ID,
		Name:               coffee.Name,
		ShopID:             coffee.ShopID,
		Origin:             coffee.Origin,
		ProcessingMethod:   coffee.ProcessingMethod,
		Flavor:             coffee.Flavor,
		Notes:              coffee.Notes,
		RecipeInGrams:      coffee.Recipe.InGrams,
		RecipeOutGrams:     coffee.Recipe.OutGrams,
		RecipeTimeSeconds:  coffee.Recipe.TimeSeconds,
		RecipeTemperatureC: coffee.Recipe.TemperatureC,
	}
}
