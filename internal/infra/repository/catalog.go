package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/infra/database/models"
)

const snapshotKey = "beanvault:catalog:snapshot"
const snapshotTTL = 5 // seconds

// CatalogRepository implements the storage side of the assignment flow.
// Commits run evict-then-assign inside one transaction with the occupant row
// locked, so a container is never observed with two occupants.
type CatalogRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewCatalogRepository(db *gorm.DB, mc *memcache.Client) *CatalogRepository {
	return &CatalogRepository{db: db, mc: mc}
}

// ListItemsWithAssignments returns every coffee annotated with its current
// assignment set. A short-lived memcached snapshot absorbs the repeated reads
// the conflict check issues; every mutation drops it.
func (r *CatalogRepository) ListItemsWithAssignments(ctx context.Context) ([]domain.Coffee, error) {
	if r.mc != nil {
		if item, err := r.mc.Get(snapshotKey); err == nil {
			var cached []domain.Coffee
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

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

	if r.mc != nil {
		if encoded, err := json.Marshal(coffees); err == nil {
			_ = r.mc.Set(&memcache.Item{Key: snapshotKey, Value: encoded, Expiration: snapshotTTL})
		}
	}

	return coffees, nil
}

func (r *CatalogRepository) ListContainers(ctx context.Context) ([]domain.Container, error) {
	var rows []models.Container
	err := r.db.WithContext(ctx).
		Order("display_order ASC, c_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	containers := make([]domain.Container, 0, len(rows))
	for _, row := range rows {
		containers = append(containers, domain.Container{
			ID:           row.ID,
			OwnerID:      row.OwnerID,
			Name:         row.Name,
			Color:        row.Color,
			DisplayOrder: row.DisplayOrder,
		})
	}
	return containers, nil
}

func (r *CatalogRepository) HasAssignment(ctx context.Context, coffeeID, containerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContainerAssignment{}).
		Where("coffee_id = ? AND container_id = ?", coffeeID, containerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	// Flag-era rows have no assignment row for the fixed slots.
	if flagColumn(containerID) != "" {
		var bean models.CoffeeBean
		err := r.db.WithContext(ctx).
			Select("in_green_container", "in_grey_container").
			Where("id = ?", coffeeID).
			Take(&bean).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, nil
			}
			return false, err
		}
		switch containerID {
		case domain.LegacyGreenContainerID:
			return bean.InGreenContainer, nil
		case domain.LegacyGreyContainerID:
			return bean.InGreyContainer, nil
		}
	}

	return false, nil
}

func (r *CatalogRepository) CreateAssignment(ctx context.Context, coffeeID, containerID, actingUserID string) error {
	defer r.dropSnapshot()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.ContainerAssignment{
		CoffeeID:    coffeeID,
		ContainerID: containerID,
		AssignedBy:  actingUserID,
	}).Error
}

func (r *CatalogRepository) DeleteAssignment(ctx context.Context, coffeeID, containerID string) error {
	defer r.dropSnapshot()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Delete(&models.ContainerAssignment{},
			"coffee_id = ? AND container_id = ?", coffeeID, containerID).Error
		if err != nil {
			return err
		}
		return clearLegacyFlag(tx, coffeeID, containerID)
	})
}

// AssignExclusive evicts the container's occupant and assigns the coffee, in
// one transaction. expectedOccupantID is the occupant seen at check time; a
// different occupant under the lock aborts with StaleConflictError.
func (r *CatalogRepository) AssignExclusive(ctx context.Context, coffeeID, containerID, actingUserID, expectedOccupantID string) error {
	defer r.dropSnapshot()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := evictOccupant(tx, containerID, coffeeID, expectedOccupantID); err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			DoNothing: true,
		}).Create(&models.ContainerAssignment{
			CoffeeID:    coffeeID,
			ContainerID: containerID,
			AssignedBy:  actingUserID,
		}).Error
	})
}

// ReplaceAssignments swaps the coffee's whole assignment set, evicting the
// expected occupant of every requested container first. Any occupant drift
// aborts the batch.
func (r *CatalogRepository) ReplaceAssignments(ctx context.Context, coffeeID string, containerIDs []string, actingUserID string, expectedOccupants map[string]string) error {
	defer r.dropSnapshot()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, containerID := range containerIDs {
			if err := evictOccupant(tx, containerID, coffeeID, expectedOccupants[containerID]); err != nil {
				return err
			}
		}

		err := tx.Delete(&models.ContainerAssignment{}, "coffee_id = ?", coffeeID).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.CoffeeBean{}).
			Where("id = ?", coffeeID).
			Updates(map[string]any{"in_green_container": false, "in_grey_container": false}).Error
		if err != nil {
			return err
		}

		for _, containerID := range containerIDs {
			err := tx.Create(&models.ContainerAssignment{
				CoffeeID:    coffeeID,
				ContainerID: containerID,
				AssignedBy:  actingUserID,
			}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// evictOccupant locks and removes the current occupant of a container,
// verifying it still is the occupant the caller saw.
func evictOccupant(tx *gorm.DB, containerID, assigningCoffeeID, expectedOccupantID string) error {
	var occupants []models.ContainerAssignment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("container_id = ? AND coffee_id <> ?", containerID, assigningCoffeeID).
		Find(&occupants).Error
	if err != nil {
		return err
	}

	actual := ""
	if len(occupants) > 0 {
		actual = occupants[0].CoffeeID
	}
	if actual != expectedOccupantID {
		return domain.StaleConflictError{
			ContainerID: containerID,
			ExpectedID:  expectedOccupantID,
			ActualID:    actual,
		}
	}

	if len(occupants) > 0 {
		err := tx.Delete(&models.ContainerAssignment{},
			"container_id = ? AND coffee_id <> ?", containerID, assigningCoffeeID).Error
		if err != nil {
			return err
		}
	}

	// Flag-era occupants hold the fixed slots through boolean columns.
	if column := flagColumn(containerID); column != "" {
		err := tx.Model(&models.CoffeeBean{}).
			Where(fmt.Sprintf("%s = ? AND id <> ?", column), true, assigningCoffeeID).
			Update(column, false).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func clearLegacyFlag(tx *gorm.DB, coffeeID, containerID string) error {
	column := flagColumn(containerID)
	if column == "" {
		return nil
	}
	return tx.Model(&models.CoffeeBean{}).
		Where("id = ?", coffeeID).
		Update(column, false).Error
}

func flagColumn(containerID string) string {
	switch containerID {
	case domain.LegacyGreenContainerID:
		return "in_green_container"
	case domain.LegacyGreyContainerID:
		return "in_grey_container"
	}
	return ""
}

func (r *CatalogRepository) dropSnapshot() {
	if r.mc != nil {
		_ = r.mc.Delete(snapshotKey)
	}
}

func beanToDomain(bean models.CoffeeBean) domain.Coffee {
	coffee := domain.Coffee{
		ID:               bean.ID,
		Name:             bean.Name,
		ShopID:           bean.ShopID,
		Origin:           bean.Origin,
		ProcessingMethod: bean.ProcessingMethod,
		Flavor:           bean.Flavor,
		Notes:            bean.Notes,
		Recipe: domain.Recipe{
			InGrams:      bean.RecipeInGrams,
			OutGrams:     bean.RecipeOutGrams,
			TimeSeconds:  bean.RecipeTimeSeconds,
			TemperatureC: bean.RecipeTemperatureC,
		},
		CreatedAt: bean.CDate,
		UpdatedAt: bean.MDate,
	}

	for _, a := range bean.Assignments {
		coffee.Assignments = append(coffee.Assignments, domain.Assignment{
			CoffeeID:    a.CoffeeID,
			ContainerID: a.ContainerID,
			AssignedBy:  a.AssignedBy,
			CDate:       a.CDate,
		})
	}

	// Merge flag-era membership so old rows appear through the relational API.
	if bean.InGreenContainer && !coffee.AssignedTo(domain.LegacyGreenContainerID) {
		coffee.Assignments = append(coffee.Assignments, domain.Assignment{
			CoffeeID:    bean.ID,
			ContainerID: domain.LegacyGreenContainerID,
			CDate:       bean.CDate,
		})
	}
	if bean.InGreyContainer && !coffee.AssignedTo(domain.LegacyGreyContainerID) {
		coffee.Assignments = append(coffee.Assignments, domain.Assignment{
			CoffeeID:    bean.ID,
			ContainerID: domain.LegacyGreyContainerID,
			CDate:       bean.CDate,
		})
	}

	return coffee
}
