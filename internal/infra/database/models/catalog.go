package models

import (
	"time"
)

type CoffeeBean struct {
	ID               string  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name             string  `json:"name" gorm:"type:text;not null;index:coffee_bean_name,unique"`
	ShopID           *string `json:"shopID" gorm:"type:uuid;index"`
	Shop             *Shop   `json:"-" gorm:"constraint:OnDelete:SET NULL;"`
	Origin           string  `json:"origin" gorm:"type:text"`
	ProcessingMethod string  `json:"processingMethod" gorm:"type:text"`
	Flavor           string  `json:"flavor" gorm:"type:text"`
	Notes            string  `json:"notes" gorm:"type:text"`

	RecipeInGrams      *float64 `json:"recipeInGrams" gorm:"type:numeric"`
	RecipeOutGrams     *float64 `json:"recipeOutGrams" gorm:"type:numeric"`
	RecipeTimeSeconds  *int     `json:"recipeTimeSeconds"`
	RecipeTemperatureC *int     `json:"recipeTemperatureC"`

	// Boolean-flag columns from before containers became rows. Read-only;
	// the repository maps them onto the legacy fixed containers.
	InGreenContainer bool `json:"inGreenContainer" gorm:"type:boolean;not null;default:false"`
	InGreyContainer  bool `json:"inGreyContainer" gorm:"type:boolean;not null;default:false"`

	Assignments []ContainerAssignment `json:"assignments" gorm:"foreignKey:CoffeeID"`

	CDate time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Shop struct {
	ID      string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name    string    `json:"name" gorm:"type:text;not null"`
	URL     string    `json:"url" gorm:"type:text"`
	LogoURL string    `json:"logoURL" gorm:"type:text"`
	CDate   time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Container struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	OwnerID      string    `json:"ownerID" gorm:"type:text;index"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	Color        string    `json:"color" gorm:"type:text"`
	DisplayOrder int       `json:"displayOrder" gorm:"not null;default:0"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// ContainerAssignment links a coffee to the container it occupies. The unique
// index on container_id is the storage-level backstop for single occupancy.
type ContainerAssignment struct {
	CoffeeID    string     `json:"coffeeID" gorm:"primaryKey;type:uuid"`
	Coffee      CoffeeBean `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	ContainerID string     `json:"containerID" gorm:"primaryKey;type:text;uniqueIndex:uniq_container_occupant"`
	Container   Container  `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	AssignedBy  string     `json:"assignedBy" gorm:"type:text"`
	CDate       time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type UserFavorite struct {
	UserID   string     `json:"userID" gorm:"primaryKey;type:text"`
	CoffeeID string     `json:"coffeeID" gorm:"primaryKey;type:uuid"`
	Coffee   CoffeeBean `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	CDate    time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"type:text;not null;index:user_email,unique"`
	DisplayName  string    `json:"displayName" gorm:"type:text"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
