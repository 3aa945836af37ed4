package domain

import "time"

// Coffee is a catalogued coffee bean entry.
type Coffee struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShopID           *string      `json:"shopID,omitempty"`
	Origin           string       `json:"origin,omitempty"`
	ProcessingMethod string       `json:"processingMethod,omitempty"`
	Flavor           string       `json:"flavor,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Recipe           Recipe       `json:"recipe"`
	Assignments      []Assignment `json:"assignments"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Recipe holds the espresso dial-in parameters for a double shot.
type Recipe struct {
	InGrams      *float64 `json:"inGrams,omitempty"`
	OutGrams     *float64 `json:"outGrams,omitempty"`
	TimeSeconds  *int     `json:"timeSeconds,omitempty"`
	TemperatureC *int     `json:"temperatureC,omitempty"`
}

// HasData reports whether any recipe field is filled in.
func (r Recipe) HasData() bool {
	return r.InGrams != nil || r.OutGrams != nil || r.TimeSeconds != nil || r.TemperatureC != nil
}

// SingleShot halves the weight fields. Time and temperature are unchanged,
// they do not scale with dose.
func (r Recipe) SingleShot() Recipe {
	out := r
	if r.InGrams != nil {
		v := *r.InGrams / 2
		out.InGrams = &v
	}
	if r.OutGrams != nil {
		v := *r.OutGrams / 2
		out.OutGrams = &v
	}
	return out
}

// AssignedTo reports whether the coffee currently occupies the container.
func (c Coffee) AssignedTo(containerID string) bool {
	for _, a := range c.Assignments {
		if a.ContainerID == containerID {
			return true
		}
	}
	return false
}

// ContainerIDs returns the coffee's current container set.
func (c Coffee) ContainerIDs() []string {
	ids := make([]string, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		ids = append(ids, a.ContainerID)
	}
	return ids
}

// Shop is a roaster the beans were bought from.
type Shop struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	LogoURL string `json:"logoURL,omitempty"`
}

// Favorite marks a coffee as a favorite of a user.
type Favorite struct {
	UserID   string    `json:"userID"`
	CoffeeID string    `json:"coffeeID"`
	CDate    time.Time `json:"cdate"`
}

// User is a local credentials account.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	PasswordHash string `json:"-"`
}
