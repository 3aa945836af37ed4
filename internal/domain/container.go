package domain

import "time"

// Container is a named physical storage slot. At most one coffee may hold an
// assignment to a container at any time; the assignment usecase protects this.
type Container struct {
	ID           string `json:"id"`
	OwnerID      string `json:"ownerID,omitempty"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"displayOrder"`
}

// Assignment links a coffee to the container it currently occupies.
type Assignment struct {
	CoffeeID    string    `json:"coffeeID"`
	ContainerID string    `json:"containerID"`
	AssignedBy  string    `json:"assignedBy,omitempty"`
	CDate       time.Time `json:"cdate"`
}

// Conflict describes a container whose current occupant would be evicted.
type Conflict struct {
	Container Container `json:"container"`
	Occupant  Coffee    `json:"occupant"`
}

// Legacy boolean-flag container IDs. Old coffee_beans rows carried
// in_green_container / in_grey_container flags instead of assignment rows.
const (
	LegacyGreenContainerID = "green"
	LegacyGreyContainerID  = "grey"
)

// LegacyContainers are the two fixed slots of the boolean-flag model,
// exposed so flag-era data can be read through the relational API.
var LegacyContainers = []Container{
	{ID: LegacyGreenContainerID, Name: "Green Container", Color: "#22c55e", DisplayOrder: 1},
	{ID: LegacyGreyContainerID, Name: "Grey Container", Color: "#64748b", DisplayOrder: 2},
}
