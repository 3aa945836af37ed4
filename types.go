package beanvault

import (
	"time"
)

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Event types broadcast whenever the catalog mutates.
const (
	EventAssignmentCreated = "assignment.created"
	EventAssignmentRemoved = "assignment.removed"
	EventCoffeeCreated     = "coffee.created"
	EventCoffeeUpdated     = "coffee.updated"
	EventCoffeeDeleted     = "coffee.deleted"
	EventNotification      = "notification"
)

// Event is the wire format for the realtime socket and the redis fan-out.
type Event struct {
	Type        string    `json:"type"`
	ItemID      string    `json:"itemID,omitempty"`
	ContainerID string    `json:"containerID,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Level       string    `json:"level,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AssignmentRequest asks the server to place a coffee into one or more
// containers. A single container toggles additively; multiple containers
// replace the coffee's whole assignment set.
type AssignmentRequest struct {
	ItemID       string   `json:"itemID"`
	ItemName     string   `json:"itemName"`
	ContainerIDs []string `json:"containerIDs"`
}

// AssignmentDecision resolves a pending conflict confirmation.
type AssignmentDecision struct {
	Token     string `json:"token"`
	Confirmed bool   `json:"confirmed"`
}

// AssignmentResult reports the terminal outcome of an assignment request.
// When Outcome is "confirmation_required" the Token must be resolved via the
// decision endpoint before the operation proceeds.
type AssignmentResult struct {
	Outcome   string   `json:"outcome"`
	ItemID    string   `json:"itemID,omitempty"`
	EvictedID string   `json:"evictedID,omitempty"`
	Token     string   `json:"token,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// LoginRequest authenticates against the local credentials provider.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userID"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ServiceInfo is served on the well-known endpoint.
type ServiceInfo struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
