package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beanvault/beanvault/internal/domain"
)

// CatalogRepository defines the storage operations the assignment flow needs.
// Exclusive and bulk commits run evict-then-assign inside one transaction and
// return StaleConflictError when the occupant drifted since the check.
type CatalogRepository interface {
	ListItemsWithAssignments(ctx context.Context) ([]domain.Coffee, error)
	ListContainers(ctx context.Context) ([]domain.Container, error)
	HasAssignment(ctx context.Context, coffeeID, containerID string) (bool, error)
	CreateAssignment(ctx context.Context, coffeeID, containerID, actingUserID string) error
	DeleteAssignment(ctx context.Context, coffeeID, containerID string) error
	AssignExclusive(ctx context.Context, coffeeID, containerID, actingUserID, expectedOccupantID string) error
	ReplaceAssignments(ctx context.Context, coffeeID string, containerIDs []string, actingUserID string, expectedOccupants map[string]string) error
}

// Confirmer presents a yes/no prompt to the operator. It must resolve exactly
// once; a context cancellation while waiting counts as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Notifier emits fire-and-forget status feedback.
type Notifier interface {
	Notify(ctx context.Context, level, message string)
}

// AuthGate reports whether the requester may mutate the catalog.
type AuthGate interface {
	IsAuthorized(ctx context.Context) bool
	ActorID(ctx context.Context) string
}

// AssignmentUsecase enforces single-occupancy-per-container and mediates the
// confirmed eviction protocol.
type AssignmentUsecase struct {
	repo      CatalogRepository
	confirmer Confirmer
	notifier  Notifier
	gate      AuthGate
}

func NewAssignmentUsecase(
	repo CatalogRepository,
	confirmer Confirmer,
	notifier Notifier,
	gate AuthGate,
) *AssignmentUsecase {
	return &AssignmentUsecase{
		repo:      repo,
		confirmer: confirmer,
		notifier:  notifier,
		gate:      gate,
	}
}

// FindOccupant returns the coffee, other than excludingID, currently assigned
// to the container. Occupancy is computed from the latest fetched snapshot;
// callers that care about staleness refresh before calling.
func (uc *AssignmentUsecase) FindOccupant(ctx context.Context, containerID, excludingID string) (*domain.Coffee, error) {
	items, err := uc.repo.ListItemsWithAssignments(ctx)
	if err != nil {
		return nil, err
	}
	return occupantOf(items, containerID, excludingID), nil
}

func occupantOf(items []domain.Coffee, containerID, excludingID string) *domain.Coffee {
	for i := range items {
		if items[i].ID == excludingID {
			continue
		}
		if items[i].AssignedTo(containerID) {
			return &items[i]
		}
	}
	return nil
}

// RequestAssignment places a coffee into a single container, additively to its
// other assignments. A conflicting occupant is evicted only after the operator
// confirms.
func (uc *AssignmentUsecase) RequestAssignment(ctx context.Context, itemID, containerID, displayName string) domain.Outcome {
	outcome := uc.requestAssignment(ctx, itemID, containerID, displayName)
	outcome.ItemID = itemID
	outcome.ContainerIDs = []string{containerID}
	return outcome
}

func (uc *AssignmentUsecase) requestAssignment(ctx context.Context, itemID, containerID, displayName string) domain.Outcome {
	if !uc.gate.IsAuthorized(ctx) {
		uc.notifier.Notify(ctx, "info", "Login required to add or edit content.")
		return domain.Outcome{Code: domain.OutcomeUnauthorized}
	}

	container, err := uc.resolveContainer(ctx, containerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.notifier.Notify(ctx, "error", fmt.Sprintf("Unknown container %q.", containerID))
			return domain.Outcome{Code: domain.OutcomeInvalidContainer, Err: err}
		}
		uc.notifier.Notify(ctx, "error", "Failed to load catalog. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
	}

	items, err := uc.repo.ListItemsWithAssignments(ctx)
	if err != nil {
		uc.notifier.Notify(ctx, "error", "Failed to load catalog. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
	}

	for i := range items {
		if items[i].ID == itemID && items[i].AssignedTo(containerID) {
			uc.notifier.Notify(ctx, "info", fmt.Sprintf("%q is already in the %s.", displayName, container.Name))
			return domain.Outcome{Code: domain.OutcomeNoOp}
		}
	}

	occupant := occupantOf(items, containerID, itemID)

	var conflicts []domain.Conflict
	if occupant != nil {
		conflicts = []domain.Conflict{{Container: container, Occupant: *occupant}}
		prompt := fmt.Sprintf(
			"The %s is already in use by %q. Assigning %q will remove %q from this container. Continue?",
			container.Name, occupant.Name, displayName, occupant.Name,
		)
		confirmed, err := uc.confirmer.Confirm(ctx, prompt)
		if err != nil || !confirmed {
			uc.notifier.Notify(ctx, "info", "Assignment cancelled.")
			return domain.Outcome{Code: domain.OutcomeCancelled, Conflicts: conflicts}
		}
	}

	expected := ""
	if occupant != nil {
		expected = occupant.ID
	}

	actor := uc.gate.ActorID(ctx)
	err = uc.repo.AssignExclusive(ctx, itemID, containerID, actor, expected)
	if err != nil {
		if errors.Is(err, domain.ErrStaleConflict) {
			uc.notifier.Notify(ctx, "warning", fmt.Sprintf("The %s changed while you were deciding. Please retry.", container.Name))
			return domain.Outcome{Code: domain.OutcomeStaleConflict, Conflicts: conflicts, Err: err}
		}
		uc.notifier.Notify(ctx, "error", "Failed to update container. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Conflicts: conflicts, Err: err}
	}

	uc.notifier.Notify(ctx, "success", fmt.Sprintf("%q assigned to the %s!", displayName, container.Name))

	outcome := domain.Outcome{Code: domain.OutcomeAssigned, Conflicts: conflicts}
	if occupant != nil {
		outcome.Evicted = []domain.Coffee{*occupant}
	}
	return outcome
}

// RequestRemoval unassigns a coffee from a container it currently occupies.
// Removing an unassigned pair is a no-op and issues no store write.
func (uc *AssignmentUsecase) RequestRemoval(ctx context.Context, itemID, containerID, displayName string) domain.Outcome {
	outcome := uc.requestRemoval(ctx, itemID, containerID, displayName)
	outcome.ItemID = itemID
	outcome.ContainerIDs = []string{containerID}
	return outcome
}

func (uc *AssignmentUsecase) requestRemoval(ctx context.Context, itemID, containerID, displayName string) domain.Outcome {
	if !uc.gate.IsAuthorized(ctx) {
		uc.notifier.Notify(ctx, "info", "Login required to add or edit content.")
		return domain.Outcome{Code: domain.OutcomeUnauthorized}
	}

	has, err := uc.repo.HasAssignment(ctx, itemID, containerID)
	if err != nil {
		uc.notifier.Notify(ctx, "error", "Failed to load catalog. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
	}
	if !has {
		uc.notifier.Notify(ctx, "info", fmt.Sprintf("%q is not in that container.", displayName))
		return domain.Outcome{Code: domain.OutcomeNoOp}
	}

	containerName := containerID
	if container, err := uc.resolveContainer(ctx, containerID); err == nil {
		containerName = container.Name
	}

	prompt := fmt.Sprintf("Remove %q from the %s?", displayName, containerName)
	confirmed, err := uc.confirmer.Confirm(ctx, prompt)
	if err != nil || !confirmed {
		uc.notifier.Notify(ctx, "info", "Removal cancelled.")
		return domain.Outcome{Code: domain.OutcomeCancelled}
	}

	if err := uc.repo.DeleteAssignment(ctx, itemID, containerID); err != nil {
		uc.notifier.Notify(ctx, "error", "Failed to update container. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
	}

	uc.notifier.Notify(ctx, "success", fmt.Sprintf("%q removed from the %s!", displayName, containerName))
	return domain.Outcome{Code: domain.OutcomeRemoved}
}

// RequestBulkAssignment replaces a coffee's whole container set, evicting
// every conflicting occupant. One decision governs the entire batch; partial
// acceptance is not supported.
func (uc *AssignmentUsecase) RequestBulkAssignment(ctx context.Context, itemID string, containerIDs []string, displayName string) domain.Outcome {
	containerIDs = dedupe(containerIDs)
	outcome := uc.requestBulkAssignment(ctx, itemID, containerIDs, displayName)
	outcome.ItemID = itemID
	outcome.ContainerIDs = containerIDs
	return outcome
}

func (uc *AssignmentUsecase) requestBulkAssignment(ctx context.Context, itemID string, containerIDs []string, displayName string) domain.Outcome {
	if !uc.gate.IsAuthorized(ctx) {
		uc.notifier.Notify(ctx, "info", "Login required to add or edit content.")
		return domain.Outcome{Code: domain.OutcomeUnauthorized}
	}

	containers := make([]domain.Container, 0, len(containerIDs))
	for _, cid := range containerIDs {
		container, err := uc.resolveContainer(ctx, cid)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				uc.notifier.Notify(ctx, "error", fmt.Sprintf("Unknown container %q.", cid))
				return domain.Outcome{Code: domain.OutcomeInvalidContainer, Err: err}
			}
			uc.notifier.Notify(ctx, "error", "Failed to load catalog. Please try again.")
			return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
		}
		containers = append(containers, container)
	}

	items, err := uc.repo.ListItemsWithAssignments(ctx)
	if err != nil {
		uc.notifier.Notify(ctx, "error", "Failed to load catalog. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Err: err}
	}

	var current []string
	for i := range items {
		if items[i].ID == itemID {
			current = items[i].ContainerIDs()
			break
		}
	}
	if sameSet(current, containerIDs) {
		uc.notifier.Notify(ctx, "info", "Containers unchanged.")
		return domain.Outcome{Code: domain.OutcomeNoOp}
	}

	var conflicts []domain.Conflict
	expected := make(map[string]string)
	for _, container := range containers {
		if occupant := occupantOf(items, container.ID, itemID); occupant != nil {
			conflicts = append(conflicts, domain.Conflict{Container: container, Occupant: *occupant})
			expected[container.ID] = occupant.ID
		}
	}

	if len(conflicts) > 0 {
		var lines []string
		for _, c := range conflicts {
			lines = append(lines, fmt.Sprintf("The %s is already in use by %q.", c.Container.Name, c.Occupant.Name))
		}
		lines = append(lines, fmt.Sprintf("Assigning %q will remove the existing coffees from these containers. Continue?", displayName))
		confirmed, err := uc.confirmer.Confirm(ctx, strings.Join(lines, "\n"))
		if err != nil || !confirmed {
			uc.notifier.Notify(ctx, "info", "Assignment cancelled.")
			return domain.Outcome{Code: domain.OutcomeCancelled, Conflicts: conflicts}
		}
	}

	actor := uc.gate.ActorID(ctx)
	err = uc.repo.ReplaceAssignments(ctx, itemID, containerIDs, actor, expected)
	if err != nil {
		if errors.Is(err, domain.ErrStaleConflict) {
			uc.notifier.Notify(ctx, "warning", "A container changed while you were deciding. Please retry.")
			return domain.Outcome{Code: domain.OutcomeStaleConflict, Conflicts: conflicts, Err: err}
		}
		uc.notifier.Notify(ctx, "error", "Failed to update containers. Please try again.")
		return domain.Outcome{Code: domain.OutcomeFailed, Conflicts: conflicts, Err: err}
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.Name)
	}
	switch len(names) {
	case 0:
		uc.notifier.Notify(ctx, "success", fmt.Sprintf("%q removed from all containers!", displayName))
	case 1:
		uc.notifier.Notify(ctx, "success", fmt.Sprintf("%q assigned to the %s!", displayName, names[0]))
	default:
		uc.notifier.Notify(ctx, "success", fmt.Sprintf("%q assigned to %s!", displayName, strings.Join(names, " and ")))
	}

	outcome := domain.Outcome{Code: domain.OutcomeAssigned, Conflicts: conflicts}
	for _, c := range conflicts {
		outcome.Evicted = append(outcome.Evicted, c.Occupant)
	}
	return outcome
}

func (uc *AssignmentUsecase) resolveContainer(ctx context.Context, containerID string) (domain.Container, error) {
	containers, err := uc.repo.ListContainers(ctx)
	if err != nil {
		return domain.Container{}, err
	}
	// An empty store exposes the two fixed legacy slots, same as the
	// container listing, so flag-era occupants stay evictable.
	if len(containers) == 0 {
		containers = domain.LegacyContainers
	}
	for _, c := range containers {
		if c.ID == containerID {
			return c, nil
		}
	}
	return domain.Container{}, domain.NotFoundError{Resource: "container"}
}

// dedupe keeps the first occurrence of each id. A repeated container in one
// batch would otherwise insert the same assignment row twice.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}
