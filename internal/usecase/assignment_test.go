package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/beanvault/beanvault/internal/domain"
)

type mockCatalogRepo struct {
	items         []domain.Coffee
	containers    []domain.Container
	listErr       error
	containersErr error
	assignErr     error
	replaceErr    error

	mutations     []string
	lastExpected  map[string]string
	lastContainer []string
}

func (m *mockCatalogRepo) ListItemsWithAssignments(ctx context.Context) ([]domain.Coffee, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items, nil
}

func (m *mockCatalogRepo) ListContainers(ctx context.Context) ([]domain.Container, error) {
	if m.containersErr != nil {
		return nil, m.containersErr
	}
	return m.containers, nil
}

func (m *mockCatalogRepo) HasAssignment(ctx context.Context, coffeeID, containerID string) (bool, error) {
	if m.listErr != nil {
		return false, m.listErr
	}
	for _, item := range m.items {
		if item.ID == coffeeID && item.AssignedTo(containerID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCatalogRepo) CreateAssignment(ctx context.Context, coffeeID, containerID, actingUserID string) error {
	m.mutations = append(m.mutations, fmt.Sprintf("create %s %s", coffeeID, containerID))
	return nil
}

func (m *mockCatalogRepo) DeleteAssignment(ctx context.Context, coffeeID, containerID string) error {
	m.mutations = append(m.mutations, fmt.Sprintf("delete %s %s", coffeeID, containerID))
	return nil
}

func (m *mockCatalogRepo) AssignExclusive(ctx context.Context, coffeeID, containerID, actingUserID, expectedOccupantID string) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	m.mutations = append(m.mutations, fmt.Sprintf("assign %s %s expect=%s", coffeeID, containerID, expectedOccupantID))
	return nil
}

func (m *mockCatalogRepo) ReplaceAssignments(ctx context.Context, coffeeID string, containerIDs []string, actingUserID string, expectedOccupants map[string]string) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.mutations = append(m.mutations, fmt.Sprintf("replace %s", coffeeID))
	m.lastExpected = expectedOccupants
	m.lastContainer = containerIDs
	return nil
}

type stubConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (c *stubConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

type recordNotifier struct {
	notes []string
}

func (n *recordNotifier) Notify(ctx context.Context, level, message string) {
	n.notes = append(n.notes, level+": "+message)
}

type stubGate struct {
	ok bool
	id string
}

func (g stubGate) IsAuthorized(ctx context.Context) bool { return g.ok }
func (g stubGate) ActorID(ctx context.Context) string    { return g.id }

func assigned(coffeeID, containerID string) domain.Assignment {
	return domain.Assignment{
		CoffeeID:    coffeeID,
		ContainerID: containerID,
		CDate:       time.Now(),
	}
}

func catalogFixture() *mockCatalogRepo {
	return &mockCatalogRepo{
		items: []domain.Coffee{
			{
				ID:          "1",
				Name:        "Ethiopia Sidamo",
				Assignments: []domain.Assignment{assigned("1", domain.LegacyGreenContainerID)},
			},
			{
				ID:   "2",
				Name: "Kenya Kiambu",
			},
		},
		containers: domain.LegacyContainers,
	}
}

func newTestUsecase(repo *mockCatalogRepo, confirmer *stubConfirmer, notifier *recordNotifier) *AssignmentUsecase {
	return NewAssignmentUsecase(repo, confirmer, notifier, stubGate{ok: true, id: "user0"})
}

func TestRequestAssignmentFreeContainer(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreyContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(confirmer.prompts) != 0 {
		t.Errorf("no confirmation expected for a free container, got %v", confirmer.prompts)
	}
	if len(repo.mutations) != 1 || repo.mutations[0] != "assign 2 grey expect=" {
		t.Errorf("unexpected mutations: %v", repo.mutations)
	}
	if len(notifier.notes) != 1 || !strings.HasPrefix(notifier.notes[0], "success") {
		t.Errorf("expected a single success notification, got %v", notifier.notes)
	}
	if outcome.ItemID != "2" {
		t.Errorf("outcome item mismatch: %s", outcome.ItemID)
	}
}

func TestRequestAssignmentAlreadyThere(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "1", domain.LegacyGreenContainerID, "Ethiopia Sidamo")

	if outcome.Code != domain.OutcomeNoOp {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("no write expected, got %v", repo.mutations)
	}
	if len(confirmer.prompts) != 0 {
		t.Errorf("no confirmation expected, got %v", confirmer.prompts)
	}
	if len(notifier.notes) != 1 {
		t.Errorf("expected exactly one notification, got %v", notifier.notes)
	}
}

func TestRequestAssignmentEvictsAfterConfirmation(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}
	if len(confirmer.prompts) != 1 {
		t.Fatalf("expected one confirmation, got %v", confirmer.prompts)
	}
	prompt := confirmer.prompts[0]
	for _, want := range []string{"Green Container", "Ethiopia Sidamo", "Kenya Kiambu"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %s", want, prompt)
		}
	}
	if len(repo.mutations) != 1 || repo.mutations[0] != "assign 2 green expect=1" {
		t.Errorf("expected a single exclusive assign with the occupant pinned, got %v", repo.mutations)
	}
	if len(outcome.Evicted) != 1 || outcome.Evicted[0].ID != "1" {
		t.Errorf("expected item 1 evicted, got %v", outcome.Evicted)
	}
	if len(outcome.Conflicts) != 1 || outcome.Conflicts[0].Occupant.Name != "Ethiopia Sidamo" {
		t.Errorf("conflict should name the occupant, got %v", outcome.Conflicts)
	}
}

func TestRequestAssignmentDeclined(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: false}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeCancelled {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("a declined assignment must not write, got %v", repo.mutations)
	}
	if len(outcome.Conflicts) != 1 {
		t.Errorf("cancelled outcome should still report the conflict, got %v", outcome.Conflicts)
	}
	if len(notifier.notes) != 1 || !strings.Contains(notifier.notes[0], "cancelled") {
		t.Errorf("expected a single cancellation notice, got %v", notifier.notes)
	}
}

func TestRequestAssignmentConfirmerError(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{err: context.Canceled}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeCancelled {
		t.Fatalf("an aborted confirmation must cancel, got %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("no write expected, got %v", repo.mutations)
	}
}

func TestRequestAssignmentUnauthorized(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := NewAssignmentUsecase(repo, confirmer, notifier, stubGate{ok: false})

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreyContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeUnauthorized {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("unauthorized request must not write, got %v", repo.mutations)
	}
	if len(notifier.notes) != 1 || !strings.Contains(notifier.notes[0], "Login required") {
		t.Errorf("expected a login prompt, got %v", notifier.notes)
	}
}

func TestRequestAssignmentUnknownContainer(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", "cupboard", "Kenya Kiambu")

	if outcome.Code != domain.OutcomeInvalidContainer {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if !errors.Is(outcome.Err, domain.ErrNotFound) {
		t.Errorf("expected a not found error, got %v", outcome.Err)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("no write expected, got %v", repo.mutations)
	}
}

func TestRequestAssignmentContainerListingFailure(t *testing.T) {
	repo := catalogFixture()
	repo.containersErr = errors.New("connection refused")
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeFailed {
		t.Fatalf("a store error is not a caller error, got %s", outcome.Code)
	}
	if outcome.Err == nil || outcome.Err.Error() != "connection refused" {
		t.Errorf("store error should be surfaced, got %v", outcome.Err)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("no write expected, got %v", repo.mutations)
	}
	if len(notifier.notes) != 1 || !strings.Contains(notifier.notes[0], "Failed to load") {
		t.Errorf("expected a failure notice, got %v", notifier.notes)
	}
}

func TestRequestBulkAssignmentContainerListingFailure(t *testing.T) {
	repo := catalogFixture()
	repo.containersErr = errors.New("connection refused")
	confirmer := &stubConfirmer{}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestBulkAssignment(context.Background(), "2",
		[]string{domain.LegacyGreenContainerID}, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeFailed {
		t.Fatalf("a store error is not a caller error, got %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("no write expected, got %v", repo.mutations)
	}
}

func TestRequestAssignmentLegacySlotsEmptyStore(t *testing.T) {
	// Empty containers table, flag-era occupant in green. The fixed slots
	// must still resolve so the occupant can be evicted.
	repo := catalogFixture()
	repo.containers = nil
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}
	if len(confirmer.prompts) != 1 || !strings.Contains(confirmer.prompts[0], "Green Container") {
		t.Errorf("prompt should use the fixed slot name, got %v", confirmer.prompts)
	}
	if len(outcome.Evicted) != 1 || outcome.Evicted[0].ID != "1" {
		t.Errorf("expected item 1 evicted, got %v", outcome.Evicted)
	}
}

func TestRequestAssignmentStaleConflict(t *testing.T) {
	repo := catalogFixture()
	repo.assignErr = domain.StaleConflictError{
		ContainerID: domain.LegacyGreenContainerID,
		ExpectedID:  "1",
		ActualID:    "3",
	}
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeStaleConflict {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(notifier.notes) != 1 || !strings.HasPrefix(notifier.notes[0], "warning") {
		t.Errorf("expected a retry warning, got %v", notifier.notes)
	}
}

func TestRequestRemoval(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestRemoval(context.Background(), "1", domain.LegacyGreenContainerID, "Ethiopia Sidamo")

	if outcome.Code != domain.OutcomeRemoved {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 1 || repo.mutations[0] != "delete 1 green" {
		t.Errorf("unexpected mutations: %v", repo.mutations)
	}
	if len(confirmer.prompts) != 1 || !strings.Contains(confirmer.prompts[0], "Green Container") {
		t.Errorf("removal prompt should name the container, got %v", confirmer.prompts)
	}
}

func TestRequestRemovalNotAssigned(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestRemoval(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeNoOp {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("removing an absent assignment must not write, got %v", repo.mutations)
	}
	if len(confirmer.prompts) != 0 {
		t.Errorf("no confirmation expected, got %v", confirmer.prompts)
	}
	if len(notifier.notes) != 1 {
		t.Errorf("expected exactly one notification, got %v", notifier.notes)
	}
}

func TestRequestRemovalDeclined(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: false}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestRemoval(context.Background(), "1", domain.LegacyGreenContainerID, "Ethiopia Sidamo")

	if outcome.Code != domain.OutcomeCancelled {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("a declined removal must not write, got %v", repo.mutations)
	}
}

func TestRequestBulkAssignment(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	// Item 2 takes both containers; item 1 occupies the green one.
	outcome := uc.RequestBulkAssignment(context.Background(), "2",
		[]string{domain.LegacyGreenContainerID, domain.LegacyGreyContainerID}, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}
	if len(confirmer.prompts) != 1 {
		t.Fatalf("one decision should govern the whole batch, got %v", confirmer.prompts)
	}
	if len(repo.mutations) != 1 || repo.mutations[0] != "replace 2" {
		t.Errorf("expected a single replace, got %v", repo.mutations)
	}
	if got := repo.lastExpected[domain.LegacyGreenContainerID]; got != "1" {
		t.Errorf("expected occupant 1 pinned for green, got %q", got)
	}
	if len(repo.lastContainer) != 2 {
		t.Errorf("unexpected container set: %v", repo.lastContainer)
	}
	if len(outcome.Evicted) != 1 || outcome.Evicted[0].ID != "1" {
		t.Errorf("expected item 1 evicted, got %v", outcome.Evicted)
	}
}

func TestRequestBulkAssignmentUnchanged(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestBulkAssignment(context.Background(), "1",
		[]string{domain.LegacyGreenContainerID}, "Ethiopia Sidamo")

	if outcome.Code != domain.OutcomeNoOp {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("an unchanged set must not write, got %v", repo.mutations)
	}
}

func TestRequestBulkAssignmentClearAll(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestBulkAssignment(context.Background(), "1", nil, "Ethiopia Sidamo")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}
	if len(confirmer.prompts) != 0 {
		t.Errorf("clearing needs no eviction decision, got %v", confirmer.prompts)
	}
	if len(notifier.notes) != 1 || !strings.Contains(notifier.notes[0], "removed from all containers") {
		t.Errorf("unexpected notification: %v", notifier.notes)
	}
}

func TestRequestBulkAssignmentDuplicateContainers(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestBulkAssignment(context.Background(), "2",
		[]string{domain.LegacyGreyContainerID, domain.LegacyGreyContainerID}, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}
	if len(repo.lastContainer) != 1 || repo.lastContainer[0] != domain.LegacyGreyContainerID {
		t.Errorf("duplicate ids should collapse to one, got %v", repo.lastContainer)
	}
	if len(outcome.ContainerIDs) != 1 {
		t.Errorf("outcome should carry the deduped set, got %v", outcome.ContainerIDs)
	}
}

func TestRequestBulkAssignmentDeclined(t *testing.T) {
	repo := catalogFixture()
	confirmer := &stubConfirmer{answer: false}
	notifier := &recordNotifier{}
	uc := newTestUsecase(repo, confirmer, notifier)

	outcome := uc.RequestBulkAssignment(context.Background(), "2",
		[]string{domain.LegacyGreenContainerID}, "Kenya Kiambu")

	if outcome.Code != domain.OutcomeCancelled {
		t.Fatalf("unexpected outcome: %s", outcome.Code)
	}
	if len(repo.mutations) != 0 {
		t.Errorf("a declined batch must not write, got %v", repo.mutations)
	}
}

// statefulCatalogRepo applies exclusive assigns to its item set so occupancy
// can be observed after the commit.
type statefulCatalogRepo struct {
	mockCatalogRepo
}

func (m *statefulCatalogRepo) AssignExclusive(ctx context.Context, coffeeID, containerID, actingUserID, expectedOccupantID string) error {
	if err := m.mockCatalogRepo.AssignExclusive(ctx, coffeeID, containerID, actingUserID, expectedOccupantID); err != nil {
		return err
	}
	for i := range m.items {
		var kept []domain.Assignment
		for _, a := range m.items[i].Assignments {
			if a.ContainerID != containerID {
				kept = append(kept, a)
			}
		}
		m.items[i].Assignments = kept
		if m.items[i].ID == coffeeID {
			m.items[i].Assignments = append(m.items[i].Assignments, assigned(coffeeID, containerID))
		}
	}
	return nil
}

func TestEvictionThenAssignOrdering(t *testing.T) {
	repo := &statefulCatalogRepo{mockCatalogRepo: *catalogFixture()}
	confirmer := &stubConfirmer{answer: true}
	notifier := &recordNotifier{}
	uc := NewAssignmentUsecase(repo, confirmer, notifier, stubGate{ok: true, id: "user0"})

	outcome := uc.RequestAssignment(context.Background(), "2", domain.LegacyGreenContainerID, "Kenya Kiambu")
	if outcome.Code != domain.OutcomeAssigned {
		t.Fatalf("unexpected outcome: %s (err: %v)", outcome.Code, outcome.Err)
	}

	occupant, err := uc.FindOccupant(context.Background(), domain.LegacyGreenContainerID, "")
	if err != nil {
		t.Fatal(err)
	}
	if occupant == nil || occupant.ID != "2" {
		t.Fatalf("item 2 should now occupy green, got %v", occupant)
	}
	for _, item := range repo.items {
		if item.ID == "1" && item.AssignedTo(domain.LegacyGreenContainerID) {
			t.Error("item 1 should have been evicted")
		}
	}
}

func TestFindOccupant(t *testing.T) {
	repo := catalogFixture()
	uc := newTestUsecase(repo, &stubConfirmer{}, &recordNotifier{})

	occupant, err := uc.FindOccupant(context.Background(), domain.LegacyGreenContainerID, "")
	if err != nil {
		t.Fatal(err)
	}
	if occupant == nil || occupant.ID != "1" {
		t.Errorf("expected item 1 as occupant, got %v", occupant)
	}

	occupant, err = uc.FindOccupant(context.Background(), domain.LegacyGreenContainerID, "1")
	if err != nil {
		t.Fatal(err)
	}
	if occupant != nil {
		t.Errorf("expected no occupant when excluding item 1, got %v", occupant)
	}

	occupant, err = uc.FindOccupant(context.Background(), domain.LegacyGreyContainerID, "")
	if err != nil {
		t.Fatal(err)
	}
	if occupant != nil {
		t.Errorf("grey container should be free, got %v", occupant)
	}
}
