package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/beanvault/beanvault"
	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/service"
	"github.com/beanvault/beanvault/internal/usecase"
)

// mockStore backs both the catalog and the coffee repositories.
type mockStore struct {
	coffees    []domain.Coffee
	containers []domain.Container
	mutations  []string
}

func (m *mockStore) ListItemsWithAssignments(ctx context.Context) ([]domain.Coffee, error) {
	return m.coffees, nil
}

func (m *mockStore) ListContainers(ctx context.Context) ([]domain.Container, error) {
	return m.containers, nil
}

func (m *mockStore) HasAssignment(ctx context.Context, coffeeID, containerID string) (bool, error) {
	for _, c := range m.coffees {
		if c.ID == coffeeID && c.AssignedTo(containerID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) CreateAssignment(ctx context.Context, coffeeID, containerID, actingUserID string) error {
	m.mutations = append(m.mutations, "create")
	return nil
}

func (m *mockStore) DeleteAssignment(ctx context.Context, coffeeID, containerID string) error {
	m.mutations = append(m.mutations, "delete")
	return nil
}

func (m *mockStore) AssignExclusive(ctx context.Context, coffeeID, containerID, actingUserID, expectedOccupantID string) error {
	m.mutations = append(m.mutations, "assign")
	return nil
}

func (m *mockStore) ReplaceAssignments(ctx context.Context, coffeeID string, containerIDs []string, actingUserID string, expectedOccupants map[string]string) error {
	m.mutations = append(m.mutations, "replace")
	return nil
}

func (m *mockStore) List(ctx context.Context) ([]domain.Coffee, error) {
	return m.coffees, nil
}

func (m *mockStore) Get(ctx context.Context, id string) (domain.Coffee, error) {
	for _, c := range m.coffees {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Coffee{}, domain.NotFoundError{Resource: "coffee"}
}

func (m *mockStore) Create(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	return coffee, nil
}

func (m *mockStore) Update(ctx context.Context, coffee domain.Coffee) (domain.Coffee, error) {
	return coffee, nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	return false, nil
}

type mockUserStore struct{}

func (m mockUserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

func (m mockUserStore) Get(ctx context.Context, id string) (domain.User, error) {
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

func (m mockUserStore) Create(ctx context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, level, message string) {}

func newTestServer() (*echo.Echo, *mockStore, *service.ConfirmationBroker) {
	conf := domain.Config{
		ServiceName: "beanvault-test",
		Auth: domain.AuthConfig{
			JwtSecret: "test-secret",
			Audience:  "beanvault-test",
			TokenTTL:  time.Hour,
		},
	}

	store := &mockStore{
		coffees: []domain.Coffee{
			{
				ID:   "1",
				Name: "Ethiopia Sidamo",
				Assignments: []domain.Assignment{
					{CoffeeID: "1", ContainerID: domain.LegacyGreenContainerID},
				},
			},
			{ID: "2", Name: "Kenya Kiambu"},
		},
		containers: domain.LegacyContainers,
	}

	auth := service.NewAuthService(conf, mockUserStore{})
	broker := service.NewConfirmationBroker()
	assignment := usecase.NewAssignmentUsecase(store, broker, noopNotifier{}, auth)
	coffee := usecase.NewCoffeeUsecase(store, auth)

	handler := NewHandler(conf, coffee, nil, nil, nil, assignment, auth, nil, broker)

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "Bearer test" {
				ctx := context.WithValue(c.Request().Context(), domain.RequesterIDCtxKey, "user0")
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	})
	handler.RegisterRoutes(e)

	return e, store, broker
}

func TestListCoffeesETag(t *testing.T) {
	e, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coffees", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/coffees", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for a matching ETag, got %d", rec.Code)
	}
}

func TestAssignmentFreeContainer(t *testing.T) {
	e, store, _ := newTestServer()

	body := `{"itemID":"2","itemName":"Kenya Kiambu","containerIDs":["grey"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	var result beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != string(domain.OutcomeAssigned) {
		t.Errorf("unexpected outcome: %s", result.Outcome)
	}
	if len(store.mutations) != 1 || store.mutations[0] != "assign" {
		t.Errorf("unexpected mutations: %v", store.mutations)
	}
}

func TestAssignmentConflictAndDecision(t *testing.T) {
	e, store, _ := newTestServer()

	// Green is occupied by item 1; the request suspends on a confirmation.
	body := `{"itemID":"2","itemName":"Kenya Kiambu","containerIDs":["green"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var pending beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if pending.Outcome != "confirmation_required" || pending.Token == "" {
		t.Fatalf("expected a confirmation ticket, got %+v", pending)
	}
	if !strings.Contains(pending.Prompt, "Ethiopia Sidamo") || !strings.Contains(pending.Prompt, "Green Container") {
		t.Errorf("prompt should name the occupant and container: %s", pending.Prompt)
	}
	if len(store.mutations) != 0 {
		t.Errorf("nothing may be written before the decision, got %v", store.mutations)
	}

	decision := `{"token":"` + pending.Token + `","confirmed":true}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assignments/decision", strings.NewReader(decision))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	var result beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != string(domain.OutcomeAssigned) {
		t.Errorf("unexpected outcome: %s", result.Outcome)
	}
	if result.EvictedID != "1" {
		t.Errorf("expected item 1 evicted, got %q", result.EvictedID)
	}
	if len(store.mutations) != 1 || store.mutations[0] != "assign" {
		t.Errorf("unexpected mutations: %v", store.mutations)
	}
}

func TestAssignmentDeclined(t *testing.T) {
	e, store, _ := newTestServer()

	body := `{"itemID":"2","itemName":"Kenya Kiambu","containerIDs":["green"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var pending beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}

	decision := `{"token":"` + pending.Token + `","confirmed":false}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assignments/decision", strings.NewReader(decision))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	var result beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != string(domain.OutcomeCancelled) {
		t.Errorf("unexpected outcome: %s", result.Outcome)
	}
	if len(store.mutations) != 0 {
		t.Errorf("a declined assignment must not write, got %v", store.mutations)
	}
}

func TestAssignmentUnauthorized(t *testing.T) {
	e, store, _ := newTestServer()

	body := `{"itemID":"2","itemName":"Kenya Kiambu","containerIDs":["grey"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(store.mutations) != 0 {
		t.Errorf("unauthorized request must not write, got %v", store.mutations)
	}
}

func TestRemovalNotAssigned(t *testing.T) {
	e, store, _ := newTestServer()

	req := httptest.NewRequest(http.MethodDelete,
		"/api/v1/assignments?itemID=2&containerID=green&itemName=Kenya+Kiambu", nil)
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	var result beanvault.AssignmentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != string(domain.OutcomeNoOp) {
		t.Errorf("unexpected outcome: %s", result.Outcome)
	}
	if len(store.mutations) != 0 {
		t.Errorf("no write expected, got %v", store.mutations)
	}
}

func TestDecisionUnknownToken(t *testing.T) {
	e, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/decision",
		strings.NewReader(`{"token":"no-such-token","confirmed":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown token, got %d", rec.Code)
	}
}

func TestWellKnown(t *testing.T) {
	e, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/.well-known/beanvault", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var info beanvault.ServiceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "beanvault-test" {
		t.Errorf("unexpected service name: %s", info.Name)
	}
}
