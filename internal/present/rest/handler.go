package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	"github.com/beanvault/beanvault"
	"github.com/beanvault/beanvault/internal/domain"
	"github.com/beanvault/beanvault/internal/present/rest/presenter"
	"github.com/beanvault/beanvault/internal/service"
	"github.com/beanvault/beanvault/internal/usecase"
)

type Handler struct {
	config     domain.Config
	coffee     *usecase.CoffeeUsecase
	container  *usecase.ContainerUsecase
	shop       *usecase.ShopUsecase
	favorite   *usecase.FavoriteUsecase
	assignment *usecase.AssignmentUsecase
	auth       *service.AuthService
	signal     *service.SignalService
	broker     *service.ConfirmationBroker
}

func NewHandler(
	config domain.Config,
	coffee *usecase.CoffeeUsecase,
	container *usecase.ContainerUsecase,
	shop *usecase.ShopUsecase,
	favorite *usecase.FavoriteUsecase,
	assignment *usecase.AssignmentUsecase,
	auth *service.AuthService,
	signal *service.SignalService,
	broker *service.ConfirmationBroker,
) *Handler {
	return &Handler{
		config:     config,
		coffee:     coffee,
		container:  container,
		shop:       shop,
		favorite:   favorite,
		assignment: assignment,
		auth:       auth,
		signal:     signal,
		broker:     broker,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/beanvault", h.handleWellKnown)

	e.POST("/api/v1/auth/login", h.handleLogin)
	e.POST("/api/v1/auth/register", h.handleRegister)

	e.GET("/api/v1/coffees", h.handleListCoffees)
	e.POST("/api/v1/coffees", h.handleCreateCoffee)
	e.GET("/api/v1/coffees/:id", h.handleGetCoffee)
	e.PUT("/api/v1/coffees/:id", h.handleUpdateCoffee)
	e.DELETE("/api/v1/coffees/:id", h.handleDeleteCoffee)

	e.GET("/api/v1/shops", h.handleListShops)
	e.POST("/api/v1/shops", h.handleCreateShop)
	e.PUT("/api/v1/shops/:id", h.handleUpdateShop)
	e.DELETE("/api/v1/shops/:id", h.handleDeleteShop)

	e.GET("/api/v1/containers", h.handleListContainers)
	e.POST("/api/v1/containers", h.handleCreateContainer)
	e.PUT("/api/v1/containers/:id", h.handleUpdateContainer)
	e.DELETE("/api/v1/containers/:id", h.handleDeleteContainer)
	e.GET("/api/v1/containers/:id/occupant", h.handleOccupant)

	e.POST("/api/v1/assignments", h.handleAssignment)
	e.DELETE("/api/v1/assignments", h.handleRemoval)
	e.POST("/api/v1/assignments/decision", h.handleDecision)

	e.GET("/api/v1/favorites", h.handleListFavorites)
	e.PUT("/api/v1/favorites/:coffeeID", h.handleToggleFavorite)

	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	info := beanvault.ServiceInfo{
		Name:    h.config.ServiceName,
		Version: "1.0",
		Endpoints: map[string]string{
			"coffees":     "/api/v1/coffees",
			"shops":       "/api/v1/shops",
			"containers":  "/api/v1/containers",
			"assignments": "/api/v1/assignments",
			"favorites":   "/api/v1/favorites",
			"realtime":    "/realtime",
		},
	}
	return presenter.OK(c, info)
}

// --- auth ---

func (h *Handler) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req beanvault.LoginRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	token, user, expires, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return presenter.Unauthorized(c, "invalid credentials")
	}

	return presenter.OK(c, beanvault.LoginResponse{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: expires,
	})
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Email == "" || req.Password == "" {
		return presenter.BadRequestMessage(c, "email and password are required")
	}

	user, err := h.auth.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return presenter.Conflict(c, echo.Map{"error": "email already registered"})
		}
		return presenter.InternalError(c, err)
	}
	return presenter.Created(c, user)
}

// --- coffees ---

func (h *Handler) handleListCoffees(c echo.Context) error {
	ctx := c.Request().Context()

	coffees, err := h.coffee.List(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	encoded, err := json.Marshal(coffees)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	etag := fmt.Sprintf("\"%s\"", strconv.FormatUint(xxh3.Hash(encoded), 16))
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	c.Response().Header().Set("ETag", etag)

	return c.JSONBlob(http.StatusOK, encoded)
}

func (h *Handler) handleGetCoffee(c echo.Context) error {
	ctx := c.Request().Context()

	coffee, err := h.coffee.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "coffee not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, coffee)
}

func (h *Handler) handleCreateCoffee(c echo.Context) error {
	ctx := c.Request().Context()

	var coffee domain.Coffee
	if err := c.Bind(&coffee); err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.coffee.Create(ctx, coffee)
	if err != nil {
		return h.mutationError(c, err)
	}

	h.publish(ctx, beanvault.Event{Type: beanvault.EventCoffeeCreated, ItemID: created.ID})
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateCoffee(c echo.Context) error {
	ctx := c.Request().Context()

	var coffee domain.Coffee
	if err := c.Bind(&coffee); err != nil {
		return presenter.BadRequest(c, err)
	}
	coffee.ID = c.Param("id")

	updated, err := h.coffee.Update(ctx, coffee)
	if err != nil {
		return h.mutationError(c, err)
	}

	h.publish(ctx, beanvault.Event{Type: beanvault.EventCoffeeUpdated, ItemID: updated.ID})
	return presenter.OK(c, updated)
}

func (h *Handler) handleDeleteCoffee(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if err := h.coffee.Delete(ctx, id); err != nil {
		return h.mutationError(c, err)
	}

	h.publish(ctx, beanvault.Event{Type: beanvault.EventCoffeeDeleted, ItemID: id})
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// --- shops ---

func (h *Handler) handleListShops(c echo.Context) error {
	shops, err := h.shop.List(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, shops)
}

func (h *Handler) handleCreateShop(c echo.Context) error {
	var shop domain.Shop
	if err := c.Bind(&shop); err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.shop.Create(c.Request().Context(), shop)
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateShop(c echo.Context) error {
	var shop domain.Shop
	if err := c.Bind(&shop); err != nil {
		return presenter.BadRequest(c, err)
	}
	shop.ID = c.Param("id")

	updated, err := h.shop.Update(c.Request().Context(), shop)
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, updated)
}

func (h *Handler) handleDeleteShop(c echo.Context) error {
	if err := h.shop.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// --- containers ---

func (h *Handler) handleListContainers(c echo.Context) error {
	containers, err := h.container.List(c.Request().Context())
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, containers)
}

func (h *Handler) handleCreateContainer(c echo.Context) error {
	var container domain.Container
	if err := c.Bind(&container); err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.container.Create(c.Request().Context(), container)
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleUpdateContainer(c echo.Context) error {
	var container domain.Container
	if err := c.Bind(&container); err != nil {
		return presenter.BadRequest(c, err)
	}
	container.ID = c.Param("id")

	updated, err := h.container.Update(c.Request().Context(), container)
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, updated)
}

func (h *Handler) handleDeleteContainer(c echo.Context) error {
	if err := h.container.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleOccupant(c echo.Context) error {
	ctx := c.Request().Context()

	occupant, err := h.assignment.FindOccupant(ctx, c.Param("id"), "")
	if err != nil {
		return presenter.InternalError(c, err)
	}
	if occupant == nil {
		return presenter.OK(c, echo.Map{"occupant": nil})
	}
	return presenter.OK(c, echo.Map{"occupant": occupant})
}

// --- assignments ---

// handleAssignment runs the assignment operation. When a conflict needs a
// human decision the operation stays suspended server-side and the client
// gets 409 with a confirmation token; the decision endpoint resumes it.
func (h *Handler) handleAssignment(c echo.Context) error {
	var req beanvault.AssignmentRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.ItemID == "" {
		return presenter.BadRequestMessage(c, "itemID is required")
	}

	// The operation must outlive this request: 409 returns while it waits.
	opCtx := context.WithoutCancel(c.Request().Context())
	opCtx, tickets := service.WithTicketChannel(opCtx)

	done := make(chan domain.Outcome, 1)
	go func() {
		if len(req.ContainerIDs) == 1 {
			done <- h.assignment.RequestAssignment(opCtx, req.ItemID, req.ContainerIDs[0], req.ItemName)
		} else {
			done <- h.assignment.RequestBulkAssignment(opCtx, req.ItemID, req.ContainerIDs, req.ItemName)
		}
	}()

	select {
	case outcome := <-done:
		return h.respondOutcome(c, outcome)
	case ticket := <-tickets:
		go func() {
			outcome := <-done
			h.broker.Complete(ticket.Token, outcomeToResult(outcome))
		}()
		return presenter.Conflict(c, beanvault.AssignmentResult{
			Outcome: "confirmation_required",
			Token:   ticket.Token,
			Prompt:  ticket.Prompt,
		})
	}
}

func (h *Handler) handleRemoval(c echo.Context) error {
	itemID := c.QueryParam("itemID")
	containerID := c.QueryParam("containerID")
	itemName := c.QueryParam("itemName")
	if itemID == "" || containerID == "" {
		return presenter.BadRequestMessage(c, "itemID and containerID are required")
	}

	opCtx := context.WithoutCancel(c.Request().Context())
	opCtx, tickets := service.WithTicketChannel(opCtx)

	done := make(chan domain.Outcome, 1)
	go func() {
		done <- h.assignment.RequestRemoval(opCtx, itemID, containerID, itemName)
	}()

	select {
	case outcome := <-done:
		return h.respondOutcome(c, outcome)
	case ticket := <-tickets:
		go func() {
			outcome := <-done
			h.broker.Complete(ticket.Token, outcomeToResult(outcome))
		}()
		return presenter.Conflict(c, beanvault.AssignmentResult{
			Outcome: "confirmation_required",
			Token:   ticket.Token,
			Prompt:  ticket.Prompt,
		})
	}
}

func (h *Handler) handleDecision(c echo.Context) error {
	ctx := c.Request().Context()

	var req beanvault.AssignmentDecision
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	resultCh, err := h.broker.Resolve(req.Token, req.Confirmed)
	if err != nil {
		return presenter.NotFound(c, err.Error())
	}

	select {
	case result := <-resultCh:
		h.publishResult(ctx, result)
		return presenter.OK(c, result)
	case <-ctx.Done():
		return nil
	}
}

func (h *Handler) respondOutcome(c echo.Context, outcome domain.Outcome) error {
	result := outcomeToResult(outcome)
	h.publishResult(c.Request().Context(), result)

	switch outcome.Code {
	case domain.OutcomeInvalidContainer:
		return presenter.BadRequestMessage(c, "unknown container")
	case domain.OutcomeUnauthorized:
		return presenter.Unauthorized(c, "login required")
	case domain.OutcomeStaleConflict:
		return presenter.Conflict(c, result)
	case domain.OutcomeFailed:
		return c.JSON(http.StatusInternalServerError, result)
	default:
		return presenter.OK(c, result)
	}
}

func (h *Handler) publishResult(ctx context.Context, result beanvault.AssignmentResult) {
	switch result.Outcome {
	case string(domain.OutcomeAssigned):
		h.publish(ctx, beanvault.Event{Type: beanvault.EventAssignmentCreated, ItemID: result.ItemID})
	case string(domain.OutcomeRemoved):
		h.publish(ctx, beanvault.Event{Type: beanvault.EventAssignmentRemoved, ItemID: result.ItemID})
	}
}

func outcomeToResult(outcome domain.Outcome) beanvault.AssignmentResult {
	result := beanvault.AssignmentResult{
		Outcome: string(outcome.Code),
		ItemID:  outcome.ItemID,
	}
	if len(outcome.Evicted) > 0 {
		result.EvictedID = outcome.Evicted[0].ID
	}
	for _, conflict := range outcome.Conflicts {
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("%s:%s", conflict.Container.ID, conflict.Occupant.ID))
	}
	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}
	return result
}

// --- favorites ---

func (h *Handler) handleListFavorites(c echo.Context) error {
	favorites, err := h.favorite.List(c.Request().Context())
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, favorites)
}

func (h *Handler) handleToggleFavorite(c echo.Context) error {
	nowFavorite, err := h.favorite.Toggle(c.Request().Context(), c.Param("coffeeID"))
	if err != nil {
		return h.mutationError(c, err)
	}
	return presenter.OK(c, echo.Map{"favorite": nowFavorite})
}

// --- realtime ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type     string   `json:"type"`
	Prefixes []string `json:"prefixes"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan beanvault.Event)

	go h.signal.Realtime(ctx, input, output)

	// Buffered so the reader can always signal, even when the write loop
	// already returned on a write error.
	quit := make(chan struct{}, 1)

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Prefixes
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Prefixes),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

// --- shared ---

func (h *Handler) mutationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return presenter.Unauthorized(c, "login required")
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return presenter.Conflict(c, echo.Map{"error": err.Error()})
	default:
		return presenter.InternalError(c, err)
	}
}

func (h *Handler) publish(ctx context.Context, event beanvault.Event) {
	if h.signal == nil {
		return
	}
	event.Actor, _ = ctx.Value(domain.RequesterIDCtxKey).(string)
	if err := h.signal.Publish(ctx, event); err != nil {
		slog.ErrorContext(
			ctx, "Failed to publish event",
			slog.String("error", err.Error()),
			slog.String("module", "rest"),
		)
	}
}
