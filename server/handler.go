// Package server exposes the tutoring service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

// Service is the orchestrator surface the handlers need.
type Service interface {
	Handle(ctx context.Context, req contractx.AskRequest) (contractx.AskResult, error)
	Route(ctx context.Context, question string) (contractx.RouteDecision, error)
}

type Handler struct {
	svc       Service
	sessions  statex.Sessions
	registry  contractx.Registry
	storeName string
}

func NewHandler(svc Service, sessions statex.Sessions, registry contractx.Registry, storeName string) *Handler {
	return &Handler{
		svc:       svc,
		sessions:  sessions,
		registry:  registry,
		storeName: storeName,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/ask", h.Ask)
	e.POST("/ask/:domain", h.AskDomain)
	e.GET("/route", h.PreviewRoute)
	e.GET("/agents", h.ListAgents)
	e.GET("/session/:id", h.GetSession)
	e.POST("/session/clear/:id", h.ClearSession)
	e.GET("/health", h.Health)
}

// Ask routes the question to a specialist and answers it.
// POST /ask
func (h *Handler) Ask(c echo.Context) error {
	return h.ask(c, "")
}

// AskDomain pins the specialist instead of routing.
// POST /ask/:domain
func (h *Handler) AskDomain(c echo.Context) error {
	domain, err := contractx.ParseDomain(c.Param("domain"))
	if err != nil {
		return writeError(c, err)
	}
	return h.ask(c, domain)
}

func (h *Handler) ask(c echo.Context, domain contractx.Domain) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, fmt.Errorf("%w: %v", contractx.ErrValidation, err))
	}

	useContext := true
	if req.UseContextHistory != nil {
		useContext = *req.UseContextHistory
	}

	out, err := h.svc.Handle(c.Request().Context(), contractx.AskRequest{
		Question:   req.Question,
		SessionID:  req.SessionID,
		UseContext: useContext,
		Domain:     domain,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// PreviewRoute reports where a question would be routed without answering it.
// GET /route?question=...
func (h *Handler) PreviewRoute(c echo.Context) error {
	decision, err := h.svc.Route(c.Request().Context(), c.QueryParam("question"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, decision)
}

// ListAgents describes the available specialists and their tools.
// GET /agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, agentsResponse{Agents: h.registry.Agents()})
}

// GetSession returns one session's turn history.
// GET /session/:id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sess))
}

// ClearSession deletes a session and its history.
// POST /session/clear/:id
func (h *Handler) ClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.Clear(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, clearResponse{SessionID: id, Cleared: true})
}

// Health reports liveness and the session backend in use.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "healthy",
		Store:  h.storeName,
		Agents: len(h.registry.Agents()),
	})
}
