package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`

	// UseContextHistory defaults to true when omitted.
	UseContextHistory *bool `json:"use_context_history,omitempty"`
}

type agentsResponse struct {
	Agents []contractx.AgentInfo `json:"agents"`
}

type sessionResponse struct {
	SessionID       string        `json:"session_id"`
	CreatedAt       time.Time     `json:"created_at"`
	LastActive      time.Time     `json:"last_active"`
	TurnCount       int           `json:"turn_count"`
	AgentsUsed      []string      `json:"agents_used"`
	DurationSeconds float64       `json:"duration_seconds"`
	Turns           []statex.Turn `json:"turns"`
}

type clearResponse struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Agents int    `json:"agents"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newSessionResponse(sess *statex.Session) sessionResponse {
	turns := sess.Turns
	if turns == nil {
		turns = []statex.Turn{}
	}
	used := sess.SpecialistsUsed()
	if used == nil {
		used = []string{}
	}
	return sessionResponse{
		SessionID:       sess.ID,
		CreatedAt:       sess.CreatedAt,
		LastActive:      sess.LastActive,
		TurnCount:       len(turns),
		AgentsUsed:      used,
		DurationSeconds: sess.LastActive.Sub(sess.CreatedAt).Seconds(),
		Turns:           turns,
	}
}

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, statex.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, contractx.ErrUnknownDomain),
		errors.Is(err, statex.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, contractx.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, contractx.ErrUpstreamUnavailable),
		errors.Is(err, contractx.ErrSchemaViolation):
		return http.StatusBadGateway
	case errors.Is(err, statex.ErrStoreTimeout),
		errors.Is(err, statex.ErrStoreUnavailable),
		errors.Is(err, statex.ErrVersionConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps 5xx bodies generic; upstream and store failure detail
// stays in the logs.
func errorMessage(status int, err error) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	switch status {
	case http.StatusBadGateway:
		return "text generation upstream failed"
	case http.StatusGatewayTimeout:
		return "text generation upstream timed out"
	case http.StatusServiceUnavailable:
		return "session store unavailable"
	default:
		return "internal error"
	}
}

func writeError(c echo.Context, err error) error {
	status := httpStatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, errorResponse{Error: errorMessage(status, err)})
}
