package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

var (
	ErrInvalidQuestion = fmt.Errorf("%w: question is empty", contractx.ErrValidation)
	ErrNoDecision      = fmt.Errorf("%w: routing decision is missing", contractx.ErrValidation)
)

type GraphInput struct {
	Question   string
	SessionID  string
	UseContext bool

	// Domain pins the specialist and skips routing when non-empty.
	Domain contractx.Domain
}

type GraphOutput struct {
	Answer       string
	SessionID    string
	AgentUsed    contractx.Domain
	ContextReset bool
}

type GraphState struct {
	Question   string
	SessionID  string
	UseContext bool
	Pinned     contractx.Domain
	Now        time.Time

	Session      *statex.Session
	ContextReset bool

	Decision contractx.RouteDecision
	Response contractx.RespondResult
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}

	if in.Domain != "" && !in.Domain.Valid() {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownDomain, in.Domain)
	}

	return &GraphState{
		Question:   question,
		SessionID:  strings.TrimSpace(in.SessionID),
		UseContext: in.UseContext,
		Pinned:     in.Domain,
		Now:        nowFn().UTC(),
	}, nil
}
