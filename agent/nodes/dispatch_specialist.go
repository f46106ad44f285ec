package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

func DispatchSpecialist(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	contextTurns int,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}
	if in.Decision.Domain == "" {
		return nil, ErrNoDecision
	}

	responder, ok := registry.Responder(in.Decision.Domain)
	if !ok {
		return nil, fmt.Errorf("%w: no specialist for domain=%s", contractx.ErrUnknownDomain, in.Decision.Domain)
	}

	req := contractx.RespondRequest{
		Question: in.Question,
	}
	if in.UseContext {
		req.Context = in.Session.Window(contextTurns)
	}

	resp, err := responder.Respond(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return nil, fmt.Errorf("%w: specialist=%s returned an empty answer", contractx.ErrSchemaViolation, in.Decision.Domain)
	}
	in.Response = resp
	return in, nil
}
