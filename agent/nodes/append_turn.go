package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

func AppendTurn(
	ctx context.Context,
	in *GraphState,
	sessions statex.Sessions,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	turn := statex.Turn{
		Question:   in.Question,
		Answer:     in.Response.Answer,
		Specialist: string(in.Decision.Domain),
		Timestamp:  in.Now,
	}

	sess, reset, err := appendTurn(ctx, sessions, in.Session.ID, turn)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	in.ContextReset = in.ContextReset || reset
	return in, nil
}

// appendTurn records the exchange. When the session died between load and
// append, the turn lands in a fresh session so the caller still gets a
// usable id back.
func appendTurn(
	ctx context.Context,
	sessions statex.Sessions,
	sessionID string,
	turn statex.Turn,
) (*statex.Session, bool, error) {
	sess, err := sessions.AppendTurn(ctx, sessionID, turn)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, statex.ErrSessionExpired) && !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, false, err
	}

	fresh, err := sessions.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	sess, err = sessions.AppendTurn(ctx, fresh.ID, turn)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}
