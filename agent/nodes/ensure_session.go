package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

func EnsureSession(
	ctx context.Context,
	in *GraphState,
	sessions statex.Sessions,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, reset, err := ensureSession(ctx, sessions, in.SessionID)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	in.ContextReset = reset
	return in, nil
}

// ensureSession resolves the working session. A blank id means the caller
// wants a new one; a dead id is replaced with a fresh session and the
// replacement is reported so the caller learns its context is gone.
func ensureSession(
	ctx context.Context,
	sessions statex.Sessions,
	sessionID string,
) (*statex.Session, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		sess, err := sessions.Create(ctx)
		if err != nil {
			return nil, false, err
		}
		return sess, false, nil
	}

	sess, err := sessions.Get(ctx, sessionID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) && !errors.Is(err, statex.ErrSessionExpired) {
		return nil, false, err
	}

	sess, err = sessions.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}
