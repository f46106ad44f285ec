package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

func RouteQuestion(
	ctx context.Context,
	in *GraphState,
	router contractx.Router,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Pinned != "" {
		in.Decision = contractx.RouteDecision{
			Domain: in.Pinned,
			Method: contractx.RouteMethodPinned,
		}
		return in, nil
	}

	decision, err := router.Route(ctx, in.Question)
	if err != nil {
		return nil, err
	}
	in.Decision = decision
	return in, nil
}
