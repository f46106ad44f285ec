package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

func FinalizeAnswer(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	answer := strings.TrimSpace(in.Response.Answer)
	if answer == "" {
		return GraphOutput{}, fmt.Errorf("%w: specialist returned an empty answer", contractx.ErrSchemaViolation)
	}

	return GraphOutput{
		Answer:       answer,
		SessionID:    in.Session.ID,
		AgentUsed:    in.Decision.Domain,
		ContextReset: in.ContextReset,
	}, nil
}
