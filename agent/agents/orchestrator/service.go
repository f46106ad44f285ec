package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
	nodex "github.com/warin-th/tutorgrid/agent/nodes"
	statex "github.com/warin-th/tutorgrid/agent/state"
)

var ErrInvalidQuestion = nodex.ErrInvalidQuestion

const defaultContextTurns = 5

type Config struct {
	// ContextTurns caps how many prior turns reach the specialist prompt.
	ContextTurns int
}

type Orchestrator struct {
	sessions statex.Sessions
	router   contractx.Router
	registry contractx.Registry

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	contextTurns int
	now          func() time.Time
}

func New(
	sessions statex.Sessions,
	router contractx.Router,
	registry contractx.Registry,
	cfg Config,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if registry == nil {
		return nil, errors.New("specialist registry is required")
	}

	contextTurns := cfg.ContextTurns
	if contextTurns <= 0 {
		contextTurns = defaultContextTurns
	}

	o := &Orchestrator{
		sessions:     sessions,
		router:       router,
		registry:     registry,
		contextTurns: contextTurns,
		now:          time.Now,
	}

	graphRunner, err := o.compileHandleQuestionGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) Handle(ctx context.Context, req contractx.AskRequest) (contractx.AskResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Question:   req.Question,
		SessionID:  req.SessionID,
		UseContext: req.UseContext,
		Domain:     req.Domain,
	})
	if err != nil {
		return contractx.AskResult{}, err
	}

	return contractx.AskResult{
		Answer:       out.Answer,
		SessionID:    out.SessionID,
		AgentUsed:    out.AgentUsed,
		ContextReset: out.ContextReset,
	}, nil
}

// Route previews the routing decision for a question without dispatching it
// or touching any session.
func (o *Orchestrator) Route(ctx context.Context, question string) (contractx.RouteDecision, error) {
	return o.router.Route(ctx, question)
}
