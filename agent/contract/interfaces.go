package contract

import "context"

type Router interface {
	Route(ctx context.Context, question string) (RouteDecision, error)
}

type Responder interface {
	Respond(ctx context.Context, req RespondRequest) (RespondResult, error)
}

type Registry interface {
	Responder(domain Domain) (Responder, bool)
	Agents() []AgentInfo
}
