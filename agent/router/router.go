package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
	toolx "github.com/warin-th/tutorgrid/agent/tool"
)

// Router picks the specialist domain for a question. Deterministic signals
// run first: an equation or arithmetic pattern, then subject keywords. The
// model classifier is consulted only when no signal fires, and any classifier
// failure falls back to the general domain instead of failing the request.
type Router struct {
	enabled    map[contractx.Domain]struct{}
	classifier compose.Runnable[map[string]any, routeLLMOutput]
}

type routeLLMOutput struct {
	Domain string `json:"domain"`
}

// New builds a router over the enabled domains. A nil chatModel disables the
// classifier stage entirely; ambiguous questions then land on general.
func New(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	enabled []contractx.Domain,
) (*Router, error) {
	var classifier compose.Runnable[map[string]any, routeLLMOutput]
	if chatModel != nil {
		if strings.TrimSpace(systemPrompt) == "" {
			return nil, errors.New("router: system prompt is required")
		}
		var err error
		classifier, err = compileClassifierGraph(ctx, chatModel, systemPrompt)
		if err != nil {
			return nil, err
		}
	}

	enabledSet := make(map[contractx.Domain]struct{}, len(enabled)+1)
	for _, d := range enabled {
		if d.Valid() {
			enabledSet[d] = struct{}{}
		}
	}
	// The general domain can never be switched off; it is the fallback.
	enabledSet[contractx.DomainGeneral] = struct{}{}

	return &Router{
		enabled:    enabledSet,
		classifier: classifier,
	}, nil
}

func (r *Router) Route(ctx context.Context, question string) (contractx.RouteDecision, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return contractx.RouteDecision{}, fmt.Errorf("%w: question is empty", contractx.ErrValidation)
	}

	decision, ok := r.patternDecision(trimmed)
	if !ok {
		decision, ok = r.keywordDecision(trimmed)
	}
	if !ok {
		decision = r.modelDecision(ctx, trimmed)
	}

	log.Debug().
		Str("domain", string(decision.Domain)).
		Str("method", decision.Method).
		Strs("signals", decision.Signals).
		Msg("routing decision")
	return decision, nil
}

// patternDecision claims solvable equations and bare arithmetic for math
// without any external call.
func (r *Router) patternDecision(question string) (contractx.RouteDecision, bool) {
	if !r.isEnabled(contractx.DomainMath) {
		return contractx.RouteDecision{}, false
	}

	if eq, ok := toolx.ExtractEquation(question); ok && toolx.IsSolvable(eq) {
		return contractx.RouteDecision{
			Domain:  contractx.DomainMath,
			Method:  contractx.RouteMethodPattern,
			Signals: []string{eq},
		}, true
	}
	if expr, ok := toolx.ExtractArithmetic(question); ok {
		return contractx.RouteDecision{
			Domain:  contractx.DomainMath,
			Method:  contractx.RouteMethodPattern,
			Signals: []string{expr},
		}, true
	}
	return contractx.RouteDecision{}, false
}

func (r *Router) keywordDecision(question string) (contractx.RouteDecision, bool) {
	tokens := tokenize(question)

	for _, entry := range keywordTable {
		if !r.isEnabled(entry.domain) {
			continue
		}
		if hits := keywordHits(tokens, entry.keywords); len(hits) > 0 {
			return contractx.RouteDecision{
				Domain:  entry.domain,
				Method:  contractx.RouteMethodKeyword,
				Signals: hits,
			}, true
		}
	}
	return contractx.RouteDecision{}, false
}

func (r *Router) modelDecision(ctx context.Context, question string) contractx.RouteDecision {
	fallback := contractx.RouteDecision{
		Domain: contractx.DomainGeneral,
		Method: contractx.RouteMethodFallback,
	}

	if r.classifier == nil {
		return fallback
	}

	payload := map[string]any{
		"question": question,
		"domains":  r.enabledNames(),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("route classification payload failed, using general")
		return fallback
	}

	out, err := r.classifier.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		log.Warn().Err(err).Msg("route classification failed, using general")
		return fallback
	}

	domain, err := contractx.ParseDomain(out.Domain)
	if err != nil || !r.isEnabled(domain) {
		log.Warn().Str("label", out.Domain).Msg("route classification returned an unusable label, using general")
		return fallback
	}

	return contractx.RouteDecision{
		Domain: domain,
		Method: contractx.RouteMethodModel,
	}
}

func (r *Router) isEnabled(domain contractx.Domain) bool {
	_, ok := r.enabled[domain]
	return ok
}

func (r *Router) enabledNames() []string {
	names := make([]string, 0, len(r.enabled))
	for _, d := range contractx.AllDomains() {
		if r.isEnabled(d) {
			names = append(names, string(d))
		}
	}
	return names
}
