package specialist

import (
	"context"
	"fmt"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
	llmx "github.com/warin-th/tutorgrid/agent/llm"
	promptx "github.com/warin-th/tutorgrid/agent/prompt"
	toolx "github.com/warin-th/tutorgrid/agent/tool"
)

// DomainsConfig is the AGENT_* environment block. The general specialist
// cannot be disabled; it is the routing fallback.
type DomainsConfig struct {
	MathEnabled    bool `envconfig:"MATH_ENABLED" split_words:"true" default:"true"`
	PhysicsEnabled bool `envconfig:"PHYSICS_ENABLED" split_words:"true" default:"true"`
	BiologyEnabled bool `envconfig:"BIOLOGY_ENABLED" split_words:"true" default:"true"`
}

func (c DomainsConfig) Enabled() []contractx.Domain {
	enabled := make([]contractx.Domain, 0, 4)
	if c.MathEnabled {
		enabled = append(enabled, contractx.DomainMath)
	}
	if c.PhysicsEnabled {
		enabled = append(enabled, contractx.DomainPhysics)
	}
	if c.BiologyEnabled {
		enabled = append(enabled, contractx.DomainBiology)
	}
	return append(enabled, contractx.DomainGeneral)
}

var domainDescriptions = map[contractx.Domain]string{
	contractx.DomainMath:    "Solves equations and arithmetic step by step, with formula references.",
	contractx.DomainPhysics: "Explains mechanics, energy, and motion, grounded in the formula table.",
	contractx.DomainBiology: "Covers cells, genetics, evolution, and ecosystems.",
	contractx.DomainGeneral: "Answers anything outside the subject specialists.",
}

type registryImpl struct {
	domains    []contractx.Domain
	responders map[contractx.Domain]contractx.Responder
}

func (r *registryImpl) Responder(domain contractx.Domain) (contractx.Responder, bool) {
	responder, ok := r.responders[domain]
	return responder, ok
}

func (r *registryImpl) Agents() []contractx.AgentInfo {
	infos := make([]contractx.AgentInfo, 0, len(r.domains))
	for _, domain := range r.domains {
		infos = append(infos, contractx.AgentInfo{
			Domain:      domain,
			Description: domainDescriptions[domain],
			Tools:       toolx.Names(domain),
		})
	}
	return infos
}

// NewRegistry builds one responder per enabled domain. Each responder gets
// its own chat model so per-domain model and temperature overrides apply.
func NewRegistry(ctx context.Context, cfg llmx.Config, enabled []contractx.Domain) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()
	domains := normalizeEnabled(enabled)
	responders := make(map[contractx.Domain]contractx.Responder, len(domains))

	for _, domain := range domains {
		systemPrompt, err := prompts.ForDomain(domain)
		if err != nil {
			return nil, err
		}

		modelCfg := cfg.OpenRouterForDomain(domain)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrUpstreamUnavailable, domain, err)
		}

		responder, err := newSpecialist(ctx, domain, chatModel, systemPrompt)
		if err != nil {
			return nil, err
		}
		responders[domain] = responder
	}

	return &registryImpl{
		domains:    domains,
		responders: responders,
	}, nil
}

// normalizeEnabled dedupes the requested domains, forces general in, and
// fixes presentation order to the routing precedence order.
func normalizeEnabled(enabled []contractx.Domain) []contractx.Domain {
	requested := make(map[contractx.Domain]struct{}, len(enabled)+1)
	for _, d := range enabled {
		if d.Valid() {
			requested[d] = struct{}{}
		}
	}
	requested[contractx.DomainGeneral] = struct{}{}

	domains := make([]contractx.Domain, 0, len(requested))
	for _, d := range contractx.AllDomains() {
		if _, ok := requested[d]; ok {
			domains = append(domains, d)
		}
	}
	return domains
}
