package contract

import (
	"fmt"
	"strings"

	statex "github.com/warin-th/tutorgrid/agent/state"
)

// Domain identifies which subject specialist handles a question.
type Domain string

const (
	DomainMath    Domain = "math"
	DomainPhysics Domain = "physics"
	DomainBiology Domain = "biology"
	DomainGeneral Domain = "general"
)

// AllDomains returns the closed domain set in routing precedence order.
// The fast path checks signals in exactly this order; first match wins.
func AllDomains() []Domain {
	return []Domain{DomainMath, DomainPhysics, DomainBiology, DomainGeneral}
}

func (d Domain) Valid() bool {
	switch d {
	case DomainMath, DomainPhysics, DomainBiology, DomainGeneral:
		return true
	}
	return false
}

// ParseDomain normalizes a caller-supplied domain label.
func ParseDomain(raw string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, raw)
	}
	return d, nil
}

const (
	RouteMethodPattern  = "pattern"
	RouteMethodKeyword  = "keyword"
	RouteMethodModel    = "model"
	RouteMethodFallback = "fallback"
	RouteMethodPinned   = "pinned"
)

type AskRequest struct {
	Question   string `json:"question"`
	SessionID  string `json:"session_id,omitempty"`
	UseContext bool   `json:"use_context_history"`

	// Domain pins the specialist and skips routing when non-empty.
	Domain Domain `json:"domain,omitempty"`
}

type AskResult struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	AgentUsed Domain `json:"agent_used"`

	// ContextReset reports that a supplied session id was absent or expired
	// and the turn landed in a fresh session instead.
	ContextReset bool `json:"context_reset,omitempty"`
}

type RouteDecision struct {
	Domain  Domain   `json:"domain"`
	Method  string   `json:"method"`
	Signals []string `json:"signals,omitempty"`
}

type RespondRequest struct {
	Question string        `json:"question"`
	Context  []statex.Turn `json:"context,omitempty"`
}

type RespondResult struct {
	Answer      string       `json:"answer"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type AgentInfo struct {
	Domain      Domain   `json:"domain"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}
