package router

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

type fakeChatModel struct {
	content string
	err     error
	calls   int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: f.content,
	}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func allDomainsEnabled() []contractx.Domain {
	return []contractx.Domain{
		contractx.DomainMath,
		contractx.DomainPhysics,
		contractx.DomainBiology,
		contractx.DomainGeneral,
	}
}

func newTestRouter(t *testing.T, fake *fakeChatModel, enabled []contractx.Domain) *Router {
	t.Helper()

	r, err := New(context.Background(), fake, "classifier prompt", enabled)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRouteEquationPattern(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"biology"}`}
	r := newTestRouter(t, fake, allDomainsEnabled())

	decision, err := r.Route(context.Background(), "Solve 2x + 5 = 15")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainMath {
		t.Fatalf("domain = %s, want math", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodPattern {
		t.Fatalf("method = %s, want pattern", decision.Method)
	}
	if len(decision.Signals) != 1 || decision.Signals[0] != "2x + 5 = 15" {
		t.Fatalf("signals = %#v, want the extracted equation", decision.Signals)
	}
	if fake.calls != 0 {
		t.Fatalf("model calls = %d, want 0 for the pattern path", fake.calls)
	}
}

func TestRouteArithmeticPattern(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"biology"}`}
	r := newTestRouter(t, fake, allDomainsEnabled())

	decision, err := r.Route(context.Background(), "What is 12 * 8?")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainMath {
		t.Fatalf("domain = %s, want math", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodPattern {
		t.Fatalf("method = %s, want pattern", decision.Method)
	}
	if fake.calls != 0 {
		t.Fatalf("model calls = %d, want 0 for the pattern path", fake.calls)
	}
}

func TestRouteKeywords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		question string
		domain   contractx.Domain
		signals  []string
	}{
		{
			name:     "physics keyword",
			question: "How does gravity affect falling objects?",
			domain:   contractx.DomainPhysics,
			signals:  []string{"gravity"},
		},
		{
			name:     "biology keyword",
			question: "Explain photosynthesis to me",
			domain:   contractx.DomainBiology,
			signals:  []string{"photosynthesis"},
		},
		{
			name:     "math keywords in table order",
			question: "Help me solve this algebra homework",
			domain:   contractx.DomainMath,
			signals:  []string{"solve", "algebra"},
		},
		{
			name:     "plural keyword matches singular entry",
			question: "What are enzymes made of?",
			domain:   contractx.DomainBiology,
			signals:  []string{"enzyme"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeChatModel{content: `{"domain":"general"}`}
			r := newTestRouter(t, fake, allDomainsEnabled())

			decision, err := r.Route(context.Background(), tc.question)
			if err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if decision.Domain != tc.domain {
				t.Fatalf("domain = %s, want %s", decision.Domain, tc.domain)
			}
			if decision.Method != contractx.RouteMethodKeyword {
				t.Fatalf("method = %s, want keyword", decision.Method)
			}
			if len(decision.Signals) != len(tc.signals) {
				t.Fatalf("signals = %#v, want %#v", decision.Signals, tc.signals)
			}
			for i := range tc.signals {
				if decision.Signals[i] != tc.signals[i] {
					t.Fatalf("signals = %#v, want %#v", decision.Signals, tc.signals)
				}
			}
			if fake.calls != 0 {
				t.Fatalf("model calls = %d, want 0 for the keyword path", fake.calls)
			}
		})
	}
}

func TestRouteModelClassification(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"physics"}`}
	r := newTestRouter(t, fake, allDomainsEnabled())

	decision, err := r.Route(context.Background(), "Why is the sky blue during sunsets?")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainPhysics {
		t.Fatalf("domain = %s, want physics", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodModel {
		t.Fatalf("method = %s, want model", decision.Method)
	}
	if fake.calls != 1 {
		t.Fatalf("model calls = %d, want 1", fake.calls)
	}
}

func TestRouteFallsBackOnModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("upstream exploded")}
	r := newTestRouter(t, fake, allDomainsEnabled())

	decision, err := r.Route(context.Background(), "Tell me about the weather tomorrow")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainGeneral {
		t.Fatalf("domain = %s, want general", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodFallback {
		t.Fatalf("method = %s, want fallback", decision.Method)
	}
}

func TestRouteFallsBackOnUnknownLabel(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"chemistry"}`}
	r := newTestRouter(t, fake, allDomainsEnabled())

	decision, err := r.Route(context.Background(), "Tell me something interesting")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainGeneral {
		t.Fatalf("domain = %s, want general", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodFallback {
		t.Fatalf("method = %s, want fallback", decision.Method)
	}
}

func TestRouteSkipsDisabledDomains(t *testing.T) {
	t.Parallel()

	// Biology is switched off, so its keyword must not claim the question
	// and a biology label from the classifier must not be honored either.
	fake := &fakeChatModel{content: `{"domain":"biology"}`}
	r := newTestRouter(t, fake, []contractx.Domain{contractx.DomainMath, contractx.DomainPhysics})

	decision, err := r.Route(context.Background(), "What is DNA made of?")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainGeneral {
		t.Fatalf("domain = %s, want general", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodFallback {
		t.Fatalf("method = %s, want fallback", decision.Method)
	}
}

func TestRouteDisabledMathDoesNotClaimEquations(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"math"}`}
	r := newTestRouter(t, fake, []contractx.Domain{contractx.DomainPhysics})

	decision, err := r.Route(context.Background(), "Solve 2x + 5 = 15")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if decision.Domain != contractx.DomainGeneral {
		t.Fatalf("domain = %s, want general when math is disabled", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodFallback {
		t.Fatalf("method = %s, want fallback", decision.Method)
	}
}

func TestRouteRejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: `{"domain":"general"}`}
	r := newTestRouter(t, fake, allDomainsEnabled())

	_, err := r.Route(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewRequiresPromptWithModel(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), &fakeChatModel{}, "  ", allDomainsEnabled()); err == nil {
		t.Fatal("expected error for blank system prompt")
	}
}

func TestNilModelDisablesClassifier(t *testing.T) {
	t.Parallel()

	r, err := New(context.Background(), nil, "", allDomainsEnabled())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	decision, err := r.Route(context.Background(), "Why is the sky blue during sunsets?")
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if decision.Domain != contractx.DomainGeneral {
		t.Fatalf("domain = %s, want general", decision.Domain)
	}
	if decision.Method != contractx.RouteMethodFallback {
		t.Fatalf("method = %s, want fallback", decision.Method)
	}

	// Deterministic signals still work without a classifier.
	decision, err = r.Route(context.Background(), "Solve 2x + 5 = 15")
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if decision.Domain != contractx.DomainMath || decision.Method != contractx.RouteMethodPattern {
		t.Fatalf("decision = %+v, want math via pattern", decision)
	}
}

func TestTokenizeSplitsAndSingularizes(t *testing.T) {
	t.Parallel()

	tokens := tokenize("Equations, waves & CELLS!")
	for _, want := range []string{"equations", "equation", "waves", "wave", "cells", "cell"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("tokens missing %q: %#v", want, tokens)
		}
	}
}
