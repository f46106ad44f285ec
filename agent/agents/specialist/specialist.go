package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
	statex "github.com/warin-th/tutorgrid/agent/state"
	toolx "github.com/warin-th/tutorgrid/agent/tool"
)

type specialistImpl struct {
	domain       contractx.Domain
	answerRunner compose.Runnable[map[string]any, *schema.Message]
	executor     toolx.Executor
	toolOrder    []string
}

func newSpecialist(
	ctx context.Context,
	domain contractx.Domain,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*specialistImpl, error) {
	answerRunner, err := compileAnswerGraph(ctx, chatModel, systemPrompt, fmt.Sprintf("specialist.%s_graph", domain))
	if err != nil {
		return nil, fmt.Errorf("compile answer graph for specialist=%s: %w", domain, err)
	}

	return &specialistImpl{
		domain:       domain,
		answerRunner: answerRunner,
		executor:     toolx.NewExecutor(domain),
		toolOrder:    toolx.Names(domain),
	}, nil
}

func (s *specialistImpl) Respond(ctx context.Context, req contractx.RespondRequest) (contractx.RespondResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return contractx.RespondResult{}, fmt.Errorf("%w: question is empty", contractx.ErrValidation)
	}

	toolResults := s.consultTools(ctx, question)

	payload := map[string]any{
		"question":     question,
		"context":      summarizeContext(req.Context),
		"tool_results": toolResults,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.RespondResult{}, fmt.Errorf("%w: marshal responder payload: %v", contractx.ErrValidation, err)
	}

	msg, err := s.answerRunner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.RespondResult{}, fmt.Errorf("%w: specialist=%s invoke: %v", contractx.ErrUpstreamTimeout, s.domain, err)
		}
		return contractx.RespondResult{}, fmt.Errorf("%w: specialist=%s invoke: %v", contractx.ErrUpstreamUnavailable, s.domain, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return contractx.RespondResult{}, fmt.Errorf("%w: specialist=%s returned an empty answer", contractx.ErrSchemaViolation, s.domain)
	}

	return contractx.RespondResult{
		Answer:      strings.TrimSpace(msg.Content),
		ToolResults: toolResults,
	}, nil
}

// consultTools runs every allowed tool whose input shape appears in the
// question, before the model is called. A tool failure lands inside its
// result entry so the model can still answer from its own knowledge.
func (s *specialistImpl) consultTools(ctx context.Context, question string) []contractx.ToolResult {
	var results []contractx.ToolResult

	for _, name := range s.toolOrder {
		switch name {
		case toolx.ToolEquationSolve:
			eq, ok := toolx.ExtractEquation(question)
			if !ok {
				continue
			}
			results = append(results, s.runTool(ctx, name, map[string]any{"equation": eq}))
		case toolx.ToolMathEvaluate:
			expr, ok := toolx.ExtractArithmetic(question)
			if !ok {
				continue
			}
			results = append(results, s.runTool(ctx, name, map[string]any{"expression": expr}))
		case toolx.ToolFormulaLookup:
			for _, formula := range toolx.MatchFormulas(question) {
				results = append(results, s.runTool(ctx, name, map[string]any{"name": formula.Name}))
			}
		}
	}
	return results
}

func (s *specialistImpl) runTool(ctx context.Context, tool string, args map[string]any) contractx.ToolResult {
	result, err := s.executor(ctx, contractx.ToolRequest{
		Tool: tool,
		Args: args,
	})
	if err != nil {
		result = contractx.ToolResult{
			Tool:  tool,
			Error: err.Error(),
		}
	}
	if result.Error != "" {
		log.Warn().
			Str("specialist", string(s.domain)).
			Str("tool", tool).
			Str("reason", result.Error).
			Msg("tool consultation degraded")
	}
	return result
}

// summarizeContext flattens prior turns into the shape the prompt templates
// describe. Always non-nil so the payload marshals as an empty list.
func summarizeContext(turns []statex.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		out = append(out, map[string]any{
			"question":   turn.Question,
			"answer":     turn.Answer,
			"specialist": turn.Specialist,
		})
	}
	return out
}
