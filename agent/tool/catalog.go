package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

const (
	ToolFormulaLookup = "formula.lookup"
	ToolEquationSolve = "equation.solve"
	ToolMathEvaluate  = "math.evaluate"
)

type Executor func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error)

// domainTools is the per-specialist allowlist. Order is what /agents reports.
var domainTools = map[contractx.Domain][]string{
	contractx.DomainMath:    {ToolEquationSolve, ToolMathEvaluate, ToolFormulaLookup},
	contractx.DomainPhysics: {ToolFormulaLookup, ToolMathEvaluate},
	contractx.DomainBiology: nil,
	contractx.DomainGeneral: nil,
}

var toolInfos = map[string]*schema.ToolInfo{
	ToolFormulaLookup: {
		Name: ToolFormulaLookup,
		Desc: "Look up a named formula from the reference table.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name": {Type: schema.String, Desc: "Formula name, e.g. kinetic_energy", Required: true},
		}),
	},
	ToolEquationSolve: {
		Name: ToolEquationSolve,
		Desc: "Solve a single-variable linear or quadratic equation with worked steps.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"equation": {Type: schema.String, Desc: "Equation to solve, e.g. 3x + 7 = 22", Required: true},
		}),
	},
	ToolMathEvaluate: {
		Name: ToolMathEvaluate,
		Desc: "Evaluate a mathematical expression.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
		}),
	},
}

func BuildForDomain(domain contractx.Domain) ([]*schema.ToolInfo, Executor) {
	return InfosForDomain(domain), NewExecutor(domain)
}

// Names lists the tools available to a specialist. Always non-nil so callers
// can marshal it as an empty list.
func Names(domain contractx.Domain) []string {
	names := domainTools[domain]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func InfosForDomain(domain contractx.Domain) []*schema.ToolInfo {
	var infos []*schema.ToolInfo
	for _, name := range domainTools[domain] {
		if info, ok := toolInfos[name]; ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// NewExecutor dispatches tool requests for one specialist. Tool failures are
// reported inside the result, never as an error: a bad tool call degrades the
// answer, it does not fail the turn.
func NewExecutor(domain contractx.Domain) Executor {
	allowed := make(map[string]struct{}, len(domainTools[domain]))
	for _, name := range domainTools[domain] {
		allowed[name] = struct{}{}
	}
	fallback := DefaultExecutor(domain)

	return func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		if _, ok := allowed[req.Tool]; !ok {
			return fallback(ctx, req)
		}
		switch req.Tool {
		case ToolMathEvaluate:
			return executeMathTool(req.Tool, req.Args)
		case ToolEquationSolve:
			return executeSolveTool(req.Tool, req.Args)
		case ToolFormulaLookup:
			return executeFormulaTool(req.Tool, req.Args)
		default:
			return fallback(ctx, req)
		}
	}
}

func DefaultExecutor(domain contractx.Domain) Executor {
	return func(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is unavailable for specialist=%s", req.Tool, domain),
		}, nil
	}
}

func executeSolveTool(tool string, args map[string]any) (contractx.ToolResult, error) {
	equation, ok := stringArg(args, "equation")
	if !ok {
		return contractx.ToolResult{
			Tool:  tool,
			Error: "equation is required",
		}, nil
	}

	solution, err := SolveEquation(equation)
	if err != nil {
		return contractx.ToolResult{
			Tool:  tool,
			Error: err.Error(),
		}, nil
	}
	return contractx.ToolResult{
		Tool:   tool,
		Result: solution,
	}, nil
}

func executeFormulaTool(tool string, args map[string]any) (contractx.ToolResult, error) {
	name, ok := stringArg(args, "name")
	if !ok {
		return contractx.ToolResult{
			Tool:  tool,
			Error: "name is required",
		}, nil
	}

	formula, err := LookupFormula(name)
	if errors.Is(err, ErrFormulaNotFound) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("formula not found: %s", name),
		}, nil
	}
	if err != nil {
		return contractx.ToolResult{
			Tool:  tool,
			Error: err.Error(),
		}, nil
	}
	return contractx.ToolResult{
		Tool:   tool,
		Result: formula,
	}, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		return "", false
	}
	return value, true
}
