package tool

import (
	"errors"
	"strings"
)

// Formula is one entry of the static reference table. The table is read-only;
// lookups are pure and safe from any goroutine.
type Formula struct {
	Name        string `json:"name"`
	Expression  string `json:"expression"`
	Description string `json:"description"`
}

var ErrFormulaNotFound = errors.New("formula not found")

// Ordered so search results and /agents listings stay deterministic.
var formulaTable = []Formula{
	{
		Name:        "quadratic_formula",
		Expression:  "x = (-b ± √(b² - 4ac)) / (2a)",
		Description: "Roots of a quadratic equation ax² + bx + c = 0.",
	},
	{
		Name:        "area_circle",
		Expression:  "A = πr²",
		Description: "Area of a circle with radius r.",
	},
	{
		Name:        "area_triangle",
		Expression:  "A = (1/2)bh",
		Description: "Area of a triangle with base b and height h.",
	},
	{
		Name:        "pythagorean_theorem",
		Expression:  "a² + b² = c²",
		Description: "Relation between the sides of a right triangle.",
	},
	{
		Name:        "kinematic_position",
		Expression:  "x = x₀ + v₀t + (1/2)at²",
		Description: "Position under constant acceleration.",
	},
	{
		Name:        "kinematic_velocity",
		Expression:  "v = v₀ + at",
		Description: "Velocity under constant acceleration.",
	},
	{
		Name:        "force",
		Expression:  "F = ma",
		Description: "Newton's second law of motion.",
	},
	{
		Name:        "kinetic_energy",
		Expression:  "KE = (1/2)mv²",
		Description: "Kinetic energy of a mass m moving at speed v.",
	},
	{
		Name:        "potential_energy",
		Expression:  "PE = mgh",
		Description: "Gravitational potential energy near the surface.",
	},
	{
		Name:        "ohms_law",
		Expression:  "V = IR",
		Description: "Voltage across a resistance R carrying current I.",
	},
}

var formulaIndex = buildFormulaIndex()

func buildFormulaIndex() map[string]Formula {
	index := make(map[string]Formula, len(formulaTable))
	for _, f := range formulaTable {
		index[f.Name] = f
	}
	return index
}

// LookupFormula resolves a formula by name. Names are case-insensitive and
// spaces or hyphens count as underscores, so "kinetic energy" and
// "kinetic_energy" hit the same entry.
func LookupFormula(name string) (Formula, error) {
	canonical := canonicalFormulaName(name)
	if canonical == "" {
		return Formula{}, ErrFormulaNotFound
	}
	if f, ok := formulaIndex[canonical]; ok {
		return f, nil
	}
	return Formula{}, ErrFormulaNotFound
}

// SearchFormulas returns every formula whose name shares a token with the
// query, in table order. An empty result is not an error.
func SearchFormulas(query string) []Formula {
	tokens := strings.FieldsFunc(canonicalFormulaName(query), func(r rune) bool {
		return r == '_'
	})
	if len(tokens) == 0 {
		return nil
	}

	var matches []Formula
	for _, f := range formulaTable {
		if formulaMatchesTokens(f.Name, tokens) {
			matches = append(matches, f)
		}
	}
	return matches
}

// MatchFormulas scans free text for formula names mentioned in it, used to
// pre-compute lookups from a raw question.
func MatchFormulas(text string) []Formula {
	canonical := canonicalFormulaName(text)
	if canonical == "" {
		return nil
	}

	var matches []Formula
	for _, f := range formulaTable {
		if strings.Contains(canonical, f.Name) {
			matches = append(matches, f)
		}
	}
	return matches
}

func formulaMatchesTokens(name string, tokens []string) bool {
	parts := strings.Split(name, "_")
	for _, token := range tokens {
		for _, part := range parts {
			if part == token {
				return true
			}
		}
	}
	return false
}

func canonicalFormulaName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	replaced := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_' || r == '\t' || r == '\n':
			return '_'
		default:
			return -1
		}
	}, lowered)

	for strings.Contains(replaced, "__") {
		replaced = strings.ReplaceAll(replaced, "__", "_")
	}
	return strings.Trim(replaced, "_")
}
