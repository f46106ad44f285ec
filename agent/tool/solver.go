package tool

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Solution is the deterministic output of the equation solver: the worked
// steps, concluding with the value(s) of the variable.
type Solution struct {
	Equation string   `json:"equation"`
	Kind     string   `json:"kind"`
	Variable string   `json:"variable"`
	Steps    []string `json:"steps"`
}

// ErrEquationSyntax marks input outside the solver's grammar: single-variable
// linear and quadratic equations. Callers degrade gracefully instead of
// failing the request.
var ErrEquationSyntax = errors.New("equation is not in a solvable form")

const solverEpsilon = 1e-10

var equationRunPattern = regexp.MustCompile(`(?i)[0-9a-z.²^+\-*/() ]+=[0-9a-z.²^+\-*/() ]+`)

// SolveEquation solves a single-variable linear or quadratic equation and
// returns the worked steps. Anything outside that grammar fails with
// ErrEquationSyntax.
func SolveEquation(equation string) (Solution, error) {
	cleaned := strings.TrimSpace(equation)
	if cleaned == "" {
		return Solution{}, fmt.Errorf("%w: empty input", ErrEquationSyntax)
	}

	normalized := strings.ToLower(strings.ReplaceAll(cleaned, "²", "^2"))

	sides := strings.Split(normalized, "=")
	if len(sides) != 2 || strings.TrimSpace(sides[0]) == "" || strings.TrimSpace(sides[1]) == "" {
		return Solution{}, fmt.Errorf("%w: expected a single '='", ErrEquationSyntax)
	}

	variable, err := detectVariable(normalized)
	if err != nil {
		return Solution{}, err
	}

	l2, l1, l0, err := parseSide(sides[0], variable)
	if err != nil {
		return Solution{}, err
	}
	r2, r1, r0, err := parseSide(sides[1], variable)
	if err != nil {
		return Solution{}, err
	}

	// Move everything left: a2·v² + a1·v + a0 = 0.
	a2 := l2 - r2
	a1 := l1 - r1
	a0 := l0 - r0

	if math.Abs(a2) > solverEpsilon {
		return solveQuadratic(cleaned, variable, a2, a1, a0), nil
	}
	return solveLinear(cleaned, variable, a1, a0), nil
}

// IsSolvable reports whether the input parses as a solvable equation. It is
// the routing fast path's deterministic check.
func IsSolvable(equation string) bool {
	_, err := SolveEquation(equation)
	return err == nil
}

// ExtractEquation pulls an equation candidate out of free text, e.g.
// "Solve 2x + 5 = 15" yields "2x + 5 = 15". The candidate is not guaranteed
// solvable; pair with IsSolvable when that matters.
func ExtractEquation(text string) (string, bool) {
	for _, run := range equationRunPattern.FindAllString(text, -1) {
		candidate := trimEquationCandidate(run)
		if candidate == "" {
			continue
		}
		sides := strings.Split(candidate, "=")
		if len(sides) != 2 || strings.TrimSpace(sides[0]) == "" || strings.TrimSpace(sides[1]) == "" {
			continue
		}
		if !strings.ContainsFunc(candidate, isAsciiLetter) {
			continue
		}
		return candidate, true
	}
	return "", false
}

// trimEquationCandidate strips surrounding prose words ("Solve", "equation")
// that the character-class match drags along.
func trimEquationCandidate(run string) string {
	fields := strings.Fields(run)

	for len(fields) > 0 && isProseWord(fields[0]) {
		fields = fields[1:]
	}
	for len(fields) > 0 && isProseWord(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.TrimSpace(strings.Join(fields, " "))
}

func isProseWord(field string) bool {
	if len(field) < 2 {
		return false
	}
	for _, r := range field {
		if !isAsciiLetter(r) {
			return false
		}
	}
	return true
}

func isAsciiLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func detectVariable(equation string) (string, error) {
	variable := ""
	for _, r := range equation {
		if !isAsciiLetter(r) {
			continue
		}
		switch {
		case variable == "":
			variable = string(r)
		case variable != string(r):
			return "", fmt.Errorf("%w: more than one variable (%s, %s)", ErrEquationSyntax, variable, string(r))
		}
	}
	if variable == "" {
		return "", fmt.Errorf("%w: no variable to solve for", ErrEquationSyntax)
	}
	return variable, nil
}

// parseSide reduces one side of the equation to quadratic, linear, and
// constant coefficients of the variable.
func parseSide(side, variable string) (a2, a1, a0 float64, err error) {
	compact := strings.ReplaceAll(side, " ", "")
	compact = strings.ReplaceAll(compact, "*"+variable, variable)
	compact = strings.ReplaceAll(compact, "-", "+-")

	for _, term := range strings.Split(compact, "+") {
		if term == "" {
			continue
		}
		switch {
		case strings.HasSuffix(term, variable+"^2"):
			coeff, err := parseCoefficient(strings.TrimSuffix(term, variable+"^2"))
			if err != nil {
				return 0, 0, 0, err
			}
			a2 += coeff
		case strings.HasSuffix(term, variable):
			coeff, err := parseCoefficient(strings.TrimSuffix(term, variable))
			if err != nil {
				return 0, 0, 0, err
			}
			a1 += coeff
		default:
			value, perr := strconv.ParseFloat(term, 64)
			if perr != nil {
				return 0, 0, 0, fmt.Errorf("%w: bad term %q", ErrEquationSyntax, term)
			}
			a0 += value
		}
	}
	return a2, a1, a0, nil
}

func parseCoefficient(raw string) (float64, error) {
	switch raw {
	case "", "+":
		return 1, nil
	case "-":
		return -1, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad coefficient %q", ErrEquationSyntax, raw)
	}
	return value, nil
}

// solveLinear works a1·v + a0 = 0 back into "v = value" steps.
func solveLinear(original, variable string, a1, a0 float64) Solution {
	steps := []string{"Equation: " + original}

	if math.Abs(a1) < solverEpsilon {
		if math.Abs(a0) < solverEpsilon {
			steps = append(steps, fmt.Sprintf("Every value of %s satisfies the equation", variable))
		} else {
			steps = append(steps, "No solution exists")
		}
		return Solution{Equation: original, Kind: "linear", Variable: variable, Steps: steps}
	}

	// a1·v = -a0
	rhs := normalizeZero(-a0)
	steps = append(steps, fmt.Sprintf("Collect terms: %s = %s", coeffTerm(a1, variable), formatNumber(rhs)))

	value := normalizeZero(rhs / a1)
	if a1 != 1 {
		steps = append(steps, fmt.Sprintf("Divide both sides by %s: %s = %s / %s",
			formatNumber(a1), variable, formatNumber(rhs), formatNumber(a1)))
	}
	steps = append(steps, fmt.Sprintf("%s = %s", variable, formatNumber(value)))

	return Solution{Equation: original, Kind: "linear", Variable: variable, Steps: steps}
}

// solveQuadratic works a2·v² + a1·v + a0 = 0 through the discriminant.
func solveQuadratic(original, variable string, a2, a1, a0 float64) Solution {
	steps := []string{
		"Equation: " + original,
		"Standard form: " + standardForm(variable, a2, a1, a0),
	}

	d := a1*a1 - 4*a2*a0
	steps = append(steps, fmt.Sprintf("Discriminant: (%s)^2 - 4(%s)(%s) = %s",
		formatNumber(a1), formatNumber(a2), formatNumber(a0), formatNumber(d)))

	switch {
	case d > solverEpsilon:
		sqrtD := math.Sqrt(d)
		r1 := normalizeZero((-a1 + sqrtD) / (2 * a2))
		r2 := normalizeZero((-a1 - sqrtD) / (2 * a2))
		steps = append(steps,
			fmt.Sprintf("%s = (%s ± %s) / %s", variable, formatNumber(-a1), formatNumber(sqrtD), formatNumber(2*a2)),
			fmt.Sprintf("%s = %s or %s = %s", variable, formatNumber(r1), variable, formatNumber(r2)),
		)
	case d >= -solverEpsilon:
		root := normalizeZero(-a1 / (2 * a2))
		steps = append(steps, fmt.Sprintf("%s = %s (double root)", variable, formatNumber(root)))
	default:
		steps = append(steps, "No real solutions")
	}

	return Solution{Equation: original, Kind: "quadratic", Variable: variable, Steps: steps}
}

func standardForm(variable string, a2, a1, a0 float64) string {
	var b strings.Builder
	b.WriteString(coeffTerm(a2, variable+"^2"))
	if a1 != 0 {
		b.WriteString(signJoin(a1))
		b.WriteString(coeffTerm(math.Abs(a1), variable))
	}
	if a0 != 0 {
		b.WriteString(signJoin(a0))
		b.WriteString(formatNumber(math.Abs(a0)))
	}
	b.WriteString(" = 0")
	return b.String()
}

func coeffTerm(coeff float64, symbol string) string {
	switch coeff {
	case 1:
		return symbol
	case -1:
		return "-" + symbol
	}
	return formatNumber(coeff) + symbol
}

func signJoin(v float64) string {
	if v < 0 {
		return " - "
	}
	return " + "
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e12 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func normalizeZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
