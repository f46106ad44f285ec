package tool

import (
	"errors"
	"testing"
)

func TestLookupFormulaCanonicalizesNames(t *testing.T) {
	t.Parallel()

	variants := []string{
		"kinetic_energy",
		"kinetic energy",
		"Kinetic Energy",
		"  KINETIC-ENERGY  ",
	}

	for _, name := range variants {
		formula, err := LookupFormula(name)
		if err != nil {
			t.Fatalf("LookupFormula(%q) error = %v", name, err)
		}
		if formula.Name != "kinetic_energy" {
			t.Fatalf("LookupFormula(%q).Name = %q, want kinetic_energy", name, formula.Name)
		}
		if formula.Expression != "KE = (1/2)mv²" {
			t.Fatalf("LookupFormula(%q).Expression = %q", name, formula.Expression)
		}
	}
}

func TestLookupFormulaIsPure(t *testing.T) {
	t.Parallel()

	first, err := LookupFormula("kinetic energy")
	if err != nil {
		t.Fatalf("LookupFormula() error = %v", err)
	}
	second, err := LookupFormula("kinetic energy")
	if err != nil {
		t.Fatalf("LookupFormula() error = %v", err)
	}
	if first != second {
		t.Fatalf("repeated lookups differ: %+v vs %+v", first, second)
	}
}

func TestLookupFormulaNotFound(t *testing.T) {
	t.Parallel()

	_, err := LookupFormula("warp drive")
	if !errors.Is(err, ErrFormulaNotFound) {
		t.Fatalf("LookupFormula() error = %v, want ErrFormulaNotFound", err)
	}
	if _, err := LookupFormula("   "); !errors.Is(err, ErrFormulaNotFound) {
		t.Fatalf("blank LookupFormula() error = %v, want ErrFormulaNotFound", err)
	}
}

func TestSearchFormulasByToken(t *testing.T) {
	t.Parallel()

	matches := SearchFormulas("energy")
	if len(matches) != 2 {
		t.Fatalf("SearchFormulas(energy) = %d matches, want 2", len(matches))
	}
	if matches[0].Name != "kinetic_energy" || matches[1].Name != "potential_energy" {
		t.Fatalf("SearchFormulas(energy) = %q, %q", matches[0].Name, matches[1].Name)
	}

	if matches := SearchFormulas("circle"); len(matches) != 1 || matches[0].Name != "area_circle" {
		t.Fatalf("SearchFormulas(circle) = %+v, want area_circle", matches)
	}

	if matches := SearchFormulas("nonexistent"); matches != nil {
		t.Fatalf("SearchFormulas(nonexistent) = %+v, want nil", matches)
	}
}

func TestMatchFormulasInFreeText(t *testing.T) {
	t.Parallel()

	matches := MatchFormulas("What is the formula for kinetic energy?")
	if len(matches) != 1 || matches[0].Name != "kinetic_energy" {
		t.Fatalf("MatchFormulas() = %+v, want kinetic_energy", matches)
	}

	if matches := MatchFormulas("Tell me about cell division"); matches != nil {
		t.Fatalf("MatchFormulas() = %+v, want nil", matches)
	}
}
