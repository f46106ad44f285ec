package router

import (
	"strings"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

type domainKeywords struct {
	domain   contractx.Domain
	keywords []string
}

// keywordTable order sets precedence: the first domain with a hit wins.
var keywordTable = []domainKeywords{
	{
		domain: contractx.DomainMath,
		keywords: []string{
			"solve", "equation", "calculate", "algebra", "derivative",
			"integral", "geometry", "polynomial", "fraction", "math",
		},
	},
	{
		domain: contractx.DomainPhysics,
		keywords: []string{
			"force", "velocity", "acceleration", "energy", "momentum",
			"gravity", "newton", "friction", "physics", "motion", "mass", "wave",
		},
	},
	{
		domain: contractx.DomainBiology,
		keywords: []string{
			"cell", "dna", "photosynthesis", "evolution", "organism",
			"protein", "enzyme", "biology", "gene", "bacteria", "ecosystem", "mitosis",
		},
	},
}

// tokenize lowercases the text, splits on anything that is not a letter or
// digit, and records a singular form next to each token so that plural
// keyword usage still matches.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	for _, field := range fields {
		tokens[field] = struct{}{}
		if singular := strings.TrimSuffix(field, "s"); singular != field && singular != "" {
			tokens[singular] = struct{}{}
		}
	}
	return tokens
}

// keywordHits reports the keywords present in the token set, in table order,
// so identical questions always produce identical signals.
func keywordHits(tokens map[string]struct{}, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if _, ok := tokens[kw]; ok {
			hits = append(hits, kw)
		}
	}
	return hits
}
