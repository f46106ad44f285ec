package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/math.txt
	mathRaw string

	//go:embed template/physics.txt
	physicsRaw string

	//go:embed template/biology.txt
	biologyRaw string

	//go:embed template/general.txt
	generalRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router  string
	Math    string
	Physics string
	Biology string
	General string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:  strings.TrimSpace(routerRaw),
		Math:    strings.TrimSpace(mathRaw),
		Physics: strings.TrimSpace(physicsRaw),
		Biology: strings.TrimSpace(biologyRaw),
		General: strings.TrimSpace(generalRaw),
	}
}

// ForDomain returns the system prompt of one specialist.
func (p PromptSet) ForDomain(domain contractx.Domain) (string, error) {
	switch domain {
	case contractx.DomainMath:
		return p.Math, nil
	case contractx.DomainPhysics:
		return p.Physics, nil
	case contractx.DomainBiology:
		return p.Biology, nil
	case contractx.DomainGeneral:
		return p.General, nil
	}
	return "", fmt.Errorf("%w: no prompt for domain %q", contractx.ErrPromptMissing, domain)
}
