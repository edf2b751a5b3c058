// Package names generates agent names in the AdjectiveNoun style
// ("BlueLake", "CrimsonRidge") with bounded retry for uniqueness.
package names

import (
	"fmt"
	"math/rand/v2"
)

// MaxAttempts bounds the uniqueness retry loop; past it a random suffix is
// appended so generation always terminates.
const MaxAttempts = 100

var adjectives = []string{
	"Blue", "Red", "Green", "Golden", "Silver", "Crystal", "Shadow", "Bright",
	"Swift", "Silent", "Bold", "Calm", "Wild", "Noble", "Frost", "Storm",
	"Dawn", "Dusk", "Iron", "Copper", "Azure", "Crimson", "Amber", "Jade",
	"Coral", "Misty", "Sunny", "Lunar", "Solar", "Cosmic", "Terra", "Aqua",
}

var nouns = []string{
	"Lake", "Stone", "River", "Mountain", "Forest", "Valley", "Meadow", "Peak",
	"Canyon", "Desert", "Ocean", "Island", "Prairie", "Grove", "Creek", "Ridge",
	"Harbor", "Cliff", "Glacier", "Dune", "Marsh", "Brook", "Hill", "Plain",
	"Bay", "Cape", "Delta", "Fjord", "Mesa", "Plateau", "Reef", "Tundra",
}

// Generator produces agent names from an injected randomness source, so
// tests can seed it for deterministic output.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded from src. A nil source falls back to the
// shared global generator.
func New(src rand.Source) *Generator {
	if src == nil {
		return &Generator{}
	}
	return &Generator{rng: rand.New(src)}
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}

// Generate returns a random adjective+noun name.
func (g *Generator) Generate() string {
	return adjectives[g.intN(len(adjectives))] + nouns[g.intN(len(nouns))]
}

// Unique returns a name absent from existing. It retries up to MaxAttempts,
// then forces uniqueness with a short random hex suffix.
func (g *Generator) Unique(existing map[string]struct{}) string {
	for range MaxAttempts {
		name := g.Generate()
		if _, taken := existing[name]; !taken {
			return name
		}
	}
	return fmt.Sprintf("%s_%04x", g.Generate(), g.intN(1<<16))
}
