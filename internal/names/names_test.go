package names

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	a := New(rand.NewPCG(1, 2))
	b := New(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		if got, want := a.Generate(), b.Generate(); got != want {
			t.Fatalf("same seed diverged at %d: %q vs %q", i, got, want)
		}
	}
}

func TestUniqueAvoidsExisting(t *testing.T) {
	g := New(rand.NewPCG(7, 7))
	existing := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		name := g.Unique(existing)
		if _, dup := existing[name]; dup {
			t.Fatalf("duplicate name generated: %q", name)
		}
		existing[name] = struct{}{}
	}
}

func TestUniqueSuffixFallback(t *testing.T) {
	g := New(rand.NewPCG(3, 9))
	// Saturate the whole adjective x noun space so every attempt collides.
	existing := make(map[string]struct{}, len(adjectives)*len(nouns))
	for _, a := range adjectives {
		for _, n := range nouns {
			existing[a+n] = struct{}{}
		}
	}
	name := g.Unique(existing)
	if _, taken := existing[name]; taken {
		t.Fatalf("fallback name %q still collides", name)
	}
	if !strings.Contains(name, "_") {
		t.Fatalf("expected suffixed fallback name, got %q", name)
	}
}
