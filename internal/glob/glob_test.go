package glob

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"src/a.ts", "src/a.ts", true},
		{"src/a.ts", "src/b.ts", false},
		{"src/*", "src/a.ts", true},
		{"src/*", "src/deep/nested.ts", true}, // star crosses separators
		{"src/*", "lib/a.ts", false},
		{"*.go", "main.go", true},
		{"*.go", "main.rs", false},
		{"src/*/index.ts", "src/app/index.ts", true},
		{"src/*/index.ts", "src/index.ts", false}, // literal separators still required
		{"src/*/index.ts", "src/app/other.ts", false},
		{"*", "anything/at/all", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "acb", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"src/a.ts", "src/a.ts", true},
		{"src/a.ts", "src/b.ts", false},
		// Symmetric containment: either side may be the broader glob.
		{"src/*", "src/foo.ts", true},
		{"src/foo.ts", "src/*", true},
		{"src/*", "lib/foo.ts", false},
		{"*.go", "*.go", true},
		// Two globs overlap only when one matches the other literally.
		{"src/*", "*/a.ts", false},
		{"src/*", "src/*x", true},
	}
	for _, tt := range tests {
		if got := Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Overlaps(tt.b, tt.a); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestValidateComplexity(t *testing.T) {
	if err := ValidateComplexity("internal/http/*.go"); err != nil {
		t.Fatalf("normal pattern rejected: %v", err)
	}
	if err := ValidateComplexity("*a*a*a*a*a*a*a*a*a*a*a*"); err == nil {
		t.Fatal("expected complexity error for pattern with many wildcards")
	}
}
