// Package glob implements the path-pattern matching used by the reservation
// engine. Patterns are literal paths with `*` wildcards; a `*` matches any
// substring, including path separators, so `src/*` covers the whole subtree.
package glob

import (
	"fmt"
	"strings"
)

// MaxWildcards bounds pattern complexity. Matching is linear per wildcard
// segment, so a hostile pattern with many stars could still be slow against
// long inputs; the cap keeps the worst case trivial.
const MaxWildcards = 10

// ValidateComplexity rejects patterns with too many wildcards.
func ValidateComplexity(pattern string) error {
	if n := strings.Count(pattern, "*"); n > MaxWildcards {
		return fmt.Errorf("pattern too complex: %d wildcards exceeds limit of %d", n, MaxWildcards)
	}
	return nil
}

// Match reports whether path matches pattern. Every non-`*` byte is literal.
func Match(pattern, path string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == path
	}

	// Anchor the first and last literal fragments, then greedily place the
	// middle fragments left to right. Greedy placement is sound because
	// fragments are plain substrings.
	first, last := parts[0], parts[len(parts)-1]
	if !strings.HasPrefix(path, first) {
		return false
	}
	rest := path[len(first):]
	if !strings.HasSuffix(rest, last) {
		return false
	}
	rest = rest[:len(rest)-len(last)]

	for _, frag := range parts[1 : len(parts)-1] {
		if frag == "" {
			continue
		}
		idx := strings.Index(rest, frag)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(frag):]
	}
	return true
}

// Overlaps reports whether two patterns contend for the same paths: they are
// equal, or either one matches the other taken as a literal path. The check
// is symmetric because either side of a conflict may be the broader glob —
// a held `src/*` must block a request for `src/foo.ts`, and a held
// `src/foo.ts` must block a request for `src/*`.
func Overlaps(a, b string) bool {
	if a == b {
		return true
	}
	return Match(a, b) || Match(b, a)
}
