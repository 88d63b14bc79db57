package worktree

import (
	"errors"
	"fmt"
	"path"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned when an ignore pattern does not compile.
var ErrInvalidPattern = errors.New("invalid ignore pattern")

// Matcher decides which working-tree paths are ignored.
// A pattern without '/' is matched against the base name as well as the
// full slash-separated path.
type Matcher struct {
	patterns []string
	full     []glob.Glob
	base     []glob.Glob
}

// NewMatcher compiles patterns into a Matcher.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", p, err))
		}
		m.full = append(m.full, g)
		if !containsSlash(p) {
			m.base = append(m.base, g)
		}
	}
	return m, nil
}

func containsSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}

// Match reports whether the slash-separated relative path is ignored.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.full {
		if g.Match(rel) {
			return true
		}
	}
	name := path.Base(rel)
	for _, g := range m.base {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}
