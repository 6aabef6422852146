// Package pattern compiles glob-style patterns to matchers.
//
// Patterns support '*' (any run of characters, including none) and '?'
// (exactly one character). All other characters match literally.
package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// cacheLimit is the maximum number of compiled patterns that are memoized.
// Callers that compile an unbounded number of distinct dynamic patterns pay
// a recompile once the limit is reached, rather than growing memory forever.
const cacheLimit = 256

// Matcher is a compiled glob pattern.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile returns a case-sensitive matcher for the given glob pattern.
// Matchers are memoized by pattern text.
func Compile(glob string) *Matcher {
	return compile(glob, false)
}

// CompileFold returns a case-insensitive matcher for the given glob pattern.
// Matchers are memoized by pattern text, independently of Compile.
func CompileFold(glob string) *Matcher {
	return compile(glob, true)
}

// HasWildcard returns true if glob contains at least one wildcard character.
func HasWildcard(glob string) bool {
	return strings.ContainsAny(glob, "*?")
}

// Match returns true if s matches the pattern.
func (m *Matcher) Match(s string) bool {
	return m.re.MatchString(s)
}

// String returns the original pattern text.
func (m *Matcher) String() string {
	return m.pattern
}

var (
	mutex sync.Mutex
	cache = map[cacheKey]*Matcher{}
)

type cacheKey struct {
	glob string
	fold bool
}

func compile(glob string, fold bool) *Matcher {
	k := cacheKey{glob, fold}

	mutex.Lock()
	defer mutex.Unlock()

	if m, ok := cache[k]; ok {
		return m
	}

	m := &Matcher{
		pattern: glob,
		re:      regexp.MustCompile(translate(glob, fold)),
	}

	if len(cache) >= cacheLimit {
		// Evict an arbitrary entry to stay within the limit.
		for victim := range cache {
			delete(cache, victim)
			break
		}
	}

	cache[k] = m

	return m
}

// translate converts a glob pattern to an anchored regular expression.
func translate(glob string, fold bool) string {
	var b strings.Builder

	if fold {
		b.WriteString("(?i)")
	}

	b.WriteString(`\A`)

	literal := 0
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*', '?':
			b.WriteString(regexp.QuoteMeta(glob[literal:i]))
			if glob[i] == '*' {
				b.WriteString(`.*`)
			} else {
				b.WriteString(`.`)
			}
			literal = i + 1
		}
	}

	b.WriteString(regexp.QuoteMeta(glob[literal:]))
	b.WriteString(`\z`)

	return b.String()
}
