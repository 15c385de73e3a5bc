package jobxmemory

import (
	"errors"
	"regexp"
	"strings"
	"sync"
)

// likeCache compiles SQL LIKE patterns (with backslash escapes) into
// matchers and keeps them for reuse.
type likeCache struct {
	mu    sync.Mutex
	cache map[string]func(string) bool
}

func newLikeCache() *likeCache {
	return &likeCache{cache: make(map[string]func(string) bool)}
}

func (c *likeCache) get(pattern string) (func(string) bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.cache[pattern]; ok {
		return m, nil
	}
	re, err := compileLike(pattern)
	if err != nil {
		return nil, err
	}
	c.cache[pattern] = re.MatchString
	return re.MatchString, nil
}

var errTrailingEscape = errors.New("LIKE pattern must not end with the escape character")

func compileLike(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(`.*`)
		case r == '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		return nil, errTrailingEscape
	}
	b.WriteString(`$`)
	return regexp.Compile(b.String())
}
