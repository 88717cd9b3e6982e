package routes

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"go-route-guard/internal/models"
)

const wildcardSuffix = "/*"

// pattern is either an exact path or a prefix ending in /*
type pattern struct {
	raw    string
	prefix string // normalized path; for wildcards the part before /*
	exact  bool
}

func parsePattern(raw string) (pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("%w %q: must start with /", models.ErrInvalidPattern, raw)
	}

	body, isWildcard := strings.CutSuffix(raw, wildcardSuffix)
	if strings.ContainsAny(body, "*?#") {
		return pattern{}, fmt.Errorf("%w %q: only a trailing /* wildcard is supported", models.ErrInvalidPattern, raw)
	}
	if body == "" {
		body = "/"
	}

	return pattern{raw: raw, prefix: NormalizePath(body), exact: !isWildcard}, nil
}

func (p pattern) matches(normalized string) bool {
	if p.exact {
		return normalized == p.prefix
	}
	if p.prefix == "/" {
		return true
	}
	return normalized == p.prefix || strings.HasPrefix(normalized, p.prefix+"/")
}

// NormalizePath strips query and fragment, cleans dot segments and trailing slashes
func NormalizePath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

// table answers "does any pattern match" and "which one matches best"
type table struct {
	exact    map[string]string
	prefixes []pattern // longest first
}

func newTable(raws []string) (*table, error) {
	t := &table{exact: make(map[string]string)}
	for _, raw := range raws {
		p, err := parsePattern(raw)
		if err != nil {
			return nil, err
		}
		if p.exact {
			t.exact[p.prefix] = raw
			continue
		}
		t.prefixes = append(t.prefixes, p)
	}

	sort.SliceStable(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].prefix) > len(t.prefixes[j].prefix)
	})
	return t, nil
}

// match returns the best pattern for a normalized path: exact first, then the longest prefix
func (t *table) match(normalized string) (string, bool) {
	if raw, ok := t.exact[normalized]; ok {
		return raw, true
	}
	for _, p := range t.prefixes {
		if p.matches(normalized) {
			return p.raw, true
		}
	}
	return "", false
}
