package hashparam

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/geoportal-dev/hashsync/internal/errors"
)

func logger() *slog.Logger {
	return slog.Default().With("component", "hashparam")
}

// SplitFragment splits a fragment into its path and query parts. A leading
// "#" is ignored.
func SplitFragment(fragment string) (path, query string) {
	fragment = strings.TrimPrefix(fragment, "#")
	path, query, _ = strings.Cut(fragment, "?")
	return path, query
}

// Parse returns the parameters of a fragment. A fragment without "?" has
// no parameters. Malformed input yields empty Params.
func Parse(fragment string) *Params {
	_, query := SplitFragment(fragment)
	p, err := ParseQuery(query)
	if err != nil {
		logger().Debug("malformed url fragment",
			"fragment", fragment,
			"error", errors.New("H001").Wrap(err))
		return NewParams()
	}
	return p
}

// ParseQuery parses a URL query string, preserving first-seen key order.
// Repeated keys keep the last value.
func ParseQuery(query string) (*Params, error) {
	p := NewParams()
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}
		p.Set(key, value)
	}
	return p, nil
}

// Diff compares two snapshots. changed holds every key whose value differs,
// including keys present on one side only. removed holds keys present in
// before and absent in after. Both are sorted and free of duplicates.
func Diff(before, after *Params) (changed, removed []string) {
	seen := make(map[string]struct{})
	for _, k := range before.Keys() {
		bv, _ := before.Get(k)
		av, ok := after.Get(k)
		if !ok {
			removed = append(removed, k)
		}
		if !ok || av != bv {
			seen[k] = struct{}{}
		}
	}
	for _, k := range after.Keys() {
		if !before.Has(k) {
			seen[k] = struct{}{}
		}
	}
	changed = make([]string, 0, len(seen))
	for k := range seen {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

// Order returns keys with the explicit order first. Remaining keys keep
// their relative order, or are sorted when alphabetical is set.
func Order(keys, keyOrder []string, alphabetical bool) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	placed := make(map[string]bool, len(keyOrder))
	for _, k := range keyOrder {
		if present[k] && !placed[k] {
			out = append(out, k)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(keys)-len(out))
	for _, k := range keys {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	if alphabetical {
		sort.Strings(rest)
	}
	return append(out, rest...)
}

// Build serializes path and params into a fragment string starting with
// "#". An empty path with no params yields "".
func Build(path string, params *Params, keyOrder []string, alphabetical bool) string {
	if params.Len() == 0 {
		if path == "" {
			return ""
		}
		return "#" + path
	}
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range Order(params.Keys(), keyOrder, alphabetical) {
		if i > 0 {
			b.WriteByte('&')
		}
		v, _ := params.Get(k)
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}
