package hashcodec

import (
	"sort"

	"github.com/geoportal-dev/hashsync/internal/errors"
)

// Entry registers one logical key in a Table.
type Entry struct {
	Name  string
	Alias string
	Codec Codec
}

// Table maps logical keys to URL aliases and codecs. It is immutable once
// built.
type Table struct {
	aliases      map[string]string
	keys         map[string]string
	codecs       map[string]Codec
	names        []string
	order        []string
	alphabetical bool
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithKeyOrder sets the logical keys that are serialized first, in order.
func WithKeyOrder(keys ...string) TableOption {
	return func(t *Table) {
		t.order = append([]string(nil), keys...)
	}
}

// Alphabetical sorts keys outside the explicit order alphabetically instead
// of keeping their relative input order.
func Alphabetical(enabled bool) TableOption {
	return func(t *Table) {
		t.alphabetical = enabled
	}
}

// WithAliases overrides aliases. Names that are not registered yet become
// codec-less passthrough keys.
func WithAliases(aliases map[string]string) TableOption {
	return func(t *Table) {
		for _, name := range sortedKeys(aliases) {
			if _, known := t.aliases[name]; !known {
				t.names = append(t.names, name)
			}
			t.aliases[name] = aliases[name]
		}
	}
}

// NewTable builds a table from entries. It fails with H123 when two keys
// share an alias.
func NewTable(entries []Entry, opts ...TableOption) (*Table, error) {
	t := &Table{
		aliases: make(map[string]string, len(entries)),
		keys:    make(map[string]string, len(entries)),
		codecs:  make(map[string]Codec, len(entries)),
	}
	for _, e := range entries {
		alias := e.Alias
		if alias == "" {
			alias = e.Name
		}
		if _, dup := t.aliases[e.Name]; !dup {
			t.names = append(t.names, e.Name)
		}
		t.aliases[e.Name] = alias
		if e.Codec != nil {
			t.codecs[e.Name] = e.Codec
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, name := range t.names {
		alias := t.aliases[name]
		if other, dup := t.keys[alias]; dup {
			return nil, errors.New("H123").
				WithDetail("Keys " + other + " and " + name + " both use alias " + alias)
		}
		t.keys[alias] = name
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is meant for package
// level tables.
func MustTable(entries []Entry, opts ...TableOption) *Table {
	t, err := NewTable(entries, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// With returns a copy of the table with extra options applied.
func (t *Table) With(opts ...TableOption) (*Table, error) {
	entries := make([]Entry, 0, len(t.names))
	for _, name := range t.names {
		entries = append(entries, Entry{Name: name, Alias: t.aliases[name], Codec: t.codecs[name]})
	}
	base := []TableOption{WithKeyOrder(t.order...), Alphabetical(t.alphabetical)}
	return NewTable(entries, append(base, opts...)...)
}

// Alias returns the URL alias for a logical key. Unknown keys are their own
// alias.
func (t *Table) Alias(key string) string {
	if alias, ok := t.aliases[key]; ok {
		return alias
	}
	return key
}

// Key returns the logical key for a URL alias. Unknown aliases are their own
// key.
func (t *Table) Key(alias string) string {
	if key, ok := t.keys[alias]; ok {
		return key
	}
	return alias
}

// Codec returns the codec registered for a logical key.
func (t *Table) Codec(key string) (Codec, bool) {
	c, ok := t.codecs[key]
	return c, ok
}

// Default returns the value a key decodes to when absent from the URL, and
// whether the key has a codec at all.
func (t *Table) Default(key string) (any, bool) {
	c, ok := t.codecs[key]
	if !ok {
		return nil, false
	}
	return c.Decode("", false), true
}

// Names returns the registered logical keys in registration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// KeyOrder returns the explicit serialization order as logical keys.
func (t *Table) KeyOrder() []string {
	return append([]string(nil), t.order...)
}

// AliasOrder converts logical keys to URL aliases, preserving order.
func (t *Table) AliasOrder(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = t.Alias(k)
	}
	return out
}

// IsAlphabetical reports whether unordered keys are sorted alphabetically.
func (t *Table) IsAlphabetical() bool {
	return t.alphabetical
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
