package hashcodec

// Values is the decoded view state, keyed by logical key name.
type Values map[string]any

// Key is a typed handle on one logical state key.
type Key[T any] struct {
	name  string
	alias string
	codec TypedCodec[T]
}

// NewKey creates a typed key. An empty alias means the name is used in the
// URL as is.
func NewKey[T any](name, alias string, codec TypedCodec[T]) Key[T] {
	if alias == "" {
		alias = name
	}
	return Key[T]{name: name, alias: alias, codec: codec}
}

// Name returns the logical key name.
func (k Key[T]) Name() string { return k.name }

// Alias returns the URL parameter name.
func (k Key[T]) Alias() string { return k.alias }

// Codec returns the key's codec.
func (k Key[T]) Codec() TypedCodec[T] { return k.codec }

// Entry returns the table entry for this key.
func (k Key[T]) Entry() Entry {
	return Entry{Name: k.name, Alias: k.alias, Codec: k.codec}
}

// Get reads the key from decoded values. Missing or mistyped entries yield
// the codec's default.
func (k Key[T]) Get(values Values) T {
	if v, ok := values[k.name]; ok {
		if typed, ok := v.(T); ok {
			return typed
		}
	}
	return k.codec.DecodeValue("", false)
}

// Partial is an ordered set of logical key updates. The zero value is an
// empty update ready to use.
type Partial struct {
	entries []partialEntry
	index   map[string]int
}

type partialEntry struct {
	key   string
	value any
}

// Set records a typed update for k, replacing any earlier value for the
// same key.
func Set[T any](p *Partial, k Key[T], value T) {
	p.SetAny(k.name, value)
}

// Unset records that k should be removed from the URL.
func Unset[T any](p *Partial, k Key[T]) {
	p.SetAny(k.name, nil)
}

// SetAny records an untyped update. A nil value removes the key. Strings
// are run through the key's codec when one exists.
func (p *Partial) SetAny(key string, value any) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[key]; ok {
		p.entries[i].value = value
		return
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, partialEntry{key: key, value: value})
}

// Len returns the number of keys in the update.
func (p *Partial) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Range calls fn for each update in insertion order.
func (p *Partial) Range(fn func(key string, value any)) {
	if p == nil {
		return
	}
	for _, e := range p.entries {
		fn(e.key, e.value)
	}
}

// Keys returns the updated keys in insertion order.
func (p *Partial) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, len(p.entries))
	for i, e := range p.entries {
		keys[i] = e.key
	}
	return keys
}

// PartialFrom builds an update from a plain map. Map iteration order is
// random, so keys are added in sorted order.
func PartialFrom(m map[string]any) *Partial {
	p := &Partial{}
	for _, k := range sortedKeys(m) {
		p.SetAny(k, m[k])
	}
	return p
}
