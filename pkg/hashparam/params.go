// Package hashparam parses, diffs and serializes URL fragment parameters.
//
// A fragment has the form "#<path>?<alias>=<value>&...". Parsing never
// fails: a missing or malformed fragment yields empty Params and a debug
// log line. Serialization is deterministic: explicitly ordered keys come
// first, the rest either keep their input order or are sorted.
package hashparam

import "sort"

// Params is an ordered map of raw URL parameters keyed by alias. Keys are
// unique; the first insertion fixes a key's position.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams returns empty Params.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// FromMap builds Params from a plain map in sorted key order.
func FromMap(m map[string]string) *Params {
	p := NewParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Get returns the value for key.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Set stores value under key, keeping the key's original position.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Delete removes key.
func (p *Params) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Map returns a copy as a plain map.
func (p *Params) Map() map[string]string {
	m := make(map[string]string, p.Len())
	if p == nil {
		return m
	}
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := NewParams()
	if p == nil {
		return c
	}
	for _, k := range p.keys {
		c.Set(k, p.values[k])
	}
	return c
}

// Equal reports whether both hold the same key/value pairs, ignoring order.
func (p *Params) Equal(other *Params) bool {
	if p.Len() != other.Len() {
		return false
	}
	for _, k := range p.Keys() {
		ov, ok := other.Get(k)
		if !ok || ov != p.values[k] {
			return false
		}
	}
	return true
}

// Merge returns base with update applied on top and remove deleted. Keys
// already in base keep their position; new keys follow in update order.
func Merge(base, update *Params, remove []string) *Params {
	merged := base.Clone()
	for _, k := range update.Keys() {
		v, _ := update.Get(k)
		merged.Set(k, v)
	}
	for _, k := range remove {
		merged.Delete(k)
	}
	return merged
}
