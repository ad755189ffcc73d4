package hashparam

import (
	"fmt"

	"github.com/geoportal-dev/hashsync/pkg/hashcodec"
)

// ApplyCodecs encodes a logical update into raw parameters keyed by alias.
// Keys whose codec omits the value, and nil values, are returned in
// undefinedKeys instead, so the caller removes them from the URL rather
// than writing "key=undefined". Keys without a codec pass through as
// strings.
func ApplyCodecs(update *hashcodec.Partial, table *hashcodec.Table) (raw *Params, undefinedKeys []string) {
	raw = NewParams()
	update.Range(func(key string, value any) {
		alias := table.Alias(key)
		encoded, ok := encode(table, key, value)
		if !ok {
			undefinedKeys = append(undefinedKeys, alias)
			return
		}
		raw.Set(alias, encoded)
	})
	return raw, undefinedKeys
}

func encode(table *hashcodec.Table, key string, value any) (string, bool) {
	if value == nil {
		return "", false
	}
	if codec, ok := table.Codec(key); ok {
		return codec.Encode(value)
	}
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	return s, s != ""
}

// Decode converts raw parameters to logical values. Unknown aliases keep
// their alias as key and their raw string as value. Registered keys that
// are absent decode to their default. A key spelled with its logical name
// instead of its alias is decoded only when the alias itself is absent.
func Decode(raw *Params, table *hashcodec.Table) hashcodec.Values {
	values := make(hashcodec.Values, raw.Len()+len(table.Names()))
	for _, name := range table.Names() {
		if def, ok := table.Default(name); ok {
			values[name] = def
		}
	}
	for _, alias := range raw.Keys() {
		v, _ := raw.Get(alias)
		key := table.Key(alias)
		if registered := table.Alias(key); registered != alias && raw.Has(registered) {
			continue
		}
		if codec, ok := table.Codec(key); ok {
			values[key] = codec.Decode(v, true)
			continue
		}
		values[key] = v
	}
	return values
}

// DecodeKeys maps aliases to logical key names.
func DecodeKeys(aliases []string, table *hashcodec.Table) []string {
	keys := make([]string, len(aliases))
	for i, a := range aliases {
		keys[i] = table.Key(a)
	}
	return keys
}
