package hashcodec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Codec converts a single logical value to and from its URL form.
type Codec interface {
	// Encode returns the URL form of v. ok is false when the key must be
	// omitted from the URL.
	Encode(v any) (raw string, ok bool)

	// Decode returns the logical value for raw. present is false when the
	// key is absent from the URL; the codec then returns its default.
	Decode(raw string, present bool) any
}

// TypedCodec is a Codec bound to a concrete value type.
type TypedCodec[T any] interface {
	Codec
	EncodeValue(v T) (string, bool)
	DecodeValue(raw string, present bool) T
}

// Func builds a TypedCodec from a pair of functions.
type Func[T any] struct {
	Enc func(T) (string, bool)
	Dec func(raw string, present bool) T
}

// EncodeValue implements TypedCodec.
func (f Func[T]) EncodeValue(v T) (string, bool) {
	return f.Enc(v)
}

// DecodeValue implements TypedCodec.
func (f Func[T]) DecodeValue(raw string, present bool) T {
	return f.Dec(raw, present)
}

// Encode implements Codec. Values of type T are encoded directly. Strings
// are parsed through the codec first, so a raw "12" for an int codec is
// normalized the same way a typed 12 would be. Other values are converted
// to T first; the key is omitted when that fails.
func (f Func[T]) Encode(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case T:
		return f.Enc(val)
	case string:
		return f.Enc(f.Dec(val, true))
	}
	converted, ok := f.convert(v)
	if !ok {
		return "", false
	}
	return f.Enc(converted)
}

// convert turns a value of another type into T. Scalars go through the
// codec's own parser; composites through JSON.
func (f Func[T]) convert(v any) (T, bool) {
	var out T
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return f.Dec(fmt.Sprint(v), true), true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// Decode implements Codec.
func (f Func[T]) Decode(raw string, present bool) any {
	return f.Dec(raw, present)
}

// String encodes strings verbatim and omits the default.
func String(def string) TypedCodec[string] {
	return Func[string]{
		Enc: func(v string) (string, bool) {
			if v == def {
				return "", false
			}
			return v, true
		},
		Dec: func(raw string, present bool) string {
			if !present || raw == "" {
				return def
			}
			return raw
		},
	}
}

// Int encodes base-10 integers and omits the default. Unparsable input
// decodes to the default.
func Int(def int) TypedCodec[int] {
	return Func[int]{
		Enc: func(v int) (string, bool) {
			if v == def {
				return "", false
			}
			return strconv.Itoa(v), true
		},
		Dec: func(raw string, present bool) int {
			if !present {
				return def
			}
			i, err := strconv.Atoi(raw)
			if err != nil {
				f, ferr := strconv.ParseFloat(raw, 64)
				if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
					return def
				}
				return int(math.Round(f))
			}
			return i
		},
	}
}

// Float encodes floats rounded to precision decimal places, without
// trailing zeros. The default is never omitted: a map position of 0,0 is
// still a position.
func Float(def float64, precision int) TypedCodec[float64] {
	return Func[float64]{
		Enc: func(v float64) (string, bool) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "", false
			}
			return strconv.FormatFloat(round(v, precision), 'f', -1, 64), true
		},
		Dec: func(raw string, present bool) float64 {
			if !present {
				return def
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return def
			}
			return round(f, precision)
		},
	}
}

// Bool encodes true as "1" and omits false. "true", "yes" and "on" decode as
// true as well.
func Bool() TypedCodec[bool] {
	return Func[bool]{
		Enc: func(v bool) (string, bool) {
			if !v {
				return "", false
			}
			return "1", true
		},
		Dec: func(raw string, present bool) bool {
			if !present {
				return false
			}
			switch strings.ToLower(raw) {
			case "1", "true", "yes", "on":
				return true
			}
			return false
		},
	}
}

// List encodes string slices joined by sep and omits empty slices.
func List(sep string) TypedCodec[[]string] {
	return Func[[]string]{
		Enc: func(v []string) (string, bool) {
			if len(v) == 0 {
				return "", false
			}
			return strings.Join(v, sep), true
		},
		Dec: func(raw string, present bool) []string {
			if !present || raw == "" {
				return nil
			}
			return strings.Split(raw, sep)
		},
	}
}

// JSON encodes any JSON-serializable value as base64url JSON and omits
// values that serialize to null or an empty object or array.
func JSON[T any]() TypedCodec[T] {
	return Func[T]{
		Enc: func(v T) (string, bool) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", false
			}
			switch string(data) {
			case "null", "{}", "[]", `""`:
				return "", false
			}
			return base64.RawURLEncoding.EncodeToString(data), true
		},
		Dec: func(raw string, present bool) T {
			var result T
			if !present || raw == "" {
				return result
			}
			// Plain JSON is accepted too, as sent by clients.
			data, err := base64.RawURLEncoding.DecodeString(raw)
			if err != nil {
				data = []byte(raw)
			}
			if err := json.Unmarshal(data, &result); err != nil {
				var zero T
				return zero
			}
			return result
		},
	}
}

// Passthrough keeps raw strings unchanged and omits empty strings. Keys
// without a registered codec behave the same way.
func Passthrough() Codec {
	return String("")
}

// Equal reports whether two decoded values are equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow10(precision)
	r := math.Round(v*p) / p
	if r == 0 {
		// -0 would print as "-0".
		r = 0
	}
	return r
}
