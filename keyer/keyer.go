// Package keyer derives deterministic cache keys from an operation's
// identity and its arguments.
//
// A key is the xxhash64 fingerprint of the qualified operation name, the
// stringified positional arguments in order, and the "name=value" rendered
// named arguments sorted by name. Arguments that cannot be stringified fall
// back to their dynamic type name; two distinct values of the same
// unstringifiable type therefore map to the same key. Callers that need a
// stronger contract supply their own Func.
package keyer

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Func generates a cache key from positional arguments. When set on a
// wrapper it takes total precedence over the default derivation.
type Func func(args ...any) string

// Pair is a named argument contributing to a key.
type Pair struct {
	Name  string
	Value any
}

// Key fingerprints op together with its positional arguments.
func Key(op string, args ...any) string {
	return KeyKV(op, args)
}

// KeyKV fingerprints op together with positional arguments and named
// argument pairs. Pairs are sorted by name so the key is independent of the
// order they are supplied in.
func KeyKV(op string, args []any, kv ...Pair) string {
	d := xxhash.New()
	_, _ = d.WriteString(op)

	for _, a := range args {
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(Component(a))
	}

	if len(kv) > 0 {
		sorted := slices.Clone(kv)
		slices.SortStableFunc(sorted, func(a, b Pair) int {
			return strings.Compare(a.Name, b.Name)
		})
		for _, p := range sorted {
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(p.Name)
			_, _ = d.WriteString("=")
			_, _ = d.WriteString(Component(p.Value))
		}
	}

	return strconv.FormatUint(d.Sum64(), 16)
}

// Component renders a single argument as a key fragment. The supported forms
// are, in order of preference: nil, string, fmt.Stringer,
// encoding.TextMarshaler, error, and the basic Go kinds. Anything else is the
// documented lossy fallback: the argument's dynamic type name.
func Component(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case encoding.TextMarshaler:
		if b, err := x.MarshalText(); err == nil {
			return string(b)
		}
		return typeName(v)
	case error:
		return x.Error()
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return rv.String()
	}

	return typeName(v)
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
