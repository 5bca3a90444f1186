package dictify

import (
	"fmt"
	"strings"
)

// Type describes the expected shape of a tree value and decodes it into T.
type Type[T any] interface {
	Decode(v Value) (T, error)
	Name() string
}

type funcType[T any] struct {
	name   string
	decode func(Value) (T, error)
}

func (t funcType[T]) Decode(v Value) (T, error) { return t.decode(v) }
func (t funcType[T]) Name() string              { return t.name }

// Func builds a Type from a decoder supplied by the target type itself.
func Func[T any](name string, decode func(Value) (T, error)) Type[T] {
	return funcType[T]{name: name, decode: decode}
}

var (
	Int    Type[int]     = Func("int", decodeInt)
	Float  Type[float64] = Func("float", decodeFloat)
	String Type[string]  = Func("string", decodeString)
	Bool   Type[bool]    = Func("bool", decodeBool)
	Null   Type[any]     = Func("null", decodeNull)

	// Number accepts an int or a float and yields a float64.
	Number Type[float64] = Union(Convert(Int, func(i int) (float64, error) { return float64(i), nil }), Float)
)

func decodeInt(v Value) (int, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, mismatch("int", v)
	}
	return int(i), nil
}

func decodeFloat(v Value) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, mismatch("float", v)
	}
	return f, nil
}

func decodeString(v Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch("string", v)
	}
	return s, nil
}

func decodeBool(v Value) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, mismatch("bool", v)
	}
	return b, nil
}

func decodeNull(v Value) (any, error) {
	if v != nil {
		return nil, mismatch("null", v)
	}
	return nil, nil
}

func asList(v Value) ([]Value, error) {
	l, ok := v.([]Value)
	if !ok {
		return nil, mismatch("list", v)
	}
	return l, nil
}

func asMap(v Value) (*Map, error) {
	m, ok := v.(*Map)
	if !ok || m == nil {
		return nil, mismatch("map", v)
	}
	return m, nil
}

// List decodes a list whose elements all decode with elem.
func List[T any](elem Type[T]) Type[[]T] {
	return Func("list["+elem.Name()+"]", func(v Value) ([]T, error) {
		return decodeElems(elem, v)
	})
}

// Repeated decodes a variable-arity homogeneous tuple.
func Repeated[T any](elem Type[T]) Type[[]T] {
	return Func("tuple["+elem.Name()+", ...]", func(v Value) ([]T, error) {
		return decodeElems(elem, v)
	})
}

func decodeElems[T any](elem Type[T], v Value) ([]T, error) {
	l, err := asList(v)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(l))
	for i, ev := range l {
		if out[i], err = elem.Decode(ev); err != nil {
			return nil, inField(fmt.Sprintf("[%d]", i), err)
		}
	}
	return out, nil
}

// Tuple decodes a list of exactly len(types) elements, positionally.
func Tuple(types ...Type[any]) Type[[]any] {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
	}
	return Func("tuple["+strings.Join(names, ", ")+"]", func(v Value) ([]any, error) {
		l, err := asList(v)
		if err != nil {
			return nil, err
		}
		if len(l) != len(types) {
			return nil, &ArityMismatchError{Expected: len(types), Actual: len(l)}
		}
		out := make([]any, len(l))
		for i, t := range types {
			if out[i], err = t.Decode(l[i]); err != nil {
				return nil, inField(fmt.Sprintf("[%d]", i), err)
			}
		}
		return out, nil
	})
}

// Erase hides the result type of t, for use in heterogeneous tuples.
func Erase[T any](t Type[T]) Type[any] {
	return Func(t.Name(), func(v Value) (any, error) {
		return t.Decode(v)
	})
}

// Dict decodes a map, decoding keys and values with their own types.
func Dict[K comparable, V any](key Type[K], val Type[V]) Type[map[K]V] {
	return Func("map["+key.Name()+", "+val.Name()+"]", func(v Value) (map[K]V, error) {
		m, err := asMap(v)
		if err != nil {
			return nil, err
		}
		out := make(map[K]V, m.Len())
		for _, k := range m.keys {
			dk, err := key.Decode(k)
			if err != nil {
				return nil, inField(k, err)
			}
			dv, err := val.Decode(m.values[k])
			if err != nil {
				return nil, inField(k, err)
			}
			out[dk] = dv
		}
		return out, nil
	})
}

// Union tries each alternative in declared order; the first success wins.
// When every alternative fails the error is an *AggregateError holding all of
// their errors.
func Union[T any](alts ...Type[T]) Type[T] {
	names := make([]string, len(alts))
	for i, a := range alts {
		names[i] = a.Name()
	}
	return Func("union["+strings.Join(names, ", ")+"]", func(v Value) (T, error) {
		errs := make([]error, 0, len(alts))
		for _, a := range alts {
			out, err := a.Decode(v)
			if err == nil {
				return out, nil
			}
			errs = append(errs, err)
		}
		var zero T
		return zero, &AggregateError{Errs: errs}
	})
}

// Optional is the union of inner and null. Null decodes to a nil pointer.
func Optional[T any](inner Type[T]) Type[*T] {
	return Union(
		Convert(inner, func(t T) (*T, error) { return &t, nil }),
		Convert(Null, func(any) (*T, error) { return nil, nil }),
	)
}

// Nullable is the union of inner and null, where null decodes to the zero
// value of T. It suits interface and pointer types.
func Nullable[T any](inner Type[T]) Type[T] {
	return Union(inner, Convert(Null, func(any) (T, error) {
		var zero T
		return zero, nil
	}))
}

// Default substitutes def when the value is null or absent, and decodes
// with inner otherwise.
func Default[T any](inner Type[T], def T) Type[T] {
	return Func(inner.Name(), func(v Value) (T, error) {
		if v == nil {
			return def, nil
		}
		return inner.Decode(v)
	})
}

// Convert post-processes the result of t.
func Convert[T, U any](t Type[T], fn func(T) (U, error)) Type[U] {
	return Func(t.Name(), func(v Value) (U, error) {
		dt, err := t.Decode(v)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(dt)
	})
}

// Variants decodes a tagged union: the map's key field selects which variant
// type decodes the whole map.
func Variants[T any](key string, variants map[string]Type[T]) Type[T] {
	return Func("variants["+key+"]", func(v Value) (T, error) {
		var zero T
		m, err := asMap(v)
		if err != nil {
			return zero, err
		}
		tag, ok := m.Get(key)
		if !ok {
			return zero, &UnknownVariantError{Key: key, Missing: true}
		}
		name, ok := tag.(string)
		if !ok {
			return zero, &UnknownVariantError{Key: key, Value: tag}
		}
		variant, ok := variants[name]
		if !ok {
			return zero, &UnknownVariantError{Key: key, Value: tag}
		}
		return variant.Decode(m)
	})
}
