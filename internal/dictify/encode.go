package dictify

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Dictifier is implemented by types that know their own tree form.
type Dictifier interface {
	Dictify() (Value, error)
}

// Dictify converts v into a tree. Nil pointers encode to null and types
// implementing Dictifier encode themselves. Otherwise maps recurse per entry
// and drop entries that encode to null, slices and arrays recurse per
// element, and primitives are returned as is with integers widened to int64
// and floats to float64. Anything else is ErrUnsupported.
func Dictify(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Map:
		return dictifyMap(t)
	case []Value:
		return dictifyList(reflect.ValueOf(t))
	case bool, string, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case float32:
		return float64(t), nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil, nil
	}
	if d, ok := v.(Dictifier); ok {
		return d.Dictify()
	}

	switch rv.Kind() {
	case reflect.Map:
		return dictifyReflectMap(rv)
	case reflect.Slice, reflect.Array:
		return dictifyList(rv)
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Ptr:
		return Dictify(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func dictifyMap(m *Map) (Value, error) {
	if m == nil {
		return nil, nil
	}
	out := NewMap()
	for _, k := range m.keys {
		ev, err := Dictify(m.values[k])
		if err != nil {
			return nil, inField(k, err)
		}
		if ev != nil {
			out.Set(k, ev)
		}
	}
	return out, nil
}

func dictifyReflectMap(rv reflect.Value) (Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map key %s", ErrUnsupported, rv.Type().Key())
	}
	keys := make([]string, 0, rv.Len())
	byKey := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		byKey[k] = iter.Value()
	}
	sort.Strings(keys)

	out := NewMap()
	for _, k := range keys {
		ev, err := Dictify(byKey[k].Interface())
		if err != nil {
			return nil, inField(k, err)
		}
		if ev != nil {
			out.Set(k, ev)
		}
	}
	return out, nil
}

func dictifyList(rv reflect.Value) (Value, error) {
	out := make([]Value, rv.Len())
	for i := range out {
		ev, err := Dictify(rv.Index(i).Interface())
		if err != nil {
			return nil, inField(fmt.Sprintf("[%d]", i), err)
		}
		out[i] = ev
	}
	return out, nil
}
