package dictify

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type basic struct {
	A int
	B string
	C float64
}

var basicShape = NewStruct("basic",
	Attr("a", Int, func(b *basic) *int { return &b.A }),
	Attr("b", String, func(b *basic) *string { return &b.B }),
	Attr("c", Float, func(b *basic) *float64 { return &b.C }),
)

func (b basic) Dictify() (Value, error) { return basicShape.Encode(&b) }

type optionals struct {
	A *int
	B *int
	C int
}

var optionalsShape = NewStruct("optionals",
	Attr("a", Optional(Int), func(o *optionals) **int { return &o.A }),
	Attr("b", Optional(Int), func(o *optionals) **int { return &o.B }),
	Attr("c", Default(Int, 1), func(o *optionals) *int { return &o.C }),
)

func (o optionals) Dictify() (Value, error) { return optionalsShape.Encode(&o) }

type pair struct {
	Name  string
	Value float64
}

func (p pair) Dictify() (Value, error) { return []Value{p.Name, p.Value}, nil }

var pairType = Convert(Tuple(Erase(String), Erase(Float)), func(l []any) (pair, error) {
	return pair{Name: l[0].(string), Value: l[1].(float64)}, nil
})

type nested struct {
	A int
	O basic
	P pair
}

var nestedShape = NewStruct("nested",
	Attr("a", Int, func(n *nested) *int { return &n.A }),
	Attr("o", Type[basic](basicShape), func(n *nested) *basic { return &n.O }),
	Attr("p", pairType, func(n *nested) *pair { return &n.P }),
)

func (n nested) Dictify() (Value, error) { return nestedShape.Encode(&n) }

func mustDictify(t *testing.T, v any) Value {
	t.Helper()
	out, err := Dictify(v)
	require.NoError(t, err)
	return out
}

func mapOf(kv ...any) *Map {
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func TestBasic(t *testing.T) {
	b := basic{A: 1, B: "2", C: 3.0}
	encoded := mustDictify(t, b)
	assert.True(t, Equal(mapOf("a", int64(1), "b", "2", "c", 3.0), encoded))

	decoded, err := basicShape.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
	assert.True(t, Equal(encoded, mustDictify(t, decoded)))
}

func TestBasicErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   *Map
		field   string
		wantMsg string
	}{
		{
			name:    "int given string",
			input:   mapOf("a", "1", "b", "2", "c", 3.0),
			field:   "a",
			wantMsg: "expected int, got string",
		},
		{
			name:    "string given int",
			input:   mapOf("a", int64(1), "b", int64(2), "c", 3.0),
			field:   "b",
			wantMsg: "expected string, got int",
		},
		{
			name:    "float given string",
			input:   mapOf("a", int64(1), "b", "2", "c", "3"),
			field:   "c",
			wantMsg: "expected float, got string",
		},
		{
			name:    "float given int",
			input:   mapOf("a", int64(1), "b", "2", "c", int64(3)),
			field:   "c",
			wantMsg: "expected float, got int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := basicShape.Decode(tt.input)
			require.Error(t, err)

			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)

			var mismatchErr *TypeMismatchError
			require.ErrorAs(t, err, &mismatchErr)
			assert.Equal(t, tt.wantMsg, mismatchErr.Error())
		})
	}
}

func TestOptional(t *testing.T) {
	one, two := 1, 2
	o := optionals{A: &one, B: &two, C: 3}
	encoded := mustDictify(t, o)
	assert.True(t, Equal(mapOf("a", int64(1), "b", int64(2), "c", int64(3)), encoded))

	decoded, err := optionalsShape.Decode(encoded)
	require.NoError(t, err)
	assert.True(t, Equal(encoded, mustDictify(t, decoded)))

	empty := optionals{}
	encoded = mustDictify(t, empty)
	// C is a plain int and always encodes.
	assert.True(t, Equal(mapOf("c", int64(0)), encoded))

	decoded, err = optionalsShape.Decode(NewMap())
	require.NoError(t, err)
	assert.Nil(t, decoded.A)
	assert.Nil(t, decoded.B)
}

func TestDefault(t *testing.T) {
	decoded, err := optionalsShape.Decode(NewMap())
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.C)

	decoded, err = optionalsShape.Decode(mapOf("c", int64(7)))
	require.NoError(t, err)
	assert.Equal(t, 7, decoded.C)

	_, err = optionalsShape.Decode(mapOf("c", "7"))
	assert.Error(t, err)
}

func TestOptionalAggregatesErrors(t *testing.T) {
	_, err := Optional(Int).Decode("x")
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errs, 2)
	assert.Equal(t, "expected int, got string", agg.Errs[0].Error())
	assert.Equal(t, "expected null, got string", agg.Errs[1].Error())
}

func TestList(t *testing.T) {
	encoded := mustDictify(t, map[string][]string{
		"a": {"hello", "world", "test"},
		"b": {},
	})
	assert.True(t, Equal(mapOf(
		"a", []Value{"hello", "world", "test"},
		"b", []Value{},
	), encoded))

	decoded, err := Dict(String, List(String)).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world", "test"}, decoded["a"])
	assert.Empty(t, decoded["b"])
}

func TestTuple(t *testing.T) {
	fixed := Tuple(Erase(String), Erase(Int))
	out, err := fixed.Decode([]Value{"hello", int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []any{"hello", 1}, out)

	_, err = fixed.Decode([]Value{"hello"})
	var arity *ArityMismatchError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 2, arity.Expected)
	assert.Equal(t, 1, arity.Actual)
	assert.Equal(t, "expected tuple of length 2, got tuple of length 1", arity.Error())

	repeated := Repeated(String)
	strs, err := repeated.Decode([]Value{"world", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"world", "2"}, strs)

	strs, err = repeated.Decode([]Value{})
	require.NoError(t, err)
	assert.Empty(t, strs)

	_, err = repeated.Decode([]Value{"a", int64(1)})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "[1]", fieldErr.Field)
}

func TestDict(t *testing.T) {
	in := map[string]int{"world": 2, "hello": 1}
	encoded := mustDictify(t, in)

	m, ok := encoded.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"hello", "world"}, m.Keys())

	decoded, err := Dict(String, Int).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

func TestDictDropsNullEntries(t *testing.T) {
	var missing *int
	encoded := mustDictify(t, map[string]*int{"gone": missing})
	assert.Equal(t, 0, encoded.(*Map).Len())
}

func TestAdvancedErrors(t *testing.T) {
	_, err := List(Int).Decode("123")
	assert.EqualError(t, err, "expected list, got string")

	_, err = Dict(String, Int).Decode("123")
	assert.EqualError(t, err, "expected map, got string")

	_, err = Union(Erase(Int), Erase(Float)).Decode("123")
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errs, 2)
	assert.EqualError(t, agg.Errs[0], "expected int, got string")
	assert.EqualError(t, agg.Errs[1], "expected float, got string")
}

func TestUnionPicksFirstMatch(t *testing.T) {
	intOrList := Union(Erase(Int), Erase(List(Int)))

	out, err := intOrList.Decode(int64(1))
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	out, err = intOrList.Decode([]Value{int64(2), int64(3)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out)
}

func TestNumber(t *testing.T) {
	f, err := Number.Decode(int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	f, err = Number.Decode(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	_, err = Number.Decode("3")
	assert.Error(t, err)
}

func TestNestedObjects(t *testing.T) {
	n := nested{A: 1, O: basic{B: "2", C: 3.0}, P: pair{Name: "x", Value: 0.5}}
	encoded := mustDictify(t, n)
	assert.True(t, Equal(mapOf(
		"a", int64(1),
		"o", mapOf("a", int64(0), "b", "2", "c", 3.0),
		"p", []Value{"x", 0.5},
	), encoded))

	decoded, err := nestedShape.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, n, decoded)
}

func TestNestedErrorPath(t *testing.T) {
	_, err := nestedShape.Decode(mapOf(
		"a", int64(1),
		"o", mapOf("a", int64(0), "b", int64(2), "c", 3.0),
		"p", []Value{"x", 0.5},
	))
	require.Error(t, err)
	assert.Equal(t, "in 'o': in 'b': expected string, got int", err.Error())
}

type shape interface{ sides() int }

type square struct{ Size float64 }
type triangle struct{ Base, Height float64 }

func (square) sides() int   { return 4 }
func (triangle) sides() int { return 3 }

var shapeType = Variants("type", map[string]Type[shape]{
	"square": Convert(Type[square](NewStruct("square",
		Attr("size", Float, func(s *square) *float64 { return &s.Size }),
	)), func(s square) (shape, error) { return s, nil }),
	"triangle": Convert(Type[triangle](NewStruct("triangle",
		Attr("base", Float, func(s *triangle) *float64 { return &s.Base }),
		Attr("height", Float, func(s *triangle) *float64 { return &s.Height }),
	)), func(s triangle) (shape, error) { return s, nil }),
})

func TestVariants(t *testing.T) {
	out, err := shapeType.Decode(mapOf("type", "square", "size", 2.0))
	require.NoError(t, err)
	assert.Equal(t, square{Size: 2.0}, out)

	out, err = shapeType.Decode(mapOf("type", "triangle", "base", 1.0, "height", 2.0))
	require.NoError(t, err)
	assert.Equal(t, 3, out.sides())

	_, err = shapeType.Decode(mapOf("size", 2.0))
	var unknown *UnknownVariantError
	require.ErrorAs(t, err, &unknown)
	assert.True(t, unknown.Missing)
	assert.Equal(t, "union missing 'type'", err.Error())

	_, err = shapeType.Decode(mapOf("type", "circle"))
	require.ErrorAs(t, err, &unknown)
	assert.False(t, unknown.Missing)
	assert.Equal(t, "unknown 'type' circle", err.Error())

	_, err = shapeType.Decode([]Value{})
	var mismatchErr *TypeMismatchError
	assert.ErrorAs(t, err, &mismatchErr)
}

func TestNestedComposition(t *testing.T) {
	listOfOptionalShapes := List(Nullable(shapeType))
	out, err := listOfOptionalShapes.Decode([]Value{
		mapOf("type", "square", "size", 1.0),
		nil,
		mapOf("type", "triangle", "base", 1.0, "height", 1.0),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Nil(t, out[1])
	assert.Equal(t, 4, out[0].sides())

	_, err = listOfOptionalShapes.Decode([]Value{mapOf("type", "hexagon")})
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errs, 2)
	var unknown *UnknownVariantError
	assert.ErrorAs(t, agg.Errs[0], &unknown)
}

func TestDictifyUnsupported(t *testing.T) {
	_, err := Dictify(struct{ X int }{X: 1})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Dictify(map[int]int{1: 1})
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Dictify(uint64(math.MaxUint64))
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = Dictify([]uint64{1 << 63})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDictifyPrimitives(t *testing.T) {
	type channel string
	assert.Equal(t, int64(3), mustDictify(t, 3))
	assert.Equal(t, int64(3), mustDictify(t, uint8(3)))
	assert.Equal(t, int64(math.MaxInt64), mustDictify(t, uint64(math.MaxInt64)))
	assert.Equal(t, 1.5, mustDictify(t, float32(1.5)))
	assert.Equal(t, "hot", mustDictify(t, channel("hot")))
	assert.Nil(t, mustDictify(t, nil))
	assert.Nil(t, mustDictify(t, (*basic)(nil)))

	b := &basic{A: 1}
	assert.True(t, Equal(mapOf("a", int64(1), "b", "", "c", 0.0), mustDictify(t, b)))
}
