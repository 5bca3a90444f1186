package dictify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  string
	}{
		{name: "null", input: nil, want: "null"},
		{name: "int", input: int64(1), want: "1"},
		{name: "integral float", input: 1.0, want: "1.0"},
		{name: "fractional float", input: 0.25, want: "0.25"},
		{name: "exponent float", input: 1e21, want: "1e+21"},
		{name: "string", input: "a\"b", want: `"a\"b"`},
		{name: "list", input: []Value{int64(1), "x", true}, want: `[1,"x",true]`},
		{name: "map keeps order", input: mapOf("z", int64(1), "a", int64(2)), want: `{"z":1,"a":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMarshalJSONErrors(t *testing.T) {
	_, err := MarshalJSON(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = MarshalJSON([]Value{int64(1), 0.0 / zero()})
	assert.Error(t, err)
}

func zero() float64 { return 0 }

func TestUnmarshalJSON(t *testing.T) {
	v, err := UnmarshalJSON([]byte(`{"b":[1,1.0,2.5e0,null],"a":{"x":"y"},"c":false}`))
	require.NoError(t, err)

	m, ok := v.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	b, _ := m.Get("b")
	assert.Equal(t, []Value{int64(1), 1.0, 2.5, nil}, b)

	a, _ := m.Get("a")
	assert.True(t, Equal(mapOf("x", "y"), a))

	c, _ := m.Get("c")
	assert.Equal(t, false, c)
}

func TestUnmarshalJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "truncated", input: `{"a":`},
		{name: "trailing data", input: `1 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	n := nested{A: 1, O: basic{A: 2, B: "two", C: 2.0}, P: pair{Name: "p", Value: 1.0}}
	encoded := mustDictify(t, n)

	data, err := MarshalJSON(encoded)
	require.NoError(t, err)

	back, err := UnmarshalJSON(data)
	require.NoError(t, err)
	assert.True(t, Equal(encoded, back))

	decoded, err := nestedShape.Decode(back)
	require.NoError(t, err)
	assert.Equal(t, n, decoded)
}
