package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(`{"a": 1, "b": 1.5, "c": 2.0, "d": "x", "e": [true, null]}`))
	require.NoError(t, err)

	m := doc.(map[string]any)
	assert.Equal(t, int64(1), m["a"])
	assert.Equal(t, 1.5, m["b"])
	assert.Equal(t, 2.0, m["c"], "a written fraction keeps the value a float")
	assert.Equal(t, "x", m["d"])
	assert.Equal(t, []any{true, nil}, m["e"])
}

func TestDecode_RejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"integer string", "123", int64(123)},
		{"negative integer", "-7", int64(-7)},
		{"padded integer", " 42 ", int64(42)},
		{"decimal string", "12.34", 12.34},
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"version string", "v1.2.3", "v1.2.3"},
		{"alphanumeric", "abc123", "abc123"},
		{"exponent", "1e5", "1e5"},
		{"dotted quad", "10.0.0.1", "10.0.0.1"},
		{"overflow stays string", "99999999999999999999", "99999999999999999999"},
		{"empty", "", ""},
		{"number untouched", int64(5), int64(5)},
		{"null untouched", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}

func TestCoerce_NestedAndIdempotent(t *testing.T) {
	in := map[string]any{
		"System": map[string]any{"Uptime": "3600", "Up": true},
		"ONU":    []any{map[string]any{"SN": "ABC1", "RxPower": "-21.5"}},
	}

	once := Coerce(in)
	want := map[string]any{
		"System": map[string]any{"Uptime": int64(3600), "Up": int64(1)},
		"ONU":    []any{map[string]any{"SN": "ABC1", "RxPower": -21.5}},
	}
	assert.Equal(t, want, once)
	assert.Equal(t, once, Coerce(once))

	// Input tree is left alone.
	assert.Equal(t, "3600", in["System"].(map[string]any)["Uptime"])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "5", Stringify(int64(5)))
	assert.Equal(t, "5.0", Stringify(5.0))
	assert.Equal(t, "2.5", Stringify(2.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "null", Stringify(nil))
	assert.Equal(t, `[1,"a"]`, strings.Join(strings.Fields(Stringify([]any{int64(1), "a"})), ""))
}

func TestNormalize(t *testing.T) {
	doc := map[string]any{
		"ONU": []any{
			map[string]any{"SN": "C"},
			map[string]any{"SN": "A"},
			"not an object",
			map[string]any{"SN": "B"},
		},
		"System": map[string]any{
			"Fans": []any{
				map[string]any{"Name": "fan2"},
				map[string]any{"Name": "fan1"},
			},
		},
		"Other": []any{int64(3), int64(1)},
	}

	Normalize(doc, DefaultSortSpec)

	onu := doc["ONU"].([]any)
	assert.Equal(t, "not an object", onu[0], "elements without the field sort as empty")
	assert.Equal(t, "A", onu[1].(map[string]any)["SN"])
	assert.Equal(t, "B", onu[2].(map[string]any)["SN"])
	assert.Equal(t, "C", onu[3].(map[string]any)["SN"])

	fans := doc["System"].(map[string]any)["Fans"].([]any)
	assert.Equal(t, "fan1", fans[0].(map[string]any)["Name"])

	assert.Equal(t, []any{int64(3), int64(1)}, doc["Other"], "unlisted arrays keep their order")
}

func TestNormalize_NonObjectRoot(t *testing.T) {
	doc := []any{int64(2), int64(1)}
	assert.Equal(t, doc, Normalize(doc, DefaultSortSpec))
}

func TestPriorityKey(t *testing.T) {
	assert.Equal(t, "SN", DefaultSortSpec.PriorityKey("ONU"))
	assert.Equal(t, "Name", DefaultSortSpec.PriorityKey("System", "Fans"))
	assert.Equal(t, "", DefaultSortSpec.PriorityKey("System"))
	assert.Equal(t, "", DefaultSortSpec.PriorityKey())
}

func TestEncode_PriorityKeyFirst(t *testing.T) {
	doc := map[string]any{
		"ONU": []any{map[string]any{"Alpha": int64(1), "SN": "X1"}},
		"System": map[string]any{
			"Fans": []any{map[string]any{"Alpha": int64(1), "Name": "fan1"}},
		},
	}

	out, err := Encode(doc, DefaultSortSpec)
	require.NoError(t, err)
	s := string(out)

	assert.Less(t, strings.Index(s, `"SN"`), strings.Index(s, `"Alpha"`))
	fans := s[strings.Index(s, `"Fans"`):]
	assert.Less(t, strings.Index(fans, `"Name"`), strings.Index(fans, `"Alpha"`))
}

func TestEncode_AlphabeticalWithoutSpec(t *testing.T) {
	out, err := Encode(map[string]any{"b": int64(1), "a": int64(2)}, nil)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(out), `"a"`), strings.Index(string(out), `"b"`))
}

func TestEncode_RoundTrip(t *testing.T) {
	doc := map[string]any{
		"counter": int64(9007199254740993),
		"ratio":   3.0,
		"temp":    -21.5,
		"name":    "<OLT#",
		"flags":   []any{nil, "", map[string]any{}},
		"":        "empty key",
	}

	out, err := Encode(doc, DefaultSortSpec)
	require.NoError(t, err)
	assert.Contains(t, string(out), "3.0")
	assert.Contains(t, string(out), "<OLT#", "HTML characters are not escaped")

	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, any(doc), back)
}

func TestEncode_RejectsNaN(t *testing.T) {
	nan := 0.0
	_, err := Encode(map[string]any{"x": nan / nan}, nil)
	assert.Error(t, err)
}
