package auditdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(s Snapshot) []string {
	out := make([]string, 0, s.Len())
	for _, f := range s.Fields {
		out = append(out, f.Key)
	}
	return out
}

func TestParseSnapshot(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"absent", ``, []string{}},
		{"null", `null`, []string{}},
		{"empty string", `""`, []string{}},
		{"zero", `0`, []string{}},
		{"false", `false`, []string{}},
		{"object", `{"amount":20,"category":"RENT"}`, []string{"amount", "category"}},
		{"hidden fields dropped", `{"_id":"x","id":"x","__v":0,"amount":5,"createdAt":"t","updatedAt":"t","isDeleted":false,"recordedBy":"a"}`, []string{"amount"}},
		{"encoded object", `"{\"gamesPlayed\":2,\"_id\":\"x\"}"`, []string{"gamesPlayed"}},
		{"encoded null", `"null"`, []string{}},
		{"not json", `"hello world"`, []string{"data"}},
		{"array", `[1,{"a":1},[2]]`, []string{"0", "1", "2"}},
		{"number", `42`, []string{"value"}},
		{"true", `true`, []string{"value"}},
		{"encoded string", `"\"text\""`, []string{"value"}},
		{"index keys first", `{"b":1,"2":2,"a":3,"1":4}`, []string{"1", "2", "b", "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, keys(ParseSnapshot([]byte(tc.raw))))
		})
	}
}

func TestParseSnapshot_FallbackKeepsRawText(t *testing.T) {
	s := ParseSnapshot([]byte(`"{broken"`))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "{broken", Render(s.Get("data")))
}

func TestDiff_UnionAndChanges(t *testing.T) {
	before := `{"category":"RENT","amount":20,"note":"old","tags":["a","b"]}`
	after := `{"category":"RENT","amount":25,"paid":true,"tags":["a","b"]}`

	res := Compare([]byte(before), []byte(after))

	require.Len(t, res.Fields, 5)
	byKey := make(map[string]FieldDiff)
	var order []string
	for _, f := range res.Fields {
		byKey[f.Key] = f
		order = append(order, f.Key)
	}
	assert.Equal(t, []string{"category", "amount", "note", "tags", "paid"}, order)

	assert.False(t, byKey["category"].Changed)
	assert.True(t, byKey["amount"].Changed)
	assert.Equal(t, "20", byKey["amount"].BeforeText)
	assert.Equal(t, "25", byKey["amount"].AfterText)

	assert.True(t, byKey["note"].Changed)
	assert.Equal(t, "Not set", byKey["note"].AfterText)

	assert.True(t, byKey["paid"].Changed)
	assert.Equal(t, "Not set", byKey["paid"].BeforeText)
	assert.Equal(t, "Yes", byKey["paid"].AfterText)

	assert.False(t, byKey["tags"].Changed)
	assert.Equal(t, "[2 items]", byKey["tags"].AfterText)

	assert.Equal(t, 4, res.BeforeCount)
	assert.Equal(t, 4, res.AfterCount)
	assert.Equal(t, 3, res.ChangedCount())
}

func TestDiff_AbsentDiffersFromNull(t *testing.T) {
	res := Compare([]byte(`{"note":null}`), []byte(`{}`))
	require.Len(t, res.Fields, 1)
	assert.True(t, res.Fields[0].Changed)
	assert.Equal(t, "null", res.Fields[0].BeforeText)
	assert.Equal(t, "Not set", res.Fields[0].AfterText)
}

func TestDiff_KeyOrderMattersForNestedObjects(t *testing.T) {
	res := Compare([]byte(`{"meta":{"a":1,"b":2}}`), []byte(`{"meta":{"b":2,"a":1}}`))
	require.Len(t, res.Fields, 1)
	assert.True(t, res.Fields[0].Changed)
	assert.Equal(t, "{Object}", res.Fields[0].BeforeText)
}

func TestDiff_NeverPanicsOnMalformedInput(t *testing.T) {
	inputs := []string{
		``, `null`, `"not json"`, `"{"`, `[[[]]]`, `{"a":[1,[2,[3]]]}`, `"[1,2"`,
		`{"a":`, `}{`, `"\"\""`, `1e400`, `"null"`, `"0"`, `[null,true,"x"]`,
	}
	for _, b := range inputs {
		for _, a := range inputs {
			require.NotPanics(t, func() {
				res := Compare([]byte(b), []byte(a))
				for _, f := range res.Fields {
					assert.Equal(t, Label(f.Key), f.Label)
					assert.Equal(t, Render(f.Before), f.BeforeText)
				}
			}, "before=%q after=%q", b, a)
		}
	}
}

func TestDiff_Deterministic(t *testing.T) {
	b := []byte(`{"z":1,"a":"x","m":[1]}`)
	a := []byte(`"{\"a\":\"y\",\"q\":null}"`)
	assert.Equal(t, Compare(b, a), Compare(b, a))
}

func TestRender(t *testing.T) {
	long := strings.Repeat("é", 60)
	cases := []struct {
		v    Value
		want string
	}{
		{Value{Kind: Absent}, "Not set"},
		{Value{Kind: Null}, "null"},
		{Value{Kind: Bool, Bool: true}, "Yes"},
		{Value{Kind: Bool}, "No"},
		{Value{Kind: Array, Items: []Value{{Kind: Null}}}, "[1 items]"},
		{Value{Kind: Object}, "{Object}"},
		{Value{Kind: String, Str: long}, strings.Repeat("é", 50) + "..."},
		{Value{Kind: String, Str: "short"}, "short"},
		{Value{Kind: Number, Num: 12.5}, "12.5"},
		{Value{Kind: Number, Num: 1e21}, "1e+21"},
		{Value{Kind: Number, Num: 1e-7}, "1e-7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Render(tc.v))
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "games played", Label("gamesPlayed"))
	assert.Equal(t, "price per game", Label("pricePerGame"))
	assert.Equal(t, "amount", Label("amount"))
	assert.Equal(t, "console i d", Label("consoleID"))
}
