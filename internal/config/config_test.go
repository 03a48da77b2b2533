package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/schema"
)

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.New([]schema.Option{
		{Group: "lint", Field: "line-length", Default: "88"},
		{Group: "lint", Field: "select", Default: ""},
		{Group: "format", Field: "quote-style", Default: "double"},
	})
	require.NoError(t, err)
	return cat
}

func TestDefaultsCoversEveryOption(t *testing.T) {
	cat := testCatalog(t)
	defaults := Defaults(cat)

	require.Len(t, defaults, 2)
	assert.Equal(t, "88", defaults["lint"]["line-length"])
	assert.Equal(t, "", defaults["lint"]["select"])
	assert.Equal(t, "double", defaults["format"]["quote-style"])
}

func TestSetFieldElidesDefaults(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name    string
		start   Config
		value   string
		present bool
	}{
		{name: "non-default is stored", start: Config{}, value: "120", present: true},
		{name: "default removes entry", start: Config{"lint": {"line-length": "120"}}, value: "88", present: false},
		{name: "empty removes entry", start: Config{"lint": {"line-length": "120"}}, value: "", present: false},
		{name: "default on empty config", start: nil, value: "88", present: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SetField(cat, tt.start, "lint", "line-length", tt.value)
			v, ok := got.Get("lint", "line-length")
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.value, v)
			}
		})
	}
}

func TestSetFieldDoesNotMutateInput(t *testing.T) {
	cat := testCatalog(t)
	start := Config{"lint": {"line-length": "100"}}

	next := SetField(cat, start, "lint", "line-length", "88")

	assert.Equal(t, "100", start["lint"]["line-length"])
	_, ok := next.Get("lint", "line-length")
	assert.False(t, ok)
}

func TestSetFieldKeepsEmptyGroup(t *testing.T) {
	cat := testCatalog(t)
	got := SetField(cat, Config{"format": {"quote-style": "single"}}, "format", "quote-style", "double")

	fields, ok := got["format"]
	require.True(t, ok)
	assert.Empty(t, fields)
	assert.Equal(t, 0, got.Len())
}

func TestValueFallsBackToDefault(t *testing.T) {
	cat := testCatalog(t)
	cfg := Config{"lint": {"line-length": "100"}}

	assert.Equal(t, "100", Value(cat, cfg, "lint", "line-length"))
	assert.Equal(t, "double", Value(cat, cfg, "format", "quote-style"))
	assert.Equal(t, "", Value(cat, cfg, "nope", "missing"))
}

func TestToEngineIsADeepCopy(t *testing.T) {
	cfg := Config{"lint": {"line-length": "100"}}
	engine := ToEngine(cfg)
	engine["lint"]["line-length"] = "1"

	assert.Equal(t, "100", cfg["lint"]["line-length"])
	v, ok := ToEngine(cfg).Get("lint", "line-length")
	assert.True(t, ok)
	assert.Equal(t, "100", v)
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	cfg := Config{
		"lint":   {"select": "W291", "line-length": "100"},
		"format": {"quote-style": "single"},
	}
	data, err := cfg.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"format":{"quote-style":"single"},"lint":{"line-length":"100","select":"W291"}}`, string(data))

	var empty Config
	data, err = empty.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestEqualIgnoresEmptyGroups(t *testing.T) {
	a := Config{"lint": {"line-length": "100"}, "format": {}}
	b := Config{"lint": {"line-length": "100"}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Config{"lint": {"line-length": "101"}}))
	assert.Equal(t, []string{"lint.line-length"}, a.Keys())
}

func TestMarshalCanonicalDropsEmptyGroups(t *testing.T) {
	cat := testCatalog(t)
	reset := SetField(cat, SetField(cat, Config{}, "lint", "line-length", "100"), "lint", "line-length", "88")
	require.True(t, reset.Equal(Config{}))

	got, err := reset.MarshalCanonical()
	require.NoError(t, err)
	want, err := Config{}.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	a := Config{"lint": {"line-length": "100"}, "format": {}}
	b := Config{"lint": {"line-length": "100"}}
	ja, err := a.MarshalCanonical()
	require.NoError(t, err)
	jb, err := b.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(jb), string(ja))
}

func TestNormalizeElidesDefaults(t *testing.T) {
	cat := testCatalog(t)
	in := Config{
		"lint":   {"line-length": "88", "select": "W291"},
		"format": {"quote-style": "double"},
		"extra":  {},
	}
	out := Normalize(cat, in)

	assert.Equal(t, Config{"lint": {"select": "W291"}}, out)
	assert.Equal(t, "88", in["lint"]["line-length"], "input is not modified")
	assert.Empty(t, Normalize(cat, nil))
}
