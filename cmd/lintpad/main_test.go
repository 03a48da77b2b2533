package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/config"
	"lintpad/internal/diagfmt"
	"lintpad/internal/schema"
	"lintpad/internal/share"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--color=off"}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplySets(t *testing.T) {
	cat := schema.Builtin()
	cfg, err := applySets(cat, config.Config{}, []string{"lint.line-length=100", "format.quote-style=auto"})
	require.NoError(t, err)
	assert.Equal(t, config.Config{"lint": {"line-length": "100"}}, cfg)

	for _, bad := range []string{"lint.line-length", "line-length=1", "lint.nope=1"} {
		_, err := applySets(cat, config.Config{}, []string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{" ON ": uiOn, "": uiAuto, "plain": uiOff, "tui": uiOn} {
		m, err := parseUIMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}
	_, err := parseUIMode("sometimes")
	assert.Error(t, err)

	assert.True(t, uiOn.interactive(nil, nil, "dumb"))
	assert.False(t, uiOff.interactive(os.Stdin, os.Stdout, "xterm"))
	assert.False(t, uiAuto.interactive(os.Stdin, os.Stdout, "dumb"))
	assert.Equal(t, "auto", uiAuto.String())
}

func TestCheckReportsMarkers(t *testing.T) {
	path := writeTemp(t, "a.py", "x = 1  \n")
	out, errOut, err := run(t, "check", path)
	assert.ErrorIs(t, err, errMarkersFound)
	assert.Contains(t, out, ":1:6: error: W291: Trailing whitespace")
	assert.Contains(t, errOut, "1 marker in 1 file")
}

func TestCheckCleanFile(t *testing.T) {
	path := writeTemp(t, "clean.py", "x = 1\n")
	out, _, err := run(t, "check", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCheckJSONWithSuggestions(t *testing.T) {
	a := writeTemp(t, "a.py", "x = 1  \n")
	b := writeTemp(t, "b.py", "y = 2\n")
	out, _, err := run(t, "check", "--format=json", "--suggest", a, b)
	assert.ErrorIs(t, err, errMarkersFound)

	var doc diagfmt.Output
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 2)
	assert.Equal(t, 1, doc.Count)
	require.Len(t, doc.Files[0].Markers, 1)
	assert.Equal(t, "fix-W291", doc.Files[0].Markers[0].Fixes[0].ID)
	assert.Empty(t, doc.Files[1].Markers)
}

func TestCheckTokenSource(t *testing.T) {
	token, err := share.Encode(config.Config{"lint": {"select": "E501", "line-length": "5"}}, "ab cd efgh  \n")
	require.NoError(t, err)
	out, _, err := run(t, "check", "--token", token)
	assert.ErrorIs(t, err, errMarkersFound)
	assert.Contains(t, out, "<token>:1:6: error: E501")
	assert.NotContains(t, out, "W291")
}

func TestCheckFixRewritesFile(t *testing.T) {
	path := writeTemp(t, "a.py", "x = 1  \ny = 2 \n")
	_, _, err := run(t, "check", "--fix", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\ny = 2\n", string(data))
}

func TestCheckRejectsBadFormat(t *testing.T) {
	_, _, err := run(t, "check", "--format=xml", "a.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFixModes(t *testing.T) {
	path := writeTemp(t, "a.py", "a = 1  \nb = 2  \n")
	out, _, err := run(t, "fix", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 1 fix(es)")
	data, _ := os.ReadFile(path)
	assert.Equal(t, "a = 1\nb = 2  \n", string(data))

	out, _, err = run(t, "fix", "--all", path)
	require.NoError(t, err)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "a = 1\nb = 2\n", string(data))

	out, _, err = run(t, "fix", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No applicable fixes found.")

	_, _, err = run(t, "fix", "--all", "--once", path)
	assert.Error(t, err)
}

func TestFixDryRun(t *testing.T) {
	path := writeTemp(t, "a.py", "a = 1  \n")
	out, errOut, err := run(t, "fix", "--dry-run", "--id", "fix-W291", path)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", out)
	assert.Contains(t, errOut, "fix-W291")
	data, _ := os.ReadFile(path)
	assert.Equal(t, "a = 1  \n", string(data))
}

func TestShareEncodeDecode(t *testing.T) {
	path := writeTemp(t, "a.py", "print('hi')\n")
	out, _, err := run(t, "share", "encode", "--set", "lint.line-length=120", path)
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	outFile := filepath.Join(t.TempDir(), "restored.py")
	out, _, err = run(t, "share", "decode", "--out", outFile, token)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, config.Config{"lint": {"line-length": "120"}}, cfg)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))

	_, _, err = run(t, "share", "decode", "not-a-token")
	assert.Error(t, err)

	out, errOut, err := run(t, "share", "decode", "--lenient", "not-a-token")
	require.NoError(t, err)
	assert.Contains(t, errOut, "using the default session")
	assert.Contains(t, out, share.DefaultSource)
}

func TestSchemaFormats(t *testing.T) {
	out, _, err := run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "lint.line-length")
	assert.Contains(t, out, "OPTION")

	out, _, err = run(t, "schema", "--format=json")
	require.NoError(t, err)
	assert.Contains(t, out, `"options"`)

	out, _, err = run(t, "schema", "--format=yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "field: line-length")

	_, _, err = run(t, "schema", "--format=csv")
	assert.Error(t, err)
}

func TestVersionJSON(t *testing.T) {
	out, _, err := run(t, "version", "--format=json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tool": "lintpad"`)
}
