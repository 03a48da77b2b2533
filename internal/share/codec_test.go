package share

import (
	"bytes"
	"encoding/base64"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/config"
	"lintpad/internal/schema"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		source string
	}{
		{name: "empty", cfg: config.Config{}, source: ""},
		{name: "default source", cfg: config.Config{}, source: DefaultSource},
		{name: "overrides", cfg: config.Config{"lint": {"line-length": "100", "select": "W291,E501"}}, source: "x = 1\n"},
		{name: "source with delimiter", cfg: config.Config{"lint": {"ignore": "Q000"}}, source: "a\x00b\x00"},
		{name: "unicode and json-looking source", cfg: config.Config{"unicode": {"normalization": "off"}}, source: "{\"k\": \"é\"}\r\n\tπ"},
		{name: "value with dollars", cfg: config.Config{"lint": {"select": "$$$$$$"}}, source: "$$$$$$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.cfg, tt.source)
			require.NoError(t, err)

			cfg, source, err := Decode(token)
			require.NoError(t, err)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.cfg, cfg)
		})
	}
}

func TestRoundTripRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abc \t\n\x00'\"\\{}é😀")
	randomString := func(n int) string {
		var b strings.Builder
		for range n {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		return b.String()
	}
	for range 200 {
		cfg := config.Config{}
		for range rng.Intn(3) {
			group := randomString(1 + rng.Intn(4))
			if cfg[group] == nil {
				cfg[group] = map[string]string{}
			}
			cfg[group][randomString(1+rng.Intn(4))] = randomString(1 + rng.Intn(6))
		}
		source := randomString(rng.Intn(64))

		token, err := Encode(cfg, source)
		require.NoError(t, err)
		gotCfg, gotSource, err := Decode(token)
		require.NoError(t, err)
		require.Equal(t, source, gotSource)
		require.Equal(t, cfg, gotCfg)
	}
}

func TestEncodeIsIdempotent(t *testing.T) {
	cfg := config.Config{"lint": {"line-length": "100"}, "format": {"quote-style": "single"}}
	first, err := Encode(cfg, "print('hi')\n")
	require.NoError(t, err)
	second, err := Encode(cfg.Clone(), "print('hi')\n")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEqualConfigsShareAToken(t *testing.T) {
	cat := schema.Builtin()
	reset := config.SetField(cat, config.Config{}, "lint", "line-length", "100")
	reset = config.SetField(cat, reset, "lint", "line-length", cat.Default("lint", "line-length"))
	require.True(t, reset.Equal(config.Config{}))

	plain, err := Encode(config.Config{}, "x\n")
	require.NoError(t, err)
	withEmptyGroup, err := Encode(reset, "x\n")
	require.NoError(t, err)
	assert.Equal(t, plain, withEmptyGroup)

	cfg, _, err := Decode(withEmptyGroup)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
	assert.Empty(t, cfg)
}

func TestTokenIsURLSafe(t *testing.T) {
	token, err := Encode(config.Config{"lint": {"select": "W291"}}, strings.Repeat("x = '?&#/+'\n", 20))
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "#")
}

func TestDecodeAcceptsFragmentPrefix(t *testing.T) {
	token, err := Encode(config.Config{}, "z")
	require.NoError(t, err)
	_, source, err := Decode("#" + token)
	require.NoError(t, err)
	assert.Equal(t, "z", source)
}

func TestDecodeFailures(t *testing.T) {
	compressed := func(payload string) string {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, compressionLevel)
		require.NoError(t, err)
		_, err = w.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return base64.RawURLEncoding.EncodeToString(buf.Bytes())
	}
	tests := []struct {
		name   string
		token  string
		reason DecodeReason
	}{
		{name: "empty", token: "", reason: ReasonEmpty},
		{name: "not base64", token: "not-a-valid-token", reason: ReasonEncoding},
		{name: "not deflate", token: base64.RawURLEncoding.EncodeToString([]byte("plain text")), reason: ReasonDecompress},
		{name: "missing delimiter", token: compressed(`{"lint":{}}`), reason: ReasonDelimiter},
		{name: "bad config", token: compressed("[1,2]\x00src"), reason: ReasonConfig},
		{name: "null config", token: compressed("null\x00src"), reason: ReasonConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.token)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %v", err)
			assert.Equal(t, tt.reason, decodeErr.Reason)
		})
	}
}

func TestDecodeOrDefaultFallsBack(t *testing.T) {
	cfg, source, err := DecodeOrDefault("not-a-valid-token")
	require.Error(t, err)
	assert.Equal(t, DefaultSource, source)
	assert.Equal(t, 0, cfg.Len())
	assert.NotNil(t, cfg)
}
