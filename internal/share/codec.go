// Package share turns a session (configuration plus source text) into a
// compact URL-safe token and back.
//
// Token layout:
//
//	base64url(deflate(canonicalJSON(config) + Delimiter + source))
//
// Delimiter is a single NUL byte. Compact JSON never contains a raw NUL, so
// the first NUL always terminates the configuration segment; the source is
// everything after it and may itself contain NULs.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"lintpad/internal/config"
)

// Delimiter separates the configuration JSON from the source text.
const Delimiter = "\x00"

// DefaultSource is the text a session starts with when no token is present
// or the token cannot be decoded.
const DefaultSource = `def greet(name):
    message = 'Hello, ' + name
    print(message)


greet("world")
`

// compression level is fixed so that equal input always yields equal tokens
const compressionLevel = flate.BestCompression

var encoding = base64.RawURLEncoding

// maxPayload caps the decompressed size of a token.
const maxPayload = 8 << 20

// DecodeReason classifies why a token was rejected.
type DecodeReason uint8

const (
	ReasonEmpty DecodeReason = iota + 1
	ReasonEncoding
	ReasonDecompress
	ReasonTooLarge
	ReasonDelimiter
	ReasonConfig
)

func (r DecodeReason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty token"
	case ReasonEncoding:
		return "invalid base64url"
	case ReasonDecompress:
		return "invalid compressed payload"
	case ReasonTooLarge:
		return "payload too large"
	case ReasonDelimiter:
		return "missing delimiter"
	case ReasonConfig:
		return "invalid configuration"
	default:
		return "unknown"
	}
}

// DecodeError reports a token that could not be restored.
type DecodeError struct {
	Reason DecodeReason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("share: %s: %v", e.Reason, e.Err)
	}
	return "share: " + e.Reason.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes cfg and source into a token.
func Encode(cfg config.Config, source string) (string, error) {
	head, err := cfg.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("share: encode config: %w", err)
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, compressionLevel)
	if err != nil {
		return "", fmt.Errorf("share: %w", err)
	}
	if _, err := w.Write(head); err != nil {
		return "", fmt.Errorf("share: compress: %w", err)
	}
	if _, err := io.WriteString(w, Delimiter); err != nil {
		return "", fmt.Errorf("share: compress: %w", err)
	}
	if _, err := io.WriteString(w, source); err != nil {
		return "", fmt.Errorf("share: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("share: compress: %w", err)
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode restores the configuration and source from a token.
// Every failure is a *DecodeError.
func Decode(token string) (config.Config, string, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "#")
	if token == "" {
		return nil, "", &DecodeError{Reason: ReasonEmpty}
	}
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return nil, "", &DecodeError{Reason: ReasonEncoding, Err: err}
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	payload, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, "", &DecodeError{Reason: ReasonDecompress, Err: err}
	}
	if len(payload) > maxPayload {
		return nil, "", &DecodeError{Reason: ReasonTooLarge}
	}
	head, source, ok := strings.Cut(string(payload), Delimiter)
	if !ok {
		return nil, "", &DecodeError{Reason: ReasonDelimiter}
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(head), &cfg); err != nil {
		return nil, "", &DecodeError{Reason: ReasonConfig, Err: err}
	}
	if cfg == nil {
		return nil, "", &DecodeError{Reason: ReasonConfig, Err: errors.New("configuration is not an object")}
	}
	return cfg, source, nil
}

// DecodeOrDefault is Decode with the session fallback applied: any failure
// yields an empty configuration and DefaultSource. The error is returned for
// logging only.
func DecodeOrDefault(token string) (config.Config, string, error) {
	cfg, source, err := Decode(token)
	if err != nil {
		return config.Config{}, DefaultSource, err
	}
	return cfg, source, nil
}
