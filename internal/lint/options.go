package lint

import (
	"fmt"
	"strconv"
	"strings"

	"lintpad/internal/config"
	"lintpad/internal/schema"
)

// QuoteStyle is the preferred string delimiter.
type QuoteStyle uint8

const (
	QuoteAuto QuoteStyle = iota
	QuoteSingle
	QuoteDouble
)

func (q QuoteStyle) char() byte {
	if q == QuoteSingle {
		return '\''
	}
	return '"'
}

func (q QuoteStyle) String() string {
	switch q {
	case QuoteSingle:
		return "single"
	case QuoteDouble:
		return "double"
	default:
		return "auto"
	}
}

// Options is the parsed engine configuration.
type Options struct {
	Select         []string
	Ignore         []string
	LineLength     int
	MaxDiagnostics int
	Quote          QuoteStyle
	// IndentWidth is 0 when it should be detected.
	IndentWidth int
	// Normalization is "NFC", "NFKC" or "" for off.
	Normalization string
}

// OptionError reports an invalid configuration value.
type OptionError struct {
	Group, Field, Value string
	Reason              string
}

func (e *OptionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s.%s: %s", e.Group, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s.%s = %q: %s", e.Group, e.Field, e.Value, e.Reason)
}

// ParseOptions resolves cfg against the defaults of cat, or the built-in
// catalog when cat is nil. An option cat lacks falls back to the built-in
// default; an entry in cfg that cat does not define is an error.
func ParseOptions(cat *schema.Catalog, cfg config.EngineConfig) (Options, error) {
	if cat == nil {
		cat = schema.Builtin()
	}
	for group, fields := range cfg {
		for field := range fields {
			if _, ok := cat.Lookup(group, field); !ok {
				return Options{}, &OptionError{Group: group, Field: field, Reason: "unknown option"}
			}
		}
	}
	get := func(group, field string) string {
		if v, ok := cfg.Get(group, field); ok {
			return strings.TrimSpace(v)
		}
		if _, ok := cat.Lookup(group, field); ok {
			return cat.Default(group, field)
		}
		return schema.Builtin().Default(group, field)
	}

	var opts Options
	opts.Select = splitCodes(get(schema.GroupLint, schema.FieldSelect))
	opts.Ignore = splitCodes(get(schema.GroupLint, schema.FieldIgnore))

	var err error
	if opts.LineLength, err = positiveInt(schema.GroupLint, schema.FieldLineLength, get(schema.GroupLint, schema.FieldLineLength)); err != nil {
		return Options{}, err
	}
	raw := get(schema.GroupLint, schema.FieldMaxDiagnostics)
	n, convErr := strconv.Atoi(raw)
	if convErr != nil || n < 0 {
		return Options{}, &OptionError{Group: schema.GroupLint, Field: schema.FieldMaxDiagnostics, Value: raw, Reason: "expected a non-negative integer"}
	}
	opts.MaxDiagnostics = n

	switch raw := get(schema.GroupFormat, schema.FieldQuoteStyle); strings.ToLower(raw) {
	case "auto":
		opts.Quote = QuoteAuto
	case "single":
		opts.Quote = QuoteSingle
	case "double":
		opts.Quote = QuoteDouble
	default:
		return Options{}, &OptionError{Group: schema.GroupFormat, Field: schema.FieldQuoteStyle, Value: raw, Reason: "expected auto, single or double"}
	}

	if raw := get(schema.GroupFormat, schema.FieldIndentWidth); !strings.EqualFold(raw, "auto") {
		if opts.IndentWidth, err = positiveInt(schema.GroupFormat, schema.FieldIndentWidth, raw); err != nil {
			return Options{}, err
		}
	}

	switch raw := get(schema.GroupUnicode, schema.FieldNormalization); strings.ToUpper(raw) {
	case "NFC", "NFKC":
		opts.Normalization = strings.ToUpper(raw)
	case "OFF", "":
		opts.Normalization = ""
	default:
		return Options{}, &OptionError{Group: schema.GroupUnicode, Field: schema.FieldNormalization, Value: raw, Reason: "expected NFC, NFKC or off"}
	}
	return opts, nil
}

// Enabled reports whether code passes the select and ignore lists. Entries
// match by prefix, so "W" selects every W rule.
func (o Options) Enabled(code string) bool {
	if len(o.Select) > 0 && !matchesAny(code, o.Select) {
		return false
	}
	return !matchesAny(code, o.Ignore)
}

func matchesAny(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func splitCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(group, field, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &OptionError{Group: group, Field: field, Value: raw, Reason: "expected a positive integer"}
	}
	return n, nil
}
