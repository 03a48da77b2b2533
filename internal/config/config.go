// Package config holds the user's configuration as a sparse overlay on top
// of the schema defaults: a (group, field) entry exists only while its value
// differs from the default.
package config

import (
	"encoding/json"
	"sort"

	"lintpad/internal/schema"
)

// Config maps group -> field -> value. Missing entries mean "use default".
type Config map[string]map[string]string

// EngineConfig is the shape handed to analysis engines.
type EngineConfig map[string]map[string]string

// Defaults builds the full default table for a catalog. It is used for
// diffing and must never be stored as the live configuration.
func Defaults(cat *schema.Catalog) Config {
	out := make(Config)
	for _, opt := range cat.Options() {
		group, ok := out[opt.Group]
		if !ok {
			group = make(map[string]string)
			out[opt.Group] = group
		}
		group[opt.Field] = opt.Default
	}
	return out
}

// SetField returns a copy of cfg with (group, field) set to value. Empty
// values and values equal to the schema default remove the entry; the group
// map is left in place even if it becomes empty.
func SetField(cat *schema.Catalog, cfg Config, group, field, value string) Config {
	out := cfg.Clone()
	if value == "" || value == cat.Default(group, field) {
		if fields, ok := out[group]; ok {
			delete(fields, field)
		}
		return out
	}
	fields, ok := out[group]
	if !ok {
		fields = make(map[string]string)
		out[group] = fields
	}
	fields[field] = value
	return out
}

// Normalize rebuilds cfg through SetField so that values equal to the
// default, empty values and empty groups are gone.
func Normalize(cat *schema.Catalog, cfg Config) Config {
	out := make(Config)
	for group, fields := range cfg {
		for field, value := range fields {
			out = SetField(cat, out, group, field, value)
		}
	}
	return out
}

// Value returns the effective value of (group, field): the override when
// present, the schema default otherwise.
func Value(cat *schema.Catalog, cfg Config, group, field string) string {
	if v, ok := cfg.Get(group, field); ok {
		return v
	}
	return cat.Default(group, field)
}

// ToEngine converts cfg into the engine's shape. The mapping is structural:
// groups and fields pass through unchanged.
func ToEngine(cfg Config) EngineConfig {
	out := make(EngineConfig, len(cfg))
	for group, fields := range cfg {
		copied := make(map[string]string, len(fields))
		for field, value := range fields {
			copied[field] = value
		}
		out[group] = copied
	}
	return out
}

// Get reports the stored override for (group, field).
func (c Config) Get(group, field string) (string, bool) {
	fields, ok := c[group]
	if !ok {
		return "", false
	}
	v, ok := fields[field]
	return v, ok
}

// Clone deep-copies the configuration. Cloning nil yields an empty Config.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for group, fields := range c {
		copied := make(map[string]string, len(fields))
		for field, value := range fields {
			copied[field] = value
		}
		out[group] = copied
	}
	return out
}

// Len counts stored overrides.
func (c Config) Len() int {
	n := 0
	for _, fields := range c {
		n += len(fields)
	}
	return n
}

// Equal compares overrides, ignoring empty groups.
func (c Config) Equal(other Config) bool {
	if c.Len() != other.Len() {
		return false
	}
	for group, fields := range c {
		for field, value := range fields {
			if got, ok := other.Get(group, field); !ok || got != value {
				return false
			}
		}
	}
	return true
}

// Keys lists stored overrides as sorted "group.field" strings.
func (c Config) Keys() []string {
	keys := make([]string, 0, c.Len())
	for group, fields := range c {
		for field := range fields {
			keys = append(keys, group+"."+field)
		}
	}
	sort.Strings(keys)
	return keys
}

// MarshalCanonical returns compact JSON with sorted keys. Empty groups are
// dropped, so configurations that are Equal encode to the same bytes. A nil
// Config encodes as {}.
func (c Config) MarshalCanonical() ([]byte, error) {
	out := make(map[string]map[string]string, len(c))
	for group, fields := range c {
		if len(fields) > 0 {
			out[group] = fields
		}
	}
	return json.Marshal(out)
}

// Get reports the engine value for (group, field).
func (e EngineConfig) Get(group, field string) (string, bool) {
	return Config(e).Get(group, field)
}
