// Package schema describes the configuration options an analysis engine
// accepts. A Catalog is static and read-only: it is the source of default
// values for config diffing and the list rendered by configuration UIs.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Option is one configurable field of an engine.
type Option struct {
	Group       string `json:"group" toml:"group" yaml:"group"`
	Field       string `json:"field" toml:"field" yaml:"field"`
	Default     string `json:"default" toml:"default" yaml:"default"`
	Description string `json:"description,omitempty" toml:"description" yaml:"description,omitempty"`
}

// Key returns the dotted "group.field" name.
func (o Option) Key() string {
	return o.Group + "." + o.Field
}

// Catalog is an ordered list of options. Order is preserved for rendering.
type Catalog struct {
	options []Option
	index   map[string]int
}

// ErrDuplicateOption is returned when two options share a group and field.
var ErrDuplicateOption = errors.New("duplicate option")

// New builds a catalog, rejecting empty names and duplicates.
func New(options []Option) (*Catalog, error) {
	c := &Catalog{
		options: make([]Option, 0, len(options)),
		index:   make(map[string]int, len(options)),
	}
	for _, opt := range options {
		opt.Group = strings.TrimSpace(opt.Group)
		opt.Field = strings.TrimSpace(opt.Field)
		if opt.Group == "" || opt.Field == "" {
			return nil, fmt.Errorf("schema: option %q has an empty group or field", opt.Key())
		}
		key := opt.Key()
		if _, ok := c.index[key]; ok {
			return nil, fmt.Errorf("schema: %w: %s", ErrDuplicateOption, key)
		}
		c.index[key] = len(c.options)
		c.options = append(c.options, opt)
	}
	return c, nil
}

// MustNew is New for statically known catalogs.
func MustNew(options []Option) *Catalog {
	c, err := New(options)
	if err != nil {
		panic(err)
	}
	return c
}

// Options returns a copy of the catalog entries in declaration order.
func (c *Catalog) Options() []Option {
	if c == nil {
		return nil
	}
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Len reports the number of options.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.options)
}

// Lookup finds the option for (group, field).
func (c *Catalog) Lookup(group, field string) (Option, bool) {
	if c == nil {
		return Option{}, false
	}
	idx, ok := c.index[group+"."+field]
	if !ok {
		return Option{}, false
	}
	return c.options[idx], true
}

// Default returns the default for (group, field), or "" for unknown fields.
func (c *Catalog) Default(group, field string) string {
	opt, _ := c.Lookup(group, field)
	return opt.Default
}

// Groups returns group names in first-seen order.
func (c *Catalog) Groups() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	groups := make([]string, 0)
	for _, opt := range c.options {
		if _, ok := seen[opt.Group]; ok {
			continue
		}
		seen[opt.Group] = struct{}{}
		groups = append(groups, opt.Group)
	}
	return groups
}

// Group returns the options of one group in declaration order.
func (c *Catalog) Group(name string) []Option {
	if c == nil {
		return nil
	}
	out := make([]Option, 0)
	for _, opt := range c.options {
		if opt.Group == name {
			out = append(out, opt)
		}
	}
	return out
}

type catalogFile struct {
	Options []Option `json:"options" toml:"options" yaml:"options"`
}

// LoadFile reads a catalog from a .toml, .yaml/.yml or .json file.
// All formats share one layout: a top-level "options" list.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	var file catalogFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%s: failed to parse JSON: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported schema format %q (expected .toml, .yaml, .yml or .json)", path, ext)
	}
	cat, err := New(file.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// MarshalYAML renders the catalog in the same layout LoadFile reads.
func (c *Catalog) MarshalYAML() (any, error) {
	return catalogFile{Options: c.Options()}, nil
}

// MarshalJSON renders the catalog as {"options": [...]}.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(catalogFile{Options: c.Options()})
}

// SortedKeys returns every "group.field" key sorted lexically.
func (c *Catalog) SortedKeys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.options))
	for _, opt := range c.options {
		keys = append(keys, opt.Key())
	}
	sort.Strings(keys)
	return keys
}
