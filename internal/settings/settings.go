// Package settings loads project settings from lintpad.toml, a .env file and
// LINTPAD_* environment variables, in that order of increasing precedence.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"lintpad/internal/config"
	"lintpad/internal/schema"
)

// FileName is the settings file looked up from the working directory upward.
const FileName = "lintpad.toml"

const (
	EngineBuiltin = "builtin"
	EngineCommand = "command"
)

const (
	defaultCacheSize = 256
	defaultAddr      = "127.0.0.1:8377"
)

type EngineSettings struct {
	Kind    string   `toml:"kind"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout string   `toml:"timeout"`
}

type CacheSettings struct {
	Size int    `toml:"size"`
	Dir  string `toml:"dir"`
	// Disk enables the on-disk result cache.
	Disk bool `toml:"disk"`
}

type ServerSettings struct {
	Addr string `toml:"addr"`
}

type SessionSettings struct {
	TokenFile string `toml:"token-file"`
	// DefaultSource names a file whose text seeds sessions without a token.
	DefaultSource string `toml:"default-source"`
	// Schema points at a YAML or TOML option catalog replacing the builtin.
	Schema string `toml:"schema"`
}

// Settings is the merged project configuration.
type Settings struct {
	// Path is the settings file in use, empty when none was found.
	Path string `toml:"-"`
	Root string `toml:"-"`

	Engine  EngineSettings  `toml:"engine"`
	Cache   CacheSettings   `toml:"cache"`
	Server  ServerSettings  `toml:"server"`
	Session SessionSettings `toml:"session"`
	// Config holds default option overrides, [config.<group>] tables.
	Config map[string]map[string]any `toml:"config"`
}

// Default returns settings with no file and no environment applied.
func Default() *Settings {
	return &Settings{
		Engine: EngineSettings{Kind: EngineBuiltin},
		Cache:  CacheSettings{Size: defaultCacheSize},
		Server: ServerSettings{Addr: defaultAddr},
	}
}

// Find walks up from startDir looking for lintpad.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadFile decodes path over the defaults and validates the result.
func LoadFile(path string) (*Settings, error) {
	s := Default()
	meta, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	s.Path = path
	s.Root = filepath.Dir(path)
	s.resolvePaths()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load resolves settings for startDir. explicit, when set, names the
// settings file and must exist. A .env file in startDir is loaded first;
// variables already set in the environment win over it.
func Load(startDir, explicit string) (*Settings, error) {
	envFile := filepath.Join(startDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", envFile, err)
	}

	var (
		s   *Settings
		err error
	)
	switch {
	case explicit != "":
		s, err = LoadFile(explicit)
	default:
		path, ok, ferr := Find(startDir)
		if ferr != nil {
			return nil, ferr
		}
		if ok {
			s, err = LoadFile(path)
		} else {
			s = Default()
		}
	}
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnv overrides fields from LINTPAD_* variables.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LINTPAD_ENGINE", &s.Engine.Kind)
	str("LINTPAD_ENGINE_COMMAND", &s.Engine.Command)
	str("LINTPAD_ENGINE_TIMEOUT", &s.Engine.Timeout)
	str("LINTPAD_CACHE_DIR", &s.Cache.Dir)
	str("LINTPAD_ADDR", &s.Server.Addr)
	str("LINTPAD_TOKEN_FILE", &s.Session.TokenFile)
	str("LINTPAD_SCHEMA", &s.Session.Schema)

	if v, ok := lookup("LINTPAD_CACHE_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LINTPAD_CACHE_SIZE: %w", err)
		}
		s.Cache.Size = n
	}
	if v, ok := lookup("LINTPAD_CACHE_DISK"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LINTPAD_CACHE_DISK: %w", err)
		}
		s.Cache.Disk = b
	}
	return s.Validate()
}

// Validate checks engine and cache settings.
func (s *Settings) Validate() error {
	switch s.Engine.Kind {
	case "", EngineBuiltin:
		s.Engine.Kind = EngineBuiltin
	case EngineCommand:
		if strings.TrimSpace(s.Engine.Command) == "" {
			return errors.New("[engine].command is required when kind = \"command\"")
		}
	default:
		return fmt.Errorf("[engine].kind: unknown engine %q", s.Engine.Kind)
	}
	if _, err := s.Timeout(); err != nil {
		return err
	}
	if s.Cache.Size < 0 {
		return fmt.Errorf("[cache].size must not be negative, got %d", s.Cache.Size)
	}
	return nil
}

// Timeout parses [engine].timeout, zero when unset.
func (s *Settings) Timeout() (time.Duration, error) {
	if s.Engine.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Engine.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("[engine].timeout: invalid duration %q", s.Engine.Timeout)
	}
	return d, nil
}

// Catalog returns the option catalog named by [session].schema, or the
// builtin one.
func (s *Settings) Catalog() (*schema.Catalog, error) {
	if s.Session.Schema == "" {
		return schema.Builtin(), nil
	}
	return schema.LoadFile(s.Session.Schema)
}

// DefaultSource reads [session].default-source. It returns "" when unset.
func (s *Settings) DefaultSource() (string, error) {
	if s.Session.DefaultSource == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.Session.DefaultSource)
	if err != nil {
		return "", fmt.Errorf("[session].default-source: %w", err)
	}
	return string(data), nil
}

// BaseConfig applies the [config.*] tables to an empty configuration.
// Values equal to the default are elided as usual.
func (s *Settings) BaseConfig(cat *schema.Catalog) (config.Config, error) {
	cfg := make(config.Config)
	for group, fields := range s.Config {
		for field, raw := range fields {
			if _, ok := cat.Lookup(group, field); !ok {
				return nil, fmt.Errorf("[config.%s]: unknown option %q", group, field)
			}
			cfg = config.SetField(cat, cfg, group, field, fmt.Sprint(raw))
		}
	}
	return cfg, nil
}

func (s *Settings) resolvePaths() {
	for _, p := range []*string{&s.Cache.Dir, &s.Session.TokenFile, &s.Session.Schema, &s.Session.DefaultSource} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(s.Root, *p)
		}
	}
}
