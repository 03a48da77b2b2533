package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/schema"
	"lintpad/internal/settings"
	"lintpad/internal/trace"
)

// cliEnv is what every command resolves before doing work: settings,
// option catalog, tracer and the output flags.
type cliEnv struct {
	settings *settings.Settings
	catalog  *schema.Catalog
	tracer   trace.Tracer
	color    bool
	quiet    bool
	timings  bool
	maxDiags int
	cleanup  func()
}

func loadEnv(cmd *cobra.Command) (*cliEnv, error) {
	flags := cmd.Root().PersistentFlags()
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	switch colorFlag {
	case "auto", "on", "off":
	default:
		return nil, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, err
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, err
	}
	maxDiags, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, err
	}
	if maxDiags < 0 {
		return nil, fmt.Errorf("--max-diagnostics must not be negative")
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	st, err := settings.Load(".", configPath)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	cat, err := st.Catalog()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		stopProfiling()
		return nil, err
	}
	tracer := trace.FromContext(cmd.Context())
	cleanup := func() {
		stopTracing()
		stopProfiling()
	}
	return &cliEnv{
		settings: st,
		catalog:  cat,
		tracer:   tracer,
		color:    colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout)),
		quiet:    quiet,
		timings:  timings,
		maxDiags: maxDiags,
		cleanup:  cleanup,
	}, nil
}

// runner builds the engine from settings and wraps it in a Runner.
func (e *cliEnv) runner(opts ...analysis.RunnerOption) (*analysis.Runner, error) {
	engine, err := e.settings.BuildEngine(e.tracer)
	if err != nil {
		return nil, err
	}
	opts = append([]analysis.RunnerOption{analysis.WithTracer(e.tracer)}, opts...)
	return analysis.NewRunner(engine, opts...), nil
}

// baseConfig is the settings file's [config.*] with --max-diagnostics
// applied on top.
func (e *cliEnv) baseConfig() (config.Config, error) {
	cfg, err := e.settings.BaseConfig(e.catalog)
	if err != nil {
		return nil, err
	}
	return e.withOverrides(cfg), nil
}

func (e *cliEnv) withOverrides(cfg config.Config) config.Config {
	if e.maxDiags > 0 {
		cfg = config.SetField(e.catalog, cfg, "lint", "max-diagnostics", strconv.Itoa(e.maxDiags))
	}
	return cfg
}

// applySets applies --set group.field=value assignments.
func applySets(cat *schema.Catalog, cfg config.Config, sets []string) (config.Config, error) {
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected group.field=value", s)
		}
		group, field, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected group.field=value", s)
		}
		if _, known := cat.Lookup(group, field); !known {
			return nil, fmt.Errorf("--set %q: unknown option %s.%s", s, group, field)
		}
		cfg = config.SetField(cat, cfg, group, field, value)
	}
	return cfg, nil
}

// readSource reads a file, or stdin for "-".
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
