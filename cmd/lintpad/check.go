package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/diagfmt"
	"lintpad/internal/editor"
	"lintpad/internal/fix"
	"lintpad/internal/observ"
	"lintpad/internal/projection"
	"lintpad/internal/share"
	"lintpad/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [files...]",
	Short: "Analyze files and print markers",
	Long: `Analyze files in parallel and print their markers. With --token and no
files, the token's own source is checked. The exit status is 1 when any
marker is reported or an analysis fails.`,
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	checkCmd.Flags().String("token", "", "take the configuration from a share token")
	checkCmd.Flags().StringArray("set", nil, "override an option (group.field=value), repeatable")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	checkCmd.Flags().Bool("fix", false, "apply every available fix in place, then report what remains")
	checkCmd.Flags().Bool("suggest", false, "list the fixes offered on each marker's line")
	checkCmd.Flags().Bool("preview", false, "with --suggest, show each fix as a before/after diff")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().Int("context", 0, "source lines of context around each marker")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

type checkTarget struct {
	path   string
	source string
	// fromToken marks the token's embedded source; it is never written back.
	fromToken bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	switch format {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or sarif)", format)
	}
	token, _ := flags.GetString("token")
	sets, _ := flags.GetStringArray("set")
	applyFixes, _ := flags.GetBool("fix")
	suggest, _ := flags.GetBool("suggest")
	preview, _ := flags.GetBool("preview")
	jobs, _ := flags.GetInt("jobs")
	contextLines, _ := flags.GetInt("context")
	fullPath, _ := flags.GetBool("fullpath")

	timer := observ.NewTimer()

	var cfg config.Config
	targets := make([]checkTarget, 0, len(args))
	if token != "" {
		tokCfg, tokSrc, err := share.Decode(token)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		cfg = tokCfg
		if len(args) == 0 {
			targets = append(targets, checkTarget{path: "<token>", source: tokSrc, fromToken: true})
		}
	} else {
		if cfg, err = env.baseConfig(); err != nil {
			return err
		}
	}
	if len(args) == 0 && token == "" {
		return fmt.Errorf("check: no files given")
	}
	if cfg, err = applySets(env.catalog, env.withOverrides(cfg), sets); err != nil {
		return err
	}

	readIdx := timer.Begin("read")
	for _, path := range args {
		src, err := readSource(path)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		targets = append(targets, checkTarget{path: path, source: src})
	}
	timer.End(readIdx, fmt.Sprintf("%d files", len(targets)))

	runner, err := env.runner()
	if err != nil {
		return err
	}
	engineCfg := config.ToEngine(cfg)

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	reports := make([]diagfmt.FileReport, len(targets))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, target := range targets {
		g.Go(func() error {
			idx := timer.Begin("analyze " + target.path)
			rep, err := checkOne(ctx, runner, engineCfg, target, applyFixes)
			timer.End(idx, fmt.Sprintf("%d markers", len(rep.Markers)))
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderIdx := timer.Begin("render")
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	switch format {
	case "json":
		err = diagfmt.JSON(out, reports, diagfmt.JSONOpts{PathMode: pathMode, IncludeFixes: suggest})
	case "sarif":
		err = diagfmt.Sarif(out, reports, diagfmt.SarifRunMeta{
			ToolName:       "lintpad",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	default:
		for _, rep := range reports {
			if rep.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: analysis failed: %s\n", rep.Path, rep.Error)
				continue
			}
			opts := diagfmt.PrettyOpts{
				Color:       env.color,
				Context:     contextLines,
				PathMode:    pathMode,
				ShowPreview: preview,
			}
			if suggest {
				opts.Fixes = rep.Fixes
			}
			diagfmt.Pretty(out, rep.Path, rep.Source, rep.Markers, opts)
		}
	}
	timer.End(renderIdx, format)
	if err != nil {
		return err
	}
	if env.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}

	failed := false
	total := 0
	for _, rep := range reports {
		total += len(rep.Markers)
		failed = failed || rep.Error != ""
	}
	if format == "pretty" && !env.quiet && total > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d %s in %d %s\n", total, plural(total, "marker"), len(reports), plural(len(reports), "file"))
	}
	if failed || total > 0 {
		return errMarkersFound
	}
	return nil
}

// checkOne analyzes one target. With applyFixes the file is rewritten with
// every non-conflicting fix and analyzed again.
func checkOne(ctx context.Context, runner *analysis.Runner, cfg config.EngineConfig, t checkTarget, applyFixes bool) (diagfmt.FileReport, error) {
	rep := diagfmt.FileReport{Path: t.path, Source: t.source}
	res := runner.Run(ctx, t.source, cfg)
	if res.Err == nil && applyFixes && !t.fromToken {
		actions := fix.Collect(res.Diagnostics)
		if len(actions) > 0 {
			applied, err := fix.Apply(t.source, actions, fix.ApplyOptions{Mode: fix.ApplyModeAll})
			if err == nil && applied.Changed(t.source) {
				if err := os.WriteFile(t.path, []byte(applied.Output), 0o644); err != nil {
					return rep, fmt.Errorf("check: %w", err)
				}
				rep.Source = applied.Output
				res = runner.Run(ctx, rep.Source, cfg)
			}
		}
	}
	if res.Err != nil {
		rep.Error = res.Err.Message
		return rep, nil
	}
	rep.Markers = projection.ToMarkers(res.Diagnostics)
	rep.Fixes = diagnosticFixes(res.Diagnostics)
	return rep, nil
}

// diagnosticFixes answers FixesAt from a finished diagnostic set.
func diagnosticFixes(diags []diag.Diagnostic) editor.FixProvider {
	return editor.FixProviderFunc(func(line int) []editor.FixAction {
		return projection.FixesAt(diags, line)
	})
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
