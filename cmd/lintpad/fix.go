package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lintpad/internal/config"
	"lintpad/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:          "fix [flags] <file>",
	Short:        "Apply available fixes to a source file",
	Long:         "Analyze a file, gather the fixes offered line by line, and apply them according to the chosen strategy.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply all non-conflicting fixes")
	fixCmd.Flags().Bool("once", false, "apply the first available fix (default)")
	fixCmd.Flags().String("id", "", "apply the first fix with a specific identifier (e.g. fix-W291)")
	fixCmd.Flags().Bool("dry-run", false, "print the fixed source instead of writing the file")
	fixCmd.Flags().StringArray("set", nil, "override an option (group.field=value), repeatable")
}

func runFix(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	flags := cmd.Flags()

	applyAll, err := flags.GetBool("all")
	if err != nil {
		return err
	}
	applyOnce, err := flags.GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := flags.GetString("id")
	if err != nil {
		return err
	}
	dryRun, _ := flags.GetBool("dry-run")
	sets, _ := flags.GetStringArray("set")

	if targetID != "" && (applyAll || applyOnce) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}
	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}

	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	cfg, err := env.baseConfig()
	if err != nil {
		return err
	}
	if cfg, err = applySets(env.catalog, cfg, sets); err != nil {
		return err
	}
	runner, err := env.runner()
	if err != nil {
		return err
	}

	source, err := readSource(targetPath)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	res := runner.Run(cmd.Context(), source, config.ToEngine(cfg))
	if res.Err != nil {
		return fmt.Errorf("fix: analysis failed: %w", res.Err)
	}

	result, applyErr := fix.Apply(source, fix.Collect(res.Diagnostics), fix.ApplyOptions{Mode: mode, TargetID: targetID})
	if result != nil && result.Changed(source) {
		if dryRun || targetPath == "-" {
			if _, err := io.WriteString(cmd.OutOrStdout(), result.Output); err != nil {
				return err
			}
			return handleApplyResult(cmd.ErrOrStderr(), result, applyErr)
		}
		if err := os.WriteFile(targetPath, []byte(result.Output), 0o644); err != nil {
			return fmt.Errorf("fix: %w", err)
		}
	}
	return handleApplyResult(cmd.OutOrStdout(), result, applyErr)
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error) error {
	if res == nil {
		return applyErr
	}
	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "Applied %d fix(es):\n", len(res.Applied))
		for _, item := range res.Applied {
			fmt.Fprintf(out, "  %s [%s] line %d\n", item.Title, item.ID, item.Line)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			fmt.Fprintf(out, "  %s [%s] line %d: %s\n", skip.Title, skip.ID, skip.Line, skip.Reason)
		}
	}
	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			fmt.Fprintln(out, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}
	return nil
}
