package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var schemaCmd = &cobra.Command{
	Use:          "schema",
	Short:        "List the configuration options the engine accepts",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runSchema,
}

// lipgloss/table numbers the header row 0 and data rows from 1.
const tableHeaderRow = 0

func init() {
	schemaCmd.Flags().String("format", "table", "output format (table|json|yaml)")
}

func runSchema(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env.catalog)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(env.catalog)
	case "table":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("OPTION", "DEFAULT", "DESCRIPTION")
		if env.color {
			header := lipgloss.NewStyle().Bold(true)
			t = t.StyleFunc(func(row, _ int) lipgloss.Style {
				if row == tableHeaderRow {
					return header
				}
				return lipgloss.NewStyle()
			})
		}
		for _, opt := range env.catalog.Options() {
			def := opt.Default
			if def == "" {
				def = `""`
			}
			t.Row(opt.Key(), def, opt.Description)
		}
		_, err := fmt.Fprintln(out, t.Render())
		return err
	default:
		return fmt.Errorf("unsupported format %q (must be table, json or yaml)", format)
	}
}
