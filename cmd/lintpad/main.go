package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lintpad/internal/version"
)

// errMarkersFound makes the process exit with status 1 without printing
// anything more; the markers were the output.
var errMarkersFound = errors.New("markers found")

var rootCmd = &cobra.Command{
	Use:           "lintpad",
	Short:         "Lint playground: check, fix, share and serve lint sessions",
	Long:          `lintpad runs a source linter over files, editors and a web playground, and packs whole sessions into shareable tokens`,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics per file (0 = engine setting)")
	flags.String("config", "", "settings file (default: lintpad.toml found from the working directory up)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "ring buffer size for --trace-mode=ring")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson|chrome); auto picks from the --trace extension")
	flags.String("cpu-profile", "", "write CPU profile to file")
	flags.String("mem-profile", "", "write heap profile to file on exit")
	flags.String("runtime-trace", "", "write Go runtime trace to file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errMarkersFound) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
