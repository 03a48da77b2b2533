package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lintpad/internal/lsp"
	"lintpad/internal/version"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the lintpad language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().String("language", "", "language id fix providers register for (default python)")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()
	languageID, _ := cmd.Flags().GetString("language")

	runner, err := env.runner()
	if err != nil {
		return err
	}
	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Runner:     runner,
		Catalog:    env.catalog,
		Tracer:     env.tracer,
		LanguageID: languageID,
		Version:    version.Version,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
