package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lintpad/internal/config"
	"lintpad/internal/share"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Encode and decode session tokens",
}

var shareEncodeCmd = &cobra.Command{
	Use:          "encode [flags] <file|->",
	Short:        "Pack a configuration and a source file into a token",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runShareEncode,
}

var shareDecodeCmd = &cobra.Command{
	Use:          "decode [flags] <token>",
	Short:        "Print a token's configuration and source",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runShareDecode,
}

func init() {
	shareEncodeCmd.Flags().StringArray("set", nil, "set an option (group.field=value), repeatable")
	shareEncodeCmd.Flags().Bool("no-settings", false, "ignore [config] tables from the settings file")
	shareDecodeCmd.Flags().String("out", "", "write the source to this file instead of stdout")
	shareDecodeCmd.Flags().Bool("lenient", false, "fall back to the default session instead of failing")
	shareCmd.AddCommand(shareEncodeCmd, shareDecodeCmd)
}

func runShareEncode(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	sets, _ := cmd.Flags().GetStringArray("set")
	noSettings, _ := cmd.Flags().GetBool("no-settings")

	cfg := config.Config{}
	if !noSettings {
		if cfg, err = env.settings.BaseConfig(env.catalog); err != nil {
			return err
		}
	}
	if cfg, err = applySets(env.catalog, cfg, sets); err != nil {
		return err
	}
	source, err := readSource(args[0])
	if err != nil {
		return fmt.Errorf("share: %w", err)
	}
	token, err := share.Encode(cfg, source)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func runShareDecode(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")
	lenient, _ := cmd.Flags().GetBool("lenient")

	var (
		cfg    config.Config
		source string
		err    error
	)
	if lenient {
		cfg, source, err = share.DecodeOrDefault(args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using the default session\n", err)
		}
	} else {
		cfg, source, err = share.Decode(args[0])
		if err != nil {
			return err
		}
	}

	if cfg == nil {
		cfg = config.Config{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return err
	}

	if outPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), source)
		return err
	}
	return os.WriteFile(outPath, []byte(source), 0o644)
}
