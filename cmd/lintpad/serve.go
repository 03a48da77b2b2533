package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lintpad/internal/web"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the playground HTTP server",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from settings, 127.0.0.1:8377)")
	serveCmd.Flags().String("log-format", "text", "log format (text|json)")
	serveCmd.Flags().Bool("debug", false, "log every request")
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = env.settings.Server.Addr
	}
	logFormat, _ := cmd.Flags().GetString("log-format")
	debug, _ := cmd.Flags().GetBool("debug")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(handler)

	engine, err := env.settings.BuildEngine(env.tracer)
	if err != nil {
		return err
	}
	defaultSource, err := env.settings.DefaultSource()
	if err != nil {
		return err
	}
	srv, err := web.New(web.Options{
		Catalog:       env.catalog,
		Engine:        engine,
		DefaultSource: defaultSource,
		Tracer:        env.tracer,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}

