package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lintpad/internal/diagfmt"
	"lintpad/internal/session"
	"lintpad/internal/ui"
	"lintpad/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file>",
	Short: "Re-check a file on every save",
	Long: `Treat a file as a live editor session: every save is analyzed, markers are
redrawn, and fixes can be applied from the terminal UI. The session token is
kept in --token-file so the session can be shared or resumed; an empty file
is filled from that token.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	watchCmd.Flags().String("ui", "auto", "terminal UI (auto|on|off)")
	watchCmd.Flags().String("token-file", "", "file holding the session token (default from settings)")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "delay before re-checking after a save")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := parseUIMode(uiFlag)
	if err != nil {
		return err
	}
	useTUI := mode.interactive(os.Stdin, os.Stdout, os.Getenv("TERM"))
	tokenFile, _ := cmd.Flags().GetString("token-file")
	if tokenFile == "" {
		tokenFile = env.settings.Session.TokenFile
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	var printMu sync.Mutex
	opts := watch.Options{
		Debounce: debounce,
		OnError: func(err error) {
			printMu.Lock()
			defer printMu.Unlock()
			fmt.Fprintf(errOut, "watch: %v\n", err)
		},
	}
	if !useTUI {
		opts.OnMarkers = func(fr watch.Frame) {
			printMu.Lock()
			defer printMu.Unlock()
			renderFrame(out, fr, env.color)
		}
	}
	bridge, err := watch.NewFileBridge(args[0], opts)
	if err != nil {
		return err
	}

	var channel session.TokenChannel
	if tokenFile != "" {
		channel = session.NewFileChannel(tokenFile)
	}
	runner, err := env.runner()
	if err != nil {
		return err
	}
	store, err := session.New(session.Options{
		Catalog:       env.catalog,
		Runner:        runner,
		Bridge:        bridge,
		Channel:       channel,
		Tracer:        env.tracer,
		DefaultSource: bridge.Text(),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	events := make(chan ui.Event, 64)
	offer := func(ev ui.Event) {
		select {
		case events <- ev:
		default:
		}
	}
	// registered before Start so it runs ahead of the session's own handler
	bridge.OnTextChanged(func(string) { offer(ui.Event{Analyzing: true}) })
	unobserve := store.Observe(func(st session.State) {
		offer(ui.Event{State: st})
		if !useTUI && st.LastError != nil {
			printMu.Lock()
			fmt.Fprintf(errOut, "%s: analysis failed: %s\n", bridge.Path(), st.LastError.Message)
			printMu.Unlock()
		}
	})
	defer unobserve()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := store.Start(ctx); err != nil {
		return err
	}
	if err := bridge.Sync(ctx, store); err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- bridge.Run(ctx) }()

	if !useTUI {
		select {
		case <-ctx.Done():
		case err := <-watchErr:
			return err
		}
		return nil
	}

	// the TUI has not subscribed yet; hand it the current state
	offer(ui.Event{State: store.State()})
	model := ui.NewWatchModel(bridge.Path(), events, bridge)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	stop()
	if err := <-watchErr; err != nil {
		return err
	}
	if uiErr != nil && ctx.Err() == nil {
		return uiErr
	}
	return nil
}

// renderFrame prints one marker set. Fixes are not listed: markers arrive
// before the matching fix provider is registered.
func renderFrame(w io.Writer, fr watch.Frame, color bool) {
	fmt.Fprintf(w, "--- %s (%s)\n", fr.Path, time.Now().Format(time.TimeOnly))
	if len(fr.Markers) == 0 {
		fmt.Fprintln(w, "clean")
		return
	}
	diagfmt.Pretty(w, fr.Path, fr.Source, fr.Markers, diagfmt.PrettyOpts{
		Color:    color,
		PathMode: diagfmt.PathModeAuto,
	})
}

