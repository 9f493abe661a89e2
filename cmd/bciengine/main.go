// Package main provides the CLI entrypoint for bciengine.
package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	opensimplex "github.com/ojrac/opensimplex-go"
	"github.com/spf13/cobra"

	"github.com/listenzcc/BCI-engine/internal/appdispatch"
	"github.com/listenzcc/BCI-engine/internal/command"
	"github.com/listenzcc/BCI-engine/internal/config"
	"github.com/listenzcc/BCI-engine/internal/display"
	"github.com/listenzcc/BCI-engine/internal/eeg"
	"github.com/listenzcc/BCI-engine/internal/engine"
	"github.com/listenzcc/BCI-engine/internal/layout"
	"github.com/listenzcc/BCI-engine/internal/model"
	"github.com/listenzcc/BCI-engine/internal/preview"
	"github.com/listenzcc/BCI-engine/internal/render"
	"github.com/listenzcc/BCI-engine/internal/store"
	"github.com/listenzcc/BCI-engine/internal/trial"
	"github.com/listenzcc/BCI-engine/internal/wordbag"
)

var (
	runColumns      int
	runPadding      float64
	runTrialSeconds float64
	runSpeedFactor  float64
	runWidth        int
	runHeight       int
	runCharset      string
	runAddr         string
	runDispatch     bool
	runPreview      bool
	runLogLevel     string

	ctlAddr    string
	ctlColumns int
	ctlText    string
	ctlBody    string

	historyLast int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	rootCmd := &cobra.Command{
		Use:           "bciengine",
		Short:         "SSVEP flicker keyboard display engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runEngineCmd,
	}

	rootCmd.Flags().IntVar(&runColumns, "columns", defaults.Columns, "patch grid columns")
	rootCmd.Flags().Float64Var(&runPadding, "padding-ratio", defaults.PaddingRatio, "gap fraction between patches (0-1)")
	rootCmd.Flags().Float64Var(&runTrialSeconds, "trial-seconds", defaults.TrialSeconds, "fixed trial length in seconds")
	rootCmd.Flags().Float64Var(&runSpeedFactor, "speed-factor", defaults.SpeedFactor, "flicker time scale")
	rootCmd.Flags().IntVar(&runWidth, "width", defaults.Width, "display surface width in pixels")
	rootCmd.Flags().IntVar(&runHeight, "height", defaults.Height, "display surface height in pixels")
	rootCmd.Flags().StringVar(&runCharset, "charset", defaults.Charset, "characters assigned to free patches")
	rootCmd.Flags().StringVar(&runAddr, "addr", defaults.ServerAddr, "command channel listen address")
	rootCmd.Flags().BoolVar(&runDispatch, "dispatch", defaults.Dispatch, "send completed prompts to OS windows")
	rootCmd.Flags().BoolVar(&runPreview, "preview", false, "render the stimulus in the terminal")
	rootCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCtlCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func runEngineCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "columns", &runColumns, fileCfg.Display.Columns)
	applyFloatConfig(cmd, "padding-ratio", &runPadding, fileCfg.Display.PaddingRatio)
	applyFloatConfig(cmd, "trial-seconds", &runTrialSeconds, fileCfg.Display.TrialSeconds)
	applyFloatConfig(cmd, "speed-factor", &runSpeedFactor, fileCfg.Display.SpeedFactor)
	applyIntConfig(cmd, "width", &runWidth, fileCfg.Display.Width)
	applyIntConfig(cmd, "height", &runHeight, fileCfg.Display.Height)
	applyStringConfig(cmd, "charset", &runCharset, fileCfg.Display.Charset)
	applyStringConfig(cmd, "addr", &runAddr, fileCfg.Server.Addr)
	applyBoolConfig(cmd, "dispatch", &runDispatch, fileCfg.Dispatch.Enabled)

	cfg := model.Config{
		Columns:      runColumns,
		PaddingRatio: runPadding,
		TrialSeconds: runTrialSeconds,
		SpeedFactor:  runSpeedFactor,
		Width:        runWidth,
		Height:       runHeight,
		Charset:      runCharset,
		ServerAddr:   runAddr,
		Dispatch:     runDispatch,
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(runLogLevel, runPreview)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open history db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("closing history db", "err", cerr)
		}
	}()
	recorder := store.NewRecorder(st, logger.With("component", "history"))
	defer recorder.Close()

	bag := wordbag.New(cfg.Charset)
	gen := layout.New(layout.Box{
		W: 0,
		N: render.HeaderHeight,
		E: cfg.Width,
		S: cfg.Height,
	}, cfg.Columns, cfg.PaddingRatio)

	var windows appdispatch.WindowLister
	var typist appdispatch.Typist
	if cfg.Dispatch {
		osDispatch := appdispatch.NewOS()
		windows, typist = osDispatch, osDispatch
	} else {
		// Without OS dispatch, completed prompts land in an in-memory
		// fake so trials still run the full protocol.
		fake := appdispatch.NewFake(appdispatch.Window{Title: "discard"})
		windows, typist = fake, fake
	}

	machine := trial.New(bag, gen, windows, typist, logger.With("component", "trial"),
		trial.WithObserver(recorder))

	noise := opensimplex.New(time.Now().UnixNano())
	painter := render.New(cfg.Width, cfg.Height, noise.Eval3)

	// The preview needs the engine for focus feedback and the engine
	// needs a sink; a Func indirection breaks the cycle. previewSink is
	// assigned before the render loop starts.
	var previewSink *preview.Sink
	var sink display.Sink = display.Null{}
	if runPreview {
		sink = display.Func(func(frame *image.RGBA) {
			previewSink.Present(frame)
		})
	}
	eng := engine.New(bag, gen, machine, painter, sink, cfg.TrialSeconds,
		logger.With("component", "engine"),
		engine.WithSpeedFactor(cfg.SpeedFactor))
	if runPreview {
		previewSink = preview.New(eng, logger.With("component", "preview"))
	}

	dispatcher := command.NewDispatcher(eng, logger.With("component", "command"))
	server := command.NewServer(cfg.ServerAddr, dispatcher, logger.With("component", "command"))
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start command server: %w", err)
	}
	defer func() {
		if serr := server.Stop(); serr != nil {
			logger.Error("stopping command server", "err", serr)
		}
	}()

	collector := eeg.New(logger.With("component", "eeg"))
	if err := collector.Start(); err != nil {
		return fmt.Errorf("failed to start data collector: %w", err)
	}
	defer collector.Stop()

	if err := eng.Start(); err != nil {
		return err
	}
	defer eng.Stop()

	if runPreview {
		if err := previewSink.Run(); err != nil {
			return fmt.Errorf("failed to run preview: %w", err)
		}
		return nil
	}

	logger.Info("engine running", "addr", cfg.ServerAddr, "columns", cfg.Columns)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newCtlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctl <command words>",
		Short: "Send one command to a running engine",
		Long: `Send one command over the websocket channel and print the response.

Examples:
  bciengine ctl echo --body "hello"
  bciengine ctl query passed seconds
  bciengine ctl change columns --columns 8
  bciengine ctl append cue sequence --text hello`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCtlCmd,
	}
	cmd.Flags().StringVar(&ctlAddr, "addr", config.Default().ServerAddr, "command channel address")
	cmd.Flags().IntVar(&ctlColumns, "columns", 0, "columns for 'change columns'")
	cmd.Flags().StringVar(&ctlText, "text", "", "cue text for 'append cue sequence'")
	cmd.Flags().StringVar(&ctlBody, "body", "", "payload for 'echo'")
	return cmd
}

func runCtlCmd(cmd *cobra.Command, args []string) error {
	req := map[string]any{"cmd": strings.Join(args, " ")}
	if cmd.Flags().Changed("columns") {
		req["columns"] = ctlColumns
	}
	if ctlText != "" {
		req["text"] = ctlText
	}
	if ctlBody != "" {
		req["body"] = ctlBody
	}

	resp, err := command.SendAndRecv("ws://"+ctlAddr, req)
	if err != nil {
		return err
	}
	for _, key := range []string{"cmd", "status", "error", "passed", "body", "timestamp"} {
		if v, ok := resp[key]; ok {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, v); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent trials and dispatches",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", 20, "number of records per table")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open history db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	trials, err := st.RecentTrials(ctx, historyLast)
	if err != nil {
		return fmt.Errorf("failed to read trials: %w", err)
	}
	if _, err := fmt.Fprintf(out, "Trials (%d):\n", len(trials)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, t := range trials {
		if _, err := fmt.Fprintf(out, "  %s  stage=%s cue=%q index=%d columns=%d patches=%d\n",
			t.StartedAt.Format(time.RFC3339), t.Stage, t.CueChar, t.CueIndex, t.Columns, t.Patches); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	dispatches, err := st.RecentDispatches(ctx, historyLast)
	if err != nil {
		return fmt.Errorf("failed to read dispatches: %w", err)
	}
	if _, err := fmt.Fprintf(out, "Dispatches (%d):\n", len(dispatches)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, d := range dispatches {
		status := "ok"
		if !d.OK {
			status = "failed: " + d.Error
		}
		if _, err := fmt.Fprintf(out, "  %s  target=%q text=%q %s\n",
			d.At.Format(time.RFC3339), d.Target, d.Text, status); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// newLogger builds the process logger. With the preview active, stderr
// is the TUI's terminal, so logs go to a file next to the database.
func newLogger(level string, previewing bool) *log.Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	out := os.Stderr
	if previewing {
		logPath := filepath.Join(filepath.Dir(config.DefaultDBPath()), "bciengine.log")
		if f, ferr := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); ferr == nil {
			out = f
		}
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           parsed,
	})
	return logger
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, fileValue *int) {
	if !cmd.Flags().Changed(name) && fileValue != nil {
		*target = *fileValue
	}
}

func applyFloatConfig(cmd *cobra.Command, name string, target *float64, fileValue *float64) {
	if !cmd.Flags().Changed(name) && fileValue != nil {
		*target = *fileValue
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, fileValue *string) {
	if !cmd.Flags().Changed(name) && fileValue != nil {
		*target = *fileValue
	}
}

func applyBoolConfig(cmd *cobra.Command, name string, target *bool, fileValue *bool) {
	if !cmd.Flags().Changed(name) && fileValue != nil {
		*target = *fileValue
	}
}

func defaultConfigTemplate() string {
	d := config.Default()
	return fmt.Sprintf(`[display]
# columns = %d
# padding-ratio = %g
# trial-seconds = %g
# speed-factor = %g
# width = %d
# height = %d
# charset = %q

[server]
# addr = %q

[dispatch]
# enabled = %t
`, d.Columns, d.PaddingRatio, d.TrialSeconds, d.SpeedFactor, d.Width, d.Height, d.Charset, d.ServerAddr, d.Dispatch)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
