package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/Hyphaeic/radixrunner-wasm/config"
	"github.com/Hyphaeic/radixrunner-wasm/datarecording"
	"github.com/Hyphaeic/radixrunner-wasm/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the handshake and monitor the counter until interrupted.",
	Long: "`run` loads a computation module from --path, --url, or the " +
		"built-in ticker, verifies that the region is shared, and prints " +
		"the tick rate once per rate interval.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runSession(ctx, cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "YAML configuration file")
	f.StringSlice("env-file", nil, "dotenv files to load, defaults to ./.env")
	f.String("path", "", "computation module file")
	f.String("url", "", "computation module URL")
	f.Bool("builtin", false, "use the built-in ticker module")
	f.Int("pages", 0, "region size in 64 KiB pages")
	f.Duration("verify-delay", 0, "delay before the first head check")
	f.Int("verify-attempts", 0, "number of head checks")
	f.Int("fps", 0, "monitor frames per second")
	f.Duration("rate-interval", 0, "time between rate reports")
	f.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	f.Int("monitor-port", 0, "status server port, 0 picks a free port")
	f.Bool("monitor", false, "serve status over HTTP")
	f.Bool("open-browser", false, "open the status server in a browser")
	f.String("record", "", "record telemetry into this SQLite file")
	f.String("record-backend", "", "recorder backend, sqlite or clickhouse")
	f.String("record-dsn", "", "ClickHouse DSN")
	f.String("trace", "", "write handshake stage spans into this CSV file")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()

	path, _ := f.GetString("config")
	envFiles, _ := f.GetStringSlice("env-file")

	cfg, err := config.Load(path, envFiles...)
	if err != nil {
		return nil, err
	}

	if f.Changed("path") {
		cfg.Payload.Path, _ = f.GetString("path")
	}

	if f.Changed("url") {
		cfg.Payload.URL, _ = f.GetString("url")
	}

	if f.Changed("builtin") {
		cfg.Payload.Builtin, _ = f.GetBool("builtin")
	}

	if cfg.Payload.Builtin {
		cfg.Payload.Path = ""
		cfg.Payload.URL = ""
	}

	if f.Changed("pages") {
		cfg.Pages, _ = f.GetInt("pages")
	}

	if f.Changed("verify-delay") {
		cfg.Verify.Delay, _ = f.GetDuration("verify-delay")
	}

	if f.Changed("verify-attempts") {
		cfg.Verify.Attempts, _ = f.GetInt("verify-attempts")
	}

	if f.Changed("fps") {
		cfg.Monitor.FPS, _ = f.GetInt("fps")
	}

	if f.Changed("rate-interval") {
		cfg.Monitor.RateInterval, _ = f.GetDuration("rate-interval")
	}

	if f.Changed("duration") {
		cfg.Duration, _ = f.GetDuration("duration")
	}

	if f.Changed("monitor") {
		cfg.Server.Enabled, _ = f.GetBool("monitor")
	}

	if f.Changed("monitor-port") {
		cfg.Server.Enabled = true
		cfg.Server.Port, _ = f.GetInt("monitor-port")
	}

	if f.Changed("open-browser") {
		cfg.Server.OpenBrowser, _ = f.GetBool("open-browser")
	}

	if f.Changed("record") {
		cfg.Record.Backend = datarecording.BackendSQLite
		cfg.Record.Path, _ = f.GetString("record")
	}

	if f.Changed("record-backend") {
		cfg.Record.Backend, _ = f.GetString("record-backend")
	}

	if f.Changed("record-dsn") {
		cfg.Record.DSN, _ = f.GetString("record-dsn")
	}

	if f.Changed("trace") {
		cfg.Record.TracePath, _ = f.GetString("trace")
	}

	return cfg, cfg.Validate()
}

func runSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := log.New(os.Stderr, "radixrunner: ", log.LstdFlags|log.Lmicroseconds)

	s := session.MakeBuilder().
		WithConfig(cfg).
		WithLogger(logger).
		Build()
	defer s.Terminate()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "verifying for up to %s\n", cfg.VerifyPolicy().Budget())

	result, err := s.Start(ctx)
	fmt.Fprintln(out, s.Status().Status)

	if err != nil {
		return err
	}

	fmt.Fprintf(out, "session %s verified, head 0x%016x after %d check(s)\n",
		s.ID(), result.Head, result.Checks)

	for _, span := range s.Stages().Spans() {
		fmt.Fprintf(out, "  %-14s %v\n", span.State, span.Duration())
	}

	if cfg.Server.OpenBrowser && s.Server() != nil {
		if err := browser.OpenURL(s.Server().URL()); err != nil {
			logger.Printf("open browser: %v", err)
		}
	}

	s.Wait(ctx)

	st := s.Status()
	fmt.Fprintf(out, "stopped at 0x%016x after %d frames, %d anomalies\n",
		st.Head, st.Stats.Frames, st.Stats.Anomalies)

	return nil
}
