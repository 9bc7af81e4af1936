// Package cmd implements the gridtail command line: it tails a row update stream
// and prints every flush cycle as a table.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/streamgrid"
	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/transport"
)

// Version is set by main.
var Version = "dev"

// envPrefix namespaces environment overrides: GRIDTAIL_URL, GRIDTAIL_MAX_QUEUE_DEPTH.
const envPrefix = "GRIDTAIL"

// Sources understood by --source.
const (
	sourceNATS      = "nats"
	sourceKV        = "kv"
	sourceWebSocket = "ws"
)

var errUnknownSource = errors.New("unknown source")

// Execute runs the root command and exits non-zero on error.
func Execute(ctx context.Context, version string) {
	Version = version
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the gridtail command with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "gridtail",
		Short: "Tail a keyed row update stream as a live table",
		Long: `gridtail connects to a stream of keyed row updates, batches them into
flush windows, reconciles each window against an in-memory table and prints the
resulting changes.

Sources:
  nats  core NATS subjects carrying JSON update messages
  kv    a JetStream key-value bucket (keys are rows, values are field objects)
  ws    a WebSocket endpoint sending one JSON update message per frame

Every flag can also be set through the environment (GRIDTAIL_MAX_QUEUE_DEPTH)
or a .env file in the working directory.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("config", "", "YAML config file (flags override its values)")
	f.String("env-file", ".env", "dotenv file loaded before reading the environment")
	f.String("source", sourceNATS, "stream source: nats, kv or ws")
	f.String("url", "nats://127.0.0.1:4222", "source URL")
	f.StringSlice("subjects", nil, "topic patterns to subscribe to (default all)")
	f.String("bucket", "", "KV bucket name (kv source)")
	f.Bool("create-bucket", false, "create the KV bucket if missing (kv source)")
	f.StringSlice("columns", nil, "columns to show, as field[:Header]")
	f.StringSlice("filter", nil, "row filter, as field:op:value (op: eq, neq, contains, gt, gte, lt, lte)")
	f.Duration("flush-interval", 0, "flush window length (default 100ms)")
	f.Int("max-batch-size", 0, "flush early once this many messages are pending")
	f.Int("max-queue-depth", 0, "pending depth above which superseded updates are dropped")
	f.Int("max-attempts", 0, "reconnect attempts before giving up")
	f.Duration("base-delay", 0, "first reconnect delay")
	f.Duration("max-delay", 0, "reconnect delay cap")
	f.Int64("jitter-seed", 0, "seed for reconnect jitter (0 disables jitter)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("export", "", "write the table as CSV to this file on exit")
	f.String("export-scope", string(streamgrid.ExportAll), "rows to export: all, visible or selected")
	f.String("log-format", "console", "log format: console, json or slog")
	f.BoolP("verbose", "v", false, "debug logging")
	f.Bool("no-color", false, "disable colored log output")

	cobra.CheckErr(v.BindPFlags(f))

	return cmd
}

// initConfig layers .env, environment and flags into v.
func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return nil
}

// buildConfig starts from the config file (or defaults) and applies every flag or
// environment value that was set explicitly.
func buildConfig(v *viper.Viper) (*streamgrid.Config, error) {
	cfg := streamgrid.DefaultConfig()
	if path := v.GetString("config"); path != "" {
		loaded, err := streamgrid.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if v.IsSet("flush-interval") {
		cfg.FlushInterval = v.GetDuration("flush-interval")
	}
	if v.IsSet("max-batch-size") {
		cfg.MaxBatchSize = v.GetInt("max-batch-size")
	}
	if v.IsSet("max-queue-depth") {
		cfg.MaxQueueDepth = v.GetInt("max-queue-depth")
	}
	if v.IsSet("max-attempts") {
		cfg.Reconnect.MaxAttempts = v.GetInt("max-attempts")
	}
	if v.IsSet("base-delay") {
		cfg.Reconnect.BaseDelay = v.GetDuration("base-delay")
	}
	if v.IsSet("max-delay") {
		cfg.Reconnect.MaxDelay = v.GetDuration("max-delay")
	}
	if v.IsSet("jitter-seed") {
		cfg.Reconnect.JitterSeed = v.GetInt64("jitter-seed")
	}
	if v.IsSet("subjects") {
		cfg.Topics = v.GetStringSlice("subjects")
	}
	if v.IsSet("columns") {
		cols, err := parseColumns(v.GetStringSlice("columns"))
		if err != nil {
			return nil, err
		}
		cfg.Columns = cols
	}

	streamgrid.SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func newFactory(v *viper.Viper, cfg *streamgrid.Config) (streamgrid.ConnectionFactory, error) {
	url := v.GetString("url")

	switch source := v.GetString("source"); source {
	case sourceNATS:
		subjects := cfg.Topics
		if len(subjects) == 0 {
			subjects = []string{">"}
		}

		return &transport.NATSFactory{URL: url, Subjects: subjects, Name: "gridtail"}, nil
	case sourceKV:
		bucket := v.GetString("bucket")
		if bucket == "" {
			return nil, fmt.Errorf("%w: --bucket is required for the kv source", streamgrid.ErrInvalidConfig)
		}

		return &transport.KVFactory{URL: url, Bucket: bucket, Create: v.GetBool("create-bucket"), Name: "gridtail"}, nil
	case sourceWebSocket:
		return &transport.WebSocketFactory{URL: url}, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownSource, source)
	}
}

func newLogger(v *viper.Viper, w io.Writer) streamgrid.Logger {
	verbose := v.GetBool("verbose")

	switch v.GetString("log-format") {
	case "json":
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}

		return logging.NewZerologJSON(w, level)
	case "slog":
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		return logging.NewSlogText(w, level)
	default:
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}

		return logging.NewZerologConsole(w, level, v.GetBool("no-color"))
	}
}

func run(ctx context.Context, v *viper.Viper, stdout, stderr io.Writer) error {
	logger := newLogger(v, stderr)

	cfg, err := buildConfig(v)
	if err != nil {
		return err
	}

	factory, err := newFactory(v, cfg)
	if err != nil {
		return err
	}

	criteria, err := parseFilters(v.GetStringSlice("filter"))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	surface := NewConsoleSurface(stdout, cfg.Columns)

	ctrl, err := streamgrid.NewController(cfg, factory, surface,
		streamgrid.WithLogger(logger),
		streamgrid.WithMetrics(streamgrid.NewPrometheusMetrics(reg, "gridtail")),
		streamgrid.WithHooks(&streamgrid.Hooks{
			OnStateChanged: func(_ context.Context, change streamgrid.StateChange) error {
				logger.Info("connection state changed", "from", change.From, "to", change.To)
				return nil
			},
			OnError: func(_ context.Context, err error) error {
				logger.Warn("message dropped", "error", err)
				return nil
			},
		}),
	)
	if err != nil {
		return err
	}

	if len(criteria) > 0 {
		if err := ctrl.Adapter().ApplyFilter(criteria...); err != nil {
			return err
		}
	}

	if addr := v.GetString("metrics-addr"); addr != "" {
		srv, err := newMetricsServer(addr, reg, ctrl, logger)
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		go srv.Serve()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-ctrl.Fatal():
		logger.Error("stream source unavailable", "error", runErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := ctrl.Stop(stopCtx); err != nil {
		logger.Warn("stop incomplete", "error", err)
	}

	if path := v.GetString("export"); path != "" {
		if err := exportTable(ctrl, path, streamgrid.ExportScope(v.GetString("export-scope"))); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("table exported", "path", path, "rows", ctrl.Table().Len())
	}

	d := ctrl.Diagnostics()
	logger.Info("gridtail finished",
		"rows", d.Rows, "version", d.TableVersion, "flushes", d.Flushes,
		"parse_dropped", d.ParseDropped, "merge_dropped", d.MergeDropped)

	return runErr
}

func exportTable(ctrl *streamgrid.Controller, path string, scope streamgrid.ExportScope) error {
	data, err := ctrl.Export(scope)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
