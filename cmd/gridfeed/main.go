// Package main provides gridfeed, a synthetic row update publisher for trying
// gridtail without a real data source.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arloliu/streamgrid/internal/feed"
	"github.com/arloliu/streamgrid/internal/kvutil"
	"github.com/arloliu/streamgrid/internal/logging"
)

type options struct {
	url         string
	embedded    bool
	port        int
	topic       string
	bucket      string
	keys        int
	rate        float64
	removeRatio float64
	hotPercent  float64
	seed        uint64
	verbose     bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "gridfeed:", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gridfeed",
		Short: "Publish synthetic row updates to NATS",
		Long: `gridfeed publishes randomly generated row updates and removes.

With --bucket the rows are written to a JetStream KV bucket instead of core NATS
subjects. With --embedded an in-process NATS server is started and its URL printed,
so gridtail can be pointed at it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", nats.DefaultURL, "NATS server URL")
	f.BoolVar(&opts.embedded, "embedded", false, "start an embedded NATS server")
	f.IntVar(&opts.port, "port", 4222, "embedded server port (-1 for random)")
	f.StringVar(&opts.topic, "topic", "grid.positions", "subject to publish on")
	f.StringVar(&opts.bucket, "bucket", "", "publish to this KV bucket instead of a subject")
	f.IntVar(&opts.keys, "keys", 100, "number of distinct rows")
	f.Float64Var(&opts.rate, "rate", 50, "messages per second")
	f.Float64Var(&opts.removeRatio, "remove-ratio", 0.05, "share of messages that remove their row")
	f.Float64Var(&opts.hotPercent, "hot-percent", 0, "share of hot keys receiving most updates (0 for uniform)")
	f.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := logging.NewZerologConsole(os.Stderr, level, false)

	url := opts.url
	if opts.embedded {
		dir, err := os.MkdirTemp("", "gridfeed-")
		if err != nil {
			return err
		}
		defer func() { _ = os.RemoveAll(dir) }()

		srv, err := feed.StartServer("127.0.0.1", opts.port, filepath.Join(dir, "jetstream"))
		if err != nil {
			return err
		}
		defer func() {
			srv.Shutdown()
			srv.WaitForShutdown()
		}()
		url = srv.ClientURL()
		fmt.Fprintf(os.Stdout, "NATS_URL=%s\n", url)
	}

	nc, err := nats.Connect(url, nats.Name("gridfeed"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer nc.Close()

	var publisher feed.Publisher = feed.NewNATSPublisher(nc)
	if opts.bucket != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			return err
		}
		kv, err := kvutil.OpenBucket(ctx, js, jetstream.KeyValueConfig{
			Bucket:  opts.bucket,
			Storage: jetstream.MemoryStorage,
		}, true, 3)
		if err != nil {
			return err
		}
		publisher = feed.NewKVPublisher(kv)
	}

	var weights feed.WeightGenerator = feed.UniformWeightGenerator{}
	if opts.hotPercent > 0 {
		weights = feed.NewHotSetWeightGenerator(opts.hotPercent, 0, 0)
	}

	producer, err := feed.NewProducer(feed.Config{
		Topic:       opts.topic,
		Keys:        opts.keys,
		Rate:        opts.rate,
		RemoveRatio: opts.removeRatio,
		Seed:        opts.seed,
		Weights:     weights,
	}, publisher, logger)
	if err != nil {
		return err
	}

	producer.Start(ctx)

	return nil
}
