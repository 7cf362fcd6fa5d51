package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/framegraph/internal/cliconfig"
	"github.com/bft-labs/framegraph/pkg/arbiter"
	"github.com/bft-labs/framegraph/pkg/lifecycle"
	"github.com/bft-labs/framegraph/pkg/log"
	"github.com/bft-labs/framegraph/pkg/metrics"
	"github.com/bft-labs/framegraph/pkg/runner"
	"github.com/bft-labs/framegraph/plugins/ratewatcher"
	"github.com/bft-labs/framegraph/plugins/resourcegating"
)

const helpBanner = `
  __                                                  _
 / _|_ __ __ _ _ __ ___   ___  __ _ _ __ __ _ _ __ | |__
| |_| '__/ _' | '_ ' _ \ / _ \/ _' | '__/ _' | '_ \| '_ \
|  _| | | (_| | | | | | |  __/ (_| | | | (_| | |_) | | | |
|_| |_|  \__,_|_| |_| |_|\___|\__, |_|  \__,_| .__/|_| |_|
                              |___/          |_|
`

const helpDescription = `
Run a demo frame graph: several paced generators feed pipeline queues whose
consumers join into one pool, with rate feedback between the stages.

Highlights:
  - Each generator and each pipeline consumer runs on its own goroutine.
  - Bounded queues with an optional adjust policy keep producers in step.
  - Configure via file (TOML or YAML), FRAMEGRAPH_* env vars, or flags.
  - Prometheus metrics on --metrics-addr; --watch-config retunes target_fps live.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  framegraph --senders 4 --frames 1000 --target-fps 120
  framegraph --config $HOME/.framegraph/config.toml --watch-config --metrics-addr :9100
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := log.NewZerologAdapter()

	root := &cobra.Command{
		Use:     "framegraph",
		Short:   "Run a demo frame processing graph",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.framegraph/config.toml), then env, then flags
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			haveFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if haveFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// FRAMEGRAPH_* override the file but not explicitly set flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewConsoleAdapter(os.Stderr, cfg.Level())
			logger.Info("configuration",
				log.Int("senders", cfg.Senders),
				log.Int("frames", cfg.FramesPerSender),
				log.Int("queue_capacity", cfg.QueueCapacity),
				log.Float64("target_fps", cfg.TargetFPS),
				log.String("sink_policy", cfg.SinkPolicy),
				log.Duration("stage_cost", cfg.StageCost),
			)

			var watchPath string
			if cfg.WatchConfig {
				if haveFile {
					watchPath = cfgFile
				} else {
					logger.Warn("watch-config set but no config file found", log.String("path", cfgFile))
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, watchPath, logger, os.Stdout)
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.framegraph/config.toml)")
	root.Flags().IntVar(&cfg.Senders, "senders", cfg.Senders, "number of generator trees joined by the pool")
	root.Flags().IntVar(&cfg.FramesPerSender, "frames", cfg.FramesPerSender, "frames emitted by each generator")
	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "pipeline queue capacity (0 = unbounded)")
	root.Flags().Float64Var(&cfg.TargetFPS, "target-fps", cfg.TargetFPS, "pipeline consumer target rate (0 = unthrottled)")
	root.Flags().StringVar(&cfg.SinkPolicy, "sink-policy", cfg.SinkPolicy, "pipeline sink policy: none or adjust")
	root.Flags().DurationVar(&cfg.StageCost, "stage-cost", cfg.StageCost, "simulated per-frame cost of the heavy stage")
	root.Flags().Float64Var(&cfg.GateThreshold, "gate-threshold", cfg.GateThreshold, "halve the consumer rates above this many goroutines per CPU (0 = off)")

	root.Flags().IntVar(&cfg.RateBufferSize, "rate-buffer", cfg.RateBufferSize, "samples kept per rate measurement")
	root.Flags().DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "pipeline consumer wait before re-checking exhaustion")
	if err := root.Flags().MarkHidden("poll-timeout"); err != nil {
		logger.Info("failed to hide poll-timeout flag", log.Err(err))
	}

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "apply target_fps changes from the config file while running")
	root.Flags().BoolVar(&cfg.Display, "display", cfg.Display, "print every joined frame set")

	if err := root.Execute(); err != nil {
		logger.Error("framegraph", log.Err(err))
		os.Exit(1)
	}
}

// run builds the demo graph, runs it to completion and logs a summary.
func run(ctx context.Context, cfg cliconfig.Config, watchPath string, logger log.Logger, out io.Writer) error {
	collector := metrics.NewCollector("framegraph")

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           collector.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", log.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", log.String("addr", cfg.MetricsAddr))
	}

	workers := lifecycle.NewManager(logger, nil)
	var arb *arbiter.Arbiter
	if cfg.Display {
		arb = arbiter.New(workers, arbiter.WithLogger(logger))
	}

	p := buildPipeline(cfg, logger, collector, arb, out)

	opts := append(p.runnerOptions(),
		runner.WithLogger(logger),
		runner.WithLifecycle(workers),
	)
	if arb != nil {
		opts = append(opts, runner.WithArbiter(arb))
	}
	if cfg.GateThreshold > 0 {
		gate := resourcegating.DefaultConfig()
		gate.Threshold = cfg.GateThreshold
		opts = append(opts, resourcegating.WithResourceGating(gate))
	}
	if watchPath != "" {
		opts = append(opts,
			runner.WithConfigPath(watchPath),
			ratewatcher.WithDefaultRateWatcher(),
		)
	}

	r, err := runner.New(opts...)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	err = r.Wait()
	p.logSummary(logger)
	if err != nil {
		return fmt.Errorf("run %s: %w", r.RunID(), err)
	}
	return nil
}
