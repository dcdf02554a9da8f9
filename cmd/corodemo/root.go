package main

import (
	"context"
	"errors"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yueyoum/coro"
	"github.com/yueyoum/coro/internal/config"
)

var rootOpts = struct {
	config   string
	logLevel string
	trace    bool
}{}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "corodemo",
		Short:        "Run the coro demo programs",
		Long:         "corodemo runs small programs on a single-threaded cooperative scheduler.",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootOpts.config, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	flags.StringVar(&rootOpts.logLevel, "log-level", "", "log level, overrides log.level")
	flags.BoolVar(&rootOpts.trace, "trace", false, "log every task switch, overrides trace")

	rootCmd.AddCommand(newBasicCmd(), newEventsCmd(), newEchoCmd())
	return rootCmd
}

// newInjector registers the services shared by every command:
// the configuration, a logger built from it and a scheduler using both.
func newInjector(cmd *cobra.Command) (*do.Injector, error) {
	cfg, err := config.Load(rootOpts.config)
	if err != nil {
		return nil, err
	}
	if rootOpts.logLevel != "" {
		cfg.Log.Level = rootOpts.logLevel
	}
	if cmd.Flags().Changed("trace") {
		cfg.Trace = rootOpts.trace
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	i := do.New()

	do.ProvideValue(i, cfg)

	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		return do.MustInvoke[*config.Config](i).Logger()
	})

	do.Provide(i, func(i *do.Injector) (*coro.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		opts := []coro.Option{
			coro.WithName(cmd.Name()),
			coro.WithLogger(logger),
		}
		if cfg.Trace {
			opts = append(opts, coro.WithTracer(coro.NewZapTracer(logger.Named("trace"))))
		}
		return coro.NewScheduler(opts...), nil
	})

	return i, nil
}

// runScheduler runs the scheduler under the context of cmd.
func runScheduler(cmd *cobra.Command, i *do.Injector) error {
	return serve(cmd, i, do.MustInvoke[*coro.Scheduler](i).Run)
}

// serve calls run, which drives the scheduler, under the context of cmd
// bounded by run.timeout.
// Running out of time, or being interrupted, is a normal way to stop.
func serve(cmd *cobra.Command, i *do.Injector, run func(ctx context.Context) error) error {
	cfg := do.MustInvoke[*config.Config](i)
	s := do.MustInvoke[*coro.Scheduler](i)
	logger := do.MustInvoke[*zap.Logger](i)
	defer logger.Sync()

	ctx := cmd.Context()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Run.Timeout))
		defer cancel()
	}

	err := run(ctx)

	st := s.Stats()
	logger.Info("scheduler finished",
		zap.Int("spawned", st.Spawned),
		zap.Int("dispatched", st.Dispatched),
		zap.Int("destroyed", st.Destroyed),
	)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
