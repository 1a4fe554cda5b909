package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/relay/internal/config"
	"github.com/dshills/relay/internal/event"
	"github.com/dshills/relay/internal/logging"
	"github.com/dshills/relay/internal/loop"
	"github.com/dshills/relay/internal/luabridge"
	"github.com/dshills/relay/internal/metrics"
	"github.com/dshills/relay/internal/trace"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	configPath  string
	watch       bool
	trace       bool
	filter      string
	payloads    bool
	metricsAddr string
}

func newRunCommand() *cobra.Command {
	return (&runOptions{}).command()
}

// command builds the run command bound to o.
func (o *runOptions) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] script.lua...",
		Short: "Run Lua collaborators on a shared bus",
		Long: `Load each script as a collaborator named after its file and run the
event loop. Without --watch or --metrics-addr the command exits once no event
is queued and no request is waiting for replies.`,
		Example: `
  # Run two collaborators and trace every delivery
  relay run --trace editor.lua saver.lua

  # Only trace did events, expose metrics and keep running
  relay run --trace --filter 'did*' --metrics-addr :9100 *.lua`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.run(ctx, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.configPath, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	flags.BoolVarP(&o.watch, "watch", "w", false, "reload the configuration file on change and run until interrupted")
	flags.BoolVarP(&o.trace, "trace", "t", false, "print every bus action to stdout")
	flags.StringVar(&o.filter, "filter", "", "only trace events matching this glob")
	flags.BoolVar(&o.payloads, "payloads", false, "include payloads in trace output")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// apply layers command line flags over the loaded configuration.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("trace") {
		cfg.Trace.Enabled = o.trace
	}
	if flags.Changed("filter") {
		cfg.Trace.Filter = o.filter
	}
	if flags.Changed("payloads") {
		cfg.Trace.Payloads = o.payloads
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = o.metricsAddr
	}
}

// effective returns a copy of loaded with the command line flags applied.
// loaded itself is left as read from the file.
func (o *runOptions) effective(cmd *cobra.Command, loaded *config.Config) (*config.Config, error) {
	cfg := loaded.Copy()
	o.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

func (o *runOptions) run(ctx context.Context, cmd *cobra.Command, scripts []string) error {
	loaded, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	cfg, err := o.effective(cmd, loaded)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	log := logger.WithField("component", "relay")

	host := loop.New(loop.WithLogger(log))
	defer host.Close()

	bus := event.NewBus(host, append(cfg.BusOptions(), event.WithLogger(logger.WithField("component", "event")))...)

	if cfg.Trace.Enabled {
		tracer := trace.New(cmd.OutOrStdout(),
			trace.WithFilter(cfg.Trace.Filter),
			trace.WithColor(trace.ColorEnabled(cfg.Trace.Color, os.Stdout)),
			trace.WithPayloads(cfg.Trace.Payloads))
		bus.AddInspector(tracer.Inspect)
	}

	serving := false
	if cfg.Metrics.Enabled {
		stopServer, err := serveMetrics(bus, cfg.Metrics, logger, log)
		if err != nil {
			return err
		}
		defer stopServer()
		serving = true
	}

	for _, path := range scripts {
		c := luabridge.New(bus, collaboratorName(path), luabridge.WithLogger(log))
		defer c.Close()
		if err := c.DoFile(path); err != nil {
			return err
		}
	}

	if o.watch && o.configPath != "" {
		watcher, err := config.NewWatcher(o.configPath, func(next *config.Config) {
			cfg, err := o.effective(cmd, next)
			if err != nil {
				log.WithError(err).Warn("ignoring configuration change")
				return
			}
			host.NextTick(func() { reconfigure(bus, logger, cfg) })
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
		serving = true
	}

	log.WithField("collaborators", len(scripts)).Info("running")
	if serving {
		err = host.Run(ctx)
	} else {
		err = host.RunUntilIdle(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := bus.Stats()
	log.WithFields(logrus.Fields{
		"published": stats.EventsPublished,
		"delivered": stats.EventsDelivered,
		"errors":    stats.HandlerErrors,
		"cycles":    stats.Cycles,
		"nodes":     stats.IndexNodes,
	}).Info("stopped")
	return nil
}

// serveMetrics instruments bus and serves the registry over HTTP. The
// returned function shuts the server down.
func serveMetrics(bus event.Bus, cfg config.MetricsConfig, logger *logrus.Logger, log logrus.FieldLogger) (func(), error) {
	reg := prometheus.NewRegistry()
	collector := metrics.New(reg, cfg.Namespace)
	bus.AddInspector(collector.Inspect)
	bus.SetErrorHandler(collector.WrapErrorHandler(event.LogErrorHandler(logger.WithField("component", "event"))))

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, errors.Wrap(err, "metrics listener")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("address", ln.Addr().String()).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

// reconfigure applies the settings that can change while running.
func reconfigure(bus event.Bus, logger *logrus.Logger, cfg *config.Config) {
	bus.SetPendingDidTimeout(cfg.Bus.PendingDidTimeout.Std())
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	logging.SetRevealPayloads(cfg.Logging.RevealPayloads)
}

// collaboratorName derives a collaborator name from a script path.
func collaboratorName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
