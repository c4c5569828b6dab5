package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"dreammover/internal/config"
	"dreammover/internal/core"
	"dreammover/internal/platform/logger"
	platformotel "dreammover/internal/platform/otel"
)

const serviceName = "dreammover"

const (
	metricsPrometheus = "prometheus"
	metricsExpvar     = "expvar"
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("reported")

type app struct {
	environ map[string]string
	stdout  io.Writer
	stderr  io.Writer

	logLevel    string
	metricsDump bool
	metricsKind string
	traceJSON   string
	viralSeed   uint64

	registry *prometheus.Registry
	expvar   *core.ExpvarMetricsRecorder
	svc      *core.Service
	closers  []func() error
}

// Execute runs the CLI against the process environment and returns the exit code.
func Execute() int {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	return a.run(context.Background(), os.Args[1:])
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	err := root.ExecuteContext(ctx)
	a.finish()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dreammover",
		Short:         "Plan vetting and rite governance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug|info|warn|error); overrides DREAMMOVER_LOG_LEVEL")
	root.PersistentFlags().BoolVar(&a.metricsDump, "metrics-dump", false, "write metrics to stderr on exit")
	root.PersistentFlags().StringVar(&a.metricsKind, "metrics", metricsPrometheus, "metrics recorder (prometheus|expvar)")
	root.PersistentFlags().StringVar(&a.traceJSON, "trace-json", "", "write spans as JSON lines to this file (- for stderr) instead of OTLP")

	root.AddCommand(
		vetCmd(a),
		validatePlansCmd(a),
		marketplaceCmd(a),
		tierCmd(a),
		collabCmd(a),
		auditCmd(a),
		feedbackCmd(a),
		viralCmd(a),
		loreCmd(a),
	)
	return root
}

func (a *app) loadConfig() (config.Config, error) {
	if a.environ != nil {
		return config.LoadFrom(a.environ)
	}
	return config.Load()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log := logger.New(level, cfg.Log.Format, a.stderr)

	ctx := cmd.Context()
	tracer, err := a.tracer(ctx, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	recorder, err := a.recorder()
	if err != nil {
		return err
	}
	opts := []core.Option{
		core.WithLogger(log),
		core.WithMetricsRecorder(recorder),
		core.WithTracer(tracer),
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		opts = append(opts, core.WithViralSeed(a.viralSeed))
	}

	svc, closeFn, err := core.NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	a.svc = svc
	a.closers = append(a.closers, closeFn)
	return nil
}

func (a *app) tracer(ctx context.Context, endpoint string) (core.Tracer, error) {
	switch a.traceJSON {
	case "":
	case "-":
		return core.NewJSONTracer(a.stderr), nil
	default:
		f, err := os.OpenFile(a.traceJSON, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		return core.NewJSONTracer(f), nil
	}
	tp, shutdown, err := platformotel.Setup(ctx, serviceName, endpoint)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	return core.NewOTelTracer(tp), nil
}

func (a *app) recorder() (core.MetricsRecorder, error) {
	switch a.metricsKind {
	case "", metricsPrometheus:
		a.registry = prometheus.NewRegistry()
		return core.NewPrometheusMetricsRecorder(a.registry), nil
	case metricsExpvar:
		a.expvar = core.NewExpvarMetricsRecorder("")
		return a.expvar, nil
	default:
		return nil, fmt.Errorf("unknown metrics recorder %q", a.metricsKind)
	}
}

// finish dumps metrics when requested and releases resources in reverse order.
func (a *app) finish() {
	if a.metricsDump {
		if err := a.dumpMetrics(); err != nil {
			fmt.Fprintf(a.stderr, "metrics dump: %v\n", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(a.stderr, "close: %v\n", err)
		}
	}
	a.closers = nil
}

func (a *app) dumpMetrics() error {
	if a.expvar != nil {
		return writeJSON(a.stderr, a.expvar.Snapshot())
	}
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.stderr, mf); err != nil {
			return err
		}
	}
	return nil
}
