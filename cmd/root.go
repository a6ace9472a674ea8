package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/docloom-insights/internal/config"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
	"github.com/KaramelBytes/docloom-insights/internal/insights/middleware"
	"github.com/KaramelBytes/docloom-insights/internal/logging"
	"github.com/KaramelBytes/docloom-insights/internal/parser"
)

var (
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "docloom-insights",
	Short: "Descriptive statistics for tabular uploads",
	Long: `docloom-insights reads CSV, TSV and XLSX datasets and reports per-column
means, z-score anomalies and pairwise Pearson correlations, either over HTTP
(serve) or directly from the command line (analyze, analyze-batch).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.docloom-insights/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log encoding: json|console (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	if debug {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
}

// currentConfig returns the loaded config, or defaults when loading failed.
func currentConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		ListenAddr:         ":8000",
		MaxUploadMB:        10,
		ReadTimeoutSec:     30,
		WriteTimeoutSec:    30,
		ShutdownTimeoutSec: 10,
		ZThreshold:         3.0,
		DecimalSeparator:   ".",
		LogLevel:           "info",
		LogFormat:          "json",
		ServiceName:        "docloom-insights",
	}
}

func newLogger(c *cfgpkg.Global) (*zap.Logger, error) {
	return logging.New(c.LogLevel, c.LogFormat)
}

// newService wires the generator with logging, tracing and metrics. Spans and
// instruments go to the global OpenTelemetry providers, which are no-ops
// unless an SDK is installed.
func newService(c *cfgpkg.Global, opt parser.Options, logger *zap.Logger) (insights.Service, error) {
	name := c.ServiceName
	if name == "" {
		name = "docloom-insights"
	}
	svc := insights.ApplyMiddleware(
		insights.NewGenerator(opt),
		middleware.Logging(logger.Sugar()),
		middleware.Tracing(otel.Tracer(name)),
	)
	return middleware.NewOTelMetricsMiddleware(svc, otel.Meter(name))
}
