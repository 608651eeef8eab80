// Package commands implements the clonebench CLI commands.
package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/pkg/config"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
	"github.com/Sumatoshi-tech/clonebench/pkg/version"
)

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	g := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "clonebench",
		Short: "Clone detector benchmark toolkit",
		Long: `clonebench evaluates code clone detectors against a reference benchmark
with the c-match coverage criterion.

Commands:
  evaluate  Score detector output against a benchmark
  ingest    Load a detector CSV into a SQLite result store
  build     Build a benchmark from a Google Code Jam export
  detect    Run the line-set pseudo detector over a benchmark
  mcp       Serve matching and evaluation over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "Config file (default: ./clonebench.yaml, ./config/, /etc/clonebench/)")
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&g.LogJSON, "log-json", false, "Emit JSON logs")

	rootCmd.AddCommand(
		NewEvaluateCommand(g),
		NewIngestCommand(g),
		NewBuildCommand(g),
		NewDetectCommand(g),
		NewMCPCommand(g),
	)

	return rootCmd
}

// runtime is the per-invocation state every command starts from.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
}

func (rt *runtime) logger() *slog.Logger {
	return rt.providers.Logger
}

// close flushes telemetry; a failed flush is only logged.
func (rt *runtime) close() {
	shutdownErr := rt.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		rt.logger().Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func (g *GlobalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}

	if cmd.Flags().Changed("log-json") {
		cfg.Logging.Format = "text"
		if g.LogJSON {
			cfg.Logging.Format = "json"
		}
	}

	return cfg, nil
}

// start validates cfg and initialises observability for one command run.
func start(cfg *config.Config, mode observability.AppMode) (*runtime, error) {
	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	obsCfg, err := observabilityConfig(cfg, mode)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, providers: providers}, nil
}

func observabilityConfig(cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.PrometheusTextfile = cfg.Observability.PrometheusTextfile
	obsCfg.LogJSON = strings.EqualFold(cfg.Logging.Format, "json")

	level, err := observability.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return obsCfg, err
	}

	obsCfg.LogLevel = level
	obsCfg.DebugTrace = level <= slog.LevelDebug

	return obsCfg, nil
}
