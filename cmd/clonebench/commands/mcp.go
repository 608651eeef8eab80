package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clonebench/internal/mcp"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(g *GlobalOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes clonebench as tools that AI agents can discover and invoke:
  - clonebench_match: score inline candidate pairs against inline reference pairs
  - clonebench_evaluate: evaluate a detector output file against a benchmark CSV`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}

			// Stdout carries the protocol, so logs are always JSON on stderr.
			cfg.Logging.Format = "json"
			if debug {
				cfg.Logging.Level = "debug"
			}

			rt, err := start(cfg, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer rt.close()

			toolMetrics, err := observability.NewToolMetrics(rt.providers.Meter)
			if err != nil {
				return err
			}

			evalMetrics, err := observability.NewEvalMetrics(rt.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:      rt.logger(),
				Metrics:     toolMetrics,
				EvalMetrics: evalMetrics,
				Tracer:      rt.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and trace sampling")

	return cmd
}
