// Package mcp implements a Model Context Protocol server exposing clonebench
// matching and evaluation as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
	"github.com/Sumatoshi-tech/clonebench/pkg/observability"
	"github.com/Sumatoshi-tech/clonebench/pkg/version"
)

const (
	serverName = "clonebench"

	toolCount = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics records tool calls. Nil disables them.
	Metrics *observability.ToolMetrics

	// EvalMetrics records evaluation outcomes. Nil disables them.
	EvalMetrics *observability.EvalMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with clonebench tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	mu      sync.RWMutex
	tools   []string
	metrics *observability.ToolMetrics
	tracer  trace.Tracer
	eval    *evaluate.Service
}

// NewServer creates a new MCP server with all clonebench tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:   inner,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		eval: evaluate.NewService(evaluate.Deps{
			Logger:  deps.Logger,
			Tracer:  deps.Tracer,
			Metrics: deps.EvalMetrics,
		}),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameMatch,
		Description: matchToolDescription,
	}, withMetrics(s.metrics, ToolNameMatch, withTracing(s.tracer, ToolNameMatch, s.handleMatch)))

	s.trackTool(ToolNameMatch)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameEvaluate,
		Description: evaluateToolDescription,
	}, withMetrics(s.metrics, ToolNameEvaluate, withTracing(s.tracer, ToolNameEvaluate, s.handleEvaluate)))

	s.trackTool(ToolNameEvaluate)
}

const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the key of the trace id line appended to sampled responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps a tool handler in a span and appends the trace id to
// the response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps a tool handler to record its call count, status and duration.
func withMetrics[Input any](
	metrics *observability.ToolMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		end := metrics.Begin(ctx, toolName)

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		end(status)

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	matchToolDescription = "Match detector clone pairs against reference clone pairs with the c-match " +
		"coverage criterion and score them (TP, FP, FN, precision, recall, F1). " +
		"Accepts inline pairs with 0-based inclusive line ranges."

	evaluateToolDescription = "Evaluate a clone detector's output file (SQLite database or CSV) " +
		"against a benchmark CSV and return the full scored result with per-task metrics."
)
