package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

// Tool name constants.
const (
	ToolNameMatch    = "clonebench_match"
	ToolNameEvaluate = "clonebench_evaluate"
)

// Input limits and defaults.
const (
	// MaxInlinePairs caps each side of an inline match request.
	MaxInlinePairs = 100_000

	defaultThreshold = 0.7
)

// Sentinel errors for tool input validation.
var (
	ErrNoReferences     = errors.New("references parameter is required and must not be empty")
	ErrTooManyPairs     = errors.New("too many inline pairs")
	ErrEmptyPath        = errors.New("benchmark_path and detections_path are required")
	ErrPathNotAbsolute  = errors.New("paths must be absolute")
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")
)

// PairInput is one clone pair in a match request.
type PairInput struct {
	File1  string `json:"file1"             jsonschema:"file identifier of the first fragment"`
	Start1 int    `json:"start1"            jsonschema:"first line of the first fragment (0-based)"`
	End1   int    `json:"end1"              jsonschema:"last line of the first fragment (inclusive)"`
	File2  string `json:"file2"             jsonschema:"file identifier of the second fragment"`
	Start2 int    `json:"start2"            jsonschema:"first line of the second fragment (0-based)"`
	End2   int    `json:"end2"              jsonschema:"last line of the second fragment (inclusive)"`
	TaskID string `json:"task_id,omitempty" jsonschema:"task group; pairs only match within the same task"`
}

// MatchInput is the input schema for the clonebench_match tool.
type MatchInput struct {
	Candidates  []PairInput `json:"candidates"             jsonschema:"detector clone pairs in detector output order"`
	EmptyPolicy string      `json:"empty_policy,omitempty" jsonschema:"match or never: whether two empty fragments match (default: match)"`
	References  []PairInput `json:"references"             jsonschema:"reference clone pairs in benchmark order"`
	Threshold   float64     `json:"threshold,omitempty"    jsonschema:"minimum coverage ratio in (0, 1] (default: 0.7)"`
}

// EvaluateInput is the input schema for the clonebench_evaluate tool.
type EvaluateInput struct {
	BaseDir        string  `json:"base_dir,omitempty"     jsonschema:"directory anchoring relative benchmark paths (default: the benchmark's directory)"`
	BenchmarkPath  string  `json:"benchmark_path"         jsonschema:"absolute path to the benchmark CSV"`
	DetectionsPath string  `json:"detections_path"        jsonschema:"absolute path to the detector SQLite database or CSV"`
	EmptyPolicy    string  `json:"empty_policy,omitempty" jsonschema:"match or never (default: match)"`
	Source         string  `json:"source,omitempty"       jsonschema:"auto, sqlite or csv (default: auto)"`
	Table          string  `json:"table,omitempty"        jsonschema:"detector result table (default: detected_clones)"`
	Threshold      float64 `json:"threshold,omitempty"    jsonschema:"minimum coverage ratio in (0, 1] (default: 0.7)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleMatch(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input MatchInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	matcher, err := matcherFor(input.Threshold, input.EmptyPolicy)
	if err != nil {
		return errorResult(err)
	}

	if len(input.References) == 0 {
		return errorResult(ErrNoReferences)
	}

	if n := max(len(input.References), len(input.Candidates)); n > MaxInlinePairs {
		return errorResult(fmt.Errorf("%w: %d (max %d)", ErrTooManyPairs, n, MaxInlinePairs))
	}

	references, candidates := toPairs(input.References), toPairs(input.Candidates)
	s.metrics.RecordPairs(ctx, ToolNameMatch, len(references)+len(candidates))

	res, err := s.eval.Score(ctx, matcher, references, candidates)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(res)
}

func (s *Server) handleEvaluate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input EvaluateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.BenchmarkPath == "" || input.DetectionsPath == "" {
		return errorResult(ErrEmptyPath)
	}

	if !filepath.IsAbs(input.BenchmarkPath) || !filepath.IsAbs(input.DetectionsPath) {
		return errorResult(ErrPathNotAbsolute)
	}

	matcher, err := matcherFor(input.Threshold, input.EmptyPolicy)
	if err != nil {
		return errorResult(err)
	}

	res, err := s.eval.Run(ctx, evaluate.Request{
		BenchmarkPath:  input.BenchmarkPath,
		BaseDir:        input.BaseDir,
		DetectionsPath: input.DetectionsPath,
		Source:         input.Source,
		Table:          input.Table,
		Threshold:      matcher.Threshold,
		EmptyPolicy:    matcher.EmptyPolicy,
		Workers:        1,
	})
	if err != nil {
		return errorResult(err)
	}

	s.metrics.RecordPairs(ctx, ToolNameEvaluate, res.References+res.Candidates)

	return jsonResult(res)
}

func matcherFor(threshold float64, emptyPolicy string) (cmatch.Matcher, error) {
	if threshold == 0 {
		threshold = defaultThreshold
	}

	if threshold < 0 || threshold > 1 {
		return cmatch.Matcher{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	policy, err := cmatch.ParseEmptyPolicy(emptyPolicy)
	if err != nil {
		return cmatch.Matcher{}, err
	}

	return cmatch.Matcher{Threshold: threshold, EmptyPolicy: policy}, nil
}

func toPairs(in []PairInput) []cmatch.ClonePair {
	out := make([]cmatch.ClonePair, len(in))

	for i, p := range in {
		out[i] = cmatch.ClonePair{
			A: cmatch.Fragment{File: p.File1, Start: p.Start1, End: p.End1},
			B: cmatch.Fragment{File: p.File2, Start: p.Start2, End: p.End2},
		}

		if p.TaskID != "" {
			out[i].Group = p.TaskID
		}
	}

	return out
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
