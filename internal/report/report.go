// Package report renders evaluation results as text, JSON, YAML or an HTML
// chart page.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

// ErrUnknownFormat is returned for a format not in Formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatPlot}

const yamlIndent = 2

// Options tune the human-readable output. Structured formats ignore them
// and always carry every miss.
type Options struct {
	NoColor bool
	// MaxMisses caps the miss table of the text report. Zero hides it.
	MaxMisses int
}

// Render writes res to w in the given format.
func Render(w io.Writer, res *evaluate.Result, format string, opts Options) error {
	switch format {
	case FormatText, "":
		return renderText(w, res, opts)
	case FormatJSON:
		return renderJSON(w, res)
	case FormatYAML:
		return renderYAML(w, res)
	case FormatPlot:
		return renderPlot(w, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderJSON(w io.Writer, res *evaluate.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(res)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, res *evaluate.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(res)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	closeErr := enc.Close()
	if closeErr != nil {
		return fmt.Errorf("encode yaml: %w", closeErr)
	}

	return nil
}
