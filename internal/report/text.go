package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
	"github.com/Sumatoshi-tech/clonebench/pkg/cmatch"
)

const (
	scoreThresholdHigh   = 0.8
	scoreThresholdMedium = 0.6
	noneLabel            = "-"
	ungroupedLabel       = "(none)"
)

type palette struct {
	good, fair, poor, warn, title *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		good:  color.New(color.FgGreen),
		fair:  color.New(color.FgYellow),
		poor:  color.New(color.FgRed),
		warn:  color.New(color.FgYellow),
		title: color.New(color.Bold),
	}

	if noColor {
		for _, c := range []*color.Color{p.good, p.fair, p.poor, p.warn, p.title} {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) score(v float64) string {
	formatted := fmt.Sprintf("%.4f", v)

	switch {
	case v >= scoreThresholdHigh:
		return p.good.Sprint(formatted)
	case v >= scoreThresholdMedium:
		return p.fair.Sprint(formatted)
	default:
		return p.poor.Sprint(formatted)
	}
}

func renderText(w io.Writer, res *evaluate.Result, opts Options) error {
	p := newPalette(opts.NoColor)

	var b strings.Builder

	b.WriteString(p.title.Sprintf("c-match evaluation (threshold %.2f, empty fragments: %s)", res.Threshold, res.EmptyPolicy))
	b.WriteString("\n")

	if res.Benchmark != "" {
		fmt.Fprintf(&b, "Benchmark:  %s\n", res.Benchmark)
	}

	if res.Detections != "" {
		fmt.Fprintf(&b, "Detections: %s\n", res.Detections)
	}

	b.WriteString("\n")
	b.WriteString(summaryTable(res, p))
	b.WriteString("\n")

	if len(res.Groups) > 0 {
		b.WriteString("\nPer task:\n")
		b.WriteString(groupTable(res.Groups, p))
		b.WriteString("\n")
	}

	if opts.MaxMisses > 0 && len(res.Misses) > 0 {
		b.WriteString("\nUnmatched references:\n")
		b.WriteString(missTable(res.Misses, opts.MaxMisses))
		b.WriteString("\n")
	}

	for _, warning := range warnings(res) {
		b.WriteString(p.warn.Sprint("warning: " + warning))
		b.WriteString("\n")
	}

	if res.Elapsed > 0 {
		fmt.Fprintf(&b, "\nElapsed: %s\n", res.Elapsed.Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	// Footers carry counts in prose, keep their case.
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func summaryTable(res *evaluate.Result, p palette) string {
	m := res.Metrics

	tbl := newTable()
	tbl.AppendHeader(table.Row{"References", "Candidates", "TP", "FP", "FN", "Precision", "Recall", "F1"})
	tbl.AppendRow(table.Row{
		count(res.References), count(res.Candidates),
		count(m.TP), count(m.FP), count(m.FN),
		p.score(m.Precision), p.score(m.Recall), p.score(m.F1),
	})

	return tbl.Render()
}

func groupTable(groups []cmatch.GroupMetrics, p palette) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Task", "Refs", "Cands", "TP", "FP", "FN", "Precision", "Recall", "F1"})

	for _, g := range groups {
		name := g.Group
		if name == "" {
			name = ungroupedLabel
		}

		m := g.Metrics
		tbl.AppendRow(table.Row{
			name, count(g.References), count(g.Candidates),
			count(m.TP), count(m.FP), count(m.FN),
			p.score(m.Precision), p.score(m.Recall), p.score(m.F1),
		})
	}

	return tbl.Render()
}

func missTable(misses []evaluate.MissDetail, limit int) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Ref", "Reason", "Reference pair", "Closest candidate", "Weakest", "Claimed by"})

	shown := min(limit, len(misses))

	for _, miss := range misses[:shown] {
		closest, weakest, claimedBy := noneLabel, noneLabel, noneLabel

		if miss.Closest != nil {
			closest = fmt.Sprintf("#%d %s", miss.Candidate, pairLabel(*miss.Closest))
			weakest = fmt.Sprintf("%.2f", miss.Weakest)
		}

		if miss.ClaimedBy >= 0 {
			claimedBy = fmt.Sprintf("ref #%d", miss.ClaimedBy)
		}

		tbl.AppendRow(table.Row{miss.Reference, string(miss.Reason), pairLabel(miss.Pair), closest, weakest, claimedBy})
	}

	if rest := len(misses) - shown; rest > 0 {
		tbl.AppendFooter(table.Row{"", fmt.Sprintf("%s more", count(rest))})
	}

	return tbl.Render()
}

func pairLabel(cp cmatch.ClonePair) string {
	return fragmentLabel(cp.A) + " <> " + fragmentLabel(cp.B)
}

// fragmentLabel shortens a fragment to its file's base name and line range.
func fragmentLabel(f cmatch.Fragment) string {
	name := f.File
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	return fmt.Sprintf("%s:%d-%d", name, f.Start, f.End)
}

func warnings(res *evaluate.Result) []string {
	var out []string

	if res.DroppedRows > 0 {
		out = append(out, fmt.Sprintf("%s detector rows dropped for non-numeric coordinates", count(res.DroppedRows)))
	}

	if res.UngroupedCandidates > 0 {
		out = append(out, fmt.Sprintf("%s candidates have no task id and count as false positives", count(res.UngroupedCandidates)))
	}

	if n := len(res.InvalidReferences); n > 0 {
		out = append(out, fmt.Sprintf("%s reference pairs have unusable task ids", count(n)))
	}

	if n := len(res.InvalidCandidates); n > 0 {
		out = append(out, fmt.Sprintf("%s candidate pairs have unusable task ids", count(n)))
	}

	return out
}
