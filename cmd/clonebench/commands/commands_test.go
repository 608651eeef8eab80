package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/clonebench/cmd/clonebench/commands"
	"github.com/Sumatoshi-tech/clonebench/pkg/config"
)

// run executes the root command with an empty config file so that no
// clonebench.yaml from the working directory leaks in.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "clonebench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{}\n"), 0o600))

	var out bytes.Buffer

	root := commands.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", cfgPath, "--log-level", "error"))

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"evaluate", "ingest", "build", "detect", "mcp"}, names)

	for _, name := range []string{"config", "log-level", "log-json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestEvaluateCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewEvaluateCommand(&commands.GlobalOptions{})

	for _, name := range []string{
		"benchmark", "detections", "base-dir", "source", "table", "threshold",
		"no-empty-match", "workers", "format", "output", "misses", "no-color",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, "0.7", cmd.Flags().Lookup("threshold").DefValue)
}

func TestEvaluateCommand_MissingFlags(t *testing.T) {
	t.Parallel()

	_, err := run(t, "evaluate", "--benchmark", "clones.csv")
	require.ErrorIs(t, err, commands.ErrMissingFlag)
}

func TestEvaluateCommand_InvalidThreshold(t *testing.T) {
	t.Parallel()

	_, err := run(t, "evaluate", "--benchmark", "a.csv", "--detections", "b.csv", "--threshold", "1.5")
	require.ErrorIs(t, err, config.ErrInvalidThreshold)
}

func TestEvaluateCommand_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := run(t, "evaluate", "--benchmark", "a.csv", "--detections", "b.csv", "--format", "html")
	require.ErrorIs(t, err, config.ErrInvalidFormat)
}

const gcjExport = `year,task,username,file,flines
2017,T1,alice,a.py,"x = 1
y = 2
z = 3"
2017,T1,bob,b.py,"x = 1
y = 2
z = 3"
2017,T1,carol,c.py,"print('something else')"
2016,T1,dave,d.py,"x = 1"
`

// TestPipeline runs build, detect, ingest and evaluate end to end.
func TestPipeline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	exportPath := filepath.Join(root, "gcj2017.csv")
	require.NoError(t, os.WriteFile(exportPath, []byte(gcjExport), 0o600))

	benchmark := filepath.Join(root, "benchmark_output", "clones_2017.csv")

	out, err := run(t, "build",
		"--input", exportPath,
		"--year", "2017",
		"--solutions", filepath.Join(root, "extracted_solutions"),
		"--output", benchmark,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 pairs from 3 solutions in 1 tasks")

	data, err := os.ReadFile(benchmark)
	require.NoError(t, err)
	assert.Contains(t, string(data), "../extracted_solutions/2017/T1/alice/a.py,0,2,")

	pseudo := filepath.Join(root, "pseudo.csv")

	out, err = run(t, "detect", "--benchmark", benchmark, "--output", pseudo)
	require.NoError(t, err)
	assert.Contains(t, out, "Detected 1 of 3 pairs")

	db := filepath.Join(root, "results", "pseudo.db")

	out, err = run(t, "ingest", "--csv", pseudo, "--db", db, "--table", "pseudo")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 1 pairs")

	out, err = run(t, "evaluate",
		"--benchmark", benchmark,
		"--detections", db,
		"--table", "pseudo",
		"--format", "json",
	)
	require.NoError(t, err)

	var res struct {
		References int `json:"references"`
		Candidates int `json:"candidates"`
		Metrics    struct {
			TP        int     `json:"tp"`
			FP        int     `json:"fp"`
			FN        int     `json:"fn"`
			Precision float64 `json:"precision"`
			Recall    float64 `json:"recall"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, 3, res.References)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Metrics.TP)
	assert.Zero(t, res.Metrics.FP)
	assert.Equal(t, 2, res.Metrics.FN)
	assert.InDelta(t, 1.0, res.Metrics.Precision, 1e-9)
	assert.InDelta(t, 1.0/3.0, res.Metrics.Recall, 1e-9)

	// The CSV output of detect is accepted directly as well, and the text
	// report goes to a file.
	reportPath := filepath.Join(root, "reports", "pseudo.txt")

	_, err = run(t, "evaluate",
		"--benchmark", benchmark,
		"--detections", pseudo,
		"--output", reportPath,
	)
	require.NoError(t, err)

	text, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "c-match evaluation")
	assert.Contains(t, string(text), "file_mismatch")
}

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand(&commands.GlobalOptions{})
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
