package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AlexWan0/go-sparsetable"
)

const scenarioInput = `5
1 4 2 8 5
4
2 4
1 1
3 5
1 5
`

// execute runs the root command with args on input and returns stdout and stderr.
func execute(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()

	var stdout, stderr bytes.Buffer

	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRunTextOutput(t *testing.T) {
	out, _, err := execute(t, scenarioInput)
	require.NoError(t, err)
	assert.Equal(t, "8 4\n1 1\n8 4\n8 4\n", out)
}

func TestRunMinOperator(t *testing.T) {
	out, _, err := execute(t, scenarioInput, "--op", "min")
	require.NoError(t, err)
	assert.Equal(t, "2 3\n1 1\n2 3\n1 1\n", out)
}

func TestRunTieBreak(t *testing.T) {
	out, _, err := execute(t, "4\n5 3 5 1\n1\n1 3\n")
	require.NoError(t, err)
	assert.Equal(t, "5 1\n", out)
}

func TestRunSingleValue(t *testing.T) {
	out, _, err := execute(t, "1 7 1 1 1")
	require.NoError(t, err)
	assert.Equal(t, "7 1\n", out)
}

func TestRunNoQueries(t *testing.T) {
	out, _, err := execute(t, "3 1 2 3 0")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunMalformedRange(t *testing.T) {
	out, _, err := execute(t, "3\n1 2 3\n2\n1 3\n2 4\n")
	require.Error(t, err)
	require.ErrorIs(t, err, sparsetable.ErrOutOfRange)
	assert.Contains(t, err.Error(), "query 2")
	assert.Equal(t, "3 3\n", out)
}

func TestRunEmptySequence(t *testing.T) {
	_, _, err := execute(t, "0\n1\n1 1\n")
	require.ErrorIs(t, err, sparsetable.ErrOutOfRange)
}

func TestRunMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an integer", "3\n1 x 3\n0\n"},
		{"truncated sequence", "3\n1 2"},
		{"missing query count", "2\n1 2\n"},
		{"truncated query", "2\n1 2\n1\n1"},
		{"negative length", "-1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.input)
			require.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestRunJSONOutput(t *testing.T) {
	out, _, err := execute(t, scenarioInput, "--format", "json")
	require.NoError(t, err)

	var results []result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)
	assert.Equal(t, result{Query: 1, Left: 2, Right: 4, Value: 8, Position: 4}, results[0])
	assert.Equal(t, result{Query: 2, Left: 1, Right: 1, Value: 1, Position: 1}, results[1])
}

func TestRunYAMLOutput(t *testing.T) {
	out, _, err := execute(t, scenarioInput, "-f", "yaml")
	require.NoError(t, err)

	var results []result
	require.NoError(t, yaml.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)
	assert.Equal(t, result{Query: 3, Left: 3, Right: 5, Value: 8, Position: 4}, results[2])
}

func TestRunTableOutput(t *testing.T) {
	out, _, err := execute(t, scenarioInput, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "total: 4 queries")
	assert.Contains(t, strings.ToLower(out), "position")
}

func TestRunEmptyJSONOutput(t *testing.T) {
	out, _, err := execute(t, "0 0", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestRunSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.st")

	out, _, err := execute(t, scenarioInput, "--save", path)
	require.NoError(t, err)
	assert.Equal(t, "8 4\n1 1\n8 4\n8 4\n", out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	out, _, err = execute(t, "2\n1 3\n5 5\n", "--load", path)
	require.NoError(t, err)
	assert.Equal(t, "4 2\n5 5\n", out)

	_, _, err = execute(t, "1\n1 2\n", "--load", path, "--op", "min")
	require.ErrorIs(t, err, sparsetable.ErrCorrupt)
}

func TestRunInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(scenarioInput), 0o600))

	out, _, err := execute(t, "", "--input", path)
	require.NoError(t, err)
	assert.Equal(t, "8 4\n1 1\n8 4\n8 4\n", out)
}

func TestRunMemoryBudget(t *testing.T) {
	_, _, err := execute(t, scenarioInput, "--max-memory", "1B")
	require.ErrorIs(t, err, sparsetable.ErrTooLarge)

	out, _, err := execute(t, scenarioInput, "--max-memory", "1MiB")
	require.NoError(t, err)
	assert.Equal(t, "8 4\n1 1\n8 4\n8 4\n", out)
}

func TestRunLogging(t *testing.T) {
	_, stderr, err := execute(t, scenarioInput, "--log-level", "debug", "--log-json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	require.Len(t, lines, 5)

	var built map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &built))
	assert.Equal(t, "index built", built["msg"])
	assert.InDelta(t, 5, built["num"], 0)
	assert.InDelta(t, 3, built["levels"], 0)
}

func TestRunQuietByDefault(t *testing.T) {
	_, stderr, err := execute(t, scenarioInput)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestRunInvalidFlag(t *testing.T) {
	_, _, err := execute(t, scenarioInput, "--op", "sum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "sparsetable "+Version+"\n", out)
}
