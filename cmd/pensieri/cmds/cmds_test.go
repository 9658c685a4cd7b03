package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/pensieri/pkg/cot"
	"github.com/go-go-golems/pensieri/pkg/events"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := &cobra.Command{
		Use:           "pensieri",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "")
	AddProviderFlags(root.PersistentFlags())
	require.NoError(t, viper.BindPFlags(root.PersistentFlags()))

	require.NoError(t, AddToRootCommand(root))
	return root
}

// captureOutput swaps os.Stdout and os.Stderr for pipes while f runs, since
// glazed writes its output there.
func captureOutput(t *testing.T, f func()) (string, string) {
	t.Helper()

	capture := func(target **os.File) (func() string, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		prev := *target
		*target = w

		done := make(chan string)
		go func() {
			var buf bytes.Buffer
			_, _ = io.Copy(&buf, r)
			_ = r.Close()
			done <- buf.String()
		}()

		return func() string {
			*target = prev
			_ = w.Close()
			return <-done
		}, nil
	}

	stopStdout, err := capture(&os.Stdout)
	require.NoError(t, err)
	stopStderr, err := capture(&os.Stderr)
	if err != nil {
		stopStdout()
		require.NoError(t, err)
	}

	f()

	return stopStdout(), stopStderr()
}

// execute runs the command line and returns what it wrote to stdout and
// stderr.
func execute(t *testing.T, args ...string) (string, string) {
	t.Helper()
	root := newTestRoot(t)
	root.SetArgs(args)

	var err error
	stdout, stderr := captureOutput(t, func() {
		err = root.Execute()
	})
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout, stderr
}

func parseRows(t *testing.T, out string) []map[string]interface{} {
	t.Helper()
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows), "output: %s", out)
	return rows
}

func fixtureViper(fixture string) *viper.Viper {
	v := viper.New()
	v.Set("fixture", fixture)
	return v
}

func TestSolve_GlazedRow(t *testing.T) {
	out, _ := execute(t, "solve", "--fixture", "testdata/two-plus-two.yaml", "--glazed", "--output", "json", "What", "is", "2+2?")

	rows := parseRows(t, out)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "What is 2+2?", row["question"])
	assert.Equal(t, "4", row["final_answer"])
	assert.Equal(t, "dynamic", row["mode"])
	assert.Equal(t, float64(1), row["steps_taken"])
	assert.Equal(t, float64(1), row["generation_calls"])
	assert.Equal(t, true, row["answer_found"])
	assert.NotEmpty(t, row["id"])
}

func TestSolve_FixedMarkdown(t *testing.T) {
	out, _ := execute(t, "solve", "--fixture", "testdata/two-plus-two.yaml", "--mode", "fixed", "--steps", "3", "What is 2+2?")

	assert.Contains(t, out, "# What is 2+2?")
	assert.Contains(t, out, "## Step 1")
	assert.Contains(t, out, "## Step 2")
	assert.Contains(t, out, "## Final answer")
	assert.Contains(t, out, "fixed mode: 3 steps taken, 3 generation calls")
}

func TestSolve_NoStepsInMarkdown(t *testing.T) {
	out, _ := execute(t, "solve", "--fixture", "testdata/two-plus-two.yaml", "--print-steps=false", "What is 2+2?")
	assert.NotContains(t, out, "## Step 1")
	assert.Contains(t, out, "## Final answer\n\n4")
}

func TestSolve_ShowProgress(t *testing.T) {
	_, stderr := execute(t, "solve", "--fixture", "testdata/two-plus-two.yaml", "--show-progress", "What is 2+2?")

	assert.Contains(t, stderr, "Question: What is 2+2?")
	assert.Contains(t, stderr, "--- Step 1 ---")
	assert.Contains(t, stderr, "Answer (step 1, found): 4")
}

func TestSolve_FixtureIsRetried(t *testing.T) {
	out, stderr := execute(t, "solve", "--fixture", "testdata/flaky.yaml",
		"--base-delay", "1ms", "--max-delay", "1ms", "--show-progress",
		"--glazed", "--output", "json", "What is 2+2?")

	rows := parseRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "4", rows[0]["final_answer"])
	assert.Contains(t, stderr, "[retry 1 in ")
	assert.Contains(t, stderr, "] timeout")
}

func TestSolve_FixtureRetriesAreLimited(t *testing.T) {
	v := fixtureViper("testdata/flaky.yaml")
	v.Set("max-retries", 0)
	s, err := loadStepSettings(v, settings.NewStepSettings())
	require.NoError(t, err)

	_, err = solveQuestion(context.Background(), v, s, "What is 2+2?", false, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestCreateEngine_RetryEventsCarryRunID(t *testing.T) {
	v := fixtureViper("testdata/flaky.yaml")
	v.Set("base-delay", "1ms")
	v.Set("max-delay", "1ms")
	s, err := loadStepSettings(v, settings.NewStepSettings())
	require.NoError(t, err)

	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)

	e, err := createEngine(ctx, v, s)
	require.NoError(t, err)
	solver, err := cot.NewSolver(types.ReasoningModeDynamic, e, cotOptions(s)...)
	require.NoError(t, err)
	res, err := solver.Solve(ctx, "What is 2+2?", 3, 0.7)
	require.NoError(t, err)

	var retries []*events.EventRetry
	for _, e := range sink.Events() {
		if r, ok := e.(*events.EventRetry); ok {
			retries = append(retries, r)
		}
	}
	require.Len(t, retries, 1)
	assert.Equal(t, res.ID, retries[0].Metadata().RunID)
	assert.Equal(t, 1, retries[0].Attempt)
	assert.Equal(t, "timeout", retries[0].Error)
}

func TestSolve_Errors(t *testing.T) {
	ctx := context.Background()

	v := fixtureViper("testdata/two-plus-two.yaml")
	s, err := loadStepSettings(v, settings.NewStepSettings())
	require.NoError(t, err)
	s.Reasoning.Domain = "astrology"
	_, err = solveQuestion(ctx, v, s, "What is 2+2?", false, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")

	v = fixtureViper("testdata/missing.yaml")
	s, err = loadStepSettings(v, settings.NewStepSettings())
	require.NoError(t, err)
	_, err = solveQuestion(ctx, v, s, "What is 2+2?", false, io.Discard)
	require.Error(t, err)

	v = fixtureViper("testdata/two-plus-two.yaml")
	s, err = loadStepSettings(v, settings.NewStepSettings())
	require.NoError(t, err)
	_, err = solveQuestion(ctx, v, s, "   ", false, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question must not be empty")

	v.Set("settings", "testdata/missing-settings.yaml")
	_, err = loadStepSettings(v, settings.NewStepSettings())
	require.Error(t, err)
}

func rowsByMethod(rows []map[string]interface{}) map[string]map[string]interface{} {
	ret := map[string]map[string]interface{}{}
	for _, row := range rows {
		ret[row["method"].(string)] = row
	}
	return ret
}

func TestEval_Summary(t *testing.T) {
	out, _ := execute(t, "eval", "--fixture", "testdata/workers.yaml", "--methods", "dynamic,direct", "--output", "json", "testdata/problems.yaml")

	rows := parseRows(t, out)
	require.Len(t, rows, 2)
	byMethod := rowsByMethod(rows)
	require.Contains(t, byMethod, "dynamic")
	require.Contains(t, byMethod, "direct")
	assert.NotContains(t, byMethod, "fixed")
	for _, row := range byMethod {
		assert.Equal(t, float64(1), row["passed"])
		assert.Equal(t, float64(1), row["failed"])
		assert.Equal(t, float64(0), row["errors"])
		assert.Equal(t, float64(50), row["accuracy"])
	}
}

func TestEval_FailuresReport(t *testing.T) {
	out, _ := execute(t, "eval", "--fixture", "testdata/workers.yaml", "--methods", "dynamic,direct",
		"--report", "failures", "--output", "json", "testdata/problems.yaml")

	rows := parseRows(t, out)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, float64(2), row["problem"])
		assert.Equal(t, "7", row["expected"])
		assert.Equal(t, "6", row["got"])
		assert.Equal(t, false, row["correct"])
	}
}

func TestEval_ToleranceFromSettingsFile(t *testing.T) {
	out, _ := execute(t, "eval", "--fixture", "testdata/workers.yaml", "--settings", "testdata/tolerant.yaml",
		"--methods", "direct", "--output", "json", "testdata/problems.yaml")

	rows := parseRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(2), rows[0]["passed"])
	assert.Equal(t, float64(0), rows[0]["failed"])
}

func TestEval_ToleranceFlagOverridesSettingsFile(t *testing.T) {
	out, _ := execute(t, "eval", "--fixture", "testdata/workers.yaml", "--settings", "testdata/tolerant.yaml",
		"--tolerance", "0.5", "--methods", "direct", "--output", "json", "testdata/problems.yaml")

	rows := parseRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0]["passed"])
	assert.Equal(t, float64(1), rows[0]["failed"])
}

func TestEval_StepsFromSettingsFile(t *testing.T) {
	out, _ := execute(t, "eval", "--fixture", "testdata/workers.yaml", "--settings", "testdata/two-steps.yaml",
		"--methods", "fixed", "--report", "outcomes", "--output", "json", "testdata/problems.yaml")

	rows := parseRows(t, out)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "fixed", row["method"])
		assert.Equal(t, float64(2), row["steps_taken"])
	}
}

func TestEval_BaseSettings(t *testing.T) {
	s, err := loadStepSettings(viper.New(), evalBaseSettings())
	require.NoError(t, err)
	assert.Equal(t, defaultEvalMaxSteps, s.Reasoning.MaxSteps)
	assert.Equal(t, 3, s.Reasoning.Steps)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reasoning:\n  max_steps: 8\n"), 0o644))
	v := viper.New()
	v.Set("settings", path)
	s, err = loadStepSettings(v, evalBaseSettings())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Reasoning.MaxSteps)
}

func TestEval_UnknownMethod(t *testing.T) {
	_, err := runEval(context.Background(), fixtureViper("testdata/workers.yaml"), &EvalSettings{
		Methods:     []string{"oracle"},
		Concurrency: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestCompare(t *testing.T) {
	out, _ := execute(t, "compare", "--fixture", "testdata/two-plus-two.yaml", "--output", "json", "What is 2+2?")

	rows := parseRows(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, "openai", rows[0]["provider"])
	assert.Equal(t, "gpt-4o", rows[0]["model"])
	assert.Equal(t, "gemini", rows[1]["provider"])
	assert.Equal(t, "gemini-2.0-flash", rows[1]["model"])
	for _, row := range rows {
		assert.Empty(t, row["error"])
		assert.Equal(t, "4", row["final_answer"])
		assert.Equal(t, float64(1), row["steps_taken"])
	}
}

func TestCompare_ProviderErrorIsReported(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	out, _ := execute(t, "compare", "--providers", "gemini", "--output", "json", "What is 2+2?")

	rows := parseRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "gemini", rows[0]["provider"])
	assert.Equal(t, "gemini-2.0-flash", rows[0]["model"])
	assert.NotEmpty(t, rows[0]["error"])
	assert.Equal(t, "", rows[0]["final_answer"])
}

func TestTokens(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("hello world\n"), 0o644))

	out, _ := execute(t, "tokens", "count", input)
	assert.Equal(t, "Model: \nCodec: cl100k_base\nTotal tokens: 2\n", out)

	out, _ = execute(t, "tokens", "encode", input)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "\"hello\""))
	assert.True(t, strings.HasSuffix(lines[1], "\" world\""))

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, strings.SplitN(line, "\t", 2)[0])
	}
	idsFile := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(idsFile, []byte(strings.Join(ids, " ")), 0o644))
	out, _ = execute(t, "tokens", "decode", idsFile)
	assert.Equal(t, "hello world\n", out)
}

func TestTokens_UnknownCodec(t *testing.T) {
	ts := &TokensSettings{Codec: "no-such-encoding", Input: "hello"}
	_, _, err := ts.counter()
	require.Error(t, err)
}
