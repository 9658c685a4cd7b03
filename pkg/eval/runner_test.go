package eval

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// answeringEngine answers every prompt with the expected answer of the
// problem the prompt is about.
func answeringEngine(set *ProblemSet, wrong map[string]string) engine.Engine {
	return engine.EngineFunc(func(ctx context.Context, prompt string, temperature float64) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, p := range set.Problems {
			if strings.Contains(prompt, p.Question) {
				answer := p.ExpectedAnswer
				if w, ok := wrong[p.Question]; ok {
					answer = w
				}
				return "Working it out.\nFINAL_ANSWER: " + answer + " END_ANSWER", nil
			}
		}
		return "", errors.New("unknown question")
	})
}

func TestDefaultProblemSet(t *testing.T) {
	set := DefaultProblemSet()
	require.Len(t, set.Problems, 12)
	for _, p := range set.Problems {
		assert.NotEmpty(t, p.Question)
		assert.True(t, Validate(p.ExpectedAnswer, p.ExpectedAnswer, DefaultTolerance))
	}
}

func TestLoadProblemSet(t *testing.T) {
	set, err := LoadProblemSet(strings.NewReader(`
name: tiny
problems:
  - question: "What is 2+2?"
    expected_answer: "4"
  - question: "What is half of 1?"
    expected_answer: "0.5"
`))
	require.NoError(t, err)
	assert.Equal(t, "tiny", set.Name)
	require.Len(t, set.Problems, 2)
	assert.Equal(t, "0.5", set.Problems[1].ExpectedAnswer)

	_, err = LoadProblemSet(strings.NewReader(""))
	assert.Error(t, err)

	_, err = LoadProblemSet(strings.NewReader("problems: []"))
	assert.Error(t, err)

	_, err = LoadProblemSet(strings.NewReader("problems:\n  - question: q\n"))
	assert.Error(t, err)
}

func TestRunner_AllMethods(t *testing.T) {
	set := DefaultProblemSet()
	wrong := map[string]string{
		set.Problems[0].Question: "12",
	}

	var mu sync.Mutex
	seen := 0
	r := NewRunner(answeringEngine(set, wrong),
		WithConcurrency(4),
		WithOnOutcome(func(Outcome) {
			mu.Lock()
			seen++
			mu.Unlock()
		}),
	)

	report, err := r.Run(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 36)
	assert.Equal(t, 36, seen)

	// outcomes keep problem order regardless of scheduling
	for i, o := range report.Outcomes {
		assert.Equal(t, i/3, o.Index)
		assert.Equal(t, AllMethods()[i%3], o.Method)
	}

	summaries := report.Summaries()
	require.Len(t, summaries, 3)
	for _, s := range summaries {
		assert.Equal(t, 11, s.Passed, s.Method)
		assert.Equal(t, 1, s.Failed, s.Method)
		assert.Equal(t, 0, s.Errors, s.Method)
		assert.InDelta(t, 91.67, s.Accuracy, 0.01)
	}

	failures := report.Failures()
	require.Len(t, failures, 3)
	for _, f := range failures {
		assert.Equal(t, "12", f.Got)
		assert.Equal(t, "6", f.Expected)
	}

	for _, o := range report.Outcomes {
		switch o.Method {
		case MethodDynamic:
			assert.Equal(t, 1, o.StepsTaken)
		case MethodFixed:
			assert.Equal(t, 3, o.StepsTaken)
		case MethodDirect:
			assert.Equal(t, 0, o.StepsTaken)
		}
	}
}

func TestRunner_ProviderErrorsAreRecorded(t *testing.T) {
	set := &ProblemSet{Problems: []Problem{
		{Question: "What is 2+2?", ExpectedAnswer: "4"},
		{Question: "What is 3+3?", ExpectedAnswer: "6"},
	}}
	e := engine.EngineFunc(func(ctx context.Context, prompt string, temperature float64) (string, error) {
		if strings.Contains(prompt, "3+3") {
			return "", errors.New("provider down")
		}
		return "FINAL_ANSWER: 4 END_ANSWER", nil
	})

	report, err := NewRunner(e, WithMethods(MethodDynamic)).Run(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	assert.True(t, report.Outcomes[0].Correct)
	assert.False(t, report.Outcomes[1].Correct)
	assert.Contains(t, report.Outcomes[1].Error, "provider down")

	s := report.Summaries()[0]
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, float64(50), s.Accuracy)
}

func TestRunner_Cancelled(t *testing.T) {
	set := DefaultProblemSet()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(answeringEngine(set, nil), WithConcurrency(3)).Run(ctx, set)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("direct")
	require.NoError(t, err)
	assert.Equal(t, MethodDirect, m)

	_, err = ParseMethod("psychic")
	assert.Error(t, err)

	_, err = NewRunner(answeringEngine(DefaultProblemSet(), nil), WithMethods("psychic")).Run(context.Background(), DefaultProblemSet())
	assert.Error(t, err)
}
