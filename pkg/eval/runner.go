package eval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/pensieri/pkg/cot"
	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Method is one way of answering a benchmark problem.
type Method string

const (
	MethodDynamic Method = "dynamic"
	MethodFixed   Method = "fixed"
	// MethodDirect sends a single step-by-step prompt without a reasoning chain.
	MethodDirect Method = "direct"
)

func AllMethods() []Method {
	return []Method{MethodDynamic, MethodFixed, MethodDirect}
}

func ParseMethod(s string) (Method, error) {
	for _, m := range AllMethods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.Errorf("unknown method %q", s)
}

const directPromptFormat = "Question: %s\n\nSolve this problem step by step."

type Runner struct {
	engine      engine.Engine
	methods     []Method
	steps       int
	maxSteps    int
	temperature float64
	tolerance   float64
	concurrency int
	cotOptions  []cot.Option
	onOutcome   func(Outcome)
}

type RunnerOption func(*Runner)

func WithMethods(methods ...Method) RunnerOption {
	return func(r *Runner) {
		r.methods = methods
	}
}

// WithSteps sets the step count of the fixed method and the step bound of
// the dynamic method.
func WithSteps(steps int, maxSteps int) RunnerOption {
	return func(r *Runner) {
		r.steps = steps
		r.maxSteps = maxSteps
	}
}

func WithTemperature(temperature float64) RunnerOption {
	return func(r *Runner) {
		r.temperature = temperature
	}
}

func WithTolerance(tolerance float64) RunnerOption {
	return func(r *Runner) {
		r.tolerance = tolerance
	}
}

// WithConcurrency bounds how many problems are solved at the same time. All
// workers share the runner's engine, and therefore its rate limiter.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = n
	}
}

func WithCotOptions(options ...cot.Option) RunnerOption {
	return func(r *Runner) {
		r.cotOptions = append(r.cotOptions, options...)
	}
}

// WithOnOutcome is called once per scored answer, from the worker goroutines.
func WithOnOutcome(f func(Outcome)) RunnerOption {
	return func(r *Runner) {
		r.onOutcome = f
	}
}

func NewRunner(e engine.Engine, options ...RunnerOption) *Runner {
	r := &Runner{
		engine:      e,
		methods:     AllMethods(),
		steps:       3,
		maxSteps:    5,
		temperature: 0.7,
		tolerance:   DefaultTolerance,
		concurrency: 1,
	}
	for _, o := range options {
		o(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Outcome is the score of one method on one problem.
type Outcome struct {
	Index      int           `json:"index" yaml:"index"`
	Method     Method        `json:"method" yaml:"method"`
	Question   string        `json:"question" yaml:"question"`
	Expected   string        `json:"expected" yaml:"expected"`
	Got        string        `json:"got" yaml:"got"`
	Correct    bool          `json:"correct" yaml:"correct"`
	StepsTaken int           `json:"steps_taken,omitempty" yaml:"steps_taken,omitempty"`
	FullAnswer string        `json:"full_answer" yaml:"full_answer"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Run solves every problem with every configured method. Provider failures
// are recorded on the outcome and do not stop the run; only a cancelled
// context does.
func (r *Runner) Run(ctx context.Context, set *ProblemSet) (*Report, error) {
	solvers := map[Method]cot.Solver{}
	for _, m := range r.methods {
		var err error
		switch m {
		case MethodDynamic:
			solvers[m], err = cot.NewDynamicController(r.engine, r.cotOptions...)
		case MethodFixed:
			solvers[m], err = cot.NewFixedController(r.engine, r.cotOptions...)
		case MethodDirect:
		default:
			err = errors.Errorf("unknown method %q", m)
		}
		if err != nil {
			return nil, err
		}
	}

	outcomes := make([][]Outcome, len(set.Problems))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, p := range set.Problems {
		g.Go(func() error {
			var results []Outcome
			for _, m := range r.methods {
				o := r.solve(gctx, solvers[m], m, i, p)
				if err := gctx.Err(); err != nil {
					return err
				}
				results = append(results, o)
				if r.onOutcome != nil {
					mu.Lock()
					r.onOutcome(o)
					mu.Unlock()
				}
			}
			outcomes[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "running benchmark")
	}

	report := &Report{Name: set.Name, Methods: r.methods}
	for _, results := range outcomes {
		report.Outcomes = append(report.Outcomes, results...)
	}
	return report, nil
}

func (r *Runner) solve(ctx context.Context, solver cot.Solver, m Method, index int, p Problem) Outcome {
	o := Outcome{
		Index:    index,
		Method:   m,
		Question: p.Question,
		Expected: p.ExpectedAnswer,
	}
	start := time.Now()

	var err error
	switch m {
	case MethodDirect:
		o.FullAnswer, err = r.engine.Generate(ctx, fmt.Sprintf(directPromptFormat, p.Question), r.temperature)
	case MethodFixed:
		var res *cot.Result
		res, err = solver.Solve(ctx, p.Question, r.steps, r.temperature)
		if err == nil {
			o.FullAnswer, o.StepsTaken = res.FinalAnswer, res.StepsTaken
		}
	case MethodDynamic:
		var res *cot.Result
		res, err = solver.Solve(ctx, p.Question, r.maxSteps, r.temperature)
		if err == nil {
			o.FullAnswer, o.StepsTaken = res.FinalAnswer, res.StepsTaken
		}
	}
	o.Duration = time.Since(start)

	if err != nil {
		o.Error = err.Error()
		log.Warn().Err(err).Int("problem", index+1).Str("method", string(m)).Msg("Benchmark problem failed")
		return o
	}

	got, ok := ExtractNumericAnswer(o.FullAnswer)
	o.Got = got
	o.Correct = ok && Validate(p.ExpectedAnswer, got, r.tolerance)

	log.Debug().
		Int("problem", index+1).
		Str("method", string(m)).
		Str("expected", p.ExpectedAnswer).
		Str("got", got).
		Bool("correct", o.Correct).
		Msg("Scored benchmark answer")
	return o
}
