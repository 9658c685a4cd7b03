package cot

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/pensieri/pkg/events"
	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/go-go-golems/pensieri/pkg/tokens"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Solver answers a question with a chain of generation calls. steps is the
// exact step count for the fixed controller and the upper bound for the
// dynamic one.
type Solver interface {
	Solve(ctx context.Context, question string, steps int, temperature float64) (*Result, error)
}

type config struct {
	domain           string
	compactThreshold int
	extractor        *Extractor
	counter          *tokens.Counter
	provider         string
	model            string
}

type Option func(*config)

func WithDomain(domain string) Option {
	return func(c *config) {
		c.domain = domain
	}
}

func WithCompactThreshold(threshold int) Option {
	return func(c *config) {
		c.compactThreshold = threshold
	}
}

func WithExtractor(extractor *Extractor) Option {
	return func(c *config) {
		c.extractor = extractor
	}
}

// WithTokenCounter sets the counter used for prompt token accounting.
func WithTokenCounter(counter *tokens.Counter) Option {
	return func(c *config) {
		c.counter = counter
	}
}

// WithModelInfo is only used to label published events.
func WithModelInfo(provider string, model string) Option {
	return func(c *config) {
		c.provider = provider
		c.model = model
	}
}

var (
	defaultCounterOnce sync.Once
	defaultCounter     *tokens.Counter
)

func newConfig(options []Option) *config {
	c := &config{
		domain:           DefaultDomain,
		compactThreshold: DefaultCompactThreshold,
	}
	for _, o := range options {
		o(c)
	}
	if c.extractor == nil {
		c.extractor = defaultExtractor
	}
	if c.counter == nil {
		defaultCounterOnce.Do(func() {
			defaultCounter = tokens.NewDefaultCounter()
		})
		c.counter = defaultCounter
	}
	return c
}

// NewSolver returns the controller for mode.
func NewSolver(mode types.ReasoningMode, e engine.Engine, options ...Option) (Solver, error) {
	switch mode {
	case types.ReasoningModeFixed:
		return NewFixedController(e, options...)
	case types.ReasoningModeDynamic, "":
		return NewDynamicController(e, options...)
	default:
		return nil, errors.Errorf("unknown reasoning mode %q", mode)
	}
}

// run tracks the bookkeeping of one Solve call.
type run struct {
	engine   engine.Engine
	counter  *tokens.Counter
	metadata events.EventMetadata
	start    time.Time

	calls        int
	promptTokens int
}

func newRun(e engine.Engine, c *config, mode types.ReasoningMode) *run {
	md := events.NewMetadata(uuid.NewString())
	md.Mode = string(mode)
	md.Provider = c.provider
	md.Model = c.model
	return &run{
		engine:   e,
		counter:  c.counter,
		metadata: md,
		start:    time.Now(),
	}
}

func (r *run) meta() events.EventMetadata {
	md := r.metadata
	md.ID = uuid.New()
	return md
}

func (r *run) generate(ctx context.Context, step int, prompt string, temperature float64) (string, error) {
	n, err := r.counter.Count(prompt)
	if err != nil {
		log.Warn().Err(err).Msg("Could not count prompt tokens")
	}
	r.promptTokens += n
	r.calls++

	log.Debug().
		Str("run_id", r.metadata.RunID).
		Int("step", step).
		Int("prompt_tokens", n).
		Msg("Generating reasoning step")

	text, err := r.engine.Generate(events.WithRunMetadata(ctx, r.metadata), prompt, temperature)
	if err != nil {
		events.PublishEventToContext(ctx, events.NewErrorEvent(r.meta(), step, err))
		return "", err
	}
	return text, nil
}

func (r *run) result(mode types.ReasoningMode, question string, steps []string) *Result {
	return &Result{
		ID:              r.metadata.RunID,
		Question:        question,
		ReasoningSteps:  steps,
		Mode:            mode,
		GenerationCalls: r.calls,
		PromptTokens:    r.promptTokens,
		Duration:        time.Since(r.start),
	}
}

func (r *run) finish(ctx context.Context, res *Result, outcome Outcome) {
	events.PublishEventToContext(ctx, events.NewAnswerEvent(r.meta(), res.StepsTaken, res.FinalAnswer, outcome.Kind.String(), res.Forced))
	events.PublishEventToContext(ctx, events.NewRunFinishedEvent(r.meta(), res.StepsTaken, res.GenerationCalls, res.Duration))

	log.Debug().
		Str("run_id", res.ID).
		Str("mode", string(res.Mode)).
		Int("steps_taken", res.StepsTaken).
		Int("generation_calls", res.GenerationCalls).
		Bool("forced", res.Forced).
		Dur("duration", res.Duration).
		Msg("Reasoning run finished")
}
