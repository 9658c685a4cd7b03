package cot

import (
	"context"

	"github.com/go-go-golems/pensieri/pkg/events"
	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// finalSummarySteps is how many trailing steps the forced final prompt shows.
const finalSummarySteps = 3

// DynamicController keeps generating steps until one of them contains a
// detectable answer, or maxSteps is reached. In the latter case one extra
// call asks for a final answer.
type DynamicController struct {
	engine  engine.Engine
	prompts *Prompts
	config  *config
}

var _ Solver = (*DynamicController)(nil)

func NewDynamicController(e engine.Engine, options ...Option) (*DynamicController, error) {
	c := newConfig(options)
	prompts, err := NewPrompts(types.ReasoningModeDynamic, c.domain)
	if err != nil {
		return nil, err
	}
	return &DynamicController{
		engine:  e,
		prompts: prompts,
		config:  c,
	}, nil
}

// Solve never backtracks. Each step is checked on its own text only, and
// continuations see the compacted reasoning. A maxSteps below 1 is treated
// as 1. When the forced final call is needed, StepsTaken is maxSteps and the
// extra call only shows up in GenerationCalls.
func (d *DynamicController) Solve(ctx context.Context, question string, maxSteps int, temperature float64) (*Result, error) {
	if maxSteps < 1 {
		maxSteps = 1
	}

	r := newRun(d.engine, d.config, types.ReasoningModeDynamic)
	events.PublishEventToContext(ctx, events.NewRunStartedEvent(r.meta(), question, maxSteps))

	rc := NewContext(question, d.config.compactThreshold)

	prompt, err := d.prompts.Initial(question)
	if err != nil {
		return nil, err
	}
	text, err := r.generate(ctx, 1, prompt, temperature)
	if err != nil {
		return nil, errors.Wrap(err, "generating step 1")
	}
	rc.Append(text)
	events.PublishEventToContext(ctx, events.NewStepEvent(r.meta(), 1, text, r.promptTokens, false))

	if outcome := d.config.extractor.Extract(text); outcome.Found() {
		return d.done(ctx, r, rc, outcome, 1), nil
	}

	for step := 2; step <= maxSteps; step++ {
		prompt, err := d.prompts.Continuation(question, rc.Combined(), step)
		if err != nil {
			return nil, err
		}
		before := r.promptTokens
		text, err := r.generate(ctx, step, prompt, temperature)
		if err != nil {
			return nil, errors.Wrapf(err, "generating step %d", step)
		}
		compacted := rc.Append(text)
		if compacted {
			log.Debug().Str("run_id", r.metadata.RunID).Int("step", step).Msg("Compacted reasoning context")
		}
		events.PublishEventToContext(ctx, events.NewStepEvent(r.meta(), step, text, r.promptTokens-before, compacted))

		if outcome := d.config.extractor.Extract(text); outcome.Found() {
			return d.done(ctx, r, rc, outcome, step), nil
		}
	}

	prompt, err = d.prompts.Final(question, rc.Summary(finalSummarySteps))
	if err != nil {
		return nil, err
	}
	finalText, err := r.generate(ctx, maxSteps+1, prompt, temperature)
	if err != nil {
		return nil, errors.Wrap(err, "generating final answer")
	}

	outcome := d.config.extractor.Extract(finalText)
	res := r.result(types.ReasoningModeDynamic, question, rc.Steps())
	res.StepsTaken = maxSteps
	res.Forced = true
	res.AnswerFound = outcome.Found()
	res.FinalAnswer = outcome.Text
	if !outcome.HasText() {
		res.FinalAnswer = finalText
	}

	log.Debug().
		Str("run_id", res.ID).
		Str("outcome", outcome.Kind.String()).
		Msg("No answer within step budget, forced a final answer")

	r.finish(ctx, res, outcome)
	return res, nil
}

func (d *DynamicController) done(ctx context.Context, r *run, rc *Context, outcome Outcome, step int) *Result {
	res := r.result(types.ReasoningModeDynamic, rc.Question, rc.Steps())
	res.FinalAnswer = outcome.Text
	res.StepsTaken = step
	res.AnswerFound = true
	r.finish(ctx, res, outcome)
	return res
}
