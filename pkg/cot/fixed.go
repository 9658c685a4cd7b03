package cot

import (
	"context"

	"github.com/go-go-golems/pensieri/pkg/events"
	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
)

// FixedController always issues one initial call, steps-2 continuation
// calls and one final-answer call.
type FixedController struct {
	engine  engine.Engine
	prompts *Prompts
	config  *config
}

var _ Solver = (*FixedController)(nil)

func NewFixedController(e engine.Engine, options ...Option) (*FixedController, error) {
	c := newConfig(options)
	prompts, err := NewPrompts(types.ReasoningModeFixed, c.domain)
	if err != nil {
		return nil, err
	}
	return &FixedController{
		engine:  e,
		prompts: prompts,
		config:  c,
	}, nil
}

// Solve runs the fixed chain. Continuations always see the full,
// uncompacted reasoning and the text of the final call is used verbatim as
// the answer.
func (f *FixedController) Solve(ctx context.Context, question string, steps int, temperature float64) (*Result, error) {
	r := newRun(f.engine, f.config, types.ReasoningModeFixed)
	events.PublishEventToContext(ctx, events.NewRunStartedEvent(r.meta(), question, steps))

	rc := NewContext(question, f.config.compactThreshold)

	prompt, err := f.prompts.Initial(question)
	if err != nil {
		return nil, err
	}
	text, err := r.generate(ctx, 1, prompt, temperature)
	if err != nil {
		return nil, errors.Wrap(err, "generating step 1")
	}
	rc.Append(text)
	events.PublishEventToContext(ctx, events.NewStepEvent(r.meta(), 1, text, r.promptTokens, false))

	for i := 1; i < steps-1; i++ {
		step := i + 1
		prompt, err := f.prompts.Continuation(question, rc.Full(), step)
		if err != nil {
			return nil, err
		}
		before := r.promptTokens
		text, err := r.generate(ctx, step, prompt, temperature)
		if err != nil {
			return nil, errors.Wrapf(err, "generating step %d", step)
		}
		rc.Append(text)
		events.PublishEventToContext(ctx, events.NewStepEvent(r.meta(), step, text, r.promptTokens-before, false))
	}

	prompt, err = f.prompts.Final(question, rc.Full())
	if err != nil {
		return nil, err
	}
	finalText, err := r.generate(ctx, rc.Len()+1, prompt, temperature)
	if err != nil {
		return nil, errors.Wrap(err, "generating final answer")
	}

	outcome := f.config.extractor.Extract(finalText)
	res := r.result(types.ReasoningModeFixed, question, rc.Steps())
	res.FinalAnswer = finalText
	res.StepsTaken = rc.Len() + 1
	res.AnswerFound = outcome.Found()

	r.finish(ctx, res, outcome)
	return res, nil
}
