package cmds

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	glazed_settings "github.com/go-go-golems/glazed/pkg/settings"
	glazed_types "github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/pensieri/pkg/cot"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type SolveCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*SolveCommand)(nil)

type SolveSettings struct {
	Question     []string `glazed.parameter:"question"`
	PrintSteps   bool     `glazed.parameter:"print-steps"`
	ShowProgress bool     `glazed.parameter:"show-progress"`
	Glazed       bool     `glazed.parameter:"glazed"`
}

func NewSolveCommand() (*SolveCommand, error) {
	glazedParameterLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	flags := append(reasoningFlags(10),
		parameters.NewParameterDefinition(
			"print-steps",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Include the reasoning steps in markdown output"),
			parameters.WithDefault(true),
		),
		parameters.NewParameterDefinition(
			"show-progress",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Print steps to stderr as they are generated"),
			parameters.WithDefault(false),
		),
		parameters.NewParameterDefinition(
			"glazed",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Emit the result as a structured row instead of markdown"),
			parameters.WithDefault(false),
		),
	)

	return &SolveCommand{
		CommandDescription: cmds.NewCommandDescription(
			"solve",
			cmds.WithShort("Answer a question with a chain of reasoning steps"),
			cmds.WithLong(`Answer a question with a chain of reasoning steps.

The fixed mode always runs --steps generation calls. The dynamic mode stops as
soon as a step contains a detectable answer and asks for a final answer after
--max-steps steps otherwise.

Examples:
  pensieri solve "What is 15% of 80?"
  pensieri solve --mode fixed --steps 4 --domain math "What is 3/4 of 120?"
  pensieri solve --provider gemini --glazed --output json "Is 97 prime?"`),
			cmds.WithFlags(flags...),
			cmds.WithArguments(questionArgument()),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *SolveCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	ss := &SolveSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, ss); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	v := viper.GetViper()
	s, err := loadStepSettings(v, settings.NewStepSettings())
	if err != nil {
		return err
	}

	res, err := solveQuestion(ctx, v, s, strings.Join(ss.Question, " "), ss.ShowProgress, os.Stderr)
	if err != nil {
		return err
	}

	if !ss.Glazed {
		return writeMarkdown(os.Stdout, resultMarkdown(res, ss.PrintSteps))
	}
	return gp.AddRow(ctx, resultRow(res))
}

// solveQuestion runs one question with the mode and step bound from s. With
// showProgress set, step events are printed to w as they happen.
func solveQuestion(
	ctx context.Context,
	v *viper.Viper,
	s *settings.StepSettings,
	question string,
	showProgress bool,
	w io.Writer,
) (*cot.Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}

	steps := s.Reasoning.MaxSteps
	if s.Reasoning.Mode == types.ReasoningModeFixed {
		steps = s.Reasoning.Steps
	}

	log.Debug().
		Interface("settings", s.GetMetadata()).
		Str("question", question).
		Msg("Solving")

	var res *cot.Result
	err := withEventPrinter(ctx, showProgress, v.GetBool("verbose"), w,
		func(ctx context.Context) error {
			e, err := createEngine(ctx, v, s)
			if err != nil {
				return err
			}
			solver, err := cot.NewSolver(s.Reasoning.Mode, e, cotOptions(s)...)
			if err != nil {
				return err
			}
			res, err = solver.Solve(ctx, question, steps, s.Chat.GetTemperature())
			return err
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func resultRow(res *cot.Result) glazed_types.Row {
	return glazed_types.NewRow(
		glazed_types.MRP("id", res.ID),
		glazed_types.MRP("question", res.Question),
		glazed_types.MRP("mode", string(res.Mode)),
		glazed_types.MRP("final_answer", res.FinalAnswer),
		glazed_types.MRP("answer_found", res.AnswerFound),
		glazed_types.MRP("forced", res.Forced),
		glazed_types.MRP("steps_taken", res.StepsTaken),
		glazed_types.MRP("generation_calls", res.GenerationCalls),
		glazed_types.MRP("prompt_tokens", res.PromptTokens),
		glazed_types.MRP("duration", res.Duration.String()),
		glazed_types.MRP("reasoning_steps", res.ReasoningSteps),
	)
}
