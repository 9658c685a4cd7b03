package cmds

import (
	"context"
	"strings"
	"time"

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

// ProviderRun is the outcome of one provider in a comparison.
type ProviderRun struct {
	Provider string
	Model    string
	Result   *cot.Result
	Error    string
	Duration time.Duration
}

type CompareCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*CompareCommand)(nil)

type CompareSettings struct {
	Question  []string `glazed.parameter:"question"`
	Providers []string `glazed.parameter:"providers"`
}

func NewCompareCommand() (*CompareCommand, error) {
	glazedParameterLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	flags := append(reasoningFlags(10),
		parameters.NewParameterDefinition(
			"providers",
			parameters.ParameterTypeStringList,
			parameters.WithHelp("Providers to compare"),
			parameters.WithDefault([]string{"openai", "gemini"}),
		),
	)

	return &CompareCommand{
		CommandDescription: cmds.NewCommandDescription(
			"compare",
			cmds.WithShort("Answer the same question with several providers"),
			cmds.WithLong(`Answer the same question with several providers, one after the other.

Each provider is one row. A provider that fails is reported in the error
column and does not stop the comparison. --model only applies to the first
provider; the others use their default model.`),
			cmds.WithFlags(flags...),
			cmds.WithArguments(questionArgument()),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *CompareCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	cs := &CompareSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, cs); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	runs, err := runCompare(ctx, viper.GetViper(), strings.Join(cs.Question, " "), cs.Providers)
	if err != nil {
		return err
	}

	for _, run := range runs {
		finalAnswer, stepsTaken, generationCalls := "", 0, 0
		if run.Result != nil {
			finalAnswer = run.Result.FinalAnswer
			stepsTaken = run.Result.StepsTaken
			generationCalls = run.Result.GenerationCalls
		}
		row := glazed_types.NewRow(
			glazed_types.MRP("provider", run.Provider),
			glazed_types.MRP("model", run.Model),
			glazed_types.MRP("final_answer", finalAnswer),
			glazed_types.MRP("steps_taken", stepsTaken),
			glazed_types.MRP("generation_calls", generationCalls),
			glazed_types.MRP("duration", run.Duration.Round(time.Millisecond).String()),
			glazed_types.MRP("error", run.Error),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func runCompare(ctx context.Context, v *viper.Viper, question string, providers []string) ([]ProviderRun, error) {
	base, err := loadStepSettings(v, settings.NewStepSettings())
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}
	steps := base.Reasoning.MaxSteps
	if base.Reasoning.Mode == types.ReasoningModeFixed {
		steps = base.Reasoning.Steps
	}

	var runs []ProviderRun
	for i, provider := range providers {
		s := base.Clone()
		apiType := types.ApiType(strings.TrimSpace(provider))
		s.Chat.ApiType = &apiType
		if i > 0 || !v.IsSet("model") {
			s.Chat.Engine = nil
		}

		runs = append(runs, compareProvider(ctx, v, s, question, steps))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func compareProvider(ctx context.Context, v *viper.Viper, s *settings.StepSettings, question string, steps int) ProviderRun {
	run := ProviderRun{
		Provider: string(s.GetApiType()),
		Model:    s.Chat.GetEngine(),
	}
	start := time.Now()

	res, err := func() (*cot.Result, error) {
		e, err := createEngine(ctx, v, s)
		if err != nil {
			return nil, err
		}
		solver, err := cot.NewSolver(s.Reasoning.Mode, e, cotOptions(s)...)
		if err != nil {
			return nil, err
		}
		return solver.Solve(ctx, question, steps, s.Chat.GetTemperature())
	}()
	run.Duration = time.Since(start)
	if err != nil {
		log.Warn().Err(err).Str("provider", run.Provider).Msg("Provider failed")
		run.Error = err.Error()
		return run
	}
	run.Result = res
	return run
}
