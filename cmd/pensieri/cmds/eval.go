package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	glazed_settings "github.com/go-go-golems/glazed/pkg/settings"
	glazed_types "github.com/go-go-golems/glazed/pkg/types"
	"github.com/go-go-golems/pensieri/pkg/eval"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type EvalCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*EvalCommand)(nil)

type EvalSettings struct {
	Problems    string   `glazed.parameter:"problems"`
	Methods     []string `glazed.parameter:"methods"`
	Concurrency int      `glazed.parameter:"concurrency"`
	Progress    bool     `glazed.parameter:"progress"`
	Report      string   `glazed.parameter:"report"`
}

// defaultEvalMaxSteps bounds the dynamic method unless the settings file or
// --max-steps say otherwise.
const defaultEvalMaxSteps = 5

func NewEvalCommand() (*EvalCommand, error) {
	glazedParameterLayer, err := glazed_settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}

	return &EvalCommand{
		CommandDescription: cmds.NewCommandDescription(
			"eval",
			cmds.WithShort("Score the reasoning modes against problems with known answers"),
			cmds.WithLong(`Score the reasoning modes against problems with known numeric answers.

Without a file the built-in problem set is used. Answers are extracted from
the final response and pass when they are within an absolute tolerance of the
expected value. A percentage also matches its decimal form.

--steps, --max-steps and --tolerance fall back to the reasoning section of
the --settings file.

The summary report has one row per method; outcomes has one row per scored
answer and failures only the wrong ones.`),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"methods",
					parameters.ParameterTypeStringList,
					parameters.WithHelp("Methods to score (dynamic, fixed, direct)"),
					parameters.WithDefault([]string{"dynamic", "fixed", "direct"}),
				),
				parameters.NewParameterDefinition(
					"steps",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Number of steps for the fixed method"),
					parameters.WithDefault(3),
				),
				parameters.NewParameterDefinition(
					"max-steps",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Maximum number of steps for the dynamic method"),
					parameters.WithDefault(defaultEvalMaxSteps),
				),
				parameters.NewParameterDefinition(
					"tolerance",
					parameters.ParameterTypeFloat,
					parameters.WithHelp("Absolute tolerance for numeric answers"),
					parameters.WithDefault(eval.DefaultTolerance),
				),
				parameters.NewParameterDefinition(
					"concurrency",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Problems solved in parallel"),
					parameters.WithDefault(1),
				),
				parameters.NewParameterDefinition(
					"progress",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Log every scored answer"),
					parameters.WithDefault(false),
				),
				parameters.NewParameterDefinition(
					"report",
					parameters.ParameterTypeChoice,
					parameters.WithHelp("Rows to emit"),
					parameters.WithChoices("summary", "outcomes", "failures"),
					parameters.WithDefault("summary"),
				),
			),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"problems",
					parameters.ParameterTypeString,
					parameters.WithHelp("YAML problem set (default: built-in problems)"),
				),
			),
			cmds.WithLayersList(glazedParameterLayer),
		),
	}, nil
}

func (c *EvalCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	gp middlewares.Processor,
) error {
	es := &EvalSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, es); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	report, err := runEval(ctx, viper.GetViper(), es)
	if err != nil {
		return err
	}

	switch es.Report {
	case "outcomes":
		return addOutcomeRows(ctx, gp, report.Outcomes)
	case "failures":
		return addOutcomeRows(ctx, gp, report.Failures())
	default:
		for _, s := range report.Summaries() {
			row := glazed_types.NewRow(
				glazed_types.MRP("method", string(s.Method)),
				glazed_types.MRP("passed", s.Passed),
				glazed_types.MRP("failed", s.Failed),
				glazed_types.MRP("errors", s.Errors),
				glazed_types.MRP("accuracy", s.Accuracy),
			)
			if err := gp.AddRow(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
}

// evalBaseSettings are the defaults the --settings file and flags apply on.
func evalBaseSettings() *settings.StepSettings {
	s := settings.NewStepSettings()
	s.Reasoning.MaxSteps = defaultEvalMaxSteps
	return s
}

func runEval(ctx context.Context, v *viper.Viper, es *EvalSettings) (*eval.Report, error) {
	s, err := loadStepSettings(v, evalBaseSettings())
	if err != nil {
		return nil, err
	}

	set := eval.DefaultProblemSet()
	if es.Problems != "" {
		set, err = eval.LoadProblemSetFile(es.Problems)
		if err != nil {
			return nil, err
		}
	}

	var methods []eval.Method
	for _, name := range es.Methods {
		m, err := eval.ParseMethod(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	e, err := createEngine(ctx, v, s)
	if err != nil {
		return nil, err
	}

	options := []eval.RunnerOption{
		eval.WithSteps(s.Reasoning.Steps, s.Reasoning.MaxSteps),
		eval.WithTemperature(s.Chat.GetTemperature()),
		eval.WithTolerance(s.Reasoning.Tolerance),
		eval.WithConcurrency(es.Concurrency),
		eval.WithCotOptions(cotOptions(s)...),
	}
	if len(methods) > 0 {
		options = append(options, eval.WithMethods(methods...))
	}
	if es.Progress {
		options = append(options, eval.WithOnOutcome(func(o eval.Outcome) {
			log.Info().
				Int("problem", o.Index+1).
				Str("method", string(o.Method)).
				Str("expected", o.Expected).
				Str("got", o.Got).
				Bool("correct", o.Correct).
				Msg("Scored")
		}))
	}

	return eval.NewRunner(e, options...).Run(ctx, set)
}

func addOutcomeRows(ctx context.Context, gp middlewares.Processor, outcomes []eval.Outcome) error {
	for _, o := range outcomes {
		row := glazed_types.NewRow(
			glazed_types.MRP("problem", o.Index+1),
			glazed_types.MRP("method", string(o.Method)),
			glazed_types.MRP("expected", o.Expected),
			glazed_types.MRP("got", o.Got),
			glazed_types.MRP("correct", o.Correct),
			glazed_types.MRP("steps_taken", o.StepsTaken),
			glazed_types.MRP("error", o.Error),
			glazed_types.MRP("duration", o.Duration.String()),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
