package cmds

import (
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/middlewares"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildCobraCommandWithPensieriMiddlewares turns a glazed command into a
// cobra command whose flags are also visible through viper.
func BuildCobraCommandWithPensieriMiddlewares(
	cmd cmds.Command,
	options ...cli.CobraParserOption,
) (*cobra.Command, error) {
	options_ := append([]cli.CobraParserOption{
		cli.WithCobraMiddlewaresFunc(GetCobraCommandPensieriMiddlewares),
		cli.WithCobraShortHelpLayers(layers.DefaultSlug),
	}, options...)

	return cli.BuildCobraCommandFromCommand(cmd, options_...)
}

func GetCobraCommandPensieriMiddlewares(
	_ *cli.GlazedCommandSettings,
	cmd *cobra.Command,
	args []string,
) ([]middlewares.Middleware, error) {
	// StepSettings.UpdateFromViper picks up the command flags the user set
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	return []middlewares.Middleware{
		middlewares.ParseFromCobraCommand(cmd,
			parameters.WithParseStepSource("cobra"),
		),
		middlewares.GatherArguments(args,
			parameters.WithParseStepSource("arguments"),
		),
		middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
	}, nil
}

// AddToRootCommand registers solve, eval, compare and tokens on rootCmd.
func AddToRootCommand(rootCmd *cobra.Command) error {
	solveCmd, err := NewSolveCommand()
	if err != nil {
		return err
	}
	evalCmd, err := NewEvalCommand()
	if err != nil {
		return err
	}
	compareCmd, err := NewCompareCommand()
	if err != nil {
		return err
	}

	for _, c := range []cmds.Command{solveCmd, evalCmd, compareCmd} {
		cobraCmd, err := BuildCobraCommandWithPensieriMiddlewares(c)
		if err != nil {
			return err
		}
		rootCmd.AddCommand(cobraCmd)
	}

	tokensCmd, err := NewTokensCommand()
	if err != nil {
		return err
	}
	rootCmd.AddCommand(tokensCmd)

	return nil
}
