package cmds

import (
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/pensieri/pkg/cot"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/spf13/pflag"
)

// AddProviderFlags registers the flags shared by every command that talks to
// a provider. They are bound to viper by the root command, so they can also
// come from PENSIERI_* environment variables or the config file.
func AddProviderFlags(fs *pflag.FlagSet) {
	fs.String("provider", "openai", "Provider to use (openai, gemini)")
	fs.String("model", "", "Model name (default gpt-4o for openai, gemini-2.0-flash for gemini)")
	fs.Float64("temperature", settings.DefaultTemperature, "Sampling temperature")
	fs.Int("max-response-tokens", 0, "Maximum tokens per response (0 for provider default)")
	fs.Bool("standard-format", true, "Append the FINAL_ANSWER formatting hint to direct openai prompts")

	fs.String("openai-api-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	fs.String("openai-base-url", "", "OpenAI compatible base URL")
	fs.String("gemini-api-key", "", "Gemini API key (default $GEMINI_API_KEY)")
	fs.String("gemini-base-url", "", "Gemini base URL")
	fs.Duration("timeout", 60*time.Second, "HTTP timeout per request")

	fs.Int("max-retries", 5, "Retries after a failed generation call")
	fs.Duration("base-delay", 2*time.Second, "Initial retry backoff")
	fs.Duration("max-delay", 60*time.Second, "Maximum retry backoff")
	fs.Float64("requests-per-minute", 0, "Rate limit (0 for the provider default: openai 20, gemini 2)")

	fs.String("settings", "", "YAML file with step settings, applied before flags")
	fs.String("fixture", "", "Replay responses from a YAML fixture instead of calling a provider")
}

// reasoningFlags are read back through viper by StepSettings.UpdateFromViper,
// which only applies the ones given on the command line. Their defaults are
// for the help output.
func reasoningFlags(defaultMaxSteps int) []*parameters.ParameterDefinition {
	return []*parameters.ParameterDefinition{
		parameters.NewParameterDefinition(
			"mode",
			parameters.ParameterTypeChoice,
			parameters.WithHelp("Reasoning mode"),
			parameters.WithChoices("dynamic", "fixed"),
			parameters.WithDefault("dynamic"),
		),
		parameters.NewParameterDefinition(
			"steps",
			parameters.ParameterTypeInteger,
			parameters.WithHelp("Number of steps for the fixed mode"),
			parameters.WithDefault(3),
		),
		parameters.NewParameterDefinition(
			"max-steps",
			parameters.ParameterTypeInteger,
			parameters.WithHelp("Maximum number of steps for the dynamic mode"),
			parameters.WithDefault(defaultMaxSteps),
		),
		parameters.NewParameterDefinition(
			"domain",
			parameters.ParameterTypeString,
			parameters.WithHelp("Prompt domain ("+strings.Join(cot.Domains(), ", ")+")"),
			parameters.WithDefault(cot.DefaultDomain),
		),
		parameters.NewParameterDefinition(
			"compact-threshold",
			parameters.ParameterTypeInteger,
			parameters.WithHelp("Characters of reasoning above which only the last two steps are kept"),
			parameters.WithDefault(cot.DefaultCompactThreshold),
		),
	}
}

func questionArgument() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"question",
		parameters.ParameterTypeStringList,
		parameters.WithHelp("Question to answer"),
		parameters.WithRequired(true),
	)
}
