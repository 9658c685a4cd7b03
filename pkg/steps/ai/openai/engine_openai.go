package openai

import (
	"context"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine implements the Engine interface for OpenAI chat completions.
type OpenAIEngine struct {
	settings *settings.StepSettings
	client   *go_openai.Client
}

var _ engine.Engine = (*OpenAIEngine)(nil)

// NewOpenAIEngine creates the client up front, so missing credentials are
// reported as a ConfigurationError at construction time.
func NewOpenAIEngine(settings *settings.StepSettings) (*OpenAIEngine, error) {
	if settings == nil || settings.Chat == nil || settings.API == nil {
		return nil, engine.NewConfigurationError(string(ai_types.ApiTypeOpenAI), "missing chat or API settings")
	}
	client, err := MakeClient(settings, ai_types.ApiTypeOpenAI)
	if err != nil {
		return nil, err
	}

	return &OpenAIEngine{
		settings: settings,
		client:   client,
	}, nil
}

func (e *OpenAIEngine) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	req := MakeCompletionRequest(e.settings.Chat, prompt, temperature)

	log.Debug().
		Str("model", req.Model).
		Float32("temperature", req.Temperature).
		Int("prompt_length", len(prompt)).
		Msg("OpenAI generate")

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	log.Debug().
		Str("model", resp.Model).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("OpenAI generate finished")

	return resp.Choices[0].Message.Content, nil
}
