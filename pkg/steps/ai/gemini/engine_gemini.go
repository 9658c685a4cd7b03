package gemini

import (
	"context"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiEngine implements the Engine interface for Google's Gemini API
type GeminiEngine struct {
	settings *settings.StepSettings
	client   *genai.Client
	model    string
}

var _ engine.Engine = (*GeminiEngine)(nil)

// NewGeminiEngine creates a new Gemini engine. The API key is read from
// settings.API.APIKeys["gemini-api-key"]; a missing key is a ConfigurationError.
func NewGeminiEngine(ctx context.Context, settings *settings.StepSettings) (*GeminiEngine, error) {
	provider := string(ai_types.ApiTypeGemini)
	if settings == nil || settings.Chat == nil || settings.API == nil {
		return nil, engine.NewConfigurationError(provider, "missing chat or API settings")
	}
	apiKey := settings.API.APIKeys[provider+"-api-key"]
	if apiKey == "" {
		return nil, engine.NewConfigurationError(provider, "no API key %s-api-key", provider)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: settings.Client.GetHTTPClient(),
	}
	if baseURL := settings.API.BaseUrls[provider+"-base-url"]; baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}

	model := settings.Chat.GetEngine()
	if !IsGeminiEngine(model) {
		log.Warn().Str("model", model).Msg("Model name does not look like a Gemini model")
	}

	return &GeminiEngine{
		settings: settings,
		client:   client,
		model:    model,
	}, nil
}

func (e *GeminiEngine) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if e.settings.Chat.MaxResponseTokens != nil {
		cfg.MaxOutputTokens = int32(*e.settings.Chat.MaxResponseTokens)
	}

	log.Debug().
		Str("model", e.model).
		Float64("temperature", temperature).
		Int("prompt_length", len(prompt)).
		Msg("Gemini generate")

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	if resp.UsageMetadata != nil {
		log.Debug().
			Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount).
			Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount).
			Str("finish_reason", string(resp.Candidates[0].FinishReason)).
			Msg("Gemini generate finished")
	}

	return resp.Text(), nil
}
