package openai

import (
	"math"
	"strings"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	ai_types "github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	go_openai "github.com/sashabaranov/go-openai"
)

const standardFormatHint = "\n\nIMPORTANT: If your answer includes a numerical value, provide it in decimal format (not as a fraction), " +
	"rounded to 2 decimal places if needed. Put your final numerical answer within these delimiters: " +
	"FINAL_ANSWER: [your numerical answer here] END_ANSWER"

func IsOpenAiEngine(engine string) bool {
	if strings.HasPrefix(engine, "gpt") {
		return true
	}
	if strings.HasPrefix(engine, "text-") {
		return true
	}

	return false
}

// reasoning models only accept the default temperature
func isReasoningModel(engine string) bool {
	m := strings.ToLower(strings.TrimSpace(engine))
	return strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") ||
		strings.HasPrefix(m, "gpt-5")
}

// withStandardFormat appends the delimiter instructions to question prompts
// that don't already carry them.
func withStandardFormat(prompt string) string {
	if strings.Contains(prompt, "Question:") && !strings.Contains(prompt, "FINAL_ANSWER:") {
		return prompt + standardFormatHint
	}
	return prompt
}

// MakeCompletionRequest builds a single-message chat completion request.
func MakeCompletionRequest(chatSettings *settings.ChatSettings, prompt string, temperature float64) go_openai.ChatCompletionRequest {
	model := chatSettings.GetEngine()
	if chatSettings.StandardFormat {
		prompt = withStandardFormat(prompt)
	}

	req := go_openai.ChatCompletionRequest{
		Model: model,
		Messages: []go_openai.ChatCompletionMessage{
			{Role: go_openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if chatSettings.MaxResponseTokens != nil {
		req.MaxTokens = *chatSettings.MaxResponseTokens
	}
	if !isReasoningModel(model) {
		// temperature is omitempty, a zero would silently become the API default of 1
		t := float32(temperature)
		if t == 0 {
			t = math.SmallestNonzeroFloat32
		}
		req.Temperature = t
	}

	return req
}

func MakeClient(stepSettings *settings.StepSettings, apiType ai_types.ApiType) (*go_openai.Client, error) {
	apiKey, ok := stepSettings.API.APIKeys[string(apiType)+"-api-key"]
	if !ok || apiKey == "" {
		return nil, engine.NewConfigurationError(string(apiType), "no API key %s-api-key", apiType)
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL, ok := stepSettings.API.BaseUrls[string(apiType)+"-base-url"]; ok && baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = stepSettings.Client.GetHTTPClient()
	client := go_openai.NewClientWithConfig(config)
	return client, nil
}
