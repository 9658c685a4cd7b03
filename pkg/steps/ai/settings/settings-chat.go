package settings

import (
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

type ChatSettings struct {
	Engine            *string        `yaml:"engine,omitempty"`
	ApiType           *types.ApiType `yaml:"api_type,omitempty"`
	MaxResponseTokens *int           `yaml:"max_response_tokens,omitempty"`
	Temperature       *float64       `yaml:"temperature,omitempty"`
	// StandardFormat appends the FINAL_ANSWER formatting hint to question prompts
	// that do not already ask for it.
	StandardFormat bool `yaml:"standard_format,omitempty"`
}

const DefaultTemperature = 0.7

func NewChatSettings() *ChatSettings {
	apiType := types.ApiTypeOpenAI
	temperature := DefaultTemperature
	return &ChatSettings{
		ApiType:        &apiType,
		Temperature:    &temperature,
		StandardFormat: true,
	}
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

// GetTemperature returns the configured temperature or the package default.
func (s *ChatSettings) GetTemperature() float64 {
	if s == nil || s.Temperature == nil {
		return DefaultTemperature
	}
	return *s.Temperature
}

// GetEngine returns the configured model name, falling back to the provider default.
func (s *ChatSettings) GetEngine() string {
	if s != nil && s.Engine != nil && *s.Engine != "" {
		return *s.Engine
	}
	if s == nil || s.ApiType == nil {
		return DefaultEngine(types.ApiTypeOpenAI)
	}
	return DefaultEngine(*s.ApiType)
}

// DefaultEngine is the model used when none is configured.
func DefaultEngine(apiType types.ApiType) string {
	switch apiType {
	case types.ApiTypeGemini:
		return "gemini-2.0-flash"
	case types.ApiTypeOpenAI:
		return "gpt-4o"
	default:
		return ""
	}
}
