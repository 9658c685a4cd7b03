package settings

import (
	"io"
	"os"
	"time"

	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type StepSettings struct {
	Chat      *ChatSettings      `yaml:"chat,omitempty"`
	API       *APISettings       `yaml:"api,omitempty"`
	Client    *ClientSettings    `yaml:"client,omitempty"`
	Retry     *RetrySettings     `yaml:"retry,omitempty"`
	RateLimit *RateLimitSettings `yaml:"rate_limit,omitempty"`
	Reasoning *ReasoningSettings `yaml:"reasoning,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat:      NewChatSettings(),
		API:       NewAPISettings(),
		Client:    NewClientSettings(),
		Retry:     NewRetrySettings(),
		RateLimit: NewRateLimitSettings(),
		Reasoning: NewReasoningSettings(),
	}
}

// NewStepSettingsFromYAML decodes settings on top of the defaults, so a file
// only needs to list what it overrides.
func NewStepSettingsFromYAML(s io.Reader) (*StepSettings, error) {
	settings_ := NewStepSettings()
	if err := settings_.UpdateFromYAML(s); err != nil {
		return nil, err
	}
	return settings_, nil
}

// UpdateFromYAML decodes s on top of the current values. Keys missing from
// s are left alone.
func (ss *StepSettings) UpdateFromYAML(s io.Reader) error {
	if err := yaml.NewDecoder(s).Decode(ss); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (ss *StepSettings) Clone() *StepSettings {
	return &StepSettings{
		Chat:      ss.Chat.Clone(),
		API:       ss.API.Clone(),
		Client:    ss.Client.Clone(),
		Retry:     ss.Retry.Clone(),
		RateLimit: ss.RateLimit.Clone(),
		Reasoning: ss.Reasoning.Clone(),
	}
}

// GetApiType returns the configured provider, defaulting to openai.
func (ss *StepSettings) GetApiType() types.ApiType {
	if ss.Chat == nil || ss.Chat.ApiType == nil || *ss.Chat.ApiType == "" {
		return types.ApiTypeOpenAI
	}
	return *ss.Chat.ApiType
}

// UpdateFromViper applies every key that is explicitly set in v (flags, env
// or config file). Provider API keys additionally fall back to the
// conventional OPENAI_API_KEY / GEMINI_API_KEY environment variables.
func (ss *StepSettings) UpdateFromViper(v *viper.Viper) {
	if v.IsSet("provider") {
		apiType := types.ApiType(v.GetString("provider"))
		ss.Chat.ApiType = &apiType
	}
	if v.IsSet("model") {
		model := v.GetString("model")
		ss.Chat.Engine = &model
	}
	if v.IsSet("temperature") {
		temperature := v.GetFloat64("temperature")
		ss.Chat.Temperature = &temperature
	}
	if v.IsSet("max-response-tokens") {
		n := v.GetInt("max-response-tokens")
		ss.Chat.MaxResponseTokens = &n
	}
	if v.IsSet("standard-format") {
		ss.Chat.StandardFormat = v.GetBool("standard-format")
	}

	for _, apiType := range []types.ApiType{types.ApiTypeOpenAI, types.ApiTypeGemini} {
		keyName := string(apiType) + "-api-key"
		if key := v.GetString(keyName); key != "" {
			ss.API.APIKeys[keyName] = key
		} else if _, ok := ss.API.APIKeys[keyName]; !ok {
			if key := os.Getenv(envAPIKey(apiType)); key != "" {
				ss.API.APIKeys[keyName] = key
			}
		}
		urlName := string(apiType) + "-base-url"
		if url := v.GetString(urlName); url != "" {
			ss.API.BaseUrls[urlName] = url
		}
	}

	if v.IsSet("timeout") {
		timeout := v.GetDuration("timeout")
		seconds := int(timeout / time.Second)
		ss.Client.Timeout = &timeout
		ss.Client.TimeoutSeconds = &seconds
	}

	if v.IsSet("max-retries") {
		ss.Retry.MaxRetries = v.GetInt("max-retries")
	}
	if v.IsSet("base-delay") {
		ss.Retry.BaseDelay = v.GetDuration("base-delay")
	}
	if v.IsSet("max-delay") {
		ss.Retry.MaxDelay = v.GetDuration("max-delay")
	}
	if v.IsSet("requests-per-minute") {
		ss.RateLimit.RequestsPerMinute = v.GetFloat64("requests-per-minute")
	}

	if v.IsSet("mode") {
		ss.Reasoning.Mode = types.ReasoningMode(v.GetString("mode"))
	}
	if v.IsSet("steps") {
		ss.Reasoning.Steps = v.GetInt("steps")
	}
	if v.IsSet("max-steps") {
		ss.Reasoning.MaxSteps = v.GetInt("max-steps")
	}
	if v.IsSet("compact-threshold") {
		ss.Reasoning.CompactThreshold = v.GetInt("compact-threshold")
	}
	if v.IsSet("domain") {
		ss.Reasoning.Domain = v.GetString("domain")
	}
	if v.IsSet("tolerance") {
		ss.Reasoning.Tolerance = v.GetFloat64("tolerance")
	}
}

func envAPIKey(apiType types.ApiType) string {
	switch apiType {
	case types.ApiTypeGemini:
		return "GEMINI_API_KEY"
	case types.ApiTypeOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if ss.Chat != nil {
		metadata["ai-api-type"] = string(ss.GetApiType())
		metadata["ai-engine"] = ss.Chat.GetEngine()
		metadata["ai-temperature"] = ss.Chat.GetTemperature()
		if ss.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *ss.Chat.MaxResponseTokens
		}
	}

	if ss.Retry != nil {
		metadata["retry-max-retries"] = ss.Retry.MaxRetries
		metadata["retry-base-delay"] = ss.Retry.BaseDelay.String()
		metadata["retry-max-delay"] = ss.Retry.MaxDelay.String()
	}

	if ss.RateLimit != nil {
		metadata["rate-limit-rpm"] = ss.RateLimit.GetRequestsPerMinute(ss.GetApiType())
	}

	if ss.Reasoning != nil {
		metadata["reasoning-mode"] = string(ss.Reasoning.Mode)
		metadata["reasoning-steps"] = ss.Reasoning.Steps
		metadata["reasoning-max-steps"] = ss.Reasoning.MaxSteps
		metadata["reasoning-domain"] = ss.Reasoning.Domain
	}

	return metadata
}
