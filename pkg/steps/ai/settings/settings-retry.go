package settings

import (
	"time"

	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

type RetrySettings struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	// QuotaCooldown is added to the backoff when the provider reports quota exhaustion.
	QuotaCooldown time.Duration `yaml:"quota_cooldown"`
}

func NewRetrySettings() *RetrySettings {
	return &RetrySettings{
		MaxRetries:    5,
		BaseDelay:     2 * time.Second,
		MaxDelay:      60 * time.Second,
		QuotaCooldown: 10 * time.Second,
	}
}

func (s *RetrySettings) Clone() *RetrySettings {
	return clone.Clone(s).(*RetrySettings)
}

type RateLimitSettings struct {
	// RequestsPerMinute of 0 means "use the provider default".
	RequestsPerMinute float64 `yaml:"requests_per_minute,omitempty"`
}

func NewRateLimitSettings() *RateLimitSettings {
	return &RateLimitSettings{}
}

func (s *RateLimitSettings) Clone() *RateLimitSettings {
	return clone.Clone(s).(*RateLimitSettings)
}

// GetRequestsPerMinute resolves the effective limit for the given provider.
func (s *RateLimitSettings) GetRequestsPerMinute(apiType types.ApiType) float64 {
	if s != nil && s.RequestsPerMinute > 0 {
		return s.RequestsPerMinute
	}
	return DefaultRequestsPerMinute(apiType)
}

// DefaultRequestsPerMinute matches the free-tier quotas of each provider.
func DefaultRequestsPerMinute(apiType types.ApiType) float64 {
	switch apiType {
	case types.ApiTypeGemini:
		return 2
	case types.ApiTypeOpenAI:
		return 20
	default:
		return 0
	}
}
