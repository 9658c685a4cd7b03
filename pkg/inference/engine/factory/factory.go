package factory

import (
	"context"
	"strings"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/inference/ratelimit"
	"github.com/go-go-golems/pensieri/pkg/inference/retry"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/gemini"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/openai"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EngineFactory creates generation engines based on provider settings.
// This interface allows external control over which AI provider engine is used
// without the calling code needing to know specific implementations.
type EngineFactory interface {
	// CreateEngine creates an Engine instance based on the provided settings.
	// The actual provider is determined from settings.Chat.ApiType.
	// Returns a ConfigurationError if the provider is unsupported or credentials are missing.
	CreateEngine(ctx context.Context, settings *settings.StepSettings, options ...Option) (engine.Engine, error)

	// SupportedProviders returns a list of provider names this factory supports.
	SupportedProviders() []string

	// DefaultProvider returns the name of the default provider used when
	// settings.Chat.ApiType is nil or not specified.
	DefaultProvider() string
}

type config struct {
	limiter *ratelimit.Limiter
	clock   ratelimit.Clock
	jitter  retry.JitterFunc
	onRetry retry.OnRetryFunc
	raw     bool
}

type Option func(*config)

// WithLimiter shares an existing limiter instead of creating one per engine.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *config) {
		c.limiter = limiter
	}
}

func WithClock(clock ratelimit.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

func WithJitter(jitter retry.JitterFunc) Option {
	return func(c *config) {
		c.jitter = jitter
	}
}

func WithOnRetry(f retry.OnRetryFunc) Option {
	return func(c *config) {
		c.onRetry = f
	}
}

// WithoutRetry returns the bare provider engine, with neither rate limiting nor retries.
func WithoutRetry() Option {
	return func(c *config) {
		c.raw = true
	}
}

// StandardEngineFactory is the default implementation of EngineFactory.
// Provider selection is based on settings.Chat.ApiType with fallback to OpenAI.
// Engines are wrapped in a retry.Requestor that owns a rate limiter sized by
// settings.RateLimit.
type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

func (f *StandardEngineFactory) CreateEngine(
	ctx context.Context,
	settings *settings.StepSettings,
	options ...Option,
) (engine.Engine, error) {
	if settings == nil {
		return nil, engine.NewConfigurationError("", "settings cannot be nil")
	}

	cfg := &config{clock: ratelimit.RealClock}
	for _, o := range options {
		o(cfg)
	}

	provider := f.DefaultProvider()
	if settings.Chat != nil && settings.Chat.ApiType != nil && *settings.Chat.ApiType != "" {
		provider = strings.ToLower(string(*settings.Chat.ApiType))
	}

	if err := f.validateSettings(settings, provider); err != nil {
		return nil, err
	}

	var base engine.Engine
	var err error
	switch provider {
	case string(types.ApiTypeOpenAI):
		if model := settings.Chat.GetEngine(); !openai.IsOpenAiEngine(model) {
			log.Debug().Str("model", model).Msg("Model name does not look like an OpenAI model, assuming a compatible endpoint")
		}
		base, err = openai.NewOpenAIEngine(settings)
	case string(types.ApiTypeGemini):
		base, err = gemini.NewGeminiEngine(ctx, settings)
	default:
		supported := strings.Join(f.SupportedProviders(), ", ")
		return nil, engine.NewConfigurationError(provider, "unsupported provider. Supported providers: %s", supported)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s engine", provider)
	}

	if cfg.raw {
		return base, nil
	}

	limiter := cfg.limiter
	if limiter == nil {
		rpm := settings.RateLimit.GetRequestsPerMinute(types.ApiType(provider))
		limiter = ratelimit.NewLimiter(rpm, ratelimit.WithClock(cfg.clock))
	}

	retryOptions := []retry.Option{
		retry.WithLimiter(limiter),
		retry.WithClock(cfg.clock),
	}
	if cfg.jitter != nil {
		retryOptions = append(retryOptions, retry.WithJitter(cfg.jitter))
	}
	if cfg.onRetry != nil {
		retryOptions = append(retryOptions, retry.WithOnRetry(cfg.onRetry))
	}

	log.Debug().
		Str("provider", provider).
		Str("model", settings.Chat.GetEngine()).
		Dur("min_interval", limiter.Interval()).
		Int("max_retries", settings.Retry.MaxRetries).
		Msg("Created engine")

	return retry.NewRequestor(base, settings.Retry, retryOptions...), nil
}

// SupportedProviders returns the list of AI providers this factory can create engines for.
func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{
		string(types.ApiTypeOpenAI),
		string(types.ApiTypeGemini),
	}
}

// DefaultProvider returns the default provider name used when no ApiType is specified.
func (f *StandardEngineFactory) DefaultProvider() string {
	return string(types.ApiTypeOpenAI)
}

// validateSettings performs basic validation of settings for the specified provider.
func (f *StandardEngineFactory) validateSettings(settings *settings.StepSettings, provider string) error {
	if settings.Chat == nil {
		return engine.NewConfigurationError(provider, "chat settings cannot be nil")
	}
	if settings.API == nil {
		return engine.NewConfigurationError(provider, "API settings cannot be nil")
	}
	if settings.Retry == nil {
		return engine.NewConfigurationError(provider, "retry settings cannot be nil")
	}
	if settings.Retry.MaxRetries < 0 {
		return engine.NewConfigurationError(provider, "max retries must not be negative")
	}
	if settings.Retry.BaseDelay < 0 || settings.Retry.MaxDelay < settings.Retry.BaseDelay {
		return engine.NewConfigurationError(provider, "invalid backoff bounds %s..%s", settings.Retry.BaseDelay, settings.Retry.MaxDelay)
	}

	switch provider {
	case string(types.ApiTypeOpenAI), string(types.ApiTypeGemini):
		apiKeyName := provider + "-api-key"
		if key, ok := settings.API.APIKeys[apiKeyName]; !ok || key == "" {
			return engine.NewConfigurationError(provider, "missing API key %s", apiKeyName)
		}
		return nil
	default:
		supported := strings.Join(f.SupportedProviders(), ", ")
		return engine.NewConfigurationError(provider, "unsupported provider. Supported providers: %s", supported)
	}
}

// Compile-time check that StandardEngineFactory implements EngineFactory
var _ EngineFactory = (*StandardEngineFactory)(nil)
