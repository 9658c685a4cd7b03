package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Engine is a text generation capability. Engines handle provider-specific
// logic for services like OpenAI and Gemini; everything above this interface
// only deals with prompts and generated text.
type Engine interface {
	// Generate sends a single prompt and returns the generated text.
	// Temperature is passed through to the provider as-is.
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

func (f EngineFunc) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}

// ConfigurationError reports missing credentials or an unknown provider.
// It is fatal: retrying cannot fix it.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for provider %s: %s", e.Provider, e.Reason)
}

func NewConfigurationError(provider string, format string, args ...interface{}) error {
	return &ConfigurationError{Provider: provider, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err (or anything it wraps) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
