package factory

import (
	"context"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/spf13/viper"
)

// NewEngineFromStepSettings creates an engine directly from step settings.
// This is a convenience function that creates a StandardEngineFactory and uses it to create an engine.
func NewEngineFromStepSettings(ctx context.Context, stepSettings *settings.StepSettings, options ...Option) (engine.Engine, error) {
	factory := NewStandardEngineFactory()
	return factory.CreateEngine(ctx, stepSettings, options...)
}

// NewEngineFromViper creates an engine from the flags, environment and
// config file values held by v:
// 1. Creates default step settings
// 2. Updates them from viper
// 3. Creates and returns an engine
func NewEngineFromViper(ctx context.Context, v *viper.Viper, options ...Option) (engine.Engine, *settings.StepSettings, error) {
	stepSettings := settings.NewStepSettings()
	stepSettings.UpdateFromViper(v)

	e, err := NewEngineFromStepSettings(ctx, stepSettings, options...)
	if err != nil {
		return nil, nil, err
	}
	return e, stepSettings, nil
}
