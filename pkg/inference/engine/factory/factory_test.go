package factory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/inference/ratelimit"
	"github.com/go-go-golems/pensieri/pkg/inference/retry"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsFor(apiType types.ApiType) *settings.StepSettings {
	s := settings.NewStepSettings()
	s.Chat.ApiType = &apiType
	s.API.APIKeys[string(apiType)+"-api-key"] = "test-key"
	return s
}

func TestStandardEngineFactory_SupportedProviders(t *testing.T) {
	f := NewStandardEngineFactory()
	assert.Equal(t, []string{"openai", "gemini"}, f.SupportedProviders())
	assert.Equal(t, "openai", f.DefaultProvider())
}

func TestStandardEngineFactory_NilSettings(t *testing.T) {
	_, err := NewStandardEngineFactory().CreateEngine(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, engine.IsConfigurationError(err))
}

func TestStandardEngineFactory_UnsupportedProvider(t *testing.T) {
	s := settingsFor("claude")
	_, err := NewStandardEngineFactory().CreateEngine(context.Background(), s)
	require.Error(t, err)
	assert.True(t, engine.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "openai, gemini")
}

func TestStandardEngineFactory_MissingAPIKey(t *testing.T) {
	for _, apiType := range []types.ApiType{types.ApiTypeOpenAI, types.ApiTypeGemini} {
		s := settings.NewStepSettings()
		s.Chat.ApiType = &apiType
		_, err := NewStandardEngineFactory().CreateEngine(context.Background(), s)
		require.Error(t, err, apiType)
		assert.True(t, engine.IsConfigurationError(err), apiType)
		assert.Contains(t, err.Error(), string(apiType)+"-api-key")
	}
}

func TestStandardEngineFactory_InvalidRetrySettings(t *testing.T) {
	s := settingsFor(types.ApiTypeOpenAI)
	s.Retry.MaxRetries = -1
	_, err := NewStandardEngineFactory().CreateEngine(context.Background(), s)
	assert.True(t, engine.IsConfigurationError(err))

	s = settingsFor(types.ApiTypeOpenAI)
	s.Retry.MaxDelay = time.Second
	_, err = NewStandardEngineFactory().CreateEngine(context.Background(), s)
	assert.True(t, engine.IsConfigurationError(err))
}

func TestStandardEngineFactory_WrapsProviderEngines(t *testing.T) {
	for _, apiType := range []types.ApiType{types.ApiTypeOpenAI, types.ApiTypeGemini} {
		e, err := NewStandardEngineFactory().CreateEngine(context.Background(), settingsFor(apiType))
		require.NoError(t, err, apiType)
		_, ok := e.(*retry.Requestor)
		assert.True(t, ok, "expected %s engine to be wrapped in a retry.Requestor", apiType)
	}
}

func TestStandardEngineFactory_WithoutRetry(t *testing.T) {
	e, err := NewStandardEngineFactory().CreateEngine(context.Background(), settingsFor(types.ApiTypeOpenAI), WithoutRetry())
	require.NoError(t, err)
	_, ok := e.(*retry.Requestor)
	assert.False(t, ok)
}

func TestStandardEngineFactory_RetriesThroughProvider(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream hiccup","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"FINAL_ANSWER: 4 END_ANSWER"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s := settingsFor(types.ApiTypeOpenAI)
	s.API.BaseUrls["openai-base-url"] = srv.URL
	s.Retry.MaxRetries = 1

	clock := ratelimit.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	var retried []time.Duration
	e, err := NewStandardEngineFactory().CreateEngine(context.Background(), s,
		WithClock(clock),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
		WithOnRetry(func(ctx context.Context, attempt int, delay time.Duration, err error) {
			retried = append(retried, delay)
		}),
	)
	require.NoError(t, err)

	out, err := e.Generate(context.Background(), "What is 2+2?", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "FINAL_ANSWER: 4 END_ANSWER", out)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, retried)
	// the 3s openai interval tops up the 2s backoff
	assert.Equal(t, 3*time.Second, clock.Now().Sub(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).Round(time.Millisecond))
}

func TestNewEngineFromViper(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	v := viper.New()
	v.Set("provider", "gemini")
	v.Set("gemini-api-key", "abc")
	v.Set("max-retries", 2)

	e, s, err := NewEngineFromViper(context.Background(), v)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, types.ApiTypeGemini, s.GetApiType())
	assert.Equal(t, 2, s.Retry.MaxRetries)

	_, _, err = NewEngineFromViper(context.Background(), viper.New())
	assert.True(t, engine.IsConfigurationError(err))
}
