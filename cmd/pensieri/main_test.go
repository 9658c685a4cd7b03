package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_CallerAddedOnce(t *testing.T) {
	prevLogger, prevLevel, prevAdded := log.Logger, zerolog.GlobalLevel(), callerAdded
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
		callerAdded = prevAdded
	})
	callerAdded = false

	// the root command initializes the logger once at startup and again
	// once the flags are parsed
	config := &logConfig{WithCaller: true, Level: "info", LogFormat: "json"}
	require.NoError(t, InitLogger(config))
	require.NoError(t, InitLogger(config))

	var buf bytes.Buffer
	log.Logger = log.Output(&buf)
	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Equal(t, 1, strings.Count(buf.String(), `"caller":`))
}
