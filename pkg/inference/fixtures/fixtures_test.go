package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedEngine_Replays(t *testing.T) {
	e := NewScriptedEngine("a", "b")
	ctx := context.Background()

	out, err := e.Generate(ctx, "p1", 0.1)
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	out, err = e.Generate(ctx, "p2", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	_, err = e.Generate(ctx, "p3", 0.3)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	assert.Equal(t, []string{"p1", "p2", "p3"}, e.Prompts())
	assert.Equal(t, 0.2, e.Calls()[1].Temperature)
}

func TestLoadScriptedEngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
responses:
  - error: "429 quota exceeded"
  - text: "FINAL_ANSWER: 4 END_ANSWER"
repeat: true
`), 0o644))

	e, err := LoadScriptedEngine(path)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = e.Generate(ctx, "q", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	for i := 0; i < 3; i++ {
		out, err := e.Generate(ctx, "q", 0)
		require.NoError(t, err)
		assert.Equal(t, "FINAL_ANSWER: 4 END_ANSWER", out)
	}
}

func TestLoadScriptedEngine_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("responses: []\n"), 0o644))

	_, err := LoadScriptedEngine(path)
	assert.Error(t, err)

	_, err = LoadScriptedEngine(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
