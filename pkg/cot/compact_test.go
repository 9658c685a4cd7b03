package cot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	long := strings.Repeat("x", 2001)

	tests := []struct {
		name          string
		combined      string
		steps         []string
		threshold     int
		want          string
		wantCompacted bool
	}{
		{"first step", "", []string{"a"}, 2000, "a", false},
		{"append below threshold", "a", []string{"a", "b"}, 2000, "a\n\nb", false},
		{"exactly at threshold appends", strings.Repeat("y", 2000), []string{"s1", "s2"}, 2000, strings.Repeat("y", 2000) + "\n\ns2", false},
		{"above threshold keeps last two", long, []string{long, "b", "c"}, 2000, "b\n\nc", true},
		{"custom threshold", "abcdef", []string{"abc", "def", "ghi"}, 5, "def\n\nghi", true},
		{"no steps", "keep", nil, 2000, "keep", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, compacted := Compact(tt.combined, tt.steps, tt.threshold)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCompacted, compacted)
		})
	}
}

func TestCompact_CountsCharactersNotBytes(t *testing.T) {
	// 1000 runes, 3000 bytes
	combined := strings.Repeat("€", 1000)
	got, compacted := Compact(combined, []string{combined, "next"}, 2000)
	assert.False(t, compacted)
	assert.Equal(t, combined+"\n\nnext", got)
}

func TestContext_CompactionKeepsOnlyTwoMostRecentSteps(t *testing.T) {
	rc := NewContext("q", 0)
	var steps []string
	for i, fill := range []string{"a", "b", "c", "d", "e", "f"} {
		step := strings.Repeat(fill, 900+i)
		steps = append(steps, step)
		compacted := rc.Append(step)

		combined := rc.Combined()
		// the most recent step is never dropped
		assert.Contains(t, combined, step)

		if compacted {
			require.GreaterOrEqual(t, len(steps), 2)
			assert.Equal(t, steps[len(steps)-2]+"\n\n"+step, combined)
			for _, older := range steps[:len(steps)-2] {
				assert.NotContains(t, combined, older)
			}
		}
	}
	assert.Greater(t, rc.Compactions(), 0)
	assert.Equal(t, 6, rc.Len())
}

func TestContext_Summary(t *testing.T) {
	rc := NewContext("q", 0)
	for _, s := range []string{"one", "two", "three"} {
		rc.Append(s)
	}
	assert.Equal(t, "one\n\ntwo\n\nthree", rc.Summary(3))

	rc.Append("four")
	assert.Equal(t, "(...previous steps omitted...)\n\ntwo\n\nthree\n\nfour", rc.Summary(3))
	assert.Equal(t, "one\n\ntwo\n\nthree\n\nfour", rc.Full())

	steps := rc.Steps()
	steps[0] = "changed"
	assert.Equal(t, "one", rc.Steps()[0])
}
