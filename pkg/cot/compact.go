package cot

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultCompactThreshold = 2000
	stepSeparator           = "\n\n"
	omittedMarker           = "(...previous steps omitted...)"
)

// Compact returns the combined reasoning after steps[len(steps)-1] has been
// added. When the current combined text is longer than threshold characters
// it is replaced by the last two steps; otherwise the newest step is
// appended. The second return value reports whether compaction happened.
func Compact(combined string, steps []string, threshold int) (string, bool) {
	if len(steps) == 0 {
		return combined, false
	}
	newest := steps[len(steps)-1]
	if combined == "" && len(steps) == 1 {
		return newest, false
	}

	if utf8.RuneCountInString(combined) > threshold {
		from := len(steps) - 2
		if from < 0 {
			from = 0
		}
		return strings.Join(steps[from:], stepSeparator), true
	}

	return combined + stepSeparator + newest, false
}

// Context accumulates the steps of one run. Steps are append-only; the
// combined reasoning is derived from them through Compact.
type Context struct {
	Question    string
	threshold   int
	steps       []string
	combined    string
	compactions int
}

// NewContext uses DefaultCompactThreshold when threshold is not positive.
func NewContext(question string, threshold int) *Context {
	if threshold <= 0 {
		threshold = DefaultCompactThreshold
	}
	return &Context{
		Question:  question,
		threshold: threshold,
	}
}

// Append adds a step and reports whether the combined reasoning was compacted.
func (c *Context) Append(step string) bool {
	c.steps = append(c.steps, step)
	combined, compacted := Compact(c.combined, c.steps, c.threshold)
	c.combined = combined
	if compacted {
		c.compactions++
	}
	return compacted
}

// Combined is the reasoning fed into the next continuation prompt.
func (c *Context) Combined() string {
	return c.combined
}

// Full joins every step, ignoring compaction.
func (c *Context) Full() string {
	return strings.Join(c.steps, stepSeparator)
}

// Summary joins at most the last n steps, prefixed by an elision marker when
// older steps were left out.
func (c *Context) Summary(n int) string {
	if n <= 0 || len(c.steps) <= n {
		return c.Full()
	}
	return omittedMarker + stepSeparator + strings.Join(c.steps[len(c.steps)-n:], stepSeparator)
}

func (c *Context) Steps() []string {
	return append([]string(nil), c.steps...)
}

func (c *Context) Len() int {
	return len(c.steps)
}

func (c *Context) Compactions() int {
	return c.compactions
}
