package cot

import (
	"testing"

	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompts_General(t *testing.T) {
	fixed, err := NewPrompts(types.ReasoningModeFixed, "")
	require.NoError(t, err)
	dynamic, err := NewPrompts(types.ReasoningModeDynamic, "general")
	require.NoError(t, err)

	p, err := fixed.Initial("What is 2+2?")
	require.NoError(t, err)
	assert.Contains(t, p, "Question: What is 2+2?\n\nI need to solve this problem by thinking step-by-step.\n")
	assert.Contains(t, p, "FINAL_ANSWER: [your numerical answer here, as a decimal] END_ANSWER")
	assert.Contains(t, p, "Step 1: Let me break down what the question is asking and identify key information.")
	assert.NotContains(t, p, "carefully")

	p, err = dynamic.Initial("What is 2+2?")
	require.NoError(t, err)
	assert.Contains(t, p, "Let me work through this carefully:")
	assert.Contains(t, p, "identify the key information.")

	p, err = fixed.Continuation("Q", "step one\n\nstep two", 3)
	require.NoError(t, err)
	assert.Contains(t, p, "Here's my reasoning so far:\n\nstep one\n\nstep two\n\n")
	assert.Contains(t, p, "Let me continue with the next step in my reasoning:\n\nStep 3:")
	assert.NotContains(t, p, "FINAL_ANSWER")

	p, err = dynamic.Continuation("Q", "step one", 2)
	require.NoError(t, err)
	assert.Contains(t, p, "Let me continue my reasoning:\n\nStep 2:")
	assert.Contains(t, p, "FINAL_ANSWER: [your numerical answer in decimal format, rounded to 2 decimal places if needed] END_ANSWER")

	p, err = fixed.Final("Q", "all of it")
	require.NoError(t, err)
	assert.Contains(t, p, "I've reasoned through this problem as follows:\n\nall of it\n\n")
	assert.Contains(t, p, "FINAL_ANSWER: [numerical answer in decimal format] END_ANSWER")
	assert.Contains(t, p, "My final answer is:")
}

func TestPrompts_Domains(t *testing.T) {
	assert.Equal(t, []string{"general", "coding", "logic", "math", "science"}, Domains())

	math, err := NewPrompts(types.ReasoningModeDynamic, "Math")
	require.NoError(t, err)
	assert.Equal(t, "math", math.Domain().Name)

	p, err := math.Initial("Solve x+1=2")
	require.NoError(t, err)
	assert.Contains(t, p, "Question: Solve x+1=2")
	assert.Contains(t, p, "mathematical concepts and variables")
	assert.Contains(t, p, "FINAL_ANSWER:")

	p, err = math.Continuation("Solve x+1=2", "  x is one  ", 2)
	require.NoError(t, err)
	assert.Contains(t, p, "My step-by-step solution:\n\nx is one\n\nContinuing my solution:")
	assert.Contains(t, p, "If you're ready to provide a final answer")

	science, err := NewPrompts(types.ReasoningModeFixed, "science")
	require.NoError(t, err)
	p, err = science.Continuation("Why is the sky blue?", "scattering", 2)
	require.NoError(t, err)
	assert.Contains(t, p, "Scientific Question: Why is the sky blue?")
	assert.NotContains(t, p, "If you're ready")

	coding, err := NewPrompts(types.ReasoningModeFixed, "coding")
	require.NoError(t, err)
	p, err = coding.Final("Reverse a list", "use two pointers")
	require.NoError(t, err)
	assert.Contains(t, p, "Coding Problem: Reverse a list")
	assert.Contains(t, p, "final answer. Provide the final code solution and explain its time/space complexity.")
	assert.Contains(t, p, "Final Answer:")
}

func TestPrompts_UnknownDomain(t *testing.T) {
	_, err := NewPrompts(types.ReasoningModeFixed, "poetry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "general, coding, logic, math, science")
}
