package cot

import (
	"time"

	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
)

// Result is the record of one Solve call. It is not modified after Solve
// returns.
type Result struct {
	ID             string              `json:"id" yaml:"id"`
	Question       string              `json:"question" yaml:"question"`
	ReasoningSteps []string            `json:"reasoning_steps" yaml:"reasoning_steps"`
	FinalAnswer    string              `json:"final_answer" yaml:"final_answer"`
	StepsTaken     int                 `json:"steps_taken" yaml:"steps_taken"`
	Mode           types.ReasoningMode `json:"mode" yaml:"mode"`
	// Forced is set when the dynamic controller ran out of steps and had to
	// ask for a final answer.
	Forced          bool          `json:"forced,omitempty" yaml:"forced,omitempty"`
	AnswerFound     bool          `json:"answer_found" yaml:"answer_found"`
	GenerationCalls int           `json:"generation_calls" yaml:"generation_calls"`
	PromptTokens    int           `json:"prompt_tokens" yaml:"prompt_tokens"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}
