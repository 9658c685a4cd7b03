package types

type ApiType string

const (
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeGemini ApiType = "gemini"
)

// ReasoningMode selects the step controller used to answer a question.
type ReasoningMode string

const (
	// ReasoningModeFixed issues a fixed number of reasoning calls followed by one answer call.
	ReasoningModeFixed ReasoningMode = "fixed"
	// ReasoningModeDynamic stops as soon as a step contains a detectable answer.
	ReasoningModeDynamic ReasoningMode = "dynamic"
)
