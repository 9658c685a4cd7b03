package settings

import (
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
)

type ReasoningSettings struct {
	Mode     types.ReasoningMode `yaml:"mode,omitempty"`
	Steps    int                 `yaml:"steps,omitempty"`
	MaxSteps int                 `yaml:"max_steps,omitempty"`
	// CompactThreshold is the combined-reasoning length (in characters) above
	// which the dynamic controller keeps only the two most recent steps.
	CompactThreshold int     `yaml:"compact_threshold,omitempty"`
	Domain           string  `yaml:"domain,omitempty"`
	Tolerance        float64 `yaml:"tolerance,omitempty"`
}

func NewReasoningSettings() *ReasoningSettings {
	return &ReasoningSettings{
		Mode:             types.ReasoningModeDynamic,
		Steps:            3,
		MaxSteps:         10,
		CompactThreshold: 2000,
		Domain:           "general",
		Tolerance:        0.03,
	}
}

func (s *ReasoningSettings) Clone() *ReasoningSettings {
	return clone.Clone(s).(*ReasoningSettings)
}
