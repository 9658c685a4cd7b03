package cot

import (
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/types"
	"github.com/pkg/errors"
)

const DefaultDomain = "general"

// Domain holds the wording a domain-specific prompt set uses around the
// shared reasoning scaffold.
type Domain struct {
	Name             string
	QuestionLabel    string
	Opening          string
	ReasoningHeader  string
	ContinueHeader   string
	FinalInstruction string
}

var domains = map[string]Domain{
	"math": {
		Name:             "math",
		QuestionLabel:    "Question",
		Opening:          "I'll solve this step-by-step:\n\n1) First, I need to identify the mathematical concepts and variables involved.",
		ReasoningHeader:  "My step-by-step solution:",
		ContinueHeader:   "Continuing my solution:",
		FinalInstruction: "Make sure to include the final numerical result and units if applicable.",
	},
	"logic": {
		Name:             "logic",
		QuestionLabel:    "Question",
		Opening:          "I'll approach this logical problem systematically:\n\n1) Let me identify the premises and what I need to determine.",
		ReasoningHeader:  "My logical reasoning so far:",
		ContinueHeader:   "Next in my reasoning chain:",
		FinalInstruction: "Clearly state my conclusion based on logical deduction.",
	},
	"coding": {
		Name:             "coding",
		QuestionLabel:    "Coding Problem",
		Opening:          "I'll solve this by breaking it down into steps:\n\n1) First, let me understand the problem requirements and expected inputs/outputs.",
		ReasoningHeader:  "My approach so far:",
		ContinueHeader:   "Next steps in my solution:",
		FinalInstruction: "Provide the final code solution and explain its time/space complexity.",
	},
	"science": {
		Name:             "science",
		QuestionLabel:    "Scientific Question",
		Opening:          "I'll analyze this scientifically:\n\n1) First, let me identify the relevant scientific principles and concepts.",
		ReasoningHeader:  "My scientific analysis so far:",
		ContinueHeader:   "Continuing my analysis:",
		FinalInstruction: "Summarize the scientific explanation and any relevant theories or principles.",
	},
}

// Domains lists the accepted domain names, general included.
func Domains() []string {
	ret := []string{DefaultDomain}
	for name := range domains {
		ret = append(ret, name)
	}
	sort.Strings(ret[1:])
	return ret
}

// PromptData is what every prompt template is rendered with.
type PromptData struct {
	Question       string
	Reasoning      string
	Step           int
	Dynamic        bool
	StartDelimiter string
	EndDelimiter   string
	Domain         Domain
}

const delimiterTemplates = `
{{- define "answer-format" -}}
IMPORTANT: When you reach your final answer, provide the answer in decimal format (not as a fraction), 
rounded to 2 decimal places if needed. Put your final numerical answer within these delimiters:
{{ .StartDelimiter }} [your numerical answer here, as a decimal] {{ .EndDelimiter }}
{{- end -}}
{{- define "answer-reminder" -}}
IMPORTANT: If you're ready to provide a final answer, make sure to format it like this:
{{ .StartDelimiter }} [your numerical answer in decimal format, rounded to 2 decimal places if needed] {{ .EndDelimiter }}
{{- end -}}
{{- define "final-format" -}}
IMPORTANT: My final answer must be in decimal format (not as a fraction), rounded to 2 decimal places if needed.
I will put my numerical answer within these delimiters:

{{ .StartDelimiter }} [numerical answer in decimal format] {{ .EndDelimiter }}
{{- end -}}
`

const generalInitialTemplate = `
Question: {{ .Question }}

{{ if .Dynamic -}}
I need to solve this problem by thinking step-by-step. 
Let me work through this carefully:
{{- else -}}
I need to solve this problem by thinking step-by-step.
{{- end }}

{{ template "answer-format" . }}

Step 1: Let me break down what the question is asking and identify {{ if .Dynamic }}the {{ end }}key information.
`

const generalContinuationTemplate = `
Question: {{ .Question }}

I'm solving this problem step-by-step. Here's my reasoning so far:

{{ .Reasoning }}

{{ if .Dynamic -}}
Let me continue my reasoning:

Step {{ .Step }}: 

{{ template "answer-reminder" . }}
{{- else -}}
Let me continue with the next step in my reasoning:

Step {{ .Step }}: 
{{- end }}
`

const generalFinalTemplate = `
Question: {{ .Question }}

I've reasoned through this problem as follows:

{{ .Reasoning }}

Based on this complete chain of reasoning, I need to provide my final answer now.

{{ template "final-format" . }}

My final answer is:
`

const domainInitialTemplate = `
{{ .Domain.QuestionLabel | default "Question" }}: {{ .Question }}

{{ .Domain.Opening }}

{{ template "answer-format" . }}
`

const domainContinuationTemplate = `
{{ .Domain.QuestionLabel | default "Question" }}: {{ .Question }}

{{ .Domain.ReasoningHeader }}

{{ .Reasoning | trim }}

{{ .Domain.ContinueHeader }}
{{ if .Dynamic }}
{{ template "answer-reminder" . }}
{{ end -}}
`

const domainFinalTemplate = `
{{ .Domain.QuestionLabel | default "Question" }}: {{ .Question }}

My complete reasoning process:

{{ .Reasoning | trim }}

Based on this reasoning, I'll now provide my final answer.{{ with .Domain.FinalInstruction }} {{ . }}{{ end }}

{{ template "final-format" . }}

Final Answer:
`

// Prompts renders the initial, continuation and final prompts of one
// controller for one domain.
type Prompts struct {
	domain       Domain
	dynamic      bool
	initial      *template.Template
	continuation *template.Template
	final        *template.Template
}

func parsePrompt(name string, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(delimiterTemplates)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s delimiter templates", name)
	}
	t, err = t.Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s template", name)
	}
	return t, nil
}

// NewPrompts returns the prompt set for the given mode and domain. An empty
// domain selects the general prompts.
func NewPrompts(mode types.ReasoningMode, domain string) (*Prompts, error) {
	if domain == "" {
		domain = DefaultDomain
	}
	domain = strings.ToLower(domain)

	p := &Prompts{dynamic: mode == types.ReasoningModeDynamic}

	texts := [3]string{generalInitialTemplate, generalContinuationTemplate, generalFinalTemplate}
	if domain == DefaultDomain {
		p.domain = Domain{Name: DefaultDomain, QuestionLabel: "Question"}
	} else {
		d, ok := domains[domain]
		if !ok {
			return nil, errors.Errorf("unknown domain %q, expected one of %s", domain, strings.Join(Domains(), ", "))
		}
		p.domain = d
		texts = [3]string{domainInitialTemplate, domainContinuationTemplate, domainFinalTemplate}
	}

	var err error
	if p.initial, err = parsePrompt("initial", texts[0]); err != nil {
		return nil, err
	}
	if p.continuation, err = parsePrompt("continuation", texts[1]); err != nil {
		return nil, err
	}
	if p.final, err = parsePrompt("final", texts[2]); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prompts) Domain() Domain {
	return p.domain
}

func (p *Prompts) render(t *template.Template, data PromptData) (string, error) {
	data.Dynamic = p.dynamic
	data.Domain = p.domain
	data.StartDelimiter = AnswerStartDelimiter
	data.EndDelimiter = AnswerEndDelimiter

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s prompt", t.Name())
	}
	return sb.String(), nil
}

func (p *Prompts) Initial(question string) (string, error) {
	return p.render(p.initial, PromptData{Question: question, Step: 1})
}

func (p *Prompts) Continuation(question string, reasoning string, step int) (string, error) {
	return p.render(p.continuation, PromptData{Question: question, Reasoning: reasoning, Step: step})
}

func (p *Prompts) Final(question string, reasoning string) (string, error) {
	return p.render(p.final, PromptData{Question: question, Reasoning: reasoning})
}
