package fixtures

import (
	"context"
	"os"
	"sync"

	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Step is one scripted engine reply: either text or an error message.
type Step struct {
	Text  string `yaml:"text,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// ScriptDoc is the on-disk fixture format.
//
//	responses:
//	  - text: "Step 1: ..."
//	  - error: "quota exceeded"
//	  - text: "FINAL_ANSWER: 4 END_ANSWER"
type ScriptDoc struct {
	Responses []Step `yaml:"responses"`
	// Repeat makes the last response sticky instead of failing when the script runs out.
	Repeat bool `yaml:"repeat,omitempty"`
}

// Call records one Generate invocation.
type Call struct {
	Prompt      string
	Temperature float64
}

// ScriptedEngine replays a fixed list of responses, recording every prompt.
type ScriptedEngine struct {
	mu     sync.Mutex
	script ScriptDoc
	next   int
	calls  []Call
}

var _ engine.Engine = (*ScriptedEngine)(nil)

var ErrScriptExhausted = errors.New("scripted engine has no more responses")

func NewScriptedEngine(responses ...string) *ScriptedEngine {
	steps := make([]Step, len(responses))
	for i, r := range responses {
		steps[i] = Step{Text: r}
	}
	return &ScriptedEngine{script: ScriptDoc{Responses: steps}}
}

func NewScriptedEngineFromSteps(doc ScriptDoc) *ScriptedEngine {
	return &ScriptedEngine{script: doc}
}

// LoadScriptedEngine reads a ScriptDoc from a YAML file.
func LoadScriptedEngine(path string) (*ScriptedEngine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading fixture %s", path)
	}
	var doc ScriptDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing fixture %s", path)
	}
	if len(doc.Responses) == 0 {
		return nil, errors.Errorf("fixture %s has no responses", path)
	}
	return NewScriptedEngineFromSteps(doc), nil
}

func (s *ScriptedEngine) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, Temperature: temperature})

	if s.next >= len(s.script.Responses) {
		if !s.script.Repeat || len(s.script.Responses) == 0 {
			return "", ErrScriptExhausted
		}
		s.next = len(s.script.Responses) - 1
	}
	step := s.script.Responses[s.next]
	s.next++

	if step.Error != "" {
		return "", errors.New(step.Error)
	}
	return step.Text, nil
}

// Calls returns a copy of all recorded invocations.
func (s *ScriptedEngine) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Call, len(s.calls))
	copy(ret, s.calls)
	return ret
}

// Prompts returns just the prompts of all recorded invocations.
func (s *ScriptedEngine) Prompts() []string {
	calls := s.Calls()
	ret := make([]string, len(calls))
	for i, c := range calls {
		ret[i] = c.Prompt
	}
	return ret
}
