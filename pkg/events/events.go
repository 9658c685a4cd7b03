package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeRunStarted  EventType = "run-started"
	EventTypeStep        EventType = "step"
	EventTypeAnswer      EventType = "answer"
	EventTypeRetry       EventType = "retry"
	EventTypeRunFinished EventType = "run-finished"
	EventTypeError       EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata identifies the run an event belongs to. Every event of one
// Solve call shares the same RunID.
type EventMetadata struct {
	ID       uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID    string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Mode     string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Provider string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string    `json:"model,omitempty" yaml:"model,omitempty"`
	// Extra carries caller-specific values, such as the benchmark problem index
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	if em.Mode != "" {
		e.Str("mode", em.Mode)
	}
	if em.Provider != "" {
		e.Str("provider", em.Provider)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
}

// NewMetadata returns metadata with a fresh message id for the given run.
func NewMetadata(runID string) EventMetadata {
	return EventMetadata{
		ID:    uuid.New(),
		RunID: runID,
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// payload is only set on events decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

type EventRunStarted struct {
	EventImpl
	Question string `json:"question"`
	MaxSteps int    `json:"max_steps"`
}

func NewRunStartedEvent(metadata EventMetadata, question string, maxSteps int) *EventRunStarted {
	return &EventRunStarted{
		EventImpl: EventImpl{Type_: EventTypeRunStarted, Metadata_: metadata},
		Question:  question,
		MaxSteps:  maxSteps,
	}
}

var _ Event = &EventRunStarted{}

// EventStep is published after every reasoning step has been generated.
type EventStep struct {
	EventImpl
	Step         int    `json:"step"`
	Text         string `json:"text"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	Compacted    bool   `json:"compacted,omitempty"`
}

func NewStepEvent(metadata EventMetadata, step int, text string, promptTokens int, compacted bool) *EventStep {
	return &EventStep{
		EventImpl:    EventImpl{Type_: EventTypeStep, Metadata_: metadata},
		Step:         step,
		Text:         text,
		PromptTokens: promptTokens,
		Compacted:    compacted,
	}
}

var _ Event = &EventStep{}

// EventAnswer reports the final answer of a run and how it was obtained.
type EventAnswer struct {
	EventImpl
	Step    int    `json:"step"`
	Answer  string `json:"answer"`
	Outcome string `json:"outcome"`
	Forced  bool   `json:"forced,omitempty"`
}

func NewAnswerEvent(metadata EventMetadata, step int, answer string, outcome string, forced bool) *EventAnswer {
	return &EventAnswer{
		EventImpl: EventImpl{Type_: EventTypeAnswer, Metadata_: metadata},
		Step:      step,
		Answer:    answer,
		Outcome:   outcome,
		Forced:    forced,
	}
}

var _ Event = &EventAnswer{}

type EventRetry struct {
	EventImpl
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
	Error   string        `json:"error"`
}

func NewRetryEvent(metadata EventMetadata, attempt int, delay time.Duration, err error) *EventRetry {
	ret := &EventRetry{
		EventImpl: EventImpl{Type_: EventTypeRetry, Metadata_: metadata},
		Attempt:   attempt,
		Delay:     delay,
	}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}

var _ Event = &EventRetry{}

type EventRunFinished struct {
	EventImpl
	StepsTaken      int           `json:"steps_taken"`
	GenerationCalls int           `json:"generation_calls"`
	Duration        time.Duration `json:"duration"`
}

func NewRunFinishedEvent(metadata EventMetadata, stepsTaken, generationCalls int, duration time.Duration) *EventRunFinished {
	return &EventRunFinished{
		EventImpl:       EventImpl{Type_: EventTypeRunFinished, Metadata_: metadata},
		StepsTaken:      stepsTaken,
		GenerationCalls: generationCalls,
		Duration:        duration,
	}
}

var _ Event = &EventRunFinished{}

type EventError struct {
	EventImpl
	Step  int    `json:"step"`
	Error string `json:"error"`
}

func NewErrorEvent(metadata EventMetadata, step int, err error) *EventError {
	ret := &EventError{
		EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata},
		Step:      step,
	}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}

var _ Event = &EventError{}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}

func decodeAs[T any](e *EventImpl) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok || ret == nil {
		return nil, fmt.Errorf("could not cast event to %T", ret)
	}
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, fmt.Errorf("%T is not an event", ret)
	}
	if setter, ok := ev.(interface{ setPayload([]byte) }); ok {
		setter.setPayload(e.payload)
	}
	return ev, nil
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

// NewEventFromJson decodes a payload published by WatermillSink back into
// its typed event.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("empty event payload")
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeRunStarted:
		return decodeAs[EventRunStarted](e)
	case EventTypeStep:
		return decodeAs[EventStep](e)
	case EventTypeAnswer:
		return decodeAs[EventAnswer](e)
	case EventTypeRetry:
		return decodeAs[EventRetry](e)
	case EventTypeRunFinished:
		return decodeAs[EventRunFinished](e)
	case EventTypeError:
		return decodeAs[EventError](e)
	}

	return e, nil
}
