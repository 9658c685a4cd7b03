package cot

import (
	"regexp"
	"strings"
)

const (
	AnswerStartDelimiter = "FINAL_ANSWER:"
	AnswerEndDelimiter   = "END_ANSWER"
)

type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeFound
	OutcomeAmbiguous
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "not-found"
	}
}

// Outcome is the result of running the extraction cascade over one text.
// Found carries the answer; Ambiguous carries a best guess; NotFound carries
// nothing.
type Outcome struct {
	Kind OutcomeKind
	Text string
	// Matcher names the matcher that produced a Found outcome
	Matcher string
}

func NewFound(text string, matcher string) Outcome {
	return Outcome{Kind: OutcomeFound, Text: text, Matcher: matcher}
}

func NewAmbiguous(bestGuess string) Outcome {
	return Outcome{Kind: OutcomeAmbiguous, Text: bestGuess}
}

func NewNotFound() Outcome {
	return Outcome{Kind: OutcomeNotFound}
}

// Found reports whether a conclusion marker or delimiter was detected.
func (o Outcome) Found() bool {
	return o.Kind == OutcomeFound
}

// HasText reports whether the outcome carries a non-empty answer or guess.
func (o Outcome) HasText() bool {
	return o.Text != ""
}

type Tier int

const (
	// TierDelimiter extracts the first capture group of the pattern.
	TierDelimiter Tier = iota
	// TierLinguistic extracts everything after the end of the match.
	TierLinguistic
)

type Matcher struct {
	Name    string
	Pattern *regexp.Regexp
	Tier    Tier
}

// DefaultMatchers returns the extraction cascade in priority order. The
// delimiter comes first, then the conclusion phrases.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{"delimiter", regexp.MustCompile(`(?s)` + regexp.QuoteMeta(AnswerStartDelimiter) + `(.*?)` + regexp.QuoteMeta(AnswerEndDelimiter)), TierDelimiter},
		{"therefore-answer-is", regexp.MustCompile(`(?i)therefore,?\s+(?:the)?\s*(?:final)?\s*answer\s+is`), TierLinguistic},
		{"answer-is", regexp.MustCompile(`(?i)(?:the)?\s*(?:final)?\s*answer\s+is`), TierLinguistic},
		{"in-conclusion", regexp.MustCompile(`(?i)in\s+conclusion`), TierLinguistic},
		{"thus-result-is", regexp.MustCompile(`(?i)thus,?\s+(?:the)?\s*(?:final)?\s*(?:answer|result)\s+is`), TierLinguistic},
		{"answer-colon", regexp.MustCompile(`(?i)(?:the)?\s*(?:final)?\s*(?:answer|result)[\s:]+`), TierLinguistic},
		{"so-answer-is", regexp.MustCompile(`(?i)(?:so|hence),?\s+(?:the)?\s*(?:final)?\s*answer\s+is`), TierLinguistic},
		{"to-summarize", regexp.MustCompile(`(?i)to\s+summarize`), TierLinguistic},
		{"my-final-answer", regexp.MustCompile(`(?i)my\s+final\s+answer`), TierLinguistic},
		{"final-result", regexp.MustCompile(`(?i)final\s+result`), TierLinguistic},
		{"answer-line", regexp.MustCompile(`(?i)^\s*answer\s*[:=]`), TierLinguistic},
	}
}

var numericToken = regexp.MustCompile(`\d+\.?\d*`)

// Extractor runs an ordered list of matchers over a text. The first matcher
// that matches anywhere wins, at its leftmost match.
type Extractor struct {
	matchers []Matcher
}

// NewExtractor uses DefaultMatchers when no matchers are given.
func NewExtractor(matchers ...Matcher) *Extractor {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Extractor{matchers: matchers}
}

func (e *Extractor) Matchers() []Matcher {
	return append([]Matcher(nil), e.matchers...)
}

// Extract never fails. When no matcher hits, a text containing a number
// yields NotFound and any other text yields its last non-empty paragraph as
// an Ambiguous guess.
func (e *Extractor) Extract(text string) Outcome {
	for _, m := range e.matchers {
		switch m.Tier {
		case TierDelimiter:
			if sm := m.Pattern.FindStringSubmatch(text); sm != nil {
				inner := ""
				if len(sm) > 1 {
					inner = sm[1]
				}
				return NewFound(strings.TrimSpace(inner), m.Name)
			}
		case TierLinguistic:
			if loc := m.Pattern.FindStringIndex(text); loc != nil {
				return NewFound(strings.TrimSpace(text[loc[1]:]), m.Name)
			}
		}
	}

	if numericToken.MatchString(text) {
		return NewNotFound()
	}

	return NewAmbiguous(lastParagraph(text))
}

func lastParagraph(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	for i := len(paragraphs) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(paragraphs[i]); p != "" {
			return p
		}
	}
	return ""
}

var defaultExtractor = NewExtractor()

// Extract runs the default cascade.
func Extract(text string) Outcome {
	return defaultExtractor.Extract(text)
}
