package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StepPrinterFunc returns a handler that prints step progress to w as the
// events arrive.
func StepPrinterFunc(w io.Writer) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventRunStarted:
			_, err = fmt.Fprintf(w, "Question: %s\n", p_.Question)

		case *EventStep:
			suffix := ""
			if p_.Compacted {
				suffix = " (context compacted)"
			}
			_, err = fmt.Fprintf(w, "\n--- Step %d%s ---\n%s", p_.Step, suffix, p_.Text)
			if err == nil && !strings.HasSuffix(p_.Text, "\n") {
				_, err = fmt.Fprintln(w)
			}

		case *EventRetry:
			_, err = fmt.Fprintf(w, "\n[retry %d in %s] %s\n", p_.Attempt, p_.Delay, p_.Error)

		case *EventAnswer:
			label := "Answer"
			if p_.Forced {
				label = "Forced answer"
			}
			_, err = fmt.Fprintf(w, "\n%s (step %d, %s): %s\n", label, p_.Step, p_.Outcome, p_.Answer)

		case *EventError:
			_, err = fmt.Fprintf(w, "\n[error at step %d] %s\n", p_.Step, p_.Error)

		case *EventRunFinished:
			_, err = fmt.Fprintf(w, "\n%d steps, %d generation calls, %s\n", p_.StepsTaken, p_.GenerationCalls, p_.Duration)
		}

		return err
	}
}
