package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/pensieri/pkg/cot"
	"github.com/go-go-golems/pensieri/pkg/events"
	"github.com/go-go-golems/pensieri/pkg/inference/engine"
	"github.com/go-go-golems/pensieri/pkg/inference/engine/factory"
	"github.com/go-go-golems/pensieri/pkg/inference/fixtures"
	"github.com/go-go-golems/pensieri/pkg/inference/retry"
	"github.com/go-go-golems/pensieri/pkg/steps/ai/settings"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// loadStepSettings applies the optional --settings file on top of base,
// then flags, environment and config file values on top of that.
func loadStepSettings(v *viper.Viper, base *settings.StepSettings) (*settings.StepSettings, error) {
	s := base

	if path := v.GetString("settings"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening settings %s", path)
		}
		defer func() {
			_ = f.Close()
		}()
		if err := s.UpdateFromYAML(f); err != nil {
			return nil, errors.Wrapf(err, "loading settings %s", path)
		}
	}

	s.UpdateFromViper(v)
	return s, nil
}

func publishRetry(ctx context.Context, attempt int, delay time.Duration, err error) {
	events.PublishEventToContext(ctx, events.NewRetryEvent(events.RunMetadataFromContext(ctx), attempt, delay, err))
}

// createEngine returns the rate-limited, retrying provider engine, or the
// fixture engine behind the same retry policy when --fixture is set. Retries
// are published as events carrying the id of the run that hit them.
func createEngine(ctx context.Context, v *viper.Viper, s *settings.StepSettings) (engine.Engine, error) {
	if fixture := v.GetString("fixture"); fixture != "" {
		log.Debug().Str("fixture", fixture).Msg("Using scripted engine")
		e, err := fixtures.LoadScriptedEngine(fixture)
		if err != nil {
			return nil, err
		}
		return retry.NewRequestor(e, s.Retry, retry.WithOnRetry(publishRetry)), nil
	}

	return factory.NewEngineFromStepSettings(ctx, s, factory.WithOnRetry(publishRetry))
}

func cotOptions(s *settings.StepSettings) []cot.Option {
	return []cot.Option{
		cot.WithDomain(s.Reasoning.Domain),
		cot.WithCompactThreshold(s.Reasoning.CompactThreshold),
		cot.WithModelInfo(string(s.GetApiType()), s.Chat.GetEngine()),
	}
}

// withEventPrinter runs f with an event router attached to its context when
// stream is set. Step events are printed to w while f runs.
func withEventPrinter(ctx context.Context, stream bool, verbose bool, w io.Writer, f func(ctx context.Context) error) error {
	if !stream {
		return f(ctx)
	}

	router, err := events.NewEventRouter(events.WithVerbose(verbose))
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event router")
		}
	}()

	router.AddHandler("step-printer", events.DefaultTopic, events.StepPrinterFunc(w))

	eg, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)

	eg.Go(func() error {
		return router.Run(runCtx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		return f(events.WithEventSinks(runCtx, router.Sink(events.DefaultTopic)))
	})

	return eg.Wait()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// writeMarkdown renders markdown through glamour when w is a terminal and
// writes it as-is otherwise.
func writeMarkdown(w io.Writer, markdown string) error {
	if isTerminal(w) {
		rendered, err := glamour.Render(markdown, "dark")
		if err == nil {
			_, err = io.WriteString(w, rendered)
			return err
		}
		log.Debug().Err(err).Msg("Could not render markdown")
	}
	_, err := io.WriteString(w, markdown)
	return err
}

func resultMarkdown(res *cot.Result, printSteps bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", res.Question)

	if printSteps {
		for i, step := range res.ReasoningSteps {
			fmt.Fprintf(&sb, "## Step %d\n\n%s\n\n", i+1, strings.TrimSpace(step))
		}
	}

	fmt.Fprintf(&sb, "## Final answer\n\n%s\n\n", strings.TrimSpace(res.FinalAnswer))

	forced := ""
	if res.Forced {
		forced = ", forced"
	}
	fmt.Fprintf(&sb, "_%s mode: %d steps taken, %d generation calls, ~%d prompt tokens, %s%s_\n",
		res.Mode, res.StepsTaken, res.GenerationCalls, res.PromptTokens, res.Duration.Round(time.Millisecond), forced)
	return sb.String()
}
