package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"workforce-decision/backend/internal/plan"
)

// Completer is a minimal text-in text-out LLM surface. Providers implement it
// over their own HTTP APIs.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Run states reported through the notify hook as an attempt moves through the
// pipeline.
const (
	StateRequesting     = "requesting"
	StateParsing        = "parsing"
	StateSchemaCheck    = "schema_check"
	StateGroundingCheck = "grounding_check"
	StateRetrying       = "retrying"
	StateDone           = "done"
	StateFailed         = "failed"
)

// Event describes a state transition during a reasoning run.
type Event struct {
	State   string
	Attempt int
	Issues  []ValidationIssue
	Message string
}

// DefaultMaxAttempts bounds the request/validate/correct loop.
const DefaultMaxAttempts = 2

// Engine drives the full reasoning pipeline: build the authoritative payload
// once, then loop attempts of request, strict parse, schema check, grounding
// check, issuing a correction prompt between attempts.
type Engine struct {
	llm         Completer
	maxAttempts int
	notify      func(Event)
}

func NewEngine(llm Completer, maxAttempts int) *Engine {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{llm: llm, maxAttempts: maxAttempts}
}

// WithNotify sets a hook invoked on every state transition. The hook runs on
// the calling goroutine and must not block.
func (e *Engine) WithNotify(fn func(Event)) *Engine {
	e.notify = fn
	return e
}

func (e *Engine) emit(ev Event) {
	if e.notify != nil {
		e.notify(ev)
	}
}

// Run executes one reasoning request end to end. Parse and schema failures on
// the final attempt are fatal; grounding issues on the final attempt are
// returned on the Result instead, so callers can still render a best-effort
// answer with its caveats. Provider failures are always fatal immediately.
func (e *Engine) Run(ctx context.Context, dctx plan.DecisionContext, scenarios []plan.Scenario, question string) (*Result, error) {
	if err := plan.ValidateScenarios(scenarios); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := dctx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if e.llm == nil || !e.llm.Enabled() {
		return nil, ErrDisabled
	}

	payload, err := BuildUserPayload(dctx, scenarios, question)
	if err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}
	userPrompt := BuildUserPrompt(dctx, payload)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		final := attempt == e.maxAttempts

		e.emit(Event{State: StateRequesting, Attempt: attempt})
		text, err := e.llm.Complete(ctx, SystemPrompt, userPrompt)
		if err != nil {
			e.emit(Event{State: StateFailed, Attempt: attempt, Message: err.Error()})
			return nil, &ResponseError{
				Kind:    KindProviderFailure,
				Message: fmt.Sprintf("provider call failed: %v", err),
				Attempt: attempt,
			}
		}
		if strings.TrimSpace(text) == "" {
			e.emit(Event{State: StateFailed, Attempt: attempt, Message: "empty model output"})
			return nil, &ResponseError{
				Kind:    KindProviderFailure,
				Message: "provider returned empty output",
				Attempt: attempt,
			}
		}

		e.emit(Event{State: StateParsing, Attempt: attempt})
		raw, err := ParseStrict(text)
		if err != nil {
			if final {
				e.emit(Event{State: StateFailed, Attempt: attempt, Message: err.Error()})
				return nil, withAttempt(err, attempt)
			}
			issues := issuesFromError(err)
			logrus.WithFields(logrus.Fields{"attempt": attempt, "issues": len(issues)}).
				Warn("model output failed strict parse, retrying")
			e.emit(Event{State: StateRetrying, Attempt: attempt, Issues: issues})
			userPrompt = BuildCorrectionPrompt(payload, text, issues)
			continue
		}

		e.emit(Event{State: StateSchemaCheck, Attempt: attempt})
		resp, err := ValidateSchema(raw)
		if err != nil {
			if final {
				e.emit(Event{State: StateFailed, Attempt: attempt, Message: err.Error()})
				return nil, withAttempt(err, attempt)
			}
			issues := issuesFromError(err)
			logrus.WithFields(logrus.Fields{"attempt": attempt, "issues": len(issues)}).
				Warn("model output failed schema check, retrying")
			e.emit(Event{State: StateRetrying, Attempt: attempt, Issues: issues})
			userPrompt = BuildCorrectionPrompt(payload, text, issues)
			continue
		}

		e.emit(Event{State: StateGroundingCheck, Attempt: attempt})
		issues := ValidateGrounding(raw, scenarios)
		if len(issues) > 0 && !final {
			logrus.WithFields(logrus.Fields{"attempt": attempt, "issues": len(issues)}).
				Warn("model output failed grounding check, retrying")
			e.emit(Event{State: StateRetrying, Attempt: attempt, Issues: issues})
			userPrompt = BuildCorrectionPrompt(payload, text, issues)
			continue
		}

		e.emit(Event{State: StateDone, Attempt: attempt, Issues: issues})
		return &Result{
			Response: resp,
			RawJSON:  raw,
			Issues:   issues,
			Attempts: attempt,
		}, nil
	}

	// Unreachable with maxAttempts >= 1.
	return nil, &ResponseError{Kind: KindProviderFailure, Message: "no attempts executed"}
}

func issuesFromError(err error) []ValidationIssue {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		if len(respErr.Issues) > 0 {
			return respErr.Issues
		}
		return []ValidationIssue{{Type: string(respErr.Kind), Message: respErr.Message}}
	}
	return []ValidationIssue{{Type: "error", Message: err.Error()}}
}

func withAttempt(err error, attempt int) error {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		respErr.Attempt = attempt
		return respErr
	}
	return err
}
