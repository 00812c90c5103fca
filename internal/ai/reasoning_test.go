package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"workforce-decision/backend/internal/plan"
)

// stubCompleter replays scripted outputs and records every prompt it saw.
type stubCompleter struct {
	outputs []string
	err     error
	prompts []string
}

func (s *stubCompleter) Enabled() bool { return true }

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.prompts = append(s.prompts, user)
	if s.err != nil {
		return "", s.err
	}
	idx := len(s.prompts) - 1
	if idx >= len(s.outputs) {
		idx = len(s.outputs) - 1
	}
	return s.outputs[idx], nil
}

const cleanRecommendation = `{
	"exec_summary": "S2 hits the SLA target at acceptable cost.",
	"recommendation": {"scenario_id": "S2", "confidence": 0.8, "why": ["Best SLA"]},
	"citations": [{"scenario_id": "S2", "fields": ["expected_sla", "cost_annual"]}]
}`

func TestEngineRunCleanFirstAttempt(t *testing.T) {
	llm := &stubCompleter{outputs: []string{cleanRecommendation}}
	engine := NewEngine(llm, 2)

	result, err := engine.Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "Which scenario?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(llm.prompts))
	}
	if result.Response == nil || result.Response.Recommendation == nil || result.Response.Recommendation.ScenarioID != "S2" {
		t.Fatalf("unexpected response: %+v", result.Response)
	}
	if result.Issues == nil || len(result.Issues) != 0 {
		t.Fatalf("clean run must have empty non-nil issues, got %v", result.Issues)
	}
}

// Running the same input twice against the same scripted provider yields the
// same outcome.
func TestEngineRunIdempotent(t *testing.T) {
	for i := 0; i < 2; i++ {
		llm := &stubCompleter{outputs: []string{cleanRecommendation}}
		result, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "Which scenario?")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if result.Attempts != 1 || result.Response.Recommendation.ScenarioID != "S2" {
			t.Fatalf("run %d diverged: %+v", i, result)
		}
	}
}

func TestEngineRetriesSchemaFailureThenSucceeds(t *testing.T) {
	llm := &stubCompleter{outputs: []string{`{"wrong_key": true}`, cleanRecommendation}}
	engine := NewEngine(llm, 2)

	var states []string
	engine.WithNotify(func(ev Event) { states = append(states, ev.State) })

	result, err := engine.Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[1], "failed validation") {
		t.Fatal("second attempt should use a correction prompt")
	}
	if !strings.Contains(llm.prompts[1], `"wrong_key": true`) {
		t.Fatal("correction prompt should include the prior output")
	}

	var sawRetrying bool
	for _, state := range states {
		if state == StateRetrying {
			sawRetrying = true
		}
	}
	if !sawRetrying || states[len(states)-1] != StateDone {
		t.Fatalf("unexpected state sequence: %v", states)
	}
}

// After exhausting attempts a still-broken schema is fatal, with exactly
// maxAttempts provider calls made.
func TestEngineSchemaFailureExhaustsAttempts(t *testing.T) {
	llm := &stubCompleter{outputs: []string{`{"wrong_key": true}`}}
	_, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !IsKind(err, KindSchemaViolation) {
		t.Fatalf("expected schema violation, got %v", err)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected exactly 2 provider calls, got %d", len(llm.prompts))
	}
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Attempt != 2 {
		t.Fatalf("error should carry final attempt number: %v", err)
	}
}

func TestEngineParseFailureFatalOnFinalAttempt(t *testing.T) {
	llm := &stubCompleter{outputs: []string{"Sure, here you go: {}"}}
	_, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if !IsKind(err, KindMalformedOutput) {
		t.Fatalf("expected malformed output error, got %v", err)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(llm.prompts))
	}
}

// Grounding issues surviving the final attempt are not fatal; the result is
// returned with the issues attached.
func TestEngineGroundingIssuesOnFinalAttempt(t *testing.T) {
	hallucinated := `{
		"exec_summary": "Pick S9.",
		"recommendation": {"scenario_id": "S9", "confidence": 0.9},
		"citations": [{"scenario_id": "S9", "fields": ["expected_sla"]}]
	}`
	llm := &stubCompleter{outputs: []string{hallucinated}}

	result, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if err != nil {
		t.Fatalf("grounding issues must not be fatal on final attempt: %v", err)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected a retry before accepting, got %d calls", len(llm.prompts))
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
	if len(result.Issues) == 0 {
		t.Fatal("expected grounding issues on the result")
	}
	if result.Response == nil || result.Response.ExecSummary != "Pick S9." {
		t.Fatalf("response should still be returned: %+v", result.Response)
	}
}

func TestEngineProviderFailureIsFatalImmediately(t *testing.T) {
	llm := &stubCompleter{err: errors.New("upstream 500")}
	_, err := NewEngine(llm, 3).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if !IsKind(err, KindProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("provider failure must not be retried, got %d calls", len(llm.prompts))
	}
}

func TestEngineBlankOutputIsProviderFailure(t *testing.T) {
	llm := &stubCompleter{outputs: []string{"   \n"}}
	_, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if !IsKind(err, KindProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("blank output must not be retried, got %d calls", len(llm.prompts))
	}
}

func TestEngineInvalidInputBeforeProviderCall(t *testing.T) {
	llm := &stubCompleter{outputs: []string{cleanRecommendation}}
	engine := NewEngine(llm, 2)

	_, err := engine.Run(context.Background(), plan.DefaultContext(), nil, "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	badCtx := plan.DefaultContext()
	badCtx.DecisionMode = "rank"
	_, err = engine.Run(context.Background(), badCtx, groundingScenarios(), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	if len(llm.prompts) != 0 {
		t.Fatalf("invalid input must not reach the provider, got %d calls", len(llm.prompts))
	}
}

func TestEngineDisabledCompleter(t *testing.T) {
	_, err := NewEngine(nil, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "")
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

// The authoritative payload is built once and repeated verbatim in every
// correction prompt.
func TestEnginePayloadStableAcrossAttempts(t *testing.T) {
	llm := &stubCompleter{outputs: []string{`{"wrong_key": true}`, cleanRecommendation}}
	_, err := NewEngine(llm, 2).Run(context.Background(), plan.DefaultContext(), groundingScenarios(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	marker := "AUTHORITATIVE PAYLOAD:\n"
	first := llm.prompts[0]
	payload := first[strings.Index(first, marker)+len(marker):]
	if !strings.Contains(llm.prompts[1], payload) {
		t.Fatal("correction prompt must embed the original payload verbatim")
	}
}
