package api

import (
	"encoding/json"
	"strings"
	"time"

	"workforce-decision/backend/internal/ai"
	"workforce-decision/backend/internal/plan"
	"workforce-decision/backend/internal/store"
)

// ScenarioInput is one staffing scenario as submitted by the client.
type ScenarioInput struct {
	ScenarioID    string   `json:"scenario_id" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	FTERequired   float64  `json:"fte_required"`
	CostAnnual    float64  `json:"cost_annual"`
	ExpectedSLA   float64  `json:"expected_sla"`
	BreachRisk    float64  `json:"breach_risk"`
	OccupancyPeak *float64 `json:"occupancy_peak,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// ToPlan converts the input into the validated domain type.
func (in ScenarioInput) ToPlan() (plan.Scenario, error) {
	return plan.NewScenario(plan.Scenario{
		ScenarioID:    strings.TrimSpace(in.ScenarioID),
		Name:          strings.TrimSpace(in.Name),
		FTERequired:   in.FTERequired,
		CostAnnual:    in.CostAnnual,
		ExpectedSLA:   in.ExpectedSLA,
		BreachRisk:    in.BreachRisk,
		OccupancyPeak: in.OccupancyPeak,
		Notes:         in.Notes,
	})
}

// CreateScenarioSetRequest is the payload for persisting a named set.
type CreateScenarioSetRequest struct {
	Name      string          `json:"name" binding:"required"`
	Owner     string          `json:"owner"`
	Scenarios []ScenarioInput `json:"scenarios" binding:"required"`
}

// ScenarioSetDTO represents metadata for a stored scenario set.
type ScenarioSetDTO struct {
	ID            uint          `json:"id"`
	Name          string        `json:"name"`
	Owner         string        `json:"owner"`
	ScenarioCount int           `json:"scenario_count"`
	CreatedAt     time.Time     `json:"created_at"`
	Scenarios     []ScenarioDTO `json:"scenarios,omitempty"`
}

// ScenarioDTO is the API representation of a stored scenario.
type ScenarioDTO struct {
	ScenarioID    string   `json:"scenario_id"`
	Name          string   `json:"name"`
	FTERequired   float64  `json:"fte_required"`
	CostAnnual    float64  `json:"cost_annual"`
	ExpectedSLA   float64  `json:"expected_sla"`
	BreachRisk    float64  `json:"breach_risk"`
	OccupancyPeak *float64 `json:"occupancy_peak,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// ScenarioSetsResponse is the paginated response for scenario sets.
type ScenarioSetsResponse struct {
	Items []ScenarioSetDTO `json:"items"`
	Total int64            `json:"total"`
}

// ContextInput mirrors the decision context with every field optional.
type ContextInput struct {
	Objective       string   `json:"objective"`
	DecisionMode    string   `json:"decision_mode"`
	Audience        string   `json:"audience"`
	MinSLATarget    *float64 `json:"min_sla_target,omitempty"`
	MaxBudgetAnnual *float64 `json:"max_budget_annual,omitempty"`
	MaxBreachRisk   *float64 `json:"max_breach_risk,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// ToPlan applies defaults for omitted fields and returns the domain context.
func (in *ContextInput) ToPlan() plan.DecisionContext {
	ctx := plan.DefaultContext()
	if in == nil {
		return ctx
	}
	if v := strings.TrimSpace(in.Objective); v != "" {
		ctx.Objective = v
	}
	if v := strings.TrimSpace(in.DecisionMode); v != "" {
		ctx.DecisionMode = v
	}
	if v := strings.TrimSpace(in.Audience); v != "" {
		ctx.Audience = v
	}
	ctx.MinSLATarget = in.MinSLATarget
	ctx.MaxBudgetAnnual = in.MaxBudgetAnnual
	ctx.MaxBreachRisk = in.MaxBreachRisk
	ctx.Notes = in.Notes
	return ctx
}

// ReasonRequest starts a reasoning run against a stored set or inline
// scenarios.
type ReasonRequest struct {
	SetID       uint            `json:"set_id"`
	Scenarios   []ScenarioInput `json:"scenarios"`
	Context     *ContextInput   `json:"context"`
	Question    string          `json:"question"`
	MaxAttempts int             `json:"max_attempts"`
}

// IssueDTO surfaces a validation issue on API responses.
type IssueDTO struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReasonResponse is the synchronous result of a reasoning run.
type ReasonResponse struct {
	RunID            string       `json:"run_id"`
	Status           string       `json:"status"`
	Attempts         int          `json:"attempts"`
	Response         *ai.Response `json:"response,omitempty"`
	Issues           []IssueDTO   `json:"issues"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
}

// RunDTO is the API representation of a persisted reasoning run.
type RunDTO struct {
	ID                  uint            `json:"id"`
	RunID               string          `json:"run_id"`
	SetID               uint            `json:"set_id,omitempty"`
	Objective           string          `json:"objective"`
	DecisionMode        string          `json:"decision_mode"`
	Audience            string          `json:"audience"`
	Question            string          `json:"question,omitempty"`
	Status              string          `json:"status"`
	Attempts            int             `json:"attempts"`
	Response            json.RawMessage `json:"response,omitempty"`
	Issues              []IssueDTO      `json:"issues"`
	ExecSummary         string          `json:"exec_summary,omitempty"`
	RecommendedScenario string          `json:"recommended_scenario,omitempty"`
	Confidence          float64         `json:"confidence"`
	ErrorMessage        string          `json:"error_message,omitempty"`
	ProcessingTimeMs    int64           `json:"processing_time_ms"`
	CreatedAt           time.Time       `json:"created_at"`
}

// RunsResponse is the paginated response for reasoning runs.
type RunsResponse struct {
	Items []RunDTO `json:"items"`
	Total int64    `json:"total"`
}

// ScenarioFromModel converts a store.Scenario into the DTO representation.
func ScenarioFromModel(s store.Scenario) ScenarioDTO {
	return ScenarioDTO{
		ScenarioID:    s.ScenarioID,
		Name:          s.Name,
		FTERequired:   s.FTERequired,
		CostAnnual:    s.CostAnnual,
		ExpectedSLA:   s.ExpectedSLA,
		BreachRisk:    s.BreachRisk,
		OccupancyPeak: s.OccupancyPeak,
		Notes:         s.Notes,
	}
}

// SetFromModel converts a store.ScenarioSet into a DTO.
func SetFromModel(s store.ScenarioSet) ScenarioSetDTO {
	return ScenarioSetDTO{
		ID:            s.ID,
		Name:          s.Name,
		Owner:         s.Owner,
		ScenarioCount: s.ScenarioCount,
		CreatedAt:     s.CreatedAt,
	}
}

// FromRunModel converts a store.ReasoningRun into a DTO.
func FromRunModel(r store.ReasoningRun) RunDTO {
	dto := RunDTO{
		ID:                  r.ID,
		RunID:               r.RunID,
		SetID:               r.SetID,
		Objective:           r.Objective,
		DecisionMode:        r.DecisionMode,
		Audience:            r.Audience,
		Question:            r.Question,
		Status:              r.Status,
		Attempts:            r.Attempts,
		ExecSummary:         r.ExecSummary,
		RecommendedScenario: r.RecommendedScenario,
		Confidence:          round2(r.Confidence),
		ErrorMessage:        r.ErrorMessage,
		ProcessingTimeMs:    r.ProcessingTimeMs,
		CreatedAt:           r.CreatedAt,
	}
	if strings.TrimSpace(r.ResponseJSON) != "" {
		dto.Response = json.RawMessage(r.ResponseJSON)
	}
	dto.Issues = issueDTOs(r.Issues())
	return dto
}

func issueDTOs(issues []store.RunIssue) []IssueDTO {
	out := make([]IssueDTO, 0, len(issues))
	for _, issue := range issues {
		out = append(out, IssueDTO{Type: issue.Type, Message: issue.Message})
	}
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
