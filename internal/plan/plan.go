package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Objective values supported by the decision context.
const (
	ObjectiveMinCost    = "min_cost"
	ObjectiveMaxSLA     = "max_sla"
	ObjectiveBalanced   = "balanced"
	ObjectiveRiskAverse = "risk_averse"
)

// Decision modes selecting which response substructure is expected.
const (
	ModeRecommend = "recommend"
	ModeCompare   = "compare"
	ModeQA        = "qa"
)

// Audience values the narrative is tailored to.
const (
	AudienceExec       = "exec"
	AudienceOpsManager = "ops_manager"
	AudienceAnalyst    = "analyst"
)

// DecisionContext shapes how the AI should reason about the scenario set.
// Constraints are interpreted by the upstream deterministic engine first;
// the AI only uses them for narrative framing.
type DecisionContext struct {
	Objective       string   `json:"objective"`
	DecisionMode    string   `json:"decision_mode"`
	Audience        string   `json:"audience"`
	MinSLATarget    *float64 `json:"min_sla_target,omitempty"`
	MaxBudgetAnnual *float64 `json:"max_budget_annual,omitempty"`
	MaxBreachRisk   *float64 `json:"max_breach_risk,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// DefaultContext returns the context defaults applied when fields are unset.
func DefaultContext() DecisionContext {
	return DecisionContext{
		Objective:    ObjectiveBalanced,
		DecisionMode: ModeRecommend,
		Audience:     AudienceOpsManager,
	}
}

// Validate checks enumeration membership and constraint bounds.
func (c DecisionContext) Validate() error {
	switch c.Objective {
	case ObjectiveMinCost, ObjectiveMaxSLA, ObjectiveBalanced, ObjectiveRiskAverse:
	default:
		return fmt.Errorf("unknown objective %q", c.Objective)
	}
	switch c.DecisionMode {
	case ModeRecommend, ModeCompare, ModeQA:
	default:
		return fmt.Errorf("unknown decision_mode %q", c.DecisionMode)
	}
	switch c.Audience {
	case AudienceExec, AudienceOpsManager, AudienceAnalyst:
	default:
		return fmt.Errorf("unknown audience %q", c.Audience)
	}
	if c.MinSLATarget != nil && (*c.MinSLATarget < 0 || *c.MinSLATarget > 1) {
		return fmt.Errorf("min_sla_target %v must be in [0, 1]", *c.MinSLATarget)
	}
	if c.MaxBreachRisk != nil && (*c.MaxBreachRisk < 0 || *c.MaxBreachRisk > 1) {
		return fmt.Errorf("max_breach_risk %v must be in [0, 1]", *c.MaxBreachRisk)
	}
	if c.MaxBudgetAnnual != nil && *c.MaxBudgetAnnual < 0 {
		return fmt.Errorf("max_budget_annual %v must be non-negative", *c.MaxBudgetAnnual)
	}
	return nil
}

// Scenario carries authoritative metrics computed by the deterministic engine.
// The reasoning layer treats every field as read-only ground truth.
type Scenario struct {
	ScenarioID    string   `json:"scenario_id"`
	Name          string   `json:"name"`
	FTERequired   float64  `json:"fte_required"`
	CostAnnual    float64  `json:"cost_annual"`
	ExpectedSLA   float64  `json:"expected_sla"`
	BreachRisk    float64  `json:"breach_risk"`
	OccupancyPeak *float64 `json:"occupancy_peak,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// NewScenario validates the supplied scenario and returns it unchanged.
// Out-of-range values fail construction; nothing is ever clamped.
func NewScenario(s Scenario) (Scenario, error) {
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate enforces the scenario field bounds.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.ScenarioID) == "" {
		return errors.New("scenario_id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario %s: name is required", s.ScenarioID)
	}
	if s.ExpectedSLA < 0 || s.ExpectedSLA > 1 {
		return fmt.Errorf("scenario %s: expected_sla %v must be in [0, 1]", s.ScenarioID, s.ExpectedSLA)
	}
	if s.BreachRisk < 0 || s.BreachRisk > 1 {
		return fmt.Errorf("scenario %s: breach_risk %v must be in [0, 1]", s.ScenarioID, s.BreachRisk)
	}
	if s.OccupancyPeak != nil && (*s.OccupancyPeak < 0 || *s.OccupancyPeak > 1) {
		return fmt.Errorf("scenario %s: occupancy_peak %v must be in [0, 1]", s.ScenarioID, *s.OccupancyPeak)
	}
	if s.FTERequired < 0 {
		return fmt.Errorf("scenario %s: fte_required %v must be non-negative", s.ScenarioID, s.FTERequired)
	}
	if s.CostAnnual < 0 {
		return fmt.Errorf("scenario %s: cost_annual %v must be non-negative", s.ScenarioID, s.CostAnnual)
	}
	return nil
}

// ValidateScenarios checks that the set is non-empty, every scenario is valid,
// and scenario ids are unique within the set.
func ValidateScenarios(scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return errors.New("scenario set must be non-empty")
	}
	seen := make(map[string]struct{}, len(scenarios))
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := seen[s.ScenarioID]; ok {
			return fmt.Errorf("duplicate scenario_id %q", s.ScenarioID)
		}
		seen[s.ScenarioID] = struct{}{}
	}
	return nil
}

// Index maps scenario ids to scenarios. Citation and reference validation
// rely on id uniqueness enforced by ValidateScenarios.
func Index(scenarios []Scenario) map[string]Scenario {
	idx := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		idx[s.ScenarioID] = s
	}
	return idx
}
