package plan

import "testing"

func validScenario(id string) Scenario {
	return Scenario{
		ScenarioID:  id,
		Name:        "Scenario " + id,
		FTERequired: 48,
		CostAnnual:  2_300_000,
		ExpectedSLA: 0.82,
		BreachRisk:  0.1,
	}
}

func TestScenarioValidate(t *testing.T) {
	occupancy := 0.93
	badOccupancy := 1.4

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr bool
	}{
		{"valid", func(s *Scenario) {}, false},
		{"valid with occupancy", func(s *Scenario) { s.OccupancyPeak = &occupancy }, false},
		{"missing id", func(s *Scenario) { s.ScenarioID = " " }, true},
		{"missing name", func(s *Scenario) { s.Name = "" }, true},
		{"sla above one", func(s *Scenario) { s.ExpectedSLA = 1.5 }, true},
		{"sla negative", func(s *Scenario) { s.ExpectedSLA = -0.1 }, true},
		{"risk above one", func(s *Scenario) { s.BreachRisk = 1.01 }, true},
		{"occupancy above one", func(s *Scenario) { s.OccupancyPeak = &badOccupancy }, true},
		{"negative fte", func(s *Scenario) { s.FTERequired = -3 }, true},
		{"negative cost", func(s *Scenario) { s.CostAnnual = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validScenario("S1")
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewScenarioNeverClamps(t *testing.T) {
	s := validScenario("S1")
	s.ExpectedSLA = 1.5
	if _, err := NewScenario(s); err == nil {
		t.Fatal("expected out-of-range expected_sla to be rejected")
	}
	s.ExpectedSLA = -0.1
	if _, err := NewScenario(s); err == nil {
		t.Fatal("expected negative expected_sla to be rejected")
	}
}

func TestValidateScenarios(t *testing.T) {
	if err := ValidateScenarios(nil); err == nil {
		t.Fatal("expected empty set to be rejected")
	}
	if err := ValidateScenarios([]Scenario{validScenario("S1"), validScenario("S2")}); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}
	if err := ValidateScenarios([]Scenario{validScenario("S1"), validScenario("S1")}); err == nil {
		t.Fatal("expected duplicate scenario_id to be rejected")
	}
}

func TestIndex(t *testing.T) {
	scenarios := []Scenario{validScenario("S1"), validScenario("S2")}
	idx := Index(scenarios)
	if len(idx) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx))
	}
	if idx["S2"].Name != "Scenario S2" {
		t.Fatalf("unexpected scenario for S2: %+v", idx["S2"])
	}
	if _, ok := idx["S9"]; ok {
		t.Fatal("unexpected entry for unknown id")
	}
}

func TestDecisionContextValidate(t *testing.T) {
	bad := 1.2
	good := 0.8

	tests := []struct {
		name    string
		mutate  func(*DecisionContext)
		wantErr bool
	}{
		{"defaults", func(c *DecisionContext) {}, false},
		{"all enums", func(c *DecisionContext) {
			c.Objective = ObjectiveRiskAverse
			c.DecisionMode = ModeQA
			c.Audience = AudienceAnalyst
		}, false},
		{"sla target in range", func(c *DecisionContext) { c.MinSLATarget = &good }, false},
		{"unknown objective", func(c *DecisionContext) { c.Objective = "cheapest" }, true},
		{"unknown mode", func(c *DecisionContext) { c.DecisionMode = "rank" }, true},
		{"unknown audience", func(c *DecisionContext) { c.Audience = "board" }, true},
		{"sla target out of range", func(c *DecisionContext) { c.MinSLATarget = &bad }, true},
		{"breach risk out of range", func(c *DecisionContext) { c.MaxBreachRisk = &bad }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := DefaultContext()
			tc.mutate(&ctx)
			err := ctx.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultContext(t *testing.T) {
	ctx := DefaultContext()
	if ctx.Objective != ObjectiveBalanced {
		t.Fatalf("expected balanced objective, got %s", ctx.Objective)
	}
	if ctx.DecisionMode != ModeRecommend {
		t.Fatalf("expected recommend mode, got %s", ctx.DecisionMode)
	}
	if ctx.Audience != AudienceOpsManager {
		t.Fatalf("expected ops_manager audience, got %s", ctx.Audience)
	}
}
