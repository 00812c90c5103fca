package store

import (
	"encoding/json"
	"strings"
	"time"
)

// ScenarioSet groups the staffing scenarios uploaded together for one
// planning exercise.
type ScenarioSet struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:128;index"`
	Owner         string `gorm:"size:128;index"`
	ScenarioCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Scenario is one staffing option inside a set. ScenarioID is the caller's
// stable identifier, unique within its set.
type Scenario struct {
	ID            uint   `gorm:"primaryKey"`
	SetID         uint   `gorm:"uniqueIndex:idx_scenarios_set_scenario;index"`
	ScenarioID    string `gorm:"size:64;uniqueIndex:idx_scenarios_set_scenario"`
	Name          string `gorm:"size:256"`
	FTERequired   float64
	CostAnnual    float64
	ExpectedSLA   float64
	BreachRisk    float64
	OccupancyPeak *float64
	Notes         string `gorm:"type:text"`
	CreatedAt     time.Time
}

// ReasoningRun persists the outcome of one reasoning request for querying and
// exporting.
type ReasoningRun struct {
	ID                  uint   `gorm:"primaryKey"`
	RunID               string `gorm:"size:64;uniqueIndex"`
	SetID               uint   `gorm:"index"`
	Objective           string `gorm:"size:32"`
	DecisionMode        string `gorm:"size:32;index"`
	Audience            string `gorm:"size:32"`
	Question            string `gorm:"type:text"`
	Status              string `gorm:"size:32;index"`
	Attempts            int
	ResponseJSON        string `gorm:"type:text"`
	IssuesJSON          string `gorm:"type:text"`
	ExecSummary         string `gorm:"type:text"`
	RecommendedScenario string `gorm:"size:64"`
	Confidence          float64
	IssueCount          int
	ErrorMessage        string `gorm:"size:512"`
	ProcessingTimeMs    int64
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// RunIssue mirrors a validation issue when stored on a run row.
type RunIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SetIssues saves validation issues as JSON.
func (r *ReasoningRun) SetIssues(issues []RunIssue) {
	if issues == nil {
		issues = []RunIssue{}
	}
	payload, _ := json.Marshal(issues)
	r.IssuesJSON = string(payload)
	r.IssueCount = len(issues)
}

// Issues returns the decoded validation issues.
func (r *ReasoningRun) Issues() []RunIssue {
	if strings.TrimSpace(r.IssuesJSON) == "" {
		return nil
	}
	var out []RunIssue
	if err := json.Unmarshal([]byte(r.IssuesJSON), &out); err != nil {
		return nil
	}
	return out
}
