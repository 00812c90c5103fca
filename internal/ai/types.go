package ai

// Citation is grounding evidence: a scenario id plus the exact input fields
// a claim was built on.
type Citation struct {
	ScenarioID string   `json:"scenario_id"`
	Fields     []string `json:"fields"`
}

// Recommendation is the single-scenario answer produced in recommend mode.
type Recommendation struct {
	ScenarioID  string   `json:"scenario_id"`
	Confidence  float64  `json:"confidence"`
	Why         []string `json:"why"`
	Risks       []string `json:"risks"`
	Assumptions []string `json:"assumptions"`
	NextActions []string `json:"next_actions"`
}

// Tradeoff contrasts two contenders along one dimension.
type Tradeoff struct {
	Dimension string `json:"dimension"`
	Winner    string `json:"winner"`
	Note      string `json:"note"`
}

// Comparison holds the top two contenders and their tradeoffs.
type Comparison struct {
	Top2      []string   `json:"top_2"`
	Tradeoffs []Tradeoff `json:"tradeoffs"`
}

// Response is the structured answer the API and audit log can rely on.
type Response struct {
	Recommendation  *Recommendation  `json:"recommendation,omitempty"`
	Comparison      *Comparison      `json:"comparison,omitempty"`
	ExecSummary     string           `json:"exec_summary"`
	Citations       []Citation       `json:"citations"`
	Answer          string           `json:"answer,omitempty"`
	MissingData     []string         `json:"missing_data,omitempty"`
	SuggestedReruns []map[string]any `json:"suggested_reruns,omitempty"`
}

// ValidationIssue is a transient diagnostic produced while validating a
// model response. Issues are surfaced to the caller, never persisted by
// this package.
type ValidationIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result bundles the validated response with the raw parsed JSON and any
// outstanding grounding issues. Issues is empty when the response is clean.
type Result struct {
	Response *Response
	RawJSON  map[string]any
	Issues   []ValidationIssue
	Attempts int
}
