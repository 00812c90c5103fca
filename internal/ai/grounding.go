package ai

import (
	"fmt"
	"sort"
	"strings"

	"workforce-decision/backend/internal/plan"
)

// CitableFields is the set of scenario fields a citation may reference.
var CitableFields = map[string]struct{}{
	"scenario_id":    {},
	"name":           {},
	"fte_required":   {},
	"cost_annual":    {},
	"expected_sla":   {},
	"breach_risk":    {},
	"occupancy_peak": {},
	"notes":          {},
}

// ValidateGrounding cross-checks a schema-valid raw object against the
// scenarios that were actually sent to the model. It operates on the raw map
// rather than the typed response so that malformed citation fields, which the
// schema pass leaves loosely typed, are still caught here. Always returns a
// non-nil slice; empty means fully grounded.
func ValidateGrounding(raw map[string]any, scenarios []plan.Scenario) []ValidationIssue {
	issues := []ValidationIssue{}
	known := plan.Index(scenarios)

	issues = append(issues, validateCitations(raw, known)...)
	issues = append(issues, validateReferences(raw, known)...)
	return issues
}

func validateCitations(raw map[string]any, known map[string]plan.Scenario) []ValidationIssue {
	issues := []ValidationIssue{}

	citationsRaw := raw["citations"]
	if citationsRaw == nil {
		citationsRaw = []any{}
	}
	list, isList := citationsRaw.([]any)
	if !isList {
		issues = append(issues, ValidationIssue{Type: "citations", Message: "citations must be a list."})
		return issues
	}

	for i, entry := range list {
		obj, isObj := entry.(map[string]any)
		if !isObj {
			issues = append(issues, ValidationIssue{
				Type:    "citations",
				Message: fmt.Sprintf("citations[%d] must be an object.", i),
			})
			continue
		}
		sid, _ := obj["scenario_id"].(string)
		if _, found := known[sid]; !found {
			issues = append(issues, ValidationIssue{
				Type:    "citations",
				Message: fmt.Sprintf("citations[%d].scenario_id '%s' not found in scenarios.", i, sid),
			})
		}
		fieldsRaw, has := obj["fields"]
		if !has || fieldsRaw == nil {
			issues = append(issues, ValidationIssue{
				Type:    "citations",
				Message: fmt.Sprintf("citations[%d].fields must be a list of strings.", i),
			})
			continue
		}
		fields, isFieldList := fieldsRaw.([]any)
		if !isFieldList {
			issues = append(issues, ValidationIssue{
				Type:    "citations",
				Message: fmt.Sprintf("citations[%d].fields must be a list of strings.", i),
			})
			continue
		}
		var invalid []string
		for _, f := range fields {
			s, isStr := f.(string)
			if !isStr {
				issues = append(issues, ValidationIssue{
					Type:    "citations",
					Message: fmt.Sprintf("citations[%d].fields must be a list of strings.", i),
				})
				invalid = nil
				break
			}
			if _, allowed := CitableFields[s]; !allowed {
				invalid = append(invalid, s)
			}
		}
		if len(invalid) > 0 {
			sort.Strings(invalid)
			issues = append(issues, ValidationIssue{
				Type:    "citations",
				Message: fmt.Sprintf("citations[%d] has invalid fields: %s.", i, strings.Join(invalid, ", ")),
			})
		}
	}

	hasRecommendation := raw["recommendation"] != nil
	hasComparison := raw["comparison"] != nil
	if (hasRecommendation || hasComparison) && len(list) == 0 {
		issues = append(issues, ValidationIssue{
			Type:    "citations",
			Message: "expected at least one citation for recommendation/comparison outputs.",
		})
	}
	return issues
}

func validateReferences(raw map[string]any, known map[string]plan.Scenario) []ValidationIssue {
	issues := []ValidationIssue{}

	if recRaw, ok := raw["recommendation"].(map[string]any); ok {
		sid, _ := recRaw["scenario_id"].(string)
		if _, found := known[sid]; !found {
			issues = append(issues, ValidationIssue{
				Type:    "recommendation",
				Message: fmt.Sprintf("recommendation.scenario_id '%s' not found in scenarios.", sid),
			})
		}
	}

	compRaw, ok := raw["comparison"].(map[string]any)
	if !ok {
		return issues
	}
	if top2, isList := compRaw["top_2"].([]any); isList {
		for i, entry := range top2 {
			sid, _ := entry.(string)
			if _, found := known[sid]; !found {
				issues = append(issues, ValidationIssue{
					Type:    "comparison",
					Message: fmt.Sprintf("comparison.top_2[%d] '%s' not found in scenarios.", i, sid),
				})
			}
		}
	}
	if tradeoffs, isList := compRaw["tradeoffs"].([]any); isList {
		for i, entry := range tradeoffs {
			item, isObj := entry.(map[string]any)
			if !isObj {
				continue
			}
			winner, _ := item["winner"].(string)
			if _, found := known[winner]; !found {
				issues = append(issues, ValidationIssue{
					Type:    "comparison",
					Message: fmt.Sprintf("comparison.tradeoffs[%d].winner '%s' not found in scenarios.", i, winner),
				})
			}
		}
	}
	return issues
}
