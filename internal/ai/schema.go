package ai

import (
	"fmt"
	"sort"
	"strings"
)

// Closed key sets for the response contract. Anything outside these maps is a
// schema violation, at any nesting level.
var (
	topLevelKeys = map[string]struct{}{
		"recommendation":   {},
		"comparison":       {},
		"exec_summary":     {},
		"citations":        {},
		"answer":           {},
		"missing_data":     {},
		"suggested_reruns": {},
	}
	recommendationKeys = map[string]struct{}{
		"scenario_id":  {},
		"confidence":   {},
		"why":          {},
		"risks":        {},
		"assumptions":  {},
		"next_actions": {},
	}
	comparisonKeys = map[string]struct{}{
		"top_2":     {},
		"tradeoffs": {},
	}
	tradeoffKeys = map[string]struct{}{
		"dimension": {},
		"winner":    {},
		"note":      {},
	}
	citationKeys = map[string]struct{}{
		"scenario_id": {},
		"fields":      {},
	}
)

// ValidateSchema checks a parsed object against the structured response
// contract and returns the typed response. Every violation found is
// aggregated into a single SchemaViolation error rather than failing on the
// first. The check is purely structural: it knows nothing about which
// scenario ids actually exist.
func ValidateSchema(raw map[string]any) (*Response, error) {
	c := &schemaChecker{}
	resp := &Response{Citations: []Citation{}}

	c.checkKnownKeys("", raw, topLevelKeys)

	if value, ok := raw["exec_summary"]; !ok || value == nil {
		c.addf("exec_summary is required")
	} else if s, ok := value.(string); !ok {
		c.addf("exec_summary must be a string")
	} else {
		resp.ExecSummary = s
	}

	if value, ok := raw["recommendation"]; ok && value != nil {
		resp.Recommendation = c.checkRecommendation(value)
	}
	if value, ok := raw["comparison"]; ok && value != nil {
		resp.Comparison = c.checkComparison(value)
	}
	if value, ok := raw["citations"]; ok && value != nil {
		resp.Citations = c.checkCitations(value)
	}
	if value, ok := raw["answer"]; ok && value != nil {
		if s, ok := value.(string); ok {
			resp.Answer = s
		} else {
			c.addf("answer must be a string")
		}
	}
	if value, ok := raw["missing_data"]; ok && value != nil {
		resp.MissingData = c.stringList("missing_data", value)
	}
	if value, ok := raw["suggested_reruns"]; ok && value != nil {
		resp.SuggestedReruns = c.checkSuggestedReruns(value)
	}

	if len(c.issues) > 0 {
		return nil, &ResponseError{
			Kind:    KindSchemaViolation,
			Message: fmt.Sprintf("%d schema violation(s)", len(c.issues)),
			Issues:  c.issues,
		}
	}
	return resp, nil
}

// schemaChecker accumulates violations so callers see every problem at once.
type schemaChecker struct {
	issues []ValidationIssue
}

func (c *schemaChecker) addf(format string, args ...any) {
	c.issues = append(c.issues, ValidationIssue{Type: "schema", Message: fmt.Sprintf(format, args...)})
}

func (c *schemaChecker) checkKnownKeys(path string, obj map[string]any, allowed map[string]struct{}) {
	var unknown []string
	for key := range obj {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	where := "top level"
	if path != "" {
		where = path
	}
	c.addf("unknown key(s) at %s: %s", where, strings.Join(unknown, ", "))
}

func (c *schemaChecker) checkRecommendation(value any) *Recommendation {
	obj, ok := value.(map[string]any)
	if !ok {
		c.addf("recommendation must be an object")
		return nil
	}
	c.checkKnownKeys("recommendation", obj, recommendationKeys)

	rec := &Recommendation{}
	rec.ScenarioID = c.requireString(obj, "recommendation.scenario_id", "scenario_id")
	if conf, ok := c.requireNumber(obj, "recommendation.confidence", "confidence"); ok {
		if conf < 0 || conf > 1 {
			c.addf("recommendation.confidence %v out of range [0, 1]", conf)
		}
		rec.Confidence = conf
	}
	rec.Why = c.optionalStringList(obj, "recommendation.why", "why")
	rec.Risks = c.optionalStringList(obj, "recommendation.risks", "risks")
	rec.Assumptions = c.optionalStringList(obj, "recommendation.assumptions", "assumptions")
	rec.NextActions = c.optionalStringList(obj, "recommendation.next_actions", "next_actions")
	return rec
}

func (c *schemaChecker) checkComparison(value any) *Comparison {
	obj, ok := value.(map[string]any)
	if !ok {
		c.addf("comparison must be an object")
		return nil
	}
	c.checkKnownKeys("comparison", obj, comparisonKeys)

	comp := &Comparison{}
	comp.Top2 = c.optionalStringList(obj, "comparison.top_2", "top_2")
	if raw, ok := obj["tradeoffs"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			c.addf("comparison.tradeoffs must be a list")
			return comp
		}
		for i, entry := range list {
			item, ok := entry.(map[string]any)
			if !ok {
				c.addf("comparison.tradeoffs[%d] must be an object", i)
				continue
			}
			path := fmt.Sprintf("comparison.tradeoffs[%d]", i)
			c.checkKnownKeys(path, item, tradeoffKeys)
			comp.Tradeoffs = append(comp.Tradeoffs, Tradeoff{
				Dimension: c.requireString(item, path+".dimension", "dimension"),
				Winner:    c.requireString(item, path+".winner", "winner"),
				Note:      c.requireString(item, path+".note", "note"),
			})
		}
	}
	return comp
}

// checkCitations validates the structural shape of each citation entry. The
// fields list is deliberately left loosely typed here: whether its entries
// are strings from the citable allow-list is a grounding concern.
func (c *schemaChecker) checkCitations(value any) []Citation {
	citations := []Citation{}
	list, ok := value.([]any)
	if !ok {
		c.addf("citations must be a list")
		return citations
	}
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			c.addf("citations[%d] must be an object", i)
			continue
		}
		path := fmt.Sprintf("citations[%d]", i)
		c.checkKnownKeys(path, obj, citationKeys)
		cit := Citation{ScenarioID: c.requireString(obj, path+".scenario_id", "scenario_id")}
		if fieldsRaw, ok := obj["fields"]; ok {
			if fields, ok := fieldsRaw.([]any); ok {
				for _, f := range fields {
					if s, ok := f.(string); ok {
						cit.Fields = append(cit.Fields, s)
					}
				}
			}
		}
		citations = append(citations, cit)
	}
	return citations
}

func (c *schemaChecker) checkSuggestedReruns(value any) []map[string]any {
	list, ok := value.([]any)
	if !ok {
		c.addf("suggested_reruns must be a list")
		return nil
	}
	var reruns []map[string]any
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			c.addf("suggested_reruns[%d] must be an object", i)
			continue
		}
		reruns = append(reruns, obj)
	}
	return reruns
}

func (c *schemaChecker) requireString(obj map[string]any, path, key string) string {
	value, ok := obj[key]
	if !ok || value == nil {
		c.addf("%s is required", path)
		return ""
	}
	s, ok := value.(string)
	if !ok {
		c.addf("%s must be a string", path)
		return ""
	}
	return s
}

func (c *schemaChecker) requireNumber(obj map[string]any, path, key string) (float64, bool) {
	value, ok := obj[key]
	if !ok || value == nil {
		c.addf("%s is required", path)
		return 0, false
	}
	f, ok := value.(float64)
	if !ok {
		c.addf("%s must be a number", path)
		return 0, false
	}
	return f, true
}

func (c *schemaChecker) optionalStringList(obj map[string]any, path, key string) []string {
	value, ok := obj[key]
	if !ok || value == nil {
		return nil
	}
	return c.stringList(path, value)
}

func (c *schemaChecker) stringList(path string, value any) []string {
	list, ok := value.([]any)
	if !ok {
		c.addf("%s must be a list of strings", path)
		return nil
	}
	out := make([]string, 0, len(list))
	for i, entry := range list {
		s, ok := entry.(string)
		if !ok {
			c.addf("%s[%d] must be a string", path, i)
			continue
		}
		out = append(out, s)
	}
	return out
}
