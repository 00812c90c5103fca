package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"workforce-decision/backend/internal/plan"
)

// SystemPrompt is the fixed system instruction sent with every attempt.
const SystemPrompt = `You are a workforce-planning decision support assistant.

NON-NEGOTIABLE RULES:
- Use ONLY the scenario data and decision context provided in the user message.
- Do NOT compute new staffing, SLA, costs, savings, deltas, or probabilities.
- Do NOT invent new scenarios, constraints, or metrics.
- If the user asks for something that requires recomputation by the engine, say so and list what inputs must be rerun.
- Output MUST be valid JSON and MUST match the required schema.
- Always ground claims: include citations of scenario_id + the exact fields you used.

OUTPUT FORMAT:
Return ONLY JSON. No markdown. No extra text.`

// BuildUserPayload assembles the single authoritative payload the model must
// use. It is the sole source of numeric truth for a reasoning run and is
// reused verbatim across retry attempts.
func BuildUserPayload(ctx plan.DecisionContext, scenarios []plan.Scenario, question string) (string, error) {
	payload := map[string]any{
		"decision_context": ctx,
		"scenarios":        scenarios,
		"user_question":    question,
		"schema_contract": map[string]any{
			"required_top_level_keys": []string{"exec_summary", "citations"},
			"recommend_mode":          "Include 'recommendation' with scenario_id, confidence, why/risks/assumptions/next_actions.",
			"compare_mode":            "Include 'comparison' with top_2 and tradeoffs.",
			"qa_mode":                 "Include 'answer'. If unknown, include 'missing_data' and 'suggested_reruns'.",
			"citations_rule":          "Every major claim must cite scenario_id and fields used (e.g., expected_sla, cost_annual, breach_risk, occupancy_peak, fte_required).",
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// BuildModeInstruction returns the short task directive for the context's
// decision mode.
func BuildModeInstruction(ctx plan.DecisionContext) string {
	switch ctx.DecisionMode {
	case plan.ModeRecommend:
		return "TASK: Recommend the best scenario given the context. " +
			"First filter infeasible scenarios if constraints are present, then choose based on objective. " +
			"Provide concise exec_summary tailored to audience."
	case plan.ModeCompare:
		return "TASK: Compare scenarios and select the top 2 contenders. " +
			"Provide tradeoffs (cost vs risk vs SLA) and an exec_summary tailored to audience."
	case plan.ModeQA:
		return "TASK: Answer the user's question using ONLY the provided scenario table. " +
			"If the question requires recomputation (e.g., changing AHT/forecast/shrinkage), say so and return missing_data + suggested_reruns."
	}
	return "TASK: Provide decision support using only the provided payload."
}

// BuildUserPrompt composes the initial user prompt for attempt one.
func BuildUserPrompt(ctx plan.DecisionContext, userPayload string) string {
	return BuildModeInstruction(ctx) + "\n\nAUTHORITATIVE PAYLOAD:\n" + userPayload
}

// BuildCorrectionPrompt asks the model to repair its JSON without changing
// meaning beyond fixing the listed issues. The original authoritative payload
// is repeated verbatim so corrections stay anchored to stable ground truth.
func BuildCorrectionPrompt(userPayload, priorOutput string, issues []ValidationIssue) string {
	var b strings.Builder
	b.WriteString("You returned JSON that failed validation.\n")
	b.WriteString("Fix the JSON to satisfy the schema and constraints.\n")
	b.WriteString("Do not add new numbers or claims. Do not change scenario data.\n")
	b.WriteString("Return ONLY corrected JSON.\n\n")
	b.WriteString("VALIDATION ISSUES:\n")
	if len(issues) == 0 {
		b.WriteString("- (unknown)\n")
	}
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s: %s\n", issue.Type, issue.Message)
	}
	b.WriteString("\nORIGINAL AUTHORITATIVE USER PAYLOAD (do not contradict):\n")
	b.WriteString(userPayload)
	b.WriteString("\n\nYOUR PRIOR OUTPUT:\n")
	b.WriteString(strings.TrimSpace(priorOutput))
	b.WriteString("\n")
	return b.String()
}
