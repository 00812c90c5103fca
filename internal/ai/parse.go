package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStrict enforces pure JSON output. The trimmed text must be exactly one
// JSON object; markdown fencing, leading prose, and truncated output are all
// rejected before decoding. No lenient repair is attempted, because the
// validators downstream depend on receiving exactly one well-formed object.
func ParseStrict(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, &ResponseError{Kind: KindMalformedOutput, Message: "model did not return a pure JSON object"}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, &ResponseError{Kind: KindInvalidJSON, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return raw, nil
}
