package ai

import "testing"

func TestParseStrict(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind ErrorKind
	}{
		{"bare object", `{"exec_summary": "ok"}`, ""},
		{"surrounding whitespace", "\n  {\"exec_summary\": \"ok\"}\n", ""},
		{"leading prose", `Sure, here is the JSON: {"exec_summary": "ok"}`, KindMalformedOutput},
		{"markdown fence", "```json\n{\"exec_summary\": \"ok\"}\n```", KindMalformedOutput},
		{"trailing prose", `{"exec_summary": "ok"} Hope this helps!`, KindMalformedOutput},
		{"empty string", "", KindMalformedOutput},
		{"bare array", `[{"exec_summary": "ok"}]`, KindMalformedOutput},
		{"truncated object", `{"exec_summary": "ok"`, KindMalformedOutput},
		{"invalid json between braces", `{"exec_summary": }`, KindInvalidJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ParseStrict(tc.input)
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if raw["exec_summary"] != "ok" {
					t.Fatalf("unexpected parse result: %v", raw)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsKind(err, tc.wantKind) {
				t.Fatalf("expected kind %s, got %v", tc.wantKind, err)
			}
		})
	}
}
