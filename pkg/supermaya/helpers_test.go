package supermaya

import (
	"testing"
	"time"
)

func TestCleanupModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading chatter", "Sure, here you go: {\"a\": 1}", `{"a": 1}`},
		{"trailing chatter", "{\"a\": 1} Let me know!", `{"a": 1}`},
		{"whitespace", "   {\"a\": 1}\n\n", `{"a": 1}`},
		{"no braces", "no json here", "no json here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanupModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanupModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("normalizeEmail = %q", got)
	}
}

func TestDefaultDuration(t *testing.T) {
	if got := defaultDuration(0, time.Minute); got != time.Minute {
		t.Errorf("zero value should fall back, got %v", got)
	}
	if got := defaultDuration(5*time.Second, time.Minute); got != 5*time.Second {
		t.Errorf("set value should win, got %v", got)
	}
}
