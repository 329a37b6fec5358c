package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/agentpack/agentpack/internal/syncer"
)

func TestStatusHelpers(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		fn   func(string) string
		msg  string
		want string
	}{
		"success with message": {StatusSuccess, "installed", "✓ installed"},
		"success bare":         {StatusSuccess, "", "✓"},
		"error with message":   {StatusError, "boom", "✗ boom"},
		"warning":              {StatusWarning, "careful", "⚠ careful"},
		"skipped":              {StatusSkipped, "exists", "- exists"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.fn(tt.msg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSyncResult(t *testing.T) {
	DisableColors()
	defer EnableColors()

	result := &syncer.Result{Outcomes: []syncer.Outcome{
		{Tool: "claude", Name: "acme:widget", Action: syncer.ActionInstalled},
		{Tool: "claude", Name: "acme:old", Action: syncer.ActionPruned},
		{Tool: "claude", Dependency: "ghost/missing", Action: syncer.ActionFailed, Err: errors.New("not found")},
	}}

	out := RenderSyncResult(result, []string{"claude"})
	if !strings.Contains(out, "claude: 1 installed, 0 updated, 1 pruned") {
		t.Errorf("missing count line: %q", out)
	}
	if !strings.Contains(out, "1 failed") {
		t.Errorf("missing failed count: %q", out)
	}
	if !strings.Contains(out, "ghost/missing (claude): not found") {
		t.Errorf("missing failure detail: %q", out)
	}
}

func TestColorToggle(t *testing.T) {
	EnableColors()
	if !IsColorEnabled() {
		t.Error("colors should be enabled")
	}
	DisableColors()
	if IsColorEnabled() {
		t.Error("colors should be disabled")
	}
	EnableColors()
}
