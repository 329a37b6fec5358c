package convert

import (
	"strings"
	"testing"

	"github.com/agentpack/agentpack/internal/resource"
)

func TestConvertSameToolPassthrough(t *testing.T) {
	content := []byte("---\nmodel: sonnet\n---\nBody\n")
	got, err := New().Convert(content, resource.TypeSkill, "claude", "claude")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("same-tool conversion changed content: %q", got)
	}
}

func TestConvertNoFrontmatterPassthrough(t *testing.T) {
	content := []byte("# Plain markdown\n")
	got, err := New().Convert(content, resource.TypeSkill, "claude", "cursor")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("frontmatterless conversion changed content: %q", got)
	}
}

func TestConvertDropsToolSpecificFields(t *testing.T) {
	content := []byte("---\nname: seo\nallowed-tools: all\nhooks: none\n---\nBody\n")
	got, err := New().Convert(content, resource.TypeSkill, "claude", "cursor")
	if err != nil {
		t.Fatal(err)
	}
	out := string(got)
	if strings.Contains(out, "allowed-tools") || strings.Contains(out, "hooks") {
		t.Errorf("claude-specific fields survived: %q", out)
	}
	if !strings.Contains(out, "name: seo") {
		t.Errorf("shared field dropped: %q", out)
	}
	if !strings.Contains(out, "Body") {
		t.Errorf("body dropped: %q", out)
	}
}

func TestConvertRenamesRuleFields(t *testing.T) {
	content := []byte("---\npaths: \"src/**\"\n---\n")
	got, err := New().Convert(content, resource.TypeRule, "claude", "cursor")
	if err != nil {
		t.Fatal(err)
	}
	out := string(got)
	if !strings.Contains(out, "globs:") {
		t.Errorf("paths not renamed to globs: %q", out)
	}
	if strings.Contains(out, "paths:") {
		t.Errorf("old field name survived: %q", out)
	}
}

func TestConvertMapsModelValues(t *testing.T) {
	// model is claude-specific on skills, so use an agent to keep it.
	content := []byte("---\nmodel: fast\n---\n")
	got, err := New().Convert(content, resource.TypeAgent, "cursor", "claude")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "model: sonnet") {
		t.Errorf("model value not mapped: %q", got)
	}
}

func TestNoop(t *testing.T) {
	content := []byte("---\nanything: here\n---\n")
	got, err := Noop{}.Convert(content, resource.TypeSkill, "claude", "cursor")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("Noop changed content: %q", got)
	}
}
