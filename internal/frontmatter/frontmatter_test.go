package frontmatter

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	content := []byte("---\nname: seo\ndescription: SEO helper\n---\n\nBody text.\n")

	res := Split(content)
	if !res.HasFrontmatter {
		t.Fatal("Split did not detect frontmatter")
	}
	if string(res.Frontmatter) != "name: seo\ndescription: SEO helper" {
		t.Errorf("Frontmatter = %q", res.Frontmatter)
	}
	if res.Content != "\nBody text.\n" {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestSplitNoFrontmatter(t *testing.T) {
	res := Split([]byte("# Just markdown\n"))
	if res.HasFrontmatter {
		t.Error("Split detected frontmatter in plain markdown")
	}
	if res.Content != "# Just markdown\n" {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestSplitUnclosed(t *testing.T) {
	content := "---\nname: seo\nno closing delimiter\n"
	res := Split([]byte(content))
	if res.HasFrontmatter {
		t.Error("Split detected frontmatter without a closing delimiter")
	}
	if res.Content != content {
		t.Errorf("Content = %q, want original", res.Content)
	}
}

func TestSplitWindowsLineEndings(t *testing.T) {
	content := []byte("---\r\nname: seo\r\n---\r\nBody\r\n")
	res := Split(content)
	if !res.HasFrontmatter {
		t.Fatal("Split did not detect CRLF frontmatter")
	}
	if string(res.Frontmatter) != "name: seo" {
		t.Errorf("Frontmatter = %q", res.Frontmatter)
	}
}

func TestParse(t *testing.T) {
	fields, err := Parse([]byte("name: seo\ntags:\n  - a\n  - b\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if fields["name"] != "seo" {
		t.Errorf("name = %v, want seo", fields["name"])
	}

	if _, err := Parse([]byte(": not yaml: [")); err == nil {
		t.Error("Parse accepted invalid YAML")
	}

	fields, err = Parse(nil)
	if err != nil || len(fields) != 0 {
		t.Errorf("Parse(nil) = %v, %v, want empty map", fields, err)
	}
}

func TestName(t *testing.T) {
	if got := Name([]byte("---\nname: seo\n---\nBody\n")); got != "seo" {
		t.Errorf("Name = %q, want seo", got)
	}
	if got := Name([]byte("no frontmatter")); got != "" {
		t.Errorf("Name = %q, want empty", got)
	}
}

func TestRewriteName(t *testing.T) {
	content := []byte("---\nname: seo\ndescription: keep me\n---\n\nBody.\n")

	got := string(RewriteName(content, "kasper:seo"))
	if !strings.Contains(got, "name: kasper:seo") {
		t.Errorf("rewritten content missing new name: %q", got)
	}
	if !strings.Contains(got, "description: keep me") {
		t.Errorf("rewrite dropped an unrelated field: %q", got)
	}
	if !strings.Contains(got, "Body.") {
		t.Errorf("rewrite dropped the body: %q", got)
	}
	if strings.Contains(got, "name: seo\n") {
		t.Errorf("old name survived the rewrite: %q", got)
	}
}

func TestRewriteNameAddsBlock(t *testing.T) {
	got := string(RewriteName([]byte("# No frontmatter\n"), "kasper:seo"))
	if !strings.HasPrefix(got, "---\nname: kasper:seo\n---\n") {
		t.Errorf("RewriteName did not prepend a frontmatter block: %q", got)
	}
	if !strings.Contains(got, "# No frontmatter") {
		t.Errorf("RewriteName dropped the body: %q", got)
	}
}

func TestRewriteNameKeepsInlineDashes(t *testing.T) {
	content := []byte("---\nname: seo\ndescription: before --- after\n---\nBody\n")
	got := string(RewriteName(content, "kasper:seo"))

	if !strings.Contains(got, "description: before --- after") {
		t.Errorf("inline --- treated as closing fence: %q", got)
	}
	if !strings.Contains(got, "name: kasper:seo") {
		t.Errorf("name not rewritten: %q", got)
	}
	if !strings.Contains(got, "Body") {
		t.Errorf("body dropped: %q", got)
	}
}

func TestRewriteNameInsertsField(t *testing.T) {
	content := []byte("---\ndescription: only\n---\nBody\n")
	got := string(RewriteName(content, "kasper:seo"))
	if !strings.Contains(got, "name: kasper:seo") {
		t.Errorf("RewriteName did not insert name: %q", got)
	}
	if !strings.Contains(got, "description: only") {
		t.Errorf("RewriteName dropped existing field: %q", got)
	}
}
