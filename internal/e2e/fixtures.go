package e2e

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSkill creates a skill directory with a SKILL.md marker under the
// harness project directory and returns its path.
func (h *Harness) WriteSkill(t *testing.T, name, body string) string {
	t.Helper()
	dir := filepath.Join(h.projectDir, name)
	writeFixture(t, filepath.Join(dir, "SKILL.md"),
		"---\nname: "+name+"\n---\n"+body)
	return dir
}

// WriteResource creates a single-file resource (command, agent, or rule)
// under the harness project directory and returns its path.
func (h *Harness) WriteResource(t *testing.T, rel, body string) string {
	t.Helper()
	path := filepath.Join(h.projectDir, rel)
	writeFixture(t, path, body)
	return path
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
