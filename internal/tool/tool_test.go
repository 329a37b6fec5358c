package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/resource"
)

func TestTableGet(t *testing.T) {
	table := DefaultTable()

	claude, err := table.Get("claude")
	if err != nil {
		t.Fatalf("Get(claude) failed: %v", err)
	}
	if claude.ConfigDir != ".claude" || !claude.FlattensNames {
		t.Errorf("claude adapter = %+v", claude)
	}

	cursor, err := table.Get("cursor")
	if err != nil {
		t.Fatalf("Get(cursor) failed: %v", err)
	}
	if cursor.FlattensNames {
		t.Error("cursor adapter should use nested layout")
	}

	if _, err := table.Get("emacs"); err == nil {
		t.Error("Get(emacs) should fail")
	}
}

func TestTableOrder(t *testing.T) {
	table := NewTable(
		Adapter{Name: "b"},
		Adapter{Name: "a"},
	)
	names := table.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want registration order [b a]", names)
	}
}

func TestInstallPath(t *testing.T) {
	flat := Adapter{Name: "claude", ConfigDir: ".claude", FlattensNames: true}
	nested := Adapter{Name: "cursor", ConfigDir: ".cursor", FlattensNames: false}

	h := handle.New("acme", "go", "toolkit", "go")

	tests := []struct {
		name    string
		adapter Adapter
		typ     resource.Type
		want    string
	}{
		{"flat skill", flat, resource.TypeSkill, filepath.Join(".claude", "skills", "acme:toolkit:go")},
		{"nested skill", nested, resource.TypeSkill, filepath.Join(".cursor", "skills", "acme", "toolkit", "go")},
		{"flat command nests anyway", flat, resource.TypeCommand, filepath.Join(".claude", "commands", "acme", "toolkit", "go.md")},
		{"nested agent", nested, resource.TypeAgent, filepath.Join(".cursor", "agents", "acme", "toolkit", "go.md")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.adapter.InstallPath("root", h, tt.typ)
			want := filepath.Join("root", tt.want)
			if got != want {
				t.Errorf("InstallPath = %q, want %q", got, want)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverInstalledFlat(t *testing.T) {
	root := t.TempDir()
	flat := Adapter{Name: "claude", ConfigDir: ".claude", FlattensNames: true}

	base := filepath.Join(root, ".claude")
	writeFile(t, filepath.Join(base, "skills", "kasper:seo", "SKILL.md"), "---\nname: kasper:seo\n---\n")
	writeFile(t, filepath.Join(base, "skills", "acme:toolkit:alpha", "SKILL.md"), "")
	// Legacy separator and un-namespaced entries are skipped.
	writeFile(t, filepath.Join(base, "skills", "old--style", "SKILL.md"), "")
	writeFile(t, filepath.Join(base, "skills", "plain", "SKILL.md"), "")
	// Missing marker is skipped even with a valid name.
	if err := os.MkdirAll(filepath.Join(base, "skills", "kasper:empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(base, "commands", "kasper", "commit.md"), "")
	writeFile(t, filepath.Join(base, "agents", "acme", "toolkit", "go.md"), "")

	installed, err := flat.DiscoverInstalled(root)
	if err != nil {
		t.Fatalf("DiscoverInstalled failed: %v", err)
	}

	byFlat := make(map[string]Installed)
	for _, inst := range installed {
		byFlat[inst.Handle.Flat()+"/"+string(inst.Type)] = inst
	}

	if len(installed) != 4 {
		t.Fatalf("DiscoverInstalled returned %d entries, want 4: %+v", len(installed), installed)
	}
	if _, ok := byFlat["kasper:seo/skill"]; !ok {
		t.Error("missing kasper:seo skill")
	}
	if _, ok := byFlat["acme:toolkit:alpha/skill"]; !ok {
		t.Error("missing acme:toolkit:alpha skill")
	}
	if _, ok := byFlat["kasper:commit/command"]; !ok {
		t.Error("missing kasper:commit command")
	}
	if inst, ok := byFlat["acme:toolkit:go/agent"]; !ok {
		t.Error("missing nested acme agent")
	} else if inst.Handle.Username != "acme" || inst.Handle.Name != "go" {
		t.Errorf("agent handle = %+v", inst.Handle)
	}
}

func TestDiscoverInstalledNested(t *testing.T) {
	root := t.TempDir()
	nested := Adapter{Name: "cursor", ConfigDir: ".cursor", FlattensNames: false}

	base := filepath.Join(root, ".cursor")
	writeFile(t, filepath.Join(base, "skills", "kasper", "seo", "SKILL.md"), "")
	writeFile(t, filepath.Join(base, "skills", "acme", "toolkit", "alpha", "SKILL.md"), "")
	writeFile(t, filepath.Join(base, "commands", "kasper", "commit.md"), "")

	installed, err := nested.DiscoverInstalled(root)
	if err != nil {
		t.Fatalf("DiscoverInstalled failed: %v", err)
	}
	if len(installed) != 3 {
		t.Fatalf("DiscoverInstalled returned %d entries, want 3: %+v", len(installed), installed)
	}

	found := false
	for _, inst := range installed {
		if inst.Type == resource.TypeSkill && inst.Handle.Flat() == "acme:toolkit:alpha" {
			found = true
		}
	}
	if !found {
		t.Error("nested skill acme/toolkit/alpha not discovered")
	}
}

func TestDiscoverInstalledMissingDirs(t *testing.T) {
	root := t.TempDir()
	adapter := Adapter{Name: "claude", ConfigDir: ".claude", FlattensNames: true}

	installed, err := adapter.DiscoverInstalled(root)
	if err != nil {
		t.Fatalf("DiscoverInstalled failed on empty root: %v", err)
	}
	if len(installed) != 0 {
		t.Errorf("DiscoverInstalled = %+v, want empty", installed)
	}
}
