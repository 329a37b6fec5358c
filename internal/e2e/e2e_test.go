package e2e

import (
	"path/filepath"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	h := NewHarness(t)

	r := h.Run("version")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "agentpack version")
}

func TestAddListRemoveFlow(t *testing.T) {
	h := NewHarness(t)

	AssertSuccess(t, h.Run("add", "kasper/seo"))
	AssertFileExists(t, filepath.Join(h.ProjectDir(), "agentpack.toml"))

	r := h.Run("list")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "kasper/seo")
	AssertOutputContains(t, r, "skill")

	AssertSuccess(t, h.Run("remove", "seo"))
	r = h.Run("list")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "no dependencies declared")
}

func TestSyncLocalSkill(t *testing.T) {
	h := NewHarness(t)
	h.WriteSkill(t, "myskill", "Local skill body.\n")

	AssertSuccess(t, h.Run("add", "./myskill"))
	r := h.Run("sync", "--yes")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "1 installed")

	AssertFileExists(t, filepath.Join(h.ProjectDir(),
		".claude", "skills", "local:myskill", "SKILL.md"))
}

func TestSyncPruneRemovesUndeclared(t *testing.T) {
	h := NewHarness(t)
	h.WriteSkill(t, "myskill", "Local skill body.\n")
	// A previously synced skill that is no longer declared.
	h.WriteResource(t, ".claude/skills/local:stale/SKILL.md",
		"---\nname: local:stale\n---\n")

	AssertSuccess(t, h.Run("add", "./myskill"))
	r := h.Run("sync", "--yes", "--prune")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "1 pruned")

	AssertFileNotExists(t, filepath.Join(h.ProjectDir(),
		".claude", "skills", "local:stale"))
	AssertFileExists(t, filepath.Join(h.ProjectDir(),
		".claude", "skills", "local:myskill", "SKILL.md"))
}

func TestSyncLocalCommandNestsInstall(t *testing.T) {
	h := NewHarness(t)
	h.WriteResource(t, "deploy.md", "---\nname: deploy\n---\nDeploy.\n")

	AssertSuccess(t, h.Run("add", "--type", "command", "./deploy.md"))
	r := h.Run("sync", "--yes")
	AssertSuccess(t, r)

	AssertFileExists(t, filepath.Join(h.ProjectDir(),
		".claude", "commands", "local", "deploy.md"))
}

func TestToolsCommand(t *testing.T) {
	h := NewHarness(t)

	r := h.Run("tools")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "claude")
	AssertOutputContains(t, r, "cursor")
}

func TestCacheInfoAndClear(t *testing.T) {
	h := NewHarness(t)

	r := h.Run("cache", "info")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "entries: 0")

	r = h.Run("cache", "clear")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "removed 0 cache entries")
}

func TestSyncUnknownToolFails(t *testing.T) {
	h := NewHarness(t)

	r := h.Run("sync", "--yes", "--tool", "emacs")
	AssertError(t, r)
}
