package syncer

import (
	"os"
	"path/filepath"

	"github.com/agentpack/agentpack/internal/config"
	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/logging"
	"github.com/agentpack/agentpack/internal/resource"
	"github.com/agentpack/agentpack/internal/tool"
)

// migrateLegacy renames flat skill installs using the legacy "--"
// separator to the current ":" encoding. Only directories matching a
// declared dependency are touched; anything else under the legacy scheme
// is left alone rather than guessed at. A rename is skipped when the
// target name already exists.
func (s *Syncer) migrateLegacy(root string, a tool.Adapter, deps []config.Dependency, result *Result) {
	if !a.FlattensNames {
		return
	}

	skillsDir := a.TypeDir(root, resource.TypeSkill)
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		h, ok := handle.ParseLegacyFlat(entry.Name())
		if !ok || !declaredMatch(h, deps) {
			continue
		}

		target := filepath.Join(skillsDir, h.Flat())
		outcome := Outcome{
			Tool: a.Name,
			Name: h.Flat(),
			Path: target,
		}

		if _, err := os.Stat(target); err == nil {
			outcome.Action = ActionSkipped
			outcome.Message = "migration target already exists: " + entry.Name()
			result.add(outcome)
			continue
		}

		if err := os.Rename(filepath.Join(skillsDir, entry.Name()), target); err != nil {
			outcome.Action = ActionFailed
			outcome.Err = err
			result.add(outcome)
			continue
		}

		logging.Info("migrated legacy skill", logging.Tool(a.Name),
			logging.Resource(entry.Name()), logging.Path(target))
		outcome.Action = ActionMigrated
		result.add(outcome)
	}
}

func declaredMatch(h handle.Handle, deps []config.Dependency) bool {
	for _, dep := range deps {
		d, err := dep.ParseHandle()
		if err != nil || d.IsLocal {
			continue
		}
		if h.Matches(d) {
			return true
		}
	}
	return false
}
