// Package tool describes the on-disk directory conventions of the supported
// AI coding tools and enumerates resources installed under them.
package tool

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/resource"
)

// Adapter describes one tool's directory convention.
type Adapter struct {
	// Name is the tool identifier used in the manifest and on the CLI.
	Name string
	// DisplayName is the human-readable name for listings.
	DisplayName string
	// ConfigDir is the directory under the project or home root, e.g. ".claude".
	ConfigDir string
	// FlattensNames is true when the tool's skills directory only scans
	// direct children, so nested identities must be colon-flattened into a
	// single path segment.
	FlattensNames bool
}

// BaseDir returns the adapter's config directory under root.
func (a Adapter) BaseDir(root string) string {
	return filepath.Join(root, a.ConfigDir)
}

// TypeDir returns the directory holding resources of the given type.
func (a Adapter) TypeDir(root string, t resource.Type) string {
	return filepath.Join(a.BaseDir(root), t.Dir())
}

// InstallPath returns the expected install path for a handle under root.
// Skills are directories, flattened or nested per the adapter's layout.
// Single-file resources always install nested (owner/seg/name.md); their
// directories are scanned recursively by every supported tool.
func (a Adapter) InstallPath(root string, h handle.Handle, t resource.Type) string {
	dir := a.TypeDir(root, t)
	if t.IsDirectory() {
		if a.FlattensNames {
			return filepath.Join(dir, h.Flat())
		}
		return filepath.Join(dir, h.NestedDir())
	}
	return filepath.Join(dir, h.NestedFile())
}

// Installed is one resource found under an adapter's directories.
type Installed struct {
	Handle handle.Handle
	Type   resource.Type
	// Path is the skill directory or the markdown file.
	Path string
}

// DiscoverInstalled enumerates correctly-namespaced resources installed
// under root. Directories that do not follow the adapter's naming scheme
// (including legacy separators) are skipped, not guessed at.
func (a Adapter) DiscoverInstalled(root string) ([]Installed, error) {
	var out []Installed

	skills, err := a.discoverSkills(root)
	if err != nil {
		return nil, err
	}
	out = append(out, skills...)

	for _, t := range []resource.Type{resource.TypeCommand, resource.TypeAgent, resource.TypeRule} {
		files, err := a.discoverFiles(root, t)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}

	return out, nil
}

func (a Adapter) discoverSkills(root string) ([]Installed, error) {
	dir := a.TypeDir(root, resource.TypeSkill)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read skills directory %s: %w", dir, err)
	}

	var out []Installed
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if a.FlattensNames {
			name := entry.Name()
			if !strings.Contains(name, handle.FlatSeparator) {
				continue
			}
			path := filepath.Join(dir, name)
			if !hasMarker(path) {
				continue
			}
			h, err := handle.Parse(name)
			if err != nil {
				continue
			}
			out = append(out, Installed{Handle: h, Type: resource.TypeSkill, Path: path})
			continue
		}

		// Nested layout: skills/<username>/<seg>/.../<name>/SKILL.md.
		username := entry.Name()
		userDir := filepath.Join(dir, username)
		err := filepath.WalkDir(userDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() || !hasMarker(path) {
				return nil
			}
			rel, err := filepath.Rel(userDir, path)
			if err != nil {
				return err
			}
			segments := strings.Split(filepath.ToSlash(rel), "/")
			h := handle.New(username, segments[len(segments)-1], segments...)
			out = append(out, Installed{Handle: h, Type: resource.TypeSkill, Path: path})
			return fs.SkipDir
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan skills for %s: %w", username, err)
		}
	}
	return out, nil
}

func (a Adapter) discoverFiles(root string, t resource.Type) ([]Installed, error) {
	dir := a.TypeDir(root, t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s directory %s: %w", t, dir, err)
	}

	var out []Installed
	for _, entry := range entries {
		if !entry.IsDir() {
			// Top-level files have no username namespace and are not ours
			// to manage.
			continue
		}
		username := entry.Name()
		userDir := filepath.Join(dir, username)
		err := filepath.WalkDir(userDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			rel, err := filepath.Rel(userDir, path)
			if err != nil {
				return err
			}
			segments := strings.Split(filepath.ToSlash(rel), "/")
			segments[len(segments)-1] = strings.TrimSuffix(segments[len(segments)-1], ".md")
			h := handle.New(username, segments[len(segments)-1], segments...)
			out = append(out, Installed{Handle: h, Type: t, Path: path})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for %s: %w", t, username, err)
		}
	}
	return out, nil
}

func hasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, resource.SkillMarker))
	return err == nil && !info.IsDir()
}

// Table is an immutable tool-name lookup built once and passed by reference,
// so tests can substitute a fixture table.
type Table struct {
	adapters map[string]Adapter
	order    []string
}

// NewTable builds a lookup table from the given adapters.
func NewTable(adapters ...Adapter) *Table {
	t := &Table{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := t.adapters[a.Name]; !exists {
			t.order = append(t.order, a.Name)
		}
		t.adapters[a.Name] = a
	}
	return t
}

// DefaultTable returns the table of supported tools.
func DefaultTable() *Table {
	return NewTable(
		Adapter{
			Name:          "claude",
			DisplayName:   "Claude Code",
			ConfigDir:     ".claude",
			FlattensNames: true,
		},
		Adapter{
			Name:          "cursor",
			DisplayName:   "Cursor",
			ConfigDir:     ".cursor",
			FlattensNames: false,
		},
	)
}

// DefaultToolNames are the tools assumed for new project manifests.
var DefaultToolNames = []string{"claude"}

// Get returns the adapter for a tool name.
func (t *Table) Get(name string) (Adapter, error) {
	a, ok := t.adapters[name]
	if !ok {
		return Adapter{}, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(t.order, ", "))
	}
	return a, nil
}

// All returns every adapter in registration order.
func (t *Table) All() []Adapter {
	out := make([]Adapter, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.adapters[name])
	}
	return out
}

// Names returns every tool name in registration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}
