// Package config loads and saves the agentpack.toml project manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/resource"
	"github.com/agentpack/agentpack/internal/tool"
)

// FileName is the project manifest file name.
const FileName = "agentpack.toml"

// Dependency is one entry in the manifest's dependency list. Exactly one of
// Handle (remote) or Path (local) is set.
type Dependency struct {
	Handle string `toml:"handle,omitempty"`
	Path   string `toml:"path,omitempty"`
	Type   string `toml:"type"`
	// Source optionally names the repository holding the resource when it
	// is not the default one.
	Source string `toml:"source,omitempty"`
}

// Validate checks the exactly-one-of invariant and the resource type.
func (d Dependency) Validate() error {
	if d.Handle != "" && d.Path != "" {
		return fmt.Errorf("dependency %q cannot have both handle and path", d.Identifier())
	}
	if d.Handle == "" && d.Path == "" {
		return errors.New("dependency must have either handle or path")
	}
	if d.Path != "" && d.Source != "" {
		return fmt.Errorf("local dependency %q cannot specify a source", d.Path)
	}
	if _, err := resource.ParseType(d.Type); err != nil {
		return fmt.Errorf("dependency %q: %w", d.Identifier(), err)
	}
	return nil
}

// IsLocal reports whether this is a local path dependency.
func (d Dependency) IsLocal() bool {
	return d.Path != ""
}

// IsRemote reports whether this is a remote dependency.
func (d Dependency) IsRemote() bool {
	return d.Handle != ""
}

// Identifier returns the handle or path, whichever is set.
func (d Dependency) Identifier() string {
	if d.Handle != "" {
		return d.Handle
	}
	return d.Path
}

// ResourceType returns the parsed resource type. An empty type means skill.
func (d Dependency) ResourceType() resource.Type {
	t, err := resource.ParseType(d.Type)
	if err != nil {
		return resource.TypeSkill
	}
	return t
}

// ParseHandle parses the dependency reference, attaching the declared
// source repository for remote handles.
func (d Dependency) ParseHandle() (handle.Handle, error) {
	if d.IsLocal() {
		return handle.Local(d.Path), nil
	}
	h, err := handle.Parse(d.Handle)
	if err != nil {
		return handle.Handle{}, err
	}
	h.Repo = d.Source
	return h, nil
}

// Config is the parsed project manifest. The dependency list preserves
// manifest order for diff-friendliness.
type Config struct {
	Tools        []string     `toml:"tools"`
	Dependencies []Dependency `toml:"dependencies,omitempty"`

	path          string
	toolsDeclared bool
}

// Default returns a fresh config with the default tool set.
func Default() *Config {
	return &Config{Tools: append([]string(nil), tool.DefaultToolNames...)}
}

// Load reads the manifest at path. A missing file yields the default config
// bound to that path, so the first save creates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid TOML in %s: %w", path, err)
	}
	if len(cfg.Tools) == 0 {
		cfg.Tools = append([]string(nil), tool.DefaultToolNames...)
	} else {
		cfg.toolsDeclared = true
	}
	cfg.path = path
	return cfg, nil
}

// ToolsDeclared reports whether the manifest explicitly listed its tools,
// as opposed to the loaded config carrying the defaults. Callers use this
// to decide whether to prompt for a tool selection.
func (c *Config) ToolsDeclared() bool {
	return c.toolsDeclared
}

// SetTools records an explicit tool selection.
func (c *Config) SetTools(tools []string) {
	c.Tools = append([]string(nil), tools...)
	c.toolsDeclared = true
}

// Path returns the manifest path the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Root returns the project root, the directory holding the manifest.
func (c *Config) Root() string {
	return filepath.Dir(c.path)
}

// Validate checks every dependency and resolves every tool name against
// the table.
func (c *Config) Validate(table *tool.Table) error {
	for _, name := range c.Tools {
		if _, err := table.Get(name); err != nil {
			return fmt.Errorf("invalid tools entry: %w", err)
		}
	}
	for _, dep := range c.Dependencies {
		if err := dep.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the manifest back to its path via a temp file and rename.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path to save to")
	}

	f, err := os.CreateTemp(filepath.Dir(c.path), ".agentpack-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	tmp := f.Name()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", c.path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return nil
}

// AddDependency appends a dependency, rejecting duplicates by identifier.
func (c *Config) AddDependency(dep Dependency) error {
	if err := dep.Validate(); err != nil {
		return err
	}
	for _, existing := range c.Dependencies {
		if existing.Identifier() == dep.Identifier() && existing.ResourceType() == dep.ResourceType() {
			return fmt.Errorf("dependency %q already declared", dep.Identifier())
		}
	}
	c.Dependencies = append(c.Dependencies, dep)
	return nil
}

// RemoveDependency removes the first dependency matching ref, using
// codec-aware matching so a bare short name removes "owner/name". It
// returns the removed entry.
func (c *Config) RemoveDependency(ref string) (Dependency, bool) {
	query, err := handle.Parse(ref)
	if err != nil {
		return Dependency{}, false
	}

	for i, dep := range c.Dependencies {
		if matches(query, ref, dep) {
			c.Dependencies = append(c.Dependencies[:i], c.Dependencies[i+1:]...)
			return dep, true
		}
	}
	return Dependency{}, false
}

// FindDependency returns the first dependency matching ref.
func (c *Config) FindDependency(ref string) (Dependency, bool) {
	query, err := handle.Parse(ref)
	if err != nil {
		return Dependency{}, false
	}
	for _, dep := range c.Dependencies {
		if matches(query, ref, dep) {
			return dep, true
		}
	}
	return Dependency{}, false
}

func matches(query handle.Handle, ref string, dep Dependency) bool {
	if dep.IsLocal() {
		return dep.Path == ref || (query.IsLocal && query.LocalPath == dep.Path)
	}
	declared, err := handle.Parse(dep.Handle)
	if err != nil {
		return false
	}
	return query.Matches(declared)
}

// Find walks up from start looking for an existing manifest, stopping at
// the git root or the filesystem root. When none exists, the returned path
// points at start's manifest so a subsequent save creates it there.
func Find(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return filepath.Join(start, FileName)
	}

	for current := dir; ; {
		candidate := filepath.Join(current, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		if info, err := os.Stat(filepath.Join(current, ".git")); err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return filepath.Join(dir, FileName)
}
