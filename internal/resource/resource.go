// Package resource provides the core data types for agentpack resources.
package resource

import (
	"fmt"
	"strings"
)

// Marker file names.
const (
	// SkillMarker marks a directory as a skill and carries its frontmatter.
	SkillMarker = "SKILL.md"
	// PackageManifest marks a directory as a package root.
	PackageManifest = "PACKAGE.md"
)

// Type represents the kind of resource.
type Type string

const (
	TypeSkill   Type = "skill"
	TypeCommand Type = "command"
	TypeAgent   Type = "agent"
	TypeRule    Type = "rule"
)

// IsValid returns true if the resource type is recognized.
func (t Type) IsValid() bool {
	switch t {
	case TypeSkill, TypeCommand, TypeAgent, TypeRule:
		return true
	default:
		return false
	}
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Dir returns the conventional directory name holding resources of this type.
func (t Type) Dir() string {
	return string(t) + "s"
}

// IsDirectory reports whether resources of this type install as a directory
// (skills) rather than a single markdown file.
func (t Type) IsDirectory() bool {
	return t == TypeSkill
}

// AllTypes returns every supported resource type, skills first.
func AllTypes() []Type {
	return []Type{TypeSkill, TypeCommand, TypeAgent, TypeRule}
}

// ParseType converts a string to a Type. The empty string defaults to skill.
func ParseType(s string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return TypeSkill, nil
	}
	t := Type(strings.TrimSuffix(normalized, "s"))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown resource type %q (valid: skill, command, agent, rule)", s)
	}
	return t, nil
}

// Origin records which resolution strategy produced a descriptor.
type Origin string

const (
	// OriginManifest means the snapshot's own manifest declared the resource.
	OriginManifest Origin = "manifest"
	// OriginToolDir means the resource sat at a conventional tool path.
	OriginToolDir Origin = "tool-dir"
	// OriginDiscovered means recursive search found the resource.
	OriginDiscovered Origin = "discovered"
)

// Descriptor identifies one concrete resource inside a fetched snapshot.
// Descriptors are transient values produced by the resolver and never
// persisted.
type Descriptor struct {
	// Name is the short name of the resource.
	Name string
	// Type is the resource kind.
	Type Type
	// Path is the source path inside the snapshot. For skills this is the
	// skill directory; for single-file resources it is the markdown file.
	Path string
	// Origin records which resolution strategy matched.
	Origin Origin
	// Package is the canonical package name when the resource was found as
	// a package member, empty otherwise.
	Package string
}

// String returns a human-readable identity for logs and error messages.
func (d Descriptor) String() string {
	if d.Package != "" {
		return fmt.Sprintf("%s/%s (%s)", d.Package, d.Name, d.Type)
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Type)
}
