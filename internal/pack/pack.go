// Package pack detects package directories and explodes them into
// individually namespaced resource members.
package pack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpack/agentpack/internal/frontmatter"
	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/resource"
)

// InvalidManifestError reports a package manifest that exists but cannot be
// used: unparsable frontmatter, or a frontmatter block missing the required
// name field. There is no directory-name fallback in these cases.
type InvalidManifestError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid package manifest %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid package manifest %s: %s", e.Path, e.Reason)
}

func (e *InvalidManifestError) Unwrap() error { return e.Err }

// NestedPackageError reports a second package manifest below a package root.
// Packages do not nest; the violation aborts before any member installs.
type NestedPackageError struct {
	Root   string
	Nested []string
}

func (e *NestedPackageError) Error() string {
	return fmt.Sprintf("package %s contains nested package manifests: %s",
		e.Root, strings.Join(e.Nested, ", "))
}

// Member is one resource inside a package, with its path segments relative
// to the type directory it was found under.
type Member struct {
	resource.Descriptor
	// Segments are the path components below the type directory; the last
	// element is the short name.
	Segments []string
}

// Package is a loaded, validated package directory.
type Package struct {
	// Name is the canonical package name.
	Name string
	// Root is the package directory.
	Root string
	// Members are the exploded resources, skills first.
	Members []Member
}

// IsPackage reports whether dir has a package manifest at its own root.
// Subdirectories alone (for example a skills/ directory) do not qualify.
func IsPackage(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, resource.PackageManifest))
	return err == nil && !info.IsDir()
}

// Load reads and validates the package at dir and enumerates its members.
// The whole subtree is checked for nested manifests before any member is
// returned, so callers never start installing a package that will fail
// validation halfway through.
func Load(dir string) (*Package, error) {
	manifestPath := filepath.Join(dir, resource.PackageManifest)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%s is not a package: %w", dir, err)
	}

	name, err := canonicalName(manifestPath, data, dir)
	if err != nil {
		return nil, err
	}

	nested, err := findNestedManifests(dir)
	if err != nil {
		return nil, err
	}
	if len(nested) > 0 {
		return nil, &NestedPackageError{Root: dir, Nested: nested}
	}

	pkg := &Package{Name: name, Root: dir}
	if err := pkg.enumerate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// canonicalName applies the manifest naming rule: a frontmatter block must
// parse and carry a non-empty name; a manifest without any frontmatter block
// is a bare marker and the directory base name is used.
func canonicalName(manifestPath string, data []byte, dir string) (string, error) {
	split := frontmatter.Split(data)
	if !split.HasFrontmatter {
		return filepath.Base(dir), nil
	}

	fields, err := frontmatter.Parse(split.Frontmatter)
	if err != nil {
		return "", &InvalidManifestError{Path: manifestPath, Reason: "unparsable frontmatter", Err: err}
	}
	name, _ := fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return "", &InvalidManifestError{Path: manifestPath, Reason: "missing required name field"}
	}
	return strings.TrimSpace(name), nil
}

func findNestedManifests(root string) ([]string, error) {
	var nested []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != resource.PackageManifest {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == resource.PackageManifest {
			// The package's own manifest.
			return nil
		}
		nested = append(nested, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate package %s: %w", root, err)
	}
	return nested, nil
}

// enumerate walks the package's type directories exactly like convention
// directories, stamping every member with the package name.
func (p *Package) enumerate() error {
	skillsDir := filepath.Join(p.Root, resource.TypeSkill.Dir())
	err := walkIfPresent(skillsDir, func(path string, d fs.DirEntry) error {
		if d.IsDir() || d.Name() != resource.SkillMarker {
			return nil
		}
		skillDir := filepath.Dir(path)
		segments, err := relSegments(skillsDir, skillDir)
		if err != nil {
			return err
		}
		p.Members = append(p.Members, Member{
			Descriptor: resource.Descriptor{
				Name:    segments[len(segments)-1],
				Type:    resource.TypeSkill,
				Path:    skillDir,
				Origin:  resource.OriginToolDir,
				Package: p.Name,
			},
			Segments: segments,
		})
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range []resource.Type{resource.TypeCommand, resource.TypeAgent, resource.TypeRule} {
		typeDir := filepath.Join(p.Root, t.Dir())
		err := walkIfPresent(typeDir, func(path string, d fs.DirEntry) error {
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			segments, err := relSegments(typeDir, path)
			if err != nil {
				return err
			}
			segments[len(segments)-1] = strings.TrimSuffix(segments[len(segments)-1], ".md")
			p.Members = append(p.Members, Member{
				Descriptor: resource.Descriptor{
					Name:    segments[len(segments)-1],
					Type:    t,
					Path:    path,
					Origin:  resource.OriginToolDir,
					Package: p.Name,
				},
				Segments: segments,
			})
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func walkIfPresent(dir string, fn func(path string, d fs.DirEntry) error) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return fn(path, d)
	})
}

func relSegments(base, path string) ([]string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return nil, err
	}
	return strings.Split(filepath.ToSlash(rel), "/"), nil
}

// MemberHandle returns the install identity for a member: owner, then the
// package name, then the member's remaining segments. Skills flatten to
// "owner:package:...:name"; file resources nest to "owner/package/.../name.md".
func (p *Package) MemberHandle(username string, m Member) handle.Handle {
	segments := append([]string{p.Name}, m.Segments...)
	return handle.New(username, segments[len(segments)-1], segments...)
}
