// Package resolver determines what a named resource is inside a fetched
// repository snapshot. Resolution walks a priority chain and returns a
// tagged result, never a guess:
//
//  1. ExplicitManifest: the snapshot's own agentpack.toml declares the
//     resource with a path entry. Declared type and path are authoritative.
//  2. ConventionalToolDir: fixed per-kind paths under a tool config
//     directory, including bundle detection.
//  3. AutoDiscoveredRoot: recursive search of the snapshot, shallowest
//     match first, ties broken lexically.
package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentpack/agentpack/internal/config"
	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/pack"
	"github.com/agentpack/agentpack/internal/resource"
	"github.com/agentpack/agentpack/internal/tool"
)

// Outcome tags a resolution result.
type Outcome int

const (
	// NotFound means every strategy missed.
	NotFound Outcome = iota
	// Found means exactly one resource matched.
	Found
	// Ambiguous means multiple candidate types matched one name and the
	// caller must disambiguate.
	Ambiguous
)

// Resolution is the result of resolving one reference.
type Resolution struct {
	Outcome  Outcome
	Resource resource.Descriptor
	// Bundle is true when the resolved path is a package or bundle
	// directory that must be exploded rather than installed as one
	// resource.
	Bundle bool
	// Candidates holds the conflicting descriptors for Ambiguous results.
	Candidates []resource.Descriptor
}

// Directories never searched during auto-discovery.
var skipDirs = map[string]bool{
	".git":         true,
	".github":      true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
}

// Resolver resolves references inside snapshots. The tool table supplies
// the convention directories to check and is passed in so tests can
// substitute a fixture table.
type Resolver struct {
	table *tool.Table
}

// New returns a resolver backed by the given tool table.
func New(table *tool.Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve resolves ref inside the snapshot directory.
func (r *Resolver) Resolve(snapshot, ref string) (Resolution, error) {
	query, err := handle.Parse(ref)
	if err != nil {
		return Resolution{}, err
	}

	if res, err := r.fromManifest(snapshot, query); err != nil {
		return Resolution{}, err
	} else if res.Outcome != NotFound {
		return res, nil
	}

	if res := r.fromConvention(snapshot, query); res.Outcome != NotFound {
		return res, nil
	}

	return r.fromDiscovery(snapshot, query)
}

// fromManifest scans the snapshot's own manifest for path entries whose
// derived name matches the query. Declared type and path win over any
// later heuristic.
func (r *Resolver) fromManifest(snapshot string, query handle.Handle) (Resolution, error) {
	manifestPath := filepath.Join(snapshot, config.FileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return Resolution{}, nil
	}

	cfg, err := config.Load(manifestPath)
	if err != nil {
		// An unreadable snapshot manifest does not block the rest of the
		// chain.
		return Resolution{}, nil
	}

	for _, dep := range cfg.Dependencies {
		if !dep.IsLocal() {
			continue
		}
		segments := entrySegments(dep.Path)
		if !segmentsMatch(query, segments) {
			continue
		}

		full := filepath.Join(snapshot, filepath.FromSlash(dep.Path))
		if pack.IsPackage(full) {
			return Resolution{
				Outcome: Found,
				Bundle:  true,
				Resource: resource.Descriptor{
					Name:   segments[len(segments)-1],
					Type:   resource.TypeSkill,
					Path:   full,
					Origin: resource.OriginManifest,
				},
			}, nil
		}

		t := dep.ResourceType()
		if dep.Type == "" {
			t = detectType(full)
		}
		return Resolution{
			Outcome: Found,
			Resource: resource.Descriptor{
				Name:   segments[len(segments)-1],
				Type:   t,
				Path:   full,
				Origin: resource.OriginManifest,
			},
		}, nil
	}
	return Resolution{}, nil
}

// entrySegments derives the colon-name segments of a manifest path entry:
// everything after "resources/<typedir>/" or "<typedir>/", with a trailing
// ".md" stripped.
func entrySegments(path string) []string {
	clean := strings.TrimSuffix(filepath.ToSlash(path), ".md")
	parts := strings.Split(clean, "/")

	typeDirs := map[string]bool{}
	for _, t := range resource.AllTypes() {
		typeDirs[t.Dir()] = true
	}
	typeDirs["packages"] = true

	for i, part := range parts {
		if typeDirs[part] && i+1 < len(parts) {
			return parts[i+1:]
		}
	}
	if len(parts) > 1 {
		return parts[1:]
	}
	return parts
}

func segmentsMatch(query handle.Handle, segments []string) bool {
	if len(segments) == 0 {
		return false
	}
	if query.ShortName() == segments[len(segments)-1] {
		return true
	}
	return strings.Join(query.Segments, handle.FlatSeparator) == strings.Join(segments, handle.FlatSeparator)
}

func detectType(path string) resource.Type {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return resource.TypeSkill
	}
	return resource.TypeCommand
}

// fromConvention checks the fixed per-kind paths under every tool config
// directory in the table. A convention-path directory whose children are
// themselves resources is reported as a bundle.
func (r *Resolver) fromConvention(snapshot string, query handle.Handle) Resolution {
	name := query.ShortName()

	for _, adapter := range r.table.All() {
		conv := filepath.Join(snapshot, adapter.ConfigDir)
		if info, err := os.Stat(conv); err != nil || !info.IsDir() {
			continue
		}

		var candidates []resource.Descriptor

		skillDir := filepath.Join(conv, resource.TypeSkill.Dir(), name)
		if isSkillDir(skillDir) {
			candidates = append(candidates, resource.Descriptor{
				Name: name, Type: resource.TypeSkill, Path: skillDir,
				Origin: resource.OriginToolDir,
			})
		}

		for _, t := range []resource.Type{resource.TypeCommand, resource.TypeAgent, resource.TypeRule} {
			file := filepath.Join(conv, t.Dir(), name+".md")
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				candidates = append(candidates, resource.Descriptor{
					Name: name, Type: t, Path: file,
					Origin: resource.OriginToolDir,
				})
			}
		}

		switch len(candidates) {
		case 0:
		case 1:
			return Resolution{Outcome: Found, Resource: candidates[0]}
		default:
			return Resolution{Outcome: Ambiguous, Candidates: candidates}
		}

		// Bundle: a skills-dir child that is not itself a skill but holds
		// skills one level down.
		bundleDir := filepath.Join(conv, resource.TypeSkill.Dir(), name)
		if isBundleDir(bundleDir) {
			return Resolution{
				Outcome: Found,
				Bundle:  true,
				Resource: resource.Descriptor{
					Name: name, Type: resource.TypeSkill, Path: bundleDir,
					Origin: resource.OriginToolDir,
				},
			}
		}
	}
	return Resolution{}
}

func isSkillDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, resource.SkillMarker))
	return err == nil && !info.IsDir()
}

func isBundleDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && isSkillDir(filepath.Join(dir, entry.Name())) {
			return true
		}
	}
	return false
}

type candidate struct {
	desc  resource.Descriptor
	depth int
	rel   string
}

// fromDiscovery searches the whole snapshot, excluding convention and
// common non-resource directories. Colon-delimited queries are decoded
// into path segments before matching. The shallowest match wins; ties
// break lexically; surviving matches of different types are ambiguous.
func (r *Resolver) fromDiscovery(snapshot string, query handle.Handle) (Resolution, error) {
	segments := query.Segments
	name := query.ShortName()

	convDirs := map[string]bool{}
	for _, adapter := range r.table.All() {
		convDirs[adapter.ConfigDir] = true
	}

	var found []candidate
	err := filepath.WalkDir(snapshot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(snapshot, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if skipDirs[d.Name()] || convDirs[d.Name()] {
				return fs.SkipDir
			}
			if d.Name() == name && isSkillDir(path) && tailMatches(rel, segments) {
				found = append(found, candidate{
					desc: resource.Descriptor{
						Name: name, Type: resource.TypeSkill, Path: path,
						Origin: resource.OriginDiscovered,
					},
					depth: pathDepth(rel),
					rel:   rel,
				})
				return fs.SkipDir
			}
			return nil
		}

		if d.Name() != name+".md" {
			return nil
		}
		for _, t := range []resource.Type{resource.TypeCommand, resource.TypeAgent, resource.TypeRule} {
			if underTypeDir(rel, t) && tailMatches(strings.TrimSuffix(rel, ".md"), segments) {
				found = append(found, candidate{
					desc: resource.Descriptor{
						Name: name, Type: t, Path: path,
						Origin: resource.OriginDiscovered,
					},
					depth: pathDepth(rel),
					rel:   rel,
				})
				break
			}
		}
		return nil
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to search snapshot %s: %w", snapshot, err)
	}

	if len(found) == 0 {
		return Resolution{Outcome: NotFound}, nil
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].depth != found[j].depth {
			return found[i].depth < found[j].depth
		}
		return found[i].rel < found[j].rel
	})

	best := found[0]
	var conflicts []resource.Descriptor
	for _, c := range found {
		if c.depth == best.depth && c.desc.Type != best.desc.Type {
			conflicts = append(conflicts, c.desc)
		}
	}
	if len(conflicts) > 0 {
		return Resolution{
			Outcome:    Ambiguous,
			Candidates: append([]resource.Descriptor{best.desc}, conflicts...),
		}, nil
	}
	return Resolution{Outcome: Found, Resource: best.desc}, nil
}

// tailMatches reports whether the trailing components of rel equal the
// query's path segments, so "toolkit:go" only matches ".../toolkit/go".
func tailMatches(rel string, segments []string) bool {
	if len(segments) <= 1 {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < len(segments) {
		return false
	}
	tail := parts[len(parts)-len(segments):]
	for i, seg := range segments {
		if tail[i] != seg {
			return false
		}
	}
	return true
}

// underTypeDir reports whether rel contains the type's convention
// directory as a path component, e.g. "x/commands/y/go.md" for commands.
func underTypeDir(rel string, t resource.Type) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if part == t.Dir() {
			return true
		}
	}
	return false
}

func pathDepth(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/")
}
