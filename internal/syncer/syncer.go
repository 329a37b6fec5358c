// Package syncer reconciles declared dependencies against installed state
// across one or more target tools. A run fetches each distinct repository
// at most once, installs missing resources, updates stale ones by marker
// modification time, optionally prunes correctly-namespaced resources no
// longer declared, and isolates per-dependency failures.
package syncer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpack/agentpack/internal/config"
	"github.com/agentpack/agentpack/internal/convert"
	"github.com/agentpack/agentpack/internal/fetch"
	"github.com/agentpack/agentpack/internal/frontmatter"
	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/logging"
	"github.com/agentpack/agentpack/internal/pack"
	"github.com/agentpack/agentpack/internal/resolver"
	"github.com/agentpack/agentpack/internal/resource"
	"github.com/agentpack/agentpack/internal/tool"
)

// Options configures a sync run.
type Options struct {
	// Prune removes installed, correctly-namespaced resources that are no
	// longer declared.
	Prune bool

	// Tools overrides the manifest's tool list.
	Tools []string

	// Username is the namespace owner for local dependencies. When empty
	// it is derived from the project's git remote, falling back to "local".
	Username string
}

// DefaultOptions returns the default sync options.
func DefaultOptions() Options {
	return Options{}
}

// Syncer runs sync operations.
type Syncer struct {
	fetcher   fetch.Fetcher
	table     *tool.Table
	resolver  *resolver.Resolver
	converter convert.Converter
}

// New creates a syncer. The converter defaults to a no-op; fetched content
// is installed as authored.
func New(fetcher fetch.Fetcher, table *tool.Table) *Syncer {
	return &Syncer{
		fetcher:   fetcher,
		table:     table,
		resolver:  resolver.New(table),
		converter: convert.Noop{},
	}
}

// SetConverter replaces the format converter applied at install time.
func (s *Syncer) SetConverter(c convert.Converter) {
	s.converter = c
}

// unit is one concrete resource to reconcile: a package dependency expands
// to several units, a plain dependency to one.
type unit struct {
	handle handle.Handle
	typ    resource.Type
	src    string
}

// Run reconciles cfg's dependency list for every target tool.
// Configuration errors (unknown tool names) fail the run; per-dependency
// errors are recorded in the result and processing continues.
func (s *Syncer) Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	defer logging.Timer("sync")()

	toolNames := opts.Tools
	if len(toolNames) == 0 {
		toolNames = cfg.Tools
	}
	adapters := make([]tool.Adapter, 0, len(toolNames))
	for _, name := range toolNames {
		a, err := s.table.Get(name)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	root := cfg.Root()
	result := &Result{}

	// Legacy-separator migration runs once, before reconciliation proper.
	for _, a := range adapters {
		s.migrateLegacy(root, a, cfg.Dependencies, result)
	}

	snapshots := newSnapshotSet(s.fetcher)
	defer snapshots.cleanupAll()

	localUser := opts.Username
	if localUser == "" {
		if u := fetch.UsernameFromGitRemote(ctx, root); u != "" {
			localUser = u
		} else {
			localUser = "local"
		}
	}

	expected := make(map[string]map[string]bool, len(adapters))
	for _, a := range adapters {
		expected[a.Name] = make(map[string]bool)
	}

	var failed []handle.Handle
	for _, dep := range cfg.Dependencies {
		units, err := s.plan(ctx, snapshots, root, localUser, dep)
		if err != nil {
			logging.Warn("dependency failed",
				logging.Handle(dep.Identifier()), logging.Err(err))
			for _, a := range adapters {
				result.add(Outcome{
					Dependency: dep.Identifier(),
					Tool:       a.Name,
					Action:     ActionFailed,
					Err:        err,
				})
			}
			// A failed dependency is still declared; remember its handle so
			// prune leaves any existing install of it alone.
			if ph, perr := dep.ParseHandle(); perr == nil {
				if ph.IsLocal {
					ph = handle.New(localUser, ph.Name)
				}
				failed = append(failed, ph)
			}
			continue
		}

		for _, u := range units {
			for _, a := range adapters {
				dest := a.InstallPath(root, u.handle, u.typ)
				expected[a.Name][dest] = true
				s.syncOne(a, dep, u, dest, result)
			}
		}
	}

	if opts.Prune {
		s.prune(root, adapters, expected, failed, result)
	}

	return result, nil
}

// plan turns one dependency into the units to install, fetching and
// resolving remote sources as needed.
func (s *Syncer) plan(ctx context.Context, snapshots *snapshotSet, root, localUser string, dep config.Dependency) ([]unit, error) {
	if err := dep.Validate(); err != nil {
		return nil, err
	}

	if dep.IsLocal() {
		return s.planLocal(root, localUser, dep)
	}

	h, err := dep.ParseHandle()
	if err != nil {
		return nil, err
	}
	if h.Username == "" {
		return nil, fmt.Errorf("%w: remote handle %q must include an owner", handle.ErrInvalidHandle, dep.Handle)
	}

	snapshot, err := snapshots.get(ctx, h.Username, h.RepoOrDefault())
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(snapshot, dep.Handle)
	if err != nil {
		return nil, err
	}
	switch res.Outcome {
	case resolver.NotFound:
		return nil, fmt.Errorf("resource %q not found in %s/%s", h.ShortName(), h.Username, h.RepoOrDefault())
	case resolver.Ambiguous:
		types := make([]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			types = append(types, string(c.Type))
		}
		return nil, fmt.Errorf("resource %q is ambiguous in %s/%s (candidates: %s), declare an explicit type",
			h.ShortName(), h.Username, h.RepoOrDefault(), strings.Join(types, ", "))
	}

	if res.Bundle {
		return packageUnits(res.Resource.Path, h.Username)
	}

	segments := segmentsFromPath(snapshot, res.Resource.Path, res.Resource.Type)
	return []unit{{
		handle: handle.New(h.Username, segments[len(segments)-1], segments...),
		typ:    res.Resource.Type,
		src:    res.Resource.Path,
	}}, nil
}

func (s *Syncer) planLocal(root, localUser string, dep config.Dependency) ([]unit, error) {
	src := dep.Path
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("local dependency source missing: %w", err)
	}

	if pack.IsPackage(src) {
		return packageUnits(src, localUser)
	}

	segments := segmentsFromPath(root, src, dep.ResourceType())
	return []unit{{
		handle: handle.New(localUser, segments[len(segments)-1], segments...),
		typ:    dep.ResourceType(),
		src:    src,
	}}, nil
}

func packageUnits(dir, owner string) ([]unit, error) {
	if !pack.IsPackage(dir) {
		return bundleUnits(dir, owner)
	}
	pkg, err := pack.Load(dir)
	if err != nil {
		return nil, err
	}
	units := make([]unit, 0, len(pkg.Members))
	for _, m := range pkg.Members {
		units = append(units, unit{
			handle: pkg.MemberHandle(owner, m),
			typ:    m.Type,
			src:    m.Path,
		})
	}
	return units, nil
}

// bundleUnits handles manifest-less bundles: a convention skills directory
// whose children are themselves skills. Each child is namespaced under the
// bundle directory's name.
func bundleUnits(dir, owner string) ([]unit, error) {
	bundle := filepath.Base(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle %s: %w", dir, err)
	}

	var units []unit
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(child, resource.SkillMarker)); err != nil {
			continue
		}
		units = append(units, unit{
			handle: handle.New(owner, entry.Name(), bundle, entry.Name()),
			typ:    resource.TypeSkill,
			src:    child,
		})
	}
	return units, nil
}

// segmentsFromPath derives the install path segments from a resolved
// source path: the components after the type's convention directory, so a
// skill at skills/product/growth installs as owner:product:growth. Only
// the path below base is inspected, so directories above the snapshot or
// project root never contribute segments. Paths without a convention
// component contribute just the base name.
func segmentsFromPath(base, src string, t resource.Type) []string {
	rel, err := filepath.Rel(base, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	last := parts[len(parts)-1]
	if !t.IsDirectory() {
		last = strings.TrimSuffix(last, ".md")
		parts[len(parts)-1] = last
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] == t.Dir() {
			return parts[i+1:]
		}
	}
	return []string{last}
}

// syncOne runs the per-(dependency, tool) state machine.
func (s *Syncer) syncOne(a tool.Adapter, dep config.Dependency, u unit, dest string, result *Result) {
	name := installedName(a, u)
	outcome := Outcome{
		Dependency: dep.Identifier(),
		Tool:       a.Name,
		Name:       name,
		Path:       dest,
	}

	srcMarker, destMarker := markerPair(u, dest)

	destInfo, err := os.Stat(destMarker)
	switch {
	case os.IsNotExist(err):
		if err := s.install(a, u, dest, name); err != nil {
			outcome.Action = ActionFailed
			outcome.Err = err
		} else {
			outcome.Action = ActionInstalled
		}

	case err != nil:
		outcome.Action = ActionFailed
		outcome.Err = fmt.Errorf("failed to inspect %s: %w", destMarker, err)

	default:
		srcInfo, err := os.Stat(srcMarker)
		if err != nil {
			outcome.Action = ActionFailed
			outcome.Err = fmt.Errorf("source marker missing: %w", err)
			break
		}
		if !srcInfo.ModTime().After(destInfo.ModTime()) {
			outcome.Action = ActionUpToDate
			break
		}
		if err := os.RemoveAll(dest); err != nil {
			outcome.Action = ActionFailed
			outcome.Err = fmt.Errorf("failed to replace %s: %w", dest, err)
			break
		}
		if err := s.install(a, u, dest, name); err != nil {
			outcome.Action = ActionFailed
			outcome.Err = err
		} else {
			outcome.Action = ActionUpdated
		}
	}

	if outcome.Err != nil {
		logging.Warn("sync failed", logging.Tool(a.Name),
			logging.Resource(name), logging.Err(outcome.Err))
	} else {
		logging.Debug("synced", logging.Tool(a.Name),
			logging.Resource(name), logging.Operation(string(outcome.Action)))
	}
	result.add(outcome)
}

// installedName is the encoded name stamped into the installed copy.
func installedName(a tool.Adapter, u unit) string {
	if u.typ.IsDirectory() && a.FlattensNames {
		return u.handle.Flat()
	}
	return u.handle.ShortName()
}

func markerPair(u unit, dest string) (src, dst string) {
	if u.typ.IsDirectory() {
		return filepath.Join(u.src, resource.SkillMarker), filepath.Join(dest, resource.SkillMarker)
	}
	return u.src, dest
}

// install copies the unit into place, converts its frontmatter for the
// target tool, and rewrites the embedded name to the encoded install name.
func (s *Syncer) install(a tool.Adapter, u unit, dest, name string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	if u.typ.IsDirectory() {
		if err := copyTree(u.src, dest); err != nil {
			return fmt.Errorf("failed to copy skill: %w", err)
		}
		return s.stampMarker(a, u.typ, filepath.Join(dest, resource.SkillMarker), name)
	}

	if err := copyFile(u.src, dest); err != nil {
		return fmt.Errorf("failed to copy %s: %w", u.typ, err)
	}
	return s.stampMarker(a, u.typ, dest, name)
}

func (s *Syncer) stampMarker(a tool.Adapter, t resource.Type, markerPath, name string) error {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Skills without a marker are installed as-is.
			return nil
		}
		return err
	}

	converted, err := s.converter.Convert(content, t, "", a.Name)
	if err != nil {
		return err
	}
	return os.WriteFile(markerPath, frontmatter.RewriteName(converted, name), 0o644)
}

// prune removes installed, correctly-namespaced resources absent from the
// declared set. Resources under unrecognized or legacy naming schemes are
// never touched, and neither are installs belonging to a declared
// dependency whose planning failed this run.
func (s *Syncer) prune(root string, adapters []tool.Adapter, expected map[string]map[string]bool, failed []handle.Handle, result *Result) {
	for _, a := range adapters {
		installed, err := a.DiscoverInstalled(root)
		if err != nil {
			result.add(Outcome{Tool: a.Name, Action: ActionFailed, Err: err})
			continue
		}
		for _, inst := range installed {
			if expected[a.Name][inst.Path] {
				continue
			}
			if protectedByFailed(inst.Handle, failed) {
				logging.Debug("prune skipped", logging.Tool(a.Name),
					logging.Resource(inst.Handle.Flat()))
				continue
			}
			if err := os.RemoveAll(inst.Path); err != nil {
				result.add(Outcome{
					Tool: a.Name, Name: inst.Handle.Flat(), Path: inst.Path,
					Action: ActionFailed, Err: err,
				})
				continue
			}
			logging.Info("pruned", logging.Tool(a.Name), logging.Resource(inst.Handle.Flat()))
			result.add(Outcome{
				Tool: a.Name, Name: inst.Handle.Flat(), Path: inst.Path,
				Action: ActionPruned,
			})
		}
	}
}

// protectedByFailed reports whether an installed resource belongs to one of
// the failed declared dependencies. Package members install with the package
// short name as their first segment.
func protectedByFailed(inst handle.Handle, failed []handle.Handle) bool {
	for _, f := range failed {
		if inst.Matches(f) {
			return true
		}
		if len(inst.Segments) > 1 && inst.Segments[0] == f.ShortName() {
			if f.Username == "" || inst.Username == "" || f.Username == inst.Username {
				return true
			}
		}
	}
	return false
}

// snapshotSet fetches each distinct (owner, repo) at most once per run and
// shares the snapshot across every dependency and tool. Failed fetches are
// cached too, so one unreachable repository costs a single attempt.
type snapshotSet struct {
	fetcher  fetch.Fetcher
	dirs     map[string]string
	errs     map[string]error
	cleanups []func()
}

func newSnapshotSet(f fetch.Fetcher) *snapshotSet {
	return &snapshotSet{
		fetcher: f,
		dirs:    make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (ss *snapshotSet) get(ctx context.Context, owner, repo string) (string, error) {
	key := owner + "/" + repo
	if dir, ok := ss.dirs[key]; ok {
		return dir, nil
	}
	if err, ok := ss.errs[key]; ok {
		return "", err
	}

	dir, cleanup, err := ss.fetcher.Fetch(ctx, owner, repo)
	if err != nil {
		ss.errs[key] = err
		return "", err
	}
	ss.dirs[key] = dir
	if cleanup != nil {
		ss.cleanups = append(ss.cleanups, cleanup)
	}
	return dir, nil
}

func (ss *snapshotSet) cleanupAll() {
	for _, fn := range ss.cleanups {
		fn()
	}
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
