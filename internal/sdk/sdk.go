// Package sdk is the programmatic read path for resources: load one
// resource by handle and get its content back, without touching any
// project's installed state. Loads go through the shared content cache,
// so repeated reads of the same (handle, revision) fetch the repository
// once.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentpack/agentpack/internal/cache"
	"github.com/agentpack/agentpack/internal/fetch"
	"github.com/agentpack/agentpack/internal/handle"
	"github.com/agentpack/agentpack/internal/logging"
	"github.com/agentpack/agentpack/internal/resolver"
	"github.com/agentpack/agentpack/internal/resource"
	"github.com/agentpack/agentpack/internal/tool"
)

// DefaultRevision is the cache revision used when the caller does not pin
// one. The fetcher supplies the repository's default branch head, so
// "latest" entries go stale until cleared.
const DefaultRevision = "latest"

// ErrNotFound means the handle resolved to nothing in its repository.
var ErrNotFound = errors.New("resource not found")

// Hub loads resources through the cache.
type Hub struct {
	fetcher  fetch.Fetcher
	cache    *cache.Cache
	resolver *resolver.Resolver
}

// New creates a hub. The tool table supplies the convention directories
// consulted during resolution.
func New(fetcher fetch.Fetcher, c *cache.Cache, table *tool.Table) *Hub {
	return &Hub{
		fetcher:  fetcher,
		cache:    c,
		resolver: resolver.New(table),
	}
}

// Resource is one loaded resource inside the cache. Dir is true for
// skills, which are directories; everything else is a single file.
type Resource struct {
	Handle handle.Handle
	Dir    bool
	Path   string
}

// Content returns the resource's markdown: the SKILL.md for skills, the
// file itself otherwise.
func (r Resource) Content() ([]byte, error) {
	if r.Dir {
		return os.ReadFile(filepath.Join(r.Path, resource.SkillMarker))
	}
	return os.ReadFile(r.Path)
}

// Load resolves ref in its repository and returns the cached copy,
// fetching and populating the cache on a miss. An empty revision means
// DefaultRevision. Local path references and package handles are not
// loadable this way.
func (h *Hub) Load(ctx context.Context, ref, revision string) (Resource, error) {
	hd, err := handle.Parse(ref)
	if err != nil {
		return Resource{}, err
	}
	if hd.IsLocal {
		return Resource{}, fmt.Errorf("%w: %q is a local path, read it directly", handle.ErrInvalidHandle, ref)
	}
	if hd.Username == "" {
		return Resource{}, fmt.Errorf("%w: %q must include an owner", handle.ErrInvalidHandle, ref)
	}
	if revision == "" {
		revision = DefaultRevision
	}

	key := cache.Key{
		Owner:    hd.Username,
		Repo:     hd.RepoOrDefault(),
		Name:     hd.ShortName(),
		Revision: revision,
	}

	entry, err := h.cache.Populate(key, func(dir string) error {
		return h.materialize(ctx, hd, dir)
	})
	if err != nil {
		return Resource{}, err
	}

	return entryResource(hd, entry)
}

// materialize fetches the repository, resolves the handle, and copies the
// resolved resource into the cache entry directory.
func (h *Hub) materialize(ctx context.Context, hd handle.Handle, dir string) error {
	logging.Debug("cache miss", logging.Handle(hd.Manifest()))

	snapshot, cleanup, err := h.fetcher.Fetch(ctx, hd.Username, hd.RepoOrDefault())
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	res, err := h.resolver.Resolve(snapshot, hd.Manifest())
	if err != nil {
		return err
	}
	switch res.Outcome {
	case resolver.NotFound:
		return fmt.Errorf("%w: %q in %s/%s", ErrNotFound, hd.ShortName(), hd.Username, hd.RepoOrDefault())
	case resolver.Ambiguous:
		types := make([]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			types = append(types, string(c.Type))
		}
		return fmt.Errorf("resource %q is ambiguous in %s/%s (candidates: %s)",
			hd.ShortName(), hd.Username, hd.RepoOrDefault(), strings.Join(types, ", "))
	}
	if res.Bundle {
		return fmt.Errorf("%q is a package, load its members individually", hd.Manifest())
	}

	if res.Resource.Type.IsDirectory() {
		return copyTree(res.Resource.Path, dir)
	}
	return copyFile(res.Resource.Path, filepath.Join(dir, hd.ShortName()+".md"))
}

// entryResource reads the shape of a complete cache entry: a SKILL.md at
// the root marks a skill directory, otherwise the entry holds one file.
func entryResource(hd handle.Handle, entry string) (Resource, error) {
	if _, err := os.Stat(filepath.Join(entry, resource.SkillMarker)); err == nil {
		return Resource{Handle: hd, Dir: true, Path: entry}, nil
	}
	file := filepath.Join(entry, hd.ShortName()+".md")
	if _, err := os.Stat(file); err != nil {
		return Resource{}, fmt.Errorf("cache entry for %s is missing its content: %w", hd.Manifest(), err)
	}
	return Resource{Handle: hd, Path: file}, nil
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
