// Package cache is a content-addressed store for downloaded resource
// copies, keyed by (owner, repo, name, revision). Population is safe
// against concurrent OS processes racing on the same key: a key-scoped
// file lock plus double-checked existence guarantees exactly one
// materialization, and a temp-dir-plus-rename protocol guarantees no
// partial entry is ever externally visible.
package cache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// MarkerName is the file written inside a cache entry after a complete
// materialization. Entries without it are treated as absent.
const MarkerName = ".complete"

// Error wraps a filesystem failure during cache population. A silently
// corrupt cache produces confusing stale reads elsewhere, so these are
// always surfaced.
type Error struct {
	Op  string
	Key Key
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Key identifies one cache entry.
type Key struct {
	Owner    string
	Repo     string
	Name     string
	Revision string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s@%s", k.Owner, k.Repo, k.Name, k.Revision)
}

var componentPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateComponent checks one key component against the allow-list:
// alphanumeric, hyphen, underscore, and dot. Separators, "..", and NUL
// bytes are rejected regardless of where the value originated.
func ValidateComponent(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s cannot contain NUL bytes", name)
	}
	if strings.Contains(value, "..") {
		return fmt.Errorf("%s cannot contain '..'", name)
	}
	if strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("%s cannot contain path separators", name)
	}
	if !componentPattern.MatchString(value) {
		return fmt.Errorf("%s contains invalid characters (allowed: alphanumeric, '-', '_', '.')", name)
	}
	return nil
}

func (k Key) validate() error {
	for _, c := range []struct{ name, value string }{
		{"owner", k.Owner},
		{"repo", k.Repo},
		{"name", k.Name},
		{"revision", k.Revision},
	} {
		if err := ValidateComponent(c.name, c.value); err != nil {
			return err
		}
	}
	return nil
}

// Cache is a store rooted at one directory.
type Cache struct {
	root string
}

// New returns a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Default returns the cache under the user's home directory.
func Default() (*Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return New(filepath.Join(home, ".agentpack", "cache")), nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Path returns the deterministic entry path for a key, validating every
// component first.
func (c *Cache) Path(k Key) (string, error) {
	if err := k.validate(); err != nil {
		return "", &Error{Op: "path", Key: k, Err: err}
	}
	return filepath.Join(c.root, k.Owner, k.Repo, k.Name, k.Revision), nil
}

// IsCached reports whether a complete entry exists for the key.
func (c *Cache) IsCached(k Key) bool {
	entry, err := c.Path(k)
	if err != nil {
		return false
	}
	return isComplete(entry)
}

func isComplete(entry string) bool {
	info, err := os.Stat(filepath.Join(entry, MarkerName))
	return err == nil && !info.IsDir()
}

// Populate ensures a complete entry exists for the key and returns its
// path. When the entry is absent, materialize is called with a temporary
// directory to fill; the directory is moved into place and only then
// stamped complete, so no reader can observe a partial entry as complete.
// For N concurrent calls on one key, exactly one materializes and all N
// return the identical complete path.
//
// Lock acquisition blocks without timeout; a crashed lock holder requires
// manually removing the lock file.
func (c *Cache) Populate(k Key, materialize func(dir string) error) (string, error) {
	entry, err := c.Path(k)
	if err != nil {
		return "", err
	}

	// Fast path, no lock.
	if isComplete(entry) {
		return entry, nil
	}

	parent := filepath.Dir(entry)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &Error{Op: "populate", Key: k, Err: err}
	}

	lockPath := filepath.Join(parent, "."+k.Revision+".lock")
	lock, err := acquireLock(lockPath)
	if err != nil {
		return "", &Error{Op: "lock", Key: k, Err: err}
	}
	defer func() {
		releaseLock(lock)
		// Best effort; a concurrent process may have removed it already.
		os.Remove(lockPath)
	}()

	// Re-check: another process may have won the race while we waited.
	if isComplete(entry) {
		return entry, nil
	}

	tmp, err := os.MkdirTemp(parent, ".tmp-"+k.Revision+"-*")
	if err != nil {
		return "", &Error{Op: "populate", Key: k, Err: err}
	}
	defer os.RemoveAll(tmp)

	if err := materialize(tmp); err != nil {
		return "", &Error{Op: "materialize", Key: k, Err: err}
	}

	// A stale incomplete entry can sit at the target after a crash.
	if _, err := os.Stat(entry); err == nil {
		if err := os.RemoveAll(entry); err != nil {
			return "", &Error{Op: "populate", Key: k, Err: err}
		}
	}

	if err := os.Rename(tmp, entry); err != nil {
		// Cross-device rename is unavailable; fall back to copy.
		if copyErr := copyTree(tmp, entry); copyErr != nil {
			return "", &Error{Op: "populate", Key: k, Err: copyErr}
		}
	}

	// The marker goes in last. A crash before this line leaves an entry
	// that fails the completeness check and is rebuilt on the next call.
	if err := os.WriteFile(filepath.Join(entry, MarkerName), nil, 0o644); err != nil {
		return "", &Error{Op: "populate", Key: k, Err: err}
	}

	return entry, nil
}

// Info summarizes the cache contents.
type Info struct {
	Path    string
	Entries int
	Bytes   int64
}

// Stat walks the cache tree counting complete entries and total bytes.
func (c *Cache) Stat() (Info, error) {
	info := Info{Path: c.root}
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if isComplete(path) {
				info.Entries++
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		info.Bytes += fi.Size()
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat cache: %w", err)
	}
	return info, nil
}

// Clear removes cache entries. An empty pattern removes everything;
// otherwise the pattern matches "owner/repo/name" globs. It returns the
// number of entry groups removed.
func (c *Cache) Clear(pattern string) (int, error) {
	owners, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache: %w", err)
	}

	count := 0
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(c.root, owner.Name()))
		if err != nil {
			continue
		}
		for _, repo := range repos {
			if !repo.IsDir() {
				continue
			}
			names, err := os.ReadDir(filepath.Join(c.root, owner.Name(), repo.Name()))
			if err != nil {
				continue
			}
			for _, name := range names {
				if !name.IsDir() {
					continue
				}
				id := owner.Name() + "/" + repo.Name() + "/" + name.Name()
				if pattern != "" {
					ok, err := path.Match(pattern, id)
					if err != nil {
						return count, fmt.Errorf("invalid pattern %q: %w", pattern, err)
					}
					if !ok {
						continue
					}
				}
				dir := filepath.Join(c.root, owner.Name(), repo.Name(), name.Name())
				if err := os.RemoveAll(dir); err != nil {
					return count, fmt.Errorf("failed to remove %s: %w", id, err)
				}
				count++
			}
		}
	}
	return count, nil
}

func copyTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
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
