// Package fetch downloads repository snapshots for resolution and sync.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Sentinel errors classifying fetch failures.
var (
	// ErrRepoNotFound means the repository does not exist or is not
	// visible to the caller.
	ErrRepoNotFound = errors.New("repository not found")
	// ErrAuthentication means the remote rejected the caller's
	// credentials.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTransient means a network-level failure worth retrying.
	ErrTransient = errors.New("transient fetch error")
)

// Fetcher produces a repository snapshot directory. The cleanup function
// removes the snapshot and must always be called, including on error paths
// after a successful fetch.
type Fetcher interface {
	Fetch(ctx context.Context, owner, repo string) (dir string, cleanup func(), err error)
}

// GitFetcher fetches snapshots with a shallow git clone.
type GitFetcher struct {
	// BaseURL is the clone URL template; {owner} and {repo} are
	// substituted. Defaults to GitHub over HTTPS.
	BaseURL string
}

// NewGitFetcher returns a fetcher cloning from GitHub.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{BaseURL: "https://github.com/{owner}/{repo}.git"}
}

// Fetch shallow-clones owner/repo into a scoped temporary directory.
func (f *GitFetcher) Fetch(ctx context.Context, owner, repo string) (string, func(), error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", nil, fmt.Errorf("git CLI not found, install git to fetch remote resources: %w", err)
	}

	tmp, err := os.MkdirTemp("", "agentpack-fetch-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmp) }

	url := strings.NewReplacer("{owner}", owner, "{repo}", repo).Replace(f.BaseURL)
	dir := filepath.Join(tmp, "repo")

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--single-branch", url, dir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		cleanup()
		return "", nil, classifyCloneError(string(out), owner, repo)
	}
	return dir, cleanup, nil
}

// classifyCloneError maps git stderr to the fetch error kinds.
func classifyCloneError(output, owner, repo string) error {
	lowered := strings.ToLower(output)

	switch {
	case strings.Contains(lowered, "authentication failed"),
		strings.Contains(lowered, "permission denied"):
		return fmt.Errorf("%w for %s/%s", ErrAuthentication, owner, repo)
	case strings.Contains(lowered, "repository not found"),
		strings.Contains(lowered, "does not exist"),
		strings.Contains(lowered, "could not read username"),
		strings.Contains(lowered, "terminal prompts disabled"):
		return fmt.Errorf("%w: %s/%s", ErrRepoNotFound, owner, repo)
	case strings.Contains(lowered, "could not resolve host"),
		strings.Contains(lowered, "connection timed out"),
		strings.Contains(lowered, "connection refused"):
		return fmt.Errorf("%w: %s/%s: %s", ErrTransient, owner, repo, firstLine(output))
	default:
		return fmt.Errorf("failed to clone %s/%s: %s", owner, repo, firstLine(output))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var (
	sshRemote   = regexp.MustCompile(`git@[^:]+:([^/]+)/`)
	httpsRemote = regexp.MustCompile(`https?://[^/]+/([^/]+)/`)
)

// UsernameFromGitRemote derives the local namespace owner from the origin
// remote URL of the repository at dir. It returns "" when there is no
// usable remote; callers fall back to a fixed local namespace.
func UsernameFromGitRemote(ctx context.Context, dir string) string {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	remote := strings.TrimSpace(string(out))

	if m := sshRemote.FindStringSubmatch(remote); m != nil {
		return m[1]
	}
	if m := httpsRemote.FindStringSubmatch(remote); m != nil {
		return m[1]
	}
	return ""
}
