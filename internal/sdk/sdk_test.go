package sdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentpack/agentpack/internal/cache"
	"github.com/agentpack/agentpack/internal/fetch"
	"github.com/agentpack/agentpack/internal/tool"
)

type fakeFetcher struct {
	dirs  map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, owner, repo string) (string, func(), error) {
	f.calls++
	dir, ok := f.dirs[owner+"/"+repo]
	if !ok {
		return "", nil, fmt.Errorf("fetch %s/%s: %w", owner, repo, fetch.ErrRepoNotFound)
	}
	return dir, func() {}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newHub(t *testing.T, f *fakeFetcher) *Hub {
	t.Helper()
	return New(f, cache.New(t.TempDir()), tool.DefaultTable())
}

func TestLoadSkill(t *testing.T) {
	snapshot := t.TempDir()
	writeFile(t, filepath.Join(snapshot, "skills", "seo", "SKILL.md"),
		"---\nname: seo\n---\nOptimize.\n")
	writeFile(t, filepath.Join(snapshot, "skills", "seo", "notes.md"), "Extra notes.\n")

	fetcher := &fakeFetcher{dirs: map[string]string{"kasper/agentpack": snapshot}}
	hub := newHub(t, fetcher)

	res, err := hub.Load(context.Background(), "kasper/seo", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Dir {
		t.Error("skill should load as a directory resource")
	}
	content, err := res.Content()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "Optimize.") {
		t.Errorf("content = %q", content)
	}
	if _, err := os.Stat(filepath.Join(res.Path, "notes.md")); err != nil {
		t.Errorf("supporting file missing from cached copy: %v", err)
	}
}

func TestLoadCommandFile(t *testing.T) {
	snapshot := t.TempDir()
	writeFile(t, filepath.Join(snapshot, "commands", "deploy.md"),
		"---\nname: deploy\n---\nShip it.\n")

	fetcher := &fakeFetcher{dirs: map[string]string{"kasper/agentpack": snapshot}}
	hub := newHub(t, fetcher)

	res, err := hub.Load(context.Background(), "kasper/deploy", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Dir {
		t.Error("command should load as a file resource")
	}
	content, err := res.Content()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "Ship it.") {
		t.Errorf("content = %q", content)
	}
}

func TestLoadFetchesOnce(t *testing.T) {
	snapshot := t.TempDir()
	writeFile(t, filepath.Join(snapshot, "skills", "seo", "SKILL.md"),
		"---\nname: seo\n---\n")

	fetcher := &fakeFetcher{dirs: map[string]string{"kasper/agentpack": snapshot}}
	hub := newHub(t, fetcher)

	first, err := hub.Load(context.Background(), "kasper/seo", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := hub.Load(context.Background(), "kasper/seo", "")
	if err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch called %d times, want 1", fetcher.calls)
	}
	if first.Path != second.Path {
		t.Errorf("cached load returned a different path: %q vs %q", first.Path, second.Path)
	}
}

func TestLoadDistinctRevisionsFetchSeparately(t *testing.T) {
	snapshot := t.TempDir()
	writeFile(t, filepath.Join(snapshot, "skills", "seo", "SKILL.md"),
		"---\nname: seo\n---\n")

	fetcher := &fakeFetcher{dirs: map[string]string{"kasper/agentpack": snapshot}}
	hub := newHub(t, fetcher)

	if _, err := hub.Load(context.Background(), "kasper/seo", "v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Load(context.Background(), "kasper/seo", "v2"); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch called %d times, want one per revision", fetcher.calls)
	}
}

func TestLoadNotFound(t *testing.T) {
	snapshot := t.TempDir()
	fetcher := &fakeFetcher{dirs: map[string]string{"kasper/agentpack": snapshot}}
	hub := newHub(t, fetcher)

	_, err := hub.Load(context.Background(), "kasper/ghost", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadFailureCachesNothing(t *testing.T) {
	fetcher := &fakeFetcher{dirs: map[string]string{}}
	c := cache.New(t.TempDir())
	hub := New(fetcher, c, tool.DefaultTable())

	if _, err := hub.Load(context.Background(), "ghost/missing", ""); err == nil {
		t.Fatal("expected error for unreachable repository")
	}
	k := cache.Key{Owner: "ghost", Repo: "agentpack", Name: "missing", Revision: DefaultRevision}
	if c.IsCached(k) {
		t.Error("failed load left a cache entry")
	}
}

func TestLoadRejectsBadReferences(t *testing.T) {
	hub := newHub(t, &fakeFetcher{})

	for _, ref := range []string{"", "./local", "bare-name"} {
		if _, err := hub.Load(context.Background(), ref, ""); err == nil {
			t.Errorf("Load(%q) succeeded, want error", ref)
		}
	}
}
