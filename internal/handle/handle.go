// Package handle parses resource references and converts them between the
// three encodings of one logical identity:
//
//	| Form     | Delimiter | Example                       | Used in                      |
//	|----------|-----------|-------------------------------|------------------------------|
//	| Manifest | slash     | kasper/seo, kasper/repo/seo   | agentpack.toml, CLI input    |
//	| Flat     | colon     | kasper:seo                    | flat tool dirs (one segment) |
//	| Nested   | dirs      | kasper/seo.md, kasper/seo/    | tools scanned recursively    |
//
// Every code path that parses or converts a reference goes through this
// package.
package handle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// FlatSeparator joins the username and path segments into a single
	// path segment for tool directories that only scan direct children.
	FlatSeparator = ":"

	// ManifestSeparator delimits manifest-form handles.
	ManifestSeparator = "/"

	// LegacyFlatSeparator is the historical flat encoding ("owner--name").
	// Sync migrates directories using it to FlatSeparator.
	LegacyFlatSeparator = "--"

	// DefaultRepo is the repository name assumed when a manifest handle
	// omits one ("owner/name" means "owner/agentpack/name"). It is elided
	// again when encoding back to manifest form.
	DefaultRepo = "agentpack"
)

// ErrInvalidHandle reports a reference string that cannot be parsed.
var ErrInvalidHandle = errors.New("invalid handle")

// Handle is a parsed resource reference. Exactly one of the remote form
// (non-empty Username) or the local form (IsLocal) holds; bare names have
// neither. Segments is never empty for a parsed handle; its last element is
// the short name.
type Handle struct {
	Username string
	Repo     string // only set when an explicit repository is known out-of-band
	Name     string
	Segments []string
	IsLocal  bool
	LocalPath string
}

// New builds a remote handle from components. Segments defaults to {name}.
func New(username, name string, segments ...string) Handle {
	if len(segments) == 0 {
		segments = []string{name}
	}
	return Handle{Username: username, Name: name, Segments: segments}
}

// Local builds a local handle for a filesystem path.
func Local(path string) Handle {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return Handle{IsLocal: true, LocalPath: path, Name: name, Segments: []string{name}}
}

// Parse parses a reference in any supported form.
//
//	./dir, ../dir, /dir  -> local
//	name                 -> bare name
//	user:seg:...:name    -> flat form
//	user/name            -> manifest form, two segments
//	user/a/.../name      -> manifest form, middle segments are path segments
//
// Leading, trailing, or doubled separators are a parse error, as is mixing
// the two separators in one reference.
func Parse(ref string) (Handle, error) {
	if ref == "" {
		return Handle{}, fmt.Errorf("%w: empty reference", ErrInvalidHandle)
	}

	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "/") {
		return Local(ref), nil
	}

	hasColon := strings.Contains(ref, FlatSeparator)
	hasSlash := strings.Contains(ref, ManifestSeparator)

	switch {
	case hasColon && hasSlash:
		return Handle{}, fmt.Errorf("%w: %q mixes ':' and '/'", ErrInvalidHandle, ref)

	case hasColon:
		parts, err := splitRef(ref, FlatSeparator)
		if err != nil {
			return Handle{}, err
		}
		return Handle{
			Username: parts[0],
			Name:     parts[len(parts)-1],
			Segments: parts[1:],
		}, nil

	case hasSlash:
		parts, err := splitRef(ref, ManifestSeparator)
		if err != nil {
			return Handle{}, err
		}
		// Three or more segments keep everything after the username as
		// path segments. An explicit repository name is never inferred
		// positionally; it arrives out-of-band when needed.
		return Handle{
			Username: parts[0],
			Name:     parts[len(parts)-1],
			Segments: parts[1:],
		}, nil

	default:
		return Handle{Name: ref, Segments: []string{ref}}, nil
	}
}

func splitRef(ref, sep string) ([]string, error) {
	parts := strings.Split(ref, sep)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandle, ref)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has a leading, trailing, or doubled %q", ErrInvalidHandle, ref, sep)
		}
	}
	return parts, nil
}

// ShortName returns the final path segment.
func (h Handle) ShortName() string {
	if len(h.Segments) > 0 {
		return h.Segments[len(h.Segments)-1]
	}
	return h.Name
}

// RepoOrDefault returns the explicit repository name, or DefaultRepo.
func (h Handle) RepoOrDefault() string {
	if h.Repo != "" {
		return h.Repo
	}
	return DefaultRepo
}

// Flat encodes the handle as a single colon-joined path segment:
// "user:seg:...:name". Handles without a username encode as the bare name.
func (h Handle) Flat() string {
	if h.Username == "" {
		return h.Name
	}
	return strings.Join(append([]string{h.Username}, h.Segments...), FlatSeparator)
}

// Manifest encodes the handle in slash form, omitting the default repo:
// "user/seg/.../name" or "user/repo/seg/.../name".
func (h Handle) Manifest() string {
	if h.Username == "" {
		return h.Name
	}
	parts := []string{h.Username}
	if h.Repo != "" && h.Repo != DefaultRepo {
		parts = append(parts, h.Repo)
	}
	return strings.Join(append(parts, h.Segments...), ManifestSeparator)
}

// NestedDir returns the relative directory path for the nested encoding:
// "user/seg/.../name". Subdirectory structure is preserved.
func (h Handle) NestedDir() string {
	if h.Username == "" {
		return filepath.Join(h.Segments...)
	}
	return filepath.Join(append([]string{h.Username}, h.Segments...)...)
}

// NestedFile returns the relative file path for the nested encoding of a
// single-file resource: "user/seg/.../name.md".
func (h Handle) NestedFile() string {
	return h.NestedDir() + ".md"
}

// Matches reports whether h refers to the same resource as declared.
// Two handles match when their short names are equal and, if both carry a
// username, the usernames are equal. A query without a username matches any
// owner, which lets `remove seo` find "kasper/seo".
func (h Handle) Matches(declared Handle) bool {
	if h.ShortName() != declared.ShortName() {
		return false
	}
	if h.Username != "" && declared.Username != "" {
		return h.Username == declared.Username
	}
	return true
}

// ParseLegacyFlat parses a directory name using the legacy "--" separator.
// The second return is false when the name is not a legacy encoding.
func ParseLegacyFlat(dirname string) (Handle, bool) {
	if !strings.Contains(dirname, LegacyFlatSeparator) {
		return Handle{}, false
	}
	parts := strings.Split(dirname, LegacyFlatSeparator)
	for _, p := range parts {
		if p == "" {
			return Handle{}, false
		}
	}
	return Handle{
		Username: parts[0],
		Name:     parts[len(parts)-1],
		Segments: parts[1:],
	}, true
}
