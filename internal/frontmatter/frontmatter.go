// Package frontmatter splits and rewrites the YAML frontmatter carried by
// skill, command, and agent markdown files.
package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var delimiter = []byte("---")

// Result contains the parsed frontmatter and remaining content.
type Result struct {
	// Frontmatter contains the raw frontmatter bytes.
	Frontmatter []byte
	// Content contains the remaining content after frontmatter.
	Content string
	// HasFrontmatter indicates whether a frontmatter block was found.
	HasFrontmatter bool
}

// Split extracts YAML frontmatter delimited by "---" lines from content.
func Split(content []byte) Result {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return Result{Content: string(content)}
	}

	remaining := content[len(delimiter):]
	if bytes.HasPrefix(remaining, []byte("\r\n")) {
		remaining = remaining[2:]
	} else if bytes.HasPrefix(remaining, []byte("\n")) {
		remaining = remaining[1:]
	}

	var fm []byte
	var bodyStart int
	found := false

	if bytes.HasPrefix(remaining, delimiter) {
		// Empty frontmatter: ---\n---\n
		fm = []byte{}
		bodyStart = len(delimiter)
		found = true
	} else {
		for _, eol := range []string{"\n", "\r\n"} {
			closing := append([]byte(eol), delimiter...)
			if idx := bytes.Index(remaining, closing); idx != -1 {
				fm = remaining[:idx]
				bodyStart = idx + len(closing)
				found = true
				break
			}
		}
	}

	if !found {
		// No closing delimiter; treat the whole file as content.
		return Result{Content: string(content)}
	}

	clean := bytes.ReplaceAll(fm, []byte("\r\n"), []byte("\n"))
	clean = bytes.TrimRight(clean, "\r")

	if bodyStart < len(remaining) {
		if bytes.HasPrefix(remaining[bodyStart:], []byte("\r\n")) {
			bodyStart += 2
		} else if bytes.HasPrefix(remaining[bodyStart:], []byte("\n")) {
			bodyStart++
		}
	}

	var body string
	if bodyStart < len(remaining) {
		body = string(remaining[bodyStart:])
	}

	return Result{Frontmatter: clean, Content: body, HasFrontmatter: true}
}

// Parse parses frontmatter bytes into a map.
func Parse(fm []byte) (map[string]any, error) {
	if len(fm) == 0 {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := yaml.Unmarshal(fm, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}

// Name returns the frontmatter "name" field, or "" when absent or when the
// frontmatter does not parse.
func Name(content []byte) string {
	res := Split(content)
	if !res.HasFrontmatter {
		return ""
	}
	fields, err := Parse(res.Frontmatter)
	if err != nil {
		return ""
	}
	if name, ok := fields["name"].(string); ok {
		return name
	}
	return ""
}

var nameLine = regexp.MustCompile(`^\s*name\s*:`)

// RewriteName returns content with the frontmatter "name" field set to
// newName, preserving every other frontmatter line verbatim. Files without
// frontmatter (or with an unclosed block) gain a fresh block containing
// only the name. Fence detection is shared with Split, so a "---" inside a
// field value is never mistaken for the closing delimiter.
func RewriteName(content []byte, newName string) []byte {
	res := Split(content)
	if !res.HasFrontmatter {
		return []byte(fmt.Sprintf("---\nname: %s\n---\n\n%s", newName, res.Content))
	}

	var lines []string
	if len(res.Frontmatter) > 0 {
		lines = strings.Split(string(res.Frontmatter), "\n")
	}
	rewritten := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		if nameLine.MatchString(line) {
			rewritten = append(rewritten, "name: "+newName)
			replaced = true
		} else {
			rewritten = append(rewritten, line)
		}
	}
	if !replaced {
		rewritten = append([]string{"name: " + newName}, rewritten...)
	}

	return []byte(fmt.Sprintf("---\n%s\n---\n%s", strings.Join(rewritten, "\n"), res.Content))
}
