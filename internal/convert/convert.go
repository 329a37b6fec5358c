// Package convert translates resource frontmatter between tool formats.
// Conversion keeps installed copies tool-appropriate; it has no effect on
// resolution or reconciliation.
package convert

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentpack/agentpack/internal/frontmatter"
	"github.com/agentpack/agentpack/internal/resource"
)

// Converter converts resource content from one tool's format to another's.
type Converter interface {
	Convert(content []byte, t resource.Type, sourceTool, targetTool string) ([]byte, error)
}

// Noop returns content unchanged. Sync uses it when the source format is
// unknown, such as freshly fetched repository content.
type Noop struct{}

func (Noop) Convert(content []byte, _ resource.Type, _, _ string) ([]byte, error) {
	return content, nil
}

// toolFields lists frontmatter fields specific to one tool per resource
// type. They are dropped when converting to any other tool.
var toolFields = map[string]map[resource.Type][]string{
	"claude": {
		resource.TypeSkill: {
			"allowed-tools", "model", "context", "agent",
			"user-invocable", "hooks", "disable-model-invocation",
		},
		resource.TypeAgent: {"skills"},
	},
	"cursor": {
		resource.TypeAgent: {"readonly", "is_background"},
		resource.TypeRule:  {"description", "alwaysApply"},
	},
}

// fieldRenames maps field names between tool pairs per resource type.
var fieldRenames = map[[3]string]map[string]string{
	{"claude", "cursor", "rule"}: {"paths": "globs"},
	{"cursor", "claude", "rule"}: {"globs": "paths"},
}

// modelValues maps model identifiers when converting away from a tool.
var modelValues = map[string]map[string]string{
	"claude": {"sonnet": "fast", "opus": "inherit", "haiku": "fast"},
	"cursor": {"fast": "sonnet", "inherit": "opus"},
}

// FrontmatterConverter rewrites tool-specific frontmatter fields.
type FrontmatterConverter struct{}

// New returns the standard converter.
func New() *FrontmatterConverter {
	return &FrontmatterConverter{}
}

// Convert drops source-tool-specific fields, renames mapped fields, and
// translates model values. Content without frontmatter and same-tool
// conversions pass through unchanged.
func (c *FrontmatterConverter) Convert(content []byte, t resource.Type, sourceTool, targetTool string) ([]byte, error) {
	if sourceTool == targetTool {
		return content, nil
	}

	split := frontmatter.Split(content)
	if !split.HasFrontmatter {
		return content, nil
	}

	fields, err := frontmatter.Parse(split.Frontmatter)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s content: %w", t, err)
	}

	for _, dropped := range toolFields[sourceTool][t] {
		delete(fields, dropped)
	}

	if renames, ok := fieldRenames[[3]string{sourceTool, targetTool, string(t)}]; ok {
		for from, to := range renames {
			if v, ok := fields[from]; ok {
				fields[to] = v
				delete(fields, from)
			}
		}
	}

	if model, ok := fields["model"].(string); ok {
		if mapped, ok := modelValues[sourceTool][model]; ok {
			fields["model"] = mapped
		}
	}

	return assemble(fields, split.Content)
}

// assemble renders the fields back into a frontmatter block with sorted
// keys for deterministic output.
func assemble(fields map[string]any, body string) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("---\n")
	for _, k := range keys {
		line, err := yaml.Marshal(map[string]any{k: fields[k]})
		if err != nil {
			return nil, fmt.Errorf("failed to render frontmatter: %w", err)
		}
		sb.Write(line)
	}
	sb.WriteString("---\n")
	sb.WriteString(body)
	return []byte(sb.String()), nil
}
