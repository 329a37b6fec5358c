package syncer

import (
	"fmt"
	"strings"
)

// Action is the reconciliation outcome for one (dependency, tool) pair.
type Action string

const (
	// ActionInstalled indicates the resource was missing and was copied in.
	ActionInstalled Action = "installed"

	// ActionUpdated indicates the source was newer and the install was
	// replaced.
	ActionUpdated Action = "updated"

	// ActionUpToDate indicates no write was needed.
	ActionUpToDate Action = "up-to-date"

	// ActionPruned indicates an unlisted installed resource was removed.
	ActionPruned Action = "pruned"

	// ActionMigrated indicates a legacy-named install was renamed to the
	// current encoding.
	ActionMigrated Action = "migrated"

	// ActionSkipped indicates a migration target already existed and the
	// legacy install was left in place.
	ActionSkipped Action = "skipped"

	// ActionFailed indicates an error; processing continued with the
	// remaining dependencies.
	ActionFailed Action = "failed"
)

// Outcome records one reconciliation decision.
type Outcome struct {
	// Dependency is the declared identifier (handle or path).
	Dependency string
	// Tool is the target tool name.
	Tool string
	// Name is the encoded installed name.
	Name string
	// Path is the install path the decision concerned.
	Path string
	// Action is the decision taken.
	Action Action
	// Err is set when Action is ActionFailed.
	Err error
	// Message carries extra context, e.g. why a migration was skipped.
	Message string
}

// Counts aggregates outcomes for one tool.
type Counts struct {
	Installed int
	Updated   int
	Pruned    int
	Failed    int
}

// Result is the complete outcome of one sync run.
type Result struct {
	Outcomes []Outcome
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Success reports the logical AND across all outcomes.
func (r *Result) Success() bool {
	for _, o := range r.Outcomes {
		if o.Action == ActionFailed {
			return false
		}
	}
	return true
}

// Failures returns the failed outcomes.
func (r *Result) Failures() []Outcome {
	return r.filterByAction(ActionFailed)
}

// Installed returns the install outcomes.
func (r *Result) Installed() []Outcome {
	return r.filterByAction(ActionInstalled)
}

// Updated returns the update outcomes.
func (r *Result) Updated() []Outcome {
	return r.filterByAction(ActionUpdated)
}

// Pruned returns the prune outcomes.
func (r *Result) Pruned() []Outcome {
	return r.filterByAction(ActionPruned)
}

// Migrated returns the migration outcomes.
func (r *Result) Migrated() []Outcome {
	return r.filterByAction(ActionMigrated)
}

func (r *Result) filterByAction(action Action) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Action == action {
			out = append(out, o)
		}
	}
	return out
}

// CountsFor aggregates per-tool counts.
func (r *Result) CountsFor(toolName string) Counts {
	var c Counts
	for _, o := range r.Outcomes {
		if o.Tool != toolName {
			continue
		}
		switch o.Action {
		case ActionInstalled:
			c.Installed++
		case ActionUpdated:
			c.Updated++
		case ActionPruned:
			c.Pruned++
		case ActionFailed:
			c.Failed++
		}
	}
	return c
}

// Summary renders a one-line summary per tool.
func (r *Result) Summary(tools []string) string {
	lines := make([]string, 0, len(tools))
	for _, t := range tools {
		c := r.CountsFor(t)
		lines = append(lines, fmt.Sprintf("%s: %d installed, %d updated, %d pruned, %d failed",
			t, c.Installed, c.Updated, c.Pruned, c.Failed))
	}
	return strings.Join(lines, "\n")
}
