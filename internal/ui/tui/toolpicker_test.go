package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentpack/agentpack/internal/tool"
)

func TestNewToolPickerModel(t *testing.T) {
	table := tool.DefaultTable()
	m := NewToolPickerModel(table, []string{"claude"})

	if len(m.adapters) != len(table.All()) {
		t.Errorf("expected %d adapters, got %d", len(table.All()), len(m.adapters))
	}
	if !m.selected[0] {
		t.Error("expected claude to be preselected")
	}
	if m.selected[1] {
		t.Error("expected cursor not preselected")
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}
}

func TestToolPickerModel_Init(t *testing.T) {
	m := NewToolPickerModel(tool.DefaultTable(), nil)
	if cmd := m.Init(); cmd != nil {
		t.Error("expected Init to return nil")
	}
}

func TestToolPickerModel_Navigation(t *testing.T) {
	m := NewToolPickerModel(tool.DefaultTable(), nil)

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = newModel.(ToolPickerModel)
	if m.cursor != 1 {
		t.Errorf("expected cursor 1 after down, got %d", m.cursor)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = newModel.(ToolPickerModel)
	if m.cursor != 0 {
		t.Errorf("expected cursor 0 after up, got %d", m.cursor)
	}

	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = newModel.(ToolPickerModel)
	if m.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", m.cursor)
	}
}

func TestToolPickerModel_ToggleAndConfirm(t *testing.T) {
	m := NewToolPickerModel(tool.DefaultTable(), nil)

	space := tea.KeyMsg{Type: tea.KeySpace}
	newModel, _ := m.Update(space)
	m = newModel.(ToolPickerModel)
	if !m.selected[0] {
		t.Error("expected first tool selected after toggle")
	}

	newModel, _ = m.Update(space)
	m = newModel.(ToolPickerModel)
	if m.selected[0] {
		t.Error("expected first tool deselected after second toggle")
	}

	// Confirming with nothing selected keeps the picker open.
	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(ToolPickerModel)
	if cmd != nil || m.quitting {
		t.Error("expected empty confirm to be rejected")
	}

	newModel, _ = m.Update(space)
	m = newModel.(ToolPickerModel)
	newModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = newModel.(ToolPickerModel)

	result := m.Result()
	if result.Action != ToolPickerActionConfirm {
		t.Errorf("expected confirm action, got %d", result.Action)
	}
	if len(result.Tools) != 1 || result.Tools[0] != "claude" {
		t.Errorf("expected [claude], got %v", result.Tools)
	}
}

func TestToolPickerModel_Quit(t *testing.T) {
	m := NewToolPickerModel(tool.DefaultTable(), nil)

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = newModel.(ToolPickerModel)
	if !m.quitting {
		t.Error("expected quitting after q")
	}
	if m.Result().Action != ToolPickerActionNone {
		t.Error("expected no action after quit")
	}
}
