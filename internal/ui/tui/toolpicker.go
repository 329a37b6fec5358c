// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agentpack/agentpack/internal/tool"
)

// ToolPickerAction represents the action taken in the tool picker.
type ToolPickerAction int

const (
	// ToolPickerActionNone means no selection was made (user quit).
	ToolPickerActionNone ToolPickerAction = iota
	// ToolPickerActionConfirm means the user confirmed a selection.
	ToolPickerActionConfirm
)

// ToolPickerResult contains the result of the tool picker interaction.
type ToolPickerResult struct {
	Action ToolPickerAction
	Tools  []string
}

// toolPickerKeyMap defines the key bindings for the tool picker.
type toolPickerKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Confirm key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultToolPickerKeyMap() toolPickerKeyMap {
	return toolPickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var toolPickerStyles = struct {
	Title   lipgloss.Style
	Help    lipgloss.Style
	Item    lipgloss.Style
	Cursor  lipgloss.Style
	Checked lipgloss.Style
	Status  lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Item:    lipgloss.NewStyle().Padding(0, 2),
	Cursor:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 2),
	Checked: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
	Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
}

// ToolPickerModel is the BubbleTea model for target-tool selection. It is a
// multi-select over the adapter table: space toggles, enter confirms.
type ToolPickerModel struct {
	adapters []tool.Adapter
	selected map[int]bool
	cursor   int
	keys     toolPickerKeyMap
	result   ToolPickerResult
	showHelp bool
	quitting bool
}

// NewToolPickerModel creates a tool picker over the given table with the
// named tools pre-selected.
func NewToolPickerModel(table *tool.Table, preselected []string) ToolPickerModel {
	adapters := table.All()
	selected := make(map[int]bool, len(adapters))
	for i, a := range adapters {
		for _, name := range preselected {
			if a.Name == name {
				selected[i] = true
			}
		}
	}
	return ToolPickerModel{
		adapters: adapters,
		selected: selected,
		keys:     defaultToolPickerKeyMap(),
	}
}

// Init implements tea.Model.
func (m ToolPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ToolPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.adapters)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Toggle):
		m.selected[m.cursor] = !m.selected[m.cursor]
		return m, nil

	case key.Matches(keyMsg, m.keys.Confirm):
		var tools []string
		for i, a := range m.adapters {
			if m.selected[i] {
				tools = append(tools, a.Name)
			}
		}
		if len(tools) == 0 {
			// At least one tool is required; stay in the picker.
			return m, nil
		}
		m.result = ToolPickerResult{Action: ToolPickerActionConfirm, Tools: tools}
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m ToolPickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(toolPickerStyles.Title.Render("Select target tools"))
	b.WriteString("\n\n")

	for i, a := range m.adapters {
		check := "[ ]"
		if m.selected[i] {
			check = toolPickerStyles.Checked.Render("[x]")
		}
		label := fmt.Sprintf("%s %s", check, a.DisplayName)
		if i == m.cursor {
			b.WriteString(toolPickerStyles.Cursor.Render("> " + label))
		} else {
			b.WriteString(toolPickerStyles.Item.Render("  " + label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(toolPickerStyles.Status.Render("Resources are installed for every selected tool"))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}
	return b.String()
}

func (m ToolPickerModel) renderShortHelp() string {
	keys := []string{
		"↑/↓ navigate",
		"space toggle",
		"enter confirm",
		"? help",
		"q quit",
	}
	return toolPickerStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ToolPickerModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Move up
  ↓/j      Move down

Actions:
  Space    Toggle tool
  Enter    Confirm selection

General:
  ?        Toggle full help
  q        Quit without selecting`
	return toolPickerStyles.Help.Render(help)
}

// Result returns the result of the user interaction.
func (m ToolPickerModel) Result() ToolPickerResult {
	return m.result
}

// RunToolPicker runs the interactive tool picker and returns the result.
func RunToolPicker(table *tool.Table, preselected []string) (ToolPickerResult, error) {
	model := NewToolPickerModel(table, preselected)
	finalModel, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return ToolPickerResult{}, err
	}

	if m, ok := finalModel.(ToolPickerModel); ok {
		return m.Result(), nil
	}
	return ToolPickerResult{}, nil
}
