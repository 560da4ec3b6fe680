package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/nodetree/pkg/store"
)

// RestoreSnapshotMsg is sent when the user picks a snapshot to restore.
type RestoreSnapshotMsg struct {
	Snapshot store.SnapshotInfo
}

// closeSnapshotPickerMsg is sent when the picker is dismissed.
type closeSnapshotPickerMsg struct{}

// SnapshotPickerModel lists stored snapshots, newest first, with a label
// filter.
type SnapshotPickerModel struct {
	entries     []store.SnapshotInfo
	filtered    []int // indices into entries
	cursor      int
	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	theme       Theme
}

// NewSnapshotPicker creates a picker over entries.
func NewSnapshotPicker(entries []store.SnapshotInfo, theme Theme) SnapshotPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter labels..."
	ti.CharLimit = 50
	ti.Width = 30

	m := SnapshotPickerModel{
		entries:     entries,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	return m
}

// SetSize updates the picker dimensions.
func (m *SnapshotPickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input for the picker.
func (m SnapshotPickerModel) Update(msg tea.Msg) (SnapshotPickerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m SnapshotPickerModel) updateNormal(msg tea.KeyMsg) (SnapshotPickerModel, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.filtering = true
		m.filterInput.SetValue("")
		cmd := m.filterInput.Focus()
		return m, cmd
	case "j", "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		return m, m.choose()
	case "esc", "q", "H":
		return m, func() tea.Msg { return closeSnapshotPickerMsg{} }
	}
	return m, nil
}

func (m SnapshotPickerModel) updateFiltering(msg tea.KeyMsg) (SnapshotPickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.choose()
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

func (m SnapshotPickerModel) choose() tea.Cmd {
	entry := m.SelectedEntry()
	if entry == nil {
		return nil
	}
	info := *entry
	return func() tea.Msg {
		return RestoreSnapshotMsg{Snapshot: info}
	}
}

// applyFilter keeps the entries whose label or id contains the filter text.
func (m *SnapshotPickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	m.filtered = m.filtered[:0]
	for i, entry := range m.entries {
		if query == "" ||
			strings.Contains(strings.ToLower(entry.Label), query) ||
			strings.HasPrefix(entry.ID, query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// View renders the snapshot list.
func (m *SnapshotPickerModel) View() string {
	t := m.theme
	var sb strings.Builder

	sb.WriteString(t.Header.Render("Snapshots"))
	sb.WriteString("\n")
	if m.filtering {
		sb.WriteString(t.Renderer.NewStyle().Foreground(t.Primary).Render("  / " + m.filterInput.View()))
		sb.WriteString("\n")
	}

	if len(m.filtered) == 0 {
		sb.WriteString(t.MutedText.Render("  no snapshots"))
		return sb.String()
	}

	limit := m.height - 2
	if limit <= 0 {
		limit = len(m.filtered)
	}
	start := 0
	if m.cursor >= limit {
		start = m.cursor - limit + 1
	}
	for i := start; i < len(m.filtered) && i < start+limit; i++ {
		entry := m.entries[m.filtered[i]]
		line := fmt.Sprintf("%s  %s  %-10s %4d nodes",
			shortID(entry.ID),
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Label,
			entry.NodeCount)
		if i == m.cursor {
			line = t.Selected.Render(line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(t.MutedText.Render("  enter: restore • /: filter • esc: close"))
	return sb.String()
}

// Filtering reports whether the filter input is active.
func (m *SnapshotPickerModel) Filtering() bool {
	return m.filtering
}

// FilteredCount returns the number of entries passing the filter.
func (m *SnapshotPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the entry under the cursor, or nil.
func (m *SnapshotPickerModel) SelectedEntry() *store.SnapshotInfo {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	return &m.entries[m.filtered[m.cursor]]
}
