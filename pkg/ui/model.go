// Package ui provides the terminal editor for nodetree.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/nodetree/pkg/config"
	"github.com/vanderheijden86/nodetree/pkg/debug"
	"github.com/vanderheijden86/nodetree/pkg/model"
)

// DefaultAutosaveDelay debounces autosave after a burst of edits.
const DefaultAutosaveDelay = 750 * time.Millisecond

type mode int

const (
	modeBrowse mode = iota
	modeGrab
	modeJump
	modeHelp
	modeHistory
)

func (m mode) String() string {
	switch m {
	case modeGrab:
		return "GRAB"
	case modeJump:
		return "JUMP"
	case modeHelp:
		return "HELP"
	case modeHistory:
		return "HISTORY"
	default:
		return "TREE"
	}
}

// Options configures the editor.
type Options struct {
	UI            config.UIConfig
	Autosave      bool
	AutosaveDelay time.Duration
	// Worker saves and reloads the session. nil disables persistence.
	Worker *BackgroundWorker
	// StatePath persists expand/collapse state when set.
	StatePath string
	// Clipboard copies text; defaults to the system clipboard.
	Clipboard func(string) error
	Renderer  *lipgloss.Renderer
}

// editState is shared between the Model copies bubbletea passes around and
// the tree observer.
type editState struct {
	version uint64
}

type autosaveTickMsg struct {
	version uint64
}

// Model is the bubbletea model of the editor.
type Model struct {
	tree  *model.Tree
	view  TreeModel
	theme Theme
	keys  KeyMap
	opts  Options

	help     help.Model
	jump     textinput.Model
	helpView viewport.Model
	picker   SnapshotPickerModel

	mode       mode
	returnMode mode
	grabbed    string

	edits        *editState
	seenVersion  uint64
	savedVersion uint64
	focus        string // node the cursor follows after the next rebuild

	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

// NewModel creates the editor over tree.
func NewModel(tree *model.Tree, opts Options) Model {
	if opts.AutosaveDelay == 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.DefaultRenderer()
	}

	theme := DefaultTheme(opts.Renderer)

	view := NewTreeModel(theme)
	view.SetExpandDepth(opts.UI.ExpandDepth)
	view.SetStatePath(opts.StatePath)
	view.Build(tree.Root())

	jump := textinput.New()
	jump.Prompt = "jump to: "
	jump.Placeholder = "1.2"
	jump.CharLimit = 64

	edits := &editState{version: tree.Version()}
	tree.Subscribe(func(version uint64) {
		edits.version = version
		debug.Log("tree republished at v%d", version)
	})

	return Model{
		tree:         tree,
		view:         view,
		theme:        theme,
		keys:         DefaultKeys,
		opts:         opts,
		help:         help.New(),
		jump:         jump,
		helpView:     viewport.New(80, 20),
		edits:        edits,
		seenVersion:  tree.Version(),
		savedVersion: tree.Version(),
	}
}

// Init starts watching the session when a watcher is configured.
func (m Model) Init() tea.Cmd {
	return m.opts.Worker.WaitForChange()
}

// Update handles a message and then, if the tree was republished, rebuilds
// the view and schedules an autosave.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	if m.edits.version == m.seenVersion {
		return m, cmd
	}
	m.seenVersion = m.edits.version
	m.view.Build(m.tree.Root())
	if m.focus != "" {
		m.view.Reveal(m.focus)
		m.focus = ""
	}
	return m, tea.Batch(cmd, m.scheduleAutosave())
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.view.SetSize(msg.Width, m.bodyHeight())
		m.help.Width = msg.Width
		m.helpView = viewport.New(msg.Width, m.bodyHeight())
		if m.mode == modeHelp {
			m.helpView.SetContent(RenderHelp(m.opts.UI.PositionalAbove, msg.Width))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeGrab:
			return m.updateGrab(msg)
		case modeJump:
			return m.updateJump(msg)
		case modeHelp:
			return m.updateHelp(msg)
		case modeHistory:
			if msg.String() == "ctrl+c" {
				return m, m.quit()
			}
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		default:
			return m.updateBrowse(msg)
		}

	case autosaveTickMsg:
		// Only the tick for the latest version saves; earlier ones were
		// superseded by further edits.
		if msg.version != m.tree.Version() || msg.version == m.savedVersion {
			return m, nil
		}
		return m, m.opts.Worker.SaveCmd(m.tree.Snapshot(), msg.version, "autosave")

	case SavedMsg:
		if msg.Version > m.savedVersion {
			m.savedVersion = msg.Version
		}
		if msg.Skipped {
			m.setStatus("already saved")
			return m, nil
		}
		if msg.SnapshotID != "" {
			m.setStatus(fmt.Sprintf("saved snapshot %s", shortID(msg.SnapshotID)))
		} else {
			m.setStatus("saved " + msg.Path)
		}
		return m, nil

	case SaveErrorMsg:
		m.setError(msg.Err.Error())
		return m, nil

	case SessionChangedMsg:
		return m, tea.Batch(m.opts.Worker.ReloadCmd(), m.opts.Worker.WaitForChange())

	case SessionReloadedMsg:
		return m.applyReload(msg.Root), nil

	case SessionUnchangedMsg:
		return m, nil

	case SessionReloadErrorMsg:
		m.setError(msg.Err.Error())
		return m, nil

	case SnapshotListMsg:
		m.picker = NewSnapshotPicker(msg.Snapshots, m.theme)
		m.picker.SetSize(m.width, m.bodyHeight())
		m.mode = modeHistory
		m.setStatus("")
		return m, nil

	case closeSnapshotPickerMsg:
		m.mode = modeBrowse
		return m, nil

	case RestoreSnapshotMsg:
		m.mode = modeBrowse
		return m, m.opts.Worker.LoadSnapshotCmd(msg.Snapshot)

	case SnapshotLoadedMsg:
		return m.restore(msg), nil

	case SnapshotErrorMsg:
		m.mode = modeBrowse
		m.setError("history: " + msg.Err.Error())
		return m, nil
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (Model, tea.Cmd) {
	if handled := m.navigate(msg); handled {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Toggle):
		m.view.ToggleExpand()

	case key.Matches(msg, m.keys.Add):
		parent := m.view.SelectedID()
		id, err := m.tree.AddChild(parent)
		if err != nil {
			m.reject(err)
			return m, nil
		}
		m.focus = id
		m.setStatus("added " + model.Label(id))

	case key.Matches(msg, m.keys.Grab):
		m.grab(m.view.SelectedID())

	case key.Matches(msg, m.keys.Jump):
		return m.openJump()

	case key.Matches(msg, m.keys.Yank):
		id := m.view.SelectedID()
		if err := m.opts.Clipboard(id); err != nil {
			m.setError("clipboard: " + err.Error())
		} else {
			m.setStatus("copied " + id)
		}

	case key.Matches(msg, m.keys.Save):
		return m, m.save("manual")

	case key.Matches(msg, m.keys.History):
		if !m.opts.Worker.HasHistory() {
			m.setError("no snapshot store (use --store)")
			return m, nil
		}
		m.setStatus("loading snapshots…")
		return m, m.opts.Worker.ListSnapshotsCmd()

	case key.Matches(msg, m.keys.ExpandAll):
		m.view.ExpandAll()

	case key.Matches(msg, m.keys.CollapseAll):
		m.view.CollapseAll()

	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		m.helpView.SetContent(RenderHelp(m.opts.UI.PositionalAbove, m.width))
		m.helpView.GotoTop()
	}
	return m, nil
}

func (m Model) updateGrab(msg tea.KeyMsg) (Model, tea.Cmd) {
	if handled := m.navigate(msg); handled {
		return m, nil
	}

	switch {
	case msg.String() == "ctrl+c":
		return m, m.quit()

	case key.Matches(msg, m.keys.Cancel):
		m.release()
		m.setStatus("")

	case key.Matches(msg, m.keys.DropChild):
		m.drop(m.tree.MoveNode)

	case key.Matches(msg, m.keys.DropAbove):
		if m.opts.UI.PositionalAbove {
			m.drop(m.tree.MoveNodeBefore)
		} else {
			m.drop(m.tree.MoveNodeAbove)
		}

	case key.Matches(msg, m.keys.Jump):
		return m.openJump()
	}
	return m, nil
}

func (m Model) updateJump(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = m.returnMode
		m.jump.Blur()
		return m, nil

	case tea.KeyEnter:
		query := m.jump.Value()
		m.mode = m.returnMode
		m.jump.Blur()
		if id, ok := resolveID(m.tree.Root(), query); ok {
			m.view.Reveal(id)
			m.setStatus("")
			return m, nil
		}
		if guess, ok := SuggestID(m.tree.Root(), query); ok {
			m.setError(fmt.Sprintf("no node %q, did you mean %q?", query, guess))
		} else {
			m.setError(fmt.Sprintf("no node %q", query))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m Model) updateHelp(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, m.quit()
	case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.helpView, cmd = m.helpView.Update(msg)
	return m, cmd
}

// navigate handles the cursor keys shared by browse and grab mode.
func (m *Model) navigate(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.view.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.view.MoveDown()
	case key.Matches(msg, m.keys.Left):
		m.view.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.Right):
		m.view.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Top):
		m.view.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.view.JumpToBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.view.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.view.PageDown()
	default:
		return false
	}
	return true
}

func (m Model) openJump() (Model, tea.Cmd) {
	m.returnMode = m.mode
	m.mode = modeJump
	m.jump.Reset()
	cmd := m.jump.Focus()
	return m, cmd
}

// grab starts a move of id. The root cannot be grabbed.
func (m *Model) grab(id string) {
	if id == "" {
		return
	}
	if id == model.RootID {
		m.reject(model.ErrRootImmovable)
		return
	}
	m.grabbed = id
	m.mode = modeGrab
	tree := m.tree
	positional := m.opts.UI.PositionalAbove
	m.view.SetGrab(id, func(target string) (bool, bool) {
		asChild := tree.CanDrop(id, target) == nil
		var above error
		if positional {
			above = tree.CanDropBefore(id, target)
		} else {
			above = tree.CanDropAbove(id, target)
		}
		return asChild, above == nil
	})
	m.setStatus("grabbed " + model.Label(id))
}

// release ends the grab without moving anything.
func (m *Model) release() {
	m.grabbed = ""
	m.mode = modeBrowse
	m.view.SetGrab("", nil)
}

// drop moves the grabbed node onto the selected row with move. The grab
// ends whether or not the move is accepted.
func (m *Model) drop(move func(fromID, toID string) error) {
	from, target := m.grabbed, m.view.SelectedID()
	m.release()
	if err := move(from, target); err != nil {
		m.reject(err)
		return
	}
	m.focus = from
	m.setStatus(fmt.Sprintf("moved %s", model.Label(from)))
}

// reject reports a refused edit. Rejections are silent unless configured.
func (m *Model) reject(err error) {
	debug.Log("rejected: %v", err)
	if !m.opts.UI.ShowRejections {
		m.setStatus("")
		return
	}
	m.setError(rejectionMessage(err))
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrRootImmovable):
		return "START cannot be moved"
	case errors.Is(err, model.ErrSelfMove):
		return "cannot drop a node on itself"
	case errors.Is(err, model.ErrCycle):
		return "cannot drop a node inside its own subtree"
	case errors.Is(err, model.ErrSameParent):
		return "already a child there"
	case errors.Is(err, model.ErrAlreadyPlaced):
		return "already in that position"
	default:
		return err.Error()
	}
}

func (m *Model) save(label string) tea.Cmd {
	if !m.opts.Worker.CanSave() {
		m.setError("no session to save to (use --session or --store)")
		return nil
	}
	m.setStatus("saving…")
	return m.opts.Worker.SaveCmd(m.tree.Snapshot(), m.tree.Version(), label)
}

// quit saves pending edits first when autosave is on.
func (m *Model) quit() tea.Cmd {
	if m.opts.Autosave && m.Dirty() && m.opts.Worker.CanSave() {
		return tea.Sequence(m.opts.Worker.SaveCmd(m.tree.Snapshot(), m.tree.Version(), "autosave"), tea.Quit)
	}
	return tea.Quit
}

func (m Model) scheduleAutosave() tea.Cmd {
	if !m.opts.Autosave || !m.opts.Worker.CanSave() {
		return nil
	}
	version := m.tree.Version()
	return tea.Tick(m.opts.AutosaveDelay, func(time.Time) tea.Msg {
		return autosaveTickMsg{version: version}
	})
}

// applyReload swaps in a tree changed by another process. The cursor stays
// on the same id, or the nearest surviving row.
func (m Model) applyReload(root *model.Node) Model {
	if model.Equal(root, m.tree.Root()) {
		return m
	}
	selected := m.view.SelectedID()
	if err := m.tree.Replace(root); err != nil {
		m.setError("reload: " + err.Error())
		return m
	}
	m.savedVersion = m.tree.Version()
	if m.grabbed != "" && m.tree.FindByID(m.grabbed) == nil {
		m.release()
	}
	if m.tree.FindByID(selected) != nil {
		m.focus = selected
	} else {
		m.focus = model.RootID
	}
	m.setStatus("reloaded from disk")
	return m
}

// restore replaces the tree with a stored snapshot. Unlike a reload this is
// an edit, so it is saved like any other.
func (m Model) restore(msg SnapshotLoadedMsg) Model {
	selected := m.view.SelectedID()
	if m.grabbed != "" {
		m.release()
	}
	if err := m.tree.Replace(msg.Root); err != nil {
		m.setError("restore: " + err.Error())
		return m
	}
	if m.tree.FindByID(selected) != nil {
		m.focus = selected
	} else {
		m.focus = model.RootID
	}
	m.setStatus(fmt.Sprintf("restored snapshot %s (%s)", shortID(msg.Info.ID), msg.Info.Label))
	return m
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m Model) bodyHeight() int {
	h := m.height - 1
	if h < 1 {
		h = 1
	}
	return h
}

// View renders the editor.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.mode {
	case modeHelp:
		body = m.helpView.View()
	case modeHistory:
		body = m.picker.View()
	default:
		body = m.view.View()
	}
	body = m.theme.Renderer.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m Model) renderFooter() string {
	if m.mode == modeJump {
		return m.jump.View()
	}

	var modeSection string
	switch m.mode {
	case modeGrab:
		modeSection = m.theme.StatusGrab.Render("GRAB " + m.grabbed)
	default:
		modeSection = m.theme.StatusMode.Render(m.mode.String())
	}

	statusSection := ""
	if m.status != "" {
		if m.statusErr {
			statusSection = m.theme.StatusError.Render(m.status)
		} else {
			statusSection = m.theme.StatusInfo.Render(m.status)
		}
	}

	count := fmt.Sprintf("%d nodes", m.tree.Len())
	if m.opts.Worker.CanSave() && m.Dirty() {
		count = "● " + count
	}
	countSection := m.theme.StatusCount.Render(count)

	var keysSection string
	if m.mode == modeGrab {
		keysSection = m.help.View(grabKeys(m.keys))
	} else {
		keysSection = m.help.View(normalKeys(m.keys))
	}

	leftWidth := lipgloss.Width(modeSection) + lipgloss.Width(statusSection)
	rightWidth := lipgloss.Width(countSection) + lipgloss.Width(keysSection)
	remaining := m.width - leftWidth - rightWidth
	if remaining < 0 {
		keysSection = ""
		remaining = m.width - leftWidth - lipgloss.Width(countSection)
	}
	if remaining < 0 {
		remaining = 0
	}
	filler := m.theme.StatusFill.Width(remaining).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, modeSection, statusSection, filler, countSection, keysSection)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Tree returns the edited tree.
func (m Model) Tree() *model.Tree {
	return m.tree
}

// SelectedID returns the id under the cursor.
func (m Model) SelectedID() string {
	return m.view.SelectedID()
}

// Grabbed returns the id of the grabbed node, or "".
func (m Model) Grabbed() string {
	return m.grabbed
}

// Status returns the status bar message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// Dirty reports whether there are edits newer than the last save.
func (m Model) Dirty() bool {
	return m.tree.Version() != m.savedVersion
}
