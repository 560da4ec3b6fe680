// This file implements the BackgroundWorker, which saves and reloads the
// session off the UI thread.
package ui

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	nodedebug "github.com/vanderheijden86/nodetree/pkg/debug"
	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/session"
	"github.com/vanderheijden86/nodetree/pkg/store"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means no save or reload is running.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means a save or reload is running.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// Worker phases reported in WorkerError.
const (
	PhaseWriteSession = "write_session"
	PhaseStoreSave    = "store_save"
	PhaseReload       = "reload"
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // one of the Phase constants
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	// SessionPath is the JSON snapshot written on save and re-read on change.
	SessionPath string
	// Store receives a snapshot row on every save when set.
	Store *store.Store
	// Changes signals that SessionPath was modified by another process.
	Changes <-chan struct{}
	// Timeout bounds each store write (default 10s).
	Timeout time.Duration
}

// BackgroundWorker runs session saves and reloads as tea.Cmds. It never sees
// the live tree: every save receives a cloned snapshot.
type BackgroundWorker struct {
	sessionPath string
	store       *store.Store
	changes     <-chan struct{}
	timeout     time.Duration

	// saveMu serializes saves; bubbletea runs commands concurrently.
	saveMu sync.Mutex
	// written is the newest tree version persisted. Guarded by saveMu.
	written    uint64
	hasWritten bool

	mu         sync.Mutex
	state      WorkerState
	lastError  *WorkerError
	errorCount int
	// lastWritten is the tree as last written by this process, so the
	// watcher event caused by our own save is not treated as a reload.
	lastWritten *model.Node

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) *BackgroundWorker {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		sessionPath: cfg.SessionPath,
		store:       cfg.Store,
		changes:     cfg.Changes,
		timeout:     cfg.Timeout,
		state:       WorkerIdle,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// CanSave reports whether a save has anywhere to go.
func (w *BackgroundWorker) CanSave() bool {
	return w != nil && (w.sessionPath != "" || w.store != nil)
}

// Stop halts the worker. Pending WaitForChange commands return nil.
// Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	w.state = WorkerStopped
	w.mu.Unlock()
	w.cancel()
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastError returns the most recent error (nil if the last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// SaveCmd writes root to the configured destinations. root must be a
// snapshot the UI will not mutate. Saves run one at a time, and a save
// whose version is not newer than the last one written is skipped.
func (w *BackgroundWorker) SaveCmd(root *model.Node, version uint64, label string) tea.Cmd {
	if !w.CanSave() {
		return nil
	}
	return func() tea.Msg {
		return w.save(root, version, label)
	}
}

func (w *BackgroundWorker) save(root *model.Node, version uint64, label string) tea.Msg {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	msg := SavedMsg{Version: version, Path: w.sessionPath}
	if w.hasWritten && version <= w.written {
		nodedebug.LogIf(version < w.written, "save v%d skipped: v%d already written", version, w.written)
		msg.Skipped = true
		return msg
	}

	if !w.begin() {
		return nil
	}
	defer w.end()
	start := time.Now()
	defer func() { nodedebug.LogTiming(fmt.Sprintf("save v%d", version), time.Since(start)) }()

	if w.sessionPath != "" {
		if werr := w.safeCompute(PhaseWriteSession, func() error {
			return session.Save(w.sessionPath, root)
		}); werr != nil {
			w.recordError(werr)
			log.Printf("warning: %v", werr)
			return SaveErrorMsg{Version: version, Err: werr}
		}
		w.mu.Lock()
		w.lastWritten = root
		w.mu.Unlock()
	}

	if w.store != nil {
		if werr := w.safeCompute(PhaseStoreSave, func() error {
			ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
			defer cancel()
			id, err := w.store.Save(ctx, root, label)
			msg.SnapshotID = id
			return err
		}); werr != nil {
			w.recordError(werr)
			log.Printf("warning: %v", werr)
			return SaveErrorMsg{Version: version, Err: werr}
		}
	}

	w.written, w.hasWritten = version, true
	w.recordError(nil)
	return msg
}

// WaitForChange blocks until the watched session changes. It returns nil when
// there is no watcher.
func (w *BackgroundWorker) WaitForChange() tea.Cmd {
	if w == nil || w.changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-w.ctx.Done():
			return nil
		case _, ok := <-w.changes:
			if !ok {
				return nil
			}
			return SessionChangedMsg{}
		}
	}
}

// ReloadCmd re-reads the session file. A file identical to what this process
// last wrote yields SessionUnchangedMsg.
func (w *BackgroundWorker) ReloadCmd() tea.Cmd {
	if w == nil || w.sessionPath == "" {
		return nil
	}
	return func() tea.Msg {
		var root *model.Node
		if werr := w.safeCompute(PhaseReload, func() error {
			var err error
			root, err = session.Load(w.sessionPath)
			return err
		}); werr != nil {
			w.recordError(werr)
			log.Printf("warning: %v", werr)
			return SessionReloadErrorMsg{Err: werr}
		}
		w.recordError(nil)

		w.mu.Lock()
		own := w.lastWritten != nil && model.Equal(w.lastWritten, root)
		w.mu.Unlock()
		nodedebug.LogIf(own, "reload: %s matches our last save", w.sessionPath)
		if own {
			return SessionUnchangedMsg{}
		}
		return SessionReloadedMsg{Root: root}
	}
}

func (w *BackgroundWorker) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WorkerStopped {
		return false
	}
	w.state = WorkerProcessing
	return true
}

func (w *BackgroundWorker) end() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WorkerStopped {
		w.state = WorkerIdle
	}
}

// safeCompute executes fn and recovers from any panics.
// Returns a WorkerError if fn fails or panics, nil otherwise.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates the consecutive error count.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
}

// SavedMsg is sent when a save completes.
type SavedMsg struct {
	Version    uint64
	Path       string
	SnapshotID string // set when a store is configured
	Skipped    bool   // a newer version was already written
}

// SaveErrorMsg is sent when a save fails.
type SaveErrorMsg struct {
	Version uint64
	Err     *WorkerError
}

// SessionChangedMsg is sent when the watched session file changes.
type SessionChangedMsg struct{}

// SessionReloadedMsg carries a tree re-read from the session file.
type SessionReloadedMsg struct {
	Root *model.Node
}

// SessionUnchangedMsg is sent when a change event matched our own last save.
type SessionUnchangedMsg struct{}

// SessionReloadErrorMsg is sent when the changed file could not be loaded.
type SessionReloadErrorMsg struct {
	Err *WorkerError
}

// HasHistory reports whether saved snapshots can be browsed.
func (w *BackgroundWorker) HasHistory() bool {
	return w != nil && w.store != nil
}

// ListSnapshotsCmd lists the stored snapshots, newest first.
func (w *BackgroundWorker) ListSnapshotsCmd() tea.Cmd {
	if !w.HasHistory() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
		defer cancel()
		infos, err := w.store.List(ctx)
		if err != nil {
			return SnapshotErrorMsg{Err: err}
		}
		return SnapshotListMsg{Snapshots: infos}
	}
}

// LoadSnapshotCmd loads one stored snapshot for restoring.
func (w *BackgroundWorker) LoadSnapshotCmd(info store.SnapshotInfo) tea.Cmd {
	if !w.HasHistory() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
		defer cancel()
		root, err := w.store.Load(ctx, info.ID)
		if err != nil {
			return SnapshotErrorMsg{Err: err}
		}
		return SnapshotLoadedMsg{Info: info, Root: root}
	}
}

// SnapshotListMsg carries the stored snapshots.
type SnapshotListMsg struct {
	Snapshots []store.SnapshotInfo
}

// SnapshotLoadedMsg carries a snapshot chosen for restoring.
type SnapshotLoadedMsg struct {
	Info store.SnapshotInfo
	Root *model.Node
}

// SnapshotErrorMsg reports a failed history lookup.
type SnapshotErrorMsg struct {
	Err error
}
