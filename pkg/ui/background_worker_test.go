package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vanderheijden86/nodetree/pkg/model"
	"github.com/vanderheijden86/nodetree/pkg/session"
	"github.com/vanderheijden86/nodetree/pkg/store"
	"github.com/vanderheijden86/nodetree/pkg/testutil"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBackgroundWorker_NoDestinations(t *testing.T) {
	worker := NewBackgroundWorker(WorkerConfig{})
	defer worker.Stop()

	if worker.CanSave() {
		t.Error("worker without destinations should not save")
	}
	if worker.HasHistory() {
		t.Error("worker without a store has no history")
	}
	if worker.SaveCmd(model.NewNode(model.RootID), 1, "manual") != nil {
		t.Error("SaveCmd should be nil")
	}
	if worker.WaitForChange() != nil || worker.ReloadCmd() != nil {
		t.Error("watch commands should be nil without a watcher")
	}
	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
}

func TestBackgroundWorker_NilIsSafe(t *testing.T) {
	var worker *BackgroundWorker
	if worker.CanSave() || worker.HasHistory() {
		t.Error("nil worker reports capabilities")
	}
	if worker.WaitForChange() != nil || worker.ReloadCmd() != nil || worker.ListSnapshotsCmd() != nil {
		t.Error("nil worker returned commands")
	}
}

func TestBackgroundWorker_SaveWritesSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: path})
	defer worker.Stop()

	tree := testutil.NewGenerator(3).Random(12, 4)
	msg := worker.SaveCmd(tree.Snapshot(), tree.Version(), "manual")()

	saved, ok := msg.(SavedMsg)
	if !ok {
		t.Fatalf("expected SavedMsg, got %T: %v", msg, msg)
	}
	if saved.Version != tree.Version() || saved.Path != path {
		t.Errorf("unexpected SavedMsg %+v", saved)
	}
	if worker.LastError() != nil {
		t.Errorf("unexpected error: %v", worker.LastError())
	}
	if worker.State() != WorkerIdle {
		t.Errorf("worker should be idle after save, got %v", worker.State())
	}

	root, err := session.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	testutil.AssertSameTree(t, tree.Root(), root)
}

func TestBackgroundWorker_SaveErrorCarriesPhase(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: filepath.Join(blocker, "session.json")})
	defer worker.Stop()

	for attempt := 1; attempt <= 2; attempt++ {
		msg := worker.SaveCmd(model.NewNode(model.RootID), 1, "manual")()
		failed, ok := msg.(SaveErrorMsg)
		if !ok {
			t.Fatalf("attempt %d: expected SaveErrorMsg, got %T", attempt, msg)
		}
		if failed.Err.Phase != PhaseWriteSession {
			t.Errorf("phase = %q, want %q", failed.Err.Phase, PhaseWriteSession)
		}
		if failed.Err.Retries != attempt {
			t.Errorf("retries = %d, want %d", failed.Err.Retries, attempt)
		}
		if !strings.Contains(failed.Err.Error(), "write_session failed") {
			t.Errorf("unexpected message %q", failed.Err.Error())
		}
	}

	werr := worker.LastError()
	if werr == nil {
		t.Fatal("LastError should be set after a failed save")
	}
	if errors.Unwrap(*werr) == nil {
		t.Error("WorkerError should unwrap to its cause")
	}
}

func TestBackgroundWorker_ReloadIgnoresOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: path})
	defer worker.Stop()

	tree := testutil.NewGenerator(1).Fan(3)
	worker.SaveCmd(tree.Snapshot(), tree.Version(), "manual")()

	if msg := worker.ReloadCmd()(); msg != (SessionUnchangedMsg{}) {
		t.Fatalf("reload after own save = %T, want SessionUnchangedMsg", msg)
	}

	external := testutil.NewGenerator(1).Chain(2)
	if err := session.Save(path, external.Root()); err != nil {
		t.Fatal(err)
	}
	msg := worker.ReloadCmd()()
	reloaded, ok := msg.(SessionReloadedMsg)
	if !ok {
		t.Fatalf("expected SessionReloadedMsg, got %T", msg)
	}
	testutil.AssertSameTree(t, external.Root(), reloaded.Root)
}

func TestBackgroundWorker_ReloadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"root":{"id":"1"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: path})
	defer worker.Stop()

	msg := worker.ReloadCmd()()
	failed, ok := msg.(SessionReloadErrorMsg)
	if !ok {
		t.Fatalf("expected SessionReloadErrorMsg, got %T", msg)
	}
	if failed.Err.Phase != PhaseReload {
		t.Errorf("phase = %q", failed.Err.Phase)
	}
	if !errors.Is(failed.Err, model.ErrBadRoot) {
		t.Errorf("expected ErrBadRoot in chain, got %v", failed.Err)
	}
}

func TestBackgroundWorker_WaitForChange(t *testing.T) {
	changes := make(chan struct{}, 1)
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: "unused.json", Changes: changes})

	changes <- struct{}{}
	if msg := worker.WaitForChange()(); msg != (SessionChangedMsg{}) {
		t.Fatalf("expected SessionChangedMsg, got %T", msg)
	}

	worker.Stop()
	worker.Stop() // Should not panic
	if msg := worker.WaitForChange()(); msg != nil {
		t.Errorf("stopped worker should return nil, got %T", msg)
	}
	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
	if msg := worker.SaveCmd(model.NewNode(model.RootID), 1, "manual")(); msg != nil {
		t.Errorf("stopped worker should not save, got %T", msg)
	}
}

func TestBackgroundWorker_StoreSaveAndHistory(t *testing.T) {
	worker := NewBackgroundWorker(WorkerConfig{Store: openTestStore(t)})
	defer worker.Stop()

	if !worker.CanSave() || !worker.HasHistory() {
		t.Fatal("store-backed worker should save and list")
	}

	tree := testutil.NewGenerator(7).Random(8, 3)
	msg := worker.SaveCmd(tree.Snapshot(), tree.Version(), "manual")()
	saved, ok := msg.(SavedMsg)
	if !ok || saved.SnapshotID == "" {
		t.Fatalf("expected SavedMsg with snapshot id, got %#v", msg)
	}

	list, ok := worker.ListSnapshotsCmd()().(SnapshotListMsg)
	if !ok || len(list.Snapshots) != 1 {
		t.Fatalf("expected one snapshot, got %#v", list)
	}
	info := list.Snapshots[0]
	if info.ID != saved.SnapshotID || info.Label != "manual" || info.NodeCount != tree.Len() {
		t.Errorf("unexpected snapshot info %+v", info)
	}

	loaded, ok := worker.LoadSnapshotCmd(info)().(SnapshotLoadedMsg)
	if !ok {
		t.Fatal("expected SnapshotLoadedMsg")
	}
	testutil.AssertSameTree(t, tree.Root(), loaded.Root)

	missing := worker.LoadSnapshotCmd(store.SnapshotInfo{ID: "nope"})()
	if failed, ok := missing.(SnapshotErrorMsg); !ok || !errors.Is(failed.Err, store.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %#v", missing)
	}
}

func TestBackgroundWorker_SafeComputeRecoversPanic(t *testing.T) {
	worker := NewBackgroundWorker(WorkerConfig{})
	defer worker.Stop()

	werr := worker.safeCompute("test", func() error {
		panic("boom")
	})
	if werr == nil {
		t.Fatal("expected a WorkerError from a panic")
	}
	if werr.Phase != "test" || !strings.Contains(werr.Cause.Error(), "panic: boom") {
		t.Errorf("unexpected error %v", werr)
	}
	if worker.safeCompute("ok", func() error { return nil }) != nil {
		t.Error("successful compute should return nil")
	}
}

func TestBackgroundWorker_ConcurrentSavesKeepNewest(t *testing.T) {
	gen := testutil.NewGenerator(11)
	older := gen.Random(6, 3).Snapshot()
	newer := gen.Random(14, 4).Snapshot()

	for i := 0; i < 50; i++ {
		path := filepath.Join(t.TempDir(), "session.json")
		worker := NewBackgroundWorker(WorkerConfig{SessionPath: path})

		var wg sync.WaitGroup
		msgs := make([]any, 2)
		for j, job := range []struct {
			root    *model.Node
			version uint64
		}{{newer, 2}, {older, 1}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				msgs[j] = worker.SaveCmd(job.root, job.version, "autosave")()
			}()
		}
		wg.Wait()
		worker.Stop()

		for _, msg := range msgs {
			if _, ok := msg.(SavedMsg); !ok {
				t.Fatalf("run %d: expected SavedMsg, got %T: %v", i, msg, msg)
			}
		}
		root, err := session.Load(path)
		if err != nil {
			t.Fatalf("run %d: Load: %v", i, err)
		}
		testutil.AssertSameTree(t, newer, root)
	}
}

func TestBackgroundWorker_SkipsStaleSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	st := openTestStore(t)
	worker := NewBackgroundWorker(WorkerConfig{SessionPath: path, Store: st})
	defer worker.Stop()

	gen := testutil.NewGenerator(4)
	newer := gen.Random(10, 3).Snapshot()

	tests := []struct {
		name    string
		root    *model.Node
		version uint64
		skipped bool
	}{
		{"first save writes", newer, 5, false},
		{"same version is skipped", newer, 5, true},
		{"older version is skipped", gen.Random(3, 2).Snapshot(), 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := worker.SaveCmd(tt.root, tt.version, "manual")().(SavedMsg)
			if !ok {
				t.Fatal("expected SavedMsg")
			}
			if msg.Skipped != tt.skipped {
				t.Errorf("Skipped = %v, want %v", msg.Skipped, tt.skipped)
			}
			if tt.skipped && msg.SnapshotID != "" {
				t.Error("a skipped save should not create a snapshot")
			}
		})
	}

	root, err := session.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	testutil.AssertSameTree(t, newer, root)

	infos, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("store holds %d snapshots, want 1", len(infos))
	}
}
