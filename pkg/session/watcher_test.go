package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

func TestWatcherSignalsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := Save(path, model.NewTree().Root()); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	tree := model.NewTree()
	if _, err := tree.AddChild(model.RootID); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, tree.Root()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := Save(filepath.Join(dir, "other.json"), model.NewTree().Root()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changed():
		t.Fatal("unexpected notification for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
