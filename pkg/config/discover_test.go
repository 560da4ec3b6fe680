package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSession(t *testing.T, projectDir string) string {
	t.Helper()
	dir := filepath.Join(projectDir, SessionDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, SessionFileName)
	if err := os.WriteFile(path, []byte(`{"version":1,"root":{"id":"START","children":[]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanForSessions(t *testing.T) {
	root := t.TempDir()

	s1 := writeSession(t, filepath.Join(root, "project1"))
	s2 := writeSession(t, filepath.Join(root, "subdir", "project2"))
	if err := os.MkdirAll(filepath.Join(root, "nosession"), 0o755); err != nil {
		t.Fatal(err)
	}

	results := scanForSessions(root, 3)

	if len(results) != 2 {
		t.Fatalf("expected 2 sessions, got %d: %v", len(results), results)
	}

	found := make(map[string]bool)
	for _, r := range results {
		found[r] = true
	}
	if !found[s1] {
		t.Error("expected to find project1 session")
	}
	if !found[s2] {
		t.Error("expected to find project2 session")
	}
}

func TestScanForSessions_DepthLimit(t *testing.T) {
	root := t.TempDir()

	writeSession(t, filepath.Join(root, "a", "b", "c", "d", "deep"))
	shallow := writeSession(t, filepath.Join(root, "shallow"))

	results := scanForSessions(root, 2)

	if len(results) != 1 {
		t.Fatalf("expected 1 session at depth 2, got %d: %v", len(results), results)
	}
	if results[0] != shallow {
		t.Errorf("expected shallow session, got %q", results[0])
	}
}

func TestScanForSessions_SkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeSession(t, filepath.Join(root, ".hidden", "project"))

	if results := scanForSessions(root, 3); len(results) != 0 {
		t.Errorf("expected 0 results (hidden dir skipped), got %d", len(results))
	}
}

func TestDiscoverSessions_DedupesConfiguredPath(t *testing.T) {
	root := t.TempDir()
	path := writeSession(t, filepath.Join(root, "proj"))

	cfg := DefaultConfig()
	cfg.Session.Path = path
	cfg.Session.ScanPaths = []string{root}

	result := DiscoverSessions(cfg)
	if len(result) != 1 {
		t.Fatalf("expected 1 deduped session, got %d: %v", len(result), result)
	}
	if result[0] != path {
		t.Errorf("expected %q, got %q", path, result[0])
	}
}

func TestFindSessionRoot(t *testing.T) {
	root := t.TempDir()
	path := writeSession(t, root)

	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	found, ok := findSessionRoot(sub)
	if !ok {
		t.Fatal("expected to find session")
	}
	if found != path {
		t.Errorf("expected %q, got %q", path, found)
	}
}
