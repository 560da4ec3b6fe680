package config

import (
	"os"
	"path/filepath"
	"strings"
)

// SessionDirName is the per-project directory that holds a saved session.
const SessionDirName = ".nodetree"

// SessionFileName is the snapshot file inside SessionDirName.
const SessionFileName = "session.json"

// DiscoverSessions scans the configured paths for project directories that
// contain a .nodetree/session.json and returns the snapshot paths found.
func DiscoverSessions(cfg Config) []string {
	seen := make(map[string]bool)
	var result []string

	if cfg.Session.Path != "" {
		seen[cfg.Session.Path] = true
		result = append(result, cfg.Session.Path)
	}

	for _, scanPath := range cfg.Session.ScanPaths {
		maxDepth := cfg.Session.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 3
		}
		for _, f := range scanForSessions(scanPath, maxDepth) {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
	}

	return result
}

// scanForSessions walks a directory tree up to maxDepth levels deep,
// looking for directories that contain .nodetree/session.json.
func scanForSessions(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}

		session := filepath.Join(path, SessionDirName, SessionFileName)
		if info, err := os.Stat(session); err == nil && info.Mode().IsRegular() {
			results = append(results, session)
			return filepath.SkipDir
		}

		return nil
	})

	return results
}

// DetectProjectSession walks up from the working directory looking for a
// project-local session snapshot.
func DetectProjectSession() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findSessionRoot(dir)
}

// findSessionRoot walks up from dir and returns the first
// .nodetree/session.json it finds, stopping at the home directory.
func findSessionRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		session := filepath.Join(dir, SessionDirName, SessionFileName)
		if info, err := os.Stat(session); err == nil && info.Mode().IsRegular() {
			return session, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}
