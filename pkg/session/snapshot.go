// Package session persists the editor's tree between runs.
//
// A session file is a single JSON document:
//
//	{"version":1,"saved_at":"2026-01-02T15:04:05Z","root":{"id":"START","children":[...]}}
//
// Writes go to a temp file in the same directory and are renamed into place,
// so a watcher never observes a half-written snapshot.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// FormatVersion is the snapshot schema written by Save.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for snapshots from a newer format.
var ErrUnsupportedVersion = errors.New("unsupported session format version")

// Snapshot is the on-disk representation of a saved tree.
type Snapshot struct {
	Version int         `json:"version"`
	SavedAt time.Time   `json:"saved_at"`
	Label   string      `json:"label,omitempty"`
	Root    *model.Node `json:"root"`
}

// Encode renders root as an indented snapshot document.
func Encode(root *model.Node, label string, now time.Time) ([]byte, error) {
	snap := Snapshot{
		Version: FormatVersion,
		SavedAt: now.UTC(),
		Label:   label,
		Root:    model.Clone(root),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a snapshot document.
func Decode(data []byte) (*Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decoding session: empty document")
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if snap.Version == 0 {
		snap.Version = FormatVersion
	}
	if snap.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if err := model.Validate(snap.Root); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &snap, nil
}

// Save writes the tree to path atomically, creating parent directories.
func Save(path string, root *model.Node) error {
	data, err := Encode(root, "", time.Now())
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Load reads and validates the snapshot at path.
func Load(path string) (*model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap.Root, nil
}

// LoadOrNew loads path if it exists and otherwise returns a fresh tree.
func LoadOrNew(path string) (*model.Tree, error) {
	if path == "" {
		return model.NewTree(), nil
	}
	root, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewTree(), nil
		}
		return nil, err
	}
	return model.FromRoot(root)
}
