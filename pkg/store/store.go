// Package store keeps a history of tree snapshots in a SQLite database.
//
// Each Save writes one row to snapshots and one row per node to nodes, with
// the node's parent id and its position among that parent's children. The
// root row has a NULL parent. Loading rebuilds the hierarchy from those rows
// and validates it before returning.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// ErrNoSnapshots is returned by Latest on an empty store.
var ErrNoSnapshots = errors.New("store has no snapshots")

// ErrSnapshotNotFound is returned by Load for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo describes one saved snapshot.
type SnapshotInfo struct {
	ID        string
	Label     string
	CreatedAt time.Time
	NodeCount int
}

// Store is a SQLite-backed snapshot history.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	if err := runMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records a snapshot of root and returns its id.
func (s *Store) Save(ctx context.Context, root *model.Node, label string) (string, error) {
	if err := model.Validate(root); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	id := uuid.NewString()
	created := s.now().UTC()

	type row struct {
		id, parent string
		position   int
	}
	var rows []row
	var collect func(n *model.Node, parent string, position int)
	collect = func(n *model.Node, parent string, position int) {
		rows = append(rows, row{id: n.ID, parent: parent, position: position})
		for i, child := range n.Children {
			collect(child, n.ID, i)
		}
	}
	collect(root, "", 0)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (id, label, created_at, node_count) VALUES (?, ?, ?, ?)`,
			id, label, created.Format(time.RFC3339Nano), len(rows),
		); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO nodes (snapshot_id, id, parent_id, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare nodes: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			var parent sql.NullString
			if r.parent != "" {
				parent = sql.NullString{String: r.parent, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, id, r.id, parent, r.position); err != nil {
				return fmt.Errorf("insert node %s: %w", r.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Latest loads the most recently saved snapshot.
func (s *Store) Latest(ctx context.Context) (*model.Node, SnapshotInfo, error) {
	infos, err := s.list(ctx, 1)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	if len(infos) == 0 {
		return nil, SnapshotInfo{}, ErrNoSnapshots
	}
	root, err := s.Load(ctx, infos[0].ID)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	return root, infos[0], nil
}

// Load rebuilds the snapshot with the given id.
func (s *Store) Load(ctx context.Context, id string) (*model.Node, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id FROM nodes WHERE snapshot_id = ? ORDER BY position, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()

	nodes := make(map[string]*model.Node)
	type link struct{ child, parent string }
	var links []link
	var root *model.Node

	for rows.Next() {
		var nodeID string
		var parent sql.NullString
		if err := rows.Scan(&nodeID, &parent); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n := model.NewNode(nodeID)
		nodes[nodeID] = n
		if !parent.Valid {
			root = n
			continue
		}
		links = append(links, link{child: nodeID, parent: parent.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	// Rows arrive in position order, so appending preserves child order.
	for _, l := range links {
		p, ok := nodes[l.parent]
		if !ok {
			return nil, fmt.Errorf("snapshot %s: node %s has unknown parent %s", id, l.child, l.parent)
		}
		p.Children = append(p.Children, nodes[l.child])
	}

	if err := model.Validate(root); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return root, nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]SnapshotInfo, error) {
	return s.list(ctx, -1)
}

// Prune deletes all but the newest keep snapshots and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) list(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, created_at, node_count FROM snapshots ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created string
		if err := rows.Scan(&info.ID, &info.Label, &created, &info.NodeCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			info.CreatedAt = t
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// withTx runs fn in a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
