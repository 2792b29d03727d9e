package store

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS maps (
	name     TEXT PRIMARY KEY,
	version  INTEGER NOT NULL,
	revision INTEGER NOT NULL,
	saved_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS nodes (
	map      TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	id       TEXT NOT NULL,
	kind     TEXT NOT NULL,
	text     TEXT NOT NULL,
	parent   TEXT,
	pin_x    REAL,
	pin_y    REAL,
	metadata TEXT,
	PRIMARY KEY (map, id)
);
CREATE TABLE IF NOT EXISTS edges (
	map      TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	id       TEXT NOT NULL,
	source   TEXT NOT NULL,
	target   TEXT NOT NULL,
	relation TEXT NOT NULL,
	PRIMARY KEY (map, id)
);
`

// SQLiteStore keeps maps in normalized tables, one row per node and edge.
// Several named maps may share a database.
type SQLiteStore struct {
	db   *sql.DB
	name string
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path, name string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, name: name}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load reads the named map.
func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return model.Snapshot{}, loadErr(BackendSQLite, err)
	}
	return snap, nil
}

func (s *SQLiteStore) load(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT version, revision FROM maps WHERE name = ?`, s.name,
	).Scan(&snap.Version, &snap.Revision)
	if err == sql.ErrNoRows {
		return model.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return model.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, text, parent, pin_x, pin_y, metadata
		 FROM nodes WHERE map = ? ORDER BY seq`, s.name)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer rows.Close()
	snap.Nodes = []model.Node{}
	for rows.Next() {
		var (
			n        model.Node
			parent   sql.NullString
			px, py   sql.NullFloat64
			metadata sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Kind, &n.Text, &parent, &px, &py, &metadata); err != nil {
			return model.Snapshot{}, err
		}
		n.Parent = parent.String
		if px.Valid && py.Valid {
			n.Pinned = &model.Position{X: px.Float64, Y: py.Float64}
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &n.Metadata); err != nil {
				return model.Snapshot{}, fmt.Errorf("node %s metadata: %w", n.ID, err)
			}
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	erows, err := s.db.QueryContext(ctx,
		`SELECT id, source, target, relation FROM edges WHERE map = ? ORDER BY seq`, s.name)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer erows.Close()
	snap.Edges = []model.Edge{}
	for erows.Next() {
		var e model.Edge
		if err := erows.Scan(&e.ID, &e.Source, &e.Target, &e.Relation); err != nil {
			return model.Snapshot{}, err
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := erows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	if err := snap.Validate(); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the named map in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap model.Snapshot) error {
	if err := s.save(ctx, snap); err != nil {
		return saveErr(BackendSQLite, err)
	}
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	version := snap.Version
	if version == 0 {
		version = model.SnapshotVersion
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO maps (name, version, revision, saved_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET version = excluded.version,
		   revision = excluded.revision, saved_at = excluded.saved_at`,
		s.name, version, snap.Revision); err != nil {
		return err
	}
	for _, table := range []string{"nodes", "edges"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE map = ?`, s.name); err != nil {
			return err
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (map, seq, id, kind, text, parent, pin_x, pin_y, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for i, n := range snap.Nodes {
		var (
			parent   any
			px, py   any
			metadata any
		)
		if n.Parent != "" {
			parent = n.Parent
		}
		if n.Pinned != nil {
			px, py = n.Pinned.X, n.Pinned.Y
		}
		if len(n.Metadata) > 0 {
			b, err := json.Marshal(n.Metadata)
			if err != nil {
				return err
			}
			metadata = string(b)
		}
		if _, err := nodeStmt.ExecContext(ctx, s.name, i, n.ID, string(n.Kind), n.Text, parent, px, py, metadata); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (map, seq, id, source, target, relation) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for i, e := range snap.Edges {
		if _, err := edgeStmt.ExecContext(ctx, s.name, i, e.ID, e.Source, e.Target, string(e.Relation)); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Maps lists the names of stored maps.
func (s *SQLiteStore) Maps(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM maps ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
