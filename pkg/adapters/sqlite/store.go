package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"

	_ "modernc.org/sqlite"
)

// Store implements ports.GraphStore and ports.RunStore on SQLite.
//
// Graphs and runs are stored as JSON documents next to the columns needed to
// list and inspect them without decoding.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path using the pure-Go
// modernc.org/sqlite driver and prepares the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New initializes the required schema in the given database and returns a
// new Store. The caller owns db.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS graphs (
			id TEXT PRIMARY KEY,
			definition BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_node TEXT NOT NULL,
			error TEXT NOT NULL,
			started_at TEXT NOT NULL,
			record BLOB NOT NULL
		);`,
	)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Graphs returns a view of the store satisfying ports.GraphStore.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{db: s.db}
}

// Runs returns a view of the store satisfying ports.RunStore.
func (s *Store) Runs() *RunStore {
	return &RunStore{db: s.db}
}

// GraphStore is the graph view of a Store.
type GraphStore struct {
	db *sql.DB
}

func (g *GraphStore) Save(ctx context.Context, graph *domain.Graph) error {
	def, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO graphs (id, definition) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET definition = excluded.definition`,
		graph.ID, def,
	)
	return err
}

func (g *GraphStore) Get(ctx context.Context, id string) (*domain.Graph, error) {
	var def []byte
	err := g.db.QueryRowContext(ctx, `SELECT definition FROM graphs WHERE id = ?`, id).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGraphNotFound
	}
	if err != nil {
		return nil, err
	}

	var graph domain.Graph
	if err := json.Unmarshal(def, &graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph %s: %w", id, err)
	}
	return &graph, nil
}

func (g *GraphStore) List(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, g.db, `SELECT id FROM graphs ORDER BY id`)
}

// RunStore is the run view of a Store.
type RunStore struct {
	db *sql.DB
}

func (r *RunStore) Save(ctx context.Context, run *domain.Run) error {
	record, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, graph_id, status, current_node, error, started_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			graph_id = excluded.graph_id,
			status = excluded.status,
			current_node = excluded.current_node,
			error = excluded.error,
			started_at = excluded.started_at,
			record = excluded.record`,
		run.ID,
		run.GraphID,
		string(run.Status),
		run.CurrentNode,
		run.Error,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		record,
	)
	return err
}

func (r *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	var record []byte
	err := r.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	var run domain.Run
	if err := json.Unmarshal(record, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

func (r *RunStore) List(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM runs ORDER BY id`)
}

// ListByStatus returns the IDs of runs in the given status, sorted like List.
func (r *RunStore) ListByStatus(ctx context.Context, status domain.RunStatus) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM runs WHERE status = ? ORDER BY id`, string(status))
}

func (r *RunStore) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	return err
}

func queryIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
