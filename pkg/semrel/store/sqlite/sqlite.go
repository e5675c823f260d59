package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"

	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/store"
)

// DefaultCacheTTL is how long ontology lookups are served from memory.
const DefaultCacheTTL = 5 * time.Minute

// Options tunes a SQLite store.
type Options struct {
	// CacheTTL bounds the lifetime of cached taxonomy lookups. Writes through
	// AddEdge flush the cache regardless.
	CacheTTL time.Duration
}

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db    *sql.DB
	cache *cache.Cache
	onto  ontology.Oracle
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
// An optional Options value controls the taxonomy cache.
func OpenSQLite(ctx context.Context, path string, opts ...Options) (store.Store, error) {
	o := Options{CacheTTL: DefaultCacheTTL}
	if len(opts) > 0 && opts[0].CacheTTL > 0 {
		o = opts[0]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &sqliteStore{
		db:    db,
		cache: cache.New(o.CacheTTL, 2*o.CacheTTL),
	}
	s.onto = ontology.FromSource(&edgeSource{s: s})
	return s, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	s.cache.Flush()
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS extractions (
	id TEXT PRIMARY KEY,
	source TEXT,
	input TEXT NOT NULL,
	facts TEXT NOT NULL,
	passes INTEGER DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS extraction_outputs (
	extraction_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY(extraction_id, kind, position),
	FOREIGN KEY(extraction_id) REFERENCES extractions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS induced_rules (
	rule TEXT PRIMARY KEY,
	grp TEXT,
	support INTEGER NOT NULL,
	confidence REAL NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS taxonomy_edges (
	relation TEXT NOT NULL,
	child TEXT NOT NULL,
	parent TEXT NOT NULL,
	PRIMARY KEY(relation, child, parent)
);

CREATE INDEX IF NOT EXISTS idx_taxonomy_parent ON taxonomy_edges(parent);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

const (
	outputRelation = "relation"
	outputFormula  = "formula"
)

// SaveExtraction inserts or replaces an extraction and its outputs
func (s *sqliteStore) SaveExtraction(ctx context.Context, e store.Extraction) (string, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = store.NewID(e.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO extractions (id, source, input, facts, passes, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source=excluded.source,
	input=excluded.input,
	facts=excluded.facts,
	passes=excluded.passes,
	created_at=excluded.created_at;
`
	_, err = tx.ExecContext(ctx, stmt,
		e.ID,
		e.Source,
		e.Input,
		e.Facts,
		e.Passes,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM extraction_outputs WHERE extraction_id=?`, e.ID); err != nil {
		return "", err
	}
	if err := insertOutputs(ctx, tx, e.ID, outputRelation, e.Relations); err != nil {
		return "", err
	}
	if err := insertOutputs(ctx, tx, e.ID, outputFormula, e.Formulas); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return e.ID, nil
}

func insertOutputs(ctx context.Context, tx *sql.Tx, id, kind string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO extraction_outputs (extraction_id, kind, position, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, text := range texts {
		if _, err := stmt.ExecContext(ctx, id, kind, i, text); err != nil {
			return err
		}
	}
	return nil
}

// GetExtraction retrieves an extraction by ID
func (s *sqliteStore) GetExtraction(ctx context.Context, id string) (store.Extraction, bool, error) {
	e, err := s.loadExtraction(ctx, id)
	if err == sql.ErrNoRows {
		return store.Extraction{}, false, nil
	}
	if err != nil {
		return store.Extraction{}, false, err
	}
	return e, true, nil
}

// ListExtractions returns the most recent extractions first
func (s *sqliteStore) ListExtractions(ctx context.Context, limit int) ([]store.Extraction, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.loadStringColumn(ctx, `SELECT id FROM extractions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	out := make([]store.Extraction, 0, len(ids))
	for _, id := range ids {
		e, err := s.loadExtraction(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *sqliteStore) loadExtraction(ctx context.Context, id string) (store.Extraction, error) {
	var (
		e       store.Extraction
		source  sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, source, input, facts, passes, created_at
FROM extractions
WHERE id = ?;
`, id).Scan(&e.ID, &source, &e.Input, &e.Facts, &e.Passes, &created)
	if err != nil {
		return store.Extraction{}, err
	}
	e.Source = source.String
	if parsed, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
		e.CreatedAt = parsed
	}

	const outputs = `SELECT text FROM extraction_outputs WHERE extraction_id=? AND kind=? ORDER BY position`
	e.Relations, err = s.loadStringColumn(ctx, outputs, id, outputRelation)
	if err != nil {
		return store.Extraction{}, err
	}
	e.Formulas, err = s.loadStringColumn(ctx, outputs, id, outputFormula)
	if err != nil {
		return store.Extraction{}, err
	}
	return e, nil
}

// UpsertRule inserts or updates an induced rule
func (s *sqliteStore) UpsertRule(ctx context.Context, r store.RuleRecord) error {
	if r.Rule == "" {
		return nil
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	const stmt = `
INSERT INTO induced_rules (rule, grp, support, confidence, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(rule) DO UPDATE SET
	grp=excluded.grp,
	support=excluded.support,
	confidence=excluded.confidence,
	updated_at=excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, stmt, r.Rule, r.Group, r.Support, r.Confidence, r.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// ListRules returns rules at or above minConfidence, most confident first
func (s *sqliteStore) ListRules(ctx context.Context, minConfidence float64) ([]store.RuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rule, grp, support, confidence, updated_at
FROM induced_rules
WHERE confidence >= ?;
`, minConfidence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RuleRecord
	for rows.Next() {
		var (
			r       store.RuleRecord
			grp     sql.NullString
			updated string
		)
		if err := rows.Scan(&r.Rule, &grp, &r.Support, &r.Confidence, &updated); err != nil {
			return nil, err
		}
		r.Group = grp.String
		if parsed, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
			r.UpdatedAt = parsed
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store.SortRules(out)
	return out, nil
}

// AddEdge asserts a taxonomy fact and invalidates cached lookups
func (s *sqliteStore) AddEdge(ctx context.Context, e ontology.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO taxonomy_edges (relation, child, parent) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		e.Relation, e.Child, e.Parent)
	if err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

// Edges lists every taxonomy fact ordered by relation then child
func (s *sqliteStore) Edges(ctx context.Context) ([]ontology.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT relation, child, parent FROM taxonomy_edges ORDER BY relation, child, parent`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ontology.Edge
	for rows.Next() {
		var e ontology.Edge
		if err := rows.Scan(&e.Relation, &e.Child, &e.Parent); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ontology returns an oracle reading the stored taxonomy
func (s *sqliteStore) Ontology() ontology.Oracle {
	return s.onto
}

// --- SQLite ontology source ---

type edgeSource struct{ s *sqliteStore }

func (src *edgeSource) Parents(ctx context.Context, relation, term string) ([]string, error) {
	key := "p|" + relation + "|" + term
	if v, ok := src.s.cache.Get(key); ok {
		return append([]string(nil), v.([]string)...), nil
	}
	parents, err := src.s.loadStringColumn(ctx,
		`SELECT parent FROM taxonomy_edges WHERE relation=? AND child=? ORDER BY parent`, relation, term)
	if err != nil {
		return nil, fmt.Errorf("load %s parents of %s: %w", relation, term, err)
	}
	src.s.cache.Set(key, parents, cache.DefaultExpiration)
	return append([]string(nil), parents...), nil
}

func (src *edgeSource) Known(ctx context.Context, term string) (bool, error) {
	key := "k|" + term
	if v, ok := src.s.cache.Get(key); ok {
		return v.(bool), nil
	}
	var n int
	err := src.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM taxonomy_edges WHERE child=? OR parent=?`, term, term).Scan(&n)
	if err != nil {
		return false, err
	}
	src.s.cache.Set(key, n > 0, cache.DefaultExpiration)
	return n > 0, nil
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}
