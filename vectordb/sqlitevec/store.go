// Package sqlitevec is the durable vector store backed by SQLite with the vec
// virtual-table module. When the module is unavailable, search degrades to a
// brute-force cosine scan over stored embeddings.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/lexius/lexius/db/sqliteutil"
	"github.com/lexius/lexius/vectordb"
)

const defaultDataset = "legal"

// Option mutates a new Store.
type Option func(*Store)

// WithDataset scopes the store to a dataset id.
func WithDataset(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.dataset = name
		}
	}
}

// WithLogf injects a logger.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Store) { s.logf = logf }
}

// Store persists chunks in SQLite. Vector search runs through the vec module
// when registered, otherwise through fallbackSearch.
type Store struct {
	db      *sql.DB
	dataset string
	logf    func(format string, args ...any)

	mu        sync.Mutex
	dimension int
}

// Open opens (or creates) the database at dsn, registers the vec module and
// ensures the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn required")
	}
	if err := sqliteutil.EnsureDir(dsn); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := engine.Open(sqliteutil.EnsurePragmas(dsn, true, 5000))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	if err := vec.Register(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	// Force-create a connection after module registration.
	if conn, err := db.Conn(ctx); err == nil {
		_ = conn.Close()
	}
	s, err := NewWithDB(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle. The caller owns the handle.
func NewWithDB(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, dataset: defaultDataset, logf: func(string, ...any) {}}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _vec_legal_chunks (
			dataset_id TEXT NOT NULL,
			id TEXT NOT NULL,
			content TEXT,
			meta TEXT,
			embedding BLOB,
			archived INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(dataset_id, id)
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS legal_chunks USING vec(doc_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), "no such module: vec") && strings.Contains(stmt, "VIRTUAL TABLE") {
				s.logf("vec module unavailable, search will use brute-force scan")
				continue
			}
			return err
		}
	}
	return nil
}

// Upsert inserts or replaces records by id, enforcing a constant embedding
// dimension across the dataset.
func (s *Store) Upsert(ctx context.Context, records []vectordb.Record) error {
	if len(records) == 0 {
		return nil
	}
	established, err := s.establishedDimension(ctx)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, rec := range records {
		if err := vectordb.CheckDimension(established, rec.Vector); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
		if established == 0 {
			established = len(rec.Vector)
			s.setDimension(established)
		}
		blob, err := vector.EncodeEmbedding(rec.Vector)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", rec.ID, err)
		}
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _vec_legal_chunks(dataset_id, id, content, meta, embedding, archived)
VALUES(?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
content=excluded.content,
meta=excluded.meta,
embedding=excluded.embedding,
archived=0`, s.dataset, rec.ID, rec.Text, string(metaJSON), blob); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns the k nearest records matching filter, ordered by distance
// ascending.
func (s *Store) Search(ctx context.Context, qvec []float32, k int, filter map[string]string) ([]vectordb.SearchHit, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	established, err := s.establishedDimension(ctx)
	if err != nil {
		return nil, err
	}
	if err := vectordb.CheckDimension(established, qvec); err != nil {
		return nil, err
	}
	blob, err := vector.EncodeEmbedding(qvec)
	if err != nil {
		return nil, err
	}
	// Over-fetch so metadata filtering can still fill k results.
	fetch := k * 4
	if fetch < 50 {
		fetch = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT d.id, v.match_score, d.content, d.meta
FROM legal_chunks v
JOIN _vec_legal_chunks d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
ORDER BY v.match_score DESC
LIMIT ?`, s.dataset, blob, fetch)
	if err != nil && (strings.Contains(err.Error(), "no such module: vec") ||
		strings.Contains(err.Error(), "no such table: legal_chunks") ||
		strings.Contains(err.Error(), "unable to use function MATCH")) {
		return s.fallbackSearch(ctx, qvec, k, filter)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []vectordb.SearchHit
	for rows.Next() {
		var id, content, metaJSON string
		var score float64
		if err := rows.Scan(&id, &score, &content, &metaJSON); err != nil {
			return nil, err
		}
		metadata := decodeMeta(metaJSON)
		if !vectordb.MatchesFilter(metadata, filter) {
			continue
		}
		hits = append(hits, vectordb.SearchHit{
			ID:       id,
			Text:     content,
			Metadata: metadata,
			Distance: float32(1 - score),
		})
		if k > 0 && len(hits) == k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// fallbackSearch scans every stored embedding and ranks by cosine similarity.
func (s *Store) fallbackSearch(ctx context.Context, qvec []float32, k int, filter map[string]string) ([]vectordb.SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, meta, embedding
FROM _vec_legal_chunks WHERE dataset_id = ? AND archived = 0`, s.dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []vectordb.SearchHit
	for rows.Next() {
		var id, content, metaJSON string
		var emb []byte
		if err := rows.Scan(&id, &content, &metaJSON, &emb); err != nil {
			return nil, err
		}
		stored, err := vector.DecodeEmbedding(emb)
		if err != nil {
			continue
		}
		metadata := decodeMeta(metaJSON)
		if !vectordb.MatchesFilter(metadata, filter) {
			continue
		}
		hits = append(hits, vectordb.SearchHit{
			ID:       id,
			Text:     content,
			Metadata: metadata,
			Distance: float32(1 - vectordb.Cosine(qvec, stored)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Remove deletes records whose metadata matches filter. An empty filter
// removes the whole dataset.
func (s *Store) Remove(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM _vec_legal_chunks WHERE dataset_id = ?`, s.dataset)
		s.setDimension(0)
		return err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, meta FROM _vec_legal_chunks WHERE dataset_id = ?`, s.dataset)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id, metaJSON string
		if err := rows.Scan(&id, &metaJSON); err != nil {
			rows.Close()
			return err
		}
		if vectordb.MatchesFilter(decodeMeta(metaJSON), filter) {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM _vec_legal_chunks WHERE dataset_id = ? AND id = ?`, s.dataset, id); err != nil {
			return err
		}
	}
	return nil
}

// Count reports the active record count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _vec_legal_chunks WHERE dataset_id = ? AND archived = 0`, s.dataset).Scan(&n)
	return n, err
}

// establishedDimension lazily derives the dataset dimension from any stored
// embedding.
func (s *Store) establishedDimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.dimension != 0 {
		d := s.dimension
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()
	var emb []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM _vec_legal_chunks WHERE dataset_id = ? LIMIT 1`, s.dataset).Scan(&emb)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	stored, err := vector.DecodeEmbedding(emb)
	if err != nil {
		return 0, fmt.Errorf("decode stored embedding: %w", err)
	}
	s.setDimension(len(stored))
	return len(stored), nil
}

func (s *Store) setDimension(d int) {
	s.mu.Lock()
	s.dimension = d
	s.mu.Unlock()
}

func decodeMeta(metaJSON string) map[string]string {
	if metaJSON == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(metaJSON), &out); err != nil {
		return nil
	}
	return out
}
