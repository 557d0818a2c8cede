// Package mem is the in-memory vector store with optional durable snapshots.
package mem

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/bintly"

	"github.com/lexius/lexius/vectordb"
)

const snapshotName = "chunks.bin"

// StoreOption mutates a new Store.
type StoreOption func(*Store)

// WithBaseURL enables snapshot persistence under the given location.
func WithBaseURL(baseURL string) StoreOption {
	return func(s *Store) { s.baseURL = baseURL }
}

// WithLogf injects a logger.
func WithLogf(logf func(format string, args ...any)) StoreOption {
	return func(s *Store) { s.logf = logf }
}

// Store keeps records in a map and answers searches with a linear cosine
// scan. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	records   map[string]vectordb.Record
	dimension int

	fs      afs.Service
	baseURL string
	logf    func(format string, args ...any)
}

// New returns an empty store. When a base URL is configured, a previously
// persisted snapshot is loaded lazily via Load.
func New(options ...StoreOption) *Store {
	s := &Store{
		records: map[string]vectordb.Record{},
		fs:      afs.New(),
		logf:    func(string, ...any) {},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Upsert inserts or replaces records by id. The first record establishes the
// store dimension; later records must match it.
func (s *Store) Upsert(_ context.Context, records []vectordb.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if err := vectordb.CheckDimension(s.dimension, rec.Vector); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
		if s.dimension == 0 {
			s.dimension = len(rec.Vector)
		}
		s.records[rec.ID] = rec
	}
	return nil
}

// Search scans all records matching filter and returns the k nearest by
// cosine distance.
func (s *Store) Search(_ context.Context, vector []float32, k int, filter map[string]string) ([]vectordb.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	if err := vectordb.CheckDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	hits := make([]vectordb.SearchHit, 0, len(s.records))
	for _, rec := range s.records {
		if !vectordb.MatchesFilter(rec.Metadata, filter) {
			continue
		}
		hits = append(hits, vectordb.SearchHit{
			ID:       rec.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Distance: float32(1 - vectordb.Cosine(vector, rec.Vector)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Remove deletes every record whose metadata matches filter. An empty filter
// clears the store.
func (s *Store) Remove(_ context.Context, filter map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if vectordb.MatchesFilter(rec.Metadata, filter) {
			delete(s.records, id)
		}
	}
	if len(s.records) == 0 {
		s.dimension = 0
	}
	return nil
}

// Count reports the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Persist writes a snapshot of all records to the configured base URL.
func (s *Store) Persist(ctx context.Context) error {
	if s.baseURL == "" {
		return nil
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	writers := bintly.NewWriters()
	writer := writers.Get()
	defer writers.Put(writer)
	writer.Int32(int32(len(ids)))
	for _, id := range ids {
		rec := s.records[id]
		if err := rec.EncodeBinary(writer); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("encode record %s: %w", id, err)
		}
	}
	s.mu.RUnlock()

	target := url.Join(s.baseURL, snapshotName)
	if err := s.fs.Upload(ctx, target, file.DefaultFileOsMode, bytes.NewReader(writer.Bytes())); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.logf("persisted %d records to %s", len(ids), target)
	return nil
}

// Load restores a snapshot previously written by Persist. Missing snapshots
// are not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.baseURL == "" {
		return nil
	}
	source := url.Join(s.baseURL, snapshotName)
	if ok, _ := s.fs.Exists(ctx, source); !ok {
		return nil
	}
	data, err := s.fs.DownloadWithURL(ctx, source)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	readers := bintly.NewReaders()
	reader := readers.Get()
	defer readers.Put(reader)
	if err := reader.FromBytes(data); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	var count int32
	reader.Int32(&count)
	records := make(map[string]vectordb.Record, count)
	dimension := 0
	for i := int32(0); i < count; i++ {
		var rec vectordb.Record
		if err := rec.DecodeBinary(reader); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if dimension == 0 {
			dimension = len(rec.Vector)
		}
		records[rec.ID] = rec
	}
	s.mu.Lock()
	s.records = records
	s.dimension = dimension
	s.mu.Unlock()
	s.logf("loaded %d records from %s", count, source)
	return nil
}
