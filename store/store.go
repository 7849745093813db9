package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jacentio/lepidoptera/internal/metrics"
	"github.com/jacentio/lepidoptera/query"
)

// Store provides append-only record operations over the three collections.
type Store struct {
	backend Backend
	config  Config
	ids     IDGenerator
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu serializes writes; reads take the shared side.
	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithMetrics records operation counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Store over backend.
func New(backend Backend, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		backend: backend,
		config:  config,
		ids:     UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if config.cacheEnabled() {
		s.cache = cache.New(config.CacheTTL, config.CacheCleanupInterval)
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.backend.Close()
}

// Create assigns a fresh id to fields, appends the record to collection and
// returns the stored record. Any "id" in fields is overwritten.
func (s *Store) Create(ctx context.Context, collection string, fields Record) (Record, error) {
	if !IsCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	record := make(Record, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}

	var err error
	for attempt := 1; attempt <= s.config.MaxIDAttempts; attempt++ {
		record[FieldID] = s.ids.NewID()
		err = s.backend.Append(ctx, collection, record)
		if !errors.Is(err, ErrAlreadyExists) {
			break
		}
		s.logger.Warn("generated id already taken, retrying",
			"collection", collection,
			"id", record.ID(),
			"attempt", attempt,
		)
	}
	if err != nil {
		s.metrics.Observe("create", collection, metrics.OutcomeError, started)
		return nil, fmt.Errorf("append to %s: %w", collection, err)
	}

	s.remember(collection, record)
	s.metrics.Observe("create", collection, metrics.OutcomeOK, started)
	return record.Clone(), nil
}

// Import appends record as-is, keeping its id. It is used to seed a backend
// from an exported document.
func (s *Store) Import(ctx context.Context, collection string, record Record) error {
	if !IsCollection(collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if record.ID() == "" {
		return ErrMissingID
	}
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Append(ctx, collection, record.Clone()); err != nil {
		s.metrics.Observe("import", collection, metrics.OutcomeError, started)
		return fmt.Errorf("import into %s: %w", collection, err)
	}
	s.remember(collection, record)
	s.metrics.Observe("import", collection, metrics.OutcomeOK, started)
	return nil
}

// FindByID returns the first record in collection whose id matches, or
// ErrNotFound.
func (s *Store) FindByID(ctx context.Context, collection, id string) (Record, error) {
	if !IsCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	started := time.Now()

	if s.cache != nil {
		cached, ok := s.cache.Get(cacheKey(collection, id))
		s.metrics.CacheLookup(collection, ok)
		if ok {
			s.metrics.Observe("get", collection, metrics.OutcomeOK, started)
			return cached.(Record).Clone(), nil
		}
	}

	s.mu.RLock()
	record, err := s.lookup(ctx, collection, id)
	s.mu.RUnlock()

	switch {
	case errors.Is(err, ErrNotFound):
		s.metrics.Observe("get", collection, metrics.OutcomeNotFound, started)
		return nil, err
	case err != nil:
		s.metrics.Observe("get", collection, metrics.OutcomeError, started)
		return nil, fmt.Errorf("find %s %q: %w", collection, id, err)
	}

	s.remember(collection, record)
	s.metrics.Observe("get", collection, metrics.OutcomeOK, started)
	return record.Clone(), nil
}

// FindAll returns every record in collection matching pred, in insertion
// order. A nil pred matches everything. The result is never nil.
func (s *Store) FindAll(ctx context.Context, collection string, pred query.Predicate) ([]Record, error) {
	if !IsCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	started := time.Now()

	s.mu.RLock()
	records, err := s.backend.Scan(ctx, collection)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.Observe("find", collection, metrics.OutcomeError, started)
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}

	matched := query.Filter(records, pred)
	for i, r := range matched {
		matched[i] = r.Clone()
	}
	s.metrics.Observe("find", collection, metrics.OutcomeOK, started)
	return matched, nil
}

// lookup finds a record by id through the backend. Callers hold s.mu.
func (s *Store) lookup(ctx context.Context, collection, id string) (Record, error) {
	if g, ok := s.backend.(Getter); ok {
		return g.Get(ctx, collection, id)
	}
	records, err := s.backend.Scan(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) remember(collection string, record Record) {
	if s.cache == nil {
		return
	}
	s.cache.Set(cacheKey(collection, record.ID()), record.Clone(), cache.DefaultExpiration)
}

func cacheKey(collection, id string) string {
	return collection + "#" + id
}
