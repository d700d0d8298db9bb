package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Durable is the encrypted table store a mirror writes through to.
type Durable interface {
	Put(ctx context.Context, table, key string, plaintext []byte) error
	Delete(ctx context.Context, table, key string) error
	Scan(ctx context.Context, table string, fn func(key string, plaintext []byte) error) error
}

// Notifier is told about every committed mutation.
type Notifier interface {
	Notify(kind, op string)
}

// Logger defines the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}

// Mirror is the in-memory copy of one record table.
//
// Records are plain values, so everything returned to callers is already a
// copy. All public methods are thread-safe.
type Mirror[T Record] struct {
	kind  string
	table string

	mu      sync.RWMutex
	records map[string]T

	durable  Durable
	notifier Notifier
	logger   Logger
}

func newMirror[T Record](kind, table string, durable Durable, notifier Notifier) *Mirror[T] {
	return &Mirror[T]{
		kind:     kind,
		table:    table,
		records:  make(map[string]T),
		durable:  durable,
		notifier: notifier,
		logger:   noopLogger{},
	}
}

// Kind returns the record kind this mirror holds.
func (m *Mirror[T]) Kind() string {
	return m.kind
}

// Load replaces the mirror's contents with the decrypted table.
//
// Any row that does not decode as a record, or whose row key disagrees with
// the record it holds, fails the whole load with ErrCorruptRecord.
func (m *Mirror[T]) Load(ctx context.Context) error {
	records := make(map[string]T)
	err := m.durable.Scan(ctx, m.table, func(key string, plaintext []byte) error {
		var rec T
		if err := json.Unmarshal(plaintext, &rec); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		if rec.RecordKey() != key {
			return fmt.Errorf("%w: row key %q holds record %q", ErrCorruptRecord, key, rec.RecordKey())
		}
		records[key] = rec
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading %s mirror: %w", m.kind, err)
	}

	m.mu.Lock()
	m.records = records
	m.mu.Unlock()

	m.logger.Info("mirror loaded", "kind", m.kind, "count", len(records))
	return nil
}

// Get returns the record stored under key.
func (m *Mirror[T]) Get(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	return rec, ok
}

// GetAll returns every record, ordered by key.
func (m *Mirror[T]) GetAll() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.records[k])
	}
	return out
}

// Contains reports whether key is present.
func (m *Mirror[T]) Contains(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[key]
	return ok
}

// Len returns the number of records.
func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}

// View calls fn with the record under key while holding the read lock.
// No mutation of this mirror can commit until fn returns.
func (m *Mirror[T]) View(key string, fn func(rec T, ok bool)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	fn(rec, ok)
}

// Add inserts rec. It returns ErrConflict, writing nothing, when the key is
// already present.
func (m *Mirror[T]) Add(ctx context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.RecordKey()
	if _, exists := m.records[key]; exists {
		return ErrConflict
	}
	if err := m.write(ctx, rec); err != nil {
		return err
	}
	m.records[key] = rec
	m.commit(OpAdd, key)
	return nil
}

// Edit replaces an existing record. It returns ErrGone, writing nothing,
// when the key is absent. onCommit, if non-nil, receives the previous record
// after the write has committed and before the lock is released.
func (m *Mirror[T]) Edit(ctx context.Context, rec T, onCommit func(old T)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.RecordKey()
	old, exists := m.records[key]
	if !exists {
		return ErrGone
	}
	if err := m.write(ctx, rec); err != nil {
		return err
	}
	m.records[key] = rec
	if onCommit != nil {
		onCommit(old)
	}
	m.commit(OpEdit, key)
	return nil
}

// Put inserts or replaces rec. Used for the singleton kinds.
func (m *Mirror[T]) Put(ctx context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.RecordKey()
	if err := m.write(ctx, rec); err != nil {
		return err
	}
	m.records[key] = rec
	m.commit(OpPut, key)
	return nil
}

// PutIfEmpty stores rec only when the mirror holds no records and reports
// whether it did. The emptiness check and the write happen under one lock.
func (m *Mirror[T]) PutIfEmpty(ctx context.Context, rec T) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) > 0 {
		return false, nil
	}
	key := rec.RecordKey()
	if err := m.write(ctx, rec); err != nil {
		return false, err
	}
	m.records[key] = rec
	m.commit(OpAdd, key)
	return true, nil
}

// Remove deletes the record under key. It returns ErrGone when the key is
// absent. onCommit behaves as for Edit.
func (m *Mirror[T]) Remove(ctx context.Context, key string, onCommit func(old T)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.records[key]
	if !exists {
		return ErrGone
	}
	if err := m.durable.Delete(ctx, m.table, key); err != nil {
		m.logger.Error("durable delete failed", "kind", m.kind, "key", key, "error", err)
		return fmt.Errorf("removing %s %q: %w", m.kind, key, err)
	}
	delete(m.records, key)
	if onCommit != nil {
		onCommit(old)
	}
	m.commit(OpRemove, key)
	return nil
}

// write serializes rec and stores it. Caller holds m.mu.
func (m *Mirror[T]) write(ctx context.Context, rec T) error {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", m.kind, err)
	}
	if err := m.durable.Put(ctx, m.table, rec.RecordKey(), plaintext); err != nil {
		m.logger.Error("durable write failed", "kind", m.kind, "key", rec.RecordKey(), "error", err)
		return fmt.Errorf("storing %s %q: %w", m.kind, rec.RecordKey(), err)
	}
	return nil
}

// commit logs and signals a mutation. Caller holds m.mu.
func (m *Mirror[T]) commit(op, key string) {
	m.logger.Debug("record committed", "kind", m.kind, "op", op, "key", key)
	m.notifier.Notify(m.kind, op)
}
