package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
)

type memoryDoc struct {
	data    map[string]any
	version uint64
}

// MemoryStore keeps documents in process. It is used for tests and single node dev runs.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]*memoryDoc
	versions map[string]uint64 // survives deletes so stale transaction reads are detected
	clock    clockwork.Clock
	hub      *hub

	// beforeCommit is called between running a transaction function and committing it.
	beforeCommit func()
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		docs:     make(map[string]*memoryDoc),
		versions: make(map[string]uint64),
		clock:    clock,
		hub:      newHub(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := Split(path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(path), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := Split(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.writeLocked(path, data, applySetOptions(opts))
	s.mu.Unlock()

	s.hub.publish(path)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := Split(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.deleteLocked(path)
	s.mu.Unlock()

	s.hub.publish(path)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validCollection(q.Collection) {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}

	s.mu.RLock()
	var out []*Snapshot
	for path, doc := range s.docs {
		coll, _, err := Split(path)
		if err != nil || coll != q.Collection || !matches(doc.data, q.Where) {
			continue
		}
		out = append(out, s.snapshotLocked(path))
	}
	s.mu.RUnlock()

	return orderAndLimit(out, q), nil
}

func (s *MemoryStore) Watch(ctx context.Context, q Query) (<-chan []*Snapshot, error) {
	if !validCollection(q.Collection) {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}
	return s.hub.watch(ctx, q, s.Query)
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &memoryTx{store: s, reads: make(map[string]uint64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit()
		}

		committed, paths := s.commit(tx)
		if committed {
			s.hub.publish(paths...)
			return nil
		}
	}
	return ErrConflict
}

func (s *MemoryStore) Close() error {
	return nil
}

// commit applies tx's writes if nothing it read has changed since.
func (s *MemoryStore) commit(tx *memoryTx) (bool, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, version := range tx.reads {
		if s.versions[path] != version {
			return false, nil
		}
	}

	paths := make([]string, 0, len(tx.writes))
	for _, w := range tx.writes {
		if w.delete {
			s.deleteLocked(w.path)
		} else {
			s.writeLocked(w.path, w.data, w.cfg)
		}
		paths = append(paths, w.path)
	}
	return true, paths
}

func (s *MemoryStore) snapshotLocked(path string) *Snapshot {
	_, id, _ := Split(path)
	doc, ok := s.docs[path]
	if !ok {
		return &Snapshot{Path: path, ID: id}
	}
	return &Snapshot{Path: path, ID: id, Exists: true, Data: normalizeMap(doc.data, s.clock.Now())}
}

func (s *MemoryStore) writeLocked(path string, data map[string]any, cfg setConfig) {
	incoming := normalizeMap(data, s.clock.Now())
	s.versions[path]++
	if existing, ok := s.docs[path]; ok && cfg.merge {
		existing.data = mergeInto(existing.data, incoming)
		existing.version = s.versions[path]
		return
	}
	s.docs[path] = &memoryDoc{data: incoming, version: s.versions[path]}
}

func (s *MemoryStore) deleteLocked(path string) {
	if _, ok := s.docs[path]; !ok {
		return
	}
	delete(s.docs, path)
	s.versions[path]++
}

type pendingWrite struct {
	path   string
	data   map[string]any
	cfg    setConfig
	delete bool
}

type memoryTx struct {
	store  *MemoryStore
	reads  map[string]uint64
	writes []pendingWrite
}

func (tx *memoryTx) Get(path string) (*Snapshot, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	tx.reads[path] = tx.store.versions[path]
	return tx.store.snapshotLocked(path), nil
}

func (tx *memoryTx) Set(path string, data map[string]any, opts ...SetOption) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, data: data, cfg: applySetOptions(opts)})
}

func (tx *memoryTx) Delete(path string) {
	tx.writes = coalesce(tx.writes, pendingWrite{path: path, delete: true})
}

// coalesce appends w, folding it into an earlier write to the same path.
func coalesce(writes []pendingWrite, w pendingWrite) []pendingWrite {
	for i, prev := range writes {
		if prev.path != w.path {
			continue
		}
		switch {
		case w.cfg.merge && prev.delete:
			w.cfg.merge = false
		case w.cfg.merge:
			w = pendingWrite{path: w.path, data: mergeInto(prev.data, w.data), cfg: prev.cfg}
		}
		writes[i] = w
		return writes
	}
	return append(writes, w)
}
