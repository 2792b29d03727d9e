package store

import (
	"context"
	"sync"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// MemoryStore keeps a snapshot in process. It is used by tests and by
// sessions opened without a backing file.
type MemoryStore struct {
	mu       sync.Mutex
	snap     *model.Snapshot
	saves    int
	failNext error
	watchers map[int]func()
	nextID   int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{watchers: make(map[int]func())}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(ctx context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return model.Snapshot{}, loadErr("memory", err)
	}
	if m.snap == nil {
		return model.Snapshot{}, loadErr("memory", ErrNoSnapshot)
	}
	return m.snap.Clone(), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(ctx context.Context, s model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return saveErr("memory", err)
	}
	c := s.Clone()
	m.snap = &c
	m.saves++
	return nil
}

// Saves counts successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailNext makes the next Load or Save fail with err.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

func (m *MemoryStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// Replace stores s as if another process wrote it and notifies watchers.
func (m *MemoryStore) Replace(s model.Snapshot) {
	m.mu.Lock()
	c := s.Clone()
	m.snap = &c
	fns := make([]func(), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Watch registers fn until ctx is done.
func (m *MemoryStore) Watch(ctx context.Context, fn func()) error {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}
