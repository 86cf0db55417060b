package storage

import (
	"context"
	"sync"
)

// MemorySaveRepository keeps saves in process memory. Used by tests and the simulator.
type MemorySaveRepository struct {
	mu    sync.Mutex
	saves map[string][]byte
	err   error
}

func NewMemorySaveRepository() *MemorySaveRepository {
	return &MemorySaveRepository{saves: make(map[string][]byte)}
}

// FailWith makes every following call return err (nil restores normal behaviour).
func (r *MemorySaveRepository) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *MemorySaveRepository) Load(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, false, r.err
	}
	p, ok := r.saves[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), p...), true, nil
}

func (r *MemorySaveRepository) Save(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves[key] = append([]byte(nil), payload...)
	return nil
}

func (r *MemorySaveRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.saves, key)
	return nil
}

var _ SaveRepository = (*MemorySaveRepository)(nil)
