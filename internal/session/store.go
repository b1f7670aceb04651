// Package session keeps per-session values between requests and serializes
// writers of the same session.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no value is stored for the session.
var ErrNotFound = errors.New("session not found")

// Store is key-value storage for session scoped values.
type Store[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Set(ctx context.Context, id string, value *T) error
	Clear(ctx context.Context, id string) error
}

// Memory is an in-process Store. Values are copied on Get and Set.
type Memory[T any] struct {
	mu     sync.RWMutex
	values map[string]T
	clone  func(*T) *T
}

// NewMemory creates an in-process store. clone must deep-copy a value; it may
// be nil for values without reference fields.
func NewMemory[T any](clone func(*T) *T) *Memory[T] {
	if clone == nil {
		clone = func(v *T) *T {
			c := *v
			return &c
		}
	}
	return &Memory[T]{values: make(map[string]T), clone: clone}
}

func (m *Memory[T]) Get(_ context.Context, id string) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clone(&v), nil
}

func (m *Memory[T]) Set(_ context.Context, id string, value *T) error {
	if value == nil {
		return errors.New("session value must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = *m.clone(value)
	return nil
}

func (m *Memory[T]) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
