// Package storage содержит долговременное хранилище настроек клиента.
package storage

import (
	"context"
	"sync"
)

// Ключи, сохраняемые клиентом.
const (
	KeyTheme    = "theme"
	KeyDarkMode = "darkMode"
	KeyToken    = "token"
)

// Store описывает хранилище ключ-значение, переживающее перезапуск процесса.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// MemoryStore хранит значения в памяти процесса.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get возвращает значение по ключу.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set сохраняет значение по ключу.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Close ничего не делает.
func (m *MemoryStore) Close() error { return nil }
