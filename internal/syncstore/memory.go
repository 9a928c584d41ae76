package syncstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps everything in process memory. It is the default for
// single-instance deployments and for tests.
type MemoryBackend struct {
	mu      sync.Mutex
	current *StoredSnapshot
	backups []StoredSnapshot
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) (StoredSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return StoredSnapshot{}, false, nil
	}
	return *m.current, true, nil
}

func (m *MemoryBackend) Save(ctx context.Context, snap StoredSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &snap
	return nil
}

func (m *MemoryBackend) PushBackup(ctx context.Context, snap StoredSnapshot, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups = append([]StoredSnapshot{snap}, m.backups...)
	if limit > 0 && len(m.backups) > limit {
		m.backups = m.backups[:limit]
	}
	return nil
}

func (m *MemoryBackend) Backups(ctx context.Context) ([]StoredSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StoredSnapshot, len(m.backups))
	copy(out, m.backups)
	return out, nil
}
