package seekwell

import (
	"sync"
)

// Releasable is anything holding Arrow memory, such as a DataFrame or a
// series.
//
// Prefer defer for single frames:
//
//	df, err := seekwell.ReadFile("data.csv")
//	if err != nil {
//		return err
//	}
//	defer df.Release()
type Releasable interface {
	Release()
}

// MemoryManager collects intermediate results and releases them together.
// It is safe for concurrent use.
//
// Example:
//
//	err := seekwell.WithMemoryManager(func(m *seekwell.MemoryManager) error {
//		adelie, err := df.Where("species == Adelie")
//		if err != nil {
//			return err
//		}
//		m.Track(adelie)
//		...
//	})
type MemoryManager struct {
	mu        sync.Mutex
	resources []Releasable
}

// NewMemoryManager creates an empty manager
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{}
}

// Track adds a resource to release later; nil is ignored
func (m *MemoryManager) Track(resource Releasable) {
	if resource == nil {
		return
	}
	m.mu.Lock()
	m.resources = append(m.resources, resource)
	m.mu.Unlock()
}

// Count returns the number of tracked resources
func (m *MemoryManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resources)
}

// ReleaseAll releases every tracked resource, most recent first
func (m *MemoryManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.resources) - 1; i >= 0; i-- {
		m.resources[i].Release()
	}
	m.resources = m.resources[:0]
}

// WithMemoryManager runs fn with a manager whose resources are released
// when fn returns
func WithMemoryManager(fn func(*MemoryManager) error) error {
	m := NewMemoryManager()
	defer m.ReleaseAll()
	return fn(m)
}
