package classification

import "sync"

// MemoryImpl is the registered name of the in-memory backend
const MemoryImpl = "memory"

// MemoryBackend keeps classification maps in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	maps map[Identity]*Map
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{maps: make(map[Identity]*Map)}
}

// Get implements Backend
func (b *MemoryBackend) Get(id Identity) (*Map, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.maps[id]
	if !ok || m.Len() == 0 {
		return nil, ErrNoClassification
	}
	return m.Clone(), nil
}

// Set implements Backend
func (b *MemoryBackend) Set(id Identity, m *Map) error {
	if m.Len() == 0 {
		return ErrNoLabels
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.maps[id] = m.Clone()
	return nil
}

// Has implements Backend
func (b *MemoryBackend) Has(id Identity) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.maps[id].Len() > 0, nil
}

func init() {
	MustRegister(MemoryImpl, nil, func(map[string]any) (Backend, error) {
		return NewMemoryBackend(), nil
	}, PerResult())
}
