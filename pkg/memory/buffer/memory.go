package buffer

import (
	"sync"
	"time"
)

// Memories is the append-only transcript of one conversation with the decision model.
type Memories struct {
	mu    sync.RWMutex
	Items []Memory `json:"memories"`
}

type Memory struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Time     time.Time `json:"time"`
}

func (m *Memories) Add(m2 Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m2.Time.IsZero() {
		m2.Time = time.Now()
	}
	m.Items = append(m.Items, m2)
}

func (m *Memories) Snapshot() []Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Memory, len(m.Items))
	copy(out, m.Items)
	return out
}

func (m *Memories) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Items)
}

// Clear starts a new conversation.
func (m *Memories) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items = nil
}
