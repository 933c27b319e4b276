// Package convo keeps per-meeting conversation history in memory and bounds
// its growth. The persistent copy lives in the chat store; this manager only
// feeds the prompt window.
package convo

import (
	"sync"

	"github.com/fridayhq/friday/models"
)

const (
	// MaxHistory is the number of exchanges kept per conversation. Retention
	// is enforced at twice this value in turns, trimming the oldest first.
	MaxHistory = 10

	// PromptWindow is how many recent turns accompany a generation request.
	PromptWindow = 6
)

// Manager holds bounded conversation histories keyed by meeting id.
type Manager struct {
	mu       sync.Mutex
	history  map[string][]models.Turn
	maxTurns int
}

func NewManager() *Manager {
	return &Manager{history: make(map[string][]models.Turn), maxTurns: 2 * MaxHistory}
}

// Append records a turn and trims the oldest turns past the retention bound.
func (m *Manager) Append(meetingID string, turn models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := append(m.history[meetingID], turn)
	if len(h) > m.maxTurns {
		h = h[len(h)-m.maxTurns:]
	}
	m.history[meetingID] = h
}

// Window returns up to PromptWindow most recent turns, oldest first. The
// returned slice is a copy.
func (m *Manager) Window(meetingID string) []models.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[meetingID]
	if len(h) > PromptWindow {
		h = h[len(h)-PromptWindow:]
	}
	out := make([]models.Turn, len(h))
	copy(out, h)
	return out
}

// Len reports the number of retained turns for a conversation.
func (m *Manager) Len(meetingID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[meetingID])
}

// Clear forgets a conversation.
func (m *Manager) Clear(meetingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, meetingID)
}

// Rehydrate replaces a conversation with turns loaded from the store,
// applying the same retention bound.
func (m *Manager) Rehydrate(meetingID string, turns []models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	h := make([]models.Turn, len(turns))
	copy(h, turns)
	m.history[meetingID] = h
}
