// Package onboarding tracks chats that were asked for the learner's name and
// have not answered yet.
package onboarding

import (
	"context"
	"sync"
	"time"
)

// NameTimeout is how long an unanswered name prompt stays open.
const NameTimeout = 10 * time.Minute

type PendingName struct {
	ChatID    int64
	ExpiresAt time.Time
}

type Manager struct {
	mu      sync.Mutex
	pending map[int64]PendingName
	now     func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		pending: make(map[int64]PendingName),
		now:     now,
	}
}

// Start opens a name prompt for userID in chatID, replacing an older one.
func (m *Manager) Start(userID, chatID int64, now time.Time, timeout time.Duration) {
	if m == nil || userID == 0 || chatID == 0 {
		return
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[userID] = PendingName{
		ChatID:    chatID,
		ExpiresAt: now.Add(timeout),
	}
}

// Awaiting reports whether userID owes a name in chatID.
func (m *Manager) Awaiting(userID, chatID int64, now time.Time) bool {
	if m == nil || userID == 0 || chatID == 0 {
		return false
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pending[userID]
	if !ok || entry.ChatID != chatID {
		return false
	}
	if !now.Before(entry.ExpiresAt) {
		delete(m.pending, userID)
		return false
	}
	return true
}

// Consume closes the prompt of userID. It reports false when there was no
// open prompt for chatID or it had expired.
func (m *Manager) Consume(userID, chatID int64, now time.Time) bool {
	if !m.Awaiting(userID, chatID, now) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
	return true
}

func (m *Manager) SweepExpired(now time.Time) {
	if m == nil {
		return
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, entry := range m.pending {
		if !now.Before(entry.ExpiresAt) {
			delete(m.pending, userID)
		}
	}
}

// StartSweeper drops expired prompts every minute until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context) error {
	if m == nil {
		return nil
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.SweepExpired(m.now())
		}
	}
}
