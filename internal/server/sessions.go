package server

import (
	"sync"
	"time"

	"github.com/gujimy/KVideo/pkg/feed"
)

// session binds one feed engine to one consumer.
type session struct {
	id       string
	viewerID string
	engine   *feed.Engine
	lastSeen time.Time
}

// sessionManager tracks live feed sessions and expires idle ones.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	idleTTL  time.Duration
}

func newSessionManager(idleTTL time.Duration) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*session),
		idleTTL:  idleTTL,
	}
}

func (m *sessionManager) add(sess *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.lastSeen = time.Now()
	m.sessions[sess.id] = sess
	sessionsCreated.Inc()
	sessionsActive.Set(float64(len(m.sessions)))
}

// get returns the session and refreshes its idle deadline.
func (m *sessionManager) get(id string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if ok {
		sess.lastSeen = time.Now()
	}
	return sess, ok
}

func (m *sessionManager) remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	sessionsActive.Set(float64(len(m.sessions)))
	return true
}

// sweep drops sessions idle past the TTL and returns how many went.
func (m *sessionManager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	expired := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) >= m.idleTTL {
			delete(m.sessions, id)
			expired++
		}
	}
	if expired > 0 {
		sessionsExpired.Add(float64(expired))
		sessionsActive.Set(float64(len(m.sessions)))
	}
	return expired
}

func (m *sessionManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
