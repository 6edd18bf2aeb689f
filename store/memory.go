// Package store holds SessionStore implementations: an in-process value, a
// durable file (optionally sealed with a secret key) and a Redis key.
package store

import (
	"sync"

	sessionbridge "github.com/opengovern/session-bridge"
)

// Memory keeps the token in process memory. Handles sharing one *Memory see each
// other's writes immediately.
type Memory struct {
	mu    sync.Mutex
	token string
	set   bool
}

var _ sessionbridge.SessionStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.set
}

func (m *Memory) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
}
