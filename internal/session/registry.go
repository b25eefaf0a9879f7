package session

import "sync"

// Conn abstracts the underlying transport connection enough for the
// registry and the alarm scheduler to reach it without importing the
// websocket package.
type Conn interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
}

// Entry bundles a session with its connection and the mutex guarding writes
// to that connection. Gorilla's websocket.Conn forbids concurrent writers,
// so every goroutine that sends to a session's socket must hold SendMu.
type Entry struct {
	Session *Session
	Conn    Conn
	SendMu  *sync.Mutex
}

// Registry is the process-wide session/connection/send-mutex map. It is
// owned by the transport handler: only the handler's accept/close paths
// mutate it. Other components (the alarm scheduler, HTTP introspection
// routes) only read it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a session under a fresh send mutex.
func (r *Registry) Register(s *Session, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = &Entry{Session: s, Conn: conn, SendMu: &sync.Mutex{}}
}

// Unregister drops a session. Safe to call more than once.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns the entry for id, if still registered.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// All returns a snapshot of every currently registered entry, safe to
// range over after the call returns even if sessions connect or disconnect
// concurrently.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Count reports the number of currently registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
