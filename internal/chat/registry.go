package chat

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registry is the concurrency-safe directory of active sessions keyed by
// username. It is the only state shared between transport goroutines, so all
// mutations go through one mutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Register binds name to peer. Empty or whitespace-only names are rejected
// with ErrInvalidUsername, already-taken names with ErrUsernameTaken. Under
// concurrent registration of the same name exactly one caller succeeds.
func (r *Registry) Register(name string, peer Peer) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[name]; exists {
		return ErrUsernameTaken
	}
	r.sessions[name] = &Session{Username: name, Peer: peer}
	connectedSessions.Set(float64(len(r.sessions)))

	r.logger.Info("user registered", "username", name, "addr", peer.Addr())
	return nil
}

// Lookup returns the session registered under name, if any.
func (r *Registry) Lookup(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[name]
	return sess, ok
}

// Unregister removes the session registered under name. Removing an absent
// name is a no-op, so teardown is idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; !ok {
		return
	}
	delete(r.sessions, name)
	connectedSessions.Set(float64(len(r.sessions)))

	r.logger.Info("user unregistered", "username", name)
}

// Usernames returns the registered names in sorted order. Map iteration
// order is random, so listing is sorted to keep /users output deterministic.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.sessions)
	sort.Strings(names)
	return names
}

// Sessions returns a snapshot of all registered sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
