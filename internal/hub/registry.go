// Package hub implements the session coordination core: the connection
// registry, the room directory, outbound dispatch, telemetry subscriptions,
// chunked file transfers, and the coordinator that ties them together.
package hub

import "sync"

// UnknownUser is returned by NameOf for connections that never registered or
// have already been removed.
const UnknownUser = "Unknown"

// RegistryEntry pairs a connection id with its display name.
type RegistryEntry struct {
	ConnectionID string
	UserName     string
}

// Registry tracks live connections and their display names. All methods are
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Add registers a connection under the given display name. Adding an id that
// is already present overwrites the previous name rather than duplicating the
// entry.
func (r *Registry) Add(connectionID, userName string) {
	r.mu.Lock()
	r.names[connectionID] = userName
	r.mu.Unlock()
}

// Remove deletes a connection and reports the display name it had, if any.
func (r *Registry) Remove(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.names[connectionID]
	if ok {
		delete(r.names, connectionID)
	}
	return name, ok
}

// NameOf resolves a connection id to its display name, or UnknownUser when
// the id is not registered.
func (r *Registry) NameOf(connectionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.names[connectionID]; ok {
		return name
	}
	return UnknownUser
}

// FindByName resolves a display name to a connection id. The lookup is a
// linear scan: names are not indexed, which is fine at chat-room cardinality
// but a known limit if the registry ever holds thousands of connections.
func (r *Registry) FindByName(userName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, name := range r.names {
		if name == userName {
			return id, true
		}
	}
	return "", false
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]RegistryEntry, 0, len(r.names))
	for id, name := range r.names {
		entries = append(entries, RegistryEntry{ConnectionID: id, UserName: name})
	}
	return entries
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
