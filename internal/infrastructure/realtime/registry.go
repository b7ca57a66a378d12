package realtime

import (
	"log/slog"
	"sync"
)

// Endpoint is a live, addressable connection handle.
type Endpoint interface {
	SessionID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Registry tracks which live connections belong to which user identity.
// A room is the set of connections joined under one identity; an identity
// may hold several connections (one per device or tab).
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]Endpoint            // sessionID -> endpoint
	rooms        map[string]map[string]Endpoint // identity -> sessionID -> endpoint
	sessionRooms map[string]map[string]struct{} // sessionID -> set of identities
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]Endpoint),
		rooms:        make(map[string]map[string]Endpoint),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach starts tracking ep. It is a member of no room until it joins one.
func (r *Registry) Attach(ep Endpoint) {
	r.mu.Lock()
	r.sessions[ep.SessionID()] = ep
	if r.sessionRooms[ep.SessionID()] == nil {
		r.sessionRooms[ep.SessionID()] = make(map[string]struct{})
	}
	r.mu.Unlock()
}

// Detach removes ep from every room it joined.
func (r *Registry) Detach(ep Endpoint) {
	r.mu.Lock()
	r.detachLocked(ep.SessionID())
	r.mu.Unlock()
}

// Join registers ep under identity. Joining again is a no-op. It reports
// false when identity is empty or ep is not attached.
func (r *Registry) Join(identity string, ep Endpoint) bool {
	if identity == "" {
		return false
	}
	id := ep.SessionID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}

	room := r.rooms[identity]
	if room == nil {
		room = make(map[string]Endpoint)
		r.rooms[identity] = room
	}
	room[id] = ep

	memberships := r.sessionRooms[id]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.sessionRooms[id] = memberships
	}
	memberships[identity] = struct{}{}
	return true
}

// Deliver sends payload to every connection joined under identity and
// returns how many sends succeeded and failed. An empty room drops the
// payload. Send errors are logged, never returned.
func (r *Registry) Deliver(identity string, payload []byte) (delivered, failed int) {
	r.mu.RLock()
	room := r.rooms[identity]
	members := make([]Endpoint, 0, len(room))
	for _, ep := range room {
		members = append(members, ep)
	}
	r.mu.RUnlock()

	for _, ep := range members {
		if err := ep.Send(payload); err != nil {
			failed++
			slog.Debug("presence delivery failed", "identity", identity, "session", ep.SessionID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered, failed
}

// Members returns the number of connections joined under identity.
func (r *Registry) Members(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[identity])
}

// Identities returns the rooms ep has joined.
func (r *Registry) Identities(ep Endpoint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessionRooms[ep.SessionID()]))
	for identity := range r.sessionRooms[ep.SessionID()] {
		out = append(out, identity)
	}
	return out
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]Endpoint, 0, len(r.sessions))
	for _, ep := range r.sessions {
		sessions = append(sessions, ep)
	}
	r.sessions = make(map[string]Endpoint)
	r.rooms = make(map[string]map[string]Endpoint)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, ep := range sessions {
		ep.Close(1001, "server shutdown")
	}
}

func (r *Registry) detachLocked(sessionID string) {
	delete(r.sessions, sessionID)
	for identity := range r.sessionRooms[sessionID] {
		r.leaveLocked(identity, sessionID)
	}
	delete(r.sessionRooms, sessionID)
}

func (r *Registry) leaveLocked(identity string, sessionID string) {
	room := r.rooms[identity]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, identity)
	}
	if memberships, ok := r.sessionRooms[sessionID]; ok {
		delete(memberships, identity)
	}
}
