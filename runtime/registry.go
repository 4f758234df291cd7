// Package runtime handles command dispatch, event propagation, and room
// lifecycle. It orchestrates the system without containing domain rules.
package runtime

import (
	"sync"

	"studymate/contract"
	"studymate/domain"
)

type Set map[string]struct{}

// Registry tracks live connection sinks and room membership. It is the only
// cross-cutting shared resource; all methods are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // conn -> sink
	roomMembers map[domain.RoomID]Set         // room -> conns
	connRooms   map[string]domain.RoomID      // conn -> room
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[domain.RoomID]Set),
		connRooms:   make(map[string]domain.RoomID),
	}
}

// GetSinksForRoom retrieves all active sinks for a room. It performs a
// two-step lookup so that a connection's sink is managed in a single place.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connID := range members {
		if sink, exists := r.sessions[connID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// GetSink resolves a single connection's sink, for targeted delivery.
func (r *Registry) GetSink(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[connID]
	return sink, ok
}

// Subscribe registers a connection's sink and assigns it to a room. If the
// room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(connID string, roomID domain.RoomID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = sink
	r.connRooms[connID] = roomID

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][connID] = struct{}{}
}

// Unsubscribe removes a connection and reports the room it was in, so the
// caller can dispatch the leave. No empty membership sets are left behind.
func (r *Registry) Unsubscribe(connID string) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.connRooms[connID]
	delete(r.sessions, connID)
	delete(r.connRooms, connID)
	if !ok {
		return "", false
	}

	if members, exists := r.roomMembers[roomID]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	return roomID, true
}

// RoomOf reports which room a connection joined.
func (r *Registry) RoomOf(connID string) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.connRooms[connID]
	return roomID, ok
}

// Stats reports the current number of rooms and connections, for the
// health worker.
func (r *Registry) Stats() (rooms, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roomMembers), len(r.sessions)
}
