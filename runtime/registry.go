// Package runtime handles room lifecycle, event propagation, and the
// supervision of per-room workers. It orchestrates the system without
// containing business logic or domain rules.
package runtime

import (
	"sync"

	"guardian-chat/contract"
	"guardian-chat/domain"
)

type Set map[string]struct{}

// Registry tracks the active delivery channel (sink) of every connected
// participant and the membership of every room.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // participant -> sink
	roomMembers map[domain.RoomID]Set         // room -> participants
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// GetSinksForRoom retrieves all active communication channels for a specific
// room. It performs a two-step lookup: membership first, then resolution of
// each participant into its sink, so a connection is managed in a single
// place even when a user is in several rooms. Returns nil when the room is
// unknown or empty.
func (r *Registry) GetSinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for participantID := range members {
		if sink, exists := r.sessions[participantID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a participant's active connection and assigns it to a
// room. The room entry is initialized on the fly when missing.
func (r *Registry) Subscribe(participantID string, roomID domain.RoomID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[participantID] = sink

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][participantID] = struct{}{}
}

// Unsubscribe removes a participant from the registry and its room,
// dropping empty membership sets so the map does not grow forever.
func (r *Registry) Unsubscribe(participantID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, participantID)

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
