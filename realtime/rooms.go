// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"log/slog"
	"sort"
	"sync"
)

// RoomRegistry maps a plan identifier to the set of connections currently
// subscribed to it. Membership is ephemeral: it exists only for the process
// lifetime and is rebuilt by clients re-subscribing after a reconnect.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[*Client]bool)}
}

// Subscribe adds the client to the named room.
func (r *RoomRegistry) Subscribe(c *Client, planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[planID]
	if !ok {
		room = make(map[*Client]bool)
		r.rooms[planID] = room
	}
	room[c] = true
}

// Unsubscribe removes the client from the named room.
func (r *RoomRegistry) Unsubscribe(c *Client, planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[planID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, planID)
		}
	}
}

// Disconnect removes the client from every room.
func (r *RoomRegistry) Disconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for planID, room := range r.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, planID)
		}
	}
}

// CloseRoom drops a room wholesale, implicitly unsubscribing every member.
// Called after a plan-deleted broadcast: no further updates will follow for
// that identifier.
func (r *RoomRegistry) CloseRoom(planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, planID)
}

// Count returns the current number of members in a room.
func (r *RoomRegistry) Count(planID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[planID])
}

// Broadcast delivers a message to every member of the room, best-effort.
// A member whose buffer is full simply misses the message and will
// resynchronize with a full refetch on reconnect.
func (r *RoomRegistry) Broadcast(planID string, msg Message) {
	r.mu.RLock()
	members := make([]*Client, 0, len(r.rooms[planID]))
	for c := range r.rooms[planID] {
		members = append(members, c)
	}
	r.mu.RUnlock()

	// Deliver in client-ID order so delivery sequencing is reproducible.
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	for _, c := range members {
		if !c.trySend(msg) {
			slog.Warn("dropping broadcast for slow or closing client",
				"plan_id", planID, "event", msg.Type, "client_id", c.id)
		}
	}
}
