package relay

import (
	"errors"
	"sort"
	"sync"

	"chat-relay-service/internal/models"
)

// ErrDuplicateIdentity is returned when an identity already has a live
// session. The second connection is rejected; admitting it would orphan the
// first connection's room memberships.
var ErrDuplicateIdentity = errors.New("identity already has a live session")

// Session binds a connection to its resolved identity and current room
// memberships. rooms is only touched while holding the registry lock.
type Session struct {
	Identity Identity
	client   *Client
	rooms    map[string]struct{}
}

// Rooms returns a copy of the room ids this session currently occupies.
func (s *Session) Rooms() []string {
	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Registry is the single guarded structure holding every live session and the
// room membership table. One mutex covers both so that joins, leaves, and the
// snapshots taken for fan-out are linearizable. The lock is never held across
// an outbound send; mutating calls hand back member snapshots and the caller
// delivers outside the lock.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session            // connection id -> session
	identities map[string]string              // identity id -> connection id
	rooms      map[string]map[string]*Session // room id -> connection id -> session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		identities: make(map[string]string),
		rooms:      make(map[string]map[string]*Session),
	}
}

// Admit creates a session with no room memberships. It fails with
// ErrDuplicateIdentity when the identity id is already admitted.
func (r *Registry) Admit(client *Client) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.identities[client.identity.ID]; live {
		return nil, ErrDuplicateIdentity
	}

	session := &Session{
		Identity: client.identity,
		client:   client,
		rooms:    make(map[string]struct{}),
	}
	r.sessions[client.id] = session
	r.identities[client.identity.ID] = client.id
	return session, nil
}

// Lookup returns the session for a connection id, if admitted.
func (r *Registry) Lookup(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[connID]
	return session, ok
}

// Join adds the connection to the room, creating the room on first join.
// It returns a snapshot of every member client (joiner included) for the
// joined notice and the participant list for the room_joined reply.
func (r *Registry) Join(connID, room string) (members []*Client, participants []models.Participant, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, admitted := r.sessions[connID]
	if !admitted {
		return nil, nil, false
	}

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]*Session)
	}
	r.rooms[room][connID] = session
	session.rooms[room] = struct{}{}

	return r.memberSnapshot(room), r.participantSnapshot(room), true
}

// Leave removes the connection from the room. The room is deleted outright
// when its last member leaves. remaining is the snapshot to notify; left is
// false when the connection was not a member (nothing to do).
func (r *Registry) Leave(connID, room string) (remaining []*Client, left bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evict(connID, room)
}

// evict performs the shared leave/disconnect removal. Callers hold r.mu.
func (r *Registry) evict(connID, room string) (remaining []*Client, left bool) {
	session, admitted := r.sessions[connID]
	members := r.rooms[room]
	if !admitted || members == nil {
		return nil, false
	}
	if _, member := members[connID]; !member {
		return nil, false
	}

	delete(members, connID)
	delete(session.rooms, room)

	if len(members) == 0 {
		delete(r.rooms, room)
		return nil, true
	}
	return r.memberSnapshot(room), true
}

// ChatTargets returns the member snapshot for a chat broadcast, or ok=false
// when the sender is not currently a member of the room.
func (r *Registry) ChatTargets(connID, room string) (members []*Client, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, admitted := r.sessions[connID]
	if !admitted {
		return nil, false
	}
	if _, member := session.rooms[room]; !member {
		return nil, false
	}
	return r.memberSnapshot(room), true
}

// RoomEviction records one room a disconnecting session was removed from and
// the members that remain to be notified.
type RoomEviction struct {
	Room      string
	Remaining []*Client
}

// Disconnect evicts the connection from every room it occupied and deletes
// the session, as one non-interleaved unit. Evictions are reported in room
// order so the caller can emit left notices after the lock is released.
func (r *Registry) Disconnect(connID string) []RoomEviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, admitted := r.sessions[connID]
	if !admitted {
		return nil
	}

	evictions := make([]RoomEviction, 0, len(session.rooms))
	for _, room := range session.Rooms() {
		remaining, left := r.evict(connID, room)
		if left && len(remaining) > 0 {
			evictions = append(evictions, RoomEviction{Room: room, Remaining: remaining})
		}
	}

	delete(r.identities, session.Identity.ID)
	delete(r.sessions, connID)
	return evictions
}

// Rooms lists all currently non-empty room ids, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Participants lists the members of one room. Unknown rooms yield an empty
// list, not an error.
func (r *Registry) Participants(room string) []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participantSnapshot(room)
}

// Clients snapshots every admitted client, used to tear down connections at
// shutdown.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.sessions))
	for _, session := range r.sessions {
		clients = append(clients, session.client)
	}
	return clients
}

func (r *Registry) memberSnapshot(room string) []*Client {
	members := make([]*Client, 0, len(r.rooms[room]))
	for _, session := range r.rooms[room] {
		members = append(members, session.client)
	}
	return members
}

func (r *Registry) participantSnapshot(room string) []models.Participant {
	participants := make([]models.Participant, 0, len(r.rooms[room]))
	for _, session := range r.rooms[room] {
		participants = append(participants, models.Participant{
			UserID:   session.Identity.ID,
			Username: session.Identity.DisplayName,
		})
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].UserID < participants[j].UserID
	})
	return participants
}
