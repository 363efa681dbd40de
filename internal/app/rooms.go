package app

import (
	"sort"
	"sync"

	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberSet map[core.SessionID]*core.Session

// RoomTracker keeps room membership per session, independent of the
// registry. Rooms exist only while they have members.
type RoomTracker struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]memberSet
	joined map[core.SessionID]map[domain.RoomID]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		rooms:  make(map[domain.RoomID]memberSet),
		joined: make(map[core.SessionID]map[domain.RoomID]struct{}),
	}
}

// Join adds sess to room. It reports false when sess was already a member.
func (t *RoomTracker) Join(room domain.RoomID, sess *core.Session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.rooms[room]
	if !ok {
		members = make(memberSet)
		t.rooms[room] = members
	}
	if _, ok := members[sess.ID()]; ok {
		return false
	}
	members[sess.ID()] = sess

	rooms, ok := t.joined[sess.ID()]
	if !ok {
		rooms = make(map[domain.RoomID]struct{})
		t.joined[sess.ID()] = rooms
	}
	rooms[room] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("sid", string(sess.ID())).Str("room", string(room)).Msg("member joined")
	return true
}

// Leave removes sess from room. It reports false when sess was not a member.
func (t *RoomTracker) Leave(room domain.RoomID, sess *core.Session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.removeLocked(room, sess.ID()) {
		return false
	}
	log.Info().Str("module", "app.rooms").Str("sid", string(sess.ID())).Str("room", string(room)).Msg("member left")
	return true
}

func (t *RoomTracker) removeLocked(room domain.RoomID, sid core.SessionID) bool {
	members, ok := t.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[sid]; !ok {
		return false
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(t.rooms, room)
	}
	if rooms, ok := t.joined[sid]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(t.joined, sid)
		}
	}
	return true
}

// MembersOf returns a snapshot; membership may change while callers iterate.
func (t *RoomTracker) MembersOf(room domain.RoomID) []*core.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.rooms[room]
	out := make([]*core.Session, 0, len(members))
	for _, sess := range members {
		out = append(out, sess)
	}
	return out
}

func (t *RoomTracker) MemberCount(room domain.RoomID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[room])
}

// RoomsOf lists the rooms sess belongs to, sorted.
func (t *RoomTracker) RoomsOf(sess *core.Session) []domain.RoomID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedRooms(t.joined[sess.ID()])
}

// LeaveAll removes sess from every room and returns the rooms it left.
func (t *RoomTracker) LeaveAll(sess *core.Session) []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	left := sortedRooms(t.joined[sess.ID()])
	for _, room := range left {
		t.removeLocked(room, sess.ID())
	}
	if len(left) > 0 {
		log.Info().Str("module", "app.rooms").Str("sid", string(sess.ID())).Int("rooms", len(left)).Msg("left all rooms")
	}
	return left
}

func (t *RoomTracker) List() []domain.RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(t.rooms))
	for id, members := range t.rooms {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedRooms(set map[domain.RoomID]struct{}) []domain.RoomID {
	out := make([]domain.RoomID, 0, len(set))
	for room := range set {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
