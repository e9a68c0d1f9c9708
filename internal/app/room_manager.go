package app

import (
	"sort"
	"sync"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/dkeye/demeet/internal/obs"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl maps room ids to live rooms. The map lock only guards
// lookup and removal; membership and fan-out are serialized per room.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

var _ core.RoomManager = (*RoomManagerImpl)(nil)

func (f *RoomManagerImpl) getOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(id)
	f.rooms[id] = room
	obs.ActiveRooms.Inc()
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

// Join adds the handle, creating the room on first use. A room closed by a
// concurrent last Leave is already gone from the map, so the retry lands in a
// fresh one.
func (f *RoomManagerImpl) Join(id domain.RoomID, sid core.SessionID, ms core.MemberSession) {
	for {
		if f.getOrCreate(id).AddMember(sid, ms) {
			return
		}
	}
}

func (f *RoomManagerImpl) Leave(id domain.RoomID, sid core.SessionID) (domain.ParticipantID, bool) {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return "", false
	}
	ms, empty := room.RemoveMember(sid)
	if empty {
		f.removeIfEmpty(room)
	}
	if ms == nil {
		return "", false
	}
	return ms.Participant(), true
}

func (f *RoomManagerImpl) removeIfEmpty(room core.RoomService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// A Join may have slipped in after RemoveMember; CloseIfEmpty decides
	// under the room lock.
	if f.rooms[room.ID()] != room || !room.CloseIfEmpty() {
		return
	}
	delete(f.rooms, room.ID())
	obs.ActiveRooms.Dec()
	log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).Msg("room removed")
}

func (f *RoomManagerImpl) Broadcast(id domain.RoomID, from core.SessionID, data core.Frame) core.PublishResult {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return core.PublishResult{}
	}
	return room.Broadcast(from, data)
}

func (f *RoomManagerImpl) MembersOf(id domain.RoomID) []domain.ParticipantID {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Participants()
}

func (f *RoomManagerImpl) Exists(id domain.RoomID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.rooms[id]
	return ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
