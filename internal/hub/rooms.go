package hub

import (
	"sort"
	"sync"

	"github.com/beaconchat/beacon/internal/protocol"
)

// DefaultRooms exist from startup so clients always have somewhere to land.
var DefaultRooms = []string{"General", "Random", "Help"}

// room holds one room's membership set behind its own lock so that traffic in
// different rooms never contends.
type room struct {
	mu      sync.Mutex
	members map[string]struct{}
}

func (rm *room) add(connectionID string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.members[connectionID] = struct{}{}
	return len(rm.members)
}

func (rm *room) remove(connectionID string) {
	rm.mu.Lock()
	delete(rm.members, connectionID)
	rm.mu.Unlock()
}

func (rm *room) count() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

func (rm *room) snapshot() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	return ids
}

// connRooms tracks which rooms one connection belongs to, the reverse index
// used for O(1) cleanup on disconnect. Its lock serializes every membership
// mutation for the connection, so the room index and this entry always move
// together. dropped marks an entry retired by LeaveAll: a Join racing with
// the cleanup starts over on a fresh entry instead of resurrecting this one.
type connRooms struct {
	mu      sync.Mutex
	dropped bool
	rooms   map[string]struct{}
}

// RoomDirectory owns room existence and membership. Both sides of the
// membership relation (room -> connections, connection -> rooms) are kept in
// step on every mutating call. Rooms are never deleted, even at zero members;
// clients rely on ListRooms output staying stable.
type RoomDirectory struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	joined map[string]*connRooms
}

// NewRoomDirectory returns a directory pre-seeded with the default rooms.
func NewRoomDirectory() *RoomDirectory {
	d := &RoomDirectory{
		rooms:  make(map[string]*room),
		joined: make(map[string]*connRooms),
	}
	for _, name := range DefaultRooms {
		d.EnsureRoom(name)
	}
	return d
}

func (d *RoomDirectory) room(name string) *room {
	d.mu.RLock()
	rm := d.rooms[name]
	d.mu.RUnlock()
	if rm != nil {
		return rm
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if rm = d.rooms[name]; rm == nil {
		rm = &room{members: make(map[string]struct{})}
		d.rooms[name] = rm
	}
	return rm
}

func (d *RoomDirectory) conn(connectionID string) *connRooms {
	d.mu.RLock()
	cr := d.joined[connectionID]
	d.mu.RUnlock()
	if cr != nil {
		return cr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cr = d.joined[connectionID]; cr == nil {
		cr = &connRooms{rooms: make(map[string]struct{})}
		d.joined[connectionID] = cr
	}
	return cr
}

// EnsureRoom creates the room with zero members if absent and returns its
// current info. Idempotent.
func (d *RoomDirectory) EnsureRoom(name string) protocol.RoomInfo {
	rm := d.room(name)
	return protocol.RoomInfo{RoomName: name, UserCount: rm.count()}
}

// Join adds the connection to the room, creating the room on first use, and
// returns the updated info. Both membership indices are updated under the
// connection's lock, so a concurrent Leave or LeaveAll for the same
// connection observes either the full join or none of it.
func (d *RoomDirectory) Join(name, connectionID string) protocol.RoomInfo {
	rm := d.room(name)
	for {
		cr := d.conn(connectionID)
		cr.mu.Lock()
		if cr.dropped {
			cr.mu.Unlock()
			continue
		}
		count := rm.add(connectionID)
		cr.rooms[name] = struct{}{}
		cr.mu.Unlock()
		return protocol.RoomInfo{RoomName: name, UserCount: count}
	}
}

// Leave removes the connection from the room. Leaving a room the connection
// never joined is a no-op, not an error.
func (d *RoomDirectory) Leave(name, connectionID string) {
	d.mu.RLock()
	rm := d.rooms[name]
	cr := d.joined[connectionID]
	d.mu.RUnlock()

	if cr == nil {
		// Never joined anything; nothing to keep in step.
		if rm != nil {
			rm.remove(connectionID)
		}
		return
	}

	cr.mu.Lock()
	if rm != nil {
		rm.remove(connectionID)
	}
	delete(cr.rooms, name)
	cr.mu.Unlock()
}

// LeaveAll removes the connection from every room it belongs to and returns
// exactly the names of the rooms it left, for downstream notification.
func (d *RoomDirectory) LeaveAll(connectionID string) []string {
	d.mu.Lock()
	cr := d.joined[connectionID]
	delete(d.joined, connectionID)
	d.mu.Unlock()

	if cr == nil {
		return nil
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.dropped = true

	names := make([]string, 0, len(cr.rooms))
	for name := range cr.rooms {
		names = append(names, name)
		d.mu.RLock()
		rm := d.rooms[name]
		d.mu.RUnlock()
		if rm != nil {
			rm.remove(connectionID)
		}
	}
	cr.rooms = make(map[string]struct{})
	return names
}

// Members returns a snapshot of the connection ids currently in the room.
func (d *RoomDirectory) Members(name string) []string {
	d.mu.RLock()
	rm := d.rooms[name]
	d.mu.RUnlock()

	if rm == nil {
		return nil
	}
	return rm.snapshot()
}

// Count reports how many rooms exist.
func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// ListRooms returns every room ordered by member count descending, ties
// broken by name ascending so the ordering is deterministic.
func (d *RoomDirectory) ListRooms() []protocol.RoomInfo {
	d.mu.RLock()
	infos := make([]protocol.RoomInfo, 0, len(d.rooms))
	for name, rm := range d.rooms {
		infos = append(infos, protocol.RoomInfo{RoomName: name, UserCount: rm.count()})
	}
	d.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UserCount != infos[j].UserCount {
			return infos[i].UserCount > infos[j].UserCount
		}
		return infos[i].RoomName < infos[j].RoomName
	})
	return infos
}
