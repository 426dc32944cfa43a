package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomDirectoryDefaults(t *testing.T) {
	d := NewRoomDirectory()

	infos := d.ListRooms()
	require.Len(t, infos, len(DefaultRooms))
	for _, info := range infos {
		assert.Contains(t, DefaultRooms, info.RoomName)
		assert.Equal(t, 0, info.UserCount)
	}
}

func TestEnsureRoomIdempotent(t *testing.T) {
	d := NewRoomDirectory()

	d.EnsureRoom("Ops")
	d.Join("Ops", "conn-1")
	info := d.EnsureRoom("Ops")

	assert.Equal(t, 1, info.UserCount)
	assert.Equal(t, len(DefaultRooms)+1, d.Count())
}

func TestJoinCreatesRoomOnFirstUse(t *testing.T) {
	d := NewRoomDirectory()

	info := d.Join("NewRoom", "conn-1")
	assert.Equal(t, "NewRoom", info.RoomName)
	assert.Equal(t, 1, info.UserCount)
}

func TestLeaveNonMemberIsNoOp(t *testing.T) {
	d := NewRoomDirectory()
	d.Join("General", "conn-1")

	d.Leave("General", "conn-2")
	d.Leave("NeverExisted", "conn-1")

	assert.Equal(t, []string{"conn-1"}, d.Members("General"))
}

func TestLeaveAllReturnsExactRoomsAndPurges(t *testing.T) {
	d := NewRoomDirectory()
	d.Join("A", "conn-1")
	d.Join("B", "conn-1")
	d.Join("C", "conn-1")
	d.Join("A", "conn-2")

	left := d.LeaveAll("conn-1")
	assert.ElementsMatch(t, []string{"A", "B", "C"}, left)

	for _, info := range d.ListRooms() {
		switch info.RoomName {
		case "A":
			assert.Equal(t, 1, info.UserCount)
		case "B", "C":
			assert.Equal(t, 0, info.UserCount)
		}
		assert.NotContains(t, d.Members(info.RoomName), "conn-1")
	}

	assert.Nil(t, d.LeaveAll("conn-1"))
}

func TestRoomsNeverGarbageCollected(t *testing.T) {
	d := NewRoomDirectory()
	d.Join("Ephemeral", "conn-1")
	d.Leave("Ephemeral", "conn-1")

	names := make([]string, 0)
	for _, info := range d.ListRooms() {
		names = append(names, info.RoomName)
	}
	assert.Contains(t, names, "Ephemeral")
}

func TestListRoomsOrdering(t *testing.T) {
	d := NewRoomDirectory()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("conn-%d", i)
		d.Join("Beta", id)
		d.Join("Alpha", id)
	}
	d.Join("Gamma", "conn-0")
	d.Join("Gamma", "conn-1")

	infos := d.ListRooms()
	require.True(t, len(infos) >= 3)

	// Count descending, name ascending on ties.
	assert.Equal(t, "Alpha", infos[0].RoomName)
	assert.Equal(t, "Beta", infos[1].RoomName)
	assert.Equal(t, "Gamma", infos[2].RoomName)
}

func TestConcurrentJoinLeaveSettles(t *testing.T) {
	d := NewRoomDirectory()
	const n = 60

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			d.Join("Busy", id)
			d.Leave("Busy", id)
			if i%2 == 0 {
				// Last operation is a join: this connection stays.
				d.Join("Busy", id)
			}
		}(i)
	}
	wg.Wait()

	info := d.EnsureRoom("Busy")
	assert.Equal(t, n/2, info.UserCount)
	assert.Len(t, d.Members("Busy"), n/2)
}

func TestMembershipIndicesAgreeUnderContention(t *testing.T) {
	d := NewRoomDirectory()
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			d.Join("Busy", "conn-1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			d.Leave("Busy", "conn-1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			d.LeaveAll("conn-1")
		}
	}()
	wg.Wait()

	// Both indices must tell the same story once the dust settles.
	inRoom := false
	for _, id := range d.Members("Busy") {
		if id == "conn-1" {
			inRoom = true
		}
	}

	d.mu.RLock()
	cr := d.joined["conn-1"]
	d.mu.RUnlock()
	inReverse := false
	if cr != nil {
		cr.mu.Lock()
		_, inReverse = cr.rooms["Busy"]
		cr.mu.Unlock()
	}
	require.Equal(t, inRoom, inReverse)

	// A final cleanup must fully clear the room either way.
	d.LeaveAll("conn-1")
	assert.NotContains(t, d.Members("Busy"), "conn-1")
}

func TestJoinAfterLeaveAllStartsClean(t *testing.T) {
	d := NewRoomDirectory()
	d.Join("A", "conn-1")
	d.Join("B", "conn-1")
	d.LeaveAll("conn-1")

	info := d.Join("A", "conn-1")
	assert.Equal(t, 1, info.UserCount)
	assert.ElementsMatch(t, []string{"A"}, d.LeaveAll("conn-1"))
}

func TestConcurrentJoinsDifferentRooms(t *testing.T) {
	d := NewRoomDirectory()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Join(fmt.Sprintf("Room-%d", i%5), fmt.Sprintf("conn-%d", i))
		}(i)
	}
	wg.Wait()

	total := 0
	for _, info := range d.ListRooms() {
		total += info.UserCount
	}
	assert.Equal(t, n, total)
}
