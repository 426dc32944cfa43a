package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddOverwritesSameID(t *testing.T) {
	r := NewRegistry()

	r.Add("conn-1", "alice")
	r.Add("conn-1", "alice2")

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "alice2", r.NameOf("conn-1"))
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Add("conn-1", "alice")

	name, ok := r.Remove("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = r.Remove("conn-1")
	assert.False(t, ok)
	assert.Equal(t, UnknownUser, r.NameOf("conn-1"))
}

func TestRegistryNameOfUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, UnknownUser, r.NameOf("missing"))
}

func TestRegistryFindByName(t *testing.T) {
	r := NewRegistry()
	r.Add("conn-1", "alice")
	r.Add("conn-2", "bob")

	id, ok := r.FindByName("bob")
	require.True(t, ok)
	assert.Equal(t, "conn-2", id)

	_, ok = r.FindByName("ghost")
	assert.False(t, ok)
}

func TestRegistryAll(t *testing.T) {
	r := NewRegistry()
	r.Add("conn-1", "alice")
	r.Add("conn-2", "bob")

	entries := r.All()
	require.Len(t, entries, 2)

	names := map[string]string{}
	for _, e := range entries {
		names[e.ConnectionID] = e.UserName
	}
	assert.Equal(t, map[string]string{"conn-1": "alice", "conn-2": "bob"}, names)
}

func TestRegistryConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			r.Add(id, fmt.Sprintf("user-%d", i))
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, r.Len())
}
