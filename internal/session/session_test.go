package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetCreatesEmptyState(t *testing.T) {
	s := NewMemoryStore()

	state := s.Get("tab-1")
	assert.False(t, state.AwaitingContact)
	assert.Empty(t, state.PendingQuery)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_SetAndClear(t *testing.T) {
	s := NewMemoryStore()

	s.Set("tab-1", AwaitContact("what are your hours?"))
	got := s.Get("tab-1")
	assert.True(t, got.AwaitingContact)
	assert.Equal(t, "what are your hours?", got.PendingQuery)

	s.Clear("tab-1")
	assert.Equal(t, State{}, s.Get("tab-1"))
}

func TestMemoryStore_SetDropsPendingQueryWhenNotAwaiting(t *testing.T) {
	s := NewMemoryStore()
	s.Set("tab-1", State{PendingQuery: "stale"})
	assert.Equal(t, State{}, s.Get("tab-1"))
}

func TestMemoryStore_EmptyIDUsesDefault(t *testing.T) {
	s := NewMemoryStore()
	s.Set("", AwaitContact("q"))
	assert.True(t, s.Get(DefaultID).AwaitingContact)
	assert.True(t, s.Get("  ").AwaitingContact)
}

func TestMemoryStore_LockSerializesReadModifyWrite(t *testing.T) {
	s := NewMemoryStore()
	const workers = 50

	// Each worker appends to PendingQuery under the session lock; without
	// serialization some appends would be lost.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			st := s.Get("shared")
			s.Set("shared", AwaitContact(st.PendingQuery+"x"))
		}()
	}
	wg.Wait()

	assert.Len(t, s.Get("shared").PendingQuery, workers)
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "tab-" + strconv.Itoa(i)
			unlock, err := s.Lock(context.Background(), id)
			if !assert.NoError(t, err) {
				return
			}
			s.Set(id, AwaitContact(id))
			unlock()
			s.Clear(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_LockHonorsContext(t *testing.T) {
	s := NewMemoryStore()
	unlock, err := s.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = s.Lock(ctx, "busy")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// Other sessions are not affected.
	other, err := s.Lock(context.Background(), "idle")
	require.NoError(t, err)
	other()
}
