package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStoreAcquire(t *testing.T) {
	store := NewSessionStore(time.Hour)

	s, release, created := store.Acquire("")
	assert.True(t, created)
	id := s.ID
	s.PilotID = "P001"
	release()

	again, release, created := store.Acquire(id)
	defer release()
	assert.False(t, created)
	assert.Equal(t, "P001", again.PilotID)

	_, release2, created := store.Acquire("unknown-id")
	release2()
	assert.True(t, created, "unknown ids get a new session")
	assert.Equal(t, 2, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Hour)
	store.now = func() time.Time { return now }

	_, release, _ := store.Acquire("")
	release()

	now = now.Add(30 * time.Minute)
	fresh, release, _ := store.Acquire("")
	release()

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, release, created := store.Acquire(fresh.ID)
	release()
	assert.False(t, created)
}

func TestSessionStoreLookupDoesNotCreate(t *testing.T) {
	store := NewSessionStore(time.Hour)

	_, _, ok := store.Lookup("")
	assert.False(t, ok)
	_, _, ok = store.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	s, release, _ := store.Acquire("")
	release()
	found, release, ok := store.Lookup(s.ID)
	assert.True(t, ok)
	assert.Same(t, s, found)
	release()
}
