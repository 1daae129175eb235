package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocks_EntriesAreReleased(t *testing.T) {
	l := newSessionLocks()

	for _, id := range []string{"a", "b", "c"} {
		unlock := l.Lock(id)
		assert.Equal(t, 1, l.len())
		unlock()
	}
	assert.Zero(t, l.len())
}

func TestSessionLocks_SerialisesSameID(t *testing.T) {
	l := newSessionLocks()
	unlock := l.Lock("s")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		release := l.Lock("s")
		mu.Lock()
		acquired = true
		mu.Unlock()
		release()
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.False(t, acquired, "second holder waits for the first")
	mu.Unlock()
	assert.Equal(t, 1, l.len(), "waiters share the entry")

	unlock()
	wg.Wait()
	assert.True(t, acquired)
	assert.Zero(t, l.len())
}
