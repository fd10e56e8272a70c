package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := New()

	var order []int
	var wg sync.WaitGroup

	kl.Lock("room-1|user@example.com")

	wg.Add(1)
	go func() {
		defer wg.Done()
		kl.Lock("room-1|user@example.com")
		order = append(order, 2)
		kl.Unlock("room-1|user@example.com")
	}()

	order = append(order, 1)
	kl.Unlock("room-1|user@example.com")
	wg.Wait()

	assert.Equal(t, []int{1, 2}, order)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	kl := New()

	kl.Lock("room-1|a@example.com")

	done := make(chan struct{})
	go func() {
		kl.Lock("room-2|b@example.com")
		kl.Unlock("room-2|b@example.com")
		close(done)
	}()

	<-done // must not require releasing room-1
	kl.Unlock("room-1|a@example.com")
}

func TestKeyLock_EntryReleasedWhenUnused(t *testing.T) {
	kl := New()

	kl.Lock("session")
	kl.Unlock("session")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	assert.Empty(t, kl.locks)
}
