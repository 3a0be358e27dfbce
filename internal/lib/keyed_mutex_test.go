package lib

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock(1)
			counter++
			km.Unlock(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Empty(t, km.locks, "lock entries should be released")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock(1)
	acquired := make(chan struct{})
	go func() {
		km.Lock(2)
		close(acquired)
		km.Unlock(2)
	}()

	<-acquired // must not block on key 1 being held
	km.Unlock(1)
}
