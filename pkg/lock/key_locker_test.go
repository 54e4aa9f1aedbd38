package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesSameKey(t *testing.T) {
	locker := NewKeyLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock("upload-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}

func TestDifferentKeysDoNotBlockEachOther(t *testing.T) {
	locker := NewKeyLocker()

	locker.Acquire("a")
	done := make(chan struct{})
	go func() {
		locker.Acquire("b")
		locker.Release("b")
		close(done)
	}()

	<-done
	locker.Release("a")
}
