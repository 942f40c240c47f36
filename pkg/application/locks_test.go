package application

import (
	"sync"
	"testing"
)

func TestUserLocks(t *testing.T) {
	locks := NewUserLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d", counter)
	}
	if locks.Len() != 0 {
		t.Errorf("idle locks kept: %d", locks.Len())
	}

	unlockA := locks.Lock("alice")
	unlockB := locks.Lock("bob")
	if locks.Len() != 2 {
		t.Errorf("Len = %d, want 2", locks.Len())
	}
	unlockA()
	unlockB()
}
