package tui

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderScheduler_CoalescesNotifications(t *testing.T) {
	var s RenderScheduler

	assert.False(t, s.Consume(), "clean scheduler has nothing pending")

	s.Notify()
	s.Notify()
	s.Notify()

	assert.True(t, s.Consume(), "burst of notifications yields one refresh")
	assert.False(t, s.Consume(), "pending flag clears after consume")
}

func TestRenderScheduler_ConcurrentNotify(t *testing.T) {
	var s RenderScheduler
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Notify()
		}()
	}
	wg.Wait()

	assert.True(t, s.Consume())
	assert.False(t, s.Consume())
}
