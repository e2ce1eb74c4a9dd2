package utilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNonBlockingSenderCollapsesBacklog(t *testing.T) {
	ch := make(chan int, 1)
	send := CreateNonBlockingSender(ch)

	send(1)
	send(2)
	send(3)

	assert.Equal(t, 1, len(ch))
	assert.Equal(t, 3, <-ch)
}

func TestNonBlockingSenderUnbufferedDrops(t *testing.T) {
	ch := make(chan struct{})
	send := CreateNonBlockingSender(ch)

	// nobody is receiving: must return instead of blocking
	send(struct{}{})

	select {
	case <-ch:
		t.Fatal("unexpected delivery")
	default:
	}
}

func TestSafeStateSwap(t *testing.T) {
	s := NewSafeState(false)

	assert.False(t, s.Swap(true))
	assert.True(t, s.Get())

	s.Set(false)
	assert.False(t, s.Get())
}
