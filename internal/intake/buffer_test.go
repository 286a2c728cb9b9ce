package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PushDrainOrder(t *testing.T) {
	buf := New(4)

	for i := 0; i < 3; i++ {
		require.NoError(t, buf.Push(JobDescriptor{ID: i, Arrival: i}))
	}
	assert.Equal(t, 3, buf.Len())

	got := buf.Drain()
	require.Len(t, got, 3)
	for i, job := range got {
		assert.Equal(t, i, job.ID)
	}
	assert.Equal(t, 0, buf.Len())
	assert.Nil(t, buf.Drain())
}

func TestBuffer_PushFullReturnsErrFull(t *testing.T) {
	buf := New(2)
	require.NoError(t, buf.Push(JobDescriptor{ID: 1}))
	require.NoError(t, buf.Push(JobDescriptor{ID: 2}))

	err := buf.Push(JobDescriptor{ID: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFull))
}

func TestBuffer_Cap(t *testing.T) {
	assert.Equal(t, 4, New(4).Cap())
	assert.Equal(t, 1, New(0).Cap())
	assert.Equal(t, 1, New(-3).Cap())
}

func TestBuffer_PushBlockingWaitsForSpace(t *testing.T) {
	buf := New(1)
	require.NoError(t, buf.Push(JobDescriptor{ID: 1}))

	done := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- buf.PushBlocking(JobDescriptor{ID: 2}, time.Millisecond, done)
	}()

	time.Sleep(5 * time.Millisecond)
	buf.Drain()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("PushBlocking never returned after space freed up")
	}

	got := buf.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)
}

func TestBuffer_PushBlockingGivesUpOnDone(t *testing.T) {
	buf := New(1)
	require.NoError(t, buf.Push(JobDescriptor{ID: 1}))

	done := make(chan struct{})
	close(done)

	err := buf.PushBlocking(JobDescriptor{ID: 2}, time.Millisecond, done)
	assert.True(t, errors.Is(err, ErrFull))
}

func TestBuffer_NotifyFiresOnPushAndCoalesces(t *testing.T) {
	buf := New(4)

	select {
	case <-buf.Notify():
		t.Fatal("Notify fired before any Push")
	default:
	}

	require.NoError(t, buf.Push(JobDescriptor{ID: 1}))
	require.NoError(t, buf.Push(JobDescriptor{ID: 2}))

	select {
	case <-buf.Notify():
	default:
		t.Fatal("Notify did not fire after Push")
	}

	// A second pending wakeup was coalesced into the one already buffered;
	// the channel must be empty now, not still signaling.
	select {
	case <-buf.Notify():
		t.Fatal("Notify fired a second time for two pushes that landed before it was drained")
	default:
	}
}
