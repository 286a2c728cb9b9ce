package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuddyManager_RoundsUpToPowerOfTwo(t *testing.T) {
	m := newBuddyManager(128, NopSink{})

	off, ok := m.Allocate(0, 20, 1)
	require.True(t, ok)
	assert.Equal(t, 0, off)

	// 20 rounds up to 32; the remaining 96 bytes of the 128-byte region
	// should be banked as free blocks at orders 5 (32) and 6 (64).
	snap := m.snapshot()
	assert.Equal(t, 1, snap[5])
	assert.Equal(t, 1, snap[6])
}

func TestBuddyManager_AllocateFreeReturnsToSingleRoot(t *testing.T) {
	m := newBuddyManager(128, NopSink{})

	a, ok := m.Allocate(0, 30, 1)
	require.True(t, ok)
	b, ok := m.Allocate(0, 30, 2)
	require.True(t, ok)
	require.NotEqual(t, a, b)

	require.NoError(t, m.Free(0, a, 1))
	require.NoError(t, m.Free(0, b, 2))

	snap := m.snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[ceilOrder(128)])
}

func TestBuddyManager_NonPowerOfTwoSizeDecomposesIntoRegions(t *testing.T) {
	// 100 = 64 + 32 + 4, one region per set bit.
	m := newBuddyManager(100, NopSink{})
	require.Len(t, m.regions, 3)
	assert.Equal(t, 64, 1<<uint(m.regions[0].order))
	assert.Equal(t, 32, 1<<uint(m.regions[1].order))
	assert.Equal(t, 4, 1<<uint(m.regions[2].order))
	assert.Equal(t, 100, m.Size())
}

func TestBuddyManager_AllocateFailsWhenNoBlockLargeEnough(t *testing.T) {
	m := newBuddyManager(100, NopSink{})
	_, ok := m.Allocate(0, 65, 1) // only one 64-byte region exists
	assert.False(t, ok)
}

func TestBuddyManager_FreeWrongOwnerRejected(t *testing.T) {
	m := newBuddyManager(64, NopSink{})
	off, ok := m.Allocate(0, 10, 1)
	require.True(t, ok)

	err := m.Free(0, off, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestBuddyManager_EmitsRoundedSizeInTraceEvents(t *testing.T) {
	sink := &recordingSink{}
	m := newBuddyManager(64, sink)

	off, ok := m.Allocate(1, 20, 1)
	require.True(t, ok)
	require.NoError(t, m.Free(2, off, 1))

	require.Len(t, sink.events, 2)
	assert.Equal(t, 32, sink.events[0].Size) // 20 rounds up to 32
	assert.Equal(t, 32, sink.events[1].Size)
}

func TestCeilOrder(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 32: 5, 33: 6, 64: 6}
	for size, want := range cases {
		assert.Equal(t, want, ceilOrder(size), "size=%d", size)
	}
}
