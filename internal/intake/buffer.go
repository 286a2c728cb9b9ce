// Package intake implements the bounded single-producer/single-consumer
// ring buffer the workload generator pushes job descriptors into and the
// coordinator drains.
package intake

import (
	"errors"
	"sync"
	"time"
)

// ErrFull is returned by Push when the buffer has no free slots.
var ErrFull = errors.New("intake: buffer full")

// JobDescriptor is the immutable, as-read job record produced by the
// workload generator.
type JobDescriptor struct {
	ID       int
	Arrival  int
	Runtime  int
	Priority int
	MemSize  int
}

// Buffer is a fixed-capacity ring guarded by a single binary lock. It has
// exactly one producer and one consumer.
type Buffer struct {
	mu     sync.Mutex
	slots  []JobDescriptor
	count  int
	notify chan struct{}
}

// New returns a Buffer with the given fixed capacity B.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{slots: make([]JobDescriptor, capacity), notify: make(chan struct{}, 1)}
}

// Push appends a descriptor under the lock. It returns ErrFull if the
// buffer is at capacity; the caller (the generator) is expected to retry
// after a bounded backoff.
func (b *Buffer) Push(job JobDescriptor) error {
	b.mu.Lock()
	if b.count == len(b.slots) {
		b.mu.Unlock()
		return ErrFull
	}
	b.slots[b.count] = job
	b.count++
	b.mu.Unlock()
	b.wake()
	return nil
}

// wake signals Notify's channel without blocking if nobody is listening yet
// and without piling up more than one pending wakeup.
func (b *Buffer) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// PushBlocking retries Push with bounded backoff until it succeeds or ctx
// is cancelled via the done channel.
func (b *Buffer) PushBlocking(job JobDescriptor, backoff time.Duration, done <-chan struct{}) error {
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	for {
		err := b.Push(job)
		if err == nil {
			return nil
		}
		select {
		case <-done:
			return err
		case <-time.After(backoff):
		}
	}
}

// Drain copies out all pending descriptors and resets the buffer to empty,
// all under one lock acquisition (all-or-nothing per tick, bounding lock
// hold time to O(B)).
func (b *Buffer) Drain() []JobDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]JobDescriptor, b.count)
	copy(out, b.slots[:b.count])
	b.count = 0
	return out
}

// Len reports the number of pending descriptors.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Notify returns a channel that receives a value after a successful Push.
// It is coalescing (capacity 1): a consumer that is slow to receive still
// only sees one pending wakeup, never one per Push, so the coordinator's
// Wait step can select on it to notice a prompt arrival without polling
// Len in a loop.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}

// Cap reports the fixed capacity B.
func (b *Buffer) Cap() int {
	return len(b.slots)
}
