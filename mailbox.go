package arbor

import "sync/atomic"

const mailboxSlots = 8

// mailbox is a fixed-size single-producer/single-consumer ring. The producer
// fills a slot before publishing it by advancing head; the consumer empties a
// slot before releasing it by advancing tail. No locks, no allocation.
type mailbox[T any] struct {
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [mailboxSlots]T
}

// trySend enqueues v, returning false if the ring is full.
func (mb *mailbox[T]) trySend(v T) bool {
	head := mb.head.Load()
	if head-mb.tail.Load() >= mailboxSlots {
		return false
	}
	mb.slots[head%mailboxSlots] = v
	mb.head.Store(head + 1)
	return true
}

// tryRecv dequeues one value, returning false if the ring is empty.
func (mb *mailbox[T]) tryRecv() (T, bool) {
	var zero T
	tail := mb.tail.Load()
	if tail == mb.head.Load() {
		return zero, false
	}
	v := mb.slots[tail%mailboxSlots]
	mb.slots[tail%mailboxSlots] = zero
	mb.tail.Store(tail + 1)
	return v, true
}

// mark returns the head as seen now. Values sent later are not covered by
// tryRecvBefore(mark).
func (mb *mailbox[T]) mark() uint32 { return mb.head.Load() }

// tryRecvBefore dequeues one value sent before end was marked.
func (mb *mailbox[T]) tryRecvBefore(end uint32) (T, bool) {
	if mb.tail.Load() == end {
		var zero T
		return zero, false
	}
	return mb.tryRecv()
}

// len returns the number of queued values as seen by the caller.
func (mb *mailbox[T]) len() int {
	return int(mb.head.Load() - mb.tail.Load())
}
