package arbor

import (
	"fmt"
	"log/slog"
)

// Message is a unit of work posted by the producer and executed once by the
// update stage, in posting order.
type Message interface {
	Process(ctx *UpdateContext)
}

// MessageFunc adapts a function to the Message interface.
type MessageFunc func(ctx *UpdateContext)

// Process implements Message.
func (f MessageFunc) Process(ctx *UpdateContext) { f(ctx) }

// DefaultMessageCapacity is the number of messages a batch holds before it
// grows (or panics in strict mode).
const DefaultMessageCapacity = 512

type messageBatch struct {
	msgs   []Message
	warned bool
}

// MessageQueue carries messages from the producer to the update stage. The
// producer appends to a private batch and publishes it with Flush; the update
// stage drains published batches with ProcessMessages and hands the empty
// batches back for reuse. Messages are never visible to the update stage
// before Flush.
type MessageQueue struct {
	capacity int
	strict   bool
	logger   *slog.Logger

	// producer side
	pending  *messageBatch
	overflow []*messageBatch

	ready mailbox[*messageBatch] // producer -> update
	free  mailbox[*messageBatch] // update -> producer
}

// NewMessageQueue creates a queue whose batches hold capacity messages. With
// strict set, posting past capacity panics instead of growing the batch.
func NewMessageQueue(capacity int, strict bool, logger *slog.Logger) *MessageQueue {
	if capacity <= 0 {
		capacity = DefaultMessageCapacity
	}
	if logger == nil {
		logger = discardLogger()
	}
	q := &MessageQueue{capacity: capacity, strict: strict, logger: logger}
	q.pending = q.newBatch()
	return q
}

func (q *MessageQueue) newBatch() *messageBatch {
	if b, ok := q.free.tryRecv(); ok {
		return b
	}
	return &messageBatch{msgs: make([]Message, 0, q.capacity)}
}

// Post appends m to the current batch. Producer only.
func (q *MessageQueue) Post(m Message) {
	if m == nil {
		panic("arbor: cannot post nil message")
	}
	b := q.pending
	if len(b.msgs) >= q.capacity {
		if q.strict {
			panic(fmt.Sprintf("arbor: message queue capacity %d exceeded", q.capacity))
		}
		if !b.warned {
			b.warned = true
			q.logger.Warn("Message batch exceeded capacity, growing.", "capacity", q.capacity)
		}
	}
	b.msgs = append(b.msgs, m)
}

// PostFunc posts a closure message.
func (q *MessageQueue) PostFunc(f func(ctx *UpdateContext)) {
	q.Post(MessageFunc(f))
}

// Pending returns the number of messages posted since the last Flush.
func (q *MessageQueue) Pending() int {
	return len(q.pending.msgs)
}

// Flush publishes every message posted so far. Batches that do not fit in
// the hand-off ring stay queued in order on the producer side and are retried
// by the next Flush. Reports whether anything was published. Producer only.
func (q *MessageQueue) Flush() bool {
	if len(q.pending.msgs) > 0 {
		q.overflow = append(q.overflow, q.pending)
		q.pending = q.newBatch()
	}
	sent := 0
	for _, b := range q.overflow {
		if !q.ready.trySend(b) {
			break
		}
		sent++
	}
	if sent > 0 {
		n := copy(q.overflow, q.overflow[sent:])
		clear(q.overflow[n:])
		q.overflow = q.overflow[:n]
	}
	if len(q.overflow) > 0 {
		q.logger.Debug("Message hand-off full, deferring batches.", "deferred", len(q.overflow))
	}
	return sent > 0
}

// ProcessMessages executes every message published before the call, in order,
// and returns how many ran. Batches flushed while it runs wait for the next
// call. Update stage only.
func (q *MessageQueue) ProcessMessages(ctx *UpdateContext) int {
	n := 0
	end := q.ready.mark()
	for {
		b, ok := q.ready.tryRecvBefore(end)
		if !ok {
			return n
		}
		for i, m := range b.msgs {
			m.Process(ctx)
			b.msgs[i] = nil
			n++
		}
		b.msgs = b.msgs[:0]
		b.warned = false
		q.free.trySend(b)
	}
}
