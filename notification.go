package arbor

// NotificationType tells what a notification reports.
type NotificationType uint8

const (
	ResourceLoaded NotificationType = iota
	ResourceFailed
	AnimationFinished
	PropertyNotified
)

// String returns the type name.
func (t NotificationType) String() string {
	switch t {
	case ResourceLoaded:
		return "ResourceLoaded"
	case ResourceFailed:
		return "ResourceFailed"
	case AnimationFinished:
		return "AnimationFinished"
	case PropertyNotified:
		return "PropertyNotified"
	default:
		return "Unknown"
	}
}

// Notification is an event delivered from the update stage to the producer.
// Only the fields of its Type are set.
type Notification struct {
	Type NotificationType

	Ticket TicketID
	Path   string
	Handle ResourceHandle
	Err    error

	Animation *Animation

	// Watcher is the property notification that fired and Valid the result
	// of its condition in that frame.
	Watcher *PropertyNotification
	Valid   bool
}

// NotificationSink receives notifications on the producer side.
type NotificationSink interface {
	Notify(n Notification)
}

// NotificationFunc adapts a function to NotificationSink.
type NotificationFunc func(n Notification)

// Notify implements NotificationSink.
func (f NotificationFunc) Notify(n Notification) { f(n) }

type notificationBatch struct {
	items []Notification
}

// notificationQueue carries notifications from the update stage to the
// producer one batch per frame. Batches the producer has not drained yet stay
// queued on the update side in order.
type notificationQueue struct {
	// update side
	pending *notificationBatch
	backlog []*notificationBatch

	ready mailbox[*notificationBatch] // update -> producer
	free  mailbox[*notificationBatch] // producer -> update
}

func newNotificationQueue() *notificationQueue {
	q := &notificationQueue{}
	q.pending = q.newBatch()
	return q
}

func (q *notificationQueue) newBatch() *notificationBatch {
	if b, ok := q.free.tryRecv(); ok {
		return b
	}
	return &notificationBatch{}
}

// push adds n to this frame's batch. Update stage only.
func (q *notificationQueue) push(n Notification) {
	q.pending.items = append(q.pending.items, n)
}

// publish hands the frame's batch to the producer. Update stage only.
func (q *notificationQueue) publish() {
	if len(q.pending.items) > 0 {
		q.backlog = append(q.backlog, q.pending)
		q.pending = q.newBatch()
	}
	sent := 0
	for _, b := range q.backlog {
		if !q.ready.trySend(b) {
			break
		}
		sent++
	}
	if sent > 0 {
		n := copy(q.backlog, q.backlog[sent:])
		clear(q.backlog[n:])
		q.backlog = q.backlog[:n]
	}
}

// drain delivers every published notification to sink in order and returns
// how many were delivered. Producer only.
func (q *notificationQueue) drain(sink NotificationSink) int {
	n := 0
	for {
		b, ok := q.ready.tryRecv()
		if !ok {
			return n
		}
		for i := range b.items {
			if sink != nil {
				sink.Notify(b.items[i])
			}
			b.items[i] = Notification{}
			n++
		}
		b.items = b.items[:0]
		q.free.trySend(b)
	}
}
