package arbor

import "testing"

func TestNotificationQueueDeliversInOrder(t *testing.T) {
	q := newNotificationQueue()
	q.push(Notification{Type: ResourceLoaded, Ticket: 1})
	q.push(Notification{Type: ResourceFailed, Ticket: 2})
	q.publish()

	var got []TicketID
	n := q.drain(NotificationFunc(func(n Notification) { got = append(got, n.Ticket) }))
	if n != 2 || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("drain = %d %v, want 2 [1 2]", n, got)
	}
	if n := q.drain(nil); n != 0 {
		t.Errorf("second drain = %d, want 0", n)
	}
}

func TestNotificationQueueEmptyFramePublishesNothing(t *testing.T) {
	q := newNotificationQueue()
	q.publish()
	if q.ready.len() != 0 {
		t.Error("empty batch published")
	}
}

func TestNotificationQueueBacklog(t *testing.T) {
	q := newNotificationQueue()
	frames := mailboxSlots + 5
	for i := range frames {
		q.push(Notification{Ticket: TicketID(i)})
		q.publish()
	}
	if len(q.backlog) == 0 {
		t.Fatal("expected batches to wait while the producer is away")
	}

	var got []TicketID
	sink := NotificationFunc(func(n Notification) { got = append(got, n.Ticket) })
	for len(got) < frames {
		if q.drain(sink) == 0 {
			// The update stage forwards the backlog on its next frame.
			q.publish()
		}
	}
	for i, id := range got {
		if id != TicketID(i) {
			t.Fatalf("notification %d has ticket %d, want %d", i, id, i)
		}
	}
}

func TestNotificationTypeString(t *testing.T) {
	tests := map[NotificationType]string{
		ResourceLoaded:        "ResourceLoaded",
		ResourceFailed:        "ResourceFailed",
		AnimationFinished:     "AnimationFinished",
		PropertyNotified:      "PropertyNotified",
		NotificationType(200): "Unknown",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", typ, got, want)
		}
	}
}
