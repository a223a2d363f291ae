package ecs

import (
	"github.com/phanxgames/arbor"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// ResourceEvent reports the outcome of a resource ticket. Err is nil when
// the load succeeded.
type ResourceEvent struct {
	Entity donburi.Entity
	Ticket arbor.TicketID
	Path   string
	Handle arbor.ResourceHandle
	Err    error
}

// AnimationEvent reports a finished animation.
type AnimationEvent struct {
	Entity    donburi.Entity
	Animation *arbor.Animation
}

// PropertyEvent reports a property notification. Valid is the condition
// result in the frame it fired.
type PropertyEvent struct {
	Entity  donburi.Entity
	Watcher *arbor.PropertyNotification
	Valid   bool
}

var (
	ResourceEventType  = events.NewEventType[ResourceEvent]()
	AnimationEventType = events.NewEventType[AnimationEvent]()
	PropertyEventType  = events.NewEventType[PropertyEvent]()
)

// Sink publishes arbor notifications into a donburi world, one event type
// per notification kind. Events carry the entity bound to their source, or
// donburi.Null when none is bound or the entity has been removed.
type Sink struct {
	world    donburi.World
	bindings map[any]donburi.Entity
}

// NewDonburiSink creates a sink publishing into world.
func NewDonburiSink(world donburi.World) *Sink {
	return &Sink{world: world, bindings: make(map[any]donburi.Entity)}
}

// BindTicket tags the event of ticket id with e. The binding ends with the
// event.
func (s *Sink) BindTicket(id arbor.TicketID, e donburi.Entity) { s.bindings[id] = e }

// BindAnimation tags the finish events of a with e.
func (s *Sink) BindAnimation(a *arbor.Animation, e donburi.Entity) { s.bindings[a] = e }

// BindWatcher tags the events of pn with e.
func (s *Sink) BindWatcher(pn *arbor.PropertyNotification, e donburi.Entity) { s.bindings[pn] = e }

// Unbind drops the binding of a ticket id, animation or watcher.
func (s *Sink) Unbind(key any) { delete(s.bindings, key) }

// entity returns the live entity bound to key. Bindings of removed entities
// are dropped.
func (s *Sink) entity(key any) donburi.Entity {
	e, ok := s.bindings[key]
	if !ok {
		return donburi.Null
	}
	if !s.world.Valid(e) {
		delete(s.bindings, key)
		return donburi.Null
	}
	return e
}

// Notify implements arbor.NotificationSink.
func (s *Sink) Notify(n arbor.Notification) {
	switch n.Type {
	case arbor.ResourceLoaded, arbor.ResourceFailed:
		e := s.entity(n.Ticket)
		delete(s.bindings, n.Ticket)
		ResourceEventType.Publish(s.world, ResourceEvent{
			Entity: e,
			Ticket: n.Ticket,
			Path:   n.Path,
			Handle: n.Handle,
			Err:    n.Err,
		})
	case arbor.AnimationFinished:
		AnimationEventType.Publish(s.world, AnimationEvent{Entity: s.entity(n.Animation), Animation: n.Animation})
	case arbor.PropertyNotified:
		PropertyEventType.Publish(s.world, PropertyEvent{Entity: s.entity(n.Watcher), Watcher: n.Watcher, Valid: n.Valid})
	}
}

var _ arbor.NotificationSink = (*Sink)(nil)
