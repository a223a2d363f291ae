package ecs

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/phanxgames/arbor"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// instantProvider completes every load as soon as it is requested.
type instantProvider struct {
	fail error
}

func (p instantProvider) Load(id arbor.TicketID, path string, n arbor.LoadNotifier) {
	if p.fail != nil {
		n.NotifyLoadFailed(id, p.fail)
		return
	}
	n.NotifyLoadSucceeded(id, path)
}

func (instantProvider) CancelLoad(arbor.TicketID) {}

var sprite = donburi.NewTag()

type recorder struct {
	resources  []ResourceEvent
	animations []AnimationEvent
	properties []PropertyEvent
}

func subscribe(world donburi.World) *recorder {
	r := &recorder{}
	ResourceEventType.Subscribe(world, func(_ donburi.World, e ResourceEvent) {
		r.resources = append(r.resources, e)
	})
	AnimationEventType.Subscribe(world, func(_ donburi.World, e AnimationEvent) {
		r.animations = append(r.animations, e)
	})
	PropertyEventType.Subscribe(world, func(_ donburi.World, e PropertyEvent) {
		r.properties = append(r.properties, e)
	})
	return r
}

func TestSinkRoutesByType(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	rec := subscribe(world)

	anim := arbor.NewAnimation(1)
	pn := arbor.NewPropertyNotification(arbor.NewProperty("x", arbor.FloatValue(0)), arbor.LessThanCondition(1), arbor.NotifyOnTrue)

	sink.Notify(arbor.Notification{Type: arbor.ResourceLoaded, Ticket: 7, Path: "a.gltf", Handle: "h"})
	sink.Notify(arbor.Notification{Type: arbor.AnimationFinished, Animation: anim})
	sink.Notify(arbor.Notification{Type: arbor.PropertyNotified, Watcher: pn, Valid: true})
	events.ProcessAllEvents(world)

	if len(rec.resources) != 1 || len(rec.animations) != 1 || len(rec.properties) != 1 {
		t.Fatalf("events = %d/%d/%d, want 1/1/1", len(rec.resources), len(rec.animations), len(rec.properties))
	}
	if got := rec.resources[0]; got.Ticket != 7 || got.Path != "a.gltf" || got.Handle != "h" || got.Err != nil {
		t.Errorf("resource event = %+v", got)
	}
	if rec.animations[0].Animation != anim {
		t.Error("animation event lost its animation")
	}
	if got := rec.properties[0]; got.Watcher != pn || !got.Valid || got.Entity != donburi.Null {
		t.Errorf("property event = %+v", got)
	}
}

func TestSinkTicketBindingFromCore(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	rec := subscribe(world)
	hero := world.Create(sprite)
	core := arbor.New(arbor.DefaultConfig(), instantProvider{})

	tex := arbor.NewTexture(nil, false)
	ticket := core.RequestTexture("hero.png", tex)
	sink.BindTicket(ticket.ID(), hero)
	core.Flush()
	core.Update(1.0 / 60) // request, provider answers into the inbox
	core.Update(1.0 / 60) // completion drained and notified

	if n := core.ProcessNotifications(sink); n != 1 {
		t.Fatalf("ProcessNotifications = %d, want 1", n)
	}
	ResourceEventType.ProcessEvents(world)

	if len(rec.resources) != 1 {
		t.Fatalf("resource events = %d, want 1", len(rec.resources))
	}
	got := rec.resources[0]
	if got.Entity != hero || got.Ticket != ticket.ID() || got.Err != nil {
		t.Errorf("event = %+v", got)
	}
	if tex.Handle() != "hero.png" {
		t.Errorf("texture handle = %v, want hero.png", tex.Handle())
	}

	// The binding ends with the ticket's event.
	sink.Notify(arbor.Notification{Type: arbor.ResourceLoaded, Ticket: ticket.ID()})
	ResourceEventType.ProcessEvents(world)
	if rec.resources[1].Entity != donburi.Null {
		t.Errorf("second event entity = %v, want Null", rec.resources[1].Entity)
	}
}

func TestSinkFailureCarriesError(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	rec := subscribe(world)
	boom := errors.New("boom")
	core := arbor.New(arbor.DefaultConfig(), instantProvider{fail: boom})

	core.RequestGeometry("mesh.gltf", arbor.NewGeometry("mesh", nil))
	core.Flush()
	core.Update(1.0 / 60)
	core.Update(1.0 / 60)
	core.ProcessNotifications(sink)
	events.ProcessAllEvents(world)

	if len(rec.resources) != 1 || !errors.Is(rec.resources[0].Err, boom) {
		t.Errorf("events = %+v, want one wrapping %v", rec.resources, boom)
	}
}

func TestSinkRemovedEntityIsNull(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	rec := subscribe(world)

	anim := arbor.NewAnimation(1)
	e := world.Create(sprite)
	sink.BindAnimation(anim, e)
	world.Remove(e)

	sink.Notify(arbor.Notification{Type: arbor.AnimationFinished, Animation: anim})
	events.ProcessAllEvents(world)

	if len(rec.animations) != 1 || rec.animations[0].Entity != donburi.Null {
		t.Errorf("events = %+v, want one with Null entity", rec.animations)
	}
}

func TestSinkWatcherFromCore(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	rec := subscribe(world)
	marker := world.Create(sprite)
	core := arbor.New(arbor.DefaultConfig(), nil)

	node := arbor.NewNode("marker")
	core.Add(node)
	pn := arbor.NewPropertyNotification(node.Position(), arbor.GreaterThanCondition(50), arbor.NotifyOnTrue)
	sink.BindWatcher(pn, marker)
	core.AddPropertyNotification(pn)
	core.Flush()
	core.Update(1.0 / 60)

	core.BakeProperty(node.Position(), arbor.Vector3Value(mgl32.Vec3{100, 0, 0}))
	core.Flush()
	core.Update(1.0 / 60)

	core.ProcessNotifications(sink)
	PropertyEventType.ProcessEvents(world)

	if len(rec.properties) != 1 {
		t.Fatalf("property events = %d, want 1", len(rec.properties))
	}
	if got := rec.properties[0]; got.Entity != marker || got.Watcher != pn || !got.Valid {
		t.Errorf("event = %+v", got)
	}
}
