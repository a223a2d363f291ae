// Package ecs bridges arbor notifications into a [Donburi] world.
//
// [NewDonburiSink] returns a [Sink] that turns each notification into a
// typed event: [ResourceEvent], [AnimationEvent] or [PropertyEvent]. A
// ticket, animation or property notification can be bound to an entity so
// its events name the entity they concern.
//
//	sink := ecs.NewDonburiSink(world)
//	ticket := core.RequestTexture("hero.png", tex)
//	sink.BindTicket(ticket.ID(), hero)
//
//	core.ProcessNotifications(sink)
//	events.ProcessAllEvents(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
