// Package arbor is the update and render core of a retained-mode scene graph.
//
// An application builds a tree of [Node] values below [Core.Root] and talks to
// the scene only through messages. Three roles cooperate, each of which may
// run on its own goroutine:
//
//   - the producer posts messages with [Core.Post] or the producer helpers,
//     makes them visible with [Core.Flush] and receives notifications with
//     [Core.ProcessNotifications];
//   - the update stage runs [Core.Update] once per frame: it applies the
//     messages, animations and constraints, propagates transforms and
//     prepares sorted render instructions;
//   - the render stage runs [Core.Render] with a [Backend], drawing the frame
//     the update stage most recently published.
//
// # Quick start
//
//	core := arbor.New(arbor.DefaultConfig(), nil)
//
//	box := arbor.NewNode("box")
//	core.Add(box)
//	core.BakeProperty(box.Size(), arbor.Vector3Value(mgl32.Vec3{80, 40, 0}))
//	core.AddRenderer(box, arbor.NewRenderer("box", nil, nil))
//
//	for running {
//		core.Flush()
//		core.Update(1.0 / 60)
//		core.Render(backend)
//		core.ProcessNotifications(sink)
//	}
//
// The ebitenstage package provides a [Backend] and game loop on top of
// [Ebitengine].
//
// # Double buffering
//
// Every animatable property keeps two values, one per [BufferIndex]. The
// update stage writes the update buffer while the render stage reads the
// render buffer; [SceneBuffers.Swap] publishes a frame. A value set with
// [Property.Set] lasts one frame and falls back to the base value, while
// [Property.Bake] changes the base value itself.
//
// # Properties, animations and constraints
//
// Nodes, renderers, materials, shaders, geometries and cameras are property
// owners. [Animation] drives properties over time with easing curves from
// [gween]; [Constraint] recomputes a property every frame from other
// properties, blending in and out over its apply and remove periods.
//
// # Resources
//
// [Core.RequestTexture] and [Core.RequestGeometry] return a [Ticket]. The
// [ResourceProvider] given to [New] loads asynchronously and reports the
// outcome, which the producer receives as a [Notification]. The gltfloader
// package provides a provider for glTF geometry.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package arbor
