// Package ebitenstage draws arbor scenes with [Ebitengine].
//
// [Backend] implements arbor.Backend on top of DrawTriangles32, batching
// consecutive items that share a texture, blend equation and clip rectangle.
// Texture, geometry and program handles are *ebiten.Image, [Mesh] and
// *ebiten.Shader values respectively; any other handle falls back to a white
// unit quad. [Run] wires a core into the ebiten game loop.
//
// [Ebitengine]: https://ebitengine.org
package ebitenstage
