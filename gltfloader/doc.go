// Package gltfloader loads glTF geometry for arbor.
//
// A [Loader] is an arbor.ResourceProvider: requests are read from an
// fs.FS and decoded on background goroutines, and the resulting
// [GeometryData] handle carries a normalized bounding sphere for culling and
// a translucency hint taken from the document's materials. Only .glb files
// and .gltf files with embedded buffers are supported.
package gltfloader
