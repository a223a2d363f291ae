package arbor

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// listCacheKey identifies the render list of one layer in one task.
type listCacheKey struct {
	task  *RenderTask
	layer *Layer
}

// listCache remembers the sorted order of the last list built for a key.
type listCache struct {
	order    []int32
	count    int
	checksum uint64
	view     mgl32.Mat4
	revision uint64
	frame    uint64
}

// instructionBuilder turns the renderables collected by node update into
// sorted render lists, one instruction per render task.
type instructionBuilder struct {
	cache   map[listCacheKey]*listCache
	scratch []RenderItem
}

func newInstructionBuilder() *instructionBuilder {
	return &instructionBuilder{cache: make(map[listCacheKey]*listCache)}
}

// prepare fills container with the instructions of generation ctx.Buffer.
// layers must be in depth-first order. revision changes whenever a render
// object was mutated in a way the renderables cannot show.
func (b *instructionBuilder) prepare(ctx *UpdateContext, tasks []*RenderTask, layers []*Layer,
	container *RenderInstructionContainer, revision uint64, stats *frameStats) {
	buf := ctx.Buffer
	container.reset(buf)

	for _, task := range tasks {
		if !task.shouldRender() {
			continue
		}
		cam := task.camera
		ri := container.next(buf)
		ri.Task = task
		ri.Viewport = task.viewport
		ri.Clear = task.clear
		ri.ClearColor = task.clearColor
		ri.ViewMatrix = cam.ViewMatrix(buf)
		ri.ProjectionMatrix = cam.ProjectionMatrix(buf)
		ri.Target = task.target
		ri.Buffer = buf

		for _, layer := range layers {
			ok, subtree := task.includes(layer)
			if !ok {
				continue
			}
			list := ri.nextList()
			b.buildList(ctx, task, layer, subtree, list, revision, stats)
			if list.count == 0 {
				ri.dropLastList()
				continue
			}
			stats.listCount++
		}
	}

	for key, entry := range b.cache {
		if entry.frame != ctx.Frame {
			delete(b.cache, key)
		}
	}
}

// buildList culls, classifies and sorts the renderables of layer into list,
// reusing the cached order when nothing affecting it changed. A non-nil
// subtree limits the list to renderables below that node.
func (b *instructionBuilder) buildList(ctx *UpdateContext, task *RenderTask, layer *Layer, subtree *Node,
	list *RenderList, revision uint64, stats *frameStats) {
	buf := ctx.Buffer
	cam := task.camera
	view := cam.ViewMatrix(buf)
	frustum := cam.Frustum(buf)

	list.sourceLayer = layer
	list.clippingBox, list.hasClipping = layer.ClippingBox()

	sum := checksumSeed
	for _, r := range layer.renderables {
		node, rend := r.node, r.renderer
		if rend.destroyed {
			continue
		}
		if subtree != nil && !isAncestor(subtree, node) {
			continue
		}
		if task.culling && !modifiesGeometry(rend) {
			center, radius := boundingSphere(node, rend, buf)
			if !frustum.SphereInFrustum(center, radius) {
				stats.culledCount++
				continue
			}
		}
		opacity := rend.Classify(buf, node)
		if opacity == Transparent {
			continue
		}

		it := list.nextItem()
		fillItem(it, node, rend, layer, view, opacity, buf)
		it.index = int32(list.count - 1)

		sum = checksumMix(sum, uint64(rend.id)<<32|uint64(node.id))
		sum = checksumMix(sum, uint64(opacity))
		for _, m := range rend.uniformMaps(node) {
			if m != nil {
				sum = checksumMix(sum, m.changes)
			}
		}
	}
	list.checksum = sum
	stats.itemCount += list.count

	if list.count == 0 {
		return
	}

	key := listCacheKey{task: task, layer: layer}
	entry := b.cache[key]
	if entry != nil && entry.count == list.count && entry.checksum == sum &&
		entry.revision == revision && entry.view == view && layer.canReuseRenderers(buf) {
		b.reorder(list, entry.order)
		list.reused = true
		stats.reusedLists++
	} else {
		if entry == nil {
			entry = &listCache{}
			b.cache[key] = entry
		}
		b.scratch = mergeSort(list.Items(), b.scratch, comparatorFor(layer.behavior, layer.hasClipping))
		entry.order = entry.order[:0]
		for _, it := range list.Items() {
			entry.order = append(entry.order, it.index)
		}
		entry.count = list.count
		entry.checksum = sum
		entry.revision = revision
		entry.view = view
	}
	entry.frame = ctx.Frame

	list.flags = listFlags(layer, list.Items())
}

// reorder arranges items in a previously computed order of build indices.
func (b *instructionBuilder) reorder(list *RenderList, order []int32) {
	items := list.Items()
	if cap(b.scratch) < len(items) {
		b.scratch = make([]RenderItem, len(items))
	}
	scratch := b.scratch[:len(items)]
	for i, idx := range order {
		scratch[i] = items[idx]
	}
	copy(items, scratch)
}

// fillItem snapshots everything the render stage needs from node and rend.
func fillItem(it *RenderItem, node *Node, rend *Renderer, layer *Layer, view mgl32.Mat4, opacity Opacity, buf BufferIndex) {
	model := node.WorldMatrix(buf)
	pos := node.WorldPosition(buf)
	color := node.WorldColor(buf)
	color[3] *= rend.opacity.Get(buf).Float()

	depth := rend.depthIndex
	if layer.behavior == Layer2D {
		depth += int32(node.depth * TreeDepthMultiplier)
	}

	it.Node = node
	it.Renderer = rend
	it.ModelMatrix = model
	it.ModelViewMatrix = view.Mul4(model)
	it.Size = node.size.Get(buf).Vector3()
	it.Color = color
	it.DepthIndex = depth
	it.Opacity = opacity
	it.DepthWrite = rend.writesDepth(opacity)
	it.Z = view.Mul4x1(pos.Vec4(1))[2]
	it.ClippingID = node.clippingID
	it.IsClipping = node.clippingMode == ClipChildren
	it.shaderID = rend.shaderID()
	it.textureID = rend.textureSetID()
	it.geometryID = rend.geometryID()
	it.Geometry, it.Texture, it.Program, it.Blend = rend.handles()

	maps := rend.uniformMaps(node)
	it.Uniforms = collectUniforms(it.Uniforms, maps[:]...)
}

// listFlags decides which buffers the backend prepares for a list.
func listFlags(layer *Layer, items []RenderItem) RenderListFlags {
	var f RenderListFlags
	if !layer.depthTestDisabled {
		single := len(items) == 1 && !items[0].DepthWrite && items[0].Opacity != Opaque
		if !single {
			f |= DepthBufferEnabled | DepthWrite | DepthClear
		}
	}
	if layer.hasClipping {
		f |= StencilBufferEnabled | StencilWrite | StencilClear
	}
	return f
}

func modifiesGeometry(r *Renderer) bool {
	s := r.shader()
	return s != nil && s.HasHint(HintModifiesGeometry)
}

// boundingSphere returns the world bounding sphere of node as drawn by r.
// Without geometry bounds the sphere encloses the node's scaled size.
func boundingSphere(n *Node, r *Renderer, buf BufferIndex) (mgl32.Vec3, float32) {
	pos := n.WorldPosition(buf)
	extent := mulVec3(n.size.Get(buf).Vector3(), n.WorldScale(buf))
	if r.geometry != nil {
		if c, radius, ok := r.geometry.Bounds(); ok {
			center := pos.Add(n.WorldOrientation(buf).Rotate(mulVec3(c, extent)))
			m := max(abs32(extent[0]), abs32(extent[1]), abs32(extent[2]))
			return center, radius * m
		}
	}
	return pos, extent.Len() * 0.5
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// FNV-1a over 64-bit words.
const (
	checksumSeed  uint64 = 14695981039346656037
	checksumPrime uint64 = 1099511628211
)

func checksumMix(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= checksumPrime
		v >>= 8
	}
	return h
}
