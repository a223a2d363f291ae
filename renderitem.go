package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// RenderItem is a frozen snapshot of one renderer drawn for one node in one
// frame. The render stage reads it without touching the scene graph.
type RenderItem struct {
	Node            *Node
	Renderer        *Renderer
	ModelMatrix     mgl32.Mat4
	ModelViewMatrix mgl32.Mat4
	Size            mgl32.Vec3
	Color           Color
	DepthIndex      int32
	Opacity         Opacity
	DepthWrite      bool
	Z               float32 // camera-space depth of the node
	ClippingID      uint32  // clipping region the item belongs to, 0 for none
	IsClipping      bool    // the node itself defines the region
	Uniforms        []Uniform

	// Backend handles of the objects the item draws with, nil when unset.
	Geometry ResourceHandle
	Texture  ResourceHandle // first texture of the material
	Program  ResourceHandle
	Blend    BlendEquation

	shaderID   uint32
	textureID  uint32
	geometryID uint32
	index      int32 // position before sorting
}

// RenderListFlags tell the backend which buffers a list uses.
type RenderListFlags uint8

const (
	DepthBufferEnabled   RenderListFlags = 1 << 0
	DepthWrite           RenderListFlags = 1 << 1
	DepthClear           RenderListFlags = 1 << 2
	StencilBufferEnabled RenderListFlags = 1 << 3
	StencilWrite         RenderListFlags = 1 << 4
	StencilClear         RenderListFlags = 1 << 5
)

// RenderList is the sorted items of one layer for one render task.
type RenderList struct {
	items       []RenderItem
	count       int
	flags       RenderListFlags
	sourceLayer *Layer
	clippingBox Rect
	hasClipping bool
	checksum    uint64
	reused      bool
}

// Items returns the items in draw order.
func (l *RenderList) Items() []RenderItem { return l.items[:l.count] }

// Len returns the number of items.
func (l *RenderList) Len() int { return l.count }

// Flags returns the depth and stencil flags of the list.
func (l *RenderList) Flags() RenderListFlags { return l.flags }

// SourceLayer returns the layer the list was built from.
func (l *RenderList) SourceLayer() *Layer { return l.sourceLayer }

// Reused reports whether the order was taken from the previous list of the
// layer instead of sorting.
func (l *RenderList) Reused() bool { return l.reused }

// ClippingBox returns the layer clipping box and whether it applies.
func (l *RenderList) ClippingBox() (Rect, bool) { return l.clippingBox, l.hasClipping }

// reset empties the list for reuse, keeping allocated items.
func (l *RenderList) reset() {
	l.count = 0
	l.flags = 0
	l.sourceLayer = nil
	l.hasClipping = false
	l.clippingBox = Rect{}
	l.checksum = 0
	l.reused = false
}

// nextItem returns the next free item, growing the list when needed.
func (l *RenderList) nextItem() *RenderItem {
	if l.count == len(l.items) {
		l.items = append(l.items, RenderItem{})
	}
	it := &l.items[l.count]
	l.count++
	uniforms := it.Uniforms[:0]
	*it = RenderItem{Uniforms: uniforms}
	return it
}

// RenderInstruction is everything the render stage needs to draw one render
// task for one frame. It is immutable once published.
type RenderInstruction struct {
	Task             *RenderTask
	Viewport         Rect
	Clear            bool
	ClearColor       Color
	ViewMatrix       mgl32.Mat4
	ProjectionMatrix mgl32.Mat4
	Target           ResourceHandle
	// Buffer is the generation the instruction was prepared for. Backends
	// read uniform inputs with it.
	Buffer BufferIndex

	lists     []*RenderList
	listCount int
}

// Lists returns the render lists in layer order.
func (ri *RenderInstruction) Lists() []*RenderList { return ri.lists[:ri.listCount] }

func (ri *RenderInstruction) reset() {
	for _, l := range ri.lists[:ri.listCount] {
		l.reset()
	}
	ri.listCount = 0
	ri.Task = nil
	ri.Target = nil
	ri.Clear = false
}

func (ri *RenderInstruction) nextList() *RenderList {
	if ri.listCount == len(ri.lists) {
		ri.lists = append(ri.lists, &RenderList{})
	}
	l := ri.lists[ri.listCount]
	ri.listCount++
	l.reset()
	return l
}

// dropLastList returns an unused list obtained from nextList.
func (ri *RenderInstruction) dropLastList() {
	ri.listCount--
}

// RenderInstructionContainer holds the instructions of both generations.
type RenderInstructionContainer struct {
	instructions DoubleBuffered[[]*RenderInstruction]
	counts       [2]int
}

// reset discards the instructions of generation buf.
func (c *RenderInstructionContainer) reset(buf BufferIndex) {
	for _, ri := range c.instructions.Get(buf)[:c.counts[buf]] {
		ri.reset()
	}
	c.counts[buf] = 0
}

// next returns a cleared instruction in generation buf.
func (c *RenderInstructionContainer) next(buf BufferIndex) *RenderInstruction {
	list := c.instructions.Ref(buf)
	if c.counts[buf] == len(*list) {
		*list = append(*list, &RenderInstruction{})
	}
	ri := (*list)[c.counts[buf]]
	c.counts[buf]++
	ri.reset()
	return ri
}

// Instructions returns the instructions of generation buf in task order.
func (c *RenderInstructionContainer) Instructions(buf BufferIndex) []*RenderInstruction {
	return c.instructions.Get(buf)[:c.counts[buf]]
}
