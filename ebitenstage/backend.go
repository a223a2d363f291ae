package ebitenstage

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/arbor"
)

// Mesh is implemented by geometry handles that carry their own triangles.
// Positions are in normalized node space, where the node's size spans one
// unit centered on the origin.
type Mesh interface {
	Positions() []mgl32.Vec3
	TexCoords() []mgl32.Vec2
	Indices() []uint32
}

// quad is the default geometry: a unit square centered on the node.
var (
	quadPositions = []mgl32.Vec3{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {-0.5, 0.5, 0}, {0.5, 0.5, 0}}
	quadTexCoords = []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	quadIndices   = []uint32{0, 1, 2, 1, 3, 2}
)

// whitePixel is sampled by items without a texture.
var whitePixel *ebiten.Image

func init() {
	whitePixel = ebiten.NewImage(1, 1)
	whitePixel.Fill(color.White)
}

// batchKey groups consecutive items drawn in one DrawTriangles32 call.
type batchKey struct {
	src   *ebiten.Image
	blend arbor.BlendEquation
	clip  image.Rectangle
}

// Stats counts the work of the last frame.
type Stats struct {
	Instructions int
	Lists        int
	Items        int
	DrawCalls    int
	Released     int
}

// Backend draws arbor render instructions with ebiten. Items are drawn in
// list order, so depth and stencil flags are honored through sorting and
// rectangular clipping rather than GPU buffers.
type Backend struct {
	logger *slog.Logger
	screen *ebiten.Image

	// current instruction
	target   *ebiten.Image
	viewport image.Rectangle
	proj     mgl32.Mat4
	clips    map[uint32]image.Rectangle

	verts []ebiten.Vertex
	inds  []uint32
	batch batchKey

	shaderOpts ebiten.DrawTrianglesShaderOptions
	stats      Stats

	// OnRelease, when set, is called for every handle released. Images are
	// deallocated before it runs.
	OnRelease func(h arbor.ResourceHandle)
}

// NewBackend creates a backend. logger may be nil.
func NewBackend(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		logger: logger,
		clips:  make(map[uint32]image.Rectangle),
	}
}

// SetScreen sets the image instructions without a target draw to. Call it
// before Core.Render every frame.
func (b *Backend) SetScreen(screen *ebiten.Image) {
	b.screen = screen
	b.stats = Stats{}
}

// Stats returns the counters of the frame since the last SetScreen.
func (b *Backend) Stats() Stats { return b.stats }

// BeginInstruction implements arbor.Backend.
func (b *Backend) BeginInstruction(ri *arbor.RenderInstruction) {
	b.stats.Instructions++
	target, ok := ri.Target.(*ebiten.Image)
	if !ok || target == nil {
		target = b.screen
	}
	b.target = target
	if target == nil {
		return
	}
	b.viewport = viewportRect(target.Bounds(), ri.Viewport)
	b.proj = ri.ProjectionMatrix
	clear(b.clips)

	if ri.Clear {
		dst := target.SubImage(b.viewport).(*ebiten.Image)
		dst.Fill(toRGBA(ri.ClearColor))
	}
}

// DrawList implements arbor.Backend.
func (b *Backend) DrawList(ri *arbor.RenderInstruction, list *arbor.RenderList) {
	if b.target == nil {
		return
	}
	b.stats.Lists++

	layerClip := b.viewport
	if box, ok := list.ClippingBox(); ok {
		layerClip = layerClip.Intersect(image.Rect(
			b.viewport.Min.X+int(box.X),
			b.viewport.Min.Y+int(box.Y),
			b.viewport.Min.X+int(box.X+box.Width),
			b.viewport.Min.Y+int(box.Y+box.Height),
		))
	}

	items := list.Items()
	for i := range items {
		b.drawItem(ri, &items[i], layerClip)
	}
	b.flush()
}

// EndInstruction implements arbor.Backend.
func (b *Backend) EndInstruction(*arbor.RenderInstruction) {
	b.flush()
	b.target = nil
}

// Release implements arbor.Backend.
func (b *Backend) Release(h arbor.ResourceHandle) {
	b.stats.Released++
	switch v := h.(type) {
	case *ebiten.Image:
		v.Deallocate()
	case *ebiten.Shader:
		v.Deallocate()
	}
	if b.OnRelease != nil {
		b.OnRelease(h)
	}
}

func (b *Backend) drawItem(ri *arbor.RenderInstruction, it *arbor.RenderItem, layerClip image.Rectangle) {
	b.stats.Items++

	clip := layerClip
	if it.ClippingID != 0 {
		if r, ok := b.clips[it.ClippingID]; ok {
			clip = clip.Intersect(r)
		}
	}
	if clip.Empty() {
		return
	}

	src, _ := it.Texture.(*ebiten.Image)
	if src == nil {
		src = whitePixel
	}

	positions, texCoords, indices := quadPositions, quadTexCoords, quadIndices
	if m, ok := it.Geometry.(Mesh); ok && len(m.Indices()) > 0 {
		positions, texCoords, indices = m.Positions(), m.TexCoords(), m.Indices()
	}

	shader, _ := it.Program.(*ebiten.Shader)
	key := batchKey{src: src, blend: it.Blend, clip: clip}
	if shader != nil || key != b.batch {
		b.flush()
		b.batch = key
	}

	mvp := b.proj.Mul4(it.ModelViewMatrix)
	sw, sh := float32(src.Bounds().Dx()), float32(src.Bounds().Dy())
	sx, sy := float32(src.Bounds().Min.X), float32(src.Bounds().Min.Y)

	// Premultiplied RGBA.
	a := it.Color[3]
	cr, cg, cb := it.Color[0]*a, it.Color[1]*a, it.Color[2]*a

	var bounds image.Rectangle
	base := uint32(len(b.verts))
	for i, p := range positions {
		dx, dy := b.project(mvp, mgl32.Vec3{p[0] * it.Size[0], p[1] * it.Size[1], p[2] * it.Size[2]})
		var u, v float32
		if i < len(texCoords) {
			u, v = texCoords[i][0], texCoords[i][1]
		}
		b.verts = append(b.verts, ebiten.Vertex{
			DstX:   dx,
			DstY:   dy,
			SrcX:   sx + u*sw,
			SrcY:   sy + v*sh,
			ColorR: cr,
			ColorG: cg,
			ColorB: cb,
			ColorA: a,
		})
		pt := image.Pt(int(dx), int(dy))
		if i == 0 {
			bounds = image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))}
		} else {
			bounds = bounds.Union(image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))})
		}
	}
	for _, idx := range indices {
		b.inds = append(b.inds, base+idx)
	}

	if it.IsClipping {
		b.clips[it.ClippingID] = bounds.Intersect(clip)
	}

	if shader != nil {
		b.flushShader(ri, it, shader)
	}
}

// project maps a node-local point to target pixels.
func (b *Backend) project(mvp mgl32.Mat4, p mgl32.Vec3) (float32, float32) {
	c := mvp.Mul4x1(p.Vec4(1))
	if c[3] != 0 {
		c = c.Mul(1 / c[3])
	}
	vw, vh := float32(b.viewport.Dx()), float32(b.viewport.Dy())
	x := float32(b.viewport.Min.X) + (c[0]+1)*0.5*vw
	y := float32(b.viewport.Min.Y) + (1-c[1])*0.5*vh
	return x, y
}

// flush submits accumulated vertices as a single DrawTriangles32 call.
func (b *Backend) flush() {
	if len(b.inds) == 0 || b.target == nil {
		b.verts = b.verts[:0]
		b.inds = b.inds[:0]
		return
	}
	dst := b.target.SubImage(b.batch.clip).(*ebiten.Image)

	var op ebiten.DrawTrianglesOptions
	op.Blend = EbitenBlend(b.batch.blend)
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	dst.DrawTriangles32(b.verts, b.inds, b.batch.src, &op)
	b.stats.DrawCalls++

	b.verts = b.verts[:0]
	b.inds = b.inds[:0]
}

// flushShader draws the pending item with its Kage program, passing the
// item's uniforms by name.
func (b *Backend) flushShader(ri *arbor.RenderInstruction, it *arbor.RenderItem, shader *ebiten.Shader) {
	dst := b.target.SubImage(b.batch.clip).(*ebiten.Image)

	op := &b.shaderOpts
	if op.Uniforms == nil {
		op.Uniforms = make(map[string]any)
	}
	clear(op.Uniforms)
	for _, u := range it.Uniforms {
		op.Uniforms[u.Name] = uniformValue(u.Input.Input(ri.Buffer))
	}
	op.Images[0] = b.batch.src
	op.Blend = EbitenBlend(b.batch.blend)
	dst.DrawTrianglesShader32(b.verts, b.inds, shader, op)
	b.stats.DrawCalls++

	b.verts = b.verts[:0]
	b.inds = b.inds[:0]
	b.batch = batchKey{}
}

// uniformValue converts a property value to the form Kage uniforms accept.
func uniformValue(v arbor.Value) any {
	switch v.Kind() {
	case arbor.KindBool:
		if v.Bool() {
			return float32(1)
		}
		return float32(0)
	case arbor.KindFloat:
		return v.Float()
	case arbor.KindInt:
		return v.Int()
	case arbor.KindVector2:
		x := v.Vector2()
		return x[:]
	case arbor.KindVector3:
		x := v.Vector3()
		return x[:]
	case arbor.KindVector4:
		x := v.Vector4()
		return x[:]
	case arbor.KindQuaternion:
		q := v.Quaternion()
		return []float32{q.V[0], q.V[1], q.V[2], q.W}
	case arbor.KindMatrix3:
		m := v.Matrix3()
		return m[:]
	case arbor.KindMatrix:
		m := v.Matrix()
		return m[:]
	default:
		return nil
	}
}

func viewportRect(bounds image.Rectangle, vp arbor.Rect) image.Rectangle {
	if vp.Width <= 0 || vp.Height <= 0 {
		return bounds
	}
	r := image.Rect(
		bounds.Min.X+int(vp.X),
		bounds.Min.Y+int(vp.Y),
		bounds.Min.X+int(vp.X+vp.Width),
		bounds.Min.Y+int(vp.Y+vp.Height),
	)
	return r.Intersect(bounds)
}

func toRGBA(c arbor.Color) color.RGBA {
	clamp := func(v float32) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		default:
			return uint8(v*255 + 0.5)
		}
	}
	a := clamp(c[3])
	return color.RGBA{
		R: clamp(c[0] * c[3]),
		G: clamp(c[1] * c[3]),
		B: clamp(c[2] * c[3]),
		A: a,
	}
}

var _ arbor.Backend = (*Backend)(nil)
