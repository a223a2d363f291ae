package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ResourceHandle is an opaque reference to data owned by a resource provider
// or a render backend, such as a GPU texture or a vertex buffer.
type ResourceHandle any

// BoundsProvider is implemented by geometry handles that know their extent in
// normalized local coordinates.
type BoundsProvider interface {
	Bounds() (center mgl32.Vec3, radius float32)
}

// TranslucencyProvider is implemented by texture and geometry handles that
// know whether they carry alpha.
type TranslucencyProvider interface {
	HasAlpha() bool
}

// ShaderHint is a bitmask of shader properties the builder needs to know.
type ShaderHint uint8

const (
	HintNone                ShaderHint = 0
	HintOutputIsTransparent ShaderHint = 1 << 0 // always blend
	HintModifiesGeometry    ShaderHint = 1 << 1 // vertices move, never cull
)

// Shader is a program a renderer draws with.
type Shader struct {
	PropertyOwner
	hints   ShaderHint
	program ResourceHandle
}

// NewShader creates a shader with the given hints and backend program.
func NewShader(name string, hints ShaderHint, program ResourceHandle) *Shader {
	s := &Shader{hints: hints, program: program}
	s.initOwner(name)
	return s
}

// Hints returns the shader hints.
func (s *Shader) Hints() ShaderHint { return s.hints }

// HasHint reports whether h is set.
func (s *Shader) HasHint(h ShaderHint) bool { return s.hints&h != 0 }

// Program returns the backend program, or nil for the default one.
func (s *Shader) Program() ResourceHandle { return s.program }

func (s *Shader) setHints(h ShaderHint) { s.hints = h }
func (s *Shader) setProgram(p ResourceHandle) { s.program = p }

// Texture is one image bound to a texture set.
type Texture struct {
	id     uint32
	handle ResourceHandle
	alpha  bool
}

// NewTexture wraps a backend handle. hasAlpha marks the image translucent.
func NewTexture(handle ResourceHandle, hasAlpha bool) *Texture {
	t := &Texture{id: nextOwnerID(), handle: handle, alpha: hasAlpha}
	if tp, ok := handle.(TranslucencyProvider); ok {
		t.alpha = t.alpha || tp.HasAlpha()
	}
	return t
}

// ID returns the texture identifier, used to group items by state.
func (t *Texture) ID() uint32 { return t.id }

// Handle returns the backend image, or nil until loaded.
func (t *Texture) Handle() ResourceHandle { return t.handle }

// HasAlpha reports whether the texture has transparent pixels.
func (t *Texture) HasAlpha() bool { return t.alpha }

// resourceLoaded implements resourceBinding.
func (t *Texture) resourceLoaded(h ResourceHandle) {
	t.handle = h
	if tp, ok := h.(TranslucencyProvider); ok {
		t.alpha = tp.HasAlpha()
	}
}

func (t *Texture) resourceFailed(error) {}

// TextureSet is the ordered list of textures sampled by a material.
type TextureSet struct {
	id       uint32
	textures []*Texture
}

// NewTextureSet creates a set from textures.
func NewTextureSet(textures ...*Texture) *TextureSet {
	return &TextureSet{id: nextOwnerID(), textures: textures}
}

// ID returns the set identifier, used to group items by state.
func (ts *TextureSet) ID() uint32 { return ts.id }

// Textures returns the bound textures. The slice must not be modified.
func (ts *TextureSet) Textures() []*Texture { return ts.textures }

// HasAlpha reports whether any texture is translucent.
func (ts *TextureSet) HasAlpha() bool {
	for _, t := range ts.textures {
		if t != nil && t.alpha {
			return true
		}
	}
	return false
}

// Default property indices of a material.
const (
	MaterialColor PropertyIndex = iota
)

// Material combines a shader, textures and a color.
type Material struct {
	PropertyOwner
	color    *Property
	shader   *Shader
	textures *TextureSet
	blend    BlendEquation
}

// NewMaterial creates a material drawing with shader.
func NewMaterial(name string, shader *Shader) *Material {
	m := &Material{shader: shader}
	m.initOwner(name)
	m.color = m.addDefault("materialColor", Vector4Value(ColorWhite))
	return m
}

// Color returns the material color property.
func (m *Material) Color() *Property { return m.color }

// Shader returns the shader, or nil.
func (m *Material) Shader() *Shader { return m.shader }

// TextureSet returns the bound textures, or nil.
func (m *Material) TextureSet() *TextureSet { return m.textures }

// BlendEquation returns how the material composites.
func (m *Material) BlendEquation() BlendEquation { return m.blend }

// SetTextureSet binds textures. Update stage only.
func (m *Material) SetTextureSet(ts *TextureSet) { m.textures = ts }

// SetShader swaps the program. Update stage only.
func (m *Material) SetShader(s *Shader) { m.shader = s }

// SetBlendEquation selects the compositing equation. Update stage only.
func (m *Material) SetBlendEquation(b BlendEquation) { m.blend = b }

// IsTranslucent reports whether drawing with the material always needs
// blending, whatever the node's color.
func (m *Material) IsTranslucent(buf BufferIndex) bool {
	if m.shader != nil && m.shader.HasHint(HintOutputIsTransparent) {
		return true
	}
	if m.textures != nil && m.textures.HasAlpha() {
		return true
	}
	return m.color.Get(buf).Vector4()[3] < 1
}

// Geometry is the vertex data a renderer draws.
type Geometry struct {
	PropertyOwner
	handle       ResourceHandle
	boundsCenter mgl32.Vec3
	boundsRadius float32
	hasBounds    bool
	alpha        bool
}

// NewGeometry creates a geometry around a backend handle, which may be nil
// until a resource load completes.
func NewGeometry(name string, handle ResourceHandle) *Geometry {
	g := &Geometry{}
	g.initOwner(name)
	g.resourceLoaded(handle)
	return g
}

// Handle returns the backend geometry, or nil until loaded.
func (g *Geometry) Handle() ResourceHandle { return g.handle }

// HasAlpha reports whether the loaded data asked for blending.
func (g *Geometry) HasAlpha() bool { return g.alpha }

// SetBounds sets the bounding sphere in normalized local coordinates, where
// the node's size spans one unit on each axis.
func (g *Geometry) SetBounds(center mgl32.Vec3, radius float32) {
	g.boundsCenter = center
	g.boundsRadius = radius
	g.hasBounds = true
}

// Bounds returns the bounding sphere and whether one is known.
func (g *Geometry) Bounds() (mgl32.Vec3, float32, bool) {
	return g.boundsCenter, g.boundsRadius, g.hasBounds
}

// resourceLoaded implements resourceBinding.
func (g *Geometry) resourceLoaded(h ResourceHandle) {
	g.handle = h
	if bp, ok := h.(BoundsProvider); ok {
		c, r := bp.Bounds()
		g.SetBounds(c, r)
	}
	if tp, ok := h.(TranslucencyProvider); ok {
		g.alpha = tp.HasAlpha()
	}
}

func (g *Geometry) resourceFailed(error) {}

// Default property indices of a renderer.
const (
	RendererOpacity PropertyIndex = iota
)

// Renderer draws a geometry with a material for every node it is attached to.
type Renderer struct {
	PropertyOwner
	opacity    *Property
	geometry   *Geometry
	material   *Material
	depthIndex int32
	blending   BlendingMode
	depthWrite DepthWriteMode
}

// NewRenderer creates a renderer drawing geometry with material.
func NewRenderer(name string, geometry *Geometry, material *Material) *Renderer {
	r := &Renderer{geometry: geometry, material: material}
	r.initOwner(name)
	r.opacity = r.addDefault("opacity", FloatValue(1))
	return r
}

// Opacity returns the renderer opacity property.
func (r *Renderer) Opacity() *Property { return r.opacity }

// Geometry returns the drawn geometry, or nil for the default quad.
func (r *Renderer) Geometry() *Geometry { return r.geometry }

// Material returns the material, or nil.
func (r *Renderer) Material() *Material { return r.material }

// DepthIndex returns the position within the layer. Lower draws first.
func (r *Renderer) DepthIndex() int32 { return r.depthIndex }

// BlendingMode returns whether blending is forced, disabled or automatic.
func (r *Renderer) BlendingMode() BlendingMode { return r.blending }

// DepthWriteMode returns whether the renderer writes depth.
func (r *Renderer) DepthWriteMode() DepthWriteMode { return r.depthWrite }

// SetDepthIndex moves the renderer within its layer. Update stage only.
func (r *Renderer) SetDepthIndex(d int32) { r.depthIndex = d }

// SetBlendingMode forces or disables blending. Update stage only.
func (r *Renderer) SetBlendingMode(m BlendingMode) { r.blending = m }

// SetDepthWriteMode controls depth writes. Update stage only.
func (r *Renderer) SetDepthWriteMode(m DepthWriteMode) { r.depthWrite = m }

// SetGeometry swaps the geometry. Update stage only.
func (r *Renderer) SetGeometry(g *Geometry) { r.geometry = g }

// SetMaterial swaps the material. Update stage only.
func (r *Renderer) SetMaterial(m *Material) { r.material = m }

// Classify returns the opacity of the renderer drawn for node in generation
// buf.
func (r *Renderer) Classify(buf BufferIndex, node *Node) Opacity {
	switch r.blending {
	case BlendingOn:
		return Translucent
	case BlendingOff:
		return Opaque
	}
	if r.material != nil && r.material.IsTranslucent(buf) {
		return Translucent
	}
	if r.geometry != nil && r.geometry.alpha {
		return Translucent
	}
	alpha := node.WorldColor(buf)[3] * r.opacity.Get(buf).Float()
	switch {
	case alpha <= FullyTransparent:
		return Transparent
	case alpha < 1:
		return Translucent
	default:
		return Opaque
	}
}

// writesDepth reports whether an item with the given opacity writes depth.
func (r *Renderer) writesDepth(o Opacity) bool {
	switch r.depthWrite {
	case DepthWriteOn:
		return true
	case DepthWriteOff:
		return false
	default:
		return o == Opaque
	}
}

func (r *Renderer) shaderID() uint32 {
	if r.material != nil && r.material.shader != nil {
		return r.material.shader.id
	}
	return 0
}

func (r *Renderer) textureSetID() uint32 {
	if r.material != nil && r.material.textures != nil {
		return r.material.textures.id
	}
	return 0
}

func (r *Renderer) geometryID() uint32 {
	if r.geometry != nil {
		return r.geometry.id
	}
	return 0
}

// handles returns the backend handles an item of r draws with.
func (r *Renderer) handles() (geometry, texture, program ResourceHandle, blend BlendEquation) {
	if r.geometry != nil {
		geometry = r.geometry.handle
	}
	if m := r.material; m != nil {
		blend = m.blend
		if m.shader != nil {
			program = m.shader.program
		}
		if m.textures != nil && len(m.textures.textures) > 0 && m.textures.textures[0] != nil {
			texture = m.textures.textures[0].handle
		}
	}
	return geometry, texture, program, blend
}

func (r *Renderer) shader() *Shader {
	if r.material != nil {
		return r.material.shader
	}
	return nil
}

// uniformMaps returns the maps contributing to items drawn for node, in
// precedence order.
func (r *Renderer) uniformMaps(node *Node) [5]*UniformMap {
	maps := [5]*UniformMap{&r.uniforms, &node.uniforms}
	if r.material != nil {
		maps[2] = &r.material.uniforms
		if r.material.shader != nil {
			maps[3] = &r.material.shader.uniforms
		}
	}
	if r.geometry != nil {
		maps[4] = &r.geometry.uniforms
	}
	return maps
}
