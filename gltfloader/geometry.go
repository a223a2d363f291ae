package gltfloader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrNoGeometry is returned for documents without triangle primitives.
var ErrNoGeometry = errors.New("gltfloader: document has no triangle geometry")

// GeometryData is the geometry of every triangle primitive of a glTF
// document, merged into one vertex stream. Positions are scaled so the
// largest extent spans one unit, which is the normalized node space arbor
// sizes geometry in.
type GeometryData struct {
	Name string

	positions []mgl32.Vec3
	texCoords []mgl32.Vec2
	indices   []uint32

	center mgl32.Vec3
	radius float32
	alpha  bool
}

// Positions returns the normalized vertex positions.
func (g *GeometryData) Positions() []mgl32.Vec3 { return g.positions }

// TexCoords returns one texture coordinate per position, or nil.
func (g *GeometryData) TexCoords() []mgl32.Vec2 { return g.texCoords }

// Indices returns the triangle list.
func (g *GeometryData) Indices() []uint32 { return g.indices }

// Bounds implements arbor.BoundsProvider.
func (g *GeometryData) Bounds() (mgl32.Vec3, float32) { return g.center, g.radius }

// HasAlpha implements arbor.TranslucencyProvider. It is true when any
// primitive uses a blended material.
func (g *GeometryData) HasAlpha() bool { return g.alpha }

// Decode parses a .gltf or .glb document.
func Decode(data []byte) (*GeometryData, error) {
	doc := gltf.NewDocument()
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument extracts the geometry of doc.
func FromDocument(doc *gltf.Document) (*GeometryData, error) {
	g := &GeometryData{}
	for _, mesh := range doc.Meshes {
		if g.Name == "" {
			g.Name = mesh.Name
		}
		for _, prim := range mesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			if err := g.addPrimitive(doc, prim); err != nil {
				return nil, fmt.Errorf("mesh %q: %w", mesh.Name, err)
			}
		}
	}
	if len(g.indices) == 0 {
		return nil, ErrNoGeometry
	}
	g.normalize()
	return g, nil
}

func (g *GeometryData) addPrimitive(doc *gltf.Document, prim *gltf.Primitive) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	pos, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var uv [][2]float32
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uv, err = modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
		if err != nil {
			return fmt.Errorf("read texture coordinates: %w", err)
		}
	}

	base := uint32(len(g.positions))
	for i, p := range pos {
		g.positions = append(g.positions, mgl32.Vec3{p[0], p[1], p[2]})
		var t mgl32.Vec2
		if i < len(uv) {
			t = mgl32.Vec2{uv[i][0], uv[i][1]}
		}
		g.texCoords = append(g.texCoords, t)
	}

	if prim.Indices != nil {
		idx, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
		for _, i := range idx {
			g.indices = append(g.indices, base+i)
		}
	} else {
		for i := range pos {
			g.indices = append(g.indices, base+uint32(i))
		}
	}

	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		if doc.Materials[*prim.Material].AlphaMode == gltf.AlphaBlend {
			g.alpha = true
		}
	}
	return nil
}

// normalize scales positions by the largest extent and fits the bounding
// sphere around the scaled vertices.
func (g *GeometryData) normalize() {
	lo, hi := g.positions[0], g.positions[0]
	for _, p := range g.positions[1:] {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	ext := hi.Sub(lo)
	scale := max(ext[0], ext[1], ext[2])
	if scale <= 0 {
		scale = 1
	}
	for i := range g.positions {
		g.positions[i] = g.positions[i].Mul(1 / scale)
	}
	g.center = lo.Add(hi).Mul(0.5 / scale)
	for _, p := range g.positions {
		g.radius = max(g.radius, p.Sub(g.center).Len())
	}
}
