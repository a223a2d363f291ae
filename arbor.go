package arbor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Color is an RGBA color with components in [0, 1]. Not premultiplied.
type Color = mgl32.Vec4

// ColorWhite is the default node color.
var ColorWhite = Color{1, 1, 1, 1}

// Rect is an axis-aligned rectangle in window coordinates with its origin at
// the top-left.
type Rect struct {
	X, Y, Width, Height float32
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ColorMode selects how a node's world color is derived from its parent.
type ColorMode uint8

const (
	UseOwnMultiplyParentColor ColorMode = iota // parent color * own color (default)
	UseOwnColor                                // ignore the parent
	UseParentColor                             // ignore the own color
	UseOwnMultiplyParentAlpha                  // own rgb, own alpha * parent alpha
)

// String returns the mode name.
func (m ColorMode) String() string {
	switch m {
	case UseOwnColor:
		return "UseOwnColor"
	case UseParentColor:
		return "UseParentColor"
	case UseOwnMultiplyParentColor:
		return "UseOwnMultiplyParentColor"
	case UseOwnMultiplyParentAlpha:
		return "UseOwnMultiplyParentAlpha"
	default:
		return fmt.Sprintf("ColorMode(%d)", uint8(m))
	}
}

// BlendingMode controls whether a renderer is drawn with blending.
type BlendingMode uint8

const (
	BlendingAuto BlendingMode = iota // decide per frame from color and material
	BlendingOff                      // always opaque
	BlendingOn                       // always blended
)

// Opacity is the per-frame classification of a renderer.
type Opacity uint8

const (
	Opaque      Opacity = iota // drawn without blending, writes depth
	Translucent                // drawn with blending
	Transparent                // not drawn at all
)

// String returns the classification name.
func (o Opacity) String() string {
	switch o {
	case Opaque:
		return "Opaque"
	case Translucent:
		return "Translucent"
	case Transparent:
		return "Transparent"
	default:
		return fmt.Sprintf("Opacity(%d)", uint8(o))
	}
}

// BlendEquation is the compositing equation a backend applies for translucent
// items.
type BlendEquation uint8

const (
	BlendSourceOver BlendEquation = iota // standard alpha blending
	BlendAdditive                        // lighter
	BlendMultiply                        // darkens only
	BlendScreen                          // brightens only
)

// DepthWriteMode controls depth writes of a renderer.
type DepthWriteMode uint8

const (
	DepthWriteAuto DepthWriteMode = iota // write depth when opaque
	DepthWriteOff
	DepthWriteOn
)

// ClippingMode controls whether a node clips its descendants.
type ClippingMode uint8

const (
	ClippingDisabled ClippingMode = iota
	ClipChildren                  // descendants are clipped to this node's area
)

// LayerBehavior selects the sorting rules of a layer.
type LayerBehavior uint8

const (
	Layer2D LayerBehavior = iota // depth index and tree depth order
	Layer3D                      // opaque first, translucent back-to-front
)

// TreeDepthMultiplier spreads the tree depth of a node over the depth index
// range in 2D layers so a renderer's own depth index only reorders it among
// nodes of the same depth.
const TreeDepthMultiplier = 1000

// FullyTransparent is the world alpha at and below which a node in
// BlendingAuto mode is not drawn.
const FullyTransparent = 1e-3
