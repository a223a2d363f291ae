package arbor

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// ResizePolicy decides how one dimension of a node's size is negotiated.
type ResizePolicy uint8

const (
	Fixed                     ResizePolicy = iota // keep the size set on the node
	UseNaturalSize                                // use the content's natural size
	FillToParent                                  // match the parent
	SizeRelativeToParent                          // parent * size mode factor
	SizeFixedOffsetFromParent                     // parent + size mode factor
	FitToChildren                                 // enclose the children
	DimensionDependency                           // copy another dimension of the same node
)

// Dimension is a bitmask of size dimensions.
type Dimension uint8

const (
	Width  Dimension = 1 << 0
	Height Dimension = 1 << 1

	AllDimensions = Width | Height
)

const dimensionCount = 2

func dimensionIndex(d Dimension) int {
	if d == Height {
		return 1
	}
	return 0
}

func dimensionAt(i int) Dimension {
	return Dimension(1 << i)
}

type relayoutData struct {
	policy      [dimensionCount]ResizePolicy
	dependency  [dimensionCount]Dimension
	factor      mgl32.Vec3
	naturalSize mgl32.Vec3
	dirty       Dimension
}

func newRelayoutData() relayoutData {
	return relayoutData{factor: mgl32.Vec3{1, 1, 1}}
}

// SetResizePolicy sets the policy of every dimension in dims.
func (n *Node) SetResizePolicy(policy ResizePolicy, dims Dimension) {
	for i := 0; i < dimensionCount; i++ {
		if dims&dimensionAt(i) != 0 {
			n.relayout.policy[i] = policy
		}
	}
}

// ResizePolicy returns the policy of a single dimension.
func (n *Node) ResizePolicy(dim Dimension) ResizePolicy {
	return n.relayout.policy[dimensionIndex(dim)]
}

// SetDimensionDependency makes dim follow dependency when its policy is
// DimensionDependency.
func (n *Node) SetDimensionDependency(dim, dependency Dimension) {
	n.relayout.dependency[dimensionIndex(dim)] = dependency
}

// SetSizeModeFactor sets the factor or offset used by the relative policies.
func (n *Node) SetSizeModeFactor(f mgl32.Vec3) { n.relayout.factor = f }

// SetNaturalSize sets the size used by UseNaturalSize.
func (n *Node) SetNaturalSize(s mgl32.Vec3) { n.relayout.naturalSize = s }

// IsLayoutDirty reports whether any dimension in dims awaits negotiation.
func (n *Node) IsLayoutDirty(dims Dimension) bool {
	return n.relayout.dirty&dims != 0
}

func (n *Node) setLayoutDirty(dirty bool, dim Dimension) {
	if dirty {
		n.relayout.dirty |= dim
	} else {
		n.relayout.dirty &^= dim
	}
}

// RelayoutDependentOnParent reports whether dim is derived from the parent.
func (n *Node) RelayoutDependentOnParent(dim Dimension) bool {
	switch n.ResizePolicy(dim) {
	case FillToParent, SizeRelativeToParent, SizeFixedOffsetFromParent:
		return true
	}
	return false
}

// RelayoutDependentOnChildren reports whether dim is derived from the children.
func (n *Node) RelayoutDependentOnChildren(dim Dimension) bool {
	return n.ResizePolicy(dim) == FitToChildren
}

// RelayoutDependentOnDimension reports whether dim copies dependency.
func (n *Node) RelayoutDependentOnDimension(dim, dependency Dimension) bool {
	i := dimensionIndex(dim)
	return n.relayout.policy[i] == DimensionDependency && n.relayout.dependency[i] == dependency
}

// RelayoutController tracks nodes whose size must be renegotiated and runs
// the negotiation once per update frame.
type RelayoutController struct {
	roots  []*Node
	stack  []relayoutEntry
	logger *slog.Logger
}

type relayoutEntry struct {
	node *Node
	dim  Dimension
}

// NewRelayoutController creates an idle controller.
func NewRelayoutController(logger *slog.Logger) *RelayoutController {
	if logger == nil {
		logger = discardLogger()
	}
	return &RelayoutController{logger: logger}
}

// RequestRelayout marks dims of n dirty and propagates the request: up to
// parents that fit their children, down to children that follow their parent
// and across dimensions of the same node that depend on each other. Unrelated
// siblings are left alone.
func (rc *RelayoutController) RequestRelayout(n *Node, dims Dimension) {
	if n == nil {
		return
	}
	rc.stack = rc.stack[:0]
	for i := 0; i < dimensionCount; i++ {
		if d := dimensionAt(i); dims&d != 0 {
			rc.stack = append(rc.stack, relayoutEntry{node: n, dim: d})
		}
	}
	for len(rc.stack) > 0 {
		e := rc.stack[len(rc.stack)-1]
		rc.stack = rc.stack[:len(rc.stack)-1]
		rc.propagate(e.node, e.dim)
	}
}

func (rc *RelayoutController) propagate(n *Node, dim Dimension) {
	if n.IsLayoutDirty(dim) {
		return
	}
	n.setLayoutDirty(true, dim)

	for i := 0; i < dimensionCount; i++ {
		if other := dimensionAt(i); other != dim && n.RelayoutDependentOnDimension(other, dim) {
			rc.stack = append(rc.stack, relayoutEntry{node: n, dim: other})
		}
	}

	if p := n.parent; p != nil && p.RelayoutDependentOnChildren(dim) {
		rc.stack = append(rc.stack, relayoutEntry{node: p, dim: dim})
	} else {
		rc.addRoot(n)
	}

	for _, c := range n.children {
		if c.RelayoutDependentOnParent(dim) {
			rc.stack = append(rc.stack, relayoutEntry{node: c, dim: dim})
		}
	}
}

// addRoot records n as the top of a dirty sub-tree, dropping roots that n
// already covers.
func (rc *RelayoutController) addRoot(n *Node) {
	for _, r := range rc.roots {
		if isAncestor(r, n) {
			return
		}
	}
	kept := rc.roots[:0]
	for _, r := range rc.roots {
		if !isAncestor(n, r) {
			kept = append(kept, r)
		}
	}
	clear(rc.roots[len(kept):])
	rc.roots = append(kept, n)
}

// IsRelayoutRequired reports whether a negotiation is pending.
func (rc *RelayoutController) IsRelayoutRequired() bool {
	return len(rc.roots) > 0
}

// Relayout negotiates the size of every dirty node and bakes the result into
// the node's size property for generation buf.
func (rc *RelayoutController) Relayout(buf BufferIndex) int {
	if len(rc.roots) == 0 {
		return 0
	}
	count := 0
	for _, root := range rc.roots {
		if root.IsDestroyed() {
			continue
		}
		parentSize := root.size.Get(buf).Vector3()
		if root.parent != nil {
			parentSize = root.parent.size.Get(buf).Vector3()
		}
		count += negotiate(root, parentSize, buf)
	}
	rc.logger.Debug("Relayout complete.", "roots", len(rc.roots), "negotiated", count)
	clear(rc.roots)
	rc.roots = rc.roots[:0]
	return count
}

// negotiate resolves parent-derived dimensions first, then the children, then
// the dimensions that fit the children or copy another dimension.
func negotiate(n *Node, parentSize mgl32.Vec3, buf BufferIndex) int {
	count := 0
	current := n.size.Get(buf).Vector3()
	size := current
	dirty := n.relayout.dirty

	if dirty != 0 {
		count++
		for i := 0; i < dimensionCount; i++ {
			if dirty&dimensionAt(i) == 0 {
				continue
			}
			switch n.relayout.policy[i] {
			case UseNaturalSize:
				size[i] = n.relayout.naturalSize[i]
			case FillToParent:
				size[i] = parentSize[i]
			case SizeRelativeToParent:
				size[i] = parentSize[i] * n.relayout.factor[i]
			case SizeFixedOffsetFromParent:
				size[i] = parentSize[i] + n.relayout.factor[i]
			}
		}
	}

	for _, c := range n.children {
		count += negotiate(c, size, buf)
	}

	if dirty != 0 {
		for i := 0; i < dimensionCount; i++ {
			if dirty&dimensionAt(i) != 0 && n.relayout.policy[i] == FitToChildren {
				size[i] = childrenExtent(n, i, buf)
			}
		}
		for i := 0; i < dimensionCount; i++ {
			if dirty&dimensionAt(i) != 0 && n.relayout.policy[i] == DimensionDependency {
				size[i] = size[dimensionIndex(n.relayout.dependency[i])]
			}
		}
		n.relayout.dirty = 0
		if size != current {
			n.size.Bake(buf, Vector3Value(size))
		}
	}
	return count
}

// childrenExtent returns the far edge of the furthest child along axis i,
// measured from the parent's origin.
func childrenExtent(n *Node, i int, buf BufferIndex) float32 {
	var extent float32
	for _, c := range n.children {
		cs := c.size.Get(buf).Vector3()
		edge := c.position.Get(buf).Vector3()[i] + cs[i]*(1-c.anchorPoint.Get(buf).Vector3()[i])
		if edge > extent {
			extent = edge
		}
	}
	return extent
}
