package arbor

import "cmp"

// itemCompare orders two items; negative means a draws first.
type itemCompare func(a, b *RenderItem) int

// compareIdentity is the final tie-break so equal keys never depend on
// insertion order.
func compareIdentity(a, b *RenderItem) int {
	if c := cmp.Compare(a.Renderer.id, b.Renderer.id); c != 0 {
		return c
	}
	return cmp.Compare(a.Node.id, b.Node.id)
}

// compareState groups items that share shader, textures and geometry.
func compareState(a, b *RenderItem) int {
	if c := cmp.Compare(a.shaderID, b.shaderID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.textureID, b.textureID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.geometryID, b.geometryID); c != 0 {
		return c
	}
	return compareIdentity(a, b)
}

// compareItems2D orders by depth index, then render state.
func compareItems2D(a, b *RenderItem) int {
	if c := cmp.Compare(a.DepthIndex, b.DepthIndex); c != 0 {
		return c
	}
	return compareState(a, b)
}

// compareClipping keeps each clipping region contiguous with the node that
// defines it drawn first.
func compareClipping(a, b *RenderItem) int {
	if c := cmp.Compare(a.ClippingID, b.ClippingID); c != 0 {
		return c
	}
	if a.IsClipping != b.IsClipping {
		if a.IsClipping {
			return -1
		}
		return 1
	}
	return 0
}

func compareItems2DClipping(a, b *RenderItem) int {
	if c := compareClipping(a, b); c != 0 {
		return c
	}
	return compareItems2D(a, b)
}

// compareItems3D draws opaque items first grouped by state, then translucent
// items back to front.
func compareItems3D(a, b *RenderItem) int {
	aOpaque, bOpaque := a.Opacity == Opaque, b.Opacity == Opaque
	if aOpaque != bOpaque {
		if aOpaque {
			return -1
		}
		return 1
	}
	if !aOpaque {
		// camera looks down -Z, so smaller Z is further away
		if c := cmp.Compare(a.Z, b.Z); c != 0 {
			return c
		}
	}
	return compareState(a, b)
}

func compareItems3DClipping(a, b *RenderItem) int {
	if c := compareClipping(a, b); c != 0 {
		return c
	}
	return compareItems3D(a, b)
}

// comparatorFor picks the ordering of a layer.
func comparatorFor(behavior LayerBehavior, clipping bool) itemCompare {
	switch {
	case behavior == Layer3D && clipping:
		return compareItems3DClipping
	case behavior == Layer3D:
		return compareItems3D
	case clipping:
		return compareItems2DClipping
	default:
		return compareItems2D
	}
}

// mergeSort sorts items in place with scratch as working space and returns
// the (possibly grown) scratch buffer. Stable, bottom-up, no allocation once
// scratch reaches the high-water mark.
func mergeSort(items, scratch []RenderItem, less itemCompare) []RenderItem {
	n := len(items)
	if n <= 1 {
		return scratch
	}
	if cap(scratch) < n {
		scratch = make([]RenderItem, n)
	}
	scratch = scratch[:n]

	a := items
	b := scratch
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi, less)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(items, scratch)
	}
	return scratch
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []RenderItem, lo, mid, hi int, less itemCompare) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if less(&src[i], &src[j]) <= 0 {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
