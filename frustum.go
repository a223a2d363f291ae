package arbor

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is the plane normal·p + distance = 0 with its positive half-space
// facing into the frustum.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum holds the six planes of a camera volume.
type Frustum struct {
	Planes [6]Plane // left, right, bottom, top, near, far
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustum extracts normalized planes from a projection * view matrix
// with the Gribb/Hartmann method.
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	rows := [6]mgl32.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r3.Add(r2),
		FrustumFar:    r3.Sub(r2),
	}
	var f Frustum
	for i, r := range rows {
		n := r.Vec3()
		l := n.Len()
		if l > 0 {
			f.Planes[i] = Plane{Normal: n.Mul(1 / l), Distance: r[3] / l}
		} else {
			f.Planes[i] = Plane{Normal: n, Distance: r[3]}
		}
	}
	return f
}

// SphereInFrustum reports whether any part of the sphere lies inside.
func (f *Frustum) SphereInFrustum(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		if p.Normal.Dot(center)+p.Distance < -radius {
			return false
		}
	}
	return true
}
