package arbor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCamera2DProjection(t *testing.T) {
	c := NewCamera2D("cam", 800, 600)
	c.update(0)

	tests := []struct {
		pixel mgl32.Vec3
		ndc   mgl32.Vec2
	}{
		{mgl32.Vec3{0, 0, 0}, mgl32.Vec2{-1, 1}},
		{mgl32.Vec3{800, 600, 0}, mgl32.Vec2{1, -1}},
		{mgl32.Vec3{400, 300, 0}, mgl32.Vec2{0, 0}},
	}
	vp := c.ViewProjectionMatrix(0)
	for _, tt := range tests {
		clip := vp.Mul4x1(tt.pixel.Vec4(1))
		if got := clip.Vec2(); !got.ApproxEqualThreshold(tt.ndc, tol) {
			t.Errorf("project(%v) = %v, want %v", tt.pixel, got, tt.ndc)
		}
	}
}

func TestCameraProjectionReachesBothGenerations(t *testing.T) {
	c := NewCamera2D("cam", 800, 600)
	c.update(0)
	c.update(1)
	if c.ProjectionMatrix(0) != c.ProjectionMatrix(1) {
		t.Error("projection differs between generations")
	}

	c.SetClipping(-10, 10)
	c.update(0)
	c.update(1)
	want := mgl32.Ortho(0, 800, 600, 0, -10, 10)
	if c.ProjectionMatrix(1) != want {
		t.Errorf("projection = %v, want %v", c.ProjectionMatrix(1), want)
	}
}

func TestCameraFollowsNode(t *testing.T) {
	n := NewNode("eye")
	bake(n.Position(), Vector3Value(mgl32.Vec3{0, 0, 10}))
	updateNodes(n, 0, nil)

	c := NewPerspectiveCamera("cam", math.Pi/2, 1, 1, 100)
	c.SetNode(n)
	c.update(0)

	view := c.ViewMatrix(0)
	if got := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3(); !vec3Near(got, mgl32.Vec3{0, 0, -10}) {
		t.Errorf("origin in view space = %v, want [0 0 -10]", got)
	}
	f := c.Frustum(0)
	if !f.SphereInFrustum(mgl32.Vec3{0, 0, 0}, 0.1) {
		t.Error("origin in front of the camera should be visible")
	}
	if f.SphereInFrustum(mgl32.Vec3{0, 0, 20}, 0.1) {
		t.Error("point behind the camera should be culled")
	}
}

func TestFrustumSphere(t *testing.T) {
	f := ExtractFrustum(mgl32.Ortho(0, 100, 100, 0, -1, 1))
	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"inside", mgl32.Vec3{50, 50, 0}, 1, true},
		{"outside left", mgl32.Vec3{-10, 50, 0}, 1, false},
		{"straddling left", mgl32.Vec3{-10, 50, 0}, 20, true},
		{"outside bottom", mgl32.Vec3{50, 150, 0}, 10, false},
		{"beyond far", mgl32.Vec3{50, 50, -5}, 1, false},
	}
	for _, tt := range tests {
		if got := f.SphereInFrustum(tt.center, tt.radius); got != tt.want {
			t.Errorf("%s: SphereInFrustum = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFrustumPlanesNormalized(t *testing.T) {
	f := ExtractFrustum(mgl32.Perspective(math.Pi/3, 1.5, 0.1, 50))
	for i, p := range f.Planes {
		if l := p.Normal.Len(); math.Abs(float64(l-1)) > 1e-4 {
			t.Errorf("plane %d normal length = %v, want 1", i, l)
		}
	}
}
