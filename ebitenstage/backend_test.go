package ebitenstage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/arbor"
)

func newTestCore() *arbor.Core {
	cfg := arbor.DefaultConfig()
	cfg.Stage.Width, cfg.Stage.Height = 64, 64
	return arbor.New(cfg, nil)
}

func addSprite(core *arbor.Core, name string, r *arbor.Renderer) *arbor.Node {
	n := arbor.NewNode(name)
	core.Add(n)
	core.BakeProperty(n.Size(), arbor.Vector3Value(mgl32.Vec3{16, 16, 0}))
	core.AddRenderer(n, r)
	return n
}

func frame(core *arbor.Core, b *Backend) {
	core.Flush()
	core.Update(1.0 / 60)
	b.SetScreen(ebiten.NewImage(64, 64))
	core.Render(b)
}

func TestBackendDrawsSingleSprite(t *testing.T) {
	core := newTestCore()
	b := NewBackend(nil)
	addSprite(core, "a", arbor.NewRenderer("r", nil, nil))
	frame(core, b)

	got := b.Stats()
	want := Stats{Instructions: 1, Lists: 1, Items: 1, DrawCalls: 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestBackendBatchesSharedTexture(t *testing.T) {
	core := newTestCore()
	b := NewBackend(nil)
	tex := arbor.NewTexture(ebiten.NewImage(4, 4), false)
	mat := arbor.NewMaterial("m", nil)
	mat.SetTextureSet(arbor.NewTextureSet(tex))
	addSprite(core, "a", arbor.NewRenderer("ra", nil, mat))
	addSprite(core, "b", arbor.NewRenderer("rb", nil, mat))
	frame(core, b)

	if got := b.Stats().Items; got != 2 {
		t.Errorf("Items = %d, want 2", got)
	}
	if got := b.Stats().DrawCalls; got != 1 {
		t.Errorf("DrawCalls = %d, want 1", got)
	}
}

func TestBackendSplitsBatchOnBlend(t *testing.T) {
	core := newTestCore()
	b := NewBackend(nil)
	normal := arbor.NewMaterial("normal", nil)
	additive := arbor.NewMaterial("additive", nil)
	additive.SetBlendEquation(arbor.BlendAdditive)
	addSprite(core, "a", arbor.NewRenderer("ra", nil, normal))
	addSprite(core, "b", arbor.NewRenderer("rb", nil, additive))
	frame(core, b)

	if got := b.Stats().DrawCalls; got != 2 {
		t.Errorf("DrawCalls = %d, want 2", got)
	}
}

func TestBackendSkipsWithoutScreen(t *testing.T) {
	core := newTestCore()
	b := NewBackend(nil)
	addSprite(core, "a", arbor.NewRenderer("r", nil, nil))
	core.Flush()
	core.Update(1.0 / 60)
	core.Render(b)

	if got := b.Stats().DrawCalls; got != 0 {
		t.Errorf("DrawCalls = %d, want 0", got)
	}
}

func TestBackendRelease(t *testing.T) {
	b := NewBackend(nil)
	var released []arbor.ResourceHandle
	b.OnRelease = func(h arbor.ResourceHandle) { released = append(released, h) }

	b.Release("mesh-7")
	b.Release(ebiten.NewImage(2, 2))

	if len(released) != 2 {
		t.Fatalf("released %d handles, want 2", len(released))
	}
	if released[0] != "mesh-7" {
		t.Errorf("released[0] = %v, want mesh-7", released[0])
	}
	if got := b.Stats().Released; got != 2 {
		t.Errorf("Stats().Released = %d, want 2", got)
	}
}

func TestProjectOrthographic(t *testing.T) {
	b := NewBackend(nil)
	b.viewport = image.Rect(0, 0, 64, 64)
	mvp := mgl32.Ortho(0, 64, 64, 0, -1000, 1000)

	x, y := b.project(mvp, mgl32.Vec3{10, 20, 0})
	if math.Abs(float64(x-10)) > 1e-3 || math.Abs(float64(y-20)) > 1e-3 {
		t.Errorf("project = (%v, %v), want (10, 20)", x, y)
	}
}

func TestViewportRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name string
		vp   arbor.Rect
		want image.Rectangle
	}{
		{"empty covers target", arbor.Rect{}, bounds},
		{"inside", arbor.Rect{X: 10, Y: 10, Width: 20, Height: 20}, image.Rect(10, 10, 30, 30)},
		{"clipped to target", arbor.Rect{X: 90, Y: 40, Width: 20, Height: 20}, image.Rect(90, 40, 100, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := viewportRect(bounds, tt.vp); got != tt.want {
				t.Errorf("viewportRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToRGBAPremultiplies(t *testing.T) {
	got := toRGBA(arbor.Color{1, 0, 0, 0.5})
	want := color.RGBA{R: 128, A: 128}
	if got != want {
		t.Errorf("toRGBA = %v, want %v", got, want)
	}
	if got := toRGBA(arbor.Color{2, -1, 0, 1}); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("toRGBA out of range = %v", got)
	}
}

func TestEbitenBlend(t *testing.T) {
	if got := EbitenBlend(arbor.BlendSourceOver); got != ebiten.BlendSourceOver {
		t.Errorf("BlendSourceOver = %+v", got)
	}
	if got := EbitenBlend(arbor.BlendAdditive); got != ebiten.BlendLighter {
		t.Errorf("BlendAdditive = %+v", got)
	}
	if got := EbitenBlend(arbor.BlendMultiply); got.BlendFactorSourceRGB != ebiten.BlendFactorDestinationColor {
		t.Errorf("BlendMultiply source factor = %v", got.BlendFactorSourceRGB)
	}
	if got := EbitenBlend(arbor.BlendScreen); got.BlendFactorDestinationRGB != ebiten.BlendFactorOneMinusSourceColor {
		t.Errorf("BlendScreen destination factor = %v", got.BlendFactorDestinationRGB)
	}
	if got := EbitenBlend(arbor.BlendEquation(99)); got != ebiten.BlendSourceOver {
		t.Errorf("unknown equation = %+v, want source-over", got)
	}
}

func TestUniformValue(t *testing.T) {
	if got := uniformValue(arbor.FloatValue(2)); got != float32(2) {
		t.Errorf("float = %v", got)
	}
	if got := uniformValue(arbor.BoolValue(true)); got != float32(1) {
		t.Errorf("bool = %v", got)
	}
	got := uniformValue(arbor.Vector2Value(mgl32.Vec2{1, 2}))
	if diff := cmp.Diff([]float32{1, 2}, got); diff != "" {
		t.Errorf("vector2 mismatch (-want +got):\n%s", diff)
	}
	q := uniformValue(arbor.QuaternionValue(mgl32.QuatIdent()))
	if diff := cmp.Diff([]float32{0, 0, 0, 1}, q); diff != "" {
		t.Errorf("quaternion mismatch (-want +got):\n%s", diff)
	}
}
