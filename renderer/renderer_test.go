package renderer

import (
	"errors"
	"math"
	"testing"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/scene/compiler"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

func testScene(t *testing.T) *scene.CompiledScene {
	t.Helper()

	sc := scene.NewScene("test")
	sc.SetCamera(scene.NewCamera(float32(60 * math.Pi / 180)))
	sc.Background = spectral.XYZ{X: 0.1, Y: 0.1, Z: 0.1}

	mesh := sc.Root.AddMesh(scene.NewMesh("quad", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(-1.3, -1, -3), types.XYZ(1, -1, -3), types.XYZ(1, 1.3, -3)}},
		{V: [3]types.Vec3{types.XYZ(-1.3, -1, -3), types.XYZ(1, 1.3, -3), types.XYZ(-1.3, 1.3, -3)}},
	}, scene.NewLambert(spectral.XYZ{X: 0.6, Y: 0.6, Z: 0.6})))
	sc.Root.InstanceObject(mesh, scene.StaticTransform(types.Ident4()))

	light := sc.Root.AddLight(scene.NewSphereLight(0.2, spectral.XYZ{X: 10, Y: 10, Z: 10}))
	sc.Root.InstanceObject(light, scene.StaticTransform(types.Translate4(0, 2, -1)))

	compiled, err := compiler.Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}
	return compiled
}

func TestRenderFrame(t *testing.T) {
	compiled := testScene(t)

	r, err := New(compiled, Options{
		FrameW:          16,
		FrameH:          12,
		SamplesPerPixel: 4,
		NumBounces:      2,
		MinBouncesForRR: 2,
		BlockH:          5,
		Workers:         2,
		Seed:            7,
	})
	if err != nil {
		t.Fatalf("expected renderer creation to succeed; got %v", err)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("expected render to succeed; got %v", err)
	}

	pixels := r.Pixels()
	if expLen := 16 * 12; len(pixels) != expLen {
		t.Fatalf("expected %d pixels; got %d", expLen, len(pixels))
	}

	var total float64
	for i, p := range pixels {
		for _, v := range []float32{p.X, p.Y, p.Z} {
			if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("[pixel %d] expected a finite non-negative estimate; got %#v", i, p)
			}
		}
		total += float64(p.Y)
	}
	if total <= 0 {
		t.Fatal("expected a lit frame")
	}
}

func TestRenderStats(t *testing.T) {
	compiled := testScene(t)

	r, err := New(compiled, Options{
		FrameW:          8,
		FrameH:          8,
		SamplesPerPixel: 1,
		NumBounces:      1,
		MinBouncesForRR: 1,
		BlockH:          3,
	})
	if err != nil {
		t.Fatalf("expected renderer creation to succeed; got %v", err)
	}
	if err := r.Render(); err != nil {
		t.Fatalf("expected render to succeed; got %v", err)
	}

	stats := r.Stats()
	if expBlocks := 3; len(stats.Blocks) != expBlocks {
		t.Fatalf("expected %d block stats; got %d", expBlocks, len(stats.Blocks))
	}
	var percent float32
	var rows uint32
	for _, b := range stats.Blocks {
		percent += b.FramePercent
		rows += b.BlockH
	}
	if rows != 8 {
		t.Fatalf("expected block stats to cover 8 rows; got %d", rows)
	}
	if types.Absf32(percent-100) > 1e-3 {
		t.Fatalf("expected block percentages to sum to 100; got %f", percent)
	}
	if stats.RenderTime <= 0 {
		t.Fatal("expected a positive render time")
	}
}

func TestRenderDeterminism(t *testing.T) {
	compiled := testScene(t)
	opts := Options{
		FrameW:          8,
		FrameH:          8,
		SamplesPerPixel: 2,
		NumBounces:      2,
		MinBouncesForRR: 2,
		BlockH:          4,
		Workers:         4,
		Seed:            42,
	}

	frames := make([][]spectral.XYZ, 2)
	for run := range frames {
		r, err := New(compiled, opts)
		if err != nil {
			t.Fatalf("[run %d] expected renderer creation to succeed; got %v", run, err)
		}
		if err := r.Render(); err != nil {
			t.Fatalf("[run %d] expected render to succeed; got %v", run, err)
		}
		frames[run] = r.Pixels()
	}

	for i := range frames[0] {
		if frames[0][i] != frames[1][i] {
			t.Fatalf("[pixel %d] expected identical frames for the same seed; got %#v and %#v", i, frames[0][i], frames[1][i])
		}
	}
}

func TestRenderInterrupt(t *testing.T) {
	compiled := testScene(t)

	r, err := New(compiled, Options{
		FrameW:          8,
		FrameH:          8,
		SamplesPerPixel: 1,
		NumBounces:      1,
		MinBouncesForRR: 1,
		BlockH:          2,
	})
	if err != nil {
		t.Fatalf("expected renderer creation to succeed; got %v", err)
	}

	r.Interrupt()
	if err := r.Render(); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted; got %v", err)
	}
}

func TestRendererOptionValidation(t *testing.T) {
	compiled := testScene(t)

	type spec struct {
		scene  *scene.CompiledScene
		opts   Options
		expErr error
	}

	specs := []spec{
		{scene: nil, opts: Options{FrameW: 8, FrameH: 8}, expErr: ErrSceneNotDefined},
		{scene: &scene.CompiledScene{}, opts: Options{FrameW: 8, FrameH: 8}, expErr: ErrCameraNotDefined},
		{scene: compiled, opts: Options{FrameW: 0, FrameH: 8}, expErr: ErrInvalidOption},
		{scene: compiled, opts: Options{FrameW: 8, FrameH: 0}, expErr: ErrInvalidOption},
	}

	for specIndex, spec := range specs {
		if _, err := New(spec.scene, spec.opts); !errors.Is(err, spec.expErr) {
			t.Fatalf("[spec %d] expected %v; got %v", specIndex, spec.expErr, err)
		}
	}
}
