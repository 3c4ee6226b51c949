package scene

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

func TestSphereLightSamplePdfConsistency(t *testing.T) {
	light := NewSphereLight(0.5, spectral.XYZ{X: 10, Y: 10, Z: 10})
	toWorld := types.Translate4(0, 3, 0)
	p := types.XYZ(0, 0, 0)
	lambdas := spectral.NewSample(0.5)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 64; i++ {
		ls := light.Sample(toWorld, p, rng.Float32(), rng.Float32(), lambdas, 0)
		if ls.Pdf <= 0 {
			t.Fatalf("[sample %d] expected a positive pdf; got %f", i, ls.Pdf)
		}

		// The reported pdf must match the pdf of the sampled direction.
		pdf := light.SamplePdf(toWorld, p, ls.ShadowVec.Normalize(), 0)
		if types.Absf32(ls.Pdf-pdf) > 1e-4*ls.Pdf {
			t.Fatalf("[sample %d] sample pdf %f does not match SamplePdf %f", i, ls.Pdf, pdf)
		}

		// The sampled point lies on the sphere surface.
		hit := p.Add(ls.ShadowVec)
		center := types.XYZ(0, 3, 0)
		dist := hit.Sub(center).Len()
		if types.Absf32(dist-0.5) > 1e-3 {
			t.Fatalf("[sample %d] sampled point %v is %f from the center; want 0.5", i, hit, dist)
		}
	}
}

func TestSphereLightInside(t *testing.T) {
	light := NewSphereLight(2, spectral.XYZ{X: 10, Y: 10, Z: 10})
	toWorld := types.Ident4()
	lambdas := spectral.NewSample(0.25)

	ls := light.Sample(toWorld, types.XYZ(0.1, 0, 0), 0.3, 0.7, lambdas, 0)
	exp := float32(1.0 / (4.0 * math.Pi))
	if types.Absf32(ls.Pdf-exp) > 1e-6 {
		t.Fatalf("expected the uniform sphere pdf %f inside the light; got %f", exp, ls.Pdf)
	}
}

func TestRectLightSampleHitsPlane(t *testing.T) {
	light := NewRectLight(2, 1, spectral.XYZ{X: 10, Y: 10, Z: 10})
	toWorld := types.Translate4(0, 4, 0).Mul4(rotX(-math.Pi / 2))
	p := types.XYZ(0.2, 0, 0.3)
	lambdas := spectral.NewSample(0.75)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 64; i++ {
		ls := light.Sample(toWorld, p, rng.Float32(), rng.Float32(), lambdas, 0)
		if ls.Pdf <= 0 {
			t.Fatalf("[sample %d] expected a positive pdf; got %f", i, ls.Pdf)
		}

		// The shadow vector ends on the light plane.
		hit := p.Add(ls.ShadowVec)
		if types.Absf32(hit[1]-4) > 1e-3 {
			t.Fatalf("[sample %d] sampled point %v is off the light plane", i, hit)
		}

		pdf := light.SamplePdf(toWorld, p, ls.ShadowVec.Normalize(), 0)
		if types.Absf32(ls.Pdf-pdf) > 1e-4*ls.Pdf {
			t.Fatalf("[sample %d] sample pdf %f does not match SamplePdf %f", i, ls.Pdf, pdf)
		}
	}
}

func TestRectLightDegenerate(t *testing.T) {
	light := NewRectLight(2, 1, spectral.XYZ{X: 10, Y: 10, Z: 10})

	// Shading point on the light plane: zero solid angle, zero sample.
	toWorld := types.Ident4()
	ls := light.Sample(toWorld, types.XYZ(5, 0, 0), 0.4, 0.6, spectral.NewSample(0.1), 0)
	if ls.Pdf != 0 {
		t.Fatalf("expected a zero pdf for a degenerate configuration; got %f", ls.Pdf)
	}
}

func TestDistantLightSample(t *testing.T) {
	dir := types.XYZ(0, -1, 0)
	light := NewDistantDiscLight(0.05, dir, spectral.XYZ{X: 5, Y: 5, Z: 5})
	lambdas := spectral.NewSample(0.9)

	ls := light.Sample(types.Ident4(), types.XYZ(0, 0, 0), 0.5, 0.5, lambdas, 0)
	if !ls.Distant {
		t.Fatal("expected a distant sample")
	}
	if types.Absf32(ls.ShadowVec.Len()-1) > 1e-4 {
		t.Fatalf("expected a unit shadow vector; got length %f", ls.ShadowVec.Len())
	}

	// The shadow vector points back toward the light within the disc's
	// angular radius.
	cos := ls.ShadowVec.Dot(dir.Neg())
	if cos < float32(math.Cos(0.05)) {
		t.Fatalf("expected the sample within the disc cone; cos %f", cos)
	}
}

func TestLightIntersect(t *testing.T) {
	type spec struct {
		light  *Light
		origin types.Vec3
		dir    types.Vec3
		expOk  bool
		expT   float32
	}

	sphere := NewSphereLight(1, spectral.XYZ{X: 1, Y: 1, Z: 1})
	rect := NewRectLight(2, 2, spectral.XYZ{X: 1, Y: 1, Z: 1})
	distant := NewDistantDiscLight(0.05, types.XYZ(0, -1, 0), spectral.XYZ{X: 1, Y: 1, Z: 1})

	specs := []spec{
		{sphere, types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), true, 4},
		{sphere, types.XYZ(0, 0, 5), types.XYZ(0, 1, 0), false, 0},
		{sphere, types.XYZ(0, 0, 0), types.XYZ(0, 0, 1), true, 1},
		{rect, types.XYZ(0.5, 0.5, 3), types.XYZ(0, 0, -1), true, 3},
		{rect, types.XYZ(5, 0, 3), types.XYZ(0, 0, -1), false, 0},
		{rect, types.XYZ(0, 0, 3), types.XYZ(1, 0, 0), false, 0},
		{distant, types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), false, 0},
	}

	for idx, s := range specs {
		gotT, gotOk := s.light.Intersect(s.origin, s.dir, 0)
		if gotOk != s.expOk {
			t.Fatalf("[spec %d] expected hit=%t; got %t", idx, s.expOk, gotOk)
		}
		if s.expOk && types.Absf32(gotT-s.expT) > 1e-4 {
			t.Fatalf("[spec %d] expected t=%f; got %f", idx, s.expT, gotT)
		}
	}
}

func TestLightMotionSequences(t *testing.T) {
	light := &Light{
		Type:   SphereLight,
		Radii:  []float32{1, 3},
		Colors: []spectral.XYZ{{X: 2, Y: 2, Z: 2}, {X: 4, Y: 4, Z: 4}},
	}

	// Radius and color lerp over the shutter interval.
	if gotT, ok := light.Intersect(types.XYZ(0, 0, 10), types.XYZ(0, 0, -1), 0.5); !ok || types.Absf32(gotT-8) > 1e-4 {
		t.Fatalf("expected the lerped radius at t=0.5 to give a hit at 8; got %f (hit=%t)", gotT, ok)
	}

	if got := light.Power(); types.Absf32(got-3) > 1e-4 {
		t.Fatalf("expected mean luminance power 3; got %f", got)
	}
}

func rotX(angle float32) types.Mat4 {
	sin, cos := math.Sincos(float64(angle))
	m := types.Ident4()
	m.Set(1, 1, float32(cos))
	m.Set(1, 2, -float32(sin))
	m.Set(2, 1, float32(sin))
	m.Set(2, 2, float32(cos))
	return m
}
