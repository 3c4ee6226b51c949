package compiler

import (
	"testing"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

func buildLightScene(t *testing.T) *scene.CompiledScene {
	sc := scene.NewScene("lights")
	sc.SetCamera(scene.NewCamera(1))

	type lightSpec struct {
		energy float32
		pos    types.Vec3
	}
	specs := []lightSpec{
		{1, types.XYZ(-4, 2, 0)},
		{2, types.XYZ(4, 2, 0)},
		{4, types.XYZ(0, 2, -4)},
		{8, types.XYZ(0, 2, 4)},
	}
	for _, spec := range specs {
		index := sc.Root.AddLight(scene.NewSphereLight(0.25, spectral.XYZ{
			X: spec.energy, Y: spec.energy, Z: spec.energy,
		}))
		sc.Root.InstanceObject(index, scene.StaticTransform(
			types.Translate4(spec.pos[0], spec.pos[1], spec.pos[2]),
		))
	}

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}
	return compiled
}

func TestLightTreeEnergyConservation(t *testing.T) {
	compiled := buildLightScene(t)
	tree := compiled.Root.LightTree

	if len(tree) == 0 {
		t.Fatal("expected a non-empty light tree")
	}

	for index := range tree {
		node := &tree[index]
		if node.IsLeaf() {
			continue
		}
		childSum := tree[node.Left].Energy + tree[node.Right].Energy
		if types.Absf32(node.Energy-childSum) > 1e-4 {
			t.Fatalf("node %d energy %f does not match child sum %f", index, node.Energy, childSum)
		}
	}
}

func TestLightTreeOrdinals(t *testing.T) {
	compiled := buildLightScene(t)
	tree := compiled.Root.LightTree

	if expLen := 4; len(compiled.Root.LightOrdinals) != expLen {
		t.Fatalf("expected %d light ordinals; got %d", expLen, len(compiled.Root.LightOrdinals))
	}

	root := &tree[0]
	if root.Start != 0 || root.End != int32(len(compiled.Root.LightOrdinals)) {
		t.Fatalf("expected root ordinal range [0, %d); got [%d, %d)", len(compiled.Root.LightOrdinals), root.Start, root.End)
	}

	for index := range tree {
		node := &tree[index]
		if node.IsLeaf() {
			if node.End != node.Start+1 {
				t.Fatalf("leaf %d covers ordinal range [%d, %d)", index, node.Start, node.End)
			}
			if compiled.Root.LightOrdinals[node.Start] != node.Instance {
				t.Fatalf("leaf %d ordinal %d maps to instance %d; want %d",
					index, node.Start, compiled.Root.LightOrdinals[node.Start], node.Instance)
			}
			continue
		}
		left, right := &tree[node.Left], &tree[node.Right]
		if left.Start != node.Start || right.End != node.End || left.End != right.Start {
			t.Fatalf("node %d ordinal range [%d, %d) does not split cleanly", index, node.Start, node.End)
		}
	}
}

func TestLightSelectionPdfNormalized(t *testing.T) {
	compiled := buildLightScene(t)

	p := types.XYZ(0.5, 0, 0.5)
	nrm := types.XYZ(0, 1, 0)

	var pdfSum float32
	for _, instIndex := range compiled.Root.LightOrdinals {
		pdfSum += compiled.Root.SelectionPdf([]int32{instIndex}, p, nrm, 0)
	}
	if types.Absf32(pdfSum-1) > 1e-4 {
		t.Fatalf("expected selection pdfs to sum to 1; got %f", pdfSum)
	}
}

func TestLightSelectionMatchesPdf(t *testing.T) {
	compiled := buildLightScene(t)

	p := types.XYZ(1, 0, -1)
	nrm := types.XYZ(0, 1, 0)

	// The whittled descent must report exactly the pdf that SelectionPdf
	// recomputes for the chosen light.
	for u := float32(0.05); u < 1; u += 0.1 {
		sel, ok := compiled.Root.SelectLight(p, nrm, u, 0, types.Ident4())
		if !ok {
			t.Fatalf("expected a selection for u=%f", u)
		}
		pdf := compiled.Root.SelectionPdf(sel.Chain, p, nrm, 0)
		if types.Absf32(sel.Pdf-pdf) > 1e-5 {
			t.Fatalf("u=%f: selection pdf %f does not match recomputed pdf %f", u, sel.Pdf, pdf)
		}
	}
}

func TestLightSelectionNoLights(t *testing.T) {
	sc := scene.NewScene("empty")
	sc.SetCamera(scene.NewCamera(1))

	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := sc.Root.AddMesh(scene.NewMesh("tri", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)}},
	}, mat))
	sc.Root.InstanceObject(meshIndex, scene.StaticTransform(types.Ident4()))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	if _, ok := compiled.Root.SelectLight(types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), 0.5, 0, types.Ident4()); ok {
		t.Fatal("expected no selection from a scene without lights")
	}
}

func TestNestedLightTreeSelection(t *testing.T) {
	sc := scene.NewScene("nested lights")
	sc.SetCamera(scene.NewCamera(1))

	inner := scene.NewAssembly()
	lightIndex := inner.AddLight(scene.NewSphereLight(0.25, spectral.XYZ{X: 3, Y: 3, Z: 3}))
	inner.InstanceObject(lightIndex, scene.StaticTransform(types.Translate4(0, 1, 0)))

	innerIndex := sc.Root.AddAssembly(inner)
	sc.Root.InstanceAssembly(innerIndex, scene.StaticTransform(types.Translate4(-5, 0, 0)))
	sc.Root.InstanceAssembly(innerIndex, scene.StaticTransform(types.Translate4(5, 0, 0)))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	p := types.XYZ(0, 0, 0)
	nrm := types.XYZ(0, 1, 0)

	sel, ok := compiled.Root.SelectLight(p, nrm, 0.3, 0, types.Ident4())
	if !ok {
		t.Fatal("expected a selection from the nested assemblies")
	}
	if expLen := 2; len(sel.Chain) != expLen {
		t.Fatalf("expected a selection chain of %d levels; got %d", expLen, len(sel.Chain))
	}

	// The composed transform must place the light at its world position.
	origin := sel.ToWorld.MulPoint(types.XYZ(0, 0, 0))
	if types.Absf32(types.Absf32(origin[0])-5) > 1e-4 || types.Absf32(origin[1]-1) > 1e-4 {
		t.Fatalf("unexpected composed light origin %v", origin)
	}

	// Both instance chains together cover the whole probability mass.
	var pdfSum float32
	for _, rootInst := range []int32{0, 1} {
		pdfSum += compiled.Root.SelectionPdf([]int32{rootInst, 0}, p, nrm, 0)
	}
	if types.Absf32(pdfSum-1) > 1e-4 {
		t.Fatalf("expected nested selection pdfs to sum to 1; got %f", pdfSum)
	}
}
