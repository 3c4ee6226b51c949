package compiler

import (
	"errors"
	"testing"

	"github.com/cessen/psychopath/scene"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

func TestCompileSharedContent(t *testing.T) {
	sc := scene.NewScene("shared")
	sc.SetCamera(scene.NewCamera(1))

	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := sc.Root.AddMesh(scene.NewMesh("tri", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)}},
	}, mat))

	sc.Root.InstanceObject(meshIndex, scene.StaticTransform(types.Translate4(-2, 0, 0)))
	sc.Root.InstanceObject(meshIndex, scene.StaticTransform(types.Translate4(2, 0, 0)))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	if expLen := 2; len(compiled.Root.Instances) != expLen {
		t.Fatalf("expected %d compiled instances; got %d", expLen, len(compiled.Root.Instances))
	}
	if compiled.Root.Instances[0].Mesh != compiled.Root.Instances[1].Mesh {
		t.Fatal("expected both instances to share the same compiled mesh")
	}
}

func TestCompileCoincidentInstanceLeaves(t *testing.T) {
	// Instances whose bounds share a centroid cannot be split apart by
	// the surface area heuristic and end up in one leaf. Every instance
	// must still be referenced by exactly one leaf range.
	sc := scene.NewScene("coincident")
	sc.SetCamera(scene.NewCamera(1))

	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	smallIndex := sc.Root.AddMesh(scene.NewMesh("small", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0)}},
	}, mat))
	bigIndex := sc.Root.AddMesh(scene.NewMesh("big", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(-3, -3, 0), types.XYZ(3, -3, 0), types.XYZ(0, 3, 0)}},
	}, mat))

	sc.Root.InstanceObject(smallIndex, scene.StaticTransform(types.Translate4(0, 0, -2)))
	sc.Root.InstanceObject(bigIndex, scene.StaticTransform(types.Translate4(0, 0, -2)))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	ca := compiled.Root
	if len(ca.LeafInstances) != len(ca.Instances) {
		t.Fatalf("expected leaf ranges to cover %d instances; got %d", len(ca.Instances), len(ca.LeafInstances))
	}

	seen := make(map[int32]int)
	for index := range ca.Nodes {
		node := &ca.Nodes[index]
		if !node.IsLeaf() {
			continue
		}
		first, count := node.Primitives()
		for _, instIndex := range ca.LeafInstances[first : first+count] {
			seen[instIndex]++
		}
	}
	for index := range ca.Instances {
		if seen[int32(index)] != 1 {
			t.Fatalf("expected instance %d to appear in exactly one leaf; got %d", index, seen[int32(index)])
		}
	}
}

func TestCompileMotionBlurBounds(t *testing.T) {
	sc := scene.NewScene("motion")
	sc.SetCamera(scene.NewCamera(1))

	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := sc.Root.AddMesh(scene.NewMesh("tri", []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0)}},
	}, mat))

	sc.Root.InstanceObject(meshIndex, scene.NewMotionTransform([]types.Mat4{
		types.Translate4(-3, 0, 0),
		types.Translate4(3, 0, 0),
	}, scene.InterpLinear))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	// The root node bounds must contain the instance bounds at every
	// time sample.
	rootBox := compiled.Root.Nodes[0].BBox()
	for _, tm := range []float32{0, 0.25, 0.5, 0.75, 1} {
		instBox := sc.Root.InstanceBoundsAt(0, tm)
		union := rootBox.Union(instBox)
		if union.Min != rootBox.Min || union.Max != rootBox.Max {
			t.Fatalf("instance bounds at t=%.2f escape the BVH root: root %v instance %v", tm, rootBox, instBox)
		}
	}
}

func TestCompileCollectsDistantLights(t *testing.T) {
	sc := scene.NewScene("distant")
	sc.SetCamera(scene.NewCamera(1))

	sunIndex := sc.Root.AddLight(scene.NewDistantDiscLight(
		0.01, types.XYZ(0, -1, 0), spectral.XYZ{X: 5, Y: 5, Z: 5},
	))
	sc.Root.InstanceObject(sunIndex, scene.StaticTransform(types.Ident4()))

	sphereIndex := sc.Root.AddLight(scene.NewSphereLight(1, spectral.XYZ{X: 2, Y: 2, Z: 2}))
	sc.Root.InstanceObject(sphereIndex, scene.StaticTransform(types.Ident4()))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	if expLen := 1; len(compiled.DistantLights) != expLen {
		t.Fatalf("expected %d distant lights; got %d", expLen, len(compiled.DistantLights))
	}
	// The distant light never enters the spatial hierarchy.
	if expLen := 1; len(compiled.Root.Instances) != expLen {
		t.Fatalf("expected %d compiled instances; got %d", expLen, len(compiled.Root.Instances))
	}
	if len(compiled.Root.LightTree) == 0 {
		t.Fatal("expected a light tree over the sphere light")
	}
}

type fixedSource struct {
	tris []scene.Triangle
	err  error
}

func (s fixedSource) Generate(bounds types.AABB) ([]scene.Triangle, error) {
	return s.tris, s.err
}

func TestCompileDeferredMesh(t *testing.T) {
	sc := scene.NewScene("deferred")
	sc.SetCamera(scene.NewCamera(1))

	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	src := fixedSource{tris: []scene.Triangle{
		{V: [3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)}},
	}}
	meshIndex := sc.Root.AddMesh(scene.NewProceduralMesh(
		"proc", src, types.NewAABB(types.XYZ(0, 0, 0), types.XYZ(1, 1, 1)), mat,
	))
	sc.Root.InstanceObject(meshIndex, scene.StaticTransform(types.Ident4()))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	cm := compiled.Root.Instances[0].Mesh
	if !cm.Deferred() {
		t.Fatal("expected compiled mesh content to be deferred")
	}
	if err = cm.Materialize(); err != nil {
		t.Fatalf("expected deferred content to materialize; got %v", err)
	}
	if expLen := 1; len(cm.Tris) != expLen {
		t.Fatalf("expected %d generated triangles; got %d", expLen, len(cm.Tris))
	}
	if len(cm.Nodes) == 0 {
		t.Fatal("expected generated content to be indexed")
	}
}

func TestCompileDeferredMeshError(t *testing.T) {
	sc := scene.NewScene("deferred error")
	sc.SetCamera(scene.NewCamera(1))

	genErr := errors.New("generation failed")
	mat := scene.NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := sc.Root.AddMesh(scene.NewProceduralMesh(
		"proc", fixedSource{err: genErr}, types.NewAABB(types.XYZ(0, 0, 0), types.XYZ(1, 1, 1)), mat,
	))
	sc.Root.InstanceObject(meshIndex, scene.StaticTransform(types.Ident4()))

	compiled, err := Compile(sc)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}

	cm := compiled.Root.Instances[0].Mesh
	first := cm.Materialize()
	if first == nil {
		t.Fatal("expected materialize to propagate the generation error")
	}
	// The failure is sticky: repeated calls observe the same error.
	if second := cm.Materialize(); second != first {
		t.Fatalf("expected the same error on repeated materialize; got %v", second)
	}
}
