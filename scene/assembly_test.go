package scene

import (
	"testing"

	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

func TestCyclicInstancingDetection(t *testing.T) {
	outer := NewAssembly()
	inner := NewAssembly()

	innerIndex := outer.AddAssembly(inner)
	outer.InstanceAssembly(innerIndex, StaticTransform(types.Ident4()))

	// Close the loop: the inner assembly instances its own ancestor.
	outerIndex := inner.AddAssembly(outer)
	inner.InstanceAssembly(outerIndex, StaticTransform(types.Ident4()))

	if err := outer.Validate(); err != ErrCyclicInstancing {
		t.Fatalf("expected ErrCyclicInstancing; got %v", err)
	}
}

func TestSelfInstancingDetection(t *testing.T) {
	asm := NewAssembly()
	selfIndex := asm.AddAssembly(asm)
	asm.InstanceAssembly(selfIndex, StaticTransform(types.Ident4()))

	if err := asm.Validate(); err != ErrCyclicInstancing {
		t.Fatalf("expected ErrCyclicInstancing; got %v", err)
	}
}

func TestDiamondSharingIsValid(t *testing.T) {
	shared := NewAssembly()
	mat := NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := shared.AddMesh(NewMesh("tri", []Triangle{
		{V: [3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)}},
	}, mat))
	shared.InstanceObject(meshIndex, StaticTransform(types.Ident4()))

	// Two branches both instance the same assembly: a DAG, not a cycle.
	root := NewAssembly()
	left := NewAssembly()
	right := NewAssembly()
	left.InstanceAssembly(left.AddAssembly(shared), StaticTransform(types.Translate4(-1, 0, 0)))
	right.InstanceAssembly(right.AddAssembly(shared), StaticTransform(types.Translate4(1, 0, 0)))
	root.InstanceAssembly(root.AddAssembly(left), StaticTransform(types.Ident4()))
	root.InstanceAssembly(root.AddAssembly(right), StaticTransform(types.Ident4()))

	if err := root.Validate(); err != nil {
		t.Fatalf("expected shared assembly DAG to validate; got %v", err)
	}
}

func TestInstanceTargetValidation(t *testing.T) {
	asm := NewAssembly()
	asm.InstanceObject(3, StaticTransform(types.Ident4()))

	if err := asm.Validate(); err != ErrBadInstanceTarget {
		t.Fatalf("expected ErrBadInstanceTarget; got %v", err)
	}
}

func TestMissingTransformKeys(t *testing.T) {
	asm := NewAssembly()
	mat := NewLambert(spectral.XYZ{X: 0.5, Y: 0.5, Z: 0.5})
	meshIndex := asm.AddMesh(NewMesh("tri", []Triangle{
		{V: [3]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0)}},
	}, mat))
	asm.InstanceObject(meshIndex, MotionTransform{})

	if err := asm.Validate(); err == nil {
		t.Fatal("expected a keyless transform to fail validation")
	}
}
