package scene

import (
	"fmt"

	"github.com/cessen/psychopath/types"
)

type InstanceType uint8

const (
	// The instance references an object (mesh or light) in the assembly's
	// object list.
	ObjectInstance InstanceType = iota

	// The instance references a nested assembly.
	AssemblyInstance
)

// An object that can be instanced: exactly one of Mesh or Light is set.
type Object struct {
	Mesh  *Mesh
	Light *Light
}

// An instance binds shared geometry or a nested assembly to a transform.
// The instance does not own the data it points to; objects and assemblies
// are referenced by stable index so they can be shared freely.
type Instance struct {
	Type      InstanceType
	DataIndex int
	Transform MotionTransform
}

// An assembly groups objects and nested sub-assemblies under instances
// with per-instance transforms. Assemblies form a DAG in the general
// case: one assembly may be instanced many times, but an assembly may
// never (directly or indirectly) contain itself.
type Assembly struct {
	Objects    []Object
	Assemblies []*Assembly
	Instances  []Instance
}

// Create an empty assembly.
func NewAssembly() *Assembly {
	return &Assembly{}
}

// Add a mesh object. Returns the object index for instancing.
func (a *Assembly) AddMesh(m *Mesh) int {
	a.Objects = append(a.Objects, Object{Mesh: m})
	return len(a.Objects) - 1
}

// Add a light object. Returns the object index for instancing.
func (a *Assembly) AddLight(l *Light) int {
	a.Objects = append(a.Objects, Object{Light: l})
	return len(a.Objects) - 1
}

// Add a nested assembly. Returns the assembly index for instancing.
func (a *Assembly) AddAssembly(sub *Assembly) int {
	a.Assemblies = append(a.Assemblies, sub)
	return len(a.Assemblies) - 1
}

// Instance an object under a transform.
func (a *Assembly) InstanceObject(objIndex int, xform MotionTransform) {
	a.Instances = append(a.Instances, Instance{
		Type:      ObjectInstance,
		DataIndex: objIndex,
		Transform: xform,
	})
}

// Instance a nested assembly under a transform.
func (a *Assembly) InstanceAssembly(asmIndex int, xform MotionTransform) {
	a.Instances = append(a.Instances, Instance{
		Type:      AssemblyInstance,
		DataIndex: asmIndex,
		Transform: xform,
	})
}

// Validate the assembly tree: instance targets must exist, transforms
// must have keyframes, meshes must be well formed and the hierarchy must
// not contain cycles. Called once before rendering starts.
func (a *Assembly) Validate() error {
	if err := a.checkCycles(make(map[*Assembly]bool)); err != nil {
		return err
	}
	return a.validateContent()
}

func (a *Assembly) checkCycles(visiting map[*Assembly]bool) error {
	if visiting[a] {
		return ErrCyclicInstancing
	}
	visiting[a] = true
	for _, sub := range a.Assemblies {
		if err := sub.checkCycles(visiting); err != nil {
			return err
		}
	}
	delete(visiting, a)
	return nil
}

func (a *Assembly) validateContent() error {
	for i, inst := range a.Instances {
		if err := inst.Transform.Validate(); err != nil {
			return fmt.Errorf("scene: instance %d: %v", i, err)
		}
		switch inst.Type {
		case ObjectInstance:
			if inst.DataIndex < 0 || inst.DataIndex >= len(a.Objects) {
				return ErrBadInstanceTarget
			}
		case AssemblyInstance:
			if inst.DataIndex < 0 || inst.DataIndex >= len(a.Assemblies) {
				return ErrBadInstanceTarget
			}
		}
	}
	for _, obj := range a.Objects {
		if obj.Mesh != nil {
			if err := obj.Mesh.Validate(); err != nil {
				return err
			}
		}
	}
	for _, sub := range a.Assemblies {
		if err := sub.validateContent(); err != nil {
			return err
		}
	}
	return nil
}

// The assembly's bounding box in its own space at the given time,
// unioned over all instances.
func (a *Assembly) BoundsAt(t float32) types.AABB {
	bbox := types.EmptyAABB()
	for i := range a.Instances {
		bbox = bbox.Union(a.InstanceBoundsAt(i, t))
	}
	return bbox
}

// The parent-space bounding box of a single instance at the given time.
func (a *Assembly) InstanceBoundsAt(index int, t float32) types.AABB {
	inst := &a.Instances[index]

	var local types.AABB
	switch inst.Type {
	case ObjectInstance:
		obj := a.Objects[inst.DataIndex]
		if obj.Mesh != nil {
			local = obj.Mesh.BBox()
		} else {
			bounds := obj.Light.Bounds()
			local = lerpAABB(bounds, t)
		}
	case AssemblyInstance:
		local = a.Assemblies[inst.DataIndex].BoundsAt(t)
	}

	return local.Transform(inst.Transform.InterpolateAt(t))
}

// The parent-space bounding box of an instance unioned over a set of
// time samples, for motion blurred placement in the spatial index.
func (a *Assembly) InstanceBounds(index int, timeSamples []float32) types.AABB {
	if len(timeSamples) == 0 {
		return a.InstanceBoundsAt(index, 0)
	}
	bbox := types.EmptyAABB()
	for _, t := range timeSamples {
		bbox = bbox.Union(a.InstanceBoundsAt(index, t))
	}
	return bbox
}

func lerpAABB(seq []types.AABB, t float32) types.AABB {
	switch len(seq) {
	case 0:
		return types.AABB{}
	case 1:
		return seq[0]
	}
	i, frac := lerpSeg(len(seq), t)
	return seq[i].Lerp(seq[i+1], frac)
}
