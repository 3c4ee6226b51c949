package scene

import "github.com/cessen/psychopath/types"

// The policy used to interpolate between motion transform keyframes.
type InterpPolicy uint8

const (
	// Component-wise linear matrix blending. This is the default policy.
	InterpLinear InterpPolicy = iota

	// Rigid blending: quaternion slerp on the rotation part, linear
	// interpolation of the translation. Only valid for keyframes whose
	// upper-left 3x3 block is a pure rotation.
	InterpRigid
)

// A transform, possibly animated over the shutter interval. Keyframes are
// object-to-world matrices sampled at fixed, evenly spaced time steps
// covering [0, 1].
type MotionTransform struct {
	Keys   []types.Mat4
	Policy InterpPolicy
}

// Create a transform with a single static keyframe.
func StaticTransform(m types.Mat4) MotionTransform {
	return MotionTransform{Keys: []types.Mat4{m}}
}

// Create an animated transform from a keyframe sequence.
func NewMotionTransform(keys []types.Mat4, policy InterpPolicy) MotionTransform {
	return MotionTransform{Keys: keys, Policy: policy}
}

// Check that the sequence has at least one keyframe.
func (mt MotionTransform) Validate() error {
	if len(mt.Keys) == 0 {
		return ErrNoTransformKeys
	}
	return nil
}

// Whether the transform animates over the shutter interval.
func (mt MotionTransform) IsStatic() bool {
	return len(mt.Keys) <= 1
}

// Get the object-to-world matrix at the given time in [0, 1].
func (mt MotionTransform) InterpolateAt(t float32) types.Mat4 {
	switch len(mt.Keys) {
	case 0:
		return types.Ident4()
	case 1:
		return mt.Keys[0]
	}

	if t <= 0 {
		return mt.Keys[0]
	}
	if t >= 1 {
		return mt.Keys[len(mt.Keys)-1]
	}

	ft := t * float32(len(mt.Keys)-1)
	seg := int(ft)
	frac := ft - float32(seg)

	a := mt.Keys[seg]
	b := mt.Keys[seg+1]

	if mt.Policy == InterpRigid {
		return rigidBlend(a, b, frac)
	}
	return a.Lerp(b, frac)
}

// Get the world-to-object matrix at the given time in [0, 1].
func (mt MotionTransform) InverseAt(t float32) types.Mat4 {
	return mt.InterpolateAt(t).Inv()
}

func rigidBlend(a, b types.Mat4, t float32) types.Mat4 {
	qa := types.QuatFromMat4(a).Normalize()
	qb := types.QuatFromMat4(b).Normalize()
	out := qa.Slerp(qb, t).Mat4()

	// Lerp the translation column.
	out[12] = a[12] + (b[12]-a[12])*t
	out[13] = a[13] + (b[13]-a[13])*t
	out[14] = a[14] + (b[14]-a[14])*t
	return out
}
