package scene

import (
	"math"

	"github.com/cessen/psychopath/types"
)

// A thin lens camera. The camera transform is a motion sequence so the
// camera itself can be motion blurred; FOV is the full vertical field of
// view in radians.
type Camera struct {
	Transform     MotionTransform
	FOV           float32
	ApertureSize  float32
	FocusDistance float32
}

// Create a camera with the given field of view.
func NewCamera(fov float32) *Camera {
	return &Camera{
		Transform:     StaticTransform(types.Ident4()),
		FOV:           fov,
		FocusDistance: 1.0,
	}
}

// Position and orient the camera with a single static look-at transform.
func (c *Camera) LookAt(eye, center, up types.Vec3) {
	// The camera-to-world matrix is the inverse of the view matrix.
	c.Transform = StaticTransform(types.LookAtV(eye, center, up).Inv())
}

// Generate a primary ray for the film point (x, y), both in [-0.5, 0.5]
// with y up; u and v sample the lens aperture. Returns world-space
// origin and direction. The direction is not normalized; its length is
// chosen so ray t values are measured along the view axis.
func (c *Camera) GenerateRay(x, y, time, u, v float32) (origin, dir types.Vec3) {
	tfov := float32(math.Tan(float64(c.FOV * 0.5)))

	// Sample the aperture disk.
	var lensX, lensY float32
	if c.ApertureSize > 0 {
		r := c.ApertureSize * float32(math.Sqrt(float64(u)))
		phi := 2.0 * math.Pi * float64(v)
		lensX = r * float32(math.Cos(phi))
		lensY = r * float32(math.Sin(phi))
	}

	origin = types.XYZ(lensX, lensY, 0)
	dir = types.XYZ(
		x*tfov-lensX/c.FocusDistance,
		y*tfov-lensY/c.FocusDistance,
		-1.0,
	)

	toWorld := c.Transform.InterpolateAt(time)
	return toWorld.MulPoint(origin), toWorld.MulDir(dir)
}
