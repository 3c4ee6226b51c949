package scene

import (
	"math"

	"github.com/cessen/psychopath/sampling"
	"github.com/cessen/psychopath/spectral"
	"github.com/cessen/psychopath/types"
)

type LightType uint8

const (
	// A spherical area light centered at the object-space origin.
	SphereLight LightType = iota

	// A rectangular area light on the object-space XY plane, centered at
	// the origin and facing +Z/-Z.
	RectLight

	// A distant disc (directional) light subtending a fixed angular
	// radius. Infinitely far away; not part of the spatial index.
	DistantDiscLight
)

// A light source descriptor. Shape parameters and colors are sequences
// sampled at fixed time steps so lights can animate over the shutter
// interval; static lights carry a single entry.
type Light struct {
	Type LightType

	// Sphere radius or distant disc angular radius (radians).
	Radii []float32

	// Rect width/height.
	Dimensions []types.Vec2

	// Distant disc direction (direction the light travels).
	Directions []types.Vec3

	// Radiant power, one entry per time step.
	Colors []spectral.XYZ
}

// Create a static sphere light.
func NewSphereLight(radius float32, color spectral.XYZ) *Light {
	return &Light{
		Type:   SphereLight,
		Radii:  []float32{radius},
		Colors: []spectral.XYZ{color},
	}
}

// Create a static rectangle light.
func NewRectLight(width, height float32, color spectral.XYZ) *Light {
	return &Light{
		Type:       RectLight,
		Dimensions: []types.Vec2{{width, height}},
		Colors:     []spectral.XYZ{color},
	}
}

// Create a static distant disc light.
func NewDistantDiscLight(angRadius float32, dir types.Vec3, color spectral.XYZ) *Light {
	return &Light{
		Type:       DistantDiscLight,
		Radii:      []float32{angRadius},
		Directions: []types.Vec3{dir.Normalize()},
		Colors:     []spectral.XYZ{color},
	}
}

// Whether the light is infinitely distant.
func (l *Light) IsDistant() bool {
	return l.Type == DistantDiscLight
}

// Approximate radiant power for importance sampling purposes.
func (l *Light) Power() float32 {
	if len(l.Colors) == 0 {
		return 0
	}
	var sum float32
	for _, c := range l.Colors {
		sum += c.Luminance()
	}
	return sum / float32(len(l.Colors))
}

// Object-space bounding boxes, one per time step.
func (l *Light) Bounds() []types.AABB {
	switch l.Type {
	case SphereLight:
		out := make([]types.AABB, len(l.Radii))
		for i, r := range l.Radii {
			out[i] = types.NewAABB(types.XYZ(-r, -r, -r), types.XYZ(r, r, r))
		}
		return out
	case RectLight:
		out := make([]types.AABB, len(l.Dimensions))
		for i, d := range l.Dimensions {
			out[i] = types.NewAABB(
				types.XYZ(d[0]*-0.5, d[1]*-0.5, 0),
				types.XYZ(d[0]*0.5, d[1]*0.5, 0),
			)
		}
		return out
	default:
		// Distant lights have no spatial extent.
		return []types.AABB{types.NewAABB(types.Vec3{}, types.Vec3{})}
	}
}

// A light sample toward a shading point.
type LightSample struct {
	// Emitted radiance at each of the path's wavelengths.
	Energy [spectral.NumSamples]float32

	// Vector from the shading point toward the sampled light point. Its
	// length is the distance to the light for area lights; unit length
	// for distant lights.
	ShadowVec types.Vec3

	// Solid-angle pdf of the sample.
	Pdf float32

	// Whether the light is infinitely distant.
	Distant bool
}

// Sample a direction/point toward the light for the given shading point.
// The toWorld matrix maps the light's object space to the shading point's
// space at the given time.
func (l *Light) Sample(toWorld types.Mat4, p types.Vec3, u, v float32, lambdas spectral.Sample, time float32) LightSample {
	switch l.Type {
	case SphereLight:
		return l.sampleSphere(toWorld, p, u, v, lambdas, time)
	case RectLight:
		return l.sampleRect(toWorld, p, u, v, lambdas, time)
	default:
		return l.sampleDistantDisc(u, v, lambdas, time)
	}
}

// The solid-angle pdf of sampling the given direction from the shading
// point. Used for multiple importance sampling.
func (l *Light) SamplePdf(toWorld types.Mat4, p, dir types.Vec3, time float32) float32 {
	switch l.Type {
	case SphereLight:
		pos := toWorld.MulPoint(types.Vec3{})
		radius := lerpF32(l.Radii, time)
		d2 := pos.Sub(p).Len2()
		if d2 > radius*radius {
			sinThetaMax2 := minf32(radius*radius/d2, 1.0)
			cosThetaMax := float32(math.Sqrt(float64(1.0 - sinThetaMax2)))
			return sampling.UniformSampleConePdf(cosThetaMax)
		}
		return sampling.UniformSampleSpherePdf()

	case RectLight:
		dim := lerpVec2(l.Dimensions, time)
		sp1, sp2, sp3, sp4 := rectCorners(toWorld, dim, p)
		area := sampling.SphericalTriangleSolidAngle(sp2, sp1, sp3) +
			sampling.SphericalTriangleSolidAngle(sp4, sp1, sp3)
		if area <= 0 {
			return 0
		}
		return 1.0 / area

	default:
		radius := lerpF32(l.Radii, time)
		return sampling.UniformSampleConePdf(float32(math.Cos(float64(radius))))
	}
}

// Emitted radiance along a direction that hits the light, at each of the
// path's wavelengths. Used when a BSDF sample happens to hit a light.
func (l *Light) Outgoing(lambdas spectral.Sample, time float32) [spectral.NumSamples]float32 {
	col := lerpXYZ(l.Colors, time)
	switch l.Type {
	case SphereLight:
		radius := lerpF32(l.Radii, time)
		return spectralEnergy(col.Scale(1.0/(4.0*math.Pi*radius*radius)), lambdas)
	case RectLight:
		dim := lerpVec2(l.Dimensions, time)
		return spectralEnergy(col.Scale(1.0/(dim[0]*dim[1])), lambdas)
	default:
		radius := float64(lerpF32(l.Radii, time))
		solidAngle := 2.0 * math.Pi * (1.0 - math.Cos(radius))
		return spectralEnergy(col.Scale(float32(1.0/solidAngle)), lambdas)
	}
}

func (l *Light) sampleSphere(toWorld types.Mat4, p types.Vec3, u, v float32, lambdas spectral.Sample, time float32) LightSample {
	pos := toWorld.MulPoint(types.Vec3{})
	radius := lerpF32(l.Radii, time)
	col := lerpXYZ(l.Colors, time)
	surfaceAreaInv := 1.0 / (4.0 * math.Pi * radius * radius)

	// Coordinate system from the vector between the point and the center
	// of the light.
	z := pos.Sub(p)
	d2 := z.Len2()
	d := float32(math.Sqrt(float64(d2)))
	x, y, z2 := types.CoordinateSystem(z)

	sample := LightSample{
		Energy: spectralEnergy(col.Scale(float32(surfaceAreaInv)), lambdas),
	}

	if d > radius {
		// Outside the sphere: sample the cone it subtends.
		sinThetaMax2 := minf32(radius*radius/d2, 1.0)
		cosThetaMax := float32(math.Sqrt(float64(1.0 - sinThetaMax2)))

		cone := sampling.UniformSampleCone(u, v, cosThetaMax)
		cosTheta := cone[2]
		sinTheta2 := maxf32(0, 1.0-cosTheta*cosTheta)
		sinTheta := float32(math.Sqrt(float64(sinTheta2)))

		// Project the cone sample onto the sphere surface to obtain the
		// actual sample point ("Akalin", ompf2.com).
		dd := 1.0 - (d2 * sinTheta * sinTheta / (radius * radius))
		var cosA float32
		if dd <= 0 {
			cosA = float32(math.Sqrt(float64(sinThetaMax2)))
		} else {
			cosA = (d/radius)*sinTheta2 + cosTheta*float32(math.Sqrt(float64(dd)))
		}
		sinA := float32(math.Sqrt(math.Max(0, float64(1.0-cosA*cosA))))
		phi := float64(v) * 2.0 * math.Pi
		local := types.XYZ(
			float32(math.Cos(phi))*sinA*radius,
			float32(math.Sin(phi))*sinA*radius,
			d-cosA*radius,
		)

		sample.ShadowVec = x.Mul(local[0]).Add(y.Mul(local[1])).Add(z2.Mul(local[2]))
		sample.Pdf = sampling.UniformSampleConePdf(cosThetaMax)
		return sample
	}

	// Inside the sphere: light arrives from every direction.
	sample.ShadowVec = sampling.UniformSampleSphere(u, v).Mul(radius)
	sample.Pdf = sampling.UniformSampleSpherePdf()
	return sample
}

func (l *Light) sampleRect(toWorld types.Mat4, p types.Vec3, u, v float32, lambdas spectral.Sample, time float32) LightSample {
	dim := lerpVec2(l.Dimensions, time)
	col := lerpXYZ(l.Colors, time)
	surfaceAreaInv := 1.0 / (dim[0] * dim[1])

	// Corners projected onto the unit sphere around the shading point.
	sp1, sp2, sp3, sp4 := rectCorners(toWorld, dim, p)

	// Solid angle of the rectangle split into two triangles.
	area1 := sampling.SphericalTriangleSolidAngle(sp2, sp1, sp3)
	area2 := sampling.SphericalTriangleSolidAngle(sp4, sp1, sp3)
	if area1+area2 <= 0 {
		return LightSample{}
	}

	prob1 := area1 / (area1 + area2)
	var dir types.Vec3
	if u < prob1 {
		dir = sampling.UniformSampleSphericalTriangle(sp2, sp1, sp3, v, u/prob1)
	} else {
		dir = sampling.UniformSampleSphericalTriangle(sp4, sp1, sp3, v, (u-prob1)/(1.0-prob1))
	}

	// Scale the direction to the distance of the light plane so the
	// shadow ray has a finite extent.
	center := toWorld.MulPoint(types.Vec3{})
	normal := toWorld.MulDir(types.XYZ(0, 0, 1)).Normalize()
	denom := dir.Dot(normal)
	dist := float32(math.MaxFloat32)
	if types.Absf32(denom) > 1e-6 {
		dist = center.Sub(p).Dot(normal) / denom
	}
	if dist <= 0 {
		return LightSample{}
	}

	return LightSample{
		Energy:    spectralEnergy(col.Scale(surfaceAreaInv), lambdas),
		ShadowVec: dir.Mul(dist),
		Pdf:       1.0 / (area1 + area2),
	}
}

func (l *Light) sampleDistantDisc(u, v float32, lambdas spectral.Sample, time float32) LightSample {
	radius := float64(lerpF32(l.Radii, time))
	dir := lerpVec3(l.Directions, time)
	col := lerpXYZ(l.Colors, time)
	solidAngleInv := 1.0 / (2.0 * math.Pi * (1.0 - math.Cos(radius)))

	// Coordinate system pointing at the center of the light.
	x, y, z := types.CoordinateSystem(dir.Normalize().Neg())

	cosThetaMax := float32(math.Cos(radius))
	cone := sampling.UniformSampleCone(u, v, cosThetaMax)

	return LightSample{
		Energy:    spectralEnergy(col.Scale(float32(solidAngleInv)), lambdas),
		ShadowVec: x.Mul(cone[0]).Add(y.Mul(cone[1])).Add(z.Mul(cone[2])),
		Pdf:       sampling.UniformSampleConePdf(cosThetaMax),
		Distant:   true,
	}
}

func rectCorners(toWorld types.Mat4, dim types.Vec2, p types.Vec3) (sp1, sp2, sp3, sp4 types.Vec3) {
	p1 := toWorld.MulPoint(types.XYZ(dim[0]*0.5, dim[1]*0.5, 0))
	p2 := toWorld.MulPoint(types.XYZ(dim[0]*-0.5, dim[1]*0.5, 0))
	p3 := toWorld.MulPoint(types.XYZ(dim[0]*-0.5, dim[1]*-0.5, 0))
	p4 := toWorld.MulPoint(types.XYZ(dim[0]*0.5, dim[1]*-0.5, 0))

	sp1 = p1.Sub(p).Normalize()
	sp2 = p2.Sub(p).Normalize()
	sp3 = p3.Sub(p).Normalize()
	sp4 = p4.Sub(p).Normalize()
	return sp1, sp2, sp3, sp4
}

func spectralEnergy(c spectral.XYZ, lambdas spectral.Sample) [spectral.NumSamples]float32 {
	var out [spectral.NumSamples]float32
	for i := 0; i < spectral.NumSamples; i++ {
		out[i] = spectral.SpectrumAt(c, lambdas.Lambda[i])
	}
	return out
}

// Time-interpolated lookup over a keyframe sequence.
func lerpF32(seq []float32, t float32) float32 {
	switch len(seq) {
	case 0:
		return 0
	case 1:
		return seq[0]
	}
	i, frac := lerpSeg(len(seq), t)
	return seq[i] + (seq[i+1]-seq[i])*frac
}

func lerpVec2(seq []types.Vec2, t float32) types.Vec2 {
	switch len(seq) {
	case 0:
		return types.Vec2{}
	case 1:
		return seq[0]
	}
	i, frac := lerpSeg(len(seq), t)
	return types.Vec2{
		seq[i][0] + (seq[i+1][0]-seq[i][0])*frac,
		seq[i][1] + (seq[i+1][1]-seq[i][1])*frac,
	}
}

func lerpVec3(seq []types.Vec3, t float32) types.Vec3 {
	switch len(seq) {
	case 0:
		return types.Vec3{}
	case 1:
		return seq[0]
	}
	i, frac := lerpSeg(len(seq), t)
	return seq[i].Lerp(seq[i+1], frac)
}

func lerpXYZ(seq []spectral.XYZ, t float32) spectral.XYZ {
	switch len(seq) {
	case 0:
		return spectral.XYZ{}
	case 1:
		return seq[0]
	}
	i, frac := lerpSeg(len(seq), t)
	return spectral.XYZ{
		X: seq[i].X + (seq[i+1].X-seq[i].X)*frac,
		Y: seq[i].Y + (seq[i+1].Y-seq[i].Y)*frac,
		Z: seq[i].Z + (seq[i+1].Z-seq[i].Z)*frac,
	}
}

func lerpSeg(n int, t float32) (int, float32) {
	if t <= 0 {
		return 0, 0
	}
	if t >= 1 {
		return n - 2, 1
	}
	ft := t * float32(n-1)
	i := int(ft)
	return i, ft - float32(i)
}

func minf32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Intersect a ray with the light's surface in the light's object space.
// The ray direction does not need to be normalized; the returned distance
// is in ray parameter units so it stays comparable across object spaces.
func (l *Light) Intersect(origin, dir types.Vec3, time float32) (float32, bool) {
	switch l.Type {
	case SphereLight:
		radius := lerpF32(l.Radii, time)
		a := dir.Dot(dir)
		if a == 0 {
			return 0, false
		}
		b := 2 * origin.Dot(dir)
		c := origin.Dot(origin) - radius*radius
		disc := float64(b*b - 4*a*c)
		if disc < 0 {
			return 0, false
		}
		sq := float32(math.Sqrt(disc))
		t := (-b - sq) / (2 * a)
		if t <= 0 {
			t = (-b + sq) / (2 * a)
		}
		if t <= 0 {
			return 0, false
		}
		return t, true
	case RectLight:
		if dir[2] == 0 {
			return 0, false
		}
		t := -origin[2] / dir[2]
		if t <= 0 {
			return 0, false
		}
		dim := lerpVec2(l.Dimensions, time)
		x := origin[0] + t*dir[0]
		y := origin[1] + t*dir[1]
		if x < dim[0]*-0.5 || x > dim[0]*0.5 || y < dim[1]*-0.5 || y > dim[1]*0.5 {
			return 0, false
		}
		return t, true
	default:
		// Distant lights have no surface to hit.
		return 0, false
	}
}
