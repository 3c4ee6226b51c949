package types

import "math"

// An axis aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Create an AABB from min/max extents.
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Create an empty AABB. Unioning it with any other box yields that box.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Grow the AABB to include a point.
func (b AABB) Include(p Vec3) AABB {
	return AABB{
		Min: MinVec3(b.Min, p),
		Max: MaxVec3(b.Max, p),
	}
}

// Union two AABBs.
func (b AABB) Union(b2 AABB) AABB {
	return AABB{
		Min: MinVec3(b.Min, b2.Min),
		Max: MaxVec3(b.Max, b2.Max),
	}
}

// Get the AABB center point.
func (b AABB) Centroid() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the AABB extent along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the AABB surface area.
func (b AABB) SurfaceArea() float32 {
	s := b.Size()
	return 2.0 * (s[0]*s[1] + s[1]*s[2] + s[0]*s[2])
}

// Get the axis (0=X, 1=Y, 2=Z) with the longest extent.
func (b AABB) LongestAxis() int {
	s := b.Size()
	if s[0] > s[1] && s[0] > s[2] {
		return 0
	}
	if s[1] > s[2] {
		return 1
	}
	return 2
}

// Check that min <= max on every axis.
func (b AABB) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Linearly interpolate between two AABBs.
func (b AABB) Lerp(b2 AABB, t float32) AABB {
	return AABB{
		Min: b.Min.Lerp(b2.Min, t),
		Max: b.Max.Lerp(b2.Max, t),
	}
}

// Transform the AABB by an affine matrix. The result bounds all eight
// transformed corners.
func (b AABB) Transform(m Mat4) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Include(m.MulPoint(corner))
	}
	return out
}

// Slab test against a ray expressed as origin + precomputed inverse
// direction. Returns the entry distance and whether the interval
// [0, maxDist] overlaps the box.
func (b AABB) Intersect(origin, invDir Vec3, maxDist float32) (float32, bool) {
	var tMin float32 = 0
	tMax := maxDist

	for axis := 0; axis < 3; axis++ {
		t1 := (b.Min[axis] - origin[axis]) * invDir[axis]
		t2 := (b.Max[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}

	return tMin, true
}
