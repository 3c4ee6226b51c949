// Package sampling provides the low level Monte Carlo sampling routines
// shared by the light sources and the integrator.
package sampling

import (
	"math"

	"github.com/cessen/psychopath/types"
)

// Sample a direction within a cone around the +Z axis. The cone is
// described by the cosine of its half angle.
func UniformSampleCone(u, v, cosThetaMax float32) types.Vec3 {
	cosTheta := (1.0 - u) + u*cosThetaMax
	sinTheta := float32(math.Sqrt(float64(1.0 - cosTheta*cosTheta)))
	phi := v * 2.0 * math.Pi
	return types.XYZ(
		float32(math.Cos(float64(phi)))*sinTheta,
		float32(math.Sin(float64(phi)))*sinTheta,
		cosTheta,
	)
}

// Pdf of UniformSampleCone.
func UniformSampleConePdf(cosThetaMax float32) float32 {
	// Solid angle of the cone is 2pi * (1 - cosThetaMax).
	return float32(1.0 / (2.0 * math.Pi * (1.0 - float64unit(cosThetaMax))))
}

// Sample a direction uniformly over the unit sphere.
func UniformSampleSphere(u, v float32) types.Vec3 {
	z := 1.0 - 2.0*u
	r := float32(math.Sqrt(math.Max(0, float64(1.0-z*z))))
	phi := 2.0 * math.Pi * float64(v)
	return types.XYZ(r*float32(math.Cos(phi)), r*float32(math.Sin(phi)), z)
}

// Pdf of UniformSampleSphere.
func UniformSampleSpherePdf() float32 {
	return 1.0 / (4.0 * math.Pi)
}

// Sample a cosine weighted direction on the hemisphere around the +Z axis.
func CosineSampleHemisphere(u, v float32) types.Vec3 {
	r := float32(math.Sqrt(float64(u)))
	phi := 2.0 * math.Pi * float64(v)
	x := r * float32(math.Cos(phi))
	y := r * float32(math.Sin(phi))
	z := float32(math.Sqrt(math.Max(0, float64(1.0-u))))
	return types.XYZ(x, y, z)
}

// Pdf of CosineSampleHemisphere for a direction with the given cosine to
// the hemisphere axis.
func CosineSampleHemispherePdf(cosTheta float32) float32 {
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

// Solid angle subtended by a spherical triangle with unit-vector
// vertices va, vb, vc (Van Oosterom & Strackee).
func SphericalTriangleSolidAngle(va, vb, vc types.Vec3) float32 {
	numerator := va.Dot(vb.Cross(vc))
	denominator := 1.0 + va.Dot(vb) + va.Dot(vc) + vb.Dot(vc)
	angle := 2.0 * math.Atan2(math.Abs(float64(numerator)), float64(denominator))
	return float32(angle)
}

// Uniformly sample a direction within the spherical triangle with
// unit-vector vertices va, vb, vc (Arvo 1995, stratified over area).
func UniformSampleSphericalTriangle(va, vb, vc types.Vec3, u, v float32) types.Vec3 {
	area := SphericalTriangleSolidAngle(va, vb, vc)
	if area < 1e-6 {
		// Degenerate triangle; fall back to its centroid direction.
		return va.Add(vb).Add(vc).Normalize()
	}

	// Internal angle at vertex A via the dihedral angle formulation.
	cosAlpha, alpha := dihedralAngle(va, vb, vc)
	sinAlpha := float32(math.Sin(float64(alpha)))

	// Pick the sub-triangle area.
	areaHat := u * area

	// Compute the pair (s, t) for the new vertex C'.
	s := float32(math.Sin(float64(areaHat - alpha)))
	t := float32(math.Cos(float64(areaHat - alpha)))
	uu := t - cosAlpha
	vv := s + sinAlpha*va.Dot(vb)

	cb := vc.Sub(va.Mul(vc.Dot(va))).Normalize()

	q := ((vv*t - uu*s) * cosAlpha - vv) / ((vv*s + uu*t) * sinAlpha)
	if q < -1 {
		q = -1
	} else if q > 1 {
		q = 1
	}
	cPrime := va.Mul(q).Add(cb.Mul(float32(math.Sqrt(math.Max(0, float64(1.0-q*q))))))

	// Sample along the arc between B and C'.
	z := 1.0 - v*(1.0-cPrime.Dot(vb))
	if z < -1 {
		z = -1
	} else if z > 1 {
		z = 1
	}
	ortho := cPrime.Sub(vb.Mul(cPrime.Dot(vb))).Normalize()
	return vb.Mul(z).Add(ortho.Mul(float32(math.Sqrt(math.Max(0, float64(1.0-z*z))))))
}

// The dihedral angle at vertex a of the spherical triangle (a, b, c).
func dihedralAngle(va, vb, vc types.Vec3) (cos float32, angle float32) {
	ab := vb.Sub(va.Mul(vb.Dot(va))).Normalize()
	ac := vc.Sub(va.Mul(vc.Dot(va))).Normalize()
	cos = ab.Dot(ac)
	if cos < -1 {
		cos = -1
	} else if cos > 1 {
		cos = 1
	}
	angle = float32(math.Acos(float64(cos)))
	return cos, angle
}

// Power heuristic with beta=2 for combining two sampling strategies.
func PowerHeuristic(a, b float32) float32 {
	a2 := a * a
	b2 := b * b
	if a2+b2 <= 0 {
		return 0
	}
	return a2 / (a2 + b2)
}

// Clamp a cosine to [0, 1) so cone pdfs stay finite.
func float64unit(v float32) float64 {
	cv := float64(v)
	if cv >= 1.0 {
		cv = 1.0 - 1e-6
	}
	return cv
}
