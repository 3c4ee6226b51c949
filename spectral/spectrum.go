// Package spectral implements hero-wavelength spectral sampling and the
// CIE XYZ accumulation used by the renderer's radiometry.
package spectral

import "math"

const (
	// The sampled wavelength range in nanometers.
	WavelengthMin   float32 = 380.0
	WavelengthMax   float32 = 700.0
	WavelengthRange float32 = WavelengthMax - WavelengthMin

	// Wavelengths carried per path (hero wavelength sampling).
	NumSamples = 4
)

// A set of hero-sampled wavelengths. The first wavelength is drawn
// uniformly; the rest are equally spaced rotations that wrap around the
// sampled range.
type Sample struct {
	Lambda [NumSamples]float32
}

// Draw a hero wavelength set from a uniform random number.
func NewSample(u float32) Sample {
	var s Sample
	hero := WavelengthMin + u*WavelengthRange
	for i := 0; i < NumSamples; i++ {
		lambda := hero + WavelengthRange*float32(i)/NumSamples
		if lambda >= WavelengthMax {
			lambda -= WavelengthRange
		}
		s.Lambda[i] = lambda
	}
	return s
}

// A tristimulus color value.
type XYZ struct {
	X, Y, Z float32
}

// Add two colors.
func (c XYZ) Add(c2 XYZ) XYZ {
	return XYZ{c.X + c2.X, c.Y + c2.Y, c.Z + c2.Z}
}

// Scale a color.
func (c XYZ) Scale(s float32) XYZ {
	return XYZ{c.X * s, c.Y * s, c.Z * s}
}

// The luminance channel.
func (c XYZ) Luminance() float32 {
	return c.Y
}

// Reconstruct a spectral radiance density at the given wavelength for a
// color expressed as XYZ. The reconstruction uses the normalized CIE
// matching functions as a smooth basis; it is exact for luminance on flat
// spectra and approximate for strongly saturated chroma.
func SpectrumAt(c XYZ, lambda float32) float32 {
	e := (c.X*cmfX(lambda)/integralX +
		c.Y*cmfY(lambda)/integralY +
		c.Z*cmfZ(lambda)/integralZ) / 3.0
	if e < 0 {
		return 0
	}
	return e
}

// Reconstruct a dimensionless reflectance at the given wavelength. A flat
// white (Y=1) reflectance evaluates to 1 at every wavelength.
func ReflectanceAt(c XYZ, lambda float32) float32 {
	r := SpectrumAt(c, lambda) * WavelengthRange
	if r > 1 {
		return 1
	}
	return r
}

// Accumulate a set of per-wavelength energies into an XYZ estimate. The
// energies are spectral radiance densities at the sample's wavelengths;
// the estimator assumes uniform wavelength sampling over the full range.
func (s Sample) ToXYZ(energy [NumSamples]float32) XYZ {
	var out XYZ
	for i := 0; i < NumSamples; i++ {
		l := s.Lambda[i]
		out.X += energy[i] * cmfX(l)
		out.Y += energy[i] * cmfY(l)
		out.Z += energy[i] * cmfZ(l)
	}
	// MC estimate of the integral over the wavelength range, normalized
	// so a flat unit-luminance spectrum integrates to Y=1.
	scale := WavelengthRange / (NumSamples * integralY)
	return out.Scale(scale)
}

// Piecewise-Gaussian fits of the CIE 1931 standard observer from
// Wyman, Sloan & Shirley, "Simple Analytic Approximations to the CIE XYZ
// Color Matching Functions" (JCGT 2013).
func gaussFit(lambda, mu, sigmaL, sigmaR float32) float32 {
	var t float32
	if lambda < mu {
		t = (lambda - mu) / sigmaL
	} else {
		t = (lambda - mu) / sigmaR
	}
	return float32(math.Exp(float64(-0.5 * t * t)))
}

func cmfX(lambda float32) float32 {
	return 1.056*gaussFit(lambda, 599.8, 37.9, 31.0) +
		0.362*gaussFit(lambda, 442.0, 16.0, 26.7) -
		0.065*gaussFit(lambda, 501.1, 20.4, 26.2)
}

func cmfY(lambda float32) float32 {
	return 0.821*gaussFit(lambda, 568.8, 46.9, 40.5) +
		0.286*gaussFit(lambda, 530.9, 16.3, 31.1)
}

func cmfZ(lambda float32) float32 {
	return 1.217*gaussFit(lambda, 437.0, 11.8, 36.0) +
		0.681*gaussFit(lambda, 459.0, 26.0, 13.8)
}

// Matching function integrals over the sampled range, computed once at
// startup with a 1nm Riemann sum.
var integralX, integralY, integralZ float32

func init() {
	for l := WavelengthMin; l < WavelengthMax; l++ {
		integralX += cmfX(l)
		integralY += cmfY(l)
		integralZ += cmfZ(l)
	}
}
