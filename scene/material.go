package scene

import "github.com/cessen/psychopath/spectral"

type MaterialType uint8

const (
	LambertMaterial MaterialType = iota
	EmissiveMaterial
)

// Defines a scene material. The surface model is a small fixed set:
// Lambert reflectors and emitters.
type Material struct {
	// The type of the material.
	Type MaterialType

	// Reflectance (albedo) for Lambert surfaces. Luminance must be in [0, 1].
	Reflectance spectral.XYZ

	// Emitted radiance for emissive surfaces.
	Radiance spectral.XYZ
}

// Create a new Lambert material.
func NewLambert(reflectance spectral.XYZ) *Material {
	return &Material{
		Type:        LambertMaterial,
		Reflectance: reflectance,
	}
}

// Create a new emissive material.
func NewEmissive(radiance spectral.XYZ) *Material {
	return &Material{
		Type:     EmissiveMaterial,
		Radiance: radiance,
	}
}

// Whether the material emits light.
func (m *Material) IsEmissive() bool {
	return m.Type == EmissiveMaterial
}
