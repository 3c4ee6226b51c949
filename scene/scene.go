package scene

import "github.com/cessen/psychopath/spectral"

// A fully resolved scene graph, supplied by an external parsing
// collaborator. No text parsing happens at this level.
type Scene struct {
	Name   string
	Camera *Camera

	// The root assembly holding all scene content.
	Root *Assembly

	// Background radiance for rays that escape the scene.
	Background spectral.XYZ

	// Time samples (in [0, 1]) at which motion blurred bounds are
	// evaluated when building the spatial index.
	TimeSamples []float32
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:        name,
		Root:        NewAssembly(),
		TimeSamples: []float32{0, 1},
	}
}

// Attach a camera to the scene.
func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

// Check the scene is renderable: a camera is attached and the assembly
// hierarchy is valid. Build errors are fatal and reported before
// rendering starts.
func (s *Scene) Validate() error {
	if s.Camera == nil {
		return ErrNoCamera
	}
	return s.Root.Validate()
}
