package scene

import "errors"

var (
	ErrCyclicInstancing  = errors.New("scene: assembly hierarchy contains a cycle")
	ErrMissingMaterial   = errors.New("scene: no material assigned to mesh")
	ErrDegenerateBounds  = errors.New("scene: degenerate bounding box")
	ErrNoTransformKeys   = errors.New("scene: transform sequence has no keyframes")
	ErrBadInstanceTarget = errors.New("scene: instance references unknown object or assembly")
	ErrNoCamera          = errors.New("scene: no camera defined")
)
