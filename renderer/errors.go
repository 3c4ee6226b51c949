package renderer

import "errors"

var (
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrInvalidOption    = errors.New("renderer: invalid option value")
	ErrInterrupted      = errors.New("renderer: interrupted while rendering")
)
