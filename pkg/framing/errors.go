package framing

import "errors"

var (
	// ErrEmptyScene is returned when no renderable mesh contributes corners.
	ErrEmptyScene = errors.New("framing: no renderable mesh in scene")

	// ErrInvalidFov is returned for a field of view, sensor/focal pair or
	// padding factor outside its valid range.
	ErrInvalidFov = errors.New("framing: invalid field of view")

	// ErrInvalidClipRange is returned when the near plane is not in front of
	// the far plane after the epsilon floor is applied.
	ErrInvalidClipRange = errors.New("framing: invalid clip range")

	// ErrSingularOrientation is returned when no up vector resolves the roll
	// of a look-at rotation.
	ErrSingularOrientation = errors.New("framing: singular orientation")

	// ErrInvalidLight is returned for out-of-range lighting parameters.
	ErrInvalidLight = errors.New("framing: invalid light parameters")
)
