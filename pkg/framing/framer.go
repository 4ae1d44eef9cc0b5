package framing

import (
	"fmt"
	"math"
)

// ClampRadius raises a degenerate radius (a point, a flat or tiny model) to
// min so that neither distance nor scale collapses to zero.
func ClampRadius(radius, min float64) float64 {
	if math.IsNaN(radius) || radius < min {
		return min
	}
	return radius
}

// PerspectiveDistance returns the camera-to-center distance at which a sphere
// of the given radius, grown by padding, exactly fills a field of view of fov
// radians: (radius*padding) / tan(fov/2).
func PerspectiveDistance(radius, fov, padding float64) (float64, error) {
	if !finite(fov) || fov <= 0 || fov >= math.Pi {
		return 0, fmt.Errorf("%w: fov %.6g rad outside (0, pi)", ErrInvalidFov, fov)
	}
	if !finite(padding) || padding <= 0 {
		return 0, fmt.Errorf("%w: padding %.6g must be positive", ErrInvalidFov, padding)
	}
	return radius * padding / math.Tan(fov/2), nil
}

// OrthographicScale returns the visible width that fits a sphere of the
// given radius with padding: 2*radius*padding.
func OrthographicScale(radius, padding float64) float64 {
	return 2 * radius * padding
}

// OrthographicScaleAspect returns the visible width that fits a width x height
// silhouette into a render of the given aspect ratio (width/height). The
// binding dimension is chosen so that neither axis clips.
func OrthographicScaleAspect(width, height, renderAspect, padding float64) float64 {
	if height <= 0 || width/height > renderAspect {
		return width * padding
	}
	return height * renderAspect * padding
}

// FOVFromSensor derives a full field of view in radians from a sensor
// dimension and a focal length in the same unit.
func FOVFromSensor(sensor, focalLength float64) (float64, error) {
	if !finite(sensor, focalLength) || sensor <= 0 || focalLength <= 0 {
		return 0, fmt.Errorf("%w: sensor %.6g and focal length %.6g must be positive",
			ErrInvalidFov, sensor, focalLength)
	}
	return 2 * math.Atan(sensor/(2*focalLength)), nil
}

// validateProjection checks the projection payload and padding.
func validateProjection(pc ProjectionConfig) error {
	if pc.Projection == nil {
		return fmt.Errorf("%w: no projection", ErrInvalidFov)
	}
	if !finite(pc.Padding) || pc.Padding <= 0 {
		return fmt.Errorf("%w: padding %.6g must be positive", ErrInvalidFov, pc.Padding)
	}
	if p, ok := pc.Projection.(Perspective); ok {
		if !finite(p.FOV) || p.FOV <= 0 || p.FOV >= math.Pi {
			return fmt.Errorf("%w: fov %.6g rad outside (0, pi)", ErrInvalidFov, p.FOV)
		}
	}
	return nil
}
