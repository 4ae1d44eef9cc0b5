package framing

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FrameScene computes the camera pose and light list for one asset.
//
// Steps: world bounding volume, camera distance (perspective) or placement
// distance (orthographic), camera position and orientation, orthographic
// scale, clip planes, and the lighting rig around the same center and
// distance. A zero Settings value selects DefaultSettings. On error no
// partial result is returned.
func FrameScene(req Request) (Result, error) {
	s := req.Settings
	if s == (Settings{}) {
		s = DefaultSettings()
	}
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	if err := validateProjection(req.Projection); err != nil {
		return Result{}, err
	}

	corners := WorldCorners(req.Meshes)
	box, err := boxOf(corners)
	if err != nil {
		return Result{}, err
	}
	sphere := sphereOf(box, corners)
	radius := ClampRadius(sphere.Radius, s.MinRadius)
	padding := req.Projection.Padding

	pose := CameraPose{Projection: req.Projection.Projection.Kind()}
	switch p := req.Projection.Projection.(type) {
	case Perspective:
		pose.FOV = p.FOV
		pose.Distance, err = PerspectiveDistance(radius, p.FOV, padding)
		if err != nil {
			return Result{}, err
		}
	case Orthographic:
		pose.Distance = radius * s.OrthoDistanceFactor
	default:
		return Result{}, fmt.Errorf("%w: unsupported projection %T", ErrInvalidFov, p)
	}

	pose.Position, pose.Orientation, err = PlaceAndOrient(sphere.Center, pose.Distance,
		req.Elevation, req.Azimuth, s.Axes)
	if err != nil {
		return Result{}, err
	}

	if p, ok := req.Projection.Projection.(Orthographic); ok {
		switch p.Fit {
		case FitAspect:
			w, h := viewExtent(corners, sphere.Center, pose.Orientation, 2*s.MinRadius)
			pose.OrthoScale = OrthographicScaleAspect(w, h, req.Resolution.Aspect(), padding)
		default:
			pose.OrthoScale = OrthographicScale(radius, padding)
		}
	}

	clip, err := ComputeClipPlanes(pose.Distance, radius, s.Clip)
	if err != nil {
		return Result{}, err
	}
	pose.Near, pose.Far = clip.Near, clip.Far

	lights, err := BuildLighting(req.Lighting, sphere.Center, pose.Distance, s)
	if err != nil {
		return Result{}, err
	}

	return Result{Camera: pose, Lights: lights, Bounds: box, Sphere: sphere}, nil
}

// viewExtent measures the silhouette of corners on the camera's right and up
// axes. The view stays centered on center, so each extent is twice the
// largest offset from it, and at least min.
func viewExtent(corners []v3.Vec, center v3.Vec, o Orientation, min float64) (width, height float64) {
	var halfW, halfH float64
	for _, c := range corners {
		d := c.Sub(center)
		halfW = math.Max(halfW, math.Abs(d.Dot(o.Right)))
		halfH = math.Max(halfH, math.Abs(d.Dot(o.Up)))
	}
	return math.Max(2*halfW, min), math.Max(2*halfH, min)
}
