package framing

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Geometry input
// ---------------------------------------------------------------------------

// MeshNode is one mesh instance supplied by the asset loader.
// Corners are in local space: either the 8 corners of the local bounding box
// or the corners of fully evaluated geometry. World maps local space to world
// space; the zero M44 collapses every corner onto the origin, so loaders must
// set it (sdf.Identity3d() for untransformed meshes).
type MeshNode struct {
	ID         string
	Corners    []v3.Vec
	World      sdf.M44
	Renderable bool
}

// IsRenderable reports whether a mesh is visible given its own hidden state
// and the hidden state of every collection containing it.
func IsRenderable(hidden bool, collectionHidden ...bool) bool {
	if hidden {
		return false
	}
	for _, h := range collectionHidden {
		if h {
			return false
		}
	}
	return true
}

// BoxCorners returns the 8 corners of an axis-aligned box.
func BoxCorners(min, max v3.Vec) []v3.Vec {
	return []v3.Vec{
		{X: min.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: min.Y, Z: min.Z},
		{X: min.X, Y: max.Y, Z: min.Z},
		{X: max.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: min.Y, Z: max.Z},
		{X: min.X, Y: max.Y, Z: max.Z},
		{X: max.X, Y: max.Y, Z: max.Z},
	}
}

// ---------------------------------------------------------------------------
// Bounding volumes
// ---------------------------------------------------------------------------

// BoundingBox is an axis-aligned world-space box. Min <= Max componentwise.
type BoundingBox struct {
	Min v3.Vec `json:"min"`
	Max v3.Vec `json:"max"`
}

// Center returns the box midpoint.
func (b BoundingBox) Center() v3.Vec {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Size returns the box extent along each axis.
func (b BoundingBox) Size() v3.Vec {
	return b.Max.Sub(b.Min)
}

// Corners returns the 8 corners of the box.
func (b BoundingBox) Corners() []v3.Vec {
	return BoxCorners(b.Min, b.Max)
}

// BoundingSphere encloses every corner that contributed to it.
// It is an over-approximation derived from box corners, not a minimal sphere.
type BoundingSphere struct {
	Center v3.Vec  `json:"center"`
	Radius float64 `json:"radius"`
}

// Contains reports whether p lies within the sphere, allowing tol slack.
func (s BoundingSphere) Contains(p v3.Vec, tol float64) bool {
	return p.Sub(s.Center).Length() <= s.Radius+tol
}

// ---------------------------------------------------------------------------
// Projection
// ---------------------------------------------------------------------------

// Projection is a camera projection variant: Perspective or Orthographic.
type Projection interface {
	projection() // marker method restricting implementations to this package
	Kind() ProjectionKind
}

// ProjectionKind names a projection variant.
type ProjectionKind int

const (
	ProjectionPerspective ProjectionKind = iota
	ProjectionOrthographic
)

func (k ProjectionKind) String() string {
	switch k {
	case ProjectionPerspective:
		return "perspective"
	case ProjectionOrthographic:
		return "orthographic"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k ProjectionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Perspective is a pinhole projection with a full field of view in radians.
type Perspective struct {
	FOV float64
}

func (Perspective) projection() {}

// Kind returns ProjectionPerspective.
func (Perspective) Kind() ProjectionKind { return ProjectionPerspective }

// OrthoFit selects how the orthographic visible width is derived.
type OrthoFit int

const (
	// FitSphere sizes the view to the bounding sphere diameter.
	FitSphere OrthoFit = iota
	// FitAspect sizes the view to the binding dimension of the asset as seen
	// from the camera, given the render aspect ratio.
	FitAspect
)

func (f OrthoFit) String() string {
	switch f {
	case FitSphere:
		return "sphere"
	case FitAspect:
		return "aspect"
	default:
		return "unknown"
	}
}

// Orthographic is a parallel projection.
type Orthographic struct {
	Fit OrthoFit
}

func (Orthographic) projection() {}

// Kind returns ProjectionOrthographic.
func (Orthographic) Kind() ProjectionKind { return ProjectionOrthographic }

// ProjectionConfig pairs a projection with the padding factor that keeps the
// framed geometry clear of the frame edges (typically 1.05 to 1.3).
type ProjectionConfig struct {
	Projection Projection
	Padding    float64
}

// Resolution is the target render size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Aspect returns width/height, or 1 for a degenerate resolution.
func (r Resolution) Aspect() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 1
	}
	return float64(r.Width) / float64(r.Height)
}

// ---------------------------------------------------------------------------
// Lighting
// ---------------------------------------------------------------------------

// Lighting selects the light setup: ThreePoint or Environment.
type Lighting interface {
	lighting() // marker method restricting implementations to this package
}

// ThreePoint selects the key/fill/rim rig tuned by Settings.Rig.
type ThreePoint struct{}

func (ThreePoint) lighting() {}

// Environment selects a single image-based light. Image references an
// environment map decoded by the caller; Strength scales its contribution.
type Environment struct {
	Image    string
	Strength float64
}

func (Environment) lighting() {}

// LightKind tags a LightSpec.
type LightKind int

const (
	LightKey LightKind = iota
	LightFill
	LightRim
	LightEnvironment
)

func (k LightKind) String() string {
	switch k {
	case LightKey:
		return "key"
	case LightFill:
		return "fill"
	case LightRim:
		return "rim"
	case LightEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k LightKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// LightSpec is one placed light. Environment lights carry only Image and
// Strength; the other kinds carry position, orientation, energy and size.
type LightSpec struct {
	Kind        LightKind    `json:"kind"`
	Position    v3.Vec       `json:"position"`
	Orientation *Orientation `json:"orientation,omitempty"`
	Energy      float64      `json:"energy,omitempty"`
	Size        float64      `json:"size,omitempty"`
	Image       string       `json:"image,omitempty"`
	Strength    float64      `json:"strength,omitempty"`
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// CameraPose is the camera placement produced for one framing job.
// FOV is set for perspective cameras and OrthoScale for orthographic ones.
type CameraPose struct {
	Projection  ProjectionKind `json:"projection"`
	Position    v3.Vec         `json:"position"`
	Orientation Orientation    `json:"orientation"`
	Distance    float64        `json:"distance"`
	Near        float64        `json:"near"`
	Far         float64        `json:"far"`
	FOV         float64        `json:"fov,omitempty"`
	OrthoScale  float64        `json:"ortho_scale,omitempty"`
}

// IsOrthographic reports whether the pose carries an orthographic scale.
func (p CameraPose) IsOrthographic() bool {
	return p.Projection == ProjectionOrthographic
}

// Request is everything one framing computation consumes.
// Elevation and Azimuth are in degrees.
type Request struct {
	Meshes     []MeshNode
	Projection ProjectionConfig
	Lighting   Lighting
	Elevation  float64
	Azimuth    float64
	Resolution Resolution
	Settings   Settings
}

// Result is the camera pose and ordered light list for one job, together
// with the bounding volumes they were derived from.
type Result struct {
	Camera CameraPose     `json:"camera"`
	Lights []LightSpec    `json:"lights"`
	Bounds BoundingBox    `json:"bounds"`
	Sphere BoundingSphere `json:"sphere"`
}

// finite reports whether every argument is a finite number.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
