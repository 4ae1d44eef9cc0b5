package scene

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Shapes
// ---------------------------------------------------------------------------

// Shape describes mesh geometry in the mesh's local space.
type Shape interface {
	shape()
}

// BoxShape is an axis-aligned box of the given size centered at the origin.
type BoxShape struct {
	Size v3.Vec `json:"size"`
}

func (BoxShape) shape() {}

// CylinderShape is a Z-axis cylinder centered at the origin.
type CylinderShape struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (CylinderShape) shape() {}

// SphereShape is a sphere centered at the origin.
type SphereShape struct {
	Radius float64 `json:"radius"`
}

func (SphereShape) shape() {}

// BoundsShape is an explicit local bounding box, as reported by an asset
// loader that already knows its extents.
type BoundsShape struct {
	Min v3.Vec `json:"min"`
	Max v3.Vec `json:"max"`
}

func (BoundsShape) shape() {}

// PointsShape carries pre-evaluated local corner points.
type PointsShape struct {
	Points []v3.Vec `json:"points"`
}

func (PointsShape) shape() {}

// BoolOp selects a boolean combination.
type BoolOp int

const (
	OpUnion BoolOp = iota
	OpDifference
	OpIntersection
)

func (op BoolOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanShape combines two shapes. It plays the role of a modifier stack:
// its bounds differ from either operand, and only evaluating it gives the
// true extent.
type BooleanShape struct {
	Op BoolOp `json:"op"`
	A  Shape  `json:"a"`
	B  Shape  `json:"b"`
}

func (BooleanShape) shape() {}

// OffsetShape moves a shape inside its mesh, typically a boolean operand.
// Rotation is in Euler degrees applied Z, then Y, then X.
type OffsetShape struct {
	Shape       Shape  `json:"shape"`
	Translation v3.Vec `json:"translation"`
	Rotation    v3.Vec `json:"rotation"`
}

func (OffsetShape) shape() {}

// ---------------------------------------------------------------------------
// Mesh
// ---------------------------------------------------------------------------

// MeshData is a renderable mesh. With Evaluate set the framer measures the
// evaluated surface instead of the shape's bounding box.
type MeshData struct {
	Shape    Shape `json:"shape"`
	Evaluate bool  `json:"evaluate,omitempty"`
}

func (MeshData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to child nodes.
// Created by the (place ...) form. Nil fields are identity.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"` // Euler angles in degrees
	Scale       *v3.Vec `json:"scale,omitempty"`
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// CollectionData represents a logical grouping.
// Created by the (collection ...) form.
type CollectionData struct {
	Description string `json:"description,omitempty"`
}

func (CollectionData) nodeData() {}
