// Package kernel defines the abstract geometry kernel interface used to
// measure scene shapes. An implementation turns primitive and boolean
// shapes into solids whose bounds are known and whose surface can be
// evaluated into a triangle mesh.
package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box in local space.
	BoundingBox() (min, max v3.Vec)
}

// Kernel is the abstract geometry kernel interface.
// Primitives are centered on the origin.
type Kernel interface {
	// Primitives
	Box(size v3.Vec) (Solid, error)
	Cylinder(height, radius float64) (Solid, error) // along Z
	Sphere(radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, v v3.Vec) Solid
	Rotate(s Solid, deg v3.Vec) Solid // Euler angles in degrees, applied Z then Y then X

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
