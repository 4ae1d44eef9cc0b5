package framing

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WorldCorners transforms the local corners of every renderable mesh into
// world space. Hidden meshes contribute nothing.
func WorldCorners(meshes []MeshNode) []v3.Vec {
	n := 0
	for _, m := range meshes {
		if m.Renderable {
			n += len(m.Corners)
		}
	}
	corners := make([]v3.Vec, 0, n)
	for _, m := range meshes {
		if !m.Renderable {
			continue
		}
		for _, c := range m.Corners {
			corners = append(corners, m.World.MulPosition(c))
		}
	}
	return corners
}

// ComputeWorldBoundingBox returns the axis-aligned box enclosing every
// transformed corner of the renderable meshes.
func ComputeWorldBoundingBox(meshes []MeshNode) (BoundingBox, error) {
	return boxOf(WorldCorners(meshes))
}

// ComputeBoundingSphere returns a sphere centered on the world bounding box
// whose radius reaches the farthest transformed corner.
func ComputeBoundingSphere(meshes []MeshNode) (BoundingSphere, error) {
	corners := WorldCorners(meshes)
	box, err := boxOf(corners)
	if err != nil {
		return BoundingSphere{}, err
	}
	return sphereOf(box, corners), nil
}

func boxOf(corners []v3.Vec) (BoundingBox, error) {
	if len(corners) == 0 {
		return BoundingBox{}, ErrEmptyScene
	}
	min := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, c := range corners {
		min = min.Min(c)
		max = max.Max(c)
	}
	return BoundingBox{Min: min, Max: max}, nil
}

func sphereOf(box BoundingBox, corners []v3.Vec) BoundingSphere {
	center := box.Center()
	radius := 0.0
	for _, c := range corners {
		radius = math.Max(radius, c.Sub(center).Length())
	}
	return BoundingSphere{Center: center, Radius: radius}
}
