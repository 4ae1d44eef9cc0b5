package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Mesh is a triangle mesh evaluated from a solid.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Points returns the vertices as vectors, one per vertex.
func (m *Mesh) Points() []v3.Vec {
	pts := make([]v3.Vec, 0, m.VertexCount())
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		pts = append(pts, v3.Vec{
			X: float64(m.Vertices[i]),
			Y: float64(m.Vertices[i+1]),
			Z: float64(m.Vertices[i+2]),
		})
	}
	return pts
}
