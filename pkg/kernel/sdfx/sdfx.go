// Package sdfx backs kernel.Kernel with the signed distance functions of
// github.com/deadsy/sdfx. Solids stay implicit until ToMesh samples them.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/iconframe/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultMeshCells controls marching cubes resolution along the longest
// bounding box axis. Framing only needs the silhouette, so this is far
// coarser than a print-quality mesh.
const DefaultMeshCells = 64

// solid is a kernel.Solid holding an implicit surface.
type solid struct {
	sdf3 sdf.SDF3
}

func (s *solid) BoundingBox() (min, max v3.Vec) {
	box := s.sdf3.BoundingBox()
	return box.Min, box.Max
}

// Kernel builds solids as sdfx signed distance functions.
type Kernel struct {
	meshCells int
}

// Option configures an Kernel.
type Option func(*Kernel)

// WithMeshCells sets the marching cubes resolution. Values below 8 are
// raised to 8.
func WithMeshCells(n int) Option {
	return func(k *Kernel) {
		if n < 8 {
			n = 8
		}
		k.meshCells = n
	}
}

// New returns a Kernel meshing at DefaultMeshCells unless overridden.
func New(opts ...Option) *Kernel {
	k := &Kernel{meshCells: DefaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// MeshCells reports the configured marching cubes resolution.
func (k *Kernel) MeshCells() int {
	return k.meshCells
}

// sdf3 returns the distance function behind a solid from this package.
func sdf3(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).sdf3
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{sdf3: s}
}

// Box creates a box of the given size centered at the origin.
func (k *Kernel) Box(size v3.Vec) (kernel.Solid, error) {
	s, err := sdf.Box3D(size, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box %v: %w", size, err)
	}
	return wrap(s), nil
}

// Cylinder creates a Z-axis cylinder centered at the origin.
func (k *Kernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder h=%g r=%g: %w", height, radius, err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centered at the origin.
func (k *Kernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere r=%g: %w", radius, err)
	}
	return wrap(s), nil
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(sdf3(a), sdf3(b)))
}

// Difference removes b from a. The bounding box stays that of a.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(sdf3(a), sdf3(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(sdf3(a), sdf3(b)))
}

// Translate moves a solid by v.
func (k *Kernel) Translate(s kernel.Solid, v v3.Vec) kernel.Solid {
	return wrap(sdf.Transform3D(sdf3(s), sdf.Translate3d(v)))
}

// Rotate rotates a solid by Euler angles (degrees), Z then Y then X.
func (k *Kernel) Rotate(s kernel.Solid, deg v3.Vec) kernel.Solid {
	return wrap(sdf.Transform3D(sdf3(s), RotationMatrix(deg)))
}

// RotationMatrix builds Rz*Ry*Rx from Euler angles in degrees.
func RotationMatrix(deg v3.Vec) sdf.M44 {
	rad := deg.MulScalar(math.Pi / 180)
	return sdf.RotateZ(rad.Z).Mul(sdf.RotateY(rad.Y)).Mul(sdf.RotateX(rad.X))
}

// ErrEmptySurface is returned when marching cubes finds no surface, for
// example the difference of a solid with something that contains it.
var ErrEmptySurface = errors.New("sdfx: solid has no surface")

// ToMesh samples the solid with uniform marching cubes. Vertices shared
// between triangles are welded, and each vertex normal is the normalized
// sum of the face normals around it.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	tris := render.ToTriangles(sdf3(s), render.NewMarchingCubesUniform(k.meshCells))
	if len(tris) == 0 {
		return nil, ErrEmptySurface
	}

	type key [3]float32
	index := make(map[key]uint32, len(tris))
	var positions []key
	var sums []v3.Vec
	indices := make([]uint32, 0, 3*len(tris))

	for _, tri := range tris {
		n := tri.Normal()
		for _, p := range tri {
			kp := key{float32(p.X), float32(p.Y), float32(p.Z)}
			i, ok := index[kp]
			if !ok {
				i = uint32(len(positions))
				index[kp] = i
				positions = append(positions, kp)
				sums = append(sums, v3.Vec{})
			}
			sums[i] = sums[i].Add(n)
			indices = append(indices, i)
		}
	}

	m := &kernel.Mesh{
		Vertices: make([]float32, 0, 3*len(positions)),
		Normals:  make([]float32, 0, 3*len(positions)),
		Indices:  indices,
	}
	for i, p := range positions {
		n := sums[i]
		if l := n.Length(); l > 0 {
			n = n.MulScalar(1 / l)
		}
		m.Vertices = append(m.Vertices, p[0], p[1], p[2])
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	return m, nil
}
