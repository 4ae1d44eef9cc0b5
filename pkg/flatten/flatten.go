// Package flatten walks a scene graph and produces the flat list of meshes,
// with world transforms and local corners, that the framer consumes.
package flatten

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/iconframe/pkg/framing"
	"github.com/chazu/iconframe/pkg/kernel"
	"github.com/chazu/iconframe/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// frame is one level of the traversal: the accumulated world transform, the
// hidden flag of the node that pushed it, and its name for mesh paths.
type frame struct {
	world  sdf.M44
	hidden bool
	name   string
}

// transformStack accumulates spatial transforms during graph traversal.
type transformStack struct {
	frames []frame
}

func newTransformStack() *transformStack {
	return &transformStack{frames: []frame{{world: sdf.Identity3d()}}}
}

func (ts *transformStack) push(local sdf.M44, hidden bool, name string) {
	ts.frames = append(ts.frames, frame{world: ts.world().Mul(local), hidden: hidden, name: name})
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 1 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

func (ts *transformStack) world() sdf.M44 {
	return ts.frames[len(ts.frames)-1].world
}

func (ts *transformStack) hiddenFlags() []bool {
	return lo.Map(ts.frames, func(f frame, _ int) bool { return f.hidden })
}

// path joins the names on the stack with name.
func (ts *transformStack) path(name string) string {
	names := lo.FilterMap(ts.frames, func(f frame, _ int) (string, bool) {
		return f.name, f.name != ""
	})
	return strings.Join(append(names, name), "/")
}

// walker carries the per-call state of one Flatten.
type walker struct {
	g       *scene.Graph
	k       kernel.Kernel
	ts      *transformStack
	active  map[scene.NodeID]bool
	corners map[scene.NodeID][]v3.Vec // instanced meshes are measured once
	ids     map[string]int
	out     []framing.MeshNode
}

// Flatten walks the roots of g in order and returns one MeshNode per mesh
// visit. A mesh reached through several parents appears once per path.
// Hidden meshes are reported as non-renderable and are not measured.
// The graph is never mutated.
func Flatten(g *scene.Graph, k kernel.Kernel) ([]framing.MeshNode, error) {
	if g == nil {
		return nil, nil
	}
	w := &walker{
		g:       g,
		k:       k,
		ts:      newTransformStack(),
		active:  make(map[scene.NodeID]bool),
		corners: make(map[scene.NodeID][]v3.Vec),
		ids:     make(map[string]int),
	}
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			return nil, fmt.Errorf("flatten: root %s does not exist", rootID.Short())
		}
		if err := w.walkNode(root); err != nil {
			return nil, fmt.Errorf("flatten: error walking root %s: %w", rootID.Short(), err)
		}
	}
	return w.out, nil
}

// walkNode recursively traverses a node and its children.
func (w *walker) walkNode(n *scene.Node) error {
	if w.active[n.ID] {
		return fmt.Errorf("cycle through node %s", n.ID.Short())
	}
	w.active[n.ID] = true
	defer delete(w.active, n.ID)

	switch n.Kind {
	case scene.NodeMesh:
		return w.handleMesh(n)
	case scene.NodeTransform:
		td, ok := n.Data.(scene.TransformData)
		if !ok {
			return fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		return w.handleChildren(n, LocalMatrix(td))
	case scene.NodeCollection:
		return w.handleChildren(n, sdf.Identity3d())
	default:
		return fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// handleChildren pushes the node's transform, recurses, then pops.
func (w *walker) handleChildren(n *scene.Node, local sdf.M44) error {
	w.ts.push(local, n.Hidden, n.Name)
	defer w.ts.pop()

	for _, cid := range n.Children {
		child := w.g.Get(cid)
		if child == nil {
			return fmt.Errorf("node %s references missing child %s", n.ID.Short(), cid.Short())
		}
		if err := w.walkNode(child); err != nil {
			return err
		}
	}
	return nil
}

// handleMesh emits one MeshNode for the current path.
func (w *walker) handleMesh(n *scene.Node) error {
	md, ok := n.Data.(scene.MeshData)
	if !ok {
		return fmt.Errorf("mesh node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	name := n.Name
	if name == "" {
		name = n.ID.Short()
	}
	id := w.ts.path(name)
	if seen := w.ids[id]; seen > 0 {
		w.ids[id]++
		id = fmt.Sprintf("%s#%d", id, seen+1)
	} else {
		w.ids[id] = 1
	}

	mn := framing.MeshNode{
		ID:         id,
		World:      w.ts.world(),
		Renderable: framing.IsRenderable(n.Hidden, w.ts.hiddenFlags()...),
	}
	if mn.Renderable {
		corners, err := w.meshCorners(n.ID, md)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", id, err)
		}
		mn.Corners = corners
	}
	w.out = append(w.out, mn)
	return nil
}

// meshCorners measures a mesh once per node ID.
func (w *walker) meshCorners(id scene.NodeID, md scene.MeshData) ([]v3.Vec, error) {
	if c, ok := w.corners[id]; ok {
		return c, nil
	}
	c, err := Corners(w.k, md)
	if err != nil {
		return nil, err
	}
	w.corners[id] = c
	return c, nil
}

// Corners returns the local points that bound a mesh: the literal points of
// a PointsShape, the corners of a BoundsShape, the evaluated surface
// vertices when md.Evaluate is set, and otherwise the 8 corners of the
// kernel's bounding box.
func Corners(k kernel.Kernel, md scene.MeshData) ([]v3.Vec, error) {
	switch s := md.Shape.(type) {
	case scene.PointsShape:
		return append([]v3.Vec(nil), s.Points...), nil
	case scene.BoundsShape:
		return framing.BoxCorners(s.Min, s.Max), nil
	}

	solid, err := BuildSolid(k, md.Shape)
	if err != nil {
		return nil, err
	}
	if !md.Evaluate {
		return framing.BoxCorners(solid.BoundingBox()), nil
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return lo.Uniq(mesh.Points()), nil
}

// BuildSolid turns a shape tree into a kernel solid.
func BuildSolid(k kernel.Kernel, s scene.Shape) (kernel.Solid, error) {
	switch s := s.(type) {
	case scene.BoxShape:
		return k.Box(s.Size)
	case scene.CylinderShape:
		return k.Cylinder(s.Height, s.Radius)
	case scene.SphereShape:
		return k.Sphere(s.Radius)
	case scene.BooleanShape:
		a, err := BuildSolid(k, s.A)
		if err != nil {
			return nil, err
		}
		b, err := BuildSolid(k, s.B)
		if err != nil {
			return nil, err
		}
		switch s.Op {
		case scene.OpUnion:
			return k.Union(a, b), nil
		case scene.OpDifference:
			return k.Difference(a, b), nil
		case scene.OpIntersection:
			return k.Intersection(a, b), nil
		}
		return nil, fmt.Errorf("unknown boolean op %v", s.Op)
	case scene.OffsetShape:
		inner, err := BuildSolid(k, s.Shape)
		if err != nil {
			return nil, err
		}
		if s.Rotation != (v3.Vec{}) {
			inner = k.Rotate(inner, s.Rotation)
		}
		if s.Translation != (v3.Vec{}) {
			inner = k.Translate(inner, s.Translation)
		}
		return inner, nil
	case nil:
		return nil, fmt.Errorf("missing shape")
	default:
		return nil, fmt.Errorf("shape %T has no solid form", s)
	}
}

// LocalMatrix composes T*Rz*Ry*Rx*S from a transform node. Nil fields are
// identity; rotation is in degrees.
func LocalMatrix(td scene.TransformData) sdf.M44 {
	m := sdf.Identity3d()
	if td.Translation != nil {
		m = m.Mul(sdf.Translate3d(*td.Translation))
	}
	if td.Rotation != nil {
		r := *td.Rotation
		m = m.Mul(sdf.RotateZ(r.Z * math.Pi / 180)).
			Mul(sdf.RotateY(r.Y * math.Pi / 180)).
			Mul(sdf.RotateX(r.X * math.Pi / 180))
	}
	if td.Scale != nil {
		m = m.Mul(sdf.Scale3d(*td.Scale))
	}
	return m
}
