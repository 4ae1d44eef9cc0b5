package flatten

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/iconframe/pkg/framing"
	"github.com/chazu/iconframe/pkg/kernel/sdfx"
	"github.com/chazu/iconframe/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func vecNear(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

func vec(x, y, z float64) *v3.Vec {
	return &v3.Vec{X: x, Y: y, Z: z}
}

func addMesh(g *scene.Graph, name string, shape scene.Shape) scene.NodeID {
	id := scene.NewNodeID("mesh/" + name)
	g.AddNode(&scene.Node{ID: id, Kind: scene.NodeMesh, Name: name, Data: scene.MeshData{Shape: shape}})
	return id
}

func addPlace(g *scene.Graph, path string, td scene.TransformData, children ...scene.NodeID) scene.NodeID {
	id := scene.NewNodeID("place/" + path)
	g.AddNode(&scene.Node{ID: id, Kind: scene.NodeTransform, Children: children, Data: td})
	return id
}

func addCollection(g *scene.Graph, name string, hidden bool, children ...scene.NodeID) scene.NodeID {
	id := scene.NewNodeID("collection/" + name)
	g.AddNode(&scene.Node{ID: id, Kind: scene.NodeCollection, Name: name, Hidden: hidden, Children: children, Data: scene.CollectionData{}})
	return id
}

func unitBox() scene.Shape {
	return scene.BoxShape{Size: v3.Vec{X: 1, Y: 1, Z: 1}}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestFlattenNil(t *testing.T) {
	meshes, err := Flatten(nil, sdfx.New())
	if err != nil || meshes != nil {
		t.Fatalf("Flatten(nil) = %v, %v; want nil, nil", meshes, err)
	}
}

func TestBoxCornersFromKernel(t *testing.T) {
	g := scene.New()
	addMesh(g, "crate", scene.BoxShape{Size: v3.Vec{X: 2, Y: 4, Z: 6}})
	g.ResolveRoots()

	meshes, err := Flatten(g, sdfx.New())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(meshes))
	}
	m := meshes[0]
	if m.ID != "crate" || !m.Renderable {
		t.Errorf("mesh = %q renderable=%v", m.ID, m.Renderable)
	}
	if len(m.Corners) != 8 {
		t.Fatalf("got %d corners, want 8", len(m.Corners))
	}
	box, err := framing.ComputeWorldBoundingBox(meshes)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if !vecNear(box.Min, v3.Vec{X: -1, Y: -2, Z: -3}, 1e-6) || !vecNear(box.Max, v3.Vec{X: 1, Y: 2, Z: 3}, 1e-6) {
		t.Errorf("bounds = %v..%v", box.Min, box.Max)
	}
}

func TestNestedTransformsMatchManualComposition(t *testing.T) {
	g := scene.New()
	part := addMesh(g, "part", unitBox())
	inner := addPlace(g, "inner", scene.TransformData{
		Rotation: vec(0, 0, 90),
		Scale:    vec(2, 1, 1),
	}, part)
	addPlace(g, "outer", scene.TransformData{
		Translation: vec(10, 0, 0),
		Rotation:    vec(30, 0, 0),
	}, inner)
	g.ResolveRoots()

	meshes, err := Flatten(g, sdfx.New())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(meshes))
	}

	want := sdf.Translate3d(v3.Vec{X: 10}).
		Mul(sdf.RotateX(30 * math.Pi / 180)).
		Mul(sdf.RotateZ(90 * math.Pi / 180)).
		Mul(sdf.Scale3d(v3.Vec{X: 2, Y: 1, Z: 1}))

	p := v3.Vec{X: 0.5, Y: -0.5, Z: 0.5}
	got := meshes[0].World.MulPosition(p)
	if !vecNear(got, want.MulPosition(p), 1e-9) {
		t.Errorf("world(%v) = %v, want %v", p, got, want.MulPosition(p))
	}
}

func TestLocalMatrixIdentity(t *testing.T) {
	p := v3.Vec{X: 1, Y: 2, Z: 3}
	if got := LocalMatrix(scene.TransformData{}).MulPosition(p); !vecNear(got, p, 0) {
		t.Errorf("empty transform moved %v to %v", p, got)
	}
}

func TestHiddenCollectionExcludesMeshes(t *testing.T) {
	g := scene.New()
	shown := addMesh(g, "shown", unitBox())
	ghost := addMesh(g, "ghost", unitBox())
	far := addPlace(g, "far", scene.TransformData{Translation: vec(100, 0, 0)}, ghost)
	addCollection(g, "visible", false, shown)
	addCollection(g, "helpers", true, far)
	g.ResolveRoots()

	meshes, err := Flatten(g, sdfx.New())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(meshes))
	}
	if meshes[0].ID != "visible/shown" || !meshes[0].Renderable {
		t.Errorf("first mesh = %q renderable=%v", meshes[0].ID, meshes[0].Renderable)
	}
	if meshes[1].ID != "helpers/ghost" || meshes[1].Renderable {
		t.Errorf("second mesh = %q renderable=%v", meshes[1].ID, meshes[1].Renderable)
	}
	if meshes[1].Corners != nil {
		t.Error("hidden meshes should not be measured")
	}

	box, err := framing.ComputeWorldBoundingBox(meshes)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if box.Max.X > 1 {
		t.Errorf("hidden mesh leaked into bounds: max.X = %f", box.Max.X)
	}
}

func TestHiddenMesh(t *testing.T) {
	g := scene.New()
	id := addMesh(g, "wire", unitBox())
	g.Get(id).Hidden = true
	g.ResolveRoots()

	meshes, err := Flatten(g, sdfx.New())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if _, err := framing.ComputeBoundingSphere(meshes); err == nil {
		t.Error("a scene of hidden meshes should be empty")
	}
}

func TestInstancedMeshPaths(t *testing.T) {
	g := scene.New()
	leg := addMesh(g, "leg", unitBox())
	a := addPlace(g, "a", scene.TransformData{Translation: vec(-1, 0, 0)}, leg)
	b := addPlace(g, "b", scene.TransformData{Translation: vec(1, 0, 0)}, leg)
	addCollection(g, "table", false, a, b)
	g.ResolveRoots()

	meshes, err := Flatten(g, sdfx.New())
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(meshes))
	}
	if meshes[0].ID != "table/leg" || meshes[1].ID != "table/leg#2" {
		t.Errorf("ids = %q, %q", meshes[0].ID, meshes[1].ID)
	}
	c0 := meshes[0].World.MulPosition(v3.Vec{})
	c1 := meshes[1].World.MulPosition(v3.Vec{})
	if !vecNear(c0, v3.Vec{X: -1}, 1e-12) || !vecNear(c1, v3.Vec{X: 1}, 1e-12) {
		t.Errorf("instance origins = %v, %v", c0, c1)
	}
}

func TestPointsAndBoundsShapes(t *testing.T) {
	pts := []v3.Vec{{X: 1}, {Y: 2}, {Z: -3}}
	got, err := Corners(sdfx.New(), scene.MeshData{Shape: scene.PointsShape{Points: pts}})
	if err != nil {
		t.Fatalf("Corners(points): %v", err)
	}
	if len(got) != 3 || got[2] != pts[2] {
		t.Errorf("points = %v", got)
	}
	got[0] = v3.Vec{X: 99}
	if pts[0].X == 99 {
		t.Error("Corners must copy literal points")
	}

	got, err = Corners(sdfx.New(), scene.MeshData{Shape: scene.BoundsShape{Min: v3.Vec{X: -1}, Max: v3.Vec{X: 1, Y: 1, Z: 1}}})
	if err != nil {
		t.Fatalf("Corners(bounds): %v", err)
	}
	if len(got) != 8 {
		t.Errorf("bounds corners = %d, want 8", len(got))
	}
}

func TestEvaluatedSphereCorners(t *testing.T) {
	k := sdfx.New(sdfx.WithMeshCells(24))
	got, err := Corners(k, scene.MeshData{Shape: scene.SphereShape{Radius: 1}, Evaluate: true})
	if err != nil {
		t.Fatalf("Corners: %v", err)
	}
	if len(got) <= 8 {
		t.Fatalf("evaluated sphere gave %d points", len(got))
	}
	slack := 2 * 2.0 / 24
	for _, p := range got {
		if p.Length() > 1+slack {
			t.Fatalf("point %v outside sphere", p)
		}
	}
}

func TestEvaluateTightensBooleanBounds(t *testing.T) {
	// A box minus a slab covering its top half: the bounding box still
	// reports the full box, the evaluated surface does not.
	shape := scene.BooleanShape{
		Op: scene.OpDifference,
		A:  scene.BoxShape{Size: v3.Vec{X: 2, Y: 2, Z: 2}},
		B: scene.OffsetShape{
			Shape:       scene.BoxShape{Size: v3.Vec{X: 4, Y: 4, Z: 2}},
			Translation: v3.Vec{Z: 1},
		},
	}
	k := sdfx.New(sdfx.WithMeshCells(32))

	loose, err := Corners(k, scene.MeshData{Shape: shape})
	if err != nil {
		t.Fatalf("Corners: %v", err)
	}
	tight, err := Corners(k, scene.MeshData{Shape: shape, Evaluate: true})
	if err != nil {
		t.Fatalf("Corners(evaluate): %v", err)
	}

	maxZ := func(pts []v3.Vec) float64 {
		z := math.Inf(-1)
		for _, p := range pts {
			z = math.Max(z, p.Z)
		}
		return z
	}
	if maxZ(loose) < 0.99 {
		t.Errorf("bounding box top = %f, want ~1", maxZ(loose))
	}
	if maxZ(tight) > 0.2 {
		t.Errorf("evaluated top = %f, want ~0", maxZ(tight))
	}
}

func TestShapeErrors(t *testing.T) {
	k := sdfx.New()
	_, err := BuildSolid(k, scene.BooleanShape{
		Op: scene.OpUnion,
		A:  unitBox(),
		B:  scene.PointsShape{Points: []v3.Vec{{}}},
	})
	if err == nil || !strings.Contains(err.Error(), "no solid form") {
		t.Errorf("points operand error = %v", err)
	}

	g := scene.New()
	addMesh(g, "bad", scene.SphereShape{Radius: -1})
	g.ResolveRoots()
	if _, err := Flatten(g, k); err == nil || !strings.Contains(err.Error(), `mesh "bad"`) {
		t.Errorf("Flatten error = %v", err)
	}
}

func TestCycleIsAnError(t *testing.T) {
	g := scene.New()
	a := scene.NewNodeID("collection/a")
	b := scene.NewNodeID("collection/b")
	g.AddNode(&scene.Node{ID: a, Kind: scene.NodeCollection, Children: []scene.NodeID{b}, Data: scene.CollectionData{}})
	g.AddNode(&scene.Node{ID: b, Kind: scene.NodeCollection, Children: []scene.NodeID{a}, Data: scene.CollectionData{}})
	g.Roots = append(g.Roots, a)

	if _, err := Flatten(g, sdfx.New()); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Flatten error = %v, want cycle", err)
	}
}
