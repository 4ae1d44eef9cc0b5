package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/chazu/iconframe/pkg/batch"
	"github.com/chazu/iconframe/pkg/config"
	"github.com/chazu/iconframe/pkg/framing"
)

func readExample(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("examples/" + name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// checkFramed verifies the invariants every successful framing must hold.
func checkFramed(t *testing.T, res framing.Result) {
	t.Helper()
	for _, c := range res.Bounds.Corners() {
		if !res.Sphere.Contains(c, 1e-9) {
			t.Errorf("bounds corner %v outside sphere %+v", c, res.Sphere)
		}
	}
	cam := res.Camera
	if cam.Near <= 0 || cam.Far <= cam.Near {
		t.Errorf("bad clip range near=%f far=%f", cam.Near, cam.Far)
	}
	if cam.Distance-res.Sphere.Radius < cam.Near || cam.Distance+res.Sphere.Radius > cam.Far {
		t.Errorf("clip range [%f, %f] does not bracket the sphere at distance %f radius %f",
			cam.Near, cam.Far, cam.Distance, res.Sphere.Radius)
	}
	if len(res.Lights) != 3 {
		t.Errorf("expected 3 lights, got %d", len(res.Lights))
	}
}

// TestE2EJar exercises the full pipeline: script -> engine -> scene ->
// validate -> flatten -> framing.
func TestE2EJar(t *testing.T) {
	app := NewApp(config.Default(), nil)

	res, err := app.Frame(readExample(t, "jar.scene"))
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	checkFramed(t, res)

	if !res.Camera.IsOrthographic() {
		t.Errorf("default job should frame orthographically, got %s", res.Camera.Projection)
	}
	// Lid top sits at z = 2.4, body bottom at z = -2.
	if d := res.Bounds.Max.Z - 2.4; d > 1e-9 || d < -1e-9 {
		t.Errorf("bounds max z = %f, want 2.4", res.Bounds.Max.Z)
	}
	if d := res.Bounds.Min.Z + 2; d > 1e-9 || d < -1e-9 {
		t.Errorf("bounds min z = %f, want -2", res.Bounds.Min.Z)
	}
	want := 2 * res.Sphere.Radius * framing.DefaultPadding
	if d := res.Camera.OrthoScale - want; d > 1e-9 || d < -1e-9 {
		t.Errorf("ortho scale = %f, want %f", res.Camera.OrthoScale, want)
	}
}

func TestE2ETableIgnoresHiddenHelpers(t *testing.T) {
	app := NewApp(config.Default(), nil)

	res, err := app.Frame(readExample(t, "table.scene"))
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	checkFramed(t, res)

	if res.Bounds.Max.X > 1.2 || res.Bounds.Max.Z > 1.1 {
		t.Errorf("hidden marker leaked into bounds: %+v", res.Bounds)
	}
	if res.Bounds.Min.Z != 0 {
		t.Errorf("legs stand on z=0, got min z %f", res.Bounds.Min.Z)
	}
}

func TestE2EBracketEvaluated(t *testing.T) {
	job := config.Default()
	job.Mesh.Cells = 32
	app := NewApp(job, nil)

	res, err := app.Frame(readExample(t, "bracket.scene"))
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	checkFramed(t, res)

	// The meshed surface stays within a couple of cells of the true extent.
	tol := 2 * 5.0 / 32
	if res.Bounds.Max.X > 2+tol || res.Bounds.Min.X < -2-tol {
		t.Errorf("x extent %f..%f, want about -2..2", res.Bounds.Min.X, res.Bounds.Max.X)
	}
	if res.Bounds.Max.Z > 3.25+tol || res.Bounds.Max.Z < 3.25-tol {
		t.Errorf("max z %f, want about 3.25", res.Bounds.Max.Z)
	}
}

func TestE2EPerspectiveJob(t *testing.T) {
	job := config.Default()
	job.Camera.Projection = config.ProjectionPerspective
	job.Camera.FOVDegrees = 50
	app := NewApp(job, nil)

	res, err := app.Frame(`(mesh "ball" (sphere :radius 2))`)
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	checkFramed(t, res)
	if res.Camera.IsOrthographic() {
		t.Error("expected perspective camera")
	}
	if res.Camera.FOV <= 0 {
		t.Errorf("fov = %f, want positive", res.Camera.FOV)
	}
}

func TestE2EEmptySource(t *testing.T) {
	app := NewApp(config.Default(), nil)

	_, err := app.Frame("")
	if !errors.Is(err, framing.ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}
}

func TestE2EHiddenOnlyScene(t *testing.T) {
	app := NewApp(config.Default(), nil)

	_, err := app.Frame(`(mesh "ghost" (box 1 1 1) :hidden)`)
	if !errors.Is(err, framing.ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}
	r := app.Check("ghost", `(mesh "ghost" (box 1 1 1) :hidden)`)
	if len(r.Errors) != 0 {
		t.Errorf("hidden-only scene is valid, got errors %v", r.Errors)
	}
	if len(r.Warnings) == 0 {
		t.Error("expected a hidden-only warning")
	}
}

func TestCheckCountsNodes(t *testing.T) {
	app := NewApp(config.Default(), nil)

	r := app.Check("jar", readExample(t, "jar.scene"))
	if len(r.Errors) != 0 {
		t.Fatalf("jar check errors: %v", r.Errors)
	}
	// body, lid, the placement of lid, and the jar collection
	if r.Nodes != 4 || r.Meshes != 2 {
		t.Errorf("counts = %d nodes, %d meshes, want 4 and 2", r.Nodes, r.Meshes)
	}

	r = app.Check("broken", "(mesh")
	if r.Nodes != 0 || r.Meshes != 0 || len(r.Errors) == 0 {
		t.Errorf("broken script report = %+v", r)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := NewApp(config.Default(), nil)

	_, err := app.Frame("(mesh \"a\"\n(box 1 1 1)")
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ScriptError, got %T: %v", err, err)
	}
	if len(se.Errors) == 0 || se.Errors[0].Message == "" {
		t.Errorf("script error should carry messages, got %+v", se.Errors)
	}
}

func TestE2EInvalidGeometry(t *testing.T) {
	app := NewApp(config.Default(), nil)

	_, err := app.Frame(`(mesh "flat" (box 1 0 1))`)
	var ie *InvalidSceneError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvalidSceneError, got %T: %v", err, err)
	}

	r := app.Check("flat", `(mesh "flat" (box 1 0 1))`)
	if len(r.Errors) != 1 {
		t.Errorf("expected 1 check error, got %v", r.Errors)
	}
}

func TestE2EFrameAllKeepsOrder(t *testing.T) {
	app := NewApp(config.Default(), nil)

	names := []string{"jar", "table", "bracket"}
	var assets []batch.Asset
	for _, n := range names {
		assets = append(assets, batch.Asset{Name: n, Source: readExample(t, n+".scene")})
	}
	assets = append(assets, batch.Asset{Name: "broken", Source: "(mesh"})

	outcomes := app.FrameAll(context.Background(), assets, 3)
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	for i, n := range names {
		if outcomes[i].Asset != n {
			t.Errorf("outcome %d = %q, want %q", i, outcomes[i].Asset, n)
		}
		if outcomes[i].Err != nil {
			t.Errorf("%s: %v", n, outcomes[i].Err)
		}
	}
	if outcomes[3].Err == nil {
		t.Error("broken script should fail")
	}

	r := NewReport(outcomes[3])
	if r.Error == "" || r.Camera != nil {
		t.Errorf("failed report = %+v", r)
	}
	r = NewReport(outcomes[0])
	if r.Error != "" || r.Camera == nil || len(r.Lights) != 3 {
		t.Errorf("jar report = %+v", r)
	}
}

func TestE2EDeterministic(t *testing.T) {
	app := NewApp(config.Default(), nil)
	source := readExample(t, "table.scene")

	first, err := app.Frame(source)
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := app.Frame(source)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if again.Camera != first.Camera || again.Sphere != first.Sphere {
			t.Fatalf("iteration %d: result changed", i)
		}
	}
}
