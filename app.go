package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/chazu/iconframe/pkg/batch"
	"github.com/chazu/iconframe/pkg/config"
	"github.com/chazu/iconframe/pkg/engine"
	"github.com/chazu/iconframe/pkg/flatten"
	"github.com/chazu/iconframe/pkg/framing"
	"github.com/chazu/iconframe/pkg/kernel"
	"github.com/chazu/iconframe/pkg/kernel/sdfx"
	"github.com/chazu/iconframe/pkg/scene"
)

// App runs the framing pipeline for one job: script -> scene graph ->
// validation -> mesh nodes -> camera and lights.
type App struct {
	// evalMu serializes script evaluation; zygomys keeps global state that
	// is not safe for concurrent sandbox creation. Flattening and framing
	// run in parallel.
	evalMu sync.Mutex
	engine *engine.Engine
	kernel kernel.Kernel
	job    config.Job
	log    *slog.Logger
}

// NewApp creates an App for job. A nil logger discards.
func NewApp(job config.Job, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(sdfx.WithMeshCells(job.Mesh.Cells)),
		job:    job,
		log:    logger,
	}
}

// ScriptError carries the eval errors of a script that failed to run.
type ScriptError struct {
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return "script: " + strings.Join(msgs, "; ")
}

// InvalidSceneError carries the blocking validation findings of a scene.
type InvalidSceneError struct {
	Errors []scene.ValidationError
}

func (e *InvalidSceneError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid scene: " + strings.Join(msgs, "; ")
}

// Build evaluates and validates source, returning the scene graph and any
// advisory warnings.
func (a *App) Build(source string) (*scene.Graph, []scene.ValidationWarning, error) {
	a.evalMu.Lock()
	g, evalErrs, err := a.engine.Evaluate(source)
	a.evalMu.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(evalErrs) > 0 {
		return nil, nil, &ScriptError{Errors: evalErrs}
	}

	vr := scene.ValidateAll(g)
	if !vr.OK() {
		return nil, vr.Warnings, &InvalidSceneError{Errors: vr.Errors}
	}
	a.log.Debug("scene built", "nodes", g.NodeCount(), "meshes", len(g.Meshes()))
	return g, vr.Warnings, nil
}

// Frame runs the whole pipeline on one scene script.
func (a *App) Frame(source string) (framing.Result, error) {
	g, warnings, err := a.Build(source)
	for _, w := range warnings {
		a.log.Debug("scene warning", "node", w.NodeID.Short(), "msg", w.Message)
	}
	if err != nil {
		return framing.Result{}, err
	}

	meshes, err := flatten.Flatten(g, a.kernel)
	if err != nil {
		return framing.Result{}, err
	}
	req, err := a.job.Request(meshes)
	if err != nil {
		return framing.Result{}, err
	}
	return framing.FrameScene(req)
}

// FrameAll frames every asset on a bounded worker pool.
func (a *App) FrameAll(ctx context.Context, assets []batch.Asset, workers int) []batch.Outcome {
	r := batch.Runner{Workers: workers, Logger: a.log}
	return r.Run(ctx, assets, func(ctx context.Context, as batch.Asset) (framing.Result, error) {
		return a.Frame(as.Source)
	})
}

// Report is the JSON record written for one asset.
type Report struct {
	Asset  string                  `json:"asset"`
	Camera *framing.CameraPose     `json:"camera,omitempty"`
	Lights []framing.LightSpec     `json:"lights,omitempty"`
	Bounds *framing.BoundingBox    `json:"bounds,omitempty"`
	Sphere *framing.BoundingSphere `json:"sphere,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// NewReport converts a batch outcome to its JSON record.
func NewReport(o batch.Outcome) Report {
	r := Report{Asset: o.Asset}
	if o.Err != nil {
		r.Error = o.Err.Error()
		return r
	}
	res := o.Result
	r.Camera = &res.Camera
	r.Lights = res.Lights
	r.Bounds = &res.Bounds
	r.Sphere = &res.Sphere
	return r
}

// CheckReport is the result of checking one script without framing it.
type CheckReport struct {
	Asset    string   `json:"asset"`
	Nodes    int      `json:"nodes"`
	Meshes   int      `json:"meshes"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Check evaluates and validates source.
func (a *App) Check(name, source string) CheckReport {
	r := CheckReport{Asset: name}
	g, warnings, err := a.Build(source)
	if g != nil {
		r.Nodes, r.Meshes = g.NodeCount(), len(g.Meshes())
	}
	for _, w := range warnings {
		r.Warnings = append(r.Warnings, w.Message)
	}

	var se *ScriptError
	var ie *InvalidSceneError
	switch {
	case err == nil:
	case errors.As(err, &se):
		for _, e := range se.Errors {
			r.Errors = append(r.Errors, e.Error())
		}
	case errors.As(err, &ie):
		for _, e := range ie.Errors {
			r.Errors = append(r.Errors, e.Error())
		}
	default:
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}
