// Package config loads framing job files. A job fixes the camera, render,
// lighting and clip parameters shared by every asset in one batch run.
// Files are TOML or YAML; anything a file leaves out keeps its default.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/iconframe/pkg/framing"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Job is the on-disk form of a framing job.
type Job struct {
	Camera CameraConfig   `toml:"camera" yaml:"camera"`
	Render RenderConfig   `toml:"render" yaml:"render"`
	Lights LightingConfig `toml:"lighting" yaml:"lighting"`
	Clip   ClipConfig     `toml:"clip" yaml:"clip"`
	Axes   AxesConfig     `toml:"axes" yaml:"axes"`
	Mesh   MeshConfig     `toml:"mesh" yaml:"mesh"`

	// Workers bounds batch concurrency; 0 means one per CPU.
	Workers int `toml:"workers" yaml:"workers"`
}

// CameraConfig selects the projection and view direction.
type CameraConfig struct {
	Projection string  `toml:"projection" yaml:"projection"` // "perspective" or "orthographic"
	OrthoFit   string  `toml:"ortho_fit" yaml:"ortho_fit"`   // "sphere" or "aspect"
	Padding    float64 `toml:"padding" yaml:"padding"`
	Elevation  float64 `toml:"elevation" yaml:"elevation"` // degrees
	Azimuth    float64 `toml:"azimuth" yaml:"azimuth"`     // degrees

	// Perspective field of view. The first one set wins, in this order.
	FOVDegrees  float64 `toml:"fov_degrees" yaml:"fov_degrees"`
	FOVRadians  float64 `toml:"fov_radians" yaml:"fov_radians"`
	SensorWidth float64 `toml:"sensor_width" yaml:"sensor_width"` // mm
	FocalLength float64 `toml:"focal_length" yaml:"focal_length"` // mm

	MinRadius           float64 `toml:"min_radius" yaml:"min_radius"`
	OrthoDistanceFactor float64 `toml:"ortho_distance_factor" yaml:"ortho_distance_factor"`
}

// RenderConfig is the target image size.
type RenderConfig struct {
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`
}

// LightingConfig picks a three-point rig or an environment light.
type LightingConfig struct {
	Mode     string  `toml:"mode" yaml:"mode"` // "three_point" or "environment"
	Image    string  `toml:"image" yaml:"image"`
	Strength float64 `toml:"strength" yaml:"strength"`

	KeyEnergy float64 `toml:"key_energy" yaml:"key_energy"`
	FillRatio float64 `toml:"fill_ratio" yaml:"fill_ratio"`
	RimRatio  float64 `toml:"rim_ratio" yaml:"rim_ratio"`
	KeySize   float64 `toml:"key_size" yaml:"key_size"`
	FillSize  float64 `toml:"fill_size" yaml:"fill_size"`
	RimSize   float64 `toml:"rim_size" yaml:"rim_size"`
}

// ClipConfig mirrors framing.ClipConfig.
type ClipConfig struct {
	NearMargin float64 `toml:"near_margin" yaml:"near_margin"`
	FarMargin  float64 `toml:"far_margin" yaml:"far_margin"`
	Epsilon    float64 `toml:"epsilon" yaml:"epsilon"`
}

// AxesConfig names the axis convention with strings such as "-z" or "+y".
type AxesConfig struct {
	Forward    string `toml:"forward" yaml:"forward"`
	Up         string `toml:"up" yaml:"up"`
	WorldUp    string `toml:"world_up" yaml:"world_up"`
	FallbackUp string `toml:"fallback_up" yaml:"fallback_up"`
}

// MeshConfig tunes the meshing used for evaluated corners.
type MeshConfig struct {
	Cells int `toml:"cells" yaml:"cells"`
}

// Lens defaults used when a perspective job names no field of view.
const (
	DefaultSensorWidth = 36.0
	DefaultFocalLength = 50.0
	DefaultMeshCells   = 64
)

// Projection and lighting mode names.
const (
	ProjectionPerspective  = "perspective"
	ProjectionOrthographic = "orthographic"
	FitSphere              = "sphere"
	FitAspect              = "aspect"
	LightingThreePoint     = "three_point"
	LightingEnvironment    = "environment"
)

// Default returns a job carrying the framing defaults: an isometric
// orthographic camera on a 256x256 render lit by a three-point rig.
func Default() Job {
	clip := framing.DefaultClipConfig()
	rig := framing.DefaultRigConfig()
	return Job{
		Camera: CameraConfig{
			Projection:          ProjectionOrthographic,
			OrthoFit:            FitSphere,
			Padding:             framing.DefaultPadding,
			Elevation:           framing.DefaultElevation,
			Azimuth:             framing.DefaultAzimuth,
			SensorWidth:         DefaultSensorWidth,
			FocalLength:         DefaultFocalLength,
			MinRadius:           framing.DefaultMinRadius,
			OrthoDistanceFactor: framing.DefaultOrthoDistanceFactor,
		},
		Render: RenderConfig{Width: framing.DefaultResolution, Height: framing.DefaultResolution},
		Lights: LightingConfig{
			Mode:      LightingThreePoint,
			Strength:  1,
			KeyEnergy: rig.KeyEnergy,
			FillRatio: rig.FillRatio,
			RimRatio:  rig.RimRatio,
			KeySize:   rig.KeySize,
			FillSize:  rig.FillSize,
			RimSize:   rig.RimSize,
		},
		Clip: ClipConfig{NearMargin: clip.NearMargin, FarMargin: clip.FarMargin, Epsilon: clip.Epsilon},
		Axes: AxesConfig{Forward: "-z", Up: "+y", WorldUp: "+z", FallbackUp: "+y"},
		Mesh: MeshConfig{Cells: DefaultMeshCells},
	}
}

// Load reads a job file, choosing the decoder by extension (.toml, .yaml,
// .yml). Values in the file override Default; the result is validated.
func Load(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("config: %w", err)
	}
	job, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Job{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return job, nil
}

// Parse decodes job data in the format named by ext and validates it.
func Parse(data []byte, ext string) (Job, error) {
	job := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &job); err != nil {
			return Job{}, fmt.Errorf("decoding toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &job); err != nil {
			return Job{}, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		return Job{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Validate checks that every section converts to valid framing inputs.
func (j Job) Validate() error {
	if _, err := j.Projection(); err != nil {
		return err
	}
	if _, err := j.Lighting(); err != nil {
		return err
	}
	s, err := j.Settings()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.Rig.Validate(); err != nil {
		return err
	}
	if err := s.Axes.Validate(); err != nil {
		return fmt.Errorf("axes: %w", err)
	}
	if j.Render.Width <= 0 || j.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d must be positive", j.Render.Width, j.Render.Height)
	}
	if !finite(j.Camera.Elevation, j.Camera.Azimuth) {
		return fmt.Errorf("camera angles must be finite")
	}
	if j.Mesh.Cells < 8 {
		return fmt.Errorf("mesh cells %d must be at least 8", j.Mesh.Cells)
	}
	if j.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", j.Workers)
	}
	return nil
}

// Settings converts the tuning sections to framing.Settings.
func (j Job) Settings() (framing.Settings, error) {
	axes, err := j.Axes.Convention()
	if err != nil {
		return framing.Settings{}, err
	}
	return framing.Settings{
		Clip: framing.ClipConfig{
			NearMargin: j.Clip.NearMargin,
			FarMargin:  j.Clip.FarMargin,
			Epsilon:    j.Clip.Epsilon,
		},
		Axes: axes,
		Rig: framing.RigConfig{
			KeyEnergy: j.Lights.KeyEnergy,
			FillRatio: j.Lights.FillRatio,
			RimRatio:  j.Lights.RimRatio,
			KeySize:   j.Lights.KeySize,
			FillSize:  j.Lights.FillSize,
			RimSize:   j.Lights.RimSize,
		},
		MinRadius:           j.Camera.MinRadius,
		OrthoDistanceFactor: j.Camera.OrthoDistanceFactor,
	}, nil
}

// Projection converts the camera section to a framing.ProjectionConfig.
func (j Job) Projection() (framing.ProjectionConfig, error) {
	c := j.Camera
	pc := framing.ProjectionConfig{Padding: c.Padding}
	if !finite(c.Padding) || c.Padding <= 0 {
		return pc, fmt.Errorf("%w: padding %.4g must be positive", framing.ErrInvalidFov, c.Padding)
	}

	switch strings.ToLower(c.Projection) {
	case ProjectionOrthographic:
		switch strings.ToLower(c.OrthoFit) {
		case FitSphere, "":
			pc.Projection = framing.Orthographic{Fit: framing.FitSphere}
		case FitAspect:
			pc.Projection = framing.Orthographic{Fit: framing.FitAspect}
		default:
			return pc, fmt.Errorf("unknown ortho fit %q", c.OrthoFit)
		}
	case ProjectionPerspective:
		fov, err := c.fov()
		if err != nil {
			return pc, err
		}
		pc.Projection = framing.Perspective{FOV: fov}
	default:
		return pc, fmt.Errorf("unknown projection %q", c.Projection)
	}
	return pc, nil
}

// fov resolves the field of view in radians.
func (c CameraConfig) fov() (float64, error) {
	var fov float64
	switch {
	case c.FOVDegrees != 0:
		fov = c.FOVDegrees * math.Pi / 180
	case c.FOVRadians != 0:
		fov = c.FOVRadians
	default:
		return framing.FOVFromSensor(c.SensorWidth, c.FocalLength)
	}
	if !finite(fov) || fov <= 0 || fov >= math.Pi {
		return 0, fmt.Errorf("%w: %.4g rad outside (0, pi)", framing.ErrInvalidFov, fov)
	}
	return fov, nil
}

// Lighting converts the lighting section to a framing.Lighting.
func (j Job) Lighting() (framing.Lighting, error) {
	l := j.Lights
	switch strings.ToLower(l.Mode) {
	case LightingThreePoint, "":
		return framing.ThreePoint{}, nil
	case LightingEnvironment:
		if l.Image == "" {
			return nil, fmt.Errorf("%w: environment lighting needs an image", framing.ErrInvalidLight)
		}
		if _, err := framing.BuildEnvironmentLight(l.Image, l.Strength); err != nil {
			return nil, err
		}
		return framing.Environment{Image: l.Image, Strength: l.Strength}, nil
	}
	return nil, fmt.Errorf("unknown lighting mode %q", l.Mode)
}

// Request assembles a framing.Request for one asset's meshes.
func (j Job) Request(meshes []framing.MeshNode) (framing.Request, error) {
	pc, err := j.Projection()
	if err != nil {
		return framing.Request{}, err
	}
	lighting, err := j.Lighting()
	if err != nil {
		return framing.Request{}, err
	}
	s, err := j.Settings()
	if err != nil {
		return framing.Request{}, err
	}
	return framing.Request{
		Meshes:     meshes,
		Projection: pc,
		Lighting:   lighting,
		Elevation:  j.Camera.Elevation,
		Azimuth:    j.Camera.Azimuth,
		Resolution: framing.Resolution{Width: j.Render.Width, Height: j.Render.Height},
		Settings:   s,
	}, nil
}

// Convention parses the axis strings.
func (a AxesConfig) Convention() (framing.AxisConvention, error) {
	var c framing.AxisConvention
	for _, f := range []struct {
		name string
		in   string
		out  *v3.Vec
	}{
		{"forward", a.Forward, &c.Forward},
		{"up", a.Up, &c.Up},
		{"world_up", a.WorldUp, &c.WorldUp},
		{"fallback_up", a.FallbackUp, &c.FallbackUp},
	} {
		v, err := ParseAxis(f.in)
		if err != nil {
			return c, fmt.Errorf("axes.%s: %w", f.name, err)
		}
		*f.out = v
	}
	return c, nil
}

// ParseAxis turns "x", "+y", "-z" and the like into a unit vector.
func ParseAxis(s string) (v3.Vec, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	sign := 1.0
	switch {
	case strings.HasPrefix(t, "-"):
		sign, t = -1, t[1:]
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	}
	switch t {
	case "x":
		return v3.Vec{X: sign}, nil
	case "y":
		return v3.Vec{Y: sign}, nil
	case "z":
		return v3.Vec{Z: sign}, nil
	}
	return v3.Vec{}, fmt.Errorf("invalid axis %q", s)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
