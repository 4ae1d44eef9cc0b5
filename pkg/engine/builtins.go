package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chazu/iconframe/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a scene.Shape so it can be returned from a shape builtin
// and consumed by `mesh` or a boolean.
type sexpShape struct {
	shape scene.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %T)", s.shape)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a scene.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   scene.NodeID
	name string // human-readable name for error messages and IDs
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		// A keyword followed by another keyword, or at the end, is a flag.
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// float reads an optional numeric keyword into dst.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// vec reads an optional vec3 keyword. A bare number is accepted as a
// uniform vector when uniform is set.
func (a kwArgs) vec(key string, uniform bool) (*v3.Vec, error) {
	v, ok := a.kw[key]
	if !ok {
		return nil, nil
	}
	if uniform {
		if f, err := toFloat64(v); err == nil {
			return &v3.Vec{X: f, Y: f, Z: f}, nil
		}
	}
	vec, err := toVec3(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &vec, nil
}

// flag reads an optional boolean keyword; a bare keyword counts as true.
func (a kwArgs) flag(key string) (bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return false, nil
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true/false and the null left by a bare flag keyword.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a node reference.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a shape from a sexpShape.
func toShape(s zygo.Sexp) (scene.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.shape, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Graph building
// ---------------------------------------------------------------------------

// builder populates one scene graph during one evaluation. Anonymous nodes
// are numbered per evaluation so IDs are stable across re-runs.
type builder struct {
	g        *scene.Graph
	count    map[string]int
	deadline time.Time // zero means no limit
}

func newBuilder(g *scene.Graph, deadline time.Time) *builder {
	return &builder{g: g, count: make(map[string]int), deadline: deadline}
}

// errDeadline aborts a script still running after its caller gave up.
var errDeadline = errors.New("evaluation deadline exceeded")

// guard makes fn fail once the deadline has passed. zygomys cannot be
// interrupted, so this is how a timed-out script that keeps calling
// builtins stops.
func (b *builder) guard(fn zygo.ZlispUserFunction) zygo.ZlispUserFunction {
	if b.deadline.IsZero() {
		return fn
	}
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if time.Now().After(b.deadline) {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, errDeadline)
		}
		return fn(env, name, args)
	}
}

// nodeID returns a content-addressed ID for kind/name, numbering repeats.
func (b *builder) nodeID(kind, name string) scene.NodeID {
	path := kind + "/" + name
	b.count[path]++
	if n := b.count[path]; n > 1 {
		path = fmt.Sprintf("%s#%d", path, n)
	}
	return scene.NewNodeID(path)
}

// children converts trailing arguments to node IDs.
func childRefs(form string, args []zygo.Sexp) ([]scene.NodeID, error) {
	var ids []scene.NodeID
	for i, arg := range args {
		// Lists let scripts build children with map or a loop.
		if items, err := sexpListToSlice(arg); err == nil {
			nested, err := childRefs(form, items)
			if err != nil {
				return nil, err
			}
			ids = append(ids, nested...)
			continue
		}
		ref, err := toNodeRef(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: child %d: %w", form, i+1, err)
		}
		ids = append(ids, ref.id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinFunc is the zygomys user function signature.
type builtinFunc = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins into a zygomys environment.
// Source must be preprocessed with preprocessSource so that :keyword tokens
// arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	add := func(name string, fn zygo.ZlispUserFunction) {
		env.AddFunction(name, b.guard(fn))
	}

	add("vec3", builtinVec3)

	add("box", builtinBox)
	add("cylinder", builtinCylinder)
	add("sphere", builtinSphere)
	add("bounds", builtinBounds)
	add("points", builtinPoints)
	add("union", booleanBuiltin(scene.OpUnion))
	add("difference", booleanBuiltin(scene.OpDifference))
	add("intersection", booleanBuiltin(scene.OpIntersection))
	add("offset", builtinOffset)

	add("mesh", b.mesh)
	add("mesh_ref", b.meshRef)
	add("place", b.place)
	add("collection", b.collection)
}

// (vec3 1 2 3)
func builtinVec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(args[i])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (box :size (vec3 1 2 3)) or (box 1 2 3)
func builtinBox(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if size, err := pa.vec("size", true); err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	} else if size != nil {
		return &sexpShape{shape: scene.BoxShape{Size: *size}}, nil
	}
	if len(pa.positional) != 3 {
		return zygo.SexpNull, fmt.Errorf("box requires :size or three dimensions")
	}
	v, err := builtinVec3(env, name, pa.positional)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	return &sexpShape{shape: scene.BoxShape{Size: v.(*sexpVec3).vec}}, nil
}

// (cylinder :height 2 :radius 0.5)
func builtinCylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var c scene.CylinderShape
	if err := pa.float("height", &c.Height); err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	if err := pa.float("radius", &c.Radius); err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	return &sexpShape{shape: c}, nil
}

// (sphere :radius 1)
func builtinSphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var s scene.SphereShape
	if err := pa.float("radius", &s.Radius); err != nil {
		return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
	}
	return &sexpShape{shape: s}, nil
}

// (bounds :min (vec3 ...) :max (vec3 ...))
func builtinBounds(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	min, err := pa.vec("min", false)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("bounds: %w", err)
	}
	max, err := pa.vec("max", false)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("bounds: %w", err)
	}
	if min == nil || max == nil {
		return zygo.SexpNull, fmt.Errorf("bounds requires :min and :max")
	}
	return &sexpShape{shape: scene.BoundsShape{Min: *min, Max: *max}}, nil
}

// (points (vec3 ...) (vec3 ...) ...)
func builtinPoints(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	var pts []v3.Vec
	for i, arg := range args {
		v, err := toVec3(arg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("points: point %d: %w", i+1, err)
		}
		pts = append(pts, v)
	}
	return &sexpShape{shape: scene.PointsShape{Points: pts}}, nil
}

// (union a b), (difference a b), (intersection a b); more operands fold left.
func booleanBuiltin(op scene.BoolOp) builtinFunc {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two shapes", op)
		}
		acc, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: operand 1: %w", op, err)
		}
		for i, arg := range args[1:] {
			next, err := toShape(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", op, i+2, err)
			}
			acc = scene.BooleanShape{Op: op, A: acc, B: next}
		}
		return &sexpShape{shape: acc}, nil
	}
}

// (offset shape :at (vec3 ...) :rotate (vec3 ...))
func builtinOffset(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("offset requires one shape")
	}
	inner, err := toShape(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("offset: %w", err)
	}
	o := scene.OffsetShape{Shape: inner}
	if at, err := pa.vec("at", false); err != nil {
		return zygo.SexpNull, fmt.Errorf("offset: %w", err)
	} else if at != nil {
		o.Translation = *at
	}
	if rot, err := pa.vec("rotate", false); err != nil {
		return zygo.SexpNull, fmt.Errorf("offset: %w", err)
	} else if rot != nil {
		o.Rotation = *rot
	}
	return &sexpShape{shape: o}, nil
}

// (mesh "name" shape :evaluate :hidden)
func (b *builder) mesh(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 2 {
		return zygo.SexpNull, fmt.Errorf("mesh requires a name and a shape")
	}
	meshName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mesh: name: %w", err)
	}
	if b.g.Lookup(meshName) != nil {
		return zygo.SexpNull, fmt.Errorf("mesh: name %q is already used", meshName)
	}
	shape, err := toShape(pa.positional[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mesh %q: %w", meshName, err)
	}
	evaluate, err := pa.flag("evaluate")
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mesh %q: %w", meshName, err)
	}
	hidden, err := pa.flag("hidden")
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mesh %q: %w", meshName, err)
	}

	id := b.nodeID("mesh", meshName)
	b.g.AddNode(&scene.Node{
		ID:     id,
		Kind:   scene.NodeMesh,
		Name:   meshName,
		Hidden: hidden,
		Data:   scene.MeshData{Shape: shape, Evaluate: evaluate},
	})
	return &sexpNodeRef{id: id, name: meshName}, nil
}

// (mesh-ref "name")
func (b *builder) meshRef(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("mesh-ref requires a name argument")
	}
	refName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("mesh-ref: name: %w", err)
	}
	n := b.g.Lookup(refName)
	if n == nil {
		return zygo.SexpNull, fmt.Errorf("mesh-ref: no node named %q", refName)
	}
	return &sexpNodeRef{id: n.ID, name: refName}, nil
}

// (place ref... :at (vec3 ...) :rotate (vec3 ...) :scale 2)
func (b *builder) place(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 1 {
		return zygo.SexpNull, fmt.Errorf("place requires a node reference as first argument")
	}
	children, err := childRefs("place", pa.positional)
	if err != nil {
		return zygo.SexpNull, err
	}

	var td scene.TransformData
	if td.Translation, err = pa.vec("at", false); err != nil {
		return zygo.SexpNull, fmt.Errorf("place: %w", err)
	}
	if td.Rotation, err = pa.vec("rotate", false); err != nil {
		return zygo.SexpNull, fmt.Errorf("place: %w", err)
	}
	if td.Scale, err = pa.vec("scale", true); err != nil {
		return zygo.SexpNull, fmt.Errorf("place: %w", err)
	}

	// Name the transform after its first child for stable IDs.
	label := "anon"
	if ref, ok := pa.positional[0].(*sexpNodeRef); ok && ref.name != "" {
		label = ref.name
	}
	id := b.nodeID("place", label)
	b.g.AddNode(&scene.Node{
		ID:       id,
		Kind:     scene.NodeTransform,
		Children: children,
		Data:     td,
	})
	return &sexpNodeRef{id: id}, nil
}

// (collection "name" children... :hidden :description "...")
func (b *builder) collection(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 1 {
		return zygo.SexpNull, fmt.Errorf("collection requires a name argument")
	}
	colName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("collection: name: %w", err)
	}
	if b.g.Lookup(colName) != nil {
		return zygo.SexpNull, fmt.Errorf("collection: name %q is already used", colName)
	}
	children, err := childRefs("collection", pa.positional[1:])
	if err != nil {
		return zygo.SexpNull, err
	}
	hidden, err := pa.flag("hidden")
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("collection %q: %w", colName, err)
	}
	var data scene.CollectionData
	if v, ok := pa.kw["description"]; ok {
		if data.Description, err = toString(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("collection %q: description: %w", colName, err)
		}
	}

	id := b.nodeID("collection", colName)
	b.g.AddNode(&scene.Node{
		ID:       id,
		Kind:     scene.NodeCollection,
		Name:     colName,
		Hidden:   hidden,
		Children: children,
		Data:     data,
	})
	return &sexpNodeRef{id: id, name: colName}, nil
}
