package scene

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs the geometric checks. Returns blocking errors and
// advisory warnings separately.
func validateGeometry(g *Graph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	for _, id := range g.order {
		node := g.Nodes[id]
		switch d := node.Data.(type) {
		case MeshData:
			if d.Shape == nil {
				errs = append(errs, geomError(node, "mesh has no shape"))
				continue
			}
			for _, msg := range checkShape(d.Shape) {
				errs = append(errs, geomError(node, msg))
			}
		case TransformData:
			for _, msg := range checkTransform(d) {
				errs = append(errs, geomError(node, msg))
			}
			if len(node.Children) == 0 {
				warnings = append(warnings, ValidationWarning{NodeID: node.ID, Message: "transform places nothing"})
			}
		case CollectionData:
			if len(node.Children) == 0 {
				warnings = append(warnings, ValidationWarning{NodeID: node.ID, Message: "collection is empty"})
			}
		}
	}

	if w, ok := hiddenOnly(g); ok {
		warnings = append(warnings, w)
	}
	return errs, warnings
}

func geomError(node *Node, msg string) ValidationError {
	return ValidationError{NodeID: node.ID, Message: msg, Severity: SeverityError}
}

// checkShape returns a message for every invalid dimension in s, descending
// into boolean operands and offsets.
func checkShape(s Shape) []string {
	var msgs []string
	positive := func(what string, v float64) {
		if !isFinite(v) || v <= 0 {
			msgs = append(msgs, fmt.Sprintf("%s is %.4g, must be positive", what, v))
		}
	}

	switch s := s.(type) {
	case BoxShape:
		positive("box size X", s.Size.X)
		positive("box size Y", s.Size.Y)
		positive("box size Z", s.Size.Z)
	case CylinderShape:
		positive("cylinder height", s.Height)
		positive("cylinder radius", s.Radius)
	case SphereShape:
		positive("sphere radius", s.Radius)
	case BoundsShape:
		if !finiteVec(s.Min) || !finiteVec(s.Max) {
			msgs = append(msgs, "bounds are not finite")
		} else if s.Min.X > s.Max.X || s.Min.Y > s.Max.Y || s.Min.Z > s.Max.Z {
			msgs = append(msgs, fmt.Sprintf("bounds min %v exceeds max %v", s.Min, s.Max))
		}
	case PointsShape:
		if len(s.Points) == 0 {
			msgs = append(msgs, "points shape is empty")
		}
		for i, p := range s.Points {
			if !finiteVec(p) {
				msgs = append(msgs, fmt.Sprintf("point %d is not finite", i))
			}
		}
	case BooleanShape:
		if s.A == nil || s.B == nil {
			msgs = append(msgs, fmt.Sprintf("%s needs two operands", s.Op))
			break
		}
		msgs = append(msgs, checkShape(s.A)...)
		msgs = append(msgs, checkShape(s.B)...)
	case OffsetShape:
		if !finiteVec(s.Translation) || !finiteVec(s.Rotation) {
			msgs = append(msgs, "offset is not finite")
		}
		if s.Shape == nil {
			msgs = append(msgs, "offset has no shape")
			break
		}
		msgs = append(msgs, checkShape(s.Shape)...)
	default:
		msgs = append(msgs, fmt.Sprintf("unsupported shape %T", s))
	}
	return msgs
}

// checkTransform rejects non-finite components and zero scale factors, which
// would collapse the subtree.
func checkTransform(t TransformData) []string {
	var msgs []string
	if t.Translation != nil && !finiteVec(*t.Translation) {
		msgs = append(msgs, "translation is not finite")
	}
	if t.Rotation != nil && !finiteVec(*t.Rotation) {
		msgs = append(msgs, "rotation is not finite")
	}
	if t.Scale != nil {
		s := *t.Scale
		if !finiteVec(s) {
			msgs = append(msgs, "scale is not finite")
		} else if s.X == 0 || s.Y == 0 || s.Z == 0 {
			msgs = append(msgs, fmt.Sprintf("scale %v has a zero component", s))
		}
	}
	return msgs
}

// hiddenOnly warns when the scene has meshes but none would be rendered.
func hiddenOnly(g *Graph) (ValidationWarning, bool) {
	meshes, visible := 0, 0
	seen := make(map[NodeID]bool)

	var walk func(id NodeID, hidden bool)
	walk = func(id NodeID, hidden bool) {
		node := g.Nodes[id]
		if node == nil {
			return
		}
		// A node reached once visible need not be walked again; guard cycles.
		key := id
		if hidden {
			key += "/hidden"
		}
		if seen[key] {
			return
		}
		seen[key] = true

		hidden = hidden || node.Hidden
		if node.Kind == NodeMesh {
			meshes++
			if !hidden {
				visible++
			}
			return
		}
		for _, c := range node.Children {
			walk(c, hidden)
		}
	}
	for _, r := range g.Roots {
		walk(r, false)
	}

	if meshes > 0 && visible == 0 {
		return ValidationWarning{Message: "every mesh is hidden; framing will find an empty scene"}, true
	}
	return ValidationWarning{}, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v v3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
