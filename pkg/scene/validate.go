package scene

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks framing
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks framing
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles blocking errors and advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether the result carries no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// findings accumulates validation results for one pass.
type findings []ValidationError

func (f *findings) errorf(id NodeID, format string, args ...any) {
	*f = append(*f, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (f *findings) warnf(id NodeID, format string, args ...any) {
	*f = append(*f, ValidationError{NodeID: id, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Validate runs the structural checks on the scene graph and returns the
// findings. An empty slice means the graph is valid. It never mutates g.
func Validate(g *Graph) []ValidationError {
	var f findings
	for _, check := range []func(*Graph, *findings){
		checkAcyclic,
		checkReferences,
		checkNames,
		checkRoots,
		checkKinds,
	} {
		check(g, &f)
	}
	return f
}

// ValidateAll runs structural and geometric validation and separates
// errors from warnings.
func ValidateAll(g *Graph) ValidationResult {
	geomErrs, geomWarnings := validateGeometry(g)

	var result ValidationResult
	for _, e := range Validate(g) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{NodeID: e.NodeID, Message: e.Message})
			continue
		}
		result.Errors = append(result.Errors, e)
	}
	result.Errors = append(result.Errors, geomErrs...)
	result.Warnings = append(result.Warnings, geomWarnings...)
	return result
}

// checkAcyclic reports the first cycle found by a depth-first walk that
// tracks the nodes on the current path. Only one cycle is reported since
// later ones usually share its nodes.
func checkAcyclic(g *Graph, f *findings) {
	onPath := make(map[NodeID]bool)
	done := make(map[NodeID]bool)

	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		if done[id] {
			return false
		}
		if onPath[id] {
			f.errorf(id, "cycle detected: node %s is part of a cycle", id.Short())
			return true
		}
		n := g.Nodes[id]
		if n == nil {
			return false // dangling, see checkReferences
		}
		onPath[id] = true
		defer delete(onPath, id)
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		done[id] = true
		return false
	}

	for _, id := range g.order {
		if walk(id) {
			return
		}
	}
}

func checkReferences(g *Graph, f *findings) {
	for _, id := range g.order {
		for _, c := range g.Nodes[id].Children {
			if g.Nodes[c] == nil {
				f.errorf(id, "child reference %s does not exist", c.Short())
			}
		}
	}
}

// checkNames verifies the name index and that names are unique.
func checkNames(g *Graph, f *findings) {
	for name, id := range g.NameIndex {
		if g.Nodes[id] == nil {
			f.errorf("", "name index entry %q references non-existent node %s", name, id.Short())
		}
	}

	count := make(map[string]int)
	for _, id := range g.order {
		name := g.Nodes[id].Name
		if name == "" {
			continue
		}
		if count[name]++; count[name] == 2 {
			f.errorf(id, "duplicate name %q", name)
		}
	}
}

// checkRoots requires roots for a non-empty graph and warns about nodes no
// root reaches.
func checkRoots(g *Graph, f *findings) {
	if len(g.Nodes) > 0 && len(g.Roots) == 0 {
		f.errorf("", "graph has nodes but no roots")
	}

	seen := make(map[NodeID]bool)
	var mark func(id NodeID)
	mark = func(id NodeID) {
		n := g.Nodes[id]
		if n == nil || seen[id] {
			return
		}
		seen[id] = true
		for _, c := range n.Children {
			mark(c)
		}
	}
	for _, r := range g.Roots {
		if g.Nodes[r] == nil {
			f.errorf("", "root reference %s does not exist", r.Short())
			continue
		}
		mark(r)
	}

	for _, id := range g.order {
		if seen[id] {
			continue
		}
		label := g.Nodes[id].Name
		if label == "" {
			label = id.Short()
		}
		f.warnf(id, "node %q is not reachable from any root (orphan)", label)
	}
}

// checkKinds matches each payload to its node kind; meshes must be leaves.
func checkKinds(g *Graph, f *findings) {
	for _, id := range g.order {
		n := g.Nodes[id]
		var ok bool
		switch n.Kind {
		case NodeMesh:
			_, ok = n.Data.(MeshData)
			if len(n.Children) > 0 {
				f.errorf(id, "mesh node must not have children")
			}
		case NodeTransform:
			_, ok = n.Data.(TransformData)
		case NodeCollection:
			_, ok = n.Data.(CollectionData)
		}
		if !ok {
			f.errorf(id, "%s node carries %T payload", n.Kind, n.Data)
		}
	}
}
