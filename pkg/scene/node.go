package scene

// NodeKind enumerates the types of nodes in the scene graph.
type NodeKind int

const (
	NodeMesh       NodeKind = iota // renderable geometry
	NodeTransform                  // spatial transformation (place)
	NodeCollection                 // logical grouping, may hide its members
)

func (k NodeKind) String() string {
	switch k {
	case NodeMesh:
		return "mesh"
	case NodeTransform:
		return "transform"
	case NodeCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the scene graph.
// Hidden excludes a mesh from framing; on a collection it excludes every
// mesh below it.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Hidden   bool     `json:"hidden,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}
