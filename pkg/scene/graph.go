package scene

// Graph is the immutable scene produced by one script evaluation.
// It is never mutated after evaluation; each run produces a new graph.
type Graph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`

	order []NodeID // insertion order, for deterministic root resolution
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the graph. Re-adding an existing ID replaces the
// node but keeps its original position.
func (g *Graph) AddNode(n *Node) {
	if _, exists := g.Nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// ResolveRoots sets Roots to every node that no other node references, in
// insertion order. Scripts build bottom-up, so the last top-level forms
// become the roots.
func (g *Graph) ResolveRoots() {
	referenced := make(map[NodeID]bool)
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			referenced[c] = true
		}
	}
	g.Roots = g.Roots[:0]
	for _, id := range g.order {
		if !referenced[id] {
			g.Roots = append(g.Roots, id)
		}
	}
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *Graph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Meshes returns all mesh nodes in insertion order.
func (g *Graph) Meshes() []*Node {
	var meshes []*Node
	for _, id := range g.order {
		if n := g.Nodes[id]; n != nil && n.Kind == NodeMesh {
			meshes = append(meshes, n)
		}
	}
	return meshes
}

// Children returns the child nodes of the given node.
func (g *Graph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}
