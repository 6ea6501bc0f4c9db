package shader

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownKind is returned when a node kind is not in the port table.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrUnknownNode is returned when a node ID does not exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownPort is returned by [Graph.Connect] and [Node.Set] when a port
	// name is not part of the node kind's port table.
	ErrUnknownPort = errors.New("unknown port")

	// ErrPortTypeMismatch is returned by [Graph.Connect] when a shader output
	// would feed a data input or vice versa.
	ErrPortTypeMismatch = errors.New("port type mismatch")

	// ErrCycle is returned by [Graph.Connect] when the link would close a cycle,
	// and by [Graph.Validate] when a cycle is present.
	ErrCycle = errors.New("link would create a cycle")

	// ErrMultipleLinks is returned by [Graph.Validate] when an input port has
	// more than one upstream link.
	ErrMultipleLinks = errors.New("input has more than one link")

	// ErrNotImageNode is returned by [Node.BindImage] on non-image nodes.
	ErrNotImageNode = errors.New("node is not an image texture")
)

// NodeID identifies a node within one graph. IDs start at 1; 0 means "none".
type NodeID int

// Node is a shading node. Static input values live in Values; constant
// nodes (RGB, Value) store their output there too.
//
// Nodes are created with [Graph.Add]; the zero value is not usable.
type Node struct {
	ID     NodeID
	Kind   Kind
	Label  string
	Image  string // image name bound to an image texture node
	Values map[Port]Value
}

// In returns the socket of the named input on n.
func (n *Node) In(p Port) Socket { return Socket{Node: n.ID, Port: p} }

// Out returns the socket of the named output on n.
func (n *Node) Out(p Port) Socket { return Socket{Node: n.ID, Port: p} }

// Value returns the static value of port p, falling back to the port table default.
func (n *Node) Value(p Port) Value {
	if v, ok := n.Values[p]; ok {
		return v
	}
	if ps, ok := kindSpecs[n.Kind].Input(p); ok {
		return ps.Default
	}
	return Value{}
}

// Set stores a static value on an input, or on the output of a constant node.
func (n *Node) Set(p Port, v Value) error {
	spec := kindSpecs[n.Kind]
	_, isInput := spec.Input(p)
	_, isOutput := spec.Output(p)
	constant := n.Kind == KindRGB || n.Kind == KindValue
	if !isInput && !(constant && isOutput) {
		return fmt.Errorf("%w: %s has no settable port %q", ErrUnknownPort, n.Kind, p)
	}
	n.Values[p] = v
	return nil
}

// BindImage binds an image name to an image texture node.
func (n *Node) BindImage(name string) error {
	if n.Kind != KindImageTexture {
		return fmt.Errorf("%w: %s", ErrNotImageNode, n.Kind)
	}
	n.Image = name
	return nil
}

// Socket addresses one port on one node.
type Socket struct {
	Node NodeID
	Port Port
}

// Link is a directed connection from an output socket to an input socket.
type Link struct {
	From Socket
	To   Socket
}

// Graph is a material node graph.
//
// The zero value is not usable - use [NewGraph]. Graph is not safe for
// concurrent use; callers serialize all mutation.
type Graph struct {
	nodes  map[NodeID]*Node
	order  []NodeID
	links  []Link
	next   NodeID
	active NodeID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node), next: 1}
}

// Add creates a node of the given kind and returns it.
func (g *Graph) Add(kind Kind) (*Node, error) {
	if _, ok := kindSpecs[kind]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	n := &Node{ID: g.next, Kind: kind, Values: make(map[Port]Value)}
	g.next++
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return n, nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Find returns the first node of the given kind in creation order.
func (g *Graph) Find(kind Kind) (*Node, bool) {
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == kind {
			return n, true
		}
	}
	return nil, false
}

// Remove deletes a node and every link touching it. Removing the active
// node clears the active selection.
func (g *Graph) Remove(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(x NodeID) bool { return x == id })
	g.links = slices.DeleteFunc(g.links, func(l Link) bool {
		return l.From.Node == id || l.To.Node == id
	})
	if g.active == id {
		g.active = 0
	}
	return nil
}

// Clear removes all nodes and links.
func (g *Graph) Clear() {
	g.nodes = make(map[NodeID]*Node)
	g.order = nil
	g.links = nil
	g.active = 0
}

// Connect links an output socket to an input socket. Both ports are checked
// against the port table of their node kinds. An existing link into the
// input is replaced.
func (g *Graph) Connect(from, to Socket) error {
	src, ok := g.nodes[from.Node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, from.Node)
	}
	dst, ok := g.nodes[to.Node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, to.Node)
	}
	out, ok := kindSpecs[src.Kind].Output(from.Port)
	if !ok {
		return fmt.Errorf("%w: %s has no output %q", ErrUnknownPort, src.Kind, from.Port)
	}
	in, ok := kindSpecs[dst.Kind].Input(to.Port)
	if !ok {
		return fmt.Errorf("%w: %s has no input %q", ErrUnknownPort, dst.Kind, to.Port)
	}
	if !compatible(out.Type, in.Type) {
		return fmt.Errorf("%w: %s.%s (%s) -> %s.%s (%s)",
			ErrPortTypeMismatch, src.Kind, from.Port, out.Type, dst.Kind, to.Port, in.Type)
	}
	if from.Node == to.Node || g.reaches(to.Node, from.Node) {
		return ErrCycle
	}
	g.Disconnect(to)
	g.links = append(g.links, Link{From: from, To: to})
	return nil
}

// reaches reports whether dst is reachable from src along links.
func (g *Graph) reaches(src, dst NodeID) bool {
	seen := map[NodeID]bool{src: true}
	stack := []NodeID{src}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == dst {
			return true
		}
		for _, l := range g.links {
			if l.From.Node == cur && !seen[l.To.Node] {
				seen[l.To.Node] = true
				stack = append(stack, l.To.Node)
			}
		}
	}
	return false
}

// Disconnect removes every link into the input socket and returns them.
func (g *Graph) Disconnect(to Socket) []Link {
	var removed []Link
	g.links = slices.DeleteFunc(g.links, func(l Link) bool {
		if l.To == to {
			removed = append(removed, l)
			return true
		}
		return false
	})
	return removed
}

// LinksTo returns the links feeding the input socket.
func (g *Graph) LinksTo(to Socket) []Link {
	var out []Link
	for _, l := range g.links {
		if l.To == to {
			out = append(out, l)
		}
	}
	return out
}

// LinksFrom returns the links leaving the output socket.
func (g *Graph) LinksFrom(from Socket) []Link {
	var out []Link
	for _, l := range g.links {
		if l.From == from {
			out = append(out, l)
		}
	}
	return out
}

// Source returns the single upstream socket of an input, if linked.
func (g *Graph) Source(to Socket) (Socket, bool) {
	for _, l := range g.links {
		if l.To == to {
			return l.From, true
		}
	}
	return Socket{}, false
}

// Links returns a copy of all links.
func (g *Graph) Links() []Link { return slices.Clone(g.links) }

// SetActive marks a node active. Passing 0 clears the active node.
func (g *Graph) SetActive(id NodeID) error {
	if id != 0 {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownNode, id)
		}
	}
	g.active = id
	return nil
}

// Active returns the active node.
func (g *Graph) Active() (*Node, bool) {
	if g.active == 0 {
		return nil, false
	}
	n, ok := g.nodes[g.active]
	return n, ok
}

// Validate checks structural integrity: link endpoints exist and match the
// port table, no input has more than one link, and the graph is acyclic.
func (g *Graph) Validate() error {
	seen := make(map[Socket]bool)
	for _, l := range g.links {
		src, ok := g.nodes[l.From.Node]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownNode, l.From.Node)
		}
		dst, ok := g.nodes[l.To.Node]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownNode, l.To.Node)
		}
		if _, ok := kindSpecs[src.Kind].Output(l.From.Port); !ok {
			return fmt.Errorf("%w: %s has no output %q", ErrUnknownPort, src.Kind, l.From.Port)
		}
		if _, ok := kindSpecs[dst.Kind].Input(l.To.Port); !ok {
			return fmt.Errorf("%w: %s has no input %q", ErrUnknownPort, dst.Kind, l.To.Port)
		}
		if seen[l.To] {
			return fmt.Errorf("%w: %s.%s", ErrMultipleLinks, dst.Kind, l.To.Port)
		}
		seen[l.To] = true
	}
	for _, l := range g.links {
		if g.reaches(l.To.Node, l.From.Node) {
			return ErrCycle
		}
	}
	return nil
}

// Clone returns a deep copy of the graph. Node IDs are preserved.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:  make(map[NodeID]*Node, len(g.nodes)),
		order:  slices.Clone(g.order),
		links:  slices.Clone(g.links),
		next:   g.next,
		active: g.active,
	}
	for id, n := range g.nodes {
		cp := *n
		cp.Values = make(map[Port]Value, len(n.Values))
		for p, v := range n.Values {
			cp.Values[p] = v
		}
		c.nodes[id] = &cp
	}
	return c
}

// Material is a named shading graph.
type Material struct {
	Name  string
	Graph *Graph
}

// NewMaterial creates a material with an empty graph.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Graph: NewGraph()}
}
