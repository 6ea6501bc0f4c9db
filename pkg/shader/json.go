package shader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type graphJSON struct {
	Nodes  []nodeJSON `json:"nodes"`
	Links  []linkJSON `json:"links,omitempty"`
	Active string     `json:"active,omitempty"`
}

type nodeJSON struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Label  string         `json:"label,omitempty"`
	Image  string         `json:"image,omitempty"`
	Values map[Port]Value `json:"values,omitempty"`
}

type linkJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func nodeKey(id NodeID) string { return "n" + strconv.Itoa(int(id)) }

// MarshalJSON encodes the graph with nodes in creation order. Node keys are
// "n<ID>" and sockets are written as "key.Port".
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{Nodes: make([]nodeJSON, 0, len(g.order))}
	for _, n := range g.Nodes() {
		nj := nodeJSON{ID: nodeKey(n.ID), Kind: n.Kind.String(), Label: n.Label, Image: n.Image}
		if len(n.Values) > 0 {
			nj.Values = n.Values
		}
		out.Nodes = append(out.Nodes, nj)
	}
	for _, l := range g.links {
		out.Links = append(out.Links, linkJSON{
			From: nodeKey(l.From.Node) + "." + string(l.From.Port),
			To:   nodeKey(l.To.Node) + "." + string(l.To.Port),
		})
	}
	if g.active != 0 {
		out.Active = nodeKey(g.active)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a graph. Node keys are arbitrary strings without
// dots; every link goes through [Graph.Connect] so the port table is enforced.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fresh := NewGraph()
	ids := make(map[string]NodeID, len(in.Nodes))
	for _, nj := range in.Nodes {
		if nj.ID == "" || strings.Contains(nj.ID, ".") {
			return fmt.Errorf("invalid node key %q", nj.ID)
		}
		if _, dup := ids[nj.ID]; dup {
			return fmt.Errorf("duplicate node key %q", nj.ID)
		}
		kind, err := ParseKind(nj.Kind)
		if err != nil {
			return fmt.Errorf("node %q: %w", nj.ID, err)
		}
		n, err := fresh.Add(kind)
		if err != nil {
			return err
		}
		n.Label = nj.Label
		if nj.Image != "" {
			if err := n.BindImage(nj.Image); err != nil {
				return fmt.Errorf("node %q: %w", nj.ID, err)
			}
		}
		for p, v := range nj.Values {
			if err := n.Set(p, v); err != nil {
				return fmt.Errorf("node %q: %w", nj.ID, err)
			}
		}
		ids[nj.ID] = n.ID
	}
	parse := func(ref string) (Socket, error) {
		key, port, ok := strings.Cut(ref, ".")
		if !ok {
			return Socket{}, fmt.Errorf("invalid socket reference %q", ref)
		}
		id, ok := ids[key]
		if !ok {
			return Socket{}, fmt.Errorf("%w: %q", ErrUnknownNode, key)
		}
		return Socket{Node: id, Port: Port(port)}, nil
	}
	for _, lj := range in.Links {
		from, err := parse(lj.From)
		if err != nil {
			return err
		}
		to, err := parse(lj.To)
		if err != nil {
			return err
		}
		if err := fresh.Connect(from, to); err != nil {
			return fmt.Errorf("link %s -> %s: %w", lj.From, lj.To, err)
		}
	}
	if in.Active != "" {
		id, ok := ids[in.Active]
		if !ok {
			return fmt.Errorf("%w: active %q", ErrUnknownNode, in.Active)
		}
		fresh.active = id
	}
	*g = *fresh
	return nil
}

type materialJSON struct {
	Name  string `json:"name"`
	Graph *Graph `json:"graph"`
}

// MarshalJSON encodes the material name and graph.
func (m *Material) MarshalJSON() ([]byte, error) {
	return json.Marshal(materialJSON{Name: m.Name, Graph: m.Graph})
}

// UnmarshalJSON decodes a material. A missing graph decodes as empty.
func (m *Material) UnmarshalJSON(data []byte) error {
	var in materialJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Graph == nil {
		in.Graph = NewGraph()
	}
	m.Name = in.Name
	m.Graph = in.Graph
	return nil
}
