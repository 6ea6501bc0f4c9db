// Package shader provides the typed material node graph that texbake bakes
// from and assembles into.
//
// # Overview
//
// A material is a [Graph] of shading nodes. Every node has a [Kind] drawn from
// a closed set (principled BSDF, emission, image texture, normal map, ...) and
// each kind has a fixed port table: named, typed inputs and outputs. Links are
// validated against that table when they are created, so a mistyped port
// name fails at [Graph.Connect] rather than later during a bake:
//
//	g := shader.NewGraph()
//	bsdf, _ := g.Add(shader.KindPrincipled)
//	out, _ := g.Add(shader.KindOutput)
//	err := g.Connect(bsdf.Out(shader.PortBSDF), out.In(shader.PortSurface))
//
// # Invariants
//
// Every input port accepts at most one link; connecting to an occupied input
// replaces the previous link. In particular the output node's Surface input
// never has more than one upstream link at a stable point, which
// [Graph.Validate] checks along with endpoint integrity and acyclicity.
//
// # Active Node
//
// A graph tracks one active node. Bake hosts treat the active image texture
// node as the bake destination, mirroring how material editors mark the
// target image of a bake.
//
// # Serialization
//
// Graphs round-trip through JSON (see [Graph.MarshalJSON]) using string node
// keys and "node.Port" socket references, which is the format used inside
// scene files.
package shader
