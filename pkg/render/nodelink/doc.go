// Package nodelink renders material node graphs as node-link diagrams.
//
// # Usage
//
// Convert a material to DOT format, then render to SVG or PNG:
//
//	dot := nodelink.ToDOT(mat, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// The generated DOT lays nodes out left to right (rankdir=LR), the way
// shader editors show data flowing from textures towards the output.
// Edges carry "output → input" port labels so a rewritten graph can be
// compared against its original at a glance.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process
// rendering; no external Graphviz installation is required.
package nodelink
