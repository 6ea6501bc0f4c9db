// Package render groups the diagram renderers used by texbake.
//
// The [nodelink] subpackage turns material node graphs into Graphviz DOT,
// SVG and PNG for inspection with `texbake graph`.
//
// [nodelink]: github.com/matzehuels/texbake/pkg/render/nodelink
package render
