package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/texbake/pkg/shader"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes explicitly set input values and bound images in
	// node labels. When false, only the node kind and label are shown.
	Detailed bool
}

// ToDOT converts a material graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
//
// Links are labelled with their output and input port names. The active
// node is drawn with a bold outline.
func ToDOT(mat *shader.Material, opts Options) string {
	g := mat.Graph
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", mat.Name)
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	active, hasActive := g.Active()
	for _, n := range g.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label, hasActive && active.ID == n.ID)
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(n.ID), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range g.Links() {
		fmt.Fprintf(&buf, "  %s -> %s [label=%q];\n",
			nodeName(l.From.Node), nodeName(l.To.Node), string(l.From.Port)+" → "+string(l.To.Port))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id shader.NodeID) string {
	return "n" + strconv.Itoa(int(id))
}

func fmtLabel(n *shader.Node, detailed bool) string {
	title := n.Kind.String()
	if n.Label != "" {
		title = n.Label + "\n(" + title + ")"
	}
	if !detailed {
		return title
	}

	var parts []string
	if n.Image != "" {
		parts = append(parts, "image: "+n.Image)
	}
	for _, p := range slices.Sorted(maps.Keys(n.Values)) {
		parts = append(parts, fmt.Sprintf("%s: %s", p, n.Values[p]))
	}
	if len(parts) == 0 {
		return title
	}
	return title + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *shader.Node, label string, active bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Kind {
	case shader.KindOutput:
		attrs = append(attrs, "fillcolor=lightgrey")
	case shader.KindImageTexture:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	if active {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	buf, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(buf), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
