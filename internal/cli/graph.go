package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host/soft"
	"github.com/matzehuels/texbake/pkg/render/nodelink"
	"github.com/matzehuels/texbake/pkg/shader"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
)

var graphFormats = []string{formatDOT, formatSVG, formatPNG}

// graphOpts holds the flags of the graph command.
type graphOpts struct {
	material string
	object   string
	format   string
	output   string
	detailed bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := &graphOpts{}

	cmd := &cobra.Command{
		Use:   "graph <scene>",
		Short: "Print or render the node graphs of a scene's materials",
		Long: `Print or render the node graphs of a scene's materials.

DOT output goes to stdout unless --output names a directory. SVG and PNG
output is written to one file per material, named after the material.
Without --material or --object, a terminal session picks one material
from a list. Otherwise every material is drawn.`,
		Example: `  texbake graph rock.json --object Rock
  texbake graph out/rock.json --material rock_baked --format svg -o diagrams`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.material, "material", "m", "", "only this material")
	cmd.Flags().StringVar(&opts.object, "object", "", "only the materials assigned to this object")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatDOT, "output format: dot, svg or png")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().BoolVarP(&opts.detailed, "detailed", "d", false, "include unlinked input values")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, scenePath string, opts *graphOpts) error {
	if !slices.Contains(graphFormats, opts.format) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot, svg or png)", opts.format)
	}
	sc, err := soft.ReadScene(scenePath)
	if err != nil {
		return err
	}
	mats, err := selectMaterials(sc, opts.material, opts.object)
	if err != nil {
		return err
	}
	if opts.material == "" && opts.object == "" && len(mats) > 1 && interactive() {
		picked, err := pickMaterial(mats)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "material picker")
		}
		if picked == nil {
			printDetail("No selection made")
			return nil
		}
		mats = []*shader.Material{picked}
	}

	if opts.format == formatDOT && opts.output == "" {
		for _, m := range mats {
			fmt.Fprint(out, nodelink.ToDOT(m, nodelink.Options{Detailed: opts.detailed}))
		}
		return nil
	}

	dir := opts.output
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "output directory %s", dir)
	}

	prog := newProgress(c.Logger)
	var paths []string
	for _, m := range mats {
		data, err := renderMaterial(ctx, m, opts)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, m.Name+"."+opts.format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	prog.done(fmt.Sprintf("Rendered %d material graphs", len(paths)))

	printSuccess("Wrote %d %s files", len(paths), opts.format)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

func renderMaterial(ctx context.Context, m *shader.Material, opts *graphOpts) ([]byte, error) {
	dot := nodelink.ToDOT(m, nodelink.Options{Detailed: opts.detailed})
	switch opts.format {
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot)
	default:
		return []byte(dot), nil
	}
}

// selectMaterials picks the scene materials to draw. With neither filter
// set every material is returned.
func selectMaterials(sc *soft.Scene, material, object string) ([]*shader.Material, error) {
	byName := make(map[string]*shader.Material, len(sc.Materials))
	for _, m := range sc.Materials {
		byName[m.Name] = m
	}

	var names []string
	if object != "" {
		i := slices.IndexFunc(sc.Objects, func(o soft.SceneObject) bool { return o.Name == object })
		if i < 0 {
			return nil, errors.New(errors.ErrCodeObjectNotFound, "object %q not in scene", object)
		}
		names = sc.Objects[i].Materials
		if len(names) == 0 {
			return nil, errors.New(errors.ErrCodeMissingMaterial, "object %q has no material", object)
		}
	} else {
		for _, m := range sc.Materials {
			names = append(names, m.Name)
		}
	}
	if material != "" {
		if !slices.Contains(names, material) {
			return nil, errors.New(errors.ErrCodeMissingMaterial, "material %q not found", material)
		}
		names = []string{material}
	}

	mats := make([]*shader.Material, 0, len(names))
	for _, name := range names {
		m, ok := byName[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeMissingMaterial, "material %q not found", name)
		}
		mats = append(mats, m)
	}
	if len(mats) == 0 {
		return nil, errors.New(errors.ErrCodeMissingMaterial, "scene has no materials")
	}
	return mats, nil
}
