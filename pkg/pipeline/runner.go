package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/texbake/pkg/bake"
	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/manifest"
	"github.com/matzehuels/texbake/pkg/observability"
	"github.com/matzehuels/texbake/pkg/shader"
)

// Runner executes bake runs against a host.
//
// A Runner holds no per-run state beyond its host, but the host itself
// carries the open scene, so runs on one Runner must not overlap.
type Runner struct {
	Host   host.Host
	Logger *log.Logger
}

// NewRunner creates a runner over h.
// If logger is nil, the default charmbracelet logger is used.
func NewRunner(h host.Host, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Host: h, Logger: logger}
}

// run carries the state of one Execute call.
type run struct {
	*Runner
	opts     Options
	result   *Result
	registry *bake.Registry
	rewriter *bake.Rewriter
	packer   *bake.Packer
	asm      *bake.Assembler

	// selection is every selected object including empties, for export.
	selection []host.ObjectID
}

// Execute runs the complete validate → bake → pack → assemble → export
// pipeline. Stages are strictly sequential and the first failure aborts
// the run; material graphs are restored even when a bake fails.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Mode: opts.Mode()}
	x := &run{
		Runner: r,
		opts:   opts,
		result: res,
		registry: bake.NewRegistry(r.Host, bake.RegistryConfig{
			BaseName:   opts.OutputName,
			OutputDir:  opts.OutputDir,
			Resolution: opts.Resolution,
			Policy:     opts.SavePolicy(),
		}, logger),
		rewriter: bake.NewRewriter(r.Host, logger),
		packer:   bake.NewPacker(r.Host, logger),
		asm:      bake.NewAssembler(r.Host, logger),
	}

	// Stage 0: Validate
	validateStart := time.Now()
	if err := x.stage(ctx, StageValidate, "", x.validate); err != nil {
		return nil, err
	}
	res.Stats.ValidateTime = time.Since(validateStart)
	logger.Info("validated scene",
		"run", res.RunID,
		"objects", len(res.Objects),
		"uv_generated", len(res.UVGenerated),
		"mode", res.Mode)

	// Stages 1-7 per scope
	bakeStart := time.Now()
	for _, sc := range x.scopes() {
		if err := x.bakeScope(ctx, sc.name, sc.objects); err != nil {
			return nil, err
		}
		res.Stats.Scopes++
	}
	res.Stats.BakeTime = time.Since(bakeStart)
	res.Targets = x.registry.Targets()

	// Stage 8: Export and manifest
	if opts.ExportScene {
		if err := x.stage(ctx, StageExport, "", x.export); err != nil {
			return nil, err
		}
	}
	if err := x.stage(ctx, StageManifest, "", x.writeManifest); err != nil {
		return nil, err
	}

	res.Stats.TotalTime = time.Since(start)
	logger.Info("bake complete",
		"run", res.RunID,
		"targets", len(res.Targets),
		"files", len(res.Files),
		"duration", res.Stats.TotalTime)
	return res, nil
}

// stage runs fn between the stage hooks, refusing to start when ctx is done.
func (x *run) stage(ctx context.Context, name, scope string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name, scope)
	start := time.Now()
	err := fn(ctx)
	hooks.OnStageComplete(ctx, name, scope, time.Since(start), err)
	if err != nil {
		return err
	}
	x.opts.Logger.Debug("stage complete", "stage", name, "scope", scope, "duration", time.Since(start))
	return nil
}

// =============================================================================
// Stage 0: Validate
// =============================================================================

func (x *run) validate(ctx context.Context) error {
	h := x.Host
	if x.opts.SceneFile != "" {
		if err := h.OpenScene(ctx, x.opts.SceneFile); err != nil {
			return err
		}
	}
	h.Configure(x.opts.Margin, x.opts.UseGPU)

	meshes, all, err := selectObjects(h.Objects(), x.opts.Objects)
	if err != nil {
		return err
	}
	x.selection = all
	x.result.Objects = meshes

	for _, id := range meshes {
		mats, err := h.Materials(id)
		if err != nil {
			return err
		}
		if len(mats) == 0 {
			return errors.New(errors.ErrCodeMissingMaterial, "object %q has no material", id)
		}
	}
	for _, id := range meshes {
		generated, err := h.EnsureUV(ctx, id)
		if err != nil {
			return err
		}
		if generated {
			x.opts.Logger.Warn("generated missing UV map", "object", id)
			x.result.UVGenerated = append(x.result.UVGenerated, id)
		}
	}
	return nil
}

// selectObjects resolves the configured names and their descendants.
// meshes holds the mesh objects to bake; all additionally holds empties.
// Unknown names fail with the list of available meshes.
func selectObjects(objects []host.ObjectInfo, names []string) (meshes, all []host.ObjectID, err error) {
	index := make(map[host.ObjectID]host.ObjectInfo, len(objects))
	var available []string
	for _, o := range objects {
		index[o.ID] = o
		if o.Type == host.ObjectMesh {
			available = append(available, string(o.ID))
		}
	}

	var missing []string
	for _, n := range names {
		if _, ok := index[host.ObjectID(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.New(errors.ErrCodeObjectNotFound,
			"objects not found: %s (available meshes: %s)",
			strings.Join(missing, ", "), strings.Join(available, ", "))
	}

	seen := make(map[host.ObjectID]bool)
	var visit func(id host.ObjectID)
	visit = func(id host.ObjectID) {
		if seen[id] {
			return
		}
		seen[id] = true
		o := index[id]
		all = append(all, id)
		if o.Type == host.ObjectMesh {
			meshes = append(meshes, id)
		}
		for _, c := range o.Children {
			visit(c)
		}
	}
	for _, n := range names {
		visit(host.ObjectID(n))
	}
	if len(meshes) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput,
			"no mesh objects selected (available meshes: %s)", strings.Join(available, ", "))
	}
	return meshes, all, nil
}

// =============================================================================
// Stages 1-7: Per-scope bake
// =============================================================================

type scope struct {
	name    string
	objects []host.ObjectID
}

func (x *run) scopes() []scope {
	if !x.opts.Separate {
		return []scope{{name: "", objects: x.result.Objects}}
	}
	out := make([]scope, 0, len(x.result.Objects))
	for _, id := range x.result.Objects {
		out = append(out, scope{name: string(id), objects: []host.ObjectID{id}})
	}
	return out
}

func (x *run) bakeScope(ctx context.Context, name string, objects []host.ObjectID) error {
	logger := x.opts.Logger.With("scope", displayScope(name))

	// Stage 1: Create
	err := x.stage(ctx, StageCreate, name, func(context.Context) error {
		for _, m := range bake.BakeableMaps {
			if !x.opts.Enabled(m) {
				continue
			}
			if _, err := x.registry.Create(m, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Stage 2: Standard maps, each object baked alone
	err = x.stage(ctx, StageBake, name, func(ctx context.Context) error {
		for _, m := range bake.StandardMaps {
			if !x.opts.Enabled(m) {
				continue
			}
			if err := x.bakeMap(ctx, m, name, objects, host.SelfOnly); err != nil {
				return err
			}
			logger.Info("baked map", "map", m, "objects", len(objects))
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Stage 3: Ambient occlusion
	if x.opts.Enabled(bake.AO) {
		policy := x.opts.AOSelection()
		err = x.stage(ctx, StageAO, name, func(ctx context.Context) error {
			return x.bakeMap(ctx, bake.AO, name, objects, policy)
		})
		if err != nil {
			return err
		}
		logger.Info("baked map", "map", bake.AO, "selection", policy)
	}

	// Stage 4: Persist
	if err := x.stage(ctx, StagePersist, name, func(ctx context.Context) error {
		return x.persist(ctx, name)
	}); err != nil {
		return err
	}

	// Stage 5: Pack
	packed, err := x.pack(ctx, name)
	if err != nil {
		return err
	}

	// Stages 6-7: Assemble and apply
	var mat *shader.Material
	err = x.stage(ctx, StageAssemble, name, func(context.Context) error {
		var err error
		mat, err = x.asm.Assemble(bake.MaterialName(x.opts.OutputName, name), x.inputs(name, packed))
		return err
	})
	if err != nil {
		return err
	}
	err = x.stage(ctx, StageApply, name, func(context.Context) error {
		return x.asm.Apply(mat, objects)
	})
	if err != nil {
		return err
	}
	x.result.Materials = append(x.result.Materials, mat)
	logger.Info("applied material", "material", mat.Name, "objects", len(objects))
	return nil
}

func (x *run) bakeMap(ctx context.Context, m bake.MapType, name string, objects []host.ObjectID, policy host.SelectionPolicy) error {
	target, ok := x.registry.Get(m, name)
	if !ok {
		return errors.New(errors.ErrCodeInternal, "no target for %s in scope %q", m, name)
	}
	x.result.Stats.BakeJobs++
	return x.rewriter.Bake(ctx, bake.Job{
		Map:     m,
		Objects: objects,
		Target:  target,
		Policy:  policy,
		Margin:  x.opts.Margin,
	})
}

func (x *run) persist(ctx context.Context, name string) error {
	if err := os.MkdirAll(filepath.Join(x.opts.OutputDir, bake.TexturesDir), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}
	for _, m := range bake.BakeableMaps {
		t, ok := x.registry.Get(m, name)
		if !ok {
			continue
		}
		path, saved, err := x.registry.Persist(t)
		if err != nil {
			return err
		}
		if saved {
			x.result.Stats.SavedFiles++
			observability.Bake().OnPersist(ctx, string(m), name, path)
			x.opts.Logger.Debug("saved map", "map", m, "path", path)
		}
	}
	return nil
}

// pack composites roughness and metallic when packing is enabled and both
// targets exist for the scope. It returns nil when nothing was packed.
func (x *run) pack(ctx context.Context, name string) (*host.Image, error) {
	if !x.opts.PackMetallicRoughness {
		return nil, nil
	}
	rough, okR := x.registry.Get(bake.Roughness, name)
	metal, okM := x.registry.Get(bake.Metallic, name)
	if !okR || !okM {
		x.opts.Logger.Warn("skipping metallic-roughness packing: roughness and metallic are both required",
			"scope", displayScope(name))
		return nil, nil
	}

	var img *host.Image
	err := x.stage(ctx, StagePack, name, func(ctx context.Context) error {
		path := x.registry.Path(bake.MetallicRoughness, name)
		var err error
		img, err = x.packer.Pack(ctx, bake.ImageName(x.opts.OutputName, name, bake.MetallicRoughness),
			name, rough.Image, metal.Image, path)
		if err != nil {
			return err
		}
		x.registry.Register(bake.MetallicRoughness, name, img, path)
		x.result.Stats.SavedFiles++
		return nil
	})
	return img, err
}

func (x *run) inputs(name string, packed *host.Image) bake.Inputs {
	image := func(m bake.MapType) *host.Image {
		if t, ok := x.registry.Get(m, name); ok {
			return t.Image
		}
		return nil
	}
	return bake.Inputs{
		Albedo:            image(bake.Albedo),
		Normal:            image(bake.Normal),
		Emission:          image(bake.Emission),
		MetallicRoughness: packed,
	}
}

// =============================================================================
// Stage 8: Export and manifest
// =============================================================================

// ExportPath returns the scene export path for opts.
func ExportPath(opts Options) string {
	return filepath.Join(opts.OutputDir, opts.OutputName+"."+opts.ExportFormat)
}

func (x *run) export(ctx context.Context) error {
	path := ExportPath(x.opts)
	if err := x.Host.ExportScene(ctx, path, x.opts.ExportFormat, x.selection); err != nil {
		return err
	}
	x.result.ExportPath = path
	x.opts.Logger.Info("exported scene", "path", path, "format", x.opts.ExportFormat)
	return nil
}

func (x *run) writeManifest(context.Context) error {
	if err := os.MkdirAll(x.opts.OutputDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}
	m := &manifest.Manifest{
		RunID:      x.result.RunID,
		Source:     x.opts.SceneFile,
		Objects:    slices.Clone(x.opts.Objects),
		Resolution: x.opts.Resolution,
		Margin:     x.opts.Margin,
		Mode:       x.result.Mode,
	}
	path, err := manifest.Write(x.opts.OutputDir, m)
	if err != nil {
		return err
	}
	x.result.Files = m.Files
	x.result.ManifestPath = path
	return nil
}

func displayScope(name string) string {
	if name == "" {
		return "combined"
	}
	return name
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
