package bake

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/host"
	"github.com/matzehuels/texbake/pkg/observability"
	"github.com/matzehuels/texbake/pkg/shader"
)

// BakeHost is the part of the host a Rewriter drives.
type BakeHost interface {
	Materials(obj host.ObjectID) ([]*shader.Material, error)
	Bake(ctx context.Context, req host.BakeRequest) error
}

// Job is one map bake into one target.
type Job struct {
	Map     MapType
	Objects []host.ObjectID
	Target  *Target
	Policy  host.SelectionPolicy
	Margin  int
}

// Rewriter performs scoped, restorable rewrites of material graphs around
// host bake calls. Only one Bake may run at a time.
type Rewriter struct {
	host   BakeHost
	logger *log.Logger
	mu     sync.Mutex
}

// NewRewriter creates a rewriter over h.
func NewRewriter(h BakeHost, logger *log.Logger) *Rewriter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Rewriter{host: h, logger: logger}
}

// edit is one material's temporary rewrite.
type edit struct {
	mat   *shader.Material
	snap  *Snapshot
	added []shader.NodeID
}

// undo removes the inserted nodes, then restores the snapshot.
func (e *edit) undo() error {
	var errs []error
	for i := len(e.added) - 1; i >= 0; i-- {
		if err := e.mat.Graph.Remove(e.added[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.snap.Restore(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.ErrCodeRestoreFailed, stderrors.Join(errs...), "material %q", e.mat.Name)
	}
	return nil
}

// Bake bakes job.Map for job.Objects into job.Target. With the SelfOnly
// policy every object is baked in its own call; with Group all objects are
// baked in one call so they see each other.
//
// Every material touched is restored before Bake returns, on every path.
// Restore failures are joined with the bake error.
func (r *Rewriter) Bake(ctx context.Context, job Job) error {
	if !r.mu.TryLock() {
		return errors.New(errors.ErrCodeBakeInProgress, "a bake is already running")
	}
	defer r.mu.Unlock()

	strategy, ok := StrategyFor(job.Map)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "map %q cannot be baked", job.Map)
	}
	if job.Target == nil || job.Target.Image == nil {
		return errors.New(errors.ErrCodeInvalidInput, "bake %s: no target", job.Map)
	}
	if len(job.Objects) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bake %s: no objects", job.Map)
	}

	groups := [][]host.ObjectID{job.Objects}
	if job.Policy != host.Group {
		groups = groups[:0]
		for _, id := range job.Objects {
			groups = append(groups, []host.ObjectID{id})
		}
	}
	for _, objs := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.bakeGroup(ctx, job, strategy, objs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rewriter) bakeGroup(ctx context.Context, job Job, strategy Strategy, objs []host.ObjectID) (err error) {
	mats, err := r.materials(job.Map, objs)
	if err != nil {
		return err
	}

	var edits []*edit
	defer func() {
		var errs []error
		for i := len(edits) - 1; i >= 0; i-- {
			if uerr := edits[i].undo(); uerr != nil {
				errs = append(errs, uerr)
			}
		}
		if len(errs) > 0 {
			err = stderrors.Join(append([]error{err}, errs...)...)
		}
	}()

	for _, mat := range mats {
		var e *edit
		var perr error
		if strategy.Mode == Workaround {
			e, perr = reroute(mat, strategy.Input)
		} else {
			e = &edit{mat: mat, snap: TakeSnapshot(mat.Graph, nil, nil)}
		}
		if e != nil {
			edits = append(edits, e)
		}
		if perr != nil {
			return errors.Wrap(errors.ErrCodeBakeFailed, graphError(perr), "rewrite %q for %s", mat.Name, job.Map)
		}
		if e == nil {
			r.logger.Debug("material has no principled or output node, skipping", "material", mat.Name, "map", job.Map)
			continue
		}
		if err := attachDestination(e, job.Target.Image.Name); err != nil {
			return errors.Wrap(errors.ErrCodeBakeFailed, graphError(err), "attach destination to %q", mat.Name)
		}
	}

	names := make([]string, len(objs))
	for i, id := range objs {
		names[i] = string(id)
	}
	start := time.Now()
	berr := r.host.Bake(ctx, host.BakeRequest{
		Quantity:  strategy.Quantity,
		Selection: host.Selection{Objects: objs, Active: objs[0]},
		Margin:    job.Margin,
	})
	elapsed := time.Since(start)
	observability.Bake().OnBake(ctx, string(job.Map), job.Target.Scope, names, elapsed, berr)
	if berr != nil {
		return errors.Wrap(errors.ErrCodeBakeFailed, berr, "bake %s for %v", job.Map, names)
	}
	r.logger.Debug("baked", "map", job.Map, "scope", job.Target.Scope, "objects", names,
		"mode", strategy.Mode, "duration", elapsed.Round(time.Millisecond))
	return nil
}

// materials collects the distinct materials to rewrite. AO bakes use only
// each object's first slot; other maps use every slot.
func (r *Rewriter) materials(m MapType, objs []host.ObjectID) ([]*shader.Material, error) {
	seen := make(map[*shader.Material]bool)
	var out []*shader.Material
	for _, id := range objs {
		slots, err := r.host.Materials(id)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			return nil, errors.New(errors.ErrCodeMissingMaterial, "object %q has no material", id)
		}
		if m == AO {
			slots = slots[:1]
		}
		for _, mat := range slots {
			if mat == nil || seen[mat] {
				continue
			}
			seen[mat] = true
			out = append(out, mat)
		}
	}
	return out, nil
}

// reroute exposes the principled input through an emission node wired to
// the output surface. It returns nil, nil when the material has no
// principled or output node. On error the returned edit must still be undone.
func reroute(mat *shader.Material, input shader.Port) (*edit, error) {
	g := mat.Graph
	bsdf, ok := g.Find(shader.KindPrincipled)
	if !ok {
		return nil, nil
	}
	out, ok := g.Find(shader.KindOutput)
	if !ok {
		return nil, nil
	}
	if spec, _ := shader.Spec(bsdf.Kind); !hasInput(spec, input) {
		return nil, fmt.Errorf("%w: %s has no input %q", shader.ErrUnknownPort, bsdf.Kind, input)
	}
	in, surface := bsdf.In(input), out.In(shader.PortSurface)
	e := &edit{mat: mat, snap: TakeSnapshot(g, &in, &surface)}

	g.Disconnect(surface)
	em, err := g.Add(shader.KindEmission)
	if err != nil {
		return e, err
	}
	e.added = append(e.added, em.ID)
	em.Label = "bake emission"

	if src, linked := g.Source(in); linked {
		if err := g.Connect(src, em.In(shader.PortColor)); err != nil {
			return e, err
		}
	} else {
		c := bsdf.Value(input).AsColor()
		if err := em.Set(shader.PortColor, shader.RGBA(c[0], c[1], c[2], c[3])); err != nil {
			return e, err
		}
	}
	if err := g.Connect(em.Out(shader.PortEmission), surface); err != nil {
		return e, err
	}
	return e, nil
}

func hasInput(spec shader.KindSpec, p shader.Port) bool {
	_, ok := spec.Input(p)
	return ok
}

// graphError tags a failed graph edit with the code matching its shader
// sentinel. Other errors are returned unchanged.
func graphError(err error) error {
	switch {
	case stderrors.Is(err, shader.ErrUnknownPort):
		return errors.Wrap(errors.ErrCodeUnknownPort, err, "graph edit")
	case stderrors.Is(err, shader.ErrPortTypeMismatch):
		return errors.Wrap(errors.ErrCodePortTypeMismatch, err, "graph edit")
	}
	return err
}

// attachDestination adds an image texture bound to image and makes it the
// active node.
func attachDestination(e *edit, image string) error {
	g := e.mat.Graph
	tex, err := g.Add(shader.KindImageTexture)
	if err != nil {
		return err
	}
	e.added = append(e.added, tex.ID)
	tex.Label = "bake target"
	if err := tex.BindImage(image); err != nil {
		return err
	}
	return g.SetActive(tex.ID)
}
