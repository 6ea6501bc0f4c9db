package bake

import (
	stderrors "errors"
	"slices"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/shader"
)

// Snapshot records the links into a material's rerouted input and output
// surface, plus its active node, immediately before a rewrite. Restore
// reproduces exactly that state.
type Snapshot struct {
	g            *shader.Graph
	input        *shader.Socket
	inputLinks   []shader.Link
	surface      *shader.Socket
	surfaceLinks []shader.Link
	active       shader.NodeID
}

// TakeSnapshot captures the current links into input and surface. Either
// socket may be nil when the rewrite does not touch it.
func TakeSnapshot(g *shader.Graph, input, surface *shader.Socket) *Snapshot {
	s := &Snapshot{g: g, input: input, surface: surface}
	if input != nil {
		s.inputLinks = g.LinksTo(*input)
	}
	if surface != nil {
		s.surfaceLinks = g.LinksTo(*surface)
	}
	if n, ok := g.Active(); ok {
		s.active = n.ID
	}
	return s
}

// Restore puts the recorded links and active node back, replacing whatever
// the rewrite left in their place.
func (s *Snapshot) Restore() error {
	var errs []error
	restore := func(to *shader.Socket, links []shader.Link) {
		if to == nil || slices.Equal(s.g.LinksTo(*to), links) {
			return
		}
		s.g.Disconnect(*to)
		for _, l := range links {
			if err := s.g.Connect(l.From, l.To); err != nil {
				errs = append(errs, err)
			}
		}
	}
	restore(s.input, s.inputLinks)
	restore(s.surface, s.surfaceLinks)

	if _, ok := s.g.Node(s.active); ok || s.active == 0 {
		if err := s.g.SetActive(s.active); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(errors.ErrCodeRestoreFailed, stderrors.Join(errs...), "restore graph")
	}
	return nil
}

// Intact reports whether the graph's links into the recorded sockets equal
// the snapshot.
func (s *Snapshot) Intact() bool {
	same := func(to *shader.Socket, want []shader.Link) bool {
		if to == nil {
			return true
		}
		return slices.Equal(s.g.LinksTo(*to), want)
	}
	return same(s.input, s.inputLinks) && same(s.surface, s.surfaceLinks)
}
