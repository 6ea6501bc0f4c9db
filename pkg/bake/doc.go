// Package bake implements the bake core: target images, restorable graph
// rewrites, metallic-roughness packing, and baked material assembly.
//
// # Targets
//
// A [Registry] keys every target image uniformly by [Key] (map type plus an
// optional scope). Combined runs use the empty scope and share one target
// per map across all objects; separate runs scope targets by object name.
//
// # Rewrites
//
// Hosts can only bake a handful of quantities natively. Other shader inputs
// (base color, roughness, metallic) are baked with the emission workaround:
// the [Rewriter] routes the input through an emission node into the output
// surface, bakes the emitted value, and restores the graph.
//
//	rw := bake.NewRewriter(h, logger)
//	err := rw.Bake(ctx, bake.Job{
//	    Map:     bake.Roughness,
//	    Objects: []host.ObjectID{"Rock"},
//	    Target:  target,
//	    Policy:  host.SelfOnly,
//	})
//
// Restoration runs on every exit path, including bake failures, and its
// errors are joined with the bake error rather than dropped. A Rewriter runs
// one bake at a time and rejects overlapping calls with BAKE_IN_PROGRESS.
//
// # Packing and Assembly
//
// A [Packer] composites roughness and metallic into a glTF-style texture
// (G = roughness, B = metallic). An [Assembler] builds the final material
// from whichever baked images exist and applies it, replacing every slot.
package bake
