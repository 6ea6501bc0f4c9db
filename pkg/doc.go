// Package pkg provides the core libraries for texbake PBR texture baking.
//
// # Overview
//
// Texbake bakes the procedural materials of scene objects into image
// textures and replaces those materials with a simple image-based PBR
// material. The pkg directory is organized into these areas:
//
//  1. [shader] - Typed material node graphs (nodes, ports, links, JSON form)
//  2. [host] - The render host contract, with [host/soft] as an in-process implementation
//  3. [bake] - Bake targets, the material rewrite, channel packing and material assembly
//  4. [pipeline] - Orchestration (validate → bake → pack → assemble → export)
//  5. [config], [manifest], [history] - Configuration files, output manifests, run ledger
//
// # Architecture
//
// The typical data flow through texbake:
//
//	Config file (JSON/TOML/YAML)
//	         ↓
//	    [config] package (defaults, env overrides, path resolution)
//	         ↓
//	    [pipeline] package (stage sequencing, one scope per object or one combined)
//	         ↓
//	    [bake] package (rewrite material → host bake → restore)
//	         ↓
//	    textures/*.png, bake_manifest.txt, assembled materials
//
// # Quick Start
//
//	runner := pipeline.NewRunner(soft.New(), logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    SceneFile:  "rock.json",
//	    Objects:    []string{"Rock"},
//	    OutputName: "rock",
//	    OutputDir:  "out",
//	})
//
// # Supporting Packages
//
// [errors] - Structured errors with stable codes and input validation helpers.
//
// [observability] - Hook registry for stage, bake and ledger events.
//
// [render/nodelink] - Graphviz diagrams of material node graphs.
//
// [buildinfo] - Version data injected at build time.
//
// [shader]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/shader
// [host]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/host
// [host/soft]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/host/soft
// [bake]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/bake
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/config
// [manifest]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/manifest
// [history]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/history
// [errors]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/observability
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/render/nodelink
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/texbake/pkg/buildinfo
package pkg
