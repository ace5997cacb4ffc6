// Package pkg provides the core libraries for cem, a combinatorial
// equilibrium modeling toolkit.
//
// # Overview
//
// cem computes the equilibrium form of a pin-jointed network from its
// topology: nodes, trail edges with signed lengths, deviation edges with
// signed forces, loads and supports. Trails are walked from their supports
// outward, so forces and positions follow from the topology alone. An
// optimizer then tunes lengths, forces and support positions until the form
// meets geometric and force constraints.
//
// # Architecture
//
//	topology file (JSON/TOML)
//	         ↓
//	    [io] + [topology] (decode, build trails)
//	         ↓
//	    [equilibrium] (static equilibrium → [form] diagram)
//	         ↓
//	    [optimization] (constraints, parameters, gradient-based search)
//	         ↓
//	    [render/nodelink] (SVG, PNG, DOT)
//
// [pipeline] ties the stages together behind a [cache] and is shared by the
// CLI and the [proxy] HTTP server. Optimization runs are recorded in a
// [store].
//
// # Quick Start
//
//	topo, _ := io.ImportTopology("bridge.toml")
//	f, _ := equilibrium.StaticEquilibrium(ctx, topo, equilibrium.DefaultOptions())
//	svg, _ := nodelink.Render(ctx, nodelink.FormDOT(f, nodelink.Options{}), nodelink.FormatSVG)
//
// # Main Packages
//
// [geom] - Vectors, planes, lines and rigid transforms.
//
// [topology] - The input graph and its trail decomposition, including
// auxiliary trails for nodes reached only by deviation edges.
//
// [form] - The solved diagram: positions, edge forces and lengths, support
// reactions.
//
// [equilibrium] - The iterative trail-by-trail solver.
//
// [optimization] - Constraints, parameters and the SLSQP, LBFGS, AUGLAG, MMA
// and TNEWTON strategies.
//
// [io] - JSON and TOML documents for topologies, forms, requests and results.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches keyed by content hashes.
//
// [store] - MongoDB and in-memory stores for optimization runs.
//
// [proxy] - HTTP server and client for solve, optimize and render.
//
// [config] - TOML configuration.
//
// [errors], [httputil], [observability], [buildinfo] - Coded errors, retries,
// hooks and version information.
//
// # Testing
//
//	go test ./pkg/...                       # All tests
//	CEM_MONGO_URI=mongodb://... go test ./pkg/store
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/geom
// [topology]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/topology
// [form]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/form
// [equilibrium]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/equilibrium
// [optimization]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/optimization
// [io]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/store
// [proxy]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/proxy
// [config]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/cem/pkg/buildinfo
package pkg
