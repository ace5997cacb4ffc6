// Package nodelink draws topology and form diagrams as node-link graphs.
//
// Node positions come from the model, projected onto a coordinate plane and
// pinned for Graphviz's neato engine, so the drawing is to scale:
//
//	dot := nodelink.FormDOT(f, nodelink.Options{View: nodelink.ViewXZ, Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// In form diagrams, trail edges are drawn thick and deviation edges dashed;
// tension is red and compression blue. Supports are black squares,
// auxiliary supports grey dashed squares and loaded nodes yellow.
//
// Rendering uses [github.com/goccy/go-graphviz], which embeds Graphviz, so
// no external tools are needed.
package nodelink
