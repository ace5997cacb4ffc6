// Package io provides JSON and TOML import and export for topology diagrams,
// form diagrams and optimization requests.
//
// # Overview
//
// The documents are plain structs that mirror the in-memory types with
// stable field names, so the same problem can be written by hand, produced
// by another tool, cached, or sent to a remote solver:
//
//   - [TopologyDoc]: nodes, edges, loads and supports of a problem
//   - [FormDoc]: a solved form diagram
//   - [SolveRequest] and [OptimizeRequest]: inputs of a solve or an
//     optimization run
//   - [ResultDoc]: the outcome of an optimization run
//
// # Topology Format
//
//	{
//	  "nodes": [
//	    {"id": 0, "position": [0, 0, 0]},
//	    {"id": 1, "position": [0, 0, -1]}
//	  ],
//	  "edges": [
//	    {"kind": "trail", "u": 0, "v": 1, "length": 1}
//	  ],
//	  "loads": [{"node": 1, "vector": [0, 0, -1]}],
//	  "supports": [{"node": 0}],
//	  "auxiliary_trails": false
//	}
//
// The same document in TOML uses arrays of tables:
//
//	[[nodes]]
//	id = 0
//	position = [0.0, 0.0, 0.0]
//
//	[[edges]]
//	kind = "trail"
//	u = 0
//	v = 1
//	length = 1.0
//
// Edges get their IDs from their position in the "edges" array, which is
// what constraints and parameters refer to. Trail edges carry "length" and
// an optional "plane" ({"origin": [...], "normal": [...]}); deviation edges
// carry "force". A support without "fixed" pins all three axes.
//
// Reading a topology also decomposes it into trails, using auxiliary
// supports when "auxiliary_trails" is set. Auxiliary nodes are not written
// back out; they are recreated on the next read.
//
// # Formats
//
// Functions taking a [Format] accept [FormatJSON] and [FormatTOML]. The
// file-based helpers pick the format from the extension with
// [FormatFromPath].
package io
