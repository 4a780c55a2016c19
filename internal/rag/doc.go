// Package rag implements the region adjacency graph at the heart of the
// partitioning engine: node statistics accumulated over region pixels,
// graph construction from a label map, and priority-driven hierarchical
// merging of the least-dissimilar adjacent regions.
//
// # Representation
//
// Nodes live in an arena addressed by stable integer region identifiers;
// adjacency is an identifier -> edge index, and edges carry a scalar
// dissimilarity weight plus a creation sequence number. There are no
// pointer cycles: everything is reachable through the Graph's maps.
//
// # Invariants
//
// An edge exists between two nodes iff their regions share a boundary
// under the configured connectivity. Edge weights are always derivable
// from the two endpoint nodes' current statistics alone. A node's pixel
// count always equals the number of pixels assigned to it, directly or
// transitively through merges; statistics folding is associative and
// commutative, so merge order never changes the final statistics.
//
// # Determinism
//
// When several edges share the minimum weight, the earliest-created edge
// wins. Creation order is the raster-scan order of the build pass, and
// an edge retargeted by a merge keeps its original sequence number, so
// repeated runs over the same inputs merge in the same order.
package rag
