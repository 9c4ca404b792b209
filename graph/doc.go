// Package graph is the in-process computation graph engine that graph
// functions are captured from and imported into.
//
// A Graph is a mutable set of typed nodes; a GraphDef is its portable,
// serializable snapshot. The engine offers the capabilities the rest of
// gfnkit is built on:
//
//   - construction primitives: Placeholder, Const, Identity and a small set
//     of element-wise ops (Add, Sub, Mul, Neg, Relu, Square)
//   - Snapshot: export the graph, optionally pruned to the nodes reachable
//     backward from a set of outputs
//   - Import: add a GraphDef under a name prefix, rewiring references to
//     selected inputs onto nodes already in the graph
//   - Resolve: look up an element by name, accepting the "name:0" form
//
// GraphDef bytes use the protobuf wire format, so snapshots are compact and
// deterministic.
package graph
