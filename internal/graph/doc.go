// Package graph models a build as a directed graph of tool stages.
//
// Nodes are tools, identified by name and described by a Descriptor. Edges
// carry a Predicate over a Flags snapshot; traversal follows, from each node,
// the first outgoing edge (in insertion order) whose predicate holds.
//
// Every graph has an implicit root node named RootName. Traversal starts
// there and the root can never be the target of an edge.
//
// Construction is fail-fast: InsertNode and InsertEdge validate before they
// mutate, so a failed call leaves the graph exactly as it was. A graph is
// built once and then only read; it is not safe to mutate while traversing.
package graph
