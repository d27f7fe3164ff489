package graph

import (
	"slices"
	"sort"
)

// RootName is the name of the implicit entry node.
const RootName = "root"

// Descriptor is the static capability record of a tool.
type Descriptor struct {
	Name       string
	InputKinds []string
	OutputKind string

	// Join tools consume every predecessor output in one invocation.
	Join bool

	// WorksOnEmpty tools may run with zero inputs.
	WorksOnEmpty bool
}

// Accepts reports whether the tool takes inputs of the given kind.
func (d Descriptor) Accepts(kind string) bool {
	return slices.Contains(d.InputKinds, kind)
}

// Node is anything the graph can hold.
type Node interface {
	Descriptor() Descriptor
}

type virtual Descriptor

func (v virtual) Descriptor() Descriptor { return Descriptor(v) }

// Virtual wraps a bare descriptor as a Node with no behaviour of its own.
func Virtual(d Descriptor) Node { return virtual(d) }

// Edge is a directed, gated link to Target.
type Edge struct {
	Target string

	// When gates the edge; nil means always enabled.
	When Predicate

	// Condition describes When for listings ("", "optimize", "!debug").
	Condition string
}

// Enabled evaluates the edge against flags.
func (e Edge) Enabled(flags Flags) bool {
	return e.When == nil || e.When(flags)
}

// Graph owns the nodes and edges of one build.
type Graph struct {
	nodes map[string]Node
	edges map[string][]Edge
}

// New returns a graph holding only the root node.
func New() *Graph {
	g := &Graph{
		nodes: make(map[string]Node),
		edges: make(map[string][]Edge),
	}
	g.nodes[RootName] = Virtual(Descriptor{Name: RootName, WorksOnEmpty: true})
	return g
}

// Root returns the name of the entry node.
func (g *Graph) Root() string { return RootName }

// InsertNode registers n under its descriptor name.
func (g *Graph) InsertNode(n Node) error {
	name := n.Descriptor().Name
	if name == "" {
		return newError(CodeInvalidNode, "", "node has no name")
	}
	if _, exists := g.nodes[name]; exists {
		return newError(CodeDuplicateNode, name, "node already registered")
	}
	g.nodes[name] = n
	return nil
}

// InsertEdge appends e to source's outgoing edges.
func (g *Graph) InsertEdge(source string, e Edge) error {
	if _, ok := g.nodes[source]; !ok {
		return newError(CodeUnknownNode, source, "edge source is not registered")
	}
	if e.Target == RootName {
		return newError(CodeRootLoop, source, "edge leads back to %s", RootName)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return newError(CodeUnknownNode, e.Target, "edge target is not registered")
	}
	g.edges[source] = append(g.edges[source], e)
	return nil
}

// Lookup returns the node registered under name.
func (g *Graph) Lookup(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node name, sorted.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Edges returns a copy of source's outgoing edges in insertion order.
func (g *Graph) Edges(source string) []Edge {
	return slices.Clone(g.edges[source])
}

// ResolveNext returns the first enabled outgoing edge of current.
func (g *Graph) ResolveNext(current string, flags Flags) (Edge, error) {
	if _, ok := g.nodes[current]; !ok {
		return Edge{}, newError(CodeUnknownNode, current, "no such node")
	}
	for _, e := range g.edges[current] {
		if e.Enabled(flags) {
			return e, nil
		}
	}
	return Edge{}, newError(CodeNoPath, current, "no enabled outgoing edge")
}

// HasNext reports whether current has an enabled outgoing edge.
func (g *Graph) HasNext(current string, flags Flags) bool {
	_, err := g.ResolveNext(current, flags)
	return err == nil
}

// Plan walks from the root and returns the tool names in execution order,
// excluding the root. A root with no enabled edge is an error; any later
// dead end simply ends the plan.
func (g *Graph) Plan(flags Flags) ([]string, error) {
	var plan []string
	seen := map[string]bool{RootName: true}
	current := RootName
	for {
		e, err := g.ResolveNext(current, flags)
		if err != nil {
			if IsNoPath(err) && current != RootName {
				return plan, nil
			}
			return nil, err
		}
		if seen[e.Target] {
			return nil, newError(CodeCycle, e.Target, "node reached twice from %s", RootName)
		}
		seen[e.Target] = true
		plan = append(plan, e.Target)
		current = e.Target
	}
}
