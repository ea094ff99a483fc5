package creek

import (
	"fmt"
	"reflect"
	"strings"
)

// NodeID is a strongly-typed identifier for graph nodes. IDs must be
// non-empty and cannot contain whitespace.
type NodeID string

// Validate checks if the NodeID is valid.
func (id NodeID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: NodeID cannot be empty", ErrInvalidNodeID)
	}
	if strings.ContainsAny(string(id), " \t\n\r") {
		return fmt.Errorf("%w: NodeID %q cannot contain whitespace", ErrInvalidNodeID, id)
	}
	return nil
}

// Edge references one output slot of a node. Edges are handed out by the
// Builder's registration methods and are the only way to wire nodes
// together, so an edge can never point at a node that is not already part
// of the graph under construction.
type Edge struct {
	node NodeID
	slot int
}

// Node returns the ID of the node the edge originates from.
func (e Edge) Node() NodeID { return e.node }

// SlotIndex returns the output slot the edge addresses.
func (e Edge) SlotIndex() int { return e.slot }

// Slot returns the edge addressing output slot i of the same node. Used to
// consume secondary outputs of multi-output nodes; registration methods
// return the slot-0 edge.
func Slot(e Edge, i int) Edge {
	return Edge{node: e.node, slot: i}
}

type nodeKind int

const (
	kindPlaceholder nodeKind = iota
	kindStateless
	kindPreparable
)

func (k nodeKind) String() string {
	switch k {
	case kindPlaceholder:
		return "Placeholder"
	case kindStateless:
		return "Stateless"
	case kindPreparable:
		return "Preparable"
	default:
		return "Unknown"
	}
}

// node is the build-time representation of a graph node.
type node struct {
	id   NodeID
	kind nodeKind

	// inputs are incoming edges, in positional order. Empty for
	// placeholders.
	inputs []Edge

	inTypes  []reflect.Type
	outTypes []reflect.Type

	stateless  StatelessTransformer  // kindStateless only
	preparable PreparableTransformer // kindPreparable only; nil on deserialized graphs

	// declIndex is the registration position, used as the deterministic
	// tie-break in the topological order.
	declIndex int
}

// Graph is a validated, immutable pipeline DAG. It is produced by
// Builder.Build (or by deserializing a snapshot) and is safe for
// concurrent read access. Preparation state is never stored on the Graph
// itself: Prepare returns a separate PreparedGraph.
type Graph struct {
	nodes map[NodeID]*node

	// order is the declaration order of all retained nodes.
	order []NodeID

	// placeholders is the graph's parameter list, in declared order.
	// Bindings are matched to it by position.
	placeholders []NodeID

	// outputs are the declared output edges, arity = len(outputs).
	outputs []Edge

	// topo is the cached topological execution order, computed once at
	// Build time.
	topo []NodeID
}

// Arity returns the number of declared outputs.
func (g *Graph) Arity() int { return len(g.outputs) }

// PlaceholderCount returns the number of declared placeholders, i.e. the
// number of bindings Prepare and Apply expect.
func (g *Graph) PlaceholderCount() int { return len(g.placeholders) }

// PlaceholderNames returns the declared placeholder names in binding
// order.
func (g *Graph) PlaceholderNames() []string {
	names := make([]string, len(g.placeholders))
	for i, id := range g.placeholders {
		names[i] = string(id)
	}
	return names
}

// OutputTypes returns the declared type of each output slot, in output
// order.
func (g *Graph) OutputTypes() []reflect.Type {
	types := make([]reflect.Type, len(g.outputs))
	for i, e := range g.outputs {
		types[i] = g.nodes[e.node].outTypes[e.slot]
	}
	return types
}

// ExecutionOrder returns the cached topological order. For every edge
// u -> v, u precedes v. Ties between independent nodes are broken by
// declaration order, so the result is reproducible.
func (g *Graph) ExecutionOrder() []NodeID {
	out := make([]NodeID, len(g.topo))
	copy(out, g.topo)
	return out
}
