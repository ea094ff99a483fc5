package creek

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Validation limits to prevent pathological cases.
const (
	maxNodesPerGraph = 10000
	maxDepth         = 500
)

// validate performs all structural validations and computes the cached
// topological order. The builder already guarantees most invariants for
// graphs built in-process; validate re-checks everything because graphs
// can also arrive from a deserialized snapshot.
func (g *Graph) validate() error {
	if len(g.nodes) > maxNodesPerGraph {
		return fmt.Errorf("%w: node count %d exceeds maximum %d",
			ErrArityMismatch, len(g.nodes), maxNodesPerGraph)
	}

	if err := g.validateNodes(); err != nil {
		return fmt.Errorf("graph validation failed: %w", err)
	}
	if err := g.detectCycles(); err != nil {
		return fmt.Errorf("graph validation failed: %w", err)
	}
	g.prune()
	g.topo = g.topologicalOrder()
	return nil
}

// validateNodes checks edge targets, slot bounds, type compatibility, and
// that every referenced placeholder is in the declared placeholder list.
func (g *Graph) validateNodes() error {
	declared := make(map[NodeID]bool, len(g.placeholders))
	for _, id := range g.placeholders {
		n, ok := g.nodes[id]
		if !ok || n.kind != kindPlaceholder {
			return fmt.Errorf("%w: %q", ErrUnknownPlaceholder, id)
		}
		declared[id] = true
	}
	for _, id := range g.order {
		n := g.nodes[id]
		if n.kind == kindPlaceholder {
			if !declared[id] {
				return fmt.Errorf("%w: %q is not in the declared placeholder list", ErrUnknownPlaceholder, id)
			}
			continue
		}
		if len(n.inputs) != len(n.inTypes) {
			return fmt.Errorf("%w: node %q has %d inputs but declares %d input types",
				ErrArityMismatch, id, len(n.inputs), len(n.inTypes))
		}
		for i, in := range n.inputs {
			parent, ok := g.nodes[in.node]
			if !ok {
				return fmt.Errorf("%w: input %d of %q references %q", ErrNodeNotFound, i, id, in.node)
			}
			if in.slot < 0 || in.slot >= len(parent.outTypes) {
				return fmt.Errorf("%w: input %d of %q references slot %d of %q (width %d)",
					ErrArityMismatch, i, id, in.slot, in.node, len(parent.outTypes))
			}
			if parent.outTypes[in.slot] != n.inTypes[i] {
				return fmt.Errorf("%w: %s slot %d outputs %v but %s input %d expects %v",
					ErrTypeMismatch, in.node, in.slot, parent.outTypes[in.slot], id, i, n.inTypes[i])
			}
		}
	}
	return nil
}

// detectCycles uses DFS over input edges to find cycles. The public
// builder API cannot produce one (edges only reference already-registered
// nodes), but deserialized snapshots are not trusted.
func (g *Graph) detectCycles() error {
	visited := make(map[NodeID]bool, len(g.nodes))
	inStack := make(map[NodeID]bool, len(g.nodes))

	var dfs func(NodeID, []NodeID, int) error
	dfs = func(id NodeID, path []NodeID, depth int) error {
		if depth > maxDepth {
			return fmt.Errorf("%w: maximum depth %d exceeded", ErrCycleDetected, maxDepth)
		}
		visited[id] = true
		inStack[id] = true
		path = append(path, id)

		for _, in := range g.nodes[id].inputs {
			if !visited[in.node] {
				if err := dfs(in.node, path, depth+1); err != nil {
					return err
				}
			} else if inStack[in.node] {
				cycle := append(path, in.node)
				parts := make([]string, len(cycle))
				for i, p := range cycle {
					parts[i] = string(p)
				}
				return fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(parts, " <- "))
			}
		}
		inStack[id] = false
		return nil
	}

	for _, id := range g.order {
		if !visited[id] {
			if err := dfs(id, nil, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// prune drops nodes that no declared output transitively depends on.
// Declared placeholders are always retained so binding positions remain
// stable.
func (g *Graph) prune() {
	keep := make(map[NodeID]bool, len(g.nodes))
	var mark func(NodeID)
	mark = func(id NodeID) {
		if keep[id] {
			return
		}
		keep[id] = true
		for _, in := range g.nodes[id].inputs {
			mark(in.node)
		}
	}
	for _, e := range g.outputs {
		mark(e.node)
	}
	for _, id := range g.placeholders {
		keep[id] = true
	}

	retained := g.order[:0:0]
	for _, id := range g.order {
		if keep[id] {
			retained = append(retained, id)
		} else {
			delete(g.nodes, id)
		}
	}
	g.order = retained
}

// topologicalOrder computes a deterministic execution order with Kahn's
// algorithm: every node appears after all of its inputs; ties between
// independent nodes are broken by declaration order. Called once at Build
// time; the result is cached on the Graph.
func (g *Graph) topologicalOrder() []NodeID {
	indegree := make(map[NodeID]int, len(g.nodes))
	children := make(map[NodeID][]NodeID, len(g.nodes))
	for _, id := range g.order {
		n := g.nodes[id]
		seen := map[NodeID]bool{}
		for _, in := range n.inputs {
			// A node consuming two slots of the same parent has one
			// dependency, not two.
			if seen[in.node] {
				continue
			}
			seen[in.node] = true
			indegree[id]++
			children[in.node] = append(children[in.node], id)
		}
	}

	// Ready queue kept sorted by declaration index; inserting at the
	// sorted position is cheaper than re-sorting per step.
	insertByDecl := func(queue []NodeID, id NodeID) []NodeID {
		decl := g.nodes[id].declIndex
		idx := sort.Search(len(queue), func(i int) bool {
			return g.nodes[queue[i]].declIndex >= decl
		})
		return slices.Insert(queue, idx, id)
	}

	ready := make([]NodeID, 0, len(g.order))
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = insertByDecl(ready, id)
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, child := range children[id] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = insertByDecl(ready, child)
			}
		}
	}
	return order
}
