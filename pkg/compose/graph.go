package compose

import (
	"fmt"
	"sort"
	"strings"
)

// GraphBuilder builds the dependency graph over plan units, detects cycles,
// and assigns execution levels. Ties among independent units are broken by
// declaration order so identical input always yields an identical plan.
type GraphBuilder struct {
	// units maps unit IDs to their plan units
	units map[string]*PlanUnit

	// order maps unit IDs to declaration order
	order map[string]int

	// dependents maps unit IDs to the units that require them
	dependents map[string][]string

	// requires maps unit IDs to their prerequisites
	requires map[string][]string

	// inDegree tracks the number of unresolved prerequisites per node
	inDegree map[string]int

	// levels holds unit IDs per execution level
	levels [][]string
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		units:      make(map[string]*PlanUnit),
		order:      make(map[string]int),
		dependents: make(map[string][]string),
		requires:   make(map[string][]string),
		inDegree:   make(map[string]int),
	}
}

// Build constructs the dependency graph from plan units. It validates every
// edge target, rejects cycles, and computes execution levels. The whole
// graph is validated before any provisioning call can be issued.
func (b *GraphBuilder) Build(units []PlanUnit) (*Graph, error) {
	if len(units) == 0 {
		return &Graph{
			Nodes: make(map[string]*GraphNode),
			Edges: make([]GraphEdge, 0),
			Roots: make([]string, 0),
		}, nil
	}

	if err := b.initialize(units); err != nil {
		return nil, err
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	if err := b.computeLevels(); err != nil {
		return nil, err
	}

	return b.buildGraph(), nil
}

// initialize indexes the units and builds adjacency from their requirements.
func (b *GraphBuilder) initialize(units []PlanUnit) error {
	for i := range units {
		unit := &units[i]
		if unit.ID == "" {
			return NewFatalError("plan unit has empty ID", nil).
				WithCode(ErrCodeValidation)
		}
		if _, exists := b.units[unit.ID]; exists {
			return NewFatalError(fmt.Sprintf("duplicate plan unit %s", unit.ID), nil).
				WithCode(ErrCodeDuplicateName).
				WithResource(unit.Kind, unit.Name)
		}
		b.units[unit.ID] = unit
		b.order[unit.ID] = i
		b.dependents[unit.ID] = make([]string, 0)
		b.requires[unit.ID] = make([]string, 0)
		b.inDegree[unit.ID] = 0
	}

	for _, unit := range b.units {
		for _, req := range unit.Requires {
			targetID := req.ID()
			if _, exists := b.units[targetID]; !exists {
				return NewFatalError(
					fmt.Sprintf("unit %s requires unplanned resource %s", unit.ID, targetID), nil).
					WithCode(ErrCodeUnresolvedReference).
					WithResource(unit.Kind, unit.Name)
			}

			// The prerequisite must complete before the dependent starts.
			b.dependents[targetID] = append(b.dependents[targetID], unit.ID)
			b.requires[unit.ID] = append(b.requires[unit.ID], targetID)
			b.inDegree[unit.ID]++
		}
	}

	return nil
}

// detectCycles uses depth-first search to find circular requirements.
func (b *GraphBuilder) detectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	// Deterministic traversal order keeps the reported cycle stable.
	ids := b.sortedIDs()

	for _, id := range ids {
		if !visited[id] {
			if cycle := b.findCycle(id, visited, recStack, nil); cycle != nil {
				return NewFatalError(
					fmt.Sprintf("cyclic dependency: %s", strings.Join(cycle, " -> ")), nil).
					WithCode(ErrCodeCyclicDependency)
			}
		}
	}

	return nil
}

// findCycle performs DFS and returns the cycle path when one exists.
func (b *GraphBuilder) findCycle(id string, visited, recStack map[string]bool, path []string) []string {
	visited[id] = true
	recStack[id] = true
	path = append(path, id)

	for _, dep := range b.dependents[id] {
		if !visited[dep] {
			if cycle := b.findCycle(dep, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			start := 0
			for i, p := range path {
				if p == dep {
					start = i
					break
				}
			}
			return append(path[start:], dep)
		}
	}

	recStack[id] = false
	return nil
}

// computeLevels runs Kahn's algorithm, sorting each level by declaration
// order.
func (b *GraphBuilder) computeLevels() error {
	inDegree := make(map[string]int, len(b.inDegree))
	for id, d := range b.inDegree {
		inDegree[id] = d
	}

	current := make([]string, 0)
	for id, d := range inDegree {
		if d == 0 {
			current = append(current, id)
		}
	}
	if len(current) == 0 && len(b.units) > 0 {
		return NewFatalError("no independent resources found", nil).
			WithCode(ErrCodeCyclicDependency)
	}

	processed := 0
	for len(current) > 0 {
		b.sortByDeclaration(current)
		b.levels = append(b.levels, current)
		processed += len(current)

		next := make([]string, 0)
		for _, id := range current {
			for _, dep := range b.dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	// Unreachable if cycle detection did its job.
	if processed != len(b.units) {
		return NewFatalError("not all resources were ordered", nil).
			WithCode(ErrCodeInternal)
	}

	return nil
}

// buildGraph assembles the final Graph and stamps levels on the units.
func (b *GraphBuilder) buildGraph() *Graph {
	g := &Graph{
		Nodes:  make(map[string]*GraphNode, len(b.units)),
		Edges:  make([]GraphEdge, 0),
		Roots:  make([]string, 0),
		Depth:  len(b.levels),
		Levels: b.levels,
	}

	for level, ids := range b.levels {
		for _, id := range ids {
			unit := b.units[id]
			unit.Level = level
			g.Nodes[id] = &GraphNode{
				ID:         id,
				Level:      level,
				Requires:   b.requires[id],
				RequiredBy: b.dependents[id],
			}
			if level == 0 {
				g.Roots = append(g.Roots, id)
			}
		}
	}

	for _, id := range b.sortedIDs() {
		for _, target := range b.requires[id] {
			g.Edges = append(g.Edges, GraphEdge{From: id, To: target})
		}
	}

	return g
}

// Ordered returns all unit IDs in a single topological sequence, levels
// flattened in order.
func (g *Graph) Ordered() []string {
	ordered := make([]string, 0, len(g.Nodes))
	for _, level := range g.Levels {
		ordered = append(ordered, level...)
	}
	return ordered
}

// ToDOT renders the graph in DOT format for Graphviz.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph ProvisioningPlan {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, ids := range g.Levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf("    %q;\n", id))
		}
		sb.WriteString("  }\n\n")
	}

	for _, edge := range g.Edges {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", edge.To, edge.From))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (b *GraphBuilder) sortedIDs() []string {
	ids := make([]string, 0, len(b.units))
	for id := range b.units {
		ids = append(ids, id)
	}
	b.sortByDeclaration(ids)
	return ids
}

func (b *GraphBuilder) sortByDeclaration(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return b.order[ids[i]] < b.order[ids[j]]
	})
}
