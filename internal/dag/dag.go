// Package dag provides directed graph operations for table dependencies.
// An edge runs from a source table to the materialized view that reads it.
// It supports cycle detection, topological sorting and downstream lookups.
package dag

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Node represents a table in the graph.
type Node struct {
	ID   core.IdAndVersion
	Type core.TableType
}

// Graph represents a dependency graph between virtual tables.
type Graph struct {
	nodes   map[core.IdAndVersion]*Node
	edges   map[core.IdAndVersion][]core.IdAndVersion // source -> dependents
	parents map[core.IdAndVersion][]core.IdAndVersion // dependent -> sources
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[core.IdAndVersion]*Node),
		edges:   make(map[core.IdAndVersion][]core.IdAndVersion),
		parents: make(map[core.IdAndVersion][]core.IdAndVersion),
	}
}

// AddNode adds a table to the graph, updating its type if it already exists.
func (g *Graph) AddNode(id core.IdAndVersion, tableType core.TableType) {
	if node, exists := g.nodes[id]; exists {
		node.Type = tableType
		return
	}
	g.nodes[id] = &Node{ID: id, Type: tableType}
	g.edges[id] = nil
	g.parents[id] = nil
}

// AddEdge records that dependent reads from source.
func (g *Graph) AddEdge(source, dependent core.IdAndVersion) error {
	if _, exists := g.nodes[source]; !exists {
		return fmt.Errorf("source node %s does not exist", source)
	}
	if _, exists := g.nodes[dependent]; !exists {
		return fmt.Errorf("dependent node %s does not exist", dependent)
	}
	if source == dependent {
		return fmt.Errorf("self-loop detected: %s", source)
	}

	if !contains(g.edges[source], dependent) {
		g.edges[source] = append(g.edges[source], dependent)
	}
	if !contains(g.parents[dependent], source) {
		g.parents[dependent] = append(g.parents[dependent], source)
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id core.IdAndVersion) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// HasCycle returns true if the graph contains a cycle, along with the cycle
// path starting and ending at the same table.
func (g *Graph) HasCycle() (bool, []core.IdAndVersion) {
	visited := make(map[core.IdAndVersion]bool)
	onStack := make(map[core.IdAndVersion]bool)
	from := make(map[core.IdAndVersion]core.IdAndVersion)

	var cyclePath []core.IdAndVersion

	var dfs func(id core.IdAndVersion) bool
	dfs = func(id core.IdAndVersion) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range g.edges[id] {
			if !visited[next] {
				from[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cyclePath = []core.IdAndVersion{next}
				for curr := id; curr != next; curr = from[curr] {
					cyclePath = append([]core.IdAndVersion{curr}, cyclePath...)
				}
				cyclePath = append([]core.IdAndVersion{next}, cyclePath...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}

	return false, nil
}

// TopologicalSort returns tables with sources before dependents.
// Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]core.IdAndVersion, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[core.IdAndVersion]bool)
	var result []core.IdAndVersion

	var visit func(id core.IdAndVersion)
	visit = func(id core.IdAndVersion) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, source := range g.parents[id] {
			visit(source)
		}
		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}

	return result, nil
}

// Downstream returns every table that transitively reads from any of the
// given tables, excluding the tables themselves. The result is sorted.
func (g *Graph) Downstream(ids ...core.IdAndVersion) []core.IdAndVersion {
	seen := make(map[core.IdAndVersion]bool)
	queue := append([]core.IdAndVersion(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dependent := range g.edges[id] {
			if !seen[dependent] {
				seen[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}
	for _, id := range ids {
		delete(seen, id)
	}
	return sortIDs(seen)
}

func (g *Graph) sortedIDs() []core.IdAndVersion {
	ids := make(map[core.IdAndVersion]bool, len(g.nodes))
	for id := range g.nodes {
		ids[id] = true
	}
	return sortIDs(ids)
}

func sortIDs(set map[core.IdAndVersion]bool) []core.IdAndVersion {
	result := make([]core.IdAndVersion, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ID != result[j].ID {
			return result[i].ID < result[j].ID
		}
		return result[i].Version < result[j].Version
	})
	return result
}

// contains checks if a slice contains an id.
func contains(slice []core.IdAndVersion, id core.IdAndVersion) bool {
	for _, s := range slice {
		if s == id {
			return true
		}
	}
	return false
}
