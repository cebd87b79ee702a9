// Package dag provides a small directed graph for catalog lineage.
// It supports cycle detection, topological ordering and reachability
// queries in both directions.
package dag

import (
	"fmt"
	"sort"
)

// Node is a vertex in the graph.
type Node struct {
	// ID is unique across the graph.
	ID string
	// Kind classifies the node, e.g. "connection" or "data set".
	Kind string
}

// Graph is a directed graph whose edges point from an upstream node to the
// nodes that read from it.
type Graph struct {
	nodes      map[string]*Node
	downstream map[string][]string
	upstream   map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		downstream: make(map[string][]string),
		upstream:   make(map[string][]string),
	}
}

// AddNode adds a node, or updates the kind of an existing one.
func (g *Graph) AddNode(id, kind string) {
	if n, ok := g.nodes[id]; ok {
		n.Kind = kind
		return
	}
	g.nodes[id] = &Node{ID: id, Kind: kind}
}

// AddEdge records that to reads from from. Both nodes must exist.
// Self-loops are kept so FindCycle can report them.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("node %q does not exist", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("node %q does not exist", to)
	}
	if !contains(g.downstream[from], to) {
		g.downstream[from] = append(g.downstream[from], to)
	}
	if !contains(g.upstream[to], from) {
		g.upstream[to] = append(g.upstream[to], from)
	}
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// sortedIDs returns node ids in lexical order so walks are deterministic.
func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindCycle returns one cycle as a path whose first and last elements are
// the same node, or nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	via := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range g.downstream[id] {
			if !visited[next] {
				via[next] = id
				if dfs(next) {
					return true
				}
				continue
			}
			if onStack[next] {
				cycle = []string{next}
				for cur := id; cur != next; cur = via[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// TopologicalSort returns nodes with every upstream node before its readers.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, fmt.Errorf("cycle detected: %v", cycle)
	}

	visited := make(map[string]bool)
	out := make([]*Node, 0, len(g.nodes))
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, up := range g.upstream[id] {
			visit(up)
		}
		out = append(out, g.nodes[id])
	}
	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return out, nil
}

// Downstream returns every node that reads from id, directly or not.
func (g *Graph) Downstream(id string) []string {
	return g.reach(id, g.downstream)
}

// Upstream returns every node id reads from, directly or not.
func (g *Graph) Upstream(id string) []string {
	return g.reach(id, g.upstream)
}

func (g *Graph) reach(id string, edges map[string][]string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		for _, next := range edges[cur] {
			if !seen[next] {
				seen[next] = true
				walk(next)
			}
		}
	}
	walk(id)
	delete(seen, id)

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
