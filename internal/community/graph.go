// Package community partitions the mutual-friend graph by modularity
// optimisation (Louvain or Leiden) with connectivity repair.
package community

import (
	"math"
	"sort"
)

// Edge is an undirected mutual-friend link. Weight <= 0 means 1.
type Edge struct {
	Source string
	Target string
	Weight float64
}

// Weighting selects how edge weights are derived from the raw link list.
type Weighting string

const (
	// WeightUnit gives every distinct pair weight 1.
	WeightUnit Weighting = "unit"
	// WeightShared gives each pair 1 + the number of neighbours they share.
	WeightShared Weighting = "shared"
)

type arc struct {
	to int
	w  float64
}

// Graph is a weighted undirected graph over the connected friends. Node
// indices follow ascending id order so runs are reproducible.
type Graph struct {
	ids      []string
	index    map[string]int
	adj      [][]arc
	self     []float64 // self-loop weight, only present on aggregated graphs
	strength []float64 // k_i, self-loops counted twice
	total    float64   // 2m
	edges    int
}

// NewGraph builds a graph from raw links. Duplicate and reversed pairs are
// merged, self-loops and links touching ids outside known are dropped, and
// nodes without any remaining edge are excluded. A nil known accepts every id.
func NewGraph(known []string, links []Edge, weighting Weighting) *Graph {
	var allowed map[string]bool
	if known != nil {
		allowed = make(map[string]bool, len(known))
		for _, id := range known {
			allowed[id] = true
		}
	}

	type pair struct{ a, b string }
	weights := make(map[pair]float64)
	for _, e := range links {
		if e.Source == "" || e.Target == "" || e.Source == e.Target {
			continue
		}
		if allowed != nil && (!allowed[e.Source] || !allowed[e.Target]) {
			continue
		}
		a, b := e.Source, e.Target
		if b < a {
			a, b = b, a
		}
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		if old, ok := weights[pair{a, b}]; !ok || w > old {
			weights[pair{a, b}] = w
		}
	}

	nodeSet := make(map[string]struct{})
	for p := range weights {
		nodeSet[p.a] = struct{}{}
		nodeSet[p.b] = struct{}{}
	}
	ids := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := newEmptyGraph(len(ids))
	g.ids = ids
	for i, id := range ids {
		g.index[id] = i
	}

	pairs := make([]pair, 0, len(weights))
	for p := range weights {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	var shared map[int]map[int]bool
	if weighting == WeightShared {
		shared = make(map[int]map[int]bool, len(ids))
		for _, p := range pairs {
			a, b := g.index[p.a], g.index[p.b]
			if shared[a] == nil {
				shared[a] = make(map[int]bool)
			}
			if shared[b] == nil {
				shared[b] = make(map[int]bool)
			}
			shared[a][b] = true
			shared[b][a] = true
		}
	}

	for _, p := range pairs {
		a, b := g.index[p.a], g.index[p.b]
		w := weights[p]
		if shared != nil {
			common := 0
			for n := range shared[a] {
				if shared[b][n] {
					common++
				}
			}
			w = 1 + float64(common)
		}
		g.addEdge(a, b, w)
	}
	return g
}

func newEmptyGraph(n int) *Graph {
	return &Graph{
		index:    make(map[string]int, n),
		adj:      make([][]arc, n),
		self:     make([]float64, n),
		strength: make([]float64, n),
	}
}

func (g *Graph) addEdge(a, b int, w float64) {
	if a == b {
		g.self[a] += w
		g.strength[a] += 2 * w
		g.total += 2 * w
		return
	}
	g.adj[a] = append(g.adj[a], arc{to: b, w: w})
	g.adj[b] = append(g.adj[b], arc{to: a, w: w})
	g.strength[a] += w
	g.strength[b] += w
	g.total += 2 * w
	g.edges++
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// EdgeCount returns the number of distinct undirected edges, self-loops excluded.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// IDs returns the node ids in index order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Degree returns the number of neighbours of id, 0 when absent.
func (g *Graph) Degree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.adj[i])
}

// Degrees returns the neighbour count of every node keyed by id.
func (g *Graph) Degrees() map[string]int {
	out := make(map[string]int, len(g.ids))
	for i, id := range g.ids {
		out[id] = len(g.adj[i])
	}
	return out
}

// TotalWeight returns m, the sum of edge weights.
func (g *Graph) TotalWeight() float64 {
	return g.total / 2
}

// AdaptiveResolution derives γ from the graph's shape:
// 1 + log10(avgDegree+1)×0.4 + density×0.5.
func AdaptiveResolution(g *Graph) float64 {
	n := float64(g.Len())
	if n == 0 {
		return 1
	}
	e := float64(g.EdgeCount())
	avgDegree := 2 * e / n
	density := 0.0
	if n > 1 {
		density = e / (n * (n - 1) / 2)
	}
	return 1 + math.Log10(avgDegree+1)*0.4 + density*0.5
}
