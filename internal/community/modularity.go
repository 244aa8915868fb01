package community

// Modularity computes Q = (1/2m) Σ_ij (A_ij − γ k_i k_j / 2m) δ(c_i, c_j)
// for a node-indexed partition of g. An edgeless graph has Q = 0.
// Labels may be arbitrary ints; sums run in node order so equal inputs give
// bit-identical results.
func Modularity(g *Graph, part []int, gamma float64) float64 {
	if g.total == 0 || len(part) != g.Len() {
		return 0
	}

	dense, k := relabel(part)
	internal := make([]float64, k)
	totals := make([]float64, k)
	for i := range g.adj {
		c := dense[i]
		totals[c] += g.strength[i]
		internal[c] += 2 * g.self[i]
		for _, a := range g.adj[i] {
			if dense[a.to] == c {
				internal[c] += a.w
			}
		}
	}

	q := 0.0
	for c := 0; c < k; c++ {
		frac := totals[c] / g.total
		q += internal[c]/g.total - gamma*frac*frac
	}
	return q
}

// ModularityOf scores a partition keyed by node id. Ids missing from the
// partition are treated as singletons.
func ModularityOf(g *Graph, partition map[string]int, gamma float64) float64 {
	part := make([]int, g.Len())
	next := -1
	for i, id := range g.ids {
		c, ok := partition[id]
		if !ok {
			c = next
			next--
		}
		part[i] = c
	}
	return Modularity(g, part, gamma)
}

// relabel maps labels onto 0..k-1 in order of first appearance.
func relabel(part []int) ([]int, int) {
	ids := make(map[int]int)
	out := make([]int, len(part))
	for i, c := range part {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[i] = id
	}
	return out, len(ids)
}
