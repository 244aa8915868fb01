package community

import "sort"

// gainEpsilon absorbs float noise when comparing gains in edge-weight units.
const gainEpsilon = 1e-10

// Rand is the random source consumed by the detectors. *rand.Rand satisfies it.
type Rand interface {
	Perm(n int) []int
	Float64() float64
}

// mover holds the running community totals for local moving on one graph level.
//
// Gains are expressed in edge-weight units: moving an isolated node i into
// community C changes modularity by (k_i,C − γ k_i Σ_C / 2m) / m, and the
// common 1/m factor is dropped.
type mover struct {
	g        *Graph
	comm     []int
	tot      []float64
	size     []int
	empty    []int // stack of unused community ids, smallest on top
	gamma    float64
	weightTo []float64
	touched  []int
}

func newMover(g *Graph, comm []int, gamma float64) *mover {
	n := g.Len()
	m := &mover{
		g:        g,
		comm:     comm,
		tot:      make([]float64, n),
		size:     make([]int, n),
		gamma:    gamma,
		weightTo: make([]float64, n),
	}
	for i, c := range comm {
		m.tot[c] += g.strength[i]
		m.size[c]++
	}
	for c := n - 1; c >= 0; c-- {
		if m.size[c] == 0 {
			m.empty = append(m.empty, c)
		}
	}
	return m
}

// move relocates node i to the community with the largest strictly positive
// improvement over staying put. Equal gains go to the lowest community id.
// It reports whether i changed community.
func (m *mover) move(i int) bool {
	g := m.g
	ci := m.comm[i]
	ki := g.strength[i]

	for _, a := range g.adj[i] {
		c := m.comm[a.to]
		if m.weightTo[c] == 0 {
			m.touched = append(m.touched, c)
		}
		m.weightTo[c] += a.w
	}

	m.tot[ci] -= ki
	m.size[ci]--

	stay := m.weightTo[ci] - m.gamma*ki*m.tot[ci]/g.total
	bestC, bestGain := ci, stay

	consider := func(c int) {
		gain := m.weightTo[c] - m.gamma*ki*m.tot[c]/g.total
		if gain <= stay+gainEpsilon {
			return
		}
		if gain > bestGain+gainEpsilon || (gain >= bestGain-gainEpsilon && c < bestC) {
			bestC, bestGain = c, gain
		}
	}
	for _, c := range m.touched {
		if c != ci {
			consider(c)
		}
	}
	if m.size[ci] > 0 && len(m.empty) > 0 {
		consider(m.empty[len(m.empty)-1])
	}

	m.tot[bestC] += ki
	m.size[bestC]++
	if bestC != ci {
		if n := len(m.empty); n > 0 && m.empty[n-1] == bestC {
			m.empty = m.empty[:n-1]
		}
		if m.size[ci] == 0 {
			m.pushEmpty(ci)
		}
		m.comm[i] = bestC
	}

	for _, c := range m.touched {
		m.weightTo[c] = 0
	}
	m.touched = m.touched[:0]

	return bestC != ci
}

// pushEmpty keeps the empty stack ordered so the smallest id is on top.
func (m *mover) pushEmpty(c int) {
	idx := sort.Search(len(m.empty), func(k int) bool { return m.empty[k] < c })
	m.empty = append(m.empty, 0)
	copy(m.empty[idx+1:], m.empty[idx:])
	m.empty[idx] = c
}

// louvainMove sweeps all nodes in random order until a full pass moves
// nothing. It reports whether any node moved.
func louvainMove(g *Graph, comm []int, gamma float64, rng Rand) bool {
	m := newMover(g, comm, gamma)
	movedAny := false
	for {
		moved := false
		for _, i := range rng.Perm(g.Len()) {
			if m.move(i) {
				moved = true
			}
		}
		if !moved {
			return movedAny
		}
		movedAny = true
	}
}

// fastMove is Leiden's queue-based local moving: every node is visited once
// in random order, and a node is queued again only when a neighbour leaves
// for a different community.
func fastMove(g *Graph, comm []int, gamma float64, rng Rand) bool {
	m := newMover(g, comm, gamma)
	n := g.Len()

	queue := rng.Perm(n)
	queued := make([]bool, n)
	for i := range queued {
		queued[i] = true
	}

	movedAny := false
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		queued[i] = false

		if !m.move(i) {
			continue
		}
		movedAny = true
		for _, a := range g.adj[i] {
			if !queued[a.to] && m.comm[a.to] != m.comm[i] {
				queued[a.to] = true
				queue = append(queue, a.to)
			}
		}
	}
	return movedAny
}

// aggregate contracts each community of part into a single node. Internal
// edges become self-loops. It returns the new graph and the node -> super-node
// mapping.
func aggregate(g *Graph, part []int) (*Graph, []int) {
	dense, k := relabel(part)

	type key struct{ a, b int }
	acc := make(map[key]float64)
	for i := range g.adj {
		ci := dense[i]
		if g.self[i] > 0 {
			acc[key{ci, ci}] += g.self[i]
		}
		for _, a := range g.adj[i] {
			if a.to < i {
				continue
			}
			x, y := ci, dense[a.to]
			if y < x {
				x, y = y, x
			}
			acc[key{x, y}] += a.w
		}
	}

	keys := make([]key, 0, len(acc))
	for kk := range acc {
		keys = append(keys, kk)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	ng := newEmptyGraph(k)
	for _, kk := range keys {
		ng.addEdge(kk.a, kk.b, acc[kk])
	}
	return ng, dense
}

func singletons(n int) []int {
	part := make([]int, n)
	for i := range part {
		part[i] = i
	}
	return part
}

func countCommunities(part []int) int {
	_, k := relabel(part)
	return k
}
