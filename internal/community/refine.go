package community

import "math"

// refine is the Leiden refinement phase. Inside every community of comm each
// node restarts as a singleton; singletons are visited in random order and
// may merge into a refined community of the same parent that is reachable by
// an edge and improves modularity. Among the improving candidates one is
// drawn with probability proportional to exp(gain/theta), so a small theta
// is nearly greedy. Both the node and the target must be well connected to
// the rest of their parent community.
func refine(g *Graph, comm []int, gamma, theta float64, rng Rand) []int {
	n := g.Len()
	refined := singletons(n)
	if n == 0 || g.total == 0 {
		return refined
	}
	if theta <= 0 {
		theta = DefaultTheta
	}

	parentTot := make([]float64, n)
	for i, c := range comm {
		parentTot[c] += g.strength[i]
	}

	// external[r] is the weight from refined community r to the rest of its parent.
	external := make([]float64, n)
	for i := range g.adj {
		for _, a := range g.adj[i] {
			if comm[a.to] == comm[i] {
				external[i] += a.w
			}
		}
	}
	// inParent[v] is v's weight into its own parent community, fixed.
	inParent := make([]float64, n)
	copy(inParent, external)

	tot := make([]float64, n)
	size := make([]int, n)
	for i := range tot {
		tot[i] = g.strength[i]
		size[i] = 1
	}

	weightTo := make([]float64, n)
	var touched []int
	var candidates []int
	var gains []float64

	for _, v := range rng.Perm(n) {
		rv := refined[v]
		if size[rv] != 1 {
			continue
		}
		parent := comm[v]
		kv := g.strength[v]
		if inParent[v] < gamma*kv*(parentTot[parent]-kv)/g.total {
			continue
		}

		for _, a := range g.adj[v] {
			if comm[a.to] != parent {
				continue
			}
			r := refined[a.to]
			if r == rv {
				continue
			}
			if weightTo[r] == 0 {
				touched = append(touched, r)
			}
			weightTo[r] += a.w
		}

		candidates = candidates[:0]
		gains = gains[:0]
		best := math.Inf(-1)
		for _, r := range touched {
			if external[r] < gamma*tot[r]*(parentTot[parent]-tot[r])/g.total {
				continue
			}
			gain := weightTo[r] - gamma*kv*tot[r]/g.total
			if gain <= gainEpsilon {
				continue
			}
			candidates = append(candidates, r)
			gains = append(gains, gain)
			if gain > best {
				best = gain
			}
		}

		if len(candidates) > 0 {
			target := candidates[draw(gains, best, theta, rng)]
			w := weightTo[target]

			external[target] += inParent[v] - 2*w
			tot[target] += kv
			size[target]++
			tot[rv] = 0
			size[rv] = 0
			external[rv] = 0
			refined[v] = target
		}

		for _, r := range touched {
			weightTo[r] = 0
		}
		touched = touched[:0]
	}
	return refined
}

// draw picks an index with probability proportional to exp((gain-best)/theta).
// Gains are in edge-weight units (the modularity gain times m), so theta
// scales against edge weights rather than against modularity.
func draw(gains []float64, best, theta float64, rng Rand) int {
	if len(gains) == 1 {
		return 0
	}
	weights := make([]float64, len(gains))
	sum := 0.0
	for i, g := range gains {
		weights[i] = math.Exp((g - best) / theta)
		sum += weights[i]
	}
	x := rng.Float64() * sum
	for i, w := range weights {
		x -= w
		if x < 0 {
			return i
		}
	}
	return len(weights) - 1
}
