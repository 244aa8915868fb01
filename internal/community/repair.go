package community

// repair splits every community into its connected components and renumbers
// the result 0..k-1 in order of each component's smallest node. The output is
// canonical: equal groupings always produce equal label slices.
func repair(g *Graph, part []int) []int {
	n := g.Len()
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}

	next := 0
	stack := make([]int, 0, 16)
	for start := 0; start < n; start++ {
		if out[start] >= 0 {
			continue
		}
		label := part[start]
		out[start] = next
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, a := range g.adj[v] {
				if out[a.to] < 0 && part[a.to] == label {
					out[a.to] = next
					stack = append(stack, a.to)
				}
			}
		}
		next++
	}
	return out
}
