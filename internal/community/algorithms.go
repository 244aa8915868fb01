package community

import "context"

// maxLevels bounds the aggregation depth. Each level shrinks the graph, so
// this is only reached on pathological inputs.
const maxLevels = 64

// louvain runs local moving and aggregation until a full local-moving pass
// moves nothing. It returns the partition of the original nodes.
func louvain(ctx context.Context, g *Graph, gamma float64, rng Rand) ([]int, error) {
	membership := singletons(g.Len())
	level := g
	comm := singletons(level.Len())

	for depth := 0; depth < maxLevels; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !louvainMove(level, comm, gamma, rng) {
			break
		}
		next, mapping := aggregate(level, comm)
		for i, node := range membership {
			membership[i] = mapping[node]
		}
		level = next
		comm = singletons(level.Len())
	}

	return project(membership, comm), nil
}

// leiden runs fast local moving, refinement, connectivity repair and
// aggregation on the refined partition, seeding each aggregate level with the
// unrefined communities.
func leiden(ctx context.Context, g *Graph, gamma, theta float64, rng Rand) ([]int, error) {
	membership := singletons(g.Len())
	level := g
	comm := singletons(level.Len())

	for depth := 0; depth < maxLevels; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fastMove(level, comm, gamma, rng)
		if countCommunities(comm) == level.Len() {
			break
		}

		refined := repair(level, refine(level, comm, gamma, theta, rng))
		if countCommunities(refined) == level.Len() {
			// Nothing merged during refinement; contract the moved
			// communities directly so the next level still shrinks.
			refined = comm
		}

		next, mapping := aggregate(level, refined)
		nextComm := make([]int, next.Len())
		for i, super := range mapping {
			nextComm[super] = comm[i]
		}
		nextComm, _ = relabel(nextComm)

		for i, node := range membership {
			membership[i] = mapping[node]
		}
		level = next
		comm = nextComm
	}

	return project(membership, comm), nil
}

// project maps each original node through its super-node to a community.
func project(membership, comm []int) []int {
	part := make([]int, len(membership))
	for i, node := range membership {
		part[i] = comm[node]
	}
	return part
}
