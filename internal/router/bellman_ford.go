package router

// bellmanFordCycles runs hop-bounded negative-cycle detection over the whole
// graph. All distances start at zero (an implicit source connected to every
// token), so any cycle whose weights sum below zero is reachable. maxHops
// bounds both the relaxation rounds and the length of any reported cycle,
// which bounds the runtime regardless of graph size.
func bellmanFordCycles(g *graph, maxHops int) [][]int {
	n := len(g.mints)
	if n == 0 || len(g.edges) == 0 {
		return nil
	}

	dist := make([]float64, n)
	predEdge := make([]int, n)
	for i := range predEdge {
		predEdge[i] = -1
	}

	relaxed := false
	for round := 0; round < maxHops; round++ {
		relaxed = false
		for ei, e := range g.edges {
			if d := dist[e.from] + e.weight; d < dist[e.to]-relaxEps {
				dist[e.to] = d
				predEdge[e.to] = ei
				relaxed = true
			}
		}
		if !relaxed {
			return nil
		}
	}

	// Tokens still relaxing after maxHops rounds sit on or downstream of a
	// negative cycle; walk predecessors to extract each distinct cycle once.
	seeds := make([]int, 0)
	for _, e := range g.edges {
		if dist[e.from]+e.weight < dist[e.to]-relaxEps {
			seeds = append(seeds, e.to)
		}
	}

	var cycles [][]int
	claimed := make([]bool, n)
	for _, seed := range seeds {
		cycle := extractCycle(g, predEdge, seed, maxHops, claimed)
		if cycle != nil {
			cycles = append(cycles, cycle)
		}
	}
	return cycles
}

const relaxEps = 1e-12

// extractCycle walks the predecessor chain from seed until a token repeats.
// claimed suppresses re-reporting the same cycle from multiple seeds.
func extractCycle(g *graph, predEdge []int, seed, maxHops int, claimed []bool) []int {
	// Step back enough times to be guaranteed inside the cycle.
	at := seed
	for i := 0; i < maxHops && predEdge[at] != -1; i++ {
		at = g.edges[predEdge[at]].from
	}
	if predEdge[at] == -1 || claimed[at] {
		return nil
	}

	var cycle []int
	token := at
	for {
		ei := predEdge[token]
		if ei == -1 || len(cycle) >= maxHops {
			return nil
		}
		cycle = append(cycle, ei)
		claimed[token] = true
		token = g.edges[ei].from
		if token == at {
			break
		}
	}

	// Predecessor walk yields edges tail-first; reverse into travel order.
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}
