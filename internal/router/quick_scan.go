package router

import (
	"github.com/mdtrung/arb-engine/internal/common"
)

// Quick-scan bounds. The candidate set stays small so a pass through it is
// cheap enough to run on every trigger, ahead of the full graph search.
const (
	maxQuickCandidates = 512
	maxFanoutPerToken  = 8
)

// quickScanCycles enumerates 2 and 3 hop cycles anchored at the pivot mints
// and returns the profitable ones. Unlike the full search it checks each
// candidate's rate product directly, no relaxation involved.
func quickScanCycles(g *graph) [][]int {
	var cycles [][]int
	candidates := 0

	emit := func(cycle []int) bool {
		candidates++
		product := 1.0
		for _, ei := range cycle {
			product *= g.edges[ei].rate
		}
		if product > 1 {
			cycles = append(cycles, cycle)
		}
		return candidates < maxQuickCandidates
	}

	for _, pivot := range common.PivotMints {
		p, ok := g.mintIndex[pivot]
		if !ok {
			continue
		}
		for _, e1 := range fanout(g, p) {
			x := g.edges[e1].to
			for _, e2 := range fanout(g, x) {
				second := g.edges[e2]
				if second.to == p {
					// 2-hop: out and back through a different pool.
					if second.pool != g.edges[e1].pool {
						if !emit([]int{e1, e2}) {
							return cycles
						}
					}
					continue
				}
				for _, e3 := range fanout(g, second.to) {
					if g.edges[e3].to != p {
						continue
					}
					if !emit([]int{e1, e2, e3}) {
						return cycles
					}
				}
			}
		}
	}
	return cycles
}

// fanout returns up to maxFanoutPerToken outgoing edges, best rate first.
func fanout(g *graph, token int) []int {
	out := g.adj[token]
	if len(out) <= maxFanoutPerToken {
		return out
	}
	top := make([]int, len(out))
	copy(top, out)
	// Partial selection sort: only the first maxFanoutPerToken slots matter.
	for i := 0; i < maxFanoutPerToken; i++ {
		best := i
		for j := i + 1; j < len(top); j++ {
			if g.edges[top[j]].rate > g.edges[top[best]].rate {
				best = j
			}
		}
		top[i], top[best] = top[best], top[i]
	}
	return top[:maxFanoutPerToken]
}
