package router

import (
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
	"github.com/mdtrung/arb-engine/internal/market"
)

// edge is one directed swap through a pool at the snapshot's price.
// weight is -log(rate) so a negative-weight cycle is a profitable cycle.
type edge struct {
	from   int
	to     int
	pool   solana.PublicKey
	label  string
	aToB   bool
	rate   float64
	weight float64
}

// graph is an immutable token graph built from one cache snapshot. Scans own
// their graph exclusively; the cache keeps mutating underneath without
// affecting a pass in flight.
type graph struct {
	mints     []solana.PublicKey
	mintIndex map[solana.PublicKey]int
	edges     []edge
	adj       [][]int
}

// buildGraph indexes every usable pool view into directed edges. Pools whose
// PricePoint is inactive or unpriced contribute nothing.
func buildGraph(snapshot map[solana.PublicKey]market.PoolView) *graph {
	g := &graph{
		mintIndex: make(map[solana.PublicKey]int, len(snapshot)*2),
	}

	index := func(mint solana.PublicKey) int {
		if i, ok := g.mintIndex[mint]; ok {
			return i
		}
		i := len(g.mints)
		g.mints = append(g.mints, mint)
		g.mintIndex[mint] = i
		g.adj = append(g.adj, nil)
		return i
	}

	for addr, view := range snapshot {
		if !view.Point.Usable() {
			continue
		}
		price := view.Point.Price
		feeKeep := 1 - float64(view.Meta.FeeBps)/10_000
		if feeKeep <= 0 {
			continue
		}

		base := index(view.Meta.BaseMint)
		quote := index(view.Meta.QuoteMint)
		if base == quote {
			continue
		}

		g.addEdge(edge{
			from: base, to: quote,
			pool: addr, label: view.Meta.Config.Label,
			aToB: true,
			rate: price * feeKeep,
		})
		g.addEdge(edge{
			from: quote, to: base,
			pool: addr, label: view.Meta.Config.Label,
			aToB: false,
			rate: (1 / price) * feeKeep,
		})
	}
	return g
}

func (g *graph) addEdge(e edge) {
	e.weight = -math.Log(e.rate)
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.adj[e.from] = append(g.adj[e.from], idx)
}

// opportunityFromCycle turns a closed edge sequence into a ranked result.
// Returns ok=false when the cycle is not actually profitable, which happens
// when float drift in the weight domain disagrees with the rate product.
func (g *graph) opportunityFromCycle(cycle []int, source string) (domain.Opportunity, bool) {
	if len(cycle) == 0 {
		return domain.Opportunity{}, false
	}
	gross := 1.0
	path := make([]domain.Hop, 0, len(cycle))
	for _, ei := range cycle {
		e := g.edges[ei]
		gross *= e.rate
		path = append(path, domain.Hop{
			Pool:  e.pool,
			Label: e.label,
			AToB:  e.aToB,
			Rate:  e.rate,
		})
	}
	if gross <= 1 || math.IsInf(gross, 0) || math.IsNaN(gross) {
		return domain.Opportunity{}, false
	}
	return domain.Opportunity{
		Path:      path,
		GrossRate: gross,
		ROI:       (gross - 1) * 100,
		StartMint: g.mints[g.edges[cycle[0]].from],
		Source:    source,
	}, true
}
