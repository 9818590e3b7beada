package router

import (
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdtrung/arb-engine/internal/common"
	"github.com/mdtrung/arb-engine/internal/config"
	"github.com/mdtrung/arb-engine/internal/domain"
	"github.com/mdtrung/arb-engine/internal/market"
)

var (
	mintSOL = common.WSOLMint
	mintB   = solana.PublicKey{0xB1}
	mintC   = solana.PublicKey{0xC1}
)

type fakeMarket struct {
	snapshot map[solana.PublicKey]market.PoolView
	report   market.ConsistencyReport
	triggers chan market.TriggerEvent
}

func (f *fakeMarket) Snapshot() map[solana.PublicKey]market.PoolView { return f.snapshot }
func (f *fakeMarket) Consistency() market.ConsistencyReport          { return f.report }
func (f *fakeMarket) Triggers() <-chan market.TriggerEvent           { return f.triggers }

func poolView(addr byte, label string, base, quote solana.PublicKey, price float64, feeBps uint16) (solana.PublicKey, market.PoolView) {
	pool := solana.PublicKey{addr}
	return pool, market.PoolView{
		Meta: market.PoolMeta{
			Config:    domain.PoolConfig{Address: pool, Label: label, Type: domain.PoolTypeAMM},
			BaseMint:  base,
			QuoteMint: quote,
			FeeBps:    feeBps,
		},
		Point: domain.PricePoint{
			Price:      price,
			Slot:       100,
			ObservedAt: time.Now(),
			Active:     true,
		},
	}
}

func routerConfig() *config.EngineConfig {
	return &config.EngineConfig{
		TriggerThresholdPct: 0.05,
		PriceEpsilon:        1e-12,
		SlotWindow:          32,
		MinFreshPct:         60,
		MaxHops:             4,
		MinROIPct:           0.1,
		MaxOpportunities:    50,
	}
}

// triangularSnapshot prices SOL/B at 2, B/C at 3 and SOL/C at 5.7, so the
// cycle SOL -> B -> C -> SOL multiplies to 6/5.7 before fees.
func triangularSnapshot(feeBps uint16) map[solana.PublicKey]market.PoolView {
	snapshot := make(map[solana.PublicKey]market.PoolView)
	for _, p := range []struct {
		addr        byte
		label       string
		base, quote solana.PublicKey
		price       float64
	}{
		{0x01, "amm/SOL-B", mintSOL, mintB, 2.0},
		{0x02, "amm/B-C", mintB, mintC, 3.0},
		{0x03, "amm/SOL-C", mintSOL, mintC, 5.7},
	} {
		addr, view := poolView(p.addr, p.label, p.base, p.quote, p.price, feeBps)
		snapshot[addr] = view
	}
	return snapshot
}

func expectedTriangularROI(feeBps uint16) float64 {
	keep := 1 - float64(feeBps)/10_000
	return (2.0*3.0/5.7*math.Pow(keep, 3) - 1) * 100
}

func TestScanFindsTriangularCycle(t *testing.T) {
	fm := &fakeMarket{snapshot: triangularSnapshot(30)}
	r := NewRouter(routerConfig(), fm)

	result := r.Scan("test", 0.1)
	require.NotEmpty(t, result.Opportunities)

	best := result.Opportunities[0]
	assert.Len(t, best.Path, 3)
	assert.InDelta(t, expectedTriangularROI(30), best.ROI, 1e-6)

	// Both tiers find the same cycle; it must appear exactly once.
	assert.Len(t, result.Opportunities, 1)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, result.Opportunities, latest.Opportunities)
}

func TestScanHighFeeKillsTheCycle(t *testing.T) {
	// 6/5.7 is ~5.26% gross; 200 bps per hop costs ~5.9% and closes it.
	fm := &fakeMarket{snapshot: triangularSnapshot(200)}
	r := NewRouter(routerConfig(), fm)

	result := r.Scan("test", 0.1)
	assert.Empty(t, result.Opportunities)
}

func TestScanROIFloorFilters(t *testing.T) {
	fm := &fakeMarket{snapshot: triangularSnapshot(30)}
	r := NewRouter(routerConfig(), fm)

	roi := expectedTriangularROI(30)
	result := r.Scan("test", roi+1)
	assert.Empty(t, result.Opportunities)

	result = r.Scan("test", roi-1)
	assert.Len(t, result.Opportunities, 1)
}

func TestScanIgnoresUnusablePools(t *testing.T) {
	snapshot := triangularSnapshot(30)

	// Deactivate the B/C leg; the cycle must disappear.
	view := snapshot[solana.PublicKey{0x02}]
	view.Point.Active = false
	snapshot[solana.PublicKey{0x02}] = view

	fm := &fakeMarket{snapshot: snapshot}
	result := NewRouter(routerConfig(), fm).Scan("test", 0.1)
	assert.Empty(t, result.Opportunities)
}

func TestScanTwoHopCycle(t *testing.T) {
	// Two SOL/B pools priced apart: buy cheap, sell dear.
	snapshot := make(map[solana.PublicKey]market.PoolView)
	for _, p := range []struct {
		addr  byte
		price float64
	}{{0x01, 2.0}, {0x02, 2.1}} {
		addr, view := poolView(p.addr, "amm/SOL-B", mintSOL, mintB, p.price, 10)
		snapshot[addr] = view
	}

	fm := &fakeMarket{snapshot: snapshot}
	result := NewRouter(routerConfig(), fm).Scan("test", 0.1)
	require.NotEmpty(t, result.Opportunities)

	best := result.Opportunities[0]
	assert.Len(t, best.Path, 2)
	expected := (2.1 / 2.0 * math.Pow(0.999, 2) - 1) * 100
	assert.InDelta(t, expected, best.ROI, 1e-6)
}

func TestScanRankingROIDescThenFewerHops(t *testing.T) {
	snapshot := triangularSnapshot(30)

	// Add a fatter 2-hop cycle on an unrelated pair.
	mintD := solana.PublicKey{0xD1}
	for _, p := range []struct {
		addr  byte
		price float64
	}{{0x11, 1.0}, {0x12, 1.2}} {
		addr, view := poolView(p.addr, "amm/SOL-D", mintSOL, mintD, p.price, 10)
		snapshot[addr] = view
	}

	fm := &fakeMarket{snapshot: snapshot}
	result := NewRouter(routerConfig(), fm).Scan("test", 0.1)
	require.GreaterOrEqual(t, len(result.Opportunities), 2)

	assert.Len(t, result.Opportunities[0].Path, 2, "the ~19.7% 2-hop outranks the ~4.3% 3-hop")
	for i := 1; i < len(result.Opportunities); i++ {
		assert.GreaterOrEqual(t, result.Opportunities[i-1].ROI, result.Opportunities[i].ROI)
	}
}

func TestScanDegradedModeStillScans(t *testing.T) {
	fm := &fakeMarket{
		snapshot: triangularSnapshot(30),
		report:   market.ConsistencyReport{Degraded: true, Score: 20},
	}
	result := NewRouter(routerConfig(), fm).Scan("test", 0.1)

	assert.True(t, result.Consistency.Degraded)
	assert.NotEmpty(t, result.Opportunities, "degraded mode is best effort, not a halt")
}

func TestScanEmptySnapshot(t *testing.T) {
	fm := &fakeMarket{snapshot: map[solana.PublicKey]market.PoolView{}}
	result := NewRouter(routerConfig(), fm).Scan("test", 0.1)
	assert.Empty(t, result.Opportunities)
}

func TestOpportunityKeyRotationInvariant(t *testing.T) {
	hops := []domain.Hop{
		{Pool: solana.PublicKey{0x03}, AToB: false},
		{Pool: solana.PublicKey{0x01}, AToB: true},
		{Pool: solana.PublicKey{0x02}, AToB: true},
	}
	a := domain.Opportunity{Path: hops}
	b := domain.Opportunity{Path: append(hops[1:], hops[0])}
	assert.Equal(t, a.Key(), b.Key(), "rotations of one cycle share an identity")

	flipped := []domain.Hop{
		{Pool: solana.PublicKey{0x03}, AToB: true},
		{Pool: solana.PublicKey{0x01}, AToB: true},
		{Pool: solana.PublicKey{0x02}, AToB: true},
	}
	c := domain.Opportunity{Path: flipped}
	assert.NotEqual(t, a.Key(), c.Key(), "direction is part of the identity")
}

func TestBellmanFordHopBound(t *testing.T) {
	// A profitable 4-hop ring; with MaxHops 3 it must stay invisible to the
	// full search (and it has no pivot anchor for the quick scan).
	m1, m2, m3, m4 := solana.PublicKey{0xE1}, solana.PublicKey{0xE2}, solana.PublicKey{0xE3}, solana.PublicKey{0xE4}
	snapshot := make(map[solana.PublicKey]market.PoolView)
	for _, p := range []struct {
		addr        byte
		base, quote solana.PublicKey
		price       float64
	}{
		{0x21, m1, m2, 2.0},
		{0x22, m2, m3, 2.0},
		{0x23, m3, m4, 2.0},
		{0x24, m1, m4, 7.0}, // m4 -> m1 leg via the reverse direction
	} {
		addr, view := poolView(p.addr, "amm/ring", p.base, p.quote, p.price, 0)
		snapshot[addr] = view
	}

	cfg := routerConfig()
	cfg.MaxHops = 3
	result := NewRouter(cfg, &fakeMarket{snapshot: snapshot}).Scan("test", 0.1)
	assert.Empty(t, result.Opportunities)

	cfg4 := routerConfig()
	cfg4.MaxHops = 4
	result = NewRouter(cfg4, &fakeMarket{snapshot: snapshot}).Scan("test", 0.1)
	require.NotEmpty(t, result.Opportunities)
	assert.Len(t, result.Opportunities[0].Path, 4)
	assert.InDelta(t, (8.0/7.0-1)*100, result.Opportunities[0].ROI, 1e-6)
}

func TestBellmanFordSyntheticCycleROI(t *testing.T) {
	// Edge rates 100.0, 1.01 and 0.0103 multiply to 1.0403. None of the mints
	// are pivots, so only the full search can see the cycle.
	mintX, mintY, mintZ := solana.PublicKey{0xD1}, solana.PublicKey{0xD2}, solana.PublicKey{0xD3}
	snapshot := make(map[solana.PublicKey]market.PoolView)
	for _, p := range []struct {
		addr        byte
		label       string
		base, quote solana.PublicKey
		price       float64
	}{
		{0x31, "amm/X-Y", mintX, mintY, 100.0},
		{0x32, "amm/Y-Z", mintY, mintZ, 1.01},
		{0x33, "amm/Z-X", mintZ, mintX, 0.0103},
	} {
		addr, view := poolView(p.addr, p.label, p.base, p.quote, p.price, 0)
		snapshot[addr] = view
	}

	r := NewRouter(routerConfig(), &fakeMarket{snapshot: snapshot})
	result := r.Scan(market.TriggerCauseManual, 0.01)

	require.Len(t, result.Opportunities, 1)
	opp := result.Opportunities[0]
	assert.Equal(t, SourceBellmanFord, opp.Source)
	assert.Len(t, opp.Path, 3)
	assert.InDelta(t, 4.03, opp.ROI, 0.001)
}
