package router

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/mdtrung/arb-engine/internal/config"
	"github.com/mdtrung/arb-engine/internal/domain"
	"github.com/mdtrung/arb-engine/internal/market"
	"github.com/mdtrung/arb-engine/internal/metrics"
)

const (
	SourceQuickScan   = "quick_scan"
	SourceBellmanFord = "bellman_ford"
)

// ScanResult is the outcome of one full scan pass.
type ScanResult struct {
	Opportunities []domain.Opportunity     `json:"opportunities"`
	Consistency   market.ConsistencyReport `json:"consistency"`
	Cause         string                   `json:"cause"`
	Duration      time.Duration            `json:"duration_ns"`
	ScannedAt     time.Time                `json:"scanned_at"`
}

// Market is the read-only cache surface the router scans.
type Market interface {
	Snapshot() map[solana.PublicKey]market.PoolView
	Consistency() market.ConsistencyReport
	Triggers() <-chan market.TriggerEvent
}

// Router consumes triggers from the market service and searches the cache
// snapshot for profitable cycles: a quick pass over pivot-anchored 2-3 hop
// candidates, then a hop-bounded negative-cycle search over the full graph.
// It reads the cache, never writes it.
type Router struct {
	cfg *config.EngineConfig
	svc Market

	// scanMu serializes scan passes; triggers arriving mid-scan coalesce in
	// the service's buffered trigger channel.
	scanMu sync.Mutex
	latest atomic.Pointer[ScanResult]
}

func NewRouter(cfg *config.EngineConfig, svc Market) *Router {
	return &Router{cfg: cfg, svc: svc}
}

// Run scans on every trigger until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	log.Info().
		Int("max_hops", r.cfg.MaxHops).
		Float64("min_roi_pct", r.cfg.MinROIPct).
		Msg("[Router] scan loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.svc.Triggers():
			if !ok {
				return nil
			}
			result := r.Scan(ev.Cause, r.cfg.MinROIPct)
			if n := len(result.Opportunities); n > 0 {
				log.Info().
					Int("opportunities", n).
					Float64("best_roi_pct", result.Opportunities[0].ROI).
					Str("cause", ev.Cause).
					Str("pool", ev.Pool.String()).
					Dur("took", result.Duration).
					Msg("[Router] scan found opportunities")
			}
		}
	}
}

// Scan runs one pass and publishes the ranked result. Safe for concurrent
// callers; passes are serialized.
func (r *Router) Scan(cause string, minROIPct float64) ScanResult {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	start := time.Now()

	report := r.svc.Consistency()
	if report.Degraded {
		metrics.DegradedScans.Inc()
		log.Warn().
			Float64("score", report.Score).
			Int("fresh", report.FreshPools).
			Int("active", report.ActivePools).
			Msg("[Router] scanning below freshness floor, best effort only")
	}

	g := buildGraph(r.svc.Snapshot())

	quickStart := time.Now()
	quick := quickScanCycles(g)
	metrics.ScanDuration.WithLabelValues("quick").Observe(time.Since(quickStart).Seconds())

	bfStart := time.Now()
	full := bellmanFordCycles(g, r.cfg.MaxHops)
	metrics.ScanDuration.WithLabelValues("bellman_ford").Observe(time.Since(bfStart).Seconds())

	merged := r.merge(g, quick, full, minROIPct)

	result := ScanResult{
		Opportunities: merged,
		Consistency:   report,
		Cause:         cause,
		Duration:      time.Since(start),
		ScannedAt:     start,
	}
	r.latest.Store(&result)

	metrics.ScanDuration.WithLabelValues("total").Observe(result.Duration.Seconds())
	metrics.OpportunitiesFound.Observe(float64(len(merged)))
	if len(merged) > 0 {
		metrics.BestROI.Set(merged[0].ROI)
	} else {
		metrics.BestROI.Set(0)
	}
	return result
}

// merge deduplicates cycles found by both tiers (canonical rotation identity,
// higher ROI wins), drops results under the ROI floor, and ranks the rest by
// ROI descending with fewer hops breaking ties.
func (r *Router) merge(g *graph, quick, full [][]int, minROIPct float64) []domain.Opportunity {
	now := time.Now()
	byKey := make(map[string]domain.Opportunity)

	collect := func(cycles [][]int, source string) {
		for _, cycle := range cycles {
			opp, ok := g.opportunityFromCycle(cycle, source)
			if !ok || opp.ROI < minROIPct {
				continue
			}
			opp.DetectedAt = now
			key := opp.Key()
			if existing, dup := byKey[key]; dup && existing.ROI >= opp.ROI {
				continue
			}
			byKey[key] = opp
		}
	}
	collect(quick, SourceQuickScan)
	collect(full, SourceBellmanFord)

	ranked := make([]domain.Opportunity, 0, len(byKey))
	for _, opp := range byKey {
		ranked = append(ranked, opp)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ROI != ranked[j].ROI {
			return ranked[i].ROI > ranked[j].ROI
		}
		return len(ranked[i].Path) < len(ranked[j].Path)
	})
	if len(ranked) > r.cfg.MaxOpportunities && r.cfg.MaxOpportunities > 0 {
		ranked = ranked[:r.cfg.MaxOpportunities]
	}
	return ranked
}

// MinROIPct returns the configured default ROI floor.
func (r *Router) MinROIPct() float64 { return r.cfg.MinROIPct }

// Latest returns the most recent scan result, or ok=false before any scan.
func (r *Router) Latest() (ScanResult, bool) {
	if result := r.latest.Load(); result != nil {
		return *result, true
	}
	return ScanResult{}, false
}
