package market

// ConsistencyReport describes how much of the cache is fresh enough to scan.
// A pool is fresh when its slot is within the window of the max observed slot.
type ConsistencyReport struct {
	TotalPools  int     `json:"total_pools"`
	ActivePools int     `json:"active_pools"`
	FreshPools  int     `json:"fresh_pools"`
	MaxSlot     uint64  `json:"max_slot"`
	AvgLagSlots float64 `json:"avg_lag_slots"`
	// Score is fresh/total as a percentage.
	Score float64 `json:"score"`
	// Degraded means the score fell below the configured minimum; scans
	// still run best-effort but results carry this flag.
	Degraded bool `json:"degraded"`
	// LagHistogram buckets active pools by slot lag behind MaxSlot.
	LagHistogram map[string]int `json:"lag_histogram"`
}

var lagBuckets = []struct {
	label string
	max   uint64
}{
	{"0-8", 8},
	{"9-32", 32},
	{"33-128", 128},
	{">128", ^uint64(0)},
}

// Consistency computes the freshness report in a single read-lock scope.
func (c *PriceCache) Consistency(window uint64, minFreshPct float64) ConsistencyReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := ConsistencyReport{
		TotalPools:   len(c.pools),
		MaxSlot:      c.maxSlot,
		LagHistogram: make(map[string]int, len(lagBuckets)),
	}
	for _, b := range lagBuckets {
		report.LagHistogram[b.label] = 0
	}

	var lagSum uint64
	for _, entry := range c.pools {
		if !entry.hasPoint || !entry.point.Active {
			continue
		}
		report.ActivePools++
		lag := c.maxSlot - entry.point.Slot
		lagSum += lag
		if lag <= window {
			report.FreshPools++
		}
		for _, b := range lagBuckets {
			if lag <= b.max {
				report.LagHistogram[b.label]++
				break
			}
		}
	}

	if report.ActivePools > 0 {
		report.AvgLagSlots = float64(lagSum) / float64(report.ActivePools)
	}
	if report.TotalPools == 0 {
		report.Degraded = true
		return report
	}
	report.Score = float64(report.FreshPools) / float64(report.TotalPools) * 100
	report.Degraded = report.Score < minFreshPct
	return report
}
