package config

import (
	"errors"

	"github.com/mdtrung/arb-engine/internal/common"
)

type EngineConfig struct {
	// PoolFile is the path to the JSON descriptor file listing tracked pools.
	// Default: "./pools.json"
	PoolFile string

	// TriggerThresholdPct is the minimum absolute price change (percent) that
	// triggers a scan. Default: 0.05
	TriggerThresholdPct float64

	// PriceEpsilon is the price delta below which consecutive observations
	// count as the first real reading, forcing a trigger instead of a
	// vanishing change percent. Default: 1e-12
	PriceEpsilon float64

	// SlotWindow is how far behind the max observed slot a pool may be and
	// still count as fresh. Default: 32
	SlotWindow uint64

	// MinFreshPct is the consistency score below which scans are marked
	// degraded. Default: 60
	MinFreshPct float64

	// MaxHops bounds the cycle length explored by the negative-cycle search.
	// Default: 4
	MaxHops int

	// MinROIPct is the minimum net ROI (percent) an opportunity must clear to
	// be reported. Default: 0.1
	MinROIPct float64

	// BackfillWorkers is the concurrency of the initial vault backfill.
	// Default: 20
	BackfillWorkers int

	// MaxOpportunities caps the ranked result list per scan. Default: 50
	MaxOpportunities int
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.PoolFile = common.GetEnvOrDefault("ENGINE_POOL_FILE", "./pools.json")
	c.TriggerThresholdPct = common.GetEnvOrDefaultFloat("ENGINE_TRIGGER_THRESHOLD_PCT", 0.05)
	c.PriceEpsilon = common.GetEnvOrDefaultFloat("ENGINE_PRICE_EPSILON", 1e-12)
	c.SlotWindow = uint64(common.GetEnvOrDefaultInt("ENGINE_SLOT_WINDOW", 32))
	c.MinFreshPct = common.GetEnvOrDefaultFloat("ENGINE_MIN_FRESH_PCT", 60)
	c.MaxHops = common.GetEnvOrDefaultInt("ENGINE_MAX_HOPS", 4)
	c.MinROIPct = common.GetEnvOrDefaultFloat("ENGINE_MIN_ROI_PCT", 0.1)
	c.BackfillWorkers = common.GetEnvOrDefaultInt("ENGINE_BACKFILL_WORKERS", 20)
	c.MaxOpportunities = common.GetEnvOrDefaultInt("ENGINE_MAX_OPPORTUNITIES", 50)
	return c.Validate()
}

func (c *EngineConfig) Validate() error {
	if c.PoolFile == "" {
		return errors.New("engine config: pool file path is empty")
	}
	if c.TriggerThresholdPct < 0 {
		return errors.New("engine config: trigger threshold must be >= 0")
	}
	if c.PriceEpsilon <= 0 {
		return errors.New("engine config: price epsilon must be > 0")
	}
	if c.MaxHops < 2 {
		return errors.New("engine config: max hops must be >= 2")
	}
	if c.BackfillWorkers < 1 {
		return errors.New("engine config: backfill workers must be >= 1")
	}
	return nil
}
