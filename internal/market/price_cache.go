package market

import (
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// PoolMeta is the slow-moving pool identity captured from the first successful
// deserialization and refreshed on every state replacement.
type PoolMeta struct {
	Config        domain.PoolConfig
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
	FeeBps        uint16
	// VaultFed marks pools whose reserves arrive through vault pushes.
	VaultFed bool
}

// PoolView is a copied-out cache entry, safe to use without any lock.
type PoolView struct {
	Meta  PoolMeta
	Point domain.PricePoint
}

// ApplyResult is the atomically-decided outcome of one pool state update.
// The trigger decision is made under the same lock as the write, so a reader
// can never observe the price without its trigger outcome existing.
type ApplyResult struct {
	Applied   bool
	Stale     bool
	Inactive  bool
	First     bool
	ChangePct float64
	Trigger   bool
}

// VaultApplyResult is the outcome of folding one vault balance into a pool.
type VaultApplyResult struct {
	Applied bool
	Stale   bool
	NoPool  bool
}

type poolEntry struct {
	meta     PoolMeta
	hasMeta  bool
	point    domain.PricePoint
	hasPoint bool
}

// PriceCache is the authoritative pool price/reserve map. One RWMutex guards
// the whole cache; writes are brief (a single entry) and reads copy out.
// Lock order with the vault ledger: never hold both, release before calling.
type PriceCache struct {
	mu           sync.RWMutex
	pools        map[solana.PublicKey]*poolEntry
	maxSlot      uint64
	thresholdPct float64
	epsilon      float64
}

func NewPriceCache(thresholdPct, epsilon float64) *PriceCache {
	return &PriceCache{
		pools:        make(map[solana.PublicKey]*poolEntry),
		thresholdPct: thresholdPct,
		epsilon:      epsilon,
	}
}

// ApplyPoolState replaces a pool's state wholesale and decides the trigger
// outcome for the update. Change filter rules:
//   - first usable observation: change 100%, forced trigger
//   - new == old exactly: change 0%, never a trigger
//   - |new-old| below epsilon: treated as a first real reading, change 100%,
//     forced trigger
//   - otherwise: |new-old|/old*100, trigger at the configured threshold
//
// A non-finite or non-positive price marks the pool inactive instead of being
// cached as a valid price.
func (c *PriceCache) ApplyPoolState(cfg domain.PoolConfig, state domain.PoolState, slot uint64) ApplyResult {
	price := state.Price()
	baseDec, quoteDec := state.Decimals()
	baseMint, quoteMint := state.Mints()
	_, _, vaultFed := state.VaultAddresses()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pools[cfg.Address]
	if !ok {
		entry = &poolEntry{}
		c.pools[cfg.Address] = entry
	}
	if entry.hasPoint && slot < entry.point.Slot {
		return ApplyResult{Stale: true}
	}
	if slot > c.maxSlot {
		c.maxSlot = slot
	}

	entry.meta = PoolMeta{
		Config:        cfg,
		BaseMint:      baseMint,
		QuoteMint:     quoteMint,
		BaseDecimals:  baseDec,
		QuoteDecimals: quoteDec,
		FeeBps:        state.FeeBps(),
		VaultFed:      vaultFed,
	}
	entry.hasMeta = true

	prev := entry.point
	hadUsablePrev := entry.hasPoint && prev.Usable()

	point := domain.PricePoint{
		Price:      price,
		Slot:       slot,
		ObservedAt: time.Now(),
		Active:     state.IsActive() && priceValid(price),
	}
	if base, quote, inline := state.Reserves(); inline {
		point.BaseReserve, point.QuoteReserve = base, quote
	} else {
		point.BaseReserve, point.QuoteReserve = prev.BaseReserve, prev.QuoteReserve
	}
	entry.point = point
	entry.hasPoint = true

	if !point.Active {
		return ApplyResult{Applied: true, Inactive: true}
	}

	switch {
	case !hadUsablePrev:
		return ApplyResult{Applied: true, First: true, ChangePct: 100, Trigger: true}
	case price == prev.Price:
		return ApplyResult{Applied: true}
	case math.Abs(price-prev.Price) < c.epsilon:
		return ApplyResult{Applied: true, ChangePct: 100, Trigger: true}
	default:
		changePct := math.Abs(price-prev.Price) / prev.Price * 100
		return ApplyResult{Applied: true, ChangePct: changePct, Trigger: changePct >= c.thresholdPct}
	}
}

// ApplyVaultBalance folds a vault balance into one side of a pool's reserves.
// The price itself only moves on pool state updates, so no trigger decision is
// needed here; the slot and timestamp still advance for freshness accounting.
func (c *PriceCache) ApplyVaultBalance(pool solana.PublicKey, isVaultA bool, amount, slot uint64) VaultApplyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pools[pool]
	if !ok || !entry.hasPoint {
		return VaultApplyResult{NoPool: true}
	}
	if slot < entry.point.Slot {
		return VaultApplyResult{Stale: true}
	}
	if isVaultA {
		entry.point.BaseReserve = amount
	} else {
		entry.point.QuoteReserve = amount
	}
	entry.point.Slot = slot
	entry.point.ObservedAt = time.Now()
	if slot > c.maxSlot {
		c.maxSlot = slot
	}
	return VaultApplyResult{Applied: true}
}

// MarkInactive flips a pool's active flag without touching its last price.
// Used when a pool payload fails to deserialize or a vault payload is an
// unconfirmed short form.
func (c *PriceCache) MarkInactive(pool solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.pools[pool]; ok {
		entry.point.Active = false
	}
}

// Get copies out one entry.
func (c *PriceCache) Get(pool solana.PublicKey) (PoolView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.pools[pool]
	if !ok || !entry.hasMeta {
		return PoolView{}, false
	}
	return PoolView{Meta: entry.meta, Point: entry.point}, true
}

// Snapshot copies the full cache. Scans work from the snapshot so in-flight
// price updates never block behind a running search.
func (c *PriceCache) Snapshot() map[solana.PublicKey]PoolView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[solana.PublicKey]PoolView, len(c.pools))
	for addr, entry := range c.pools {
		if !entry.hasMeta {
			continue
		}
		out[addr] = PoolView{Meta: entry.meta, Point: entry.point}
	}
	return out
}

// Len returns the number of cached pools.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools)
}

// MaxSlot returns the highest slot observed across all updates.
func (c *PriceCache) MaxSlot() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxSlot
}

func priceValid(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}
