package market

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// stubState is a minimal vault-fed pool state with a settable price.
type stubState struct {
	price    float64
	active   bool
	inline   bool
	reserves [2]uint64
}

func (s *stubState) Type() domain.PoolType { return domain.PoolTypeCLMM }
func (s *stubState) Price() float64        { return s.price }
func (s *stubState) Reserves() (uint64, uint64, bool) {
	return s.reserves[0], s.reserves[1], s.inline
}
func (s *stubState) Decimals() (uint8, uint8) { return 9, 6 }
func (s *stubState) Mints() (solana.PublicKey, solana.PublicKey) {
	return solana.PublicKey{1}, solana.PublicKey{2}
}
func (s *stubState) VaultAddresses() (solana.PublicKey, solana.PublicKey, bool) {
	return solana.PublicKey{3}, solana.PublicKey{4}, !s.inline
}
func (s *stubState) FeeBps() uint16 { return 30 }
func (s *stubState) IsActive() bool { return s.active }

func testPool(b byte) domain.PoolConfig {
	return domain.PoolConfig{Address: solana.PublicKey{b}, Label: "test", Type: domain.PoolTypeCLMM}
}

func TestChangeFilterFirstObservationForcesTrigger(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)

	res := cache.ApplyPoolState(testPool(1), &stubState{price: 150, active: true}, 100)
	require.True(t, res.Applied)
	assert.True(t, res.First)
	assert.True(t, res.Trigger)
	assert.Equal(t, 100.0, res.ChangePct)
}

func TestChangeFilterExactEqualNeverTriggers(t *testing.T) {
	cache := NewPriceCache(0.0, 1e-12) // even a zero threshold must not fire
	cache.ApplyPoolState(testPool(1), &stubState{price: 150, active: true}, 100)

	res := cache.ApplyPoolState(testPool(1), &stubState{price: 150, active: true}, 101)
	require.True(t, res.Applied)
	assert.Equal(t, 0.0, res.ChangePct)
	assert.False(t, res.Trigger)
}

func TestChangeFilterThreshold(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)
	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 100)

	// 0.04% move stays quiet.
	res := cache.ApplyPoolState(testPool(1), &stubState{price: 100.04, active: true}, 101)
	assert.InDelta(t, 0.04, res.ChangePct, 1e-9)
	assert.False(t, res.Trigger)

	// 0.06% from the new baseline fires.
	res = cache.ApplyPoolState(testPool(1), &stubState{price: 100.04 * 1.0006, active: true}, 102)
	assert.InDelta(t, 0.06, res.ChangePct, 1e-9)
	assert.True(t, res.Trigger)
}

func TestChangeFilterSubEpsilonDeltaForcesTrigger(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-9)
	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 100)

	// A delta smaller than epsilon is a first real reading after an
	// effectively identical seed, not a vanishing relative move.
	res := cache.ApplyPoolState(testPool(1), &stubState{price: 100 + 1e-10, active: true}, 101)
	assert.Equal(t, 100.0, res.ChangePct)
	assert.True(t, res.Trigger)

	// At or above epsilon the relative computation takes over.
	res = cache.ApplyPoolState(testPool(1), &stubState{price: 100 + 1e-10 + 2e-9, active: true}, 102)
	assert.False(t, res.Trigger)
	assert.InDelta(t, 2e-9/100*100, res.ChangePct, 1e-12)
}

func TestSlotMonotonicity(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)
	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 200)

	// A late delivery with an older slot never overwrites.
	res := cache.ApplyPoolState(testPool(1), &stubState{price: 999, active: true}, 199)
	assert.True(t, res.Stale)
	assert.False(t, res.Trigger)

	view, ok := cache.Get(solana.PublicKey{1})
	require.True(t, ok)
	assert.Equal(t, 100.0, view.Point.Price)
	assert.Equal(t, uint64(200), view.Point.Slot)

	// Same slot is not stale: replays of the current slot may carry newer data.
	res = cache.ApplyPoolState(testPool(1), &stubState{price: 101, active: true}, 200)
	assert.True(t, res.Applied)
}

func TestInvalidPriceMarksInactive(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)

	for _, price := range []float64{math.NaN(), math.Inf(1), -2, 0} {
		res := cache.ApplyPoolState(testPool(1), &stubState{price: price, active: true}, 100)
		require.True(t, res.Applied)
		assert.True(t, res.Inactive)
		assert.False(t, res.Trigger)

		view, ok := cache.Get(solana.PublicKey{1})
		require.True(t, ok)
		assert.False(t, view.Point.Usable())
	}
}

func TestMarkInactiveKeepsLastPrice(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)
	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 100)

	cache.MarkInactive(solana.PublicKey{1})

	view, ok := cache.Get(solana.PublicKey{1})
	require.True(t, ok)
	assert.False(t, view.Point.Active)
	assert.Equal(t, 100.0, view.Point.Price, "stale price is retained, just unusable")
}

func TestApplyVaultBalance(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)

	// No pool state yet: the balance has nowhere to land.
	res := cache.ApplyVaultBalance(solana.PublicKey{1}, true, 500, 101)
	assert.True(t, res.NoPool)

	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 100)

	res = cache.ApplyVaultBalance(solana.PublicKey{1}, true, 500, 101)
	require.True(t, res.Applied)
	res = cache.ApplyVaultBalance(solana.PublicKey{1}, false, 900, 102)
	require.True(t, res.Applied)

	view, _ := cache.Get(solana.PublicKey{1})
	assert.Equal(t, uint64(500), view.Point.BaseReserve)
	assert.Equal(t, uint64(900), view.Point.QuoteReserve)
	assert.Equal(t, uint64(102), view.Point.Slot)

	// Stale vault delivery is dropped.
	res = cache.ApplyVaultBalance(solana.PublicKey{1}, true, 1, 90)
	assert.True(t, res.Stale)
	view, _ = cache.Get(solana.PublicKey{1})
	assert.Equal(t, uint64(500), view.Point.BaseReserve)
}

func TestPoolStateKeepsVaultReserves(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)
	cache.ApplyPoolState(testPool(1), &stubState{price: 100, active: true}, 100)
	cache.ApplyVaultBalance(solana.PublicKey{1}, true, 500, 101)

	// A vault-fed pool state replacement must not zero the reserves.
	cache.ApplyPoolState(testPool(1), &stubState{price: 101, active: true}, 102)
	view, _ := cache.Get(solana.PublicKey{1})
	assert.Equal(t, uint64(500), view.Point.BaseReserve)
}

func TestConsistencyReport(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)

	cache.ApplyPoolState(testPool(1), &stubState{price: 1, active: true}, 1000) // fresh
	cache.ApplyPoolState(testPool(2), &stubState{price: 1, active: true}, 990)  // fresh (lag 10 <= 32)
	cache.ApplyPoolState(testPool(3), &stubState{price: 1, active: true}, 800)  // stale (lag 200)
	cache.ApplyPoolState(testPool(4), &stubState{price: 1, active: false}, 999) // inactive, not counted

	report := cache.Consistency(32, 40)
	assert.Equal(t, 4, report.TotalPools)
	assert.Equal(t, 3, report.ActivePools)
	assert.Equal(t, 2, report.FreshPools)
	assert.Equal(t, uint64(1000), report.MaxSlot)
	// The inactive pool still counts in the denominator: 2 fresh of 4 total.
	assert.InDelta(t, 50.0, report.Score, 0.01)
	assert.False(t, report.Degraded)
	assert.Equal(t, 1, report.LagHistogram[">128"])

	report = cache.Consistency(32, 60)
	assert.True(t, report.Degraded, "score 50 is below a 60 percent floor")
}

func TestConsistencyEmptyCacheIsDegraded(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)
	report := cache.Consistency(32, 60)
	assert.True(t, report.Degraded)
	assert.Equal(t, 0.0, report.Score)
}

func TestConsistencyScoreFraction(t *testing.T) {
	cache := NewPriceCache(0.05, 1e-12)

	for i := 0; i < 27; i++ {
		slot := uint64(900) // lag 100, beyond the window
		if i < 7 {
			slot = 1000
		}
		cache.ApplyPoolState(testPool(byte(i+1)), &stubState{price: 1, active: true}, slot)
	}

	report := cache.Consistency(32, 60)
	assert.Equal(t, 27, report.ActivePools)
	assert.Equal(t, 7, report.FreshPools)
	assert.InDelta(t, 25.9, report.Score, 0.05)
	assert.True(t, report.Degraded)
}
