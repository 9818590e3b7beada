package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
)

type PoolType uint8

const (
	PoolTypeAMM  PoolType = iota // constant-product AMM, reserves held inline
	PoolTypeCLMM                 // concentrated liquidity, price from sqrt-price
	PoolTypeDLMM                 // dynamic liquidity bins, price from active bin
	PoolTypeCLOB                 // central limit order book, price from best bid/ask
)

func (p PoolType) String() string {
	switch p {
	case PoolTypeAMM:
		return "AMM"
	case PoolTypeCLMM:
		return "CLMM"
	case PoolTypeDLMM:
		return "DLMM"
	case PoolTypeCLOB:
		return "CLOB"
	default:
		return "UNKNOWN"
	}
}

// ParsePoolType maps the variant tag used in the pool descriptor file.
func ParsePoolType(tag string) (PoolType, error) {
	switch tag {
	case "amm":
		return PoolTypeAMM, nil
	case "clmm":
		return PoolTypeCLMM, nil
	case "dlmm":
		return PoolTypeDLMM, nil
	case "clob":
		return PoolTypeCLOB, nil
	default:
		return 0, fmt.Errorf("unknown pool variant tag: %q", tag)
	}
}

// PoolConfig is a static pool descriptor loaded once at startup.
type PoolConfig struct {
	Address solana.PublicKey
	Label   string
	Type    PoolType
}

// PoolState is the uniform view over a deserialized pool account.
// Implementations are immutable; each account update produces a fresh value.
type PoolState interface {
	Type() PoolType

	// Price returns quote units per base unit, adjusted for decimals.
	// NaN means the price is unknown (e.g. header-only order-book parse).
	Price() float64

	// Reserves returns inline reserves in native units. Variants that keep
	// reserves in external vaults return (0, 0, false).
	Reserves() (base, quote uint64, inline bool)

	Decimals() (base, quote uint8)
	Mints() (base, quote solana.PublicKey)

	// VaultAddresses returns the external token vaults backing this pool,
	// or ok=false for variants whose reserves are fully inline.
	VaultAddresses() (vaultA, vaultB solana.PublicKey, ok bool)

	// FeeBps is the swap fee in basis points.
	FeeBps() uint16

	IsActive() bool
}

// VaultInfo links a vault account back to a dependent pool.
type VaultInfo struct {
	PoolAddress solana.PublicKey
	IsVaultA    bool
}

// PricePoint is the cached per-pool price/reserve observation.
type PricePoint struct {
	Price        float64
	BaseReserve  uint64
	QuoteReserve uint64
	Slot         uint64
	ObservedAt   time.Time
	Active       bool
}

// Usable reports whether the point may feed the routing graph.
func (p PricePoint) Usable() bool {
	return p.Active && p.Price > 0 && !math.IsInf(p.Price, 0) && !math.IsNaN(p.Price)
}
