package decoder

import (
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// ammAccountSize is the fixed serialized size of a constant-product pool account.
const ammAccountSize = 192

const ammStatusActive = 1

type ammLayout struct {
	Status             uint64
	Nonce              uint64
	BaseDecimals       uint64
	QuoteDecimals      uint64
	BaseReserve        uint64
	QuoteReserve       uint64
	SwapFeeNumerator   uint64
	SwapFeeDenominator uint64
	BaseMint           solana.PublicKey
	QuoteMint          solana.PublicKey
	BaseVault          solana.PublicKey
	QuoteVault         solana.PublicKey
}

// AMMState is a decoded constant-product pool. Reserves are carried inline in
// the account, so the spot price is derivable without any vault lookups.
type AMMState struct {
	layout ammLayout
}

func decodeAMM(cfg domain.PoolConfig, data []byte) (domain.PoolState, error) {
	if len(data) != ammAccountSize {
		return nil, &DecodeError{
			Pool:     cfg.Address,
			PoolType: domain.PoolTypeAMM,
			Reason:   "unexpected account size",
		}
	}
	var layout ammLayout
	if err := bin.NewBinDecoder(data).Decode(&layout); err != nil {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeAMM, Reason: "deserialize", Err: err}
	}
	if layout.BaseDecimals > 18 || layout.QuoteDecimals > 18 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeAMM, Reason: "implausible decimals"}
	}
	if layout.SwapFeeDenominator == 0 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeAMM, Reason: "zero fee denominator"}
	}
	return &AMMState{layout: layout}, nil
}

func (s *AMMState) Type() domain.PoolType { return domain.PoolTypeAMM }

func (s *AMMState) Price() float64 {
	if s.layout.BaseReserve == 0 {
		return math.NaN()
	}
	base := float64(s.layout.BaseReserve) / math.Pow10(int(s.layout.BaseDecimals))
	quote := float64(s.layout.QuoteReserve) / math.Pow10(int(s.layout.QuoteDecimals))
	return quote / base
}

func (s *AMMState) Reserves() (uint64, uint64, bool) {
	return s.layout.BaseReserve, s.layout.QuoteReserve, true
}

func (s *AMMState) Decimals() (uint8, uint8) {
	return uint8(s.layout.BaseDecimals), uint8(s.layout.QuoteDecimals)
}

func (s *AMMState) Mints() (solana.PublicKey, solana.PublicKey) {
	return s.layout.BaseMint, s.layout.QuoteMint
}

// VaultAddresses reports ok=false: the reserves are inline, so the vaults do
// not need to be tracked for pricing.
func (s *AMMState) VaultAddresses() (solana.PublicKey, solana.PublicKey, bool) {
	return s.layout.BaseVault, s.layout.QuoteVault, false
}

func (s *AMMState) FeeBps() uint16 {
	return uint16(s.layout.SwapFeeNumerator * 10_000 / s.layout.SwapFeeDenominator)
}

func (s *AMMState) IsActive() bool {
	return s.layout.Status == ammStatusActive
}
