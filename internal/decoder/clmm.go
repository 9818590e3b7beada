package decoder

import (
	"bytes"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// CLMMAccountDiscriminator prefixes every concentrated-liquidity pool account.
var CLMMAccountDiscriminator = [8]byte{0xf7, 0xed, 0xe3, 0xf5, 0xd7, 0xc3, 0xde, 0x46}

const clmmStatusActive = 1

type clmmLayout struct {
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	SqrtPriceX64  bin.Uint128
	Liquidity     bin.Uint128
	TickCurrent   int32
	TickSpacing   uint16
	FeeRateBps    uint16
	BaseDecimals  uint8
	QuoteDecimals uint8
	Status        uint8
}

// CLMMState is a decoded concentrated-liquidity pool. The spot price comes
// from the Q64.64 square-root price; reserves live in external vaults.
type CLMMState struct {
	layout clmmLayout
}

func decodeCLMM(cfg domain.PoolConfig, data []byte) (domain.PoolState, error) {
	if len(data) < 8 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLMM, Reason: "short payload"}
	}
	if !bytes.Equal(data[:8], CLMMAccountDiscriminator[:]) {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLMM, Reason: "discriminator mismatch"}
	}
	var layout clmmLayout
	if err := bin.NewBinDecoder(data[8:]).Decode(&layout); err != nil {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLMM, Reason: "deserialize", Err: err}
	}
	if layout.BaseDecimals > 18 || layout.QuoteDecimals > 18 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLMM, Reason: "implausible decimals"}
	}
	return &CLMMState{layout: layout}, nil
}

func (s *CLMMState) Type() domain.PoolType { return domain.PoolTypeCLMM }

// Price squares the Q64.64 sqrt price and rescales by the mint decimals.
// A zero sqrt price means the pool has never been initialized with liquidity.
func (s *CLMMState) Price() float64 {
	sqrt, overflow := uint256.FromBig(s.layout.SqrtPriceX64.BigInt())
	if overflow || sqrt.IsZero() {
		return math.NaN()
	}
	sf := sqrt.Float64() / math.Exp2(64)
	raw := sf * sf
	return raw * math.Pow10(int(s.layout.BaseDecimals)-int(s.layout.QuoteDecimals))
}

func (s *CLMMState) Reserves() (uint64, uint64, bool) {
	return 0, 0, false
}

func (s *CLMMState) Decimals() (uint8, uint8) {
	return s.layout.BaseDecimals, s.layout.QuoteDecimals
}

func (s *CLMMState) Mints() (solana.PublicKey, solana.PublicKey) {
	return s.layout.BaseMint, s.layout.QuoteMint
}

func (s *CLMMState) VaultAddresses() (solana.PublicKey, solana.PublicKey, bool) {
	return s.layout.BaseVault, s.layout.QuoteVault, true
}

func (s *CLMMState) FeeBps() uint16 {
	return s.layout.FeeRateBps
}

func (s *CLMMState) IsActive() bool {
	return s.layout.Status == clmmStatusActive && s.layout.Liquidity.BigInt().Sign() > 0
}
