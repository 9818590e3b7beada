package decoder

import (
	"bytes"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// DLMMAccountDiscriminator prefixes every bin-liquidity pool account.
var DLMMAccountDiscriminator = [8]byte{0x21, 0x4f, 0x8a, 0x03, 0x5e, 0xc1, 0x9b, 0xd2}

const dlmmStatusActive = 1

type dlmmLayout struct {
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	ActiveBinID   int32
	BinStep       uint16
	BaseFeeBps    uint16
	BaseDecimals  uint8
	QuoteDecimals uint8
	Status        uint8
}

// DLMMState is a decoded bin-liquidity pool. Each bin holds a fixed price
// that compounds by binStep basis points per bin id; the active bin sets the
// spot price. Reserves live in external vaults.
type DLMMState struct {
	layout dlmmLayout
}

func decodeDLMM(cfg domain.PoolConfig, data []byte) (domain.PoolState, error) {
	if len(data) < 8 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeDLMM, Reason: "short payload"}
	}
	if !bytes.Equal(data[:8], DLMMAccountDiscriminator[:]) {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeDLMM, Reason: "discriminator mismatch"}
	}
	var layout dlmmLayout
	if err := bin.NewBinDecoder(data[8:]).Decode(&layout); err != nil {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeDLMM, Reason: "deserialize", Err: err}
	}
	if layout.BinStep == 0 || layout.BinStep > 10_000 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeDLMM, Reason: "bin step out of range"}
	}
	if layout.BaseDecimals > 18 || layout.QuoteDecimals > 18 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeDLMM, Reason: "implausible decimals"}
	}
	return &DLMMState{layout: layout}, nil
}

func (s *DLMMState) Type() domain.PoolType { return domain.PoolTypeDLMM }

// Price is (1 + binStep/10000)^activeBin rescaled by the mint decimals.
func (s *DLMMState) Price() float64 {
	perBin := 1 + float64(s.layout.BinStep)/10_000
	raw := math.Pow(perBin, float64(s.layout.ActiveBinID))
	return raw * math.Pow10(int(s.layout.BaseDecimals)-int(s.layout.QuoteDecimals))
}

func (s *DLMMState) Reserves() (uint64, uint64, bool) {
	return 0, 0, false
}

func (s *DLMMState) Decimals() (uint8, uint8) {
	return s.layout.BaseDecimals, s.layout.QuoteDecimals
}

func (s *DLMMState) Mints() (solana.PublicKey, solana.PublicKey) {
	return s.layout.BaseMint, s.layout.QuoteMint
}

func (s *DLMMState) VaultAddresses() (solana.PublicKey, solana.PublicKey, bool) {
	return s.layout.BaseVault, s.layout.QuoteVault, true
}

func (s *DLMMState) FeeBps() uint16 {
	return s.layout.BaseFeeBps
}

func (s *DLMMState) IsActive() bool {
	return s.layout.Status == dlmmStatusActive
}
