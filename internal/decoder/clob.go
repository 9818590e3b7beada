package decoder

import (
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

const (
	clobSideBid = 0
	clobSideAsk = 1

	clobStatusActive = 1

	// clobHeaderSize is the fixed market header; levels follow as a
	// u32 count plus count entries of clobLevelSize bytes.
	clobHeaderSize = 149
	clobLevelSize  = 17
)

type clobHeader struct {
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	BaseLotSize   uint64
	QuoteLotSize  uint64
	FeeBps        uint16
	BaseDecimals  uint8
	QuoteDecimals uint8
	Status        uint8
}

type clobLevel struct {
	Side      uint8
	PriceLots uint64
	SizeLots  uint64
}

// CLOBState is a decoded order-book market. The spot price is the midpoint of
// the best bid and best ask; a header-only payload is valid but unpriced until
// a snapshot with levels arrives.
type CLOBState struct {
	header clobHeader
	levels []clobLevel
}

func decodeCLOB(cfg domain.PoolConfig, data []byte) (domain.PoolState, error) {
	if len(data) < clobHeaderSize {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "short payload"}
	}
	dec := bin.NewBinDecoder(data)
	var header clobHeader
	if err := dec.Decode(&header); err != nil {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "deserialize header", Err: err}
	}
	if header.BaseLotSize == 0 || header.QuoteLotSize == 0 {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "zero lot size"}
	}

	state := &CLOBState{header: header}
	if len(data) == clobHeaderSize {
		return state, nil
	}

	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "read level count", Err: err}
	}
	if dec.Remaining() != int(count)*clobLevelSize {
		return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "truncated levels"}
	}
	state.levels = make([]clobLevel, 0, count)
	for i := uint32(0); i < count; i++ {
		var lvl clobLevel
		if err := dec.Decode(&lvl); err != nil {
			return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "deserialize level", Err: err}
		}
		if lvl.Side != clobSideBid && lvl.Side != clobSideAsk {
			return nil, &DecodeError{Pool: cfg.Address, PoolType: domain.PoolTypeCLOB, Reason: "unknown level side"}
		}
		state.levels = append(state.levels, lvl)
	}
	return state, nil
}

func (s *CLOBState) Type() domain.PoolType { return domain.PoolTypeCLOB }

// Price is the bid/ask midpoint. NaN until both sides of the book are seen.
func (s *CLOBState) Price() float64 {
	var bestBid, bestAsk uint64
	for _, lvl := range s.levels {
		switch lvl.Side {
		case clobSideBid:
			if lvl.PriceLots > bestBid {
				bestBid = lvl.PriceLots
			}
		case clobSideAsk:
			if bestAsk == 0 || lvl.PriceLots < bestAsk {
				bestAsk = lvl.PriceLots
			}
		}
	}
	if bestBid == 0 || bestAsk == 0 {
		return math.NaN()
	}
	mid := (float64(bestBid) + float64(bestAsk)) / 2
	raw := mid * float64(s.header.QuoteLotSize) / float64(s.header.BaseLotSize)
	return raw * math.Pow10(int(s.header.BaseDecimals)-int(s.header.QuoteDecimals))
}

func (s *CLOBState) Reserves() (uint64, uint64, bool) {
	return 0, 0, false
}

func (s *CLOBState) Decimals() (uint8, uint8) {
	return s.header.BaseDecimals, s.header.QuoteDecimals
}

func (s *CLOBState) Mints() (solana.PublicKey, solana.PublicKey) {
	return s.header.BaseMint, s.header.QuoteMint
}

func (s *CLOBState) VaultAddresses() (solana.PublicKey, solana.PublicKey, bool) {
	return s.header.BaseVault, s.header.QuoteVault, true
}

func (s *CLOBState) FeeBps() uint16 {
	return s.header.FeeBps
}

func (s *CLOBState) IsActive() bool {
	return s.header.Status == clobStatusActive
}
