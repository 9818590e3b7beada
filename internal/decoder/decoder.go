package decoder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

// DecodeError reports a pool account payload that could not be turned into a
// pool state. The caller logs it and keeps the previous cached state.
type DecodeError struct {
	Pool     solana.PublicKey
	PoolType domain.PoolType
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s pool %s: %s: %v", e.PoolType, e.Pool, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s pool %s: %s", e.PoolType, e.Pool, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode dispatches a raw account payload to the deserializer registered for
// the pool's configured type. The pool address is only used for error context.
func Decode(cfg domain.PoolConfig, data []byte) (domain.PoolState, error) {
	switch cfg.Type {
	case domain.PoolTypeAMM:
		return decodeAMM(cfg, data)
	case domain.PoolTypeCLMM:
		return decodeCLMM(cfg, data)
	case domain.PoolTypeDLMM:
		return decodeDLMM(cfg, data)
	case domain.PoolTypeCLOB:
		return decodeCLOB(cfg, data)
	default:
		return nil, &DecodeError{Pool: cfg.Address, PoolType: cfg.Type, Reason: "no deserializer registered"}
	}
}
