package decoder

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	// tokenAccountSize is the canonical serialized SPL token account.
	tokenAccountSize = 165
	// tokenAccountShortSize is the truncated form some feeds emit when only
	// the mint and amount fields changed. The amount field cannot be trusted.
	tokenAccountShortSize = 72

	// tokenAccountAmountOffset is where the u64 amount sits in the canonical
	// layout (after mint and owner).
	tokenAccountAmountOffset = 64
)

// VaultError reports a vault account payload that matches no known token
// account layout. The caller counts it and keeps the previous balance.
type VaultError struct {
	Size int
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("vault payload size %d matches no token account layout", e.Size)
}

// ParseVaultBalance extracts the raw token amount from a vault account
// payload. ok=false means the payload was a recognized short form carrying no
// trustworthy amount; the caller skips the update without raising an anomaly.
func ParseVaultBalance(data []byte) (amount uint64, ok bool, err error) {
	switch {
	case len(data) >= tokenAccountSize:
		var acc token.Account
		if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
			return 0, false, fmt.Errorf("token account decode: %w", err)
		}
		return acc.Amount, true, nil
	case len(data) == tokenAccountShortSize:
		return 0, false, nil
	default:
		return 0, false, &VaultError{Size: len(data)}
	}
}
