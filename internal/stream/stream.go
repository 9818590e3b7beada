package stream

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountUpdate is one observed account write, identified only by the account
// address. Classifying the address (pool, vault, unknown) is the consumer's job.
type AccountUpdate struct {
	Account solana.PublicKey
	Data    []byte
	Slot    uint64
}

// AccountStream pushes updates for the subscribed account set into Updates
// until the context is cancelled. Implementations own reconnection and must
// re-subscribe the full set after a reconnect.
type AccountStream interface {
	Updates() <-chan AccountUpdate
	// Subscribe adds accounts to the tracked set. Safe to call before and
	// after Run; already-tracked accounts are ignored.
	Subscribe(accounts ...solana.PublicKey) error
	Run(ctx context.Context) error
}
