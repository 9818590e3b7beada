package market

import (
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/decoder"
	"github.com/mdtrung/arb-engine/internal/domain"
)

const numShards = 16

// KnownBalance is a balance the ledger already held when a pool registered its
// vaults, handed back so the caller can apply it without waiting for a push.
type KnownBalance struct {
	Vault    solana.PublicKey
	IsVaultA bool
	Amount   uint64
	Slot     uint64
}

// VaultUpdateResult is the outcome of applying one vault push.
type VaultUpdateResult struct {
	Amount uint64
	Slot   uint64
	// Stale marks a delivery carrying an older slot than the stored balance.
	Stale bool
	// Unparsed marks the short payload form whose numeric layout is not
	// confirmed; dependent pools are deactivated instead of guessing.
	Unparsed bool
	// Pools is a copy of the reverse index entry at update time.
	Pools []domain.VaultInfo
}

type vaultEntry struct {
	pools     []domain.VaultInfo
	amount    uint64
	slot      uint64
	hasAmount bool
	rawShort  []byte
}

type vaultShard struct {
	mu     sync.RWMutex
	vaults map[solana.PublicKey]*vaultEntry
}

// VaultLedger tracks token vault balances and the reverse index from vault
// address to dependent pools. A vault may back more than one pool. Sharded by
// the first key byte to reduce lock contention; no method holds more than one
// shard lock, and no ledger lock is ever held while calling into the cache.
type VaultLedger struct {
	shards [numShards]vaultShard
}

func NewVaultLedger() *VaultLedger {
	l := &VaultLedger{}
	for i := range l.shards {
		l.shards[i].vaults = make(map[solana.PublicKey]*vaultEntry)
	}
	return l
}

func (l *VaultLedger) shard(key solana.PublicKey) *vaultShard {
	return &l.shards[key[0]%numShards]
}

// RegisterPoolVaults binds a pool to its two vaults. Idempotent: registering
// the same (pool, vault) pair twice never duplicates the reverse index entry.
// Returns the vault addresses seen for the first time (they still need a
// subscription) and any balances the ledger already held for these vaults.
func (l *VaultLedger) RegisterPoolVaults(pool, vaultA, vaultB solana.PublicKey) (added []solana.PublicKey, known []KnownBalance) {
	register := func(vault solana.PublicKey, isVaultA bool) {
		shard := l.shard(vault)
		shard.mu.Lock()
		entry, ok := shard.vaults[vault]
		if !ok {
			entry = &vaultEntry{}
			shard.vaults[vault] = entry
			added = append(added, vault)
		}
		if !containsVaultRef(entry.pools, pool, isVaultA) {
			entry.pools = append(entry.pools, domain.VaultInfo{PoolAddress: pool, IsVaultA: isVaultA})
		}
		if entry.hasAmount {
			known = append(known, KnownBalance{Vault: vault, IsVaultA: isVaultA, Amount: entry.amount, Slot: entry.slot})
		}
		shard.mu.Unlock()
	}
	register(vaultA, true)
	register(vaultB, false)
	return added, known
}

// UpdateVault parses a vault payload and stores the balance. An update for a
// vault with no registered pools is stored anyway so a later registration
// picks it up. Slots are monotonic per vault; older deliveries are dropped.
func (l *VaultLedger) UpdateVault(vault solana.PublicKey, data []byte, slot uint64) (VaultUpdateResult, error) {
	amount, parsed, err := decoder.ParseVaultBalance(data)
	if err != nil {
		return VaultUpdateResult{}, err
	}

	shard := l.shard(vault)
	shard.mu.Lock()
	entry, ok := shard.vaults[vault]
	if !ok {
		entry = &vaultEntry{}
		shard.vaults[vault] = entry
	}
	if !parsed {
		entry.rawShort = append(entry.rawShort[:0], data...)
		pools := slices.Clone(entry.pools)
		shard.mu.Unlock()
		return VaultUpdateResult{Unparsed: true, Pools: pools}, nil
	}
	if entry.hasAmount && slot < entry.slot {
		shard.mu.Unlock()
		return VaultUpdateResult{Stale: true}, nil
	}
	entry.amount = amount
	entry.slot = slot
	entry.hasAmount = true
	pools := slices.Clone(entry.pools)
	shard.mu.Unlock()

	return VaultUpdateResult{Amount: amount, Slot: slot, Pools: pools}, nil
}

// PoolsForVault returns a copy of the pools depending on a vault.
func (l *VaultLedger) PoolsForVault(vault solana.PublicKey) []domain.VaultInfo {
	shard := l.shard(vault)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	entry, ok := shard.vaults[vault]
	if !ok {
		return nil
	}
	return slices.Clone(entry.pools)
}

// IsRegistered reports whether the address is a known vault. Used by the
// subscription router, which checks the vault map before the pool map.
func (l *VaultLedger) IsRegistered(vault solana.PublicKey) bool {
	shard := l.shard(vault)
	shard.mu.RLock()
	_, ok := shard.vaults[vault]
	shard.mu.RUnlock()
	return ok
}

// Len returns the number of tracked vaults.
func (l *VaultLedger) Len() int {
	total := 0
	for i := range l.shards {
		l.shards[i].mu.RLock()
		total += len(l.shards[i].vaults)
		l.shards[i].mu.RUnlock()
	}
	return total
}

// Keys returns all tracked vault addresses.
func (l *VaultLedger) Keys() []solana.PublicKey {
	result := make([]solana.PublicKey, 0, l.Len())
	for i := range l.shards {
		l.shards[i].mu.RLock()
		for key := range l.shards[i].vaults {
			result = append(result, key)
		}
		l.shards[i].mu.RUnlock()
	}
	return result
}

func containsVaultRef(refs []domain.VaultInfo, pool solana.PublicKey, isVaultA bool) bool {
	for _, ref := range refs {
		if ref.PoolAddress == pool && ref.IsVaultA == isVaultA {
			return true
		}
	}
	return false
}
