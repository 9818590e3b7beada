package market

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdtrung/arb-engine/internal/decoder"
)

func tokenAccountBytes(amount uint64) []byte {
	data := make([]byte, 165)
	binary.LittleEndian.PutUint64(data[64:], amount)
	return data
}

func TestRegisterPoolVaultsIdempotent(t *testing.T) {
	ledger := NewVaultLedger()
	pool := solana.PublicKey{1}
	vaultA, vaultB := solana.PublicKey{10}, solana.PublicKey{11}

	added, known := ledger.RegisterPoolVaults(pool, vaultA, vaultB)
	assert.Len(t, added, 2)
	assert.Empty(t, known)

	added, known = ledger.RegisterPoolVaults(pool, vaultA, vaultB)
	assert.Empty(t, added, "re-registration must not re-subscribe")
	assert.Empty(t, known)

	assert.Len(t, ledger.PoolsForVault(vaultA), 1)
	assert.Equal(t, 2, ledger.Len())
}

func TestSharedVaultReverseIndexIsASet(t *testing.T) {
	ledger := NewVaultLedger()
	shared := solana.PublicKey{10}

	ledger.RegisterPoolVaults(solana.PublicKey{1}, shared, solana.PublicKey{11})
	ledger.RegisterPoolVaults(solana.PublicKey{2}, shared, solana.PublicKey{12})

	refs := ledger.PoolsForVault(shared)
	require.Len(t, refs, 2)
	assert.NotEqual(t, refs[0].PoolAddress, refs[1].PoolAddress)
}

func TestUpdateVaultFanout(t *testing.T) {
	ledger := NewVaultLedger()
	shared := solana.PublicKey{10}
	ledger.RegisterPoolVaults(solana.PublicKey{1}, shared, solana.PublicKey{11})
	ledger.RegisterPoolVaults(solana.PublicKey{2}, shared, solana.PublicKey{12})

	res, err := ledger.UpdateVault(shared, tokenAccountBytes(777), 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), res.Amount)
	assert.Len(t, res.Pools, 2, "one update fans out to every dependent pool")
}

func TestUpdateVaultSlotMonotonic(t *testing.T) {
	ledger := NewVaultLedger()
	vault := solana.PublicKey{10}
	ledger.RegisterPoolVaults(solana.PublicKey{1}, vault, solana.PublicKey{11})

	_, err := ledger.UpdateVault(vault, tokenAccountBytes(100), 50)
	require.NoError(t, err)

	res, err := ledger.UpdateVault(vault, tokenAccountBytes(999), 49)
	require.NoError(t, err)
	assert.True(t, res.Stale)
}

func TestEarlyVaultUpdateRetained(t *testing.T) {
	ledger := NewVaultLedger()
	vault := solana.PublicKey{10}

	// Balance arrives before any pool registered the vault: stored, no fanout.
	res, err := ledger.UpdateVault(vault, tokenAccountBytes(4242), 80)
	require.NoError(t, err)
	assert.Empty(t, res.Pools)

	// Registration picks the retained balance up without a fresh push.
	_, known := ledger.RegisterPoolVaults(solana.PublicKey{1}, vault, solana.PublicKey{11})
	require.Len(t, known, 1)
	assert.Equal(t, uint64(4242), known[0].Amount)
	assert.Equal(t, uint64(80), known[0].Slot)
	assert.True(t, known[0].IsVaultA)
}

func TestUpdateVaultShortFormUnparsed(t *testing.T) {
	ledger := NewVaultLedger()
	vault := solana.PublicKey{10}
	ledger.RegisterPoolVaults(solana.PublicKey{1}, vault, solana.PublicKey{11})

	res, err := ledger.UpdateVault(vault, make([]byte, 72), 100)
	require.NoError(t, err)
	assert.True(t, res.Unparsed)
	assert.Len(t, res.Pools, 1)

	// The short form must not clobber a previously parsed balance.
	_, err = ledger.UpdateVault(vault, tokenAccountBytes(100), 101)
	require.NoError(t, err)
	res, err = ledger.UpdateVault(vault, make([]byte, 72), 102)
	require.NoError(t, err)
	assert.True(t, res.Unparsed)

	_, known := ledger.RegisterPoolVaults(solana.PublicKey{2}, vault, solana.PublicKey{12})
	require.NotEmpty(t, known)
	assert.Equal(t, uint64(100), known[0].Amount)
}

func TestUpdateVaultBadPayload(t *testing.T) {
	ledger := NewVaultLedger()
	_, err := ledger.UpdateVault(solana.PublicKey{10}, make([]byte, 33), 100)
	var ve *decoder.VaultError
	require.ErrorAs(t, err, &ve)
}

func TestVaultUpdateOnlyReachesDependentPools(t *testing.T) {
	ledger := NewVaultLedger()
	pool1, pool2 := solana.PublicKey{1}, solana.PublicKey{2}
	ledger.RegisterPoolVaults(pool1, solana.PublicKey{10}, solana.PublicKey{11})
	ledger.RegisterPoolVaults(pool2, solana.PublicKey{20}, solana.PublicKey{21})

	res, err := ledger.UpdateVault(solana.PublicKey{10}, tokenAccountBytes(555), 50)
	require.NoError(t, err)
	require.Len(t, res.Pools, 1)
	assert.Equal(t, pool1, res.Pools[0].PoolAddress)
	assert.True(t, res.Pools[0].IsVaultA)
}
