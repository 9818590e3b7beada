package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdtrung/arb-engine/internal/domain"
)

func writePoolFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPoolFile(t *testing.T) {
	path := writePoolFile(t, `[
		{"address": "So11111111111111111111111111111111111111112", "label": "SOL/USDC amm", "type": "amm"},
		{"address": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "label": "SOL/USDC clmm", "type": "clmm"},
		{"address": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", "label": "SOL/USDT book", "type": "clob"}
	]`)

	pools, err := LoadPoolFile(path)
	require.NoError(t, err)
	require.Len(t, pools, 3)

	assert.Equal(t, "SOL/USDC amm", pools[0].Label)
	assert.Equal(t, domain.PoolTypeAMM, pools[0].Type)
	assert.Equal(t, domain.PoolTypeCLMM, pools[1].Type)
	assert.Equal(t, domain.PoolTypeCLOB, pools[2].Type)
	assert.Equal(t, "So11111111111111111111111111111111111111112", pools[0].Address.String())
}

func TestLoadPoolFileRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "bad address",
			content: `[{"address": "not-base58!", "label": "x", "type": "amm"}]`,
			errPart: "bad address",
		},
		{
			name:    "unknown variant tag",
			content: `[{"address": "So11111111111111111111111111111111111111112", "label": "x", "type": "stableswap"}]`,
			errPart: "unknown pool variant",
		},
		{
			name: "duplicate address",
			content: `[
				{"address": "So11111111111111111111111111111111111111112", "label": "a", "type": "amm"},
				{"address": "So11111111111111111111111111111111111111112", "label": "b", "type": "clmm"}
			]`,
			errPart: "duplicate address",
		},
		{
			name:    "malformed json",
			content: `{"address":`,
			errPart: "parse pool file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePoolFile(t, tt.content)
			_, err := LoadPoolFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadPoolFileMissing(t *testing.T) {
	_, err := LoadPoolFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
