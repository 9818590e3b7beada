package config

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"

	"github.com/mdtrung/arb-engine/internal/domain"
)

type poolDescriptor struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	Type    string `json:"type"`
}

// LoadPoolFile reads a JSON array of pool descriptors and resolves each into a
// typed PoolConfig. A bad address or unknown type tag fails the whole load so a
// typo in the descriptor file is caught at startup, not at decode time.
func LoadPoolFile(path string) ([]domain.PoolConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool file %s: %w", path, err)
	}

	var descriptors []poolDescriptor
	if err := sonic.Unmarshal(raw, &descriptors); err != nil {
		return nil, fmt.Errorf("parse pool file %s: %w", path, err)
	}

	seen := make(map[solana.PublicKey]struct{}, len(descriptors))
	pools := make([]domain.PoolConfig, 0, len(descriptors))
	for i, d := range descriptors {
		addr, err := solana.PublicKeyFromBase58(d.Address)
		if err != nil {
			return nil, fmt.Errorf("pool file entry %d (%q): bad address: %w", i, d.Label, err)
		}
		poolType, err := domain.ParsePoolType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("pool file entry %d (%q): %w", i, d.Label, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("pool file entry %d (%q): duplicate address %s", i, d.Label, d.Address)
		}
		seen[addr] = struct{}{}
		pools = append(pools, domain.PoolConfig{
			Address: addr,
			Label:   d.Label,
			Type:    poolType,
		})
	}
	return pools, nil
}
