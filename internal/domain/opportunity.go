package domain

import (
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Hop is one (pool, direction) step in an arbitrage path.
type Hop struct {
	Pool  solana.PublicKey `json:"pool"`
	Label string           `json:"label"`
	// AToB means the hop sells the pool's base token for its quote token.
	AToB bool `json:"a_to_b"`
	// Rate is the effective exchange rate after fees for this hop.
	Rate float64 `json:"rate"`
}

// Opportunity is a closed cycle whose product of effective rates exceeds 1.
// Derived per scan, never persisted.
type Opportunity struct {
	Path []Hop `json:"path"`
	// GrossRate is the product of per-hop rates after fees.
	GrossRate float64 `json:"gross_rate"`
	// ROI is (GrossRate - 1) * 100, in percent.
	ROI        float64          `json:"roi_percent"`
	StartMint  solana.PublicKey `json:"start_mint"`
	Source     string           `json:"source"`
	DetectedAt time.Time        `json:"detected_at"`
}

// Key returns a canonical identity for the cycle, invariant under rotation,
// so the same cycle found by both search tiers deduplicates to one entry.
func (o *Opportunity) Key() string {
	n := len(o.Path)
	if n == 0 {
		return ""
	}
	// Rotate so the lexicographically smallest hop leads.
	best := 0
	for i := 1; i < n; i++ {
		if hopLess(o.Path[i], o.Path[best]) {
			best = i
		}
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		h := o.Path[(best+i)%n]
		sb.WriteString(h.Pool.String())
		if h.AToB {
			sb.WriteByte('>')
		} else {
			sb.WriteByte('<')
		}
	}
	return sb.String()
}

func hopLess(a, b Hop) bool {
	cmp := strings.Compare(a.Pool.String(), b.Pool.String())
	if cmp != 0 {
		return cmp < 0
	}
	return a.AToB && !b.AToB
}
