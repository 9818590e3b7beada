package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/mdtrung/arb-engine/internal/metrics"
	"github.com/mdtrung/arb-engine/internal/stream"
)

const (
	backfillBatchSize    = 100
	backfillRetries      = 3
	backfillBatchTimeout = 30 * time.Second
)

// backfill seeds the cache before the first push updates arrive: all pool
// accounts first, then every vault those pools registered. A pool whose fetch
// fails stays inactive until its next push.
func (svc *Service) backfill(ctx context.Context) {
	start := time.Now()

	pools := make([]solana.PublicKey, 0, len(svc.poolConfigs))
	for addr := range svc.poolConfigs {
		pools = append(pools, addr)
	}
	svc.backfillAccounts(ctx, pools, "pools")

	// Pool decodes above populated the ledger; fetch what they registered.
	vaults := svc.ledger.Keys()
	svc.backfillAccounts(ctx, vaults, "vaults")

	metrics.BackfillDuration.Set(time.Since(start).Seconds())
	log.Info().
		Int("pools", len(pools)).
		Int("vaults", len(vaults)).
		Dur("took", time.Since(start)).
		Msg("[MarketService] initial backfill done")
}

func (svc *Service) backfillAccounts(ctx context.Context, addresses []solana.PublicKey, kind string) {
	if len(addresses) == 0 {
		return
	}

	totalBatches := (len(addresses) + backfillBatchSize - 1) / backfillBatchSize
	batches := make(chan []solana.PublicKey, totalBatches)
	for i := 0; i < len(addresses); i += backfillBatchSize {
		end := min(i+backfillBatchSize, len(addresses))
		batches <- addresses[i:end]
	}
	close(batches)

	workers := min(svc.cfg.BackfillWorkers, totalBatches)
	var failed atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				if ctx.Err() != nil {
					return
				}
				if !svc.backfillBatch(ctx, batch) {
					failed.Add(int64(len(batch)))
				}
			}
		}()
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		metrics.BackfillFailures.Add(float64(n))
		log.Warn().
			Str("kind", kind).
			Int64("failed", n).
			Msg("[MarketService] backfill left accounts unseeded")
	}
}

func (svc *Service) backfillBatch(ctx context.Context, batch []solana.PublicKey) bool {
	var out *rpc.GetMultipleAccountsResult
	var err error
	for retry := 0; retry < backfillRetries; retry++ {
		callCtx, cancel := context.WithTimeout(ctx, backfillBatchTimeout)
		out, err = svc.rpcClient.GetMultipleAccounts(callCtx, batch...)
		cancel()
		if err == nil && out != nil && out.Value != nil {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(100*(retry+1)) * time.Millisecond):
		}
	}
	if err != nil || out == nil || out.Value == nil {
		log.Warn().Err(err).Int("batch", len(batch)).Msg("[MarketService] backfill batch failed")
		return false
	}

	slot := out.RPCContext.Context.Slot
	for i, info := range out.Value {
		if info == nil {
			continue
		}
		data := info.Data.GetBinary()
		if len(data) == 0 {
			continue
		}
		svc.route(stream.AccountUpdate{Account: batch[i], Data: data, Slot: slot})
	}
	return true
}
