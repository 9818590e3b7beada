package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/mdtrung/arb-engine/internal/config"
	"github.com/mdtrung/arb-engine/internal/decoder"
	"github.com/mdtrung/arb-engine/internal/domain"
	"github.com/mdtrung/arb-engine/internal/metrics"
	"github.com/mdtrung/arb-engine/internal/stream"
)

// TriggerEvent is pushed to the scan loop when a price update clears the
// change threshold.
type TriggerEvent struct {
	Pool      solana.PublicKey
	ChangePct float64
	Cause     string
}

const (
	TriggerCauseFirstPrice  = "first_price"
	TriggerCausePriceChange = "price_change"
	TriggerCauseManual      = "manual"
)

// clobDecodeWorkers sizes the pool for order-book snapshot decoding, the only
// variant whose payloads are large enough to be worth taking off the
// ingestion goroutine.
const clobDecodeWorkers = 4

// ServiceStats is a point-in-time diagnostic snapshot for logs and the API.
type ServiceStats struct {
	Pools        int    `json:"pools"`
	Vaults       int    `json:"vaults"`
	PoolUpdates  uint64 `json:"pool_updates"`
	VaultUpdates uint64 `json:"vault_updates"`
	Anomalies    uint64 `json:"routing_anomalies"`
}

// Service owns ingestion: it routes every account update to the vault ledger
// or the price cache, discovers vault dependencies lazily, and emits scan
// triggers. All cache writes happen on the ingestion goroutine except
// order-book decodes, which are offloaded; slot monotonicity in the cache
// makes that reordering safe.
type Service struct {
	cfg         *config.EngineConfig
	rpcClient   *rpc.Client
	accStream   stream.AccountStream
	cache       *PriceCache
	ledger      *VaultLedger
	poolConfigs map[solana.PublicKey]domain.PoolConfig

	pendingVaults   []solana.PublicKey
	pendingVaultsMu sync.Mutex

	clobPool *ants.Pool

	triggerCh chan TriggerEvent

	poolUpdateCount  atomic.Uint64
	vaultUpdateCount atomic.Uint64
	anomalyCount     atomic.Uint64
}

func NewService(cfg *config.EngineConfig, rpcClient *rpc.Client, accStream stream.AccountStream, pools []domain.PoolConfig) (*Service, error) {
	clobPool, err := ants.NewPool(clobDecodeWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	poolConfigs := make(map[solana.PublicKey]domain.PoolConfig, len(pools))
	for _, p := range pools {
		poolConfigs[p.Address] = p
	}

	svc := &Service{
		cfg:         cfg,
		rpcClient:   rpcClient,
		accStream:   accStream,
		cache:       NewPriceCache(cfg.TriggerThresholdPct, cfg.PriceEpsilon),
		ledger:      NewVaultLedger(),
		poolConfigs: poolConfigs,
		clobPool:    clobPool,
		triggerCh:   make(chan TriggerEvent, 1),
	}
	metrics.PoolCount.Set(float64(len(pools)))
	return svc, nil
}

func (svc *Service) Cache() *PriceCache   { return svc.cache }
func (svc *Service) Ledger() *VaultLedger { return svc.ledger }

// Triggers delivers at most one pending trigger; bursts coalesce into the
// buffered slot, so one scan pass covers them all.
func (svc *Service) Triggers() <-chan TriggerEvent { return svc.triggerCh }

// Run subscribes the configured pools, backfills initial state in the
// background, and routes stream updates until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	defer svc.clobPool.Release()

	poolAddrs := make([]solana.PublicKey, 0, len(svc.poolConfigs))
	for addr := range svc.poolConfigs {
		poolAddrs = append(poolAddrs, addr)
	}
	if err := svc.accStream.Subscribe(poolAddrs...); err != nil {
		return err
	}

	go svc.backfill(ctx)
	go svc.processPendingVaults(ctx)
	go svc.processStats(ctx)

	log.Info().
		Int("pools", len(poolAddrs)).
		Msg("[MarketService] ingestion started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-svc.accStream.Updates():
			if !ok {
				return nil
			}
			svc.route(update)
		}
	}
}

// route is the subscription router. The vault map is checked before the pool
// map; an address known to neither is a routing anomaly, counted and
// discarded, never fatal.
func (svc *Service) route(update stream.AccountUpdate) {
	if svc.ledger.IsRegistered(update.Account) {
		svc.handleVaultUpdate(update.Account, update.Data, update.Slot)
		return
	}
	if cfg, ok := svc.poolConfigs[update.Account]; ok {
		svc.handlePoolUpdate(cfg, update.Data, update.Slot)
		return
	}
	svc.anomalyCount.Add(1)
	metrics.UnroutedUpdates.Inc()
	log.Debug().
		Str("account", update.Account.String()).
		Uint64("slot", update.Slot).
		Msg("[MarketService] update for unregistered account")
}

func (svc *Service) handlePoolUpdate(cfg domain.PoolConfig, data []byte, slot uint64) {
	if cfg.Type == domain.PoolTypeCLOB {
		if err := svc.clobPool.Submit(func() { svc.decodeAndApply(cfg, data, slot) }); err == nil {
			return
		}
		// Worker pool saturated, decode inline rather than drop.
	}
	svc.decodeAndApply(cfg, data, slot)
}

func (svc *Service) decodeAndApply(cfg domain.PoolConfig, data []byte, slot uint64) {
	state, err := decoder.Decode(cfg, data)
	if err != nil {
		metrics.PoolDecodeFailures.WithLabelValues(cfg.Type.String()).Inc()
		svc.cache.MarkInactive(cfg.Address)
		log.Warn().Err(err).Str("pool", cfg.Label).Msg("[MarketService] pool deserialization failed")
		return
	}

	res := svc.cache.ApplyPoolState(cfg, state, slot)
	svc.poolUpdateCount.Add(1)
	metrics.PoolUpdates.WithLabelValues(cfg.Type.String()).Inc()
	if res.Stale {
		metrics.StaleUpdatesDropped.Inc()
		return
	}

	if vaultA, vaultB, vaultFed := state.VaultAddresses(); vaultFed {
		added, known := svc.ledger.RegisterPoolVaults(cfg.Address, vaultA, vaultB)
		for _, kb := range known {
			svc.cache.ApplyVaultBalance(cfg.Address, kb.IsVaultA, kb.Amount, kb.Slot)
		}
		if len(added) > 0 {
			svc.queueVaultsForSubscription(added)
		}
	}

	switch {
	case res.Trigger:
		cause := TriggerCausePriceChange
		if res.First {
			cause = TriggerCauseFirstPrice
		}
		svc.fireTrigger(TriggerEvent{Pool: cfg.Address, ChangePct: res.ChangePct, Cause: cause})
	case res.Applied && !res.Inactive:
		metrics.TriggersSuppressed.Inc()
	}
}

func (svc *Service) handleVaultUpdate(vault solana.PublicKey, data []byte, slot uint64) {
	res, err := svc.ledger.UpdateVault(vault, data, slot)
	if err != nil {
		metrics.VaultParseFailures.Inc()
		log.Warn().Err(err).Str("vault", vault.String()).Msg("[MarketService] vault parse failed, keeping previous balance")
		return
	}
	svc.vaultUpdateCount.Add(1)
	metrics.VaultUpdates.Inc()

	if res.Unparsed {
		for _, ref := range res.Pools {
			svc.cache.MarkInactive(ref.PoolAddress)
		}
		return
	}
	if res.Stale {
		metrics.StaleUpdatesDropped.Inc()
		return
	}
	if len(res.Pools) == 0 {
		// Balance arrived before any pool registered this vault; the ledger
		// keeps it and hands it back on registration.
		metrics.EarlyVaultUpdates.Inc()
		return
	}
	for _, ref := range res.Pools {
		svc.cache.ApplyVaultBalance(ref.PoolAddress, ref.IsVaultA, res.Amount, res.Slot)
	}
}

func (svc *Service) fireTrigger(event TriggerEvent) {
	metrics.ScanTriggers.WithLabelValues(event.Cause).Inc()
	select {
	case svc.triggerCh <- event:
	default:
	}
}

func (svc *Service) queueVaultsForSubscription(vaults []solana.PublicKey) {
	svc.pendingVaultsMu.Lock()
	svc.pendingVaults = append(svc.pendingVaults, vaults...)
	svc.pendingVaultsMu.Unlock()
}

func (svc *Service) processPendingVaults(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.subscribePendingVaults()
		}
	}
}

func (svc *Service) subscribePendingVaults() {
	svc.pendingVaultsMu.Lock()
	if len(svc.pendingVaults) == 0 {
		svc.pendingVaultsMu.Unlock()
		return
	}
	vaults := svc.pendingVaults
	svc.pendingVaults = make([]solana.PublicKey, 0)
	svc.pendingVaultsMu.Unlock()

	if err := svc.accStream.Subscribe(vaults...); err != nil {
		log.Error().Err(err).Int("count", len(vaults)).Msg("[MarketService] failed to subscribe to vault accounts")
		svc.pendingVaultsMu.Lock()
		svc.pendingVaults = append(svc.pendingVaults, vaults...)
		svc.pendingVaultsMu.Unlock()
		return
	}
	log.Info().Int("count", len(vaults)).Msg("[MarketService] subscribed to vault accounts")
}

func (svc *Service) processStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.Stats()
			report := svc.cache.Consistency(svc.cfg.SlotWindow, svc.cfg.MinFreshPct)

			metrics.VaultCount.Set(float64(stats.Vaults))
			metrics.ConsistencyScore.Set(report.Score)

			log.Info().
				Int("pools", stats.Pools).
				Int("vaults", stats.Vaults).
				Uint64("pool_updates", stats.PoolUpdates).
				Uint64("vault_updates", stats.VaultUpdates).
				Uint64("anomalies", stats.Anomalies).
				Float64("consistency", report.Score).
				Msg("[MarketService] stats")
		}
	}
}

// Stats returns ingestion counters for diagnostics.
func (svc *Service) Stats() ServiceStats {
	return ServiceStats{
		Pools:        len(svc.poolConfigs),
		Vaults:       svc.ledger.Len(),
		PoolUpdates:  svc.poolUpdateCount.Load(),
		VaultUpdates: svc.vaultUpdateCount.Load(),
		Anomalies:    svc.anomalyCount.Load(),
	}
}

// Snapshot copies out the full cache for a scan pass.
func (svc *Service) Snapshot() map[solana.PublicKey]PoolView {
	return svc.cache.Snapshot()
}

// Consistency exposes the freshness gate with the configured window.
func (svc *Service) Consistency() ConsistencyReport {
	return svc.cache.Consistency(svc.cfg.SlotWindow, svc.cfg.MinFreshPct)
}
