package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mdtrung/arb-engine/internal/http/httputil"
	"github.com/mdtrung/arb-engine/internal/market"
)

type CacheHandler struct {
	marketSvc *market.Service
}

func NewCacheHandler(marketSvc *market.Service) *CacheHandler {
	return &CacheHandler{marketSvc: marketSvc}
}

func (h *CacheHandler) Root() string {
	return "/cache"
}

func (h *CacheHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/stats", h.getStats)
}

// CacheStatsResponse aggregates ingestion counters and the cache consistency
// report into one diagnostics payload.
type CacheStatsResponse struct {
	Pools        int                      `json:"pools"`
	Vaults       int                      `json:"vaults"`
	PoolUpdates  uint64                   `json:"pool_updates"`
	VaultUpdates uint64                   `json:"vault_updates"`
	Anomalies    uint64                   `json:"routing_anomalies"`
	Consistency  market.ConsistencyReport `json:"consistency"`
}

func (h *CacheHandler) getStats(c *gin.Context) {
	stats := h.marketSvc.Stats()
	httputil.Success(c, CacheStatsResponse{
		Pools:        stats.Pools,
		Vaults:       stats.Vaults,
		PoolUpdates:  stats.PoolUpdates,
		VaultUpdates: stats.VaultUpdates,
		Anomalies:    stats.Anomalies,
		Consistency:  h.marketSvc.Consistency(),
	})
}
