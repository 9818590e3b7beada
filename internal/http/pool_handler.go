package http

import (
	"sort"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/mdtrung/arb-engine/internal/http/httputil"
	"github.com/mdtrung/arb-engine/internal/market"
)

type PoolHandler struct {
	marketSvc *market.Service
}

func NewPoolHandler(marketSvc *market.Service) *PoolHandler {
	return &PoolHandler{marketSvc: marketSvc}
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/list", h.listPools)
	pub.GET("/:address", h.getPool)
}

type PoolInfo struct {
	Address   string  `json:"address"`
	Label     string  `json:"label"`
	Type      string  `json:"type"`
	BaseMint  string  `json:"base_mint"`
	QuoteMint string  `json:"quote_mint"`
	Price     float64 `json:"price"`
	Active    bool    `json:"active"`
}

type PoolListResponse struct {
	Pools []PoolInfo `json:"pools"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Pages int        `json:"pages"`
}

func (h *PoolHandler) listPools(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	snapshot := h.marketSvc.Snapshot()
	views := make([]market.PoolView, 0, len(snapshot))
	for _, v := range snapshot {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Meta.Config.Address.String() < views[j].Meta.Config.Address.String()
	})

	total := len(views)
	pages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	pools := make([]PoolInfo, 0, end-offset)
	for _, v := range views[offset:end] {
		pools = append(pools, PoolInfo{
			Address:   v.Meta.Config.Address.String(),
			Label:     v.Meta.Config.Label,
			Type:      v.Meta.Config.Type.String(),
			BaseMint:  v.Meta.BaseMint.String(),
			QuoteMint: v.Meta.QuoteMint.String(),
			Price:     v.Point.Price,
			Active:    v.Point.Active,
		})
	}

	httputil.Success(c, PoolListResponse{
		Pools: pools,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

type PoolDetailResponse struct {
	Address       string    `json:"address"`
	Label         string    `json:"label"`
	Type          string    `json:"type"`
	BaseMint      string    `json:"base_mint"`
	QuoteMint     string    `json:"quote_mint"`
	BaseDecimals  uint8     `json:"base_decimals"`
	QuoteDecimals uint8     `json:"quote_decimals"`
	FeeBps        uint16    `json:"fee_bps"`
	VaultFed      bool      `json:"vault_fed"`
	Price         float64   `json:"price"`
	BaseReserve   uint64    `json:"base_reserve"`
	QuoteReserve  uint64    `json:"quote_reserve"`
	Slot          uint64    `json:"slot"`
	ObservedAt    time.Time `json:"observed_at"`
	Active        bool      `json:"active"`
}

func (h *PoolHandler) getPool(c *gin.Context) {
	address, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		httputil.BadRequest(c, "invalid pool address")
		return
	}

	view, ok := h.marketSvc.Cache().Get(address)
	if !ok {
		httputil.NotFound(c, "pool not found")
		return
	}

	httputil.Success(c, PoolDetailResponse{
		Address:       view.Meta.Config.Address.String(),
		Label:         view.Meta.Config.Label,
		Type:          view.Meta.Config.Type.String(),
		BaseMint:      view.Meta.BaseMint.String(),
		QuoteMint:     view.Meta.QuoteMint.String(),
		BaseDecimals:  view.Meta.BaseDecimals,
		QuoteDecimals: view.Meta.QuoteDecimals,
		FeeBps:        view.Meta.FeeBps,
		VaultFed:      view.Meta.VaultFed,
		Price:         view.Point.Price,
		BaseReserve:   view.Point.BaseReserve,
		QuoteReserve:  view.Point.QuoteReserve,
		Slot:          view.Point.Slot,
		ObservedAt:    view.Point.ObservedAt,
		Active:        view.Point.Active,
	})
}
