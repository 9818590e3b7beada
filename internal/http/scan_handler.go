package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mdtrung/arb-engine/internal/http/httputil"
	"github.com/mdtrung/arb-engine/internal/market"
	"github.com/mdtrung/arb-engine/internal/router"
)

type ScanHandler struct {
	routerSvc *router.Router
}

func NewScanHandler(routerSvc *router.Router) *ScanHandler {
	return &ScanHandler{routerSvc: routerSvc}
}

func (h *ScanHandler) Root() string {
	return ""
}

func (h *ScanHandler) SetRoutes(pub *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/scan", h.scan)
	pub.GET("/opportunities", h.getOpportunities)
}

func (h *ScanHandler) getOpportunities(c *gin.Context) {
	result, ok := h.routerSvc.Latest()
	if !ok {
		httputil.NotFound(c, "no scan has completed yet")
		return
	}
	httputil.Success(c, result)
}

// ScanRequest optionally narrows the ROI floor for one on-demand pass.
type ScanRequest struct {
	MinROIPct *float64 `json:"min_roi_pct"`
}

func (h *ScanHandler) scan(c *gin.Context) {
	var req ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	minROI := h.routerSvc.MinROIPct()
	if req.MinROIPct != nil {
		if *req.MinROIPct < 0 {
			httputil.BadRequest(c, "min_roi_pct must not be negative")
			return
		}
		minROI = *req.MinROIPct
	}

	result := h.routerSvc.Scan(market.TriggerCauseManual, minROI)
	httputil.Success(c, result)
}
