package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"predictionmarket/internal/auth"
	"predictionmarket/internal/engine"
	"predictionmarket/internal/repository"
)

type MarketHandler struct {
	Engine *engine.Engine
	Logger *zap.Logger
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/count", h.count)
	group.GET("/:id", h.get)
	group.POST("/:id/buy", h.buy)
	group.POST("/:id/resolve", h.resolve)
	group.POST("/:id/claim", h.claim)
	group.GET("/:id/trades", h.trades)
	group.GET("/:id/claims", h.claims)
	group.GET("/:id/tokens", h.tokens)
}

type createMarketRequest struct {
	Liquidity   uint64    `json:"liquidity" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Question    string    `json:"question" binding:"required"`
	MetadataRef string    `json:"metadata_ref"`
}

// @Summary Create a market (admin only)
// @Tags markets
// @Param body body createMarketRequest true "market parameters"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets [post]
func (h *MarketHandler) create(c *gin.Context) {
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	id, err := h.Engine.CreateMarket(c.Request.Context(), auth.Caller(c), engine.CreateMarketParams{
		Liquidity:   req.Liquidity,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Question:    req.Question,
		MetadataRef: strings.TrimSpace(req.MetadataRef),
	})
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"market_id": id}, nil)
}

// @Summary List markets, newest first
// @Tags markets
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Param resolved query bool false "filter on resolved flag"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets [get]
func (h *MarketHandler) list(c *gin.Context) {
	params := repository.ListMarketsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Resolved: boolQueryPtr(c, "resolved"),
	}
	views, total, err := h.Engine.ListMarkets(c.Request.Context(), params)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, views, pageMeta(params.Limit, params.Offset, total))
}

// @Summary Total number of created markets
// @Tags markets
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/count [get]
func (h *MarketHandler) count(c *gin.Context) {
	count, err := h.Engine.MarketCount(c.Request.Context())
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"count": count}, nil)
}

// @Summary Market detail with status and price snapshot
// @Tags markets
// @Param id path int true "market id"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id} [get]
func (h *MarketHandler) get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	view, err := h.Engine.GetMarket(c.Request.Context(), id)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, view, nil)
}

type buyRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

// @Summary Buy outcome shares with collateral
// @Tags markets
// @Param id path int true "market id"
// @Param body body buyRequest true "outcome and collateral amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/buy [post]
func (h *MarketHandler) buy(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	trade, err := h.Engine.Buy(c.Request.Context(), auth.Caller(c), id, req.Outcome, req.Amount)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, trade, nil)
}

type resolveRequest struct {
	YesWon *bool `json:"yes_won" binding:"required"`
}

// @Summary Record the winning outcome (admin only, expired markets)
// @Tags markets
// @Param id path int true "market id"
// @Param body body resolveRequest true "winning side"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/resolve [post]
func (h *MarketHandler) resolve(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	if err := h.Engine.ResolveMarket(c.Request.Context(), auth.Caller(c), id, *req.YesWon); err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"market_id": id, "yes_won": *req.YesWon}, nil)
}

// @Summary Redeem the caller's full winning balance
// @Tags markets
// @Param id path int true "market id"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/claim [post]
func (h *MarketHandler) claim(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	payout, err := h.Engine.Claim(c.Request.Context(), auth.Caller(c), id)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"market_id": id, "collateral_out": payout}, nil)
}

// @Summary Trade history for a market
// @Tags markets
// @Param id path int true "market id"
// @Param buyer query string false "filter by buyer"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/trades [get]
func (h *MarketHandler) trades(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	params := repository.ListTradesParams{
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
		MarketID: &id,
	}
	if buyer := strings.TrimSpace(c.Query("buyer")); buyer != "" {
		params.Buyer = &buyer
	}
	trades, total, err := h.Engine.ListTrades(c.Request.Context(), params)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, trades, pageMeta(params.Limit, params.Offset, total))
}

// @Summary Outcome token ids and metadata for a market
// @Tags markets
// @Param id path int true "market id"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets/{id}/tokens [get]
func (h *MarketHandler) tokens(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	metas, err := h.Engine.MarketTokens(c.Request.Context(), id)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, metas, nil)
}

// @Summary Claim history for a market
// @Tags markets
// @Param id path int true "market id"
// @Router /api/v1/markets/{id}/claims [get]
func (h *MarketHandler) claims(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	params := repository.ListClaimsParams{
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
		MarketID: &id,
	}
	if claimant := strings.TrimSpace(c.Query("claimant")); claimant != "" {
		params.Claimant = &claimant
	}
	claims, err := h.Engine.ListClaims(c.Request.Context(), params)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, claims, map[string]any{"limit": params.Limit, "offset": params.Offset})
}
