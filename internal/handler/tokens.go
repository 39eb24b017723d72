package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"predictionmarket/internal/auth"
	"predictionmarket/internal/engine"
	"predictionmarket/internal/ledger"
)

type TokenHandler struct {
	Engine *engine.Engine
	Ledger *ledger.Ledger
	Logger *zap.Logger
}

func (h *TokenHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/tokens")
	group.POST("/transfer", h.transfer)
	group.GET("/:id/supply", h.supply)
	group.GET("/:id/metadata", h.metadata)
	group.GET("/:id/balances/:principal", h.balance)
}

type transferRequest struct {
	TokenID uint64 `json:"token_id" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
	From    string `json:"from" binding:"required"`
	To      string `json:"to" binding:"required"`
}

// @Summary Transfer outcome shares (caller must own the source balance)
// @Tags tokens
// @Param body body transferRequest true "transfer"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/transfer [post]
func (h *TokenHandler) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	err := h.Engine.Transfer(c.Request.Context(), auth.Caller(c), req.TokenID, req.Amount, req.From, req.To)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"token_id": req.TokenID, "amount": req.Amount, "from": req.From, "to": req.To}, nil)
}

// @Summary Total supply of one outcome token
// @Tags tokens
// @Param id path int true "token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{id}/supply [get]
func (h *TokenHandler) supply(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return
	}
	supply, err := h.Ledger.TotalSupply(c.Request.Context(), id)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"token_id": id, "total_supply": supply}, nil)
}

// @Summary Immutable token metadata
// @Tags tokens
// @Param id path int true "token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{id}/metadata [get]
func (h *TokenHandler) metadata(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return
	}
	meta, err := h.Ledger.Metadata(c.Request.Context(), id)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, meta, nil)
}

// @Summary Balance of one principal for one token
// @Tags tokens
// @Param id path int true "token id"
// @Param principal path string true "principal"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{id}/balances/{principal} [get]
func (h *TokenHandler) balance(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return
	}
	principal := strings.TrimSpace(c.Param("principal"))
	balance, err := h.Ledger.Balance(c.Request.Context(), id, principal)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"token_id": id, "principal": principal, "balance": balance}, nil)
}
