package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"predictionmarket/internal/auth"
	"predictionmarket/internal/collateral"
)

// CollateralHandler manages the funding side of the vault. Deposits and
// withdrawals always act on the caller's own account.
type CollateralHandler struct {
	Vault  *collateral.AccountVault
	Logger *zap.Logger
}

func (h *CollateralHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/collateral")
	group.POST("/deposit", h.deposit)
	group.POST("/withdraw", h.withdraw)
	group.GET("/:principal", h.balance)
}

type collateralRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// @Summary Deposit collateral into the caller's account
// @Tags collateral
// @Param body body collateralRequest true "amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/collateral/deposit [post]
func (h *CollateralHandler) deposit(c *gin.Context) {
	var req collateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	caller := auth.Caller(c)
	if err := h.Vault.Deposit(c.Request.Context(), caller, req.Amount); err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	balance, err := h.Vault.Balance(c.Request.Context(), caller)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"principal": caller, "available": balance}, nil)
}

// @Summary Withdraw free collateral from the caller's account
// @Tags collateral
// @Param body body collateralRequest true "amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/collateral/withdraw [post]
func (h *CollateralHandler) withdraw(c *gin.Context) {
	var req collateralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	caller := auth.Caller(c)
	if err := h.Vault.Withdraw(c.Request.Context(), caller, req.Amount); err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	balance, err := h.Vault.Balance(c.Request.Context(), caller)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"principal": caller, "available": balance}, nil)
}

// @Summary Collateral account balance
// @Tags collateral
// @Param principal path string true "principal"
// @Success 200 {object} apiResponse
// @Router /api/v1/collateral/{principal} [get]
func (h *CollateralHandler) balance(c *gin.Context) {
	principal := strings.TrimSpace(c.Param("principal"))
	balance, err := h.Vault.Balance(c.Request.Context(), principal)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"principal": principal, "available": balance}, nil)
}
