package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"predictionmarket/internal/auth"
	"predictionmarket/internal/engine"
	"predictionmarket/internal/repository"
)

// EngineHandler exposes one-shot setup, role administration, and the journal.
type EngineHandler struct {
	Engine *engine.Engine
	Logger *zap.Logger
}

func (h *EngineHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/engine/initialize", h.initialize)
	group.GET("/engine/state", h.state)
	group.GET("/engine/events", h.listEvents)
	group.POST("/roles/admin", h.setAdminRole)
	group.POST("/roles/moderator", h.setModeratorRole)
	group.GET("/roles/:principal", h.getRole)
}

type initializeRequest struct {
	Owner           string `json:"owner" binding:"required"`
	CollateralToken string `json:"collateral_token" binding:"required"`
}

// @Summary One-shot engine initialization
// @Tags engine
// @Param body body initializeRequest true "owner and collateral token"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine/initialize [post]
func (h *EngineHandler) initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	if err := h.Engine.Initialize(c.Request.Context(), req.Owner, req.CollateralToken); err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"owner": req.Owner, "collateral_token": req.CollateralToken}, nil)
}

// @Summary Engine state: owner, collateral token, market count
// @Tags engine
// @Success 200 {object} apiResponse
// @Router /api/v1/engine/state [get]
func (h *EngineHandler) state(c *gin.Context) {
	state, err := h.Engine.State(c.Request.Context())
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, state, nil)
}

// @Summary Journal of committed engine events
// @Tags engine
// @Param kind query string false "event kind"
// @Param market_id query int false "market id"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine/events [get]
func (h *EngineHandler) listEvents(c *gin.Context) {
	params := repository.ListEventsParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
	}
	if kind := strings.TrimSpace(c.Query("kind")); kind != "" {
		params.Kind = &kind
	}
	if id := intQuery(c, "market_id", 0); id > 0 {
		marketID := uint64(id)
		params.MarketID = &marketID
	}
	events, err := h.Engine.ListEvents(c.Request.Context(), params)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, events, map[string]any{"limit": params.Limit, "offset": params.Offset})
}

type setRoleRequest struct {
	Principal string `json:"principal" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
}

// @Summary Grant or revoke the admin role (owner only)
// @Tags roles
// @Param body body setRoleRequest true "principal and flag"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/admin [post]
func (h *EngineHandler) setAdminRole(c *gin.Context) {
	h.setRole(c, h.Engine.SetAdminRole)
}

// @Summary Grant or revoke the moderator role (owner only)
// @Tags roles
// @Param body body setRoleRequest true "principal and flag"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/moderator [post]
func (h *EngineHandler) setModeratorRole(c *gin.Context) {
	h.setRole(c, h.Engine.SetModeratorRole)
}

func (h *EngineHandler) setRole(c *gin.Context, apply func(ctx context.Context, caller, principal string, enabled bool) error) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	caller := auth.Caller(c)
	if err := apply(c.Request.Context(), caller, req.Principal, *req.Enabled); err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"principal": req.Principal, "enabled": *req.Enabled}, nil)
}

// @Summary Role flags for a principal
// @Tags roles
// @Param principal path string true "principal"
// @Success 200 {object} apiResponse
// @Router /api/v1/roles/{principal} [get]
func (h *EngineHandler) getRole(c *gin.Context) {
	principal := strings.TrimSpace(c.Param("principal"))
	role, err := h.Engine.Role(c.Request.Context(), principal)
	if err != nil {
		EngineError(c, h.Logger, err)
		return
	}
	Ok(c, role, nil)
}
