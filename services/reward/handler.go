package reward

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc *Service
}

type HandlerParams struct {
	fx.In
	Service *Service
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/v1/rewards", h.ListCatalog)

	clients := r.Group("/v1/clients/:client_id")
	clients.GET("/rewards/available", h.ListAvailable)
	clients.POST("/rewards/redeem", h.Redeem)
	clients.GET("/rewards/redemptions", h.ListRedemptions)
}

func (h *Handler) ListCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": Catalog()})
}

func (h *Handler) ListAvailable(c *gin.Context) {
	available, err := h.svc.ListAvailable(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": available})
}

type redeemRequest struct {
	RewardID string `json:"reward_id" binding:"required"`
}

func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redemption, err := h.svc.Redeem(c.Request.Context(), c.Param("client_id"), req.RewardID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, redemption)
}

func (h *Handler) ListRedemptions(c *gin.Context) {
	list := h.svc.ListRedemptions
	if c.Query("active") == "true" {
		list = h.svc.ListActiveRedemptions
	}

	redemptions, err := list(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": redemptions})
}
