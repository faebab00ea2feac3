package points

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
	clients := r.Group("/v1/clients/:client_id")
	clients.POST("/points/service", h.AccrueService)
	clients.POST("/points/engagement", h.AccrueEngagement)
	clients.GET("/points", h.GetSummary)
	clients.GET("/points/transactions", h.ListTransactions)
}

type accrueServiceRequest struct {
	ServiceName       string `json:"service_name" binding:"required"`
	ServicePriceCents int64  `json:"service_price_cents"`
	ReferenceID       string `json:"reference_id"`
}

func (h *Handler) AccrueService(c *gin.Context) {
	var req accrueServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.svc.AccrueService(c.Request.Context(), c.Param("client_id"),
		req.ServiceName, req.ServicePriceCents, req.ReferenceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, account)
}

type accrueEngagementRequest struct {
	Category    string `json:"category" binding:"required"`
	ReferenceID string `json:"reference_id"`
}

func (h *Handler) AccrueEngagement(c *gin.Context) {
	var req accrueEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := Category(req.Category)
	if req.Category == "social_share" {
		category = CategorySocial
	}

	account, err := h.svc.AccrueEngagement(c.Request.Context(), c.Param("client_id"),
		category, req.ReferenceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.svc.GetSummary(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	history, err := h.svc.ListTransactions(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}
