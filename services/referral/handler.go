package referral

import (
	"net/http"
	"time"

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
	clients.POST("/referrals/program", h.EnsureProgram)
	clients.GET("/referrals/program", h.GetProgram)
	clients.POST("/referrals", h.AddReferral)
	clients.POST("/referrals/:friend_id/status", h.AdvanceStatus)
}

func (h *Handler) EnsureProgram(c *gin.Context) {
	program, err := h.svc.EnsureProgram(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, program)
}

func (h *Handler) GetProgram(c *gin.Context) {
	view, err := h.svc.GetProgram(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type addReferralRequest struct {
	FriendName  string `json:"friend_name" binding:"required"`
	FriendEmail string `json:"friend_email" binding:"required"`
	FriendPhone string `json:"friend_phone"`
}

func (h *Handler) AddReferral(c *gin.Context) {
	var req addReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	friend, err := h.svc.AddReferral(c.Request.Context(), AddReferralRequest{
		ClientID:    c.Param("client_id"),
		FriendName:  req.FriendName,
		FriendEmail: req.FriendEmail,
		FriendPhone: req.FriendPhone,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, friend)
}

type advanceStatusRequest struct {
	Status        string     `json:"status" binding:"required"`
	BookedService string     `json:"booked_service"`
	EventDate     *time.Time `json:"event_date"`
}

func (h *Handler) AdvanceStatus(c *gin.Context) {
	var req advanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventDate := time.Time{}
	if req.EventDate != nil {
		eventDate = *req.EventDate
	}

	friend, err := h.svc.AdvanceStatus(c.Request.Context(), c.Param("client_id"),
		c.Param("friend_id"), FriendStatus(req.Status), req.BookedService, eventDate)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, friend)
}
