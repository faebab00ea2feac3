package creditapp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/datatypes"
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
	clients := r.Group("/v1/clients/:client_id/credit-applications")
	clients.POST("", h.StartDraft)
	clients.GET("", h.List)
	clients.GET("/:application_id", h.Get)
	clients.PATCH("/:application_id", h.SaveSections)
	clients.POST("/:application_id/submit", h.Submit)
	clients.POST("/:application_id/decision", h.RecordDecision)
}

func (h *Handler) StartDraft(c *gin.Context) {
	app, err := h.svc.StartDraft(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, app)
}

func (h *Handler) List(c *gin.Context) {
	apps, err := h.svc.List(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": apps})
}

func (h *Handler) Get(c *gin.Context) {
	app, err := h.svc.Get(c.Request.Context(), c.Param("client_id"), c.Param("application_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, app)
}

type saveSectionsRequest struct {
	PersonalInfo         datatypes.JSON `json:"personal_info"`
	Address              datatypes.JSON `json:"address"`
	Employment           datatypes.JSON `json:"employment"`
	Financial            datatypes.JSON `json:"financial"`
	Procedure            datatypes.JSON `json:"procedure"`
	Consent              datatypes.JSON `json:"consent"`
	RequestedAmountCents *int64         `json:"requested_amount_cents"`
}

func (h *Handler) SaveSections(c *gin.Context) {
	var req saveSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.svc.SaveSections(c.Request.Context(), c.Param("client_id"),
		c.Param("application_id"), SectionUpdate{
			PersonalInfo:         req.PersonalInfo,
			Address:              req.Address,
			Employment:           req.Employment,
			Financial:            req.Financial,
			Procedure:            req.Procedure,
			Consent:              req.Consent,
			RequestedAmountCents: req.RequestedAmountCents,
		})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, app)
}

func (h *Handler) Submit(c *gin.Context) {
	app, err := h.svc.Submit(c.Request.Context(), c.Param("client_id"), c.Param("application_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, app)
}

type decisionRequest struct {
	Approved            bool   `json:"approved"`
	ApprovedAmountCents int64  `json:"approved_amount_cents"`
	Reason              string `json:"reason"`
}

func (h *Handler) RecordDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.svc.RecordDecision(c.Request.Context(), c.Param("client_id"),
		c.Param("application_id"), req.Approved, req.ApprovedAmountCents, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, app)
}
