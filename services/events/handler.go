package events

import (
	"encoding/json"
	"net/http"

	"loyalty-engine/pkg/task"
	"loyalty-engine/services/points"
	"loyalty-engine/services/referral"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const queue = "loyalty"

var Module = fx.Module("events",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// Handler is the webhook intake for the booking system. Events are accepted,
// queued and processed asynchronously; the ledger's idempotency keys make
// redelivered webhooks safe to queue again.
type Handler struct {
	enqueuer task.Enqueuer
}

type HandlerParams struct {
	fx.In
	Enqueuer task.Enqueuer
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{enqueuer: p.Enqueuer}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	events := r.Group("/v1/events")
	events.POST("/service-completed", h.ServiceCompleted)
	events.POST("/engagement", h.Engagement)
	events.POST("/referral-status", h.ReferralStatus)
}

func (h *Handler) ServiceCompleted(c *gin.Context) {
	var payload points.ServiceCompletedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.TraceID = trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()

	h.enqueue(c, points.TaskServiceCompleted, payload)
}

func (h *Handler) Engagement(c *gin.Context) {
	var payload points.EngagementPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.TraceID = trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()

	h.enqueue(c, points.TaskEngagement, payload)
}

func (h *Handler) ReferralStatus(c *gin.Context) {
	var payload referral.StatusChangedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload.TraceID = trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()

	h.enqueue(c, referral.TaskStatusChanged, payload)
}

func (h *Handler) enqueue(c *gin.Context, taskType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.Error(err)
		return
	}

	info, err := h.enqueuer.Enqueue(c.Request.Context(),
		asynq.NewTask(taskType, data), asynq.Queue(queue))
	if err != nil {
		zap.L().Error("failed to enqueue event", zap.String("task_type", taskType), zap.Error(err))
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
}
