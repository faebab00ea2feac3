package points

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var TaskModule = fx.Module("task.points",
	fx.Provide(NewTask),
)

type Task struct {
	svc *Service
}

type TaskParams struct {
	fx.In
	Service *Service
}

func NewTask(p TaskParams) *Task {
	return &Task{svc: p.Service}
}

func (t *Task) HandleServiceCompletedTask(ctx context.Context, task *asynq.Task) error {
	var payload ServiceCompletedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("client_id", payload.ClientID),
		zap.String("reference_id", payload.ReferenceID),
		zap.String("trace_id", payload.TraceID),
	)

	account, err := t.svc.AccrueService(ctx, payload.ClientID, payload.ServiceName,
		payload.ServicePriceCents, payload.ReferenceID)
	if err != nil {
		zapLog.Error("failed to process service completion", zap.Error(err))
		return err
	}

	zapLog.Info("service completion processed",
		zap.Int64("total_points", account.TotalPoints),
		zap.String("tier", string(account.CurrentTier)),
	)
	return nil
}

func (t *Task) HandleEngagementTask(ctx context.Context, task *asynq.Task) error {
	var payload EngagementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("client_id", payload.ClientID),
		zap.String("category", payload.Category),
		zap.String("trace_id", payload.TraceID),
	)

	category := Category(payload.Category)
	if payload.Category == "social_share" {
		category = CategorySocial
	}

	if _, err := t.svc.AccrueEngagement(ctx, payload.ClientID, category, payload.ReferenceID); err != nil {
		zapLog.Error("failed to process engagement event", zap.Error(err))
		return err
	}

	zapLog.Info("engagement event processed")
	return nil
}
