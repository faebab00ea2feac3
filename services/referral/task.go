package referral

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var TaskModule = fx.Module("task.referral",
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

func (t *Task) HandleStatusChangedTask(ctx context.Context, task *asynq.Task) error {
	var payload StatusChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("client_id", payload.ClientID),
		zap.String("friend_id", payload.FriendID),
		zap.String("status", payload.Status),
		zap.String("trace_id", payload.TraceID),
	)

	var eventDate time.Time
	if payload.EventDate != "" {
		parsed, err := time.Parse(time.RFC3339, payload.EventDate)
		if err != nil {
			return fmt.Errorf("invalid event_date: %w", err)
		}
		eventDate = parsed
	}

	friend, err := t.svc.AdvanceStatus(ctx, payload.ClientID, payload.FriendID,
		FriendStatus(payload.Status), payload.BookedService, eventDate)
	if err != nil {
		zapLog.Error("failed to process referral status change", zap.Error(err))
		return err
	}

	zapLog.Info("referral status change processed",
		zap.String("current_status", friend.Status.String()),
		zap.Int64("points_earned", friend.PointsEarned),
	)
	return nil
}
