package reward

import (
	"context"
	"errors"
	"time"

	"loyalty-engine/pkg/db/option"
	"loyalty-engine/pkg/errutil"
	"loyalty-engine/pkg/repository"
	"loyalty-engine/pkg/sequence"
	"loyalty-engine/services/points"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator

	redemption repository.Repository[RewardRedemption]
	points     *points.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Sequence sequence.Generator
	Points   *points.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		seq:  p.Sequence,

		redemption: repository.ProvideStore[RewardRedemption](p.DB),
		points:     p.Points,
	}
}

// AvailableReward is a catalog entry quoted for a specific client: the
// expiry is instantiated against "now" at query time.
type AvailableReward struct {
	Template
	ExpiresAt time.Time `json:"expires_at"`
}

// ListAvailable returns the catalog entries the client can afford right now.
// A client with no points account affords nothing.
func (s *Service) ListAvailable(ctx context.Context, clientID string) ([]AvailableReward, error) {
	account, err := s.points.GetAccount(ctx, clientID)
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code == errutil.StatusNotFound {
			return []AvailableReward{}, nil
		}
		return nil, err
	}

	now := time.Now()
	affordable := make([]AvailableReward, 0, len(catalog))
	for _, tpl := range catalog {
		if tpl.PointsCost <= account.TotalPoints {
			affordable = append(affordable, AvailableReward{
				Template:  tpl,
				ExpiresAt: now.AddDate(0, 0, tpl.ValidityDays),
			})
		}
	}
	return affordable, nil
}

// Redeem spends points for a catalog reward. The debit and the redemption
// record commit in one transaction, so a failure on either side leaves the
// balance untouched. Affordability is re-checked inside the debit; a quote
// from ListAvailable going stale just means the redeem fails cleanly.
func (s *Service) Redeem(ctx context.Context, clientID, rewardID string) (*RewardRedemption, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("client_id", clientID),
		zap.String("reward_id", rewardID),
	)

	tpl, ok := TemplateByID(rewardID)
	if !ok {
		return nil, errutil.NotFound("reward not found", nil)
	}

	code, err := s.seq.NextRedemptionCode(ctx, clientID)
	if err != nil {
		zapLog.Error("failed to issue redemption code", zap.Error(err))
		return nil, err
	}

	var redemption *RewardRedemption

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.points.DebitTx(ctx, tx, clientID, tpl.PointsCost,
			"Redeemed: "+tpl.Name); err != nil {
			return err
		}

		now := time.Now()
		redemption = &RewardRedemption{
			ID:             s.node.Generate().String(),
			ClientID:       clientID,
			RewardID:       tpl.ID,
			RewardName:     tpl.Name,
			RewardType:     tpl.Type,
			Description:    tpl.Description,
			PointsCost:     tpl.PointsCost,
			Value:          tpl.Value,
			RedemptionCode: code,
			Status:         StatusRedeemed,
			ExpiresAt:      now.AddDate(0, 0, tpl.ValidityDays),
			RedeemedAt:     now,
			CreatedAt:      now,
		}

		return s.redemption.WithTrx(tx).Create(ctx, redemption)
	}); err != nil {
		zapLog.Warn("redemption rejected", zap.Error(err))
		return nil, err
	}

	zapLog.Info("reward redeemed",
		zap.String("redemption_code", redemption.RedemptionCode),
		zap.Int64("points_cost", tpl.PointsCost),
	)

	return redemption, nil
}

// ListRedemptions returns the client's redemption history, newest first.
func (s *Service) ListRedemptions(ctx context.Context, clientID string) ([]*RewardRedemption, error) {
	return s.redemption.Find(ctx, &RewardRedemption{ClientID: clientID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}

// ListActiveRedemptions returns redeemed rewards still inside their validity
// window. Expiry is an eligibility check at read time, not a scheduled job.
func (s *Service) ListActiveRedemptions(ctx context.Context, clientID string) ([]*RewardRedemption, error) {
	return s.redemption.Find(ctx, &RewardRedemption{ClientID: clientID, Status: StatusRedeemed},
		option.ApplyOperator(option.Condition{Field: "expires_at", Operator: option.GT, Value: time.Now()}),
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
