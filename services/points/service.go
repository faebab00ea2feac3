package points

import (
	"context"
	"time"

	"loyalty-engine/pkg/db/option"
	"loyalty-engine/pkg/errutil"
	"loyalty-engine/pkg/repository"
	"loyalty-engine/services/tier"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine business constants. Tunable without touching control flow.
const (
	// ServiceBasePoints is awarded for every completed service, on top of
	// 10% of the service price in dollars (one point per full $10 of price).
	ServiceBasePoints int64 = 100

	ReviewPoints      int64 = 25
	SocialSharePoints int64 = 10
	BirthdayPoints    int64 = 50
	AnniversaryPoints int64 = 100
)

var engagementAwards = map[Category]int64{
	CategoryReview:      ReviewPoints,
	CategorySocial:      SocialSharePoints,
	CategoryBirthday:    BirthdayPoints,
	CategoryAnniversary: AnniversaryPoints,
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	account repository.Repository[ClientPointsAccount]
	ledger  repository.Repository[PointTransaction]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		account: repository.ProvideStore[ClientPointsAccount](p.DB),
		ledger:  repository.ProvideStore[PointTransaction](p.DB),
	}
}

type AccrueRequest struct {
	ClientID        string
	Points          int64
	Category        Category
	Description     string
	RelatedService  string
	RelatedReferral string

	// ReferenceID is an optional idempotency key. A second accrual carrying
	// the same reference for the same client is a no-op replay: the booking
	// system retries webhooks and the ledger must not double-count them.
	ReferenceID string
}

// Accrue appends an earned transaction and updates the account, creating it
// on first touch. Points must be positive; the redeemed path goes through
// DebitTx only.
func (s *Service) Accrue(ctx context.Context, req AccrueRequest) (*ClientPointsAccount, error) {
	var account *ClientPointsAccount

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.ApplyAccrualTx(ctx, tx, req)
		return err
	}); err != nil {
		return nil, err
	}

	return account, nil
}

// ApplyAccrualTx is the accrual path for callers that already hold a
// transaction (referral signup and lifecycle bonuses run inside the referral
// service's transaction so the friend update and the accrual commit
// together).
func (s *Service) ApplyAccrualTx(ctx context.Context, tx *gorm.DB, req AccrueRequest) (*ClientPointsAccount, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("client_id", req.ClientID),
		zap.String("category", req.Category.String()),
		zap.Int64("points", req.Points),
	)

	if req.ClientID == "" {
		return nil, errutil.ValidationFailed("client_id is required", nil)
	}
	if req.Points <= 0 {
		return nil, errutil.ValidationFailed("accrual points must be a positive integer", nil)
	}
	if req.Category.String() == "" {
		return nil, errutil.ValidationFailed("unknown point category", nil)
	}

	accountTx := s.account.WithTrx(tx)
	ledgerTx := s.ledger.WithTrx(tx)

	if req.ReferenceID != "" {
		existing, err := ledgerTx.FindOne(ctx, &PointTransaction{
			ClientID:    req.ClientID,
			ReferenceID: &req.ReferenceID,
		})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			zapLog.Warn("accrual reference already recorded, replaying",
				zap.String("reference_id", req.ReferenceID))
			return accountTx.FindOne(ctx, &ClientPointsAccount{ClientID: req.ClientID},
				option.WithLockingUpdate())
		}
	}

	account, err := accountTx.FindOne(ctx, &ClientPointsAccount{ClientID: req.ClientID},
		option.WithLockingUpdate())
	if err != nil {
		zapLog.Error("failed to query points account", zap.Error(err))
		return nil, err
	}

	if account == nil {
		account = s.newAccount(req.ClientID)
		if err := accountTx.Create(ctx, account); err != nil {
			return nil, err
		}
	}

	code, err := GenerateTransactionCode()
	if err != nil {
		return nil, err
	}

	entry := &PointTransaction{
		ID:              s.node.Generate().String(),
		ClientID:        req.ClientID,
		Type:            Earned,
		Category:        req.Category,
		Points:          req.Points,
		Description:     req.Description,
		TransactionCode: code,
		CreatedAt:       time.Now(),
	}
	if req.RelatedService != "" {
		entry.RelatedService = &req.RelatedService
	}
	if req.RelatedReferral != "" {
		entry.RelatedReferral = &req.RelatedReferral
	}
	if req.ReferenceID != "" {
		entry.ReferenceID = &req.ReferenceID
	}

	if err := ledgerTx.Create(ctx, entry); err != nil {
		zapLog.Error("failed to append ledger entry", zap.Error(err))
		return nil, err
	}

	account.TotalPoints += req.Points
	account.LifetimePoints += req.Points
	applyDerived(account)
	account.UpdatedAt = time.Now()

	if err := accountTx.Update(ctx, account.ID, map[string]any{
		"total_points":        account.TotalPoints,
		"lifetime_points":     account.LifetimePoints,
		"current_tier":        account.CurrentTier,
		"tier_progress":       account.TierProgress,
		"next_tier_threshold": account.NextTierThreshold,
		"updated_at":          account.UpdatedAt,
	}); err != nil {
		return nil, err
	}

	return account, nil
}

// DebitTx spends points inside the caller's transaction. The balance guard
// is re-checked in the UPDATE itself so a racing debit cannot spend the same
// points twice: the loser sees zero affected rows and fails with a conflict.
func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, clientID string, cost int64, description string) (*PointTransaction, error) {
	if cost <= 0 {
		return nil, errutil.ValidationFailed("debit points must be a positive integer", nil)
	}

	accountTx := s.account.WithTrx(tx)
	ledgerTx := s.ledger.WithTrx(tx)

	account, err := accountTx.FindOne(ctx, &ClientPointsAccount{ClientID: clientID},
		option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errutil.NotFound("points account not found", nil)
	}

	if account.TotalPoints < cost {
		return nil, errutil.UnprocessableEntity("insufficient points balance", nil)
	}

	res := tx.Model(&ClientPointsAccount{}).
		Where("id = ? AND total_points >= ?", account.ID, cost).
		Updates(map[string]any{
			"total_points": gorm.Expr("total_points - ?", cost),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.Conflict("points balance changed concurrently", nil)
	}

	code, err := GenerateTransactionCode()
	if err != nil {
		return nil, err
	}

	entry := &PointTransaction{
		ID:              s.node.Generate().String(),
		ClientID:        clientID,
		Type:            Redeemed,
		Category:        CategoryPromotion,
		Points:          -cost,
		Description:     description,
		TransactionCode: code,
		CreatedAt:       time.Now(),
	}

	if err := ledgerTx.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// AccrueService awards points for a completed service:
// a flat base plus 10% of the price in dollars, floored.
func (s *Service) AccrueService(ctx context.Context, clientID, serviceName string, servicePriceCents int64, referenceID string) (*ClientPointsAccount, error) {
	if servicePriceCents < 0 {
		return nil, errutil.ValidationFailed("service price must not be negative", nil)
	}

	// floor(cents/100 * 0.10) == cents/1000 in integer arithmetic
	bonus := servicePriceCents / 1000

	return s.Accrue(ctx, AccrueRequest{
		ClientID:       clientID,
		Points:         ServiceBasePoints + bonus,
		Category:       CategoryService,
		Description:    "Points earned for " + serviceName,
		RelatedService: serviceName,
		ReferenceID:    referenceID,
	})
}

// AccrueEngagement awards the fixed amount attached to an engagement
// category (review, social, birthday, anniversary).
func (s *Service) AccrueEngagement(ctx context.Context, clientID string, category Category, referenceID string) (*ClientPointsAccount, error) {
	award, ok := engagementAwards[category]
	if !ok {
		return nil, errutil.ValidationFailed("unknown engagement category", nil)
	}

	return s.Accrue(ctx, AccrueRequest{
		ClientID:    clientID,
		Points:      award,
		Category:    category,
		Description: "Points earned for " + category.String(),
		ReferenceID: referenceID,
	})
}

// GetAccount is read-only; it neither creates the account nor recomputes
// anything beyond what the last mutation persisted.
func (s *Service) GetAccount(ctx context.Context, clientID string) (*ClientPointsAccount, error) {
	account, err := s.account.FindOne(ctx, &ClientPointsAccount{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errutil.NotFound("points account not found", nil)
	}
	return account, nil
}

func (s *Service) GetSummary(ctx context.Context, clientID string) (*AccountSummary, error) {
	account, err := s.GetAccount(ctx, clientID)
	if err != nil {
		return nil, err
	}

	history, err := s.ListTransactions(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &AccountSummary{
		ClientID:          account.ClientID,
		TotalPoints:       account.TotalPoints,
		LifetimePoints:    account.LifetimePoints,
		CurrentTier:       account.CurrentTier,
		TierProgress:      account.TierProgress,
		NextTierThreshold: account.NextTierThreshold,
		TierBenefit:       tier.BenefitFor(account.CurrentTier),
		History:           history,
	}, nil
}

func (s *Service) ListTransactions(ctx context.Context, clientID string) ([]*PointTransaction, error) {
	return s.ledger.Find(ctx, &PointTransaction{ClientID: clientID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}

func (s *Service) newAccount(clientID string) *ClientPointsAccount {
	account := &ClientPointsAccount{
		ID:        s.node.Generate().String(),
		ClientID:  clientID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	applyDerived(account)
	return account
}

func applyDerived(account *ClientPointsAccount) {
	currentTier, progress, next := tier.Compute(account.LifetimePoints)
	account.CurrentTier = currentTier
	account.TierProgress = progress
	account.NextTierThreshold = next
}
