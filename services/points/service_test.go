package points

import (
	"context"
	"errors"
	"testing"

	"loyalty-engine/pkg/db/option"
	"loyalty-engine/pkg/errutil"
	"loyalty-engine/pkg/repository"
	"loyalty-engine/services/testutil"
	"loyalty-engine/services/tier"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &ClientPointsAccount{}, &PointTransaction{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node}), db
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, want, be.Code)
}

func TestAccrueCreatesAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.Accrue(ctx, AccrueRequest{
		ClientID:    "client-1",
		Points:      120,
		Category:    CategoryService,
		Description: "Points earned for Botox Treatment",
	})
	require.NoError(t, err)
	require.Equal(t, "client-1", account.ClientID)
	require.Equal(t, int64(120), account.TotalPoints)
	require.Equal(t, int64(120), account.LifetimePoints)
	require.Equal(t, tier.Bronze, account.CurrentTier)
	require.Equal(t, tier.SilverThreshold, account.NextTierThreshold)
	require.InDelta(t, 24.0, account.TierProgress, 0.001)

	history, err := svc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, Earned, history[0].Type)
	require.Equal(t, int64(120), history[0].Points)
	require.NotEmpty(t, history[0].TransactionCode)
}

func TestAccrueValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accrue(ctx, AccrueRequest{ClientID: "", Points: 10, Category: CategoryService})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: 0, Category: CategoryService})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: -5, Category: CategoryService})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: 10, Category: Category("bogus")})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestAccrueReferenceIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := AccrueRequest{
		ClientID:    "client-1",
		Points:      110,
		Category:    CategoryService,
		Description: "Points earned for Facial",
		ReferenceID: "booking-42",
	}

	first, err := svc.Accrue(ctx, req)
	require.NoError(t, err)
	require.Equal(t, int64(110), first.TotalPoints)

	// Webhook redelivery: same reference must not double-count.
	second, err := svc.Accrue(ctx, req)
	require.NoError(t, err)
	require.Equal(t, int64(110), second.TotalPoints)

	history, err := svc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAccrueServiceFormula(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// $250.00 service: 100 base + floor(250 * 0.10) = 125
	account, err := svc.AccrueService(ctx, "client-1", "Laser Treatment", 25000, "")
	require.NoError(t, err)
	require.Equal(t, int64(125), account.TotalPoints)

	// $9.99 service earns no bonus.
	account, err = svc.AccrueService(ctx, "client-2", "Consultation", 999, "")
	require.NoError(t, err)
	require.Equal(t, ServiceBasePoints, account.TotalPoints)

	_, err = svc.AccrueService(ctx, "client-3", "Broken", -100, "")
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestAccrueEngagementAwards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		category Category
		award    int64
	}{
		{CategoryReview, ReviewPoints},
		{CategorySocial, SocialSharePoints},
		{CategoryBirthday, BirthdayPoints},
		{CategoryAnniversary, AnniversaryPoints},
	}

	var total int64
	for _, tc := range cases {
		account, err := svc.AccrueEngagement(ctx, "client-1", tc.category, "")
		require.NoError(t, err)

		total += tc.award
		require.Equal(t, total, account.TotalPoints)
	}

	_, err := svc.AccrueEngagement(ctx, "client-1", CategoryService, "")
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestDebit(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accrue(ctx, AccrueRequest{
		ClientID: "client-1",
		Points:   300,
		Category: CategoryService,
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		entry, err := svc.DebitTx(ctx, tx, "client-1", 100, "Redeemed: $10 Service Credit")
		require.NoError(t, err)
		require.Equal(t, Redeemed, entry.Type)
		require.Equal(t, int64(-100), entry.Points)
		return nil
	})
	require.NoError(t, err)

	account, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(200), account.TotalPoints)
	// Spending never touches the lifetime total, so the tier cannot drop.
	require.Equal(t, int64(300), account.LifetimePoints)
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accrue(ctx, AccrueRequest{
		ClientID: "client-1",
		Points:   50,
		Category: CategoryService,
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitTx(ctx, tx, "client-1", 100, "too much")
		return err
	})
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	account, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(50), account.TotalPoints)
}

// accountRepoMock overrides FindOne so a debit can be handed a stale balance
// snapshot, as if a concurrent spend landed between the read and the guarded
// update.
type accountRepoMock struct {
	repository.Repository[ClientPointsAccount]
	findOne func(ctx context.Context, query *ClientPointsAccount, opts ...option.QueryOption) (*ClientPointsAccount, error)
}

func (m *accountRepoMock) WithTrx(tx *gorm.DB) repository.Repository[ClientPointsAccount] {
	return m
}

func (m *accountRepoMock) FindOne(ctx context.Context, query *ClientPointsAccount, opts ...option.QueryOption) (*ClientPointsAccount, error) {
	return m.findOne(ctx, query, opts...)
}

func TestDebitConflictOnLostRace(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accrue(ctx, AccrueRequest{
		ClientID: "client-1",
		Points:   50,
		Category: CategoryService,
	})
	require.NoError(t, err)

	stored, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)

	// Inflated snapshot: the eligibility check passes, but the guarded
	// update runs against the real row and matches nothing.
	stale := *stored
	stale.TotalPoints = 500

	accounts := svc.account
	svc.account = &accountRepoMock{
		findOne: func(context.Context, *ClientPointsAccount, ...option.QueryOption) (*ClientPointsAccount, error) {
			return &stale, nil
		},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitTx(ctx, tx, "client-1", 100, "racing redemption")
		return err
	})
	requireStatus(t, err, errutil.StatusConflict)

	svc.account = accounts

	// The losing debit must leave the balance and the ledger untouched.
	account, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(50), account.TotalPoints)

	history, err := svc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, Earned, history[0].Type)
}

func TestDebitMissingAccount(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitTx(ctx, tx, "ghost", 100, "nothing to spend")
		return err
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestLedgerSumMatchesBalance(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.AccrueService(ctx, "client-1", "Filler", 15000, "booking-1")
	require.NoError(t, err)
	_, err = svc.AccrueEngagement(ctx, "client-1", CategoryReview, "")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitTx(ctx, tx, "client-1", 100, "Redeemed: $10 Service Credit")
		return err
	})
	require.NoError(t, err)

	account, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)

	history, err := svc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)

	var sum int64
	for _, entry := range history {
		sum += entry.Points
	}
	require.Equal(t, account.TotalPoints, sum)
}

func TestTierPromotionOnAccrual(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: 499, Category: CategoryService})
	require.NoError(t, err)

	account, err := svc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, tier.Bronze, account.CurrentTier)

	account, err = svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: 1, Category: CategoryService})
	require.NoError(t, err)
	require.Equal(t, tier.Silver, account.CurrentTier)
	require.Equal(t, tier.GoldThreshold, account.NextTierThreshold)
}

func TestGetSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetSummary(ctx, "ghost")
	requireStatus(t, err, errutil.StatusNotFound)

	_, err = svc.Accrue(ctx, AccrueRequest{ClientID: "client-1", Points: 600, Category: CategoryService})
	require.NoError(t, err)

	summary, err := svc.GetSummary(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, tier.Silver, summary.CurrentTier)
	require.Equal(t, tier.BenefitFor(tier.Silver), summary.TierBenefit)
	require.Len(t, summary.History, 1)
}
