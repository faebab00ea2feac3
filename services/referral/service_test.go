package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"loyalty-engine/pkg/errutil"
	"loyalty-engine/services/points"
	"loyalty-engine/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *points.Service) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&ReferralProgram{}, &ReferredFriend{},
		&points.ClientPointsAccount{}, &points.PointTransaction{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	pointsSvc := points.NewService(points.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{DB: db, Node: node, Points: pointsSvc})

	return svc, pointsSvc
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, want, be.Code)
}

func TestEnsureProgramIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	program, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, program.ReferralCode, 8)
	require.True(t, program.IsActive)
	require.Zero(t, program.TotalReferrals)

	again, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, program.ID, again.ID)
	require.Equal(t, program.ReferralCode, again.ReferralCode)

	_, err = svc.EnsureProgram(ctx, "")
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestAddReferralAwardsSignupBonus(t *testing.T) {
	svc, pointsSvc := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	friend, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, friend.Status)

	// The signup bonus goes to the referrer; the friend has earned nothing yet.
	require.Zero(t, friend.PointsEarned)
	require.Zero(t, friend.CreditsEarned)

	account, err := pointsSvc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, SignupAward, account.TotalPoints)

	view, err := svc.GetProgram(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), view.TotalReferrals)
	require.Equal(t, SignupAward, view.TotalEarnedPoints)
	require.Equal(t, SignupAward/PointsPerCredit, view.TotalEarnedCredits)
	require.Len(t, view.Friends, 1)

	history, err := pointsSvc.ListTransactions(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, points.CategoryReferral, history[0].Category)
	require.NotNil(t, history[0].RelatedReferral)
	require.Equal(t, "Dana", *history[0].RelatedReferral)
}

func TestAddReferralRequiresProgram(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestAddReferralValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	_, err = svc.AddReferral(ctx, AddReferralRequest{ClientID: "client-1", FriendEmail: "x@example.com"})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.AddReferral(ctx, AddReferralRequest{ClientID: "client-1", FriendName: "X"})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestFullReferralLifecycle(t *testing.T) {
	svc, pointsSvc := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	friend, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	require.NoError(t, err)

	booked := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	friend, err = svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusBooked, "Facial", booked)
	require.NoError(t, err)
	require.Equal(t, StatusBooked, friend.Status)
	require.Equal(t, BookedAward, friend.PointsEarned)

	friend, err = svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusCompleted, "", booked.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, friend.Status)
	require.Equal(t, BookedAward+CompletedAward, friend.PointsEarned)
	require.Equal(t, (BookedAward+CompletedAward)/PointsPerCredit, friend.CreditsEarned)

	account, err := pointsSvc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(350), account.TotalPoints)

	view, err := svc.GetProgram(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, int64(350), view.TotalEarnedPoints)
	require.Equal(t, int64(35), view.TotalEarnedCredits)

	stored := view.Friends[0]
	require.NotNil(t, stored.BookedService)
	require.Equal(t, "Facial", *stored.BookedService)
	require.NotNil(t, stored.BookedDate)
	require.NotNil(t, stored.CompletedDate)
}

func TestAdvanceStatusReplayIsNoop(t *testing.T) {
	svc, pointsSvc := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	friend, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusBooked, "Facial", time.Now())
	require.NoError(t, err)

	// Redelivered webhook: same status again must not pay again.
	replayed, err := svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusBooked, "Facial", time.Now())
	require.NoError(t, err)
	require.Equal(t, BookedAward, replayed.PointsEarned)

	// Backward moves are ignored too.
	back, err := svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusPending, "", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusBooked, back.Status)

	account, err := pointsSvc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, SignupAward+BookedAward, account.TotalPoints)
}

func TestAdvanceStatusSkipToCompleted(t *testing.T) {
	svc, pointsSvc := newTestService(t)
	ctx := context.Background()

	_, err := svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	friend, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	require.NoError(t, err)

	// Jumping straight to completed pays the completed bonus only; the
	// booked milestone was never reached.
	friend, err = svc.AdvanceStatus(ctx, "client-1", friend.ID, StatusCompleted, "Peel", time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, friend.Status)
	require.Equal(t, CompletedAward, friend.PointsEarned)

	account, err := pointsSvc.GetAccount(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, SignupAward+CompletedAward, account.TotalPoints)
}

func TestAdvanceStatusErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AdvanceStatus(ctx, "client-1", "friend-1", StatusBooked, "", time.Now())
	requireStatus(t, err, errutil.StatusNotFound)

	_, err = svc.EnsureProgram(ctx, "client-1")
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(ctx, "client-1", "ghost", StatusBooked, "", time.Now())
	requireStatus(t, err, errutil.StatusNotFound)

	friend, err := svc.AddReferral(ctx, AddReferralRequest{
		ClientID:    "client-1",
		FriendName:  "Dana",
		FriendEmail: "dana@example.com",
	})
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(ctx, "client-1", friend.ID, FriendStatus("bogus"), "", time.Now())
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from FriendStatus
		to   FriendStatus
		ok   bool
	}{
		{StatusPending, StatusBooked, true},
		{StatusPending, StatusCompleted, true},
		{StatusBooked, StatusCompleted, true},
		{StatusBooked, StatusPending, false},
		{StatusCompleted, StatusBooked, false},
		{StatusCompleted, StatusPending, false},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanAdvance(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
