package creditapp

import (
	"context"
	"errors"
	"testing"

	"loyalty-engine/pkg/errutil"
	"loyalty-engine/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &CreditApplication{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) {
	t.Helper()

	var be errutil.BaseError
	require.True(t, errors.As(err, &be), "expected BaseError, got %v", err)
	require.Equal(t, want, be.Code)
}

func fullSections() SectionUpdate {
	amount := int64(250000)
	return SectionUpdate{
		PersonalInfo:         datatypes.JSON(`{"first_name":"Dana","last_name":"Lee","date_of_birth":"1990-04-02"}`),
		Address:              datatypes.JSON(`{"street":"1 Main St","city":"Austin","state":"TX","zip":"78701"}`),
		Employment:           datatypes.JSON(`{"employer":"Acme","status":"full_time","years":4}`),
		Financial:            datatypes.JSON(`{"annual_income_cents":9000000}`),
		Procedure:            datatypes.JSON(`{"name":"Laser Treatment","estimated_cost_cents":250000}`),
		Consent:              datatypes.JSON(`{"credit_check":true,"terms":true}`),
		RequestedAmountCents: &amount,
	}
}

func TestStartDraftIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, StatusDraft, app.Status)
	require.Nil(t, app.SubmittedAt)

	again, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, app.ID, again.ID)

	_, err = svc.StartDraft(ctx, "")
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestSaveSectionsPiecemeal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)

	app, err = svc.SaveSections(ctx, "client-1", app.ID, SectionUpdate{
		PersonalInfo: datatypes.JSON(`{"first_name":"Dana"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, app.PersonalInfo)
	require.Empty(t, app.Address)

	// A later partial save must not wipe earlier sections.
	app, err = svc.SaveSections(ctx, "client-1", app.ID, SectionUpdate{
		Address: datatypes.JSON(`{"city":"Austin"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, app.PersonalInfo)
	require.NotEmpty(t, app.Address)
}

func TestSaveSectionsValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)

	negative := int64(-1)
	_, err = svc.SaveSections(ctx, "client-1", app.ID, SectionUpdate{RequestedAmountCents: &negative})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.SaveSections(ctx, "client-1", "ghost", SectionUpdate{})
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestSubmitLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)

	_, err = svc.SaveSections(ctx, "client-1", app.ID, fullSections())
	require.NoError(t, err)

	app, err = svc.Submit(ctx, "client-1", app.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, app.Status)
	require.NotNil(t, app.SubmittedAt)

	// Submitting twice is rejected, not replayed.
	_, err = svc.Submit(ctx, "client-1", app.ID)
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	// Submitted applications are read-only.
	_, err = svc.SaveSections(ctx, "client-1", app.ID, SectionUpdate{
		Address: datatypes.JSON(`{"city":"Dallas"}`),
	})
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}

func TestRecordDecision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)

	// A draft cannot be decided.
	_, err = svc.RecordDecision(ctx, "client-1", app.ID, true, 200000, "")
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	_, err = svc.SaveSections(ctx, "client-1", app.ID, fullSections())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "client-1", app.ID)
	require.NoError(t, err)

	app, err = svc.RecordDecision(ctx, "client-1", app.ID, true, 200000, "approved at reduced amount")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, app.Status)
	require.NotNil(t, app.ApprovedAmountCents)
	require.Equal(t, int64(200000), *app.ApprovedAmountCents)
	require.NotNil(t, app.DecidedAt)

	// Decisions are final.
	_, err = svc.RecordDecision(ctx, "client-1", app.ID, false, 0, "changed our mind")
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}

func TestRecordDenial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	_, err = svc.SaveSections(ctx, "client-1", app.ID, fullSections())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "client-1", app.ID)
	require.NoError(t, err)

	app, err = svc.RecordDecision(ctx, "client-1", app.ID, false, 0, "insufficient income")
	require.NoError(t, err)
	require.Equal(t, StatusDenied, app.Status)
	require.Nil(t, app.ApprovedAmountCents)
	require.NotNil(t, app.DecisionReason)
	require.Equal(t, "insufficient income", *app.DecisionReason)
}

func TestApprovalRequiresAmount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	app, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	_, err = svc.SaveSections(ctx, "client-1", app.ID, fullSections())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "client-1", app.ID)
	require.NoError(t, err)

	_, err = svc.RecordDecision(ctx, "client-1", app.ID, true, 0, "")
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestNewDraftAfterDecision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	_, err = svc.SaveSections(ctx, "client-1", first.ID, fullSections())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "client-1", first.ID)
	require.NoError(t, err)
	_, err = svc.RecordDecision(ctx, "client-1", first.ID, false, 0, "insufficient income")
	require.NoError(t, err)

	second, err := svc.StartDraft(ctx, "client-1")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	apps, err := svc.List(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
}
