package creditapp

import (
	"context"
	"time"

	"loyalty-engine/pkg/db/option"
	"loyalty-engine/pkg/errutil"
	"loyalty-engine/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	application repository.Repository[CreditApplication]
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

		application: repository.ProvideStore[CreditApplication](p.DB),
	}
}

// SectionUpdate carries the form sections a caller wants to write. Nil
// sections are left untouched so clients can save the form piecemeal.
type SectionUpdate struct {
	PersonalInfo         datatypes.JSON
	Address              datatypes.JSON
	Employment           datatypes.JSON
	Financial            datatypes.JSON
	Procedure            datatypes.JSON
	Consent              datatypes.JSON
	RequestedAmountCents *int64
}

// StartDraft returns the client's open draft, creating one when none exists.
// A client has at most one draft at a time; decided applications stay in
// history and never block a new draft.
func (s *Service) StartDraft(ctx context.Context, clientID string) (*CreditApplication, error) {
	if clientID == "" {
		return nil, errutil.ValidationFailed("client_id is required", nil)
	}

	existing, err := s.application.FindOne(ctx, &CreditApplication{
		ClientID: clientID,
		Status:   StatusDraft,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	app := &CreditApplication{
		ID:        s.node.Generate().String(),
		ClientID:  clientID,
		Status:    StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.application.Create(ctx, app); err != nil {
		return nil, err
	}

	zap.L().Info("credit application draft started",
		zap.String("client_id", clientID),
		zap.String("application_id", app.ID),
	)

	return app, nil
}

// SaveSections writes form sections onto a draft. Anything past draft is
// read-only.
func (s *Service) SaveSections(ctx context.Context, clientID, applicationID string, update SectionUpdate) (*CreditApplication, error) {
	app, err := s.Get(ctx, clientID, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusDraft {
		return nil, errutil.UnprocessableEntity("only draft applications can be edited", nil)
	}

	updates := map[string]any{"updated_at": time.Now()}
	if update.PersonalInfo != nil {
		updates["personal_info"] = update.PersonalInfo
	}
	if update.Address != nil {
		updates["address"] = update.Address
	}
	if update.Employment != nil {
		updates["employment"] = update.Employment
	}
	if update.Financial != nil {
		updates["financial"] = update.Financial
	}
	if update.Procedure != nil {
		updates["procedure"] = update.Procedure
	}
	if update.Consent != nil {
		updates["consent"] = update.Consent
	}
	if update.RequestedAmountCents != nil {
		if *update.RequestedAmountCents < 0 {
			return nil, errutil.ValidationFailed("requested amount must not be negative", nil)
		}
		updates["requested_amount_cents"] = *update.RequestedAmountCents
	}

	if err := s.application.Update(ctx, app.ID, updates); err != nil {
		return nil, err
	}

	return s.Get(ctx, clientID, applicationID)
}

// Submit moves a draft to submitted and stamps the submission time. Section
// completeness is the financing partner's concern; this module only records
// the lifecycle.
func (s *Service) Submit(ctx context.Context, clientID, applicationID string) (*CreditApplication, error) {
	var app *CreditApplication

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		applicationTx := s.application.WithTrx(tx)

		var err error
		app, err = applicationTx.FindOne(ctx, &CreditApplication{ID: applicationID, ClientID: clientID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if app == nil {
			return errutil.NotFound("credit application not found", nil)
		}
		if app.Status != StatusDraft {
			return errutil.UnprocessableEntity("application has already been submitted", nil)
		}

		now := time.Now()
		app.Status = StatusSubmitted
		app.SubmittedAt = &now
		app.UpdatedAt = now

		return applicationTx.Update(ctx, app.ID, map[string]any{
			"status":       StatusSubmitted,
			"submitted_at": now,
			"updated_at":   now,
		})
	}); err != nil {
		return nil, err
	}

	zap.L().Info("credit application submitted",
		zap.String("client_id", clientID),
		zap.String("application_id", app.ID),
	)

	return app, nil
}

// RecordDecision stores the financing partner's verdict. Only submitted
// applications can be decided, and a decision is final.
func (s *Service) RecordDecision(ctx context.Context, clientID, applicationID string, approved bool, approvedAmountCents int64, reason string) (*CreditApplication, error) {
	var app *CreditApplication

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		applicationTx := s.application.WithTrx(tx)

		var err error
		app, err = applicationTx.FindOne(ctx, &CreditApplication{ID: applicationID, ClientID: clientID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if app == nil {
			return errutil.NotFound("credit application not found", nil)
		}
		if app.Status != StatusSubmitted {
			return errutil.UnprocessableEntity("only submitted applications can be decided", nil)
		}

		now := time.Now()
		updates := map[string]any{
			"decided_at": now,
			"updated_at": now,
		}

		if approved {
			if approvedAmountCents <= 0 {
				return errutil.ValidationFailed("approved amount must be a positive integer", nil)
			}
			app.Status = StatusApproved
			app.ApprovedAmountCents = &approvedAmountCents
			updates["status"] = StatusApproved
			updates["approved_amount_cents"] = approvedAmountCents
		} else {
			app.Status = StatusDenied
			updates["status"] = StatusDenied
		}
		if reason != "" {
			app.DecisionReason = &reason
			updates["decision_reason"] = reason
		}

		app.DecidedAt = &now
		app.UpdatedAt = now

		return applicationTx.Update(ctx, app.ID, updates)
	}); err != nil {
		return nil, err
	}

	return app, nil
}

func (s *Service) Get(ctx context.Context, clientID, applicationID string) (*CreditApplication, error) {
	app, err := s.application.FindOne(ctx, &CreditApplication{ID: applicationID, ClientID: clientID})
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errutil.NotFound("credit application not found", nil)
	}
	return app, nil
}

// List returns the client's applications, newest first.
func (s *Service) List(ctx context.Context, clientID string) ([]*CreditApplication, error) {
	return s.application.Find(ctx, &CreditApplication{ClientID: clientID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
}
