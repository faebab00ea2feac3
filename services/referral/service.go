package referral

import (
	"context"
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

const (
	// SignupAward is paid to the referrer the moment a friend is recorded.
	SignupAward int64 = 50
	// BookedAward is paid when the friend books their first service.
	BookedAward int64 = 100
	// CompletedAward is paid when the friend completes that service.
	CompletedAward int64 = 200

	// PointsPerCredit converts referral points into dollar credits.
	PointsPerCredit int64 = 10

	codeLength      = 8
	codeMaxAttempts = 5
)

// statusAwards maps the status a friend just reached to the bonus it pays.
// A pending to completed jump pays only the completed bonus; the booked
// milestone was never reached so its award never fires.
var statusAwards = map[FriendStatus]int64{
	StatusBooked:    BookedAward,
	StatusCompleted: CompletedAward,
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	program repository.Repository[ReferralProgram]
	friend  repository.Repository[ReferredFriend]
	points  *points.Service
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Points *points.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		program: repository.ProvideStore[ReferralProgram](p.DB),
		friend:  repository.ProvideStore[ReferredFriend](p.DB),
		points:  p.Points,
	}
}

// EnsureProgram returns the client's referral program, creating it with a
// fresh unique code on first call. Calling it twice never mints a second
// code.
func (s *Service) EnsureProgram(ctx context.Context, clientID string) (*ReferralProgram, error) {
	if clientID == "" {
		return nil, errutil.ValidationFailed("client_id is required", nil)
	}

	existing, err := s.program.FindOne(ctx, &ReferralProgram{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	program := &ReferralProgram{
		ID:           s.node.Generate().String(),
		ClientID:     clientID,
		ReferralCode: code,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.program.Create(ctx, program); err != nil {
		// A concurrent first call may have won the unique client_id race.
		if raced, findErr := s.program.FindOne(ctx, &ReferralProgram{ClientID: clientID}); findErr == nil && raced != nil {
			return raced, nil
		}
		return nil, err
	}

	zap.L().Info("referral program created",
		zap.String("client_id", clientID),
		zap.String("referral_code", code),
	)

	return program, nil
}

func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code, err := sequence.RandomCode(codeLength)
		if err != nil {
			return "", err
		}

		taken, err := s.program.FindOne(ctx, &ReferralProgram{ReferralCode: code})
		if err != nil {
			return "", err
		}
		if taken == nil {
			return code, nil
		}
	}
	return "", errutil.Internal("failed to allocate a unique referral code", nil)
}

type AddReferralRequest struct {
	ClientID    string
	FriendName  string
	FriendEmail string
	FriendPhone string
}

// AddReferral records a new referred friend and pays the signup award in the
// same transaction, so the friend row and the referrer's accrual commit or
// roll back together.
func (s *Service) AddReferral(ctx context.Context, req AddReferralRequest) (*ReferredFriend, error) {
	span := trace.SpanFromContext(ctx)

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("client_id", req.ClientID),
		zap.String("friend_email", req.FriendEmail),
	)

	if req.FriendName == "" {
		return nil, errutil.ValidationFailed("friend_name is required", nil)
	}
	if req.FriendEmail == "" {
		return nil, errutil.ValidationFailed("friend_email is required", nil)
	}

	var friend *ReferredFriend

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		programTx := s.program.WithTrx(tx)

		program, err := programTx.FindOne(ctx, &ReferralProgram{ClientID: req.ClientID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if program == nil {
			return errutil.NotFound("referral program not found", nil)
		}
		if !program.IsActive {
			return errutil.UnprocessableEntity("referral program is inactive", nil)
		}

		// The signup bonus belongs to the referrer's ledger and the program
		// totals; the friend's running totals start at zero and only count
		// the milestones the friend themselves reaches.
		friend = &ReferredFriend{
			ID:          s.node.Generate().String(),
			ReferralID:  program.ID,
			FriendName:  req.FriendName,
			FriendEmail: req.FriendEmail,
			Status:      StatusPending,
			CreatedAt:   time.Now(),
		}
		if req.FriendPhone != "" {
			friend.FriendPhone = &req.FriendPhone
		}

		if err := s.friend.WithTrx(tx).Create(ctx, friend); err != nil {
			return err
		}

		if _, err := s.points.ApplyAccrualTx(ctx, tx, points.AccrueRequest{
			ClientID:        req.ClientID,
			Points:          SignupAward,
			Category:        points.CategoryReferral,
			Description:     "Referral signup bonus for " + req.FriendName,
			RelatedReferral: friend.FriendName,
		}); err != nil {
			return err
		}

		return s.creditAwards(ctx, tx, program, SignupAward, true)
	}); err != nil {
		zapLog.Error("failed to add referral", zap.Error(err))
		return nil, err
	}

	zapLog.Info("referral recorded", zap.String("friend_id", friend.ID))
	return friend, nil
}

// AdvanceStatus moves a referred friend along the lifecycle and pays the
// award attached to the status reached. Replays of the same status and
// backward moves change nothing, so webhook redelivery is harmless.
func (s *Service) AdvanceStatus(ctx context.Context, clientID, friendID string, target FriendStatus, bookedService string, eventDate time.Time) (*ReferredFriend, error) {
	if target.String() == "" {
		return nil, errutil.ValidationFailed("unknown referral status", nil)
	}
	if eventDate.IsZero() {
		eventDate = time.Now()
	}

	var friend *ReferredFriend

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		programTx := s.program.WithTrx(tx)
		friendTx := s.friend.WithTrx(tx)

		program, err := programTx.FindOne(ctx, &ReferralProgram{ClientID: clientID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if program == nil {
			return errutil.NotFound("referral program not found", nil)
		}

		friend, err = friendTx.FindOne(ctx, &ReferredFriend{ID: friendID, ReferralID: program.ID},
			option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if friend == nil {
			return errutil.NotFound("referred friend not found", nil)
		}

		if !friend.Status.CanAdvance(target) {
			zap.L().Warn("ignoring referral status change",
				zap.String("friend_id", friendID),
				zap.String("from", friend.Status.String()),
				zap.String("to", target.String()),
			)
			return nil
		}

		award := statusAwards[target]

		updates := map[string]any{
			"status":         target,
			"points_earned":  friend.PointsEarned + award,
			"credits_earned": (friend.PointsEarned + award) / PointsPerCredit,
		}

		switch target {
		case StatusBooked:
			updates["booked_date"] = eventDate
			if bookedService != "" {
				updates["booked_service"] = bookedService
			}
		case StatusCompleted:
			updates["completed_date"] = eventDate
		}

		if err := friendTx.Update(ctx, friend.ID, updates); err != nil {
			return err
		}

		friend.Status = target
		friend.PointsEarned += award
		friend.CreditsEarned = friend.PointsEarned / PointsPerCredit

		if _, err := s.points.ApplyAccrualTx(ctx, tx, points.AccrueRequest{
			ClientID:        clientID,
			Points:          award,
			Category:        points.CategoryReferral,
			Description:     "Referral " + target.String() + " bonus for " + friend.FriendName,
			RelatedReferral: friend.FriendName,
		}); err != nil {
			return err
		}

		return s.creditAwards(ctx, tx, program, award, false)
	}); err != nil {
		return nil, err
	}

	return friend, nil
}

// GetProgram returns the program with its friends, oldest first.
func (s *Service) GetProgram(ctx context.Context, clientID string) (*ProgramView, error) {
	program, err := s.program.FindOne(ctx, &ReferralProgram{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, errutil.NotFound("referral program not found", nil)
	}

	friends, err := s.friend.Find(ctx, &ReferredFriend{ReferralID: program.ID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		return nil, err
	}

	return &ProgramView{ReferralProgram: *program, Friends: friends}, nil
}

// creditAwards folds a fresh award into the program totals. The credit total
// is always derived from the points total, never incremented independently.
func (s *Service) creditAwards(ctx context.Context, tx *gorm.DB, program *ReferralProgram, award int64, newReferral bool) error {
	program.TotalEarnedPoints += award
	program.TotalEarnedCredits = program.TotalEarnedPoints / PointsPerCredit
	if newReferral {
		program.TotalReferrals++
	}
	program.UpdatedAt = time.Now()

	return s.program.WithTrx(tx).Update(ctx, program.ID, map[string]any{
		"total_referrals":      program.TotalReferrals,
		"total_earned_points":  program.TotalEarnedPoints,
		"total_earned_credits": program.TotalEarnedCredits,
		"updated_at":           program.UpdatedAt,
	})
}
