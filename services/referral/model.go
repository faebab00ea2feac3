package referral

import (
	"time"
)

type FriendStatus string

var (
	StatusPending   FriendStatus = "pending"
	StatusBooked    FriendStatus = "booked"
	StatusCompleted FriendStatus = "completed"
)

func (s FriendStatus) String() string {
	switch s {
	case StatusPending, StatusBooked, StatusCompleted:
		return string(s)
	default:
		return ""
	}
}

// transitions is the forward-only state machine for a referred friend.
// Anything not listed here (same status, backward, unknown) is not a valid
// transition; callers treat those as no-ops so webhook retries stay safe.
var transitions = map[FriendStatus][]FriendStatus{
	StatusPending:   {StatusBooked, StatusCompleted},
	StatusBooked:    {StatusCompleted},
	StatusCompleted: {},
}

// CanAdvance reports whether the state machine allows moving to target.
func (s FriendStatus) CanAdvance(target FriendStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ReferralProgram is the per-client referral container. TotalEarnedCredits
// is derived from TotalEarnedPoints at the fixed points-per-credit ratio and
// recomputed whenever the points total moves.
type ReferralProgram struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	ClientID           string    `gorm:"column:client_id;uniqueIndex;not null" json:"client_id"`
	ReferralCode       string    `gorm:"column:referral_code;uniqueIndex;not null" json:"referral_code"`
	TotalReferrals     int64     `gorm:"column:total_referrals;not null;default:0" json:"total_referrals"`
	TotalEarnedPoints  int64     `gorm:"column:total_earned_points;not null;default:0" json:"total_earned_points"`
	TotalEarnedCredits int64     `gorm:"column:total_earned_credits;not null;default:0" json:"total_earned_credits"`
	IsActive           bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ReferralProgram) TableName() string {
	return "referral_programs"
}

// ReferredFriend is immutable once created except for the status advance and
// its accompanying bookkeeping fields.
type ReferredFriend struct {
	ID            string       `gorm:"column:id;primaryKey" json:"id"`
	ReferralID    string       `gorm:"column:referral_id;index;not null" json:"referral_id"`
	FriendName    string       `gorm:"column:friend_name;not null" json:"friend_name"`
	FriendEmail   string       `gorm:"column:friend_email;not null" json:"friend_email"`
	FriendPhone   *string      `gorm:"column:friend_phone" json:"friend_phone,omitempty"`
	Status        FriendStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	PointsEarned  int64        `gorm:"column:points_earned;not null;default:0" json:"points_earned"`
	CreditsEarned int64        `gorm:"column:credits_earned;not null;default:0" json:"credits_earned"`
	BookedService *string      `gorm:"column:booked_service" json:"booked_service,omitempty"`
	BookedDate    *time.Time   `gorm:"column:booked_date" json:"booked_date,omitempty"`
	CompletedDate *time.Time   `gorm:"column:completed_date" json:"completed_date,omitempty"`
	CreatedAt     time.Time    `gorm:"column:created_at" json:"created_at"`
}

func (ReferredFriend) TableName() string {
	return "referred_friends"
}

// ProgramView is the read model: the program plus its friends.
type ProgramView struct {
	ReferralProgram
	Friends []*ReferredFriend `json:"referred_friends"`
}
