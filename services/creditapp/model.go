package creditapp

import (
	"time"

	"gorm.io/datatypes"
)

type ApplicationStatus string

var (
	StatusDraft     ApplicationStatus = "draft"
	StatusSubmitted ApplicationStatus = "submitted"
	StatusApproved  ApplicationStatus = "approved"
	StatusDenied    ApplicationStatus = "denied"
)

func (s ApplicationStatus) String() string {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusDenied:
		return string(s)
	default:
		return ""
	}
}

// CreditApplication carries a financing application through its lifecycle.
// The section payloads are stored as JSON documents: their fields belong to
// the financing partner's form and change without schema migrations here.
type CreditApplication struct {
	ID       string            `gorm:"column:id;primaryKey" json:"id"`
	ClientID string            `gorm:"column:client_id;index;not null" json:"client_id"`
	Status   ApplicationStatus `gorm:"column:status;type:varchar(20);not null;default:'draft'" json:"status"`

	PersonalInfo datatypes.JSON `gorm:"column:personal_info" json:"personal_info,omitempty"`
	Address      datatypes.JSON `gorm:"column:address" json:"address,omitempty"`
	Employment   datatypes.JSON `gorm:"column:employment" json:"employment,omitempty"`
	Financial    datatypes.JSON `gorm:"column:financial" json:"financial,omitempty"`
	Procedure    datatypes.JSON `gorm:"column:procedure" json:"procedure,omitempty"`
	Consent      datatypes.JSON `gorm:"column:consent" json:"consent,omitempty"`

	RequestedAmountCents int64   `gorm:"column:requested_amount_cents;not null;default:0" json:"requested_amount_cents"`
	ApprovedAmountCents  *int64  `gorm:"column:approved_amount_cents" json:"approved_amount_cents,omitempty"`
	DecisionReason       *string `gorm:"column:decision_reason" json:"decision_reason,omitempty"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	DecidedAt   *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (CreditApplication) TableName() string {
	return "credit_applications"
}
