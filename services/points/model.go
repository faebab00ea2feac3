package points

import (
	"time"

	"loyalty-engine/services/tier"
)

type TransactionType string

var (
	Earned   TransactionType = "earned"
	Redeemed TransactionType = "redeemed"
)

func (t TransactionType) String() string {
	switch t {
	case Earned, Redeemed:
		return string(t)
	default:
		return ""
	}
}

type Category string

var (
	CategoryService     Category = "service"
	CategoryReferral    Category = "referral"
	CategoryReview      Category = "review"
	CategorySocial      Category = "social"
	CategoryBirthday    Category = "birthday"
	CategoryAnniversary Category = "anniversary"
	CategoryPromotion   Category = "promotion"
)

func (c Category) String() string {
	switch c {
	case CategoryService, CategoryReferral, CategoryReview, CategorySocial,
		CategoryBirthday, CategoryAnniversary, CategoryPromotion:
		return string(c)
	default:
		return ""
	}
}

// ClientPointsAccount is the per-client balance row. currentTier,
// tierProgress and nextTierThreshold are derived from lifetime_points and
// recomputed inside the same transaction as every mutation; they are never
// written independently.
type ClientPointsAccount struct {
	ID                string    `gorm:"column:id;primaryKey" json:"id"`
	ClientID          string    `gorm:"column:client_id;uniqueIndex;not null" json:"client_id"`
	TotalPoints       int64     `gorm:"column:total_points;not null;default:0" json:"total_points"`
	LifetimePoints    int64     `gorm:"column:lifetime_points;not null;default:0" json:"lifetime_points"`
	CurrentTier       tier.Tier `gorm:"column:current_tier;type:varchar(20);not null;default:'bronze'" json:"current_tier"`
	TierProgress      float64   `gorm:"column:tier_progress;not null;default:0" json:"tier_progress"`
	NextTierThreshold int64     `gorm:"column:next_tier_threshold;not null;default:0" json:"next_tier_threshold"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ClientPointsAccount) TableName() string {
	return "client_points_accounts"
}

// PointTransaction is an append-only ledger entry. Points are signed:
// positive for earned, negative for redeemed.
type PointTransaction struct {
	ID              string          `gorm:"column:id;primaryKey" json:"id"`
	ClientID        string          `gorm:"column:client_id;index;not null" json:"client_id"`
	Type            TransactionType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Category        Category        `gorm:"column:category;type:varchar(20);not null" json:"category"`
	Points          int64           `gorm:"column:points;not null" json:"points"`
	Description     string          `gorm:"column:description;type:text" json:"description"`
	RelatedService  *string         `gorm:"column:related_service" json:"related_service,omitempty"`
	RelatedReferral *string         `gorm:"column:related_referral" json:"related_referral,omitempty"`
	TransactionCode string          `gorm:"column:transaction_code" json:"transaction_code"`
	ReferenceID     *string         `gorm:"column:reference_id;index" json:"reference_id,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

// AccountSummary is the read model returned to callers: the account snapshot
// plus its full ledger history in chronological order.
type AccountSummary struct {
	ClientID          string              `json:"client_id"`
	TotalPoints       int64               `json:"total_points"`
	LifetimePoints    int64               `json:"lifetime_points"`
	CurrentTier       tier.Tier           `json:"current_tier"`
	TierProgress      float64             `json:"tier_progress"`
	NextTierThreshold int64               `json:"next_tier_threshold"`
	TierBenefit       tier.Benefit        `json:"tier_benefit"`
	History           []*PointTransaction `json:"history"`
}
