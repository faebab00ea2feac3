package reward

import (
	"time"
)

type RedemptionStatus string

var (
	StatusPending  RedemptionStatus = "pending"
	StatusRedeemed RedemptionStatus = "redeemed"
	StatusExpired  RedemptionStatus = "expired"
)

// RewardRedemption is the record of a spent reward. It snapshots the
// template fields at redemption time.
type RewardRedemption struct {
	ID             string           `gorm:"column:id;primaryKey" json:"id"`
	ClientID       string           `gorm:"column:client_id;index;not null" json:"client_id"`
	RewardID       string           `gorm:"column:reward_id;not null" json:"reward_id"`
	RewardName     string           `gorm:"column:reward_name;not null" json:"reward_name"`
	RewardType     Type             `gorm:"column:reward_type;type:varchar(30);not null" json:"reward_type"`
	Description    string           `gorm:"column:description;type:text" json:"description"`
	PointsCost     int64            `gorm:"column:points_cost;not null" json:"points_cost"`
	Value          float64          `gorm:"column:value;not null" json:"value"`
	RedemptionCode string           `gorm:"column:redemption_code;uniqueIndex;not null" json:"redemption_code"`
	Status         RedemptionStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ExpiresAt      time.Time        `gorm:"column:expires_at" json:"expires_at"`
	RedeemedAt     time.Time        `gorm:"column:redeemed_at" json:"redeemed_at"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
}

func (RewardRedemption) TableName() string {
	return "reward_redemptions"
}
